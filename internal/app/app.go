package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"example.com/stuff-happens/internal/auth"
	"example.com/stuff-happens/internal/catalog"
	"example.com/stuff-happens/internal/config"
	"example.com/stuff-happens/internal/game"
	"example.com/stuff-happens/internal/httpapi"
	"example.com/stuff-happens/internal/migrate"
	"example.com/stuff-happens/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg config.Config
	log *slog.Logger

	db  *pgxpool.Pool
	rdb *redis.Client

	srv *http.Server
}

type Options struct {
	Static http.Handler // optional; if nil, no frontend is served
}

// backend is the storage picked by STORAGE.
type backend struct {
	catalog  game.Catalog
	sessions game.SessionStore
	seeder   catalog.Upserter
	users    httpapi.UserStore
	rounds   game.RoundTracker
	seed     bool
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger, opts Options) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	a := &App{cfg: cfg, log: log}

	var (
		be  backend
		err error
	)
	switch cfg.Storage {
	case config.StorageMemory:
		be = memoryBackend()
		log.Warn("using in-memory storage; nothing survives a restart")
	default:
		be, err = a.postgresBackend(ctx)
		if err != nil {
			return nil, err
		}
	}

	if be.seed {
		cards, err := catalog.Builtin()
		if err != nil {
			a.close()
			return nil, err
		}
		if err := catalog.Seed(ctx, be.seeder, cards); err != nil {
			a.close()
			return nil, err
		}
		log.Info("card catalog seeded", "cards", len(cards))
	}

	authSvc := auth.NewService([]byte(cfg.Auth.Secret))
	hub := game.NewHub()
	engine := game.NewEngine(
		game.Config{RoundDuration: cfg.Game.RoundDuration, RoundGrace: cfg.Game.RoundGrace},
		be.catalog, be.sessions,
		game.WithRoundTracker(be.rounds),
		game.WithPublisher(hub),
		game.WithLogger(log.With("component", "engine")),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", a.healthz)

	httpapi.Routes{
		Auth: &httpapi.AuthHandler{
			Users:    be.users,
			Stats:    engine,
			Auth:     authSvc,
			TokenTTL: cfg.Auth.TokenTTL,
			Log:      log,
		},
		Game:     &httpapi.GameHandler{Engine: engine, Log: log},
		Events:   &httpapi.EventsHandler{Hub: hub, Log: log},
		Verifier: authSvc,
	}.Register(mux)

	if opts.Static != nil {
		mux.Handle("/", opts.Static)
	}

	a.srv = &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httpapi.RequestLogger(log)(mux),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}
	return a, nil
}

func memoryBackend() backend {
	st := game.NewMemoryStore()
	return backend{
		catalog:  st,
		sessions: st,
		seeder:   st,
		users:    store.NewMemoryUserStore(),
		rounds:   game.NewMemoryRoundTracker(),
		seed:     true,
	}
}

func (a *App) postgresBackend(ctx context.Context) (backend, error) {
	cfg := a.cfg

	if cfg.Postgres.RunMigrations {
		if err := migrate.Up(cfg.Postgres.URL, a.log); err != nil {
			return backend{}, err
		}
	}

	dbpool, err := pgxpool.New(ctx, cfg.Postgres.URL)
	if err != nil {
		return backend{}, fmt.Errorf("pgxpool: %w", err)
	}
	a.db = dbpool

	a.rdb = redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})

	// fail fast
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := dbpool.Ping(pingCtx); err != nil {
		a.close()
		return backend{}, fmt.Errorf("postgres ping: %w", err)
	}
	if err := a.rdb.Ping(pingCtx).Err(); err != nil {
		a.close()
		return backend{}, fmt.Errorf("redis ping (%s db=%d): %w", cfg.Redis.Addr, cfg.Redis.DB, err)
	}

	cards := store.NewCardStore(dbpool)
	return backend{
		catalog:  cards,
		sessions: store.NewSessionStore(dbpool),
		seeder:   cards,
		users:    store.NewUserStore(dbpool),
		rounds:   game.NewRedisRoundTracker(a.rdb, cfg.Redis.RoundTTL),
		seed:     cfg.Postgres.SeedCatalog,
	}, nil
}

func (a *App) healthz(w http.ResponseWriter, r *http.Request) {
	if a.db != nil {
		if err := a.db.Ping(r.Context()); err != nil {
			http.Error(w, "postgres unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Handler is the full HTTP stack, for tests.
func (a *App) Handler() http.Handler { return a.srv.Handler }

func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	a.log.Info("http server starting", "addr", a.cfg.HTTP.Addr, "storage", a.cfg.Storage)

	g.Go(func() error {
		err := a.srv.ListenAndServe()
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		a.log.Info("http server shutting down")
		_ = a.srv.Shutdown(shutdownCtx)
		return nil
	})

	err := g.Wait()
	a.close()
	return err
}

func (a *App) close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
}
