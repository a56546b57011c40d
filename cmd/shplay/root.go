package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"

	"example.com/stuff-happens/internal/client"
	"github.com/spf13/cobra"
)

var (
	serverURL string
	credsPath string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "shplay",
	Short: "Play Stuff Happens from the terminal",
	Long: `shplay talks to a Stuff Happens server. Log in once, then play
sessions, try the demo round, browse your history or watch live events.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server base URL (default from saved login, else http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&credsPath, "credentials", "", "credentials file (default $XDG_CONFIG_HOME/shplay/credentials.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging to stderr")

	rootCmd.AddCommand(loginCmd, logoutCmd, playCmd, demoCmd, historyCmd, watchCmd)
}

// signalContext is cancelled on Ctrl-C.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt)
}

// anonymousClient is enough for the demo round.
func anonymousClient() (*client.Client, error) {
	creds, err := loadCredentials()
	if err != nil && !errors.Is(err, errNotLoggedIn) {
		return nil, err
	}
	return client.New(resolveServer(creds), ""), nil
}

func authedClient() (*client.Client, error) {
	creds, err := loadCredentials()
	if err != nil {
		return nil, err
	}
	return client.New(resolveServer(creds), creds.Token), nil
}

func resolveServer(creds credentials) string {
	switch {
	case serverURL != "":
		return serverURL
	case creds.Server != "":
		return creds.Server
	}
	return "http://localhost:8080"
}
