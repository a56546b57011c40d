package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"example.com/stuff-happens/internal/client"
	"example.com/stuff-happens/internal/game"
	"github.com/spf13/cobra"
)

const (
	countdownCeiling = 30
	countdownUnit    = time.Second
	countdownRefresh = 100 * time.Millisecond
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play a full session",
	Long: `Start a new session. Each round shows your owned cards in order and
one new card; type the slot number where it belongs before the countdown
runs out. Three right answers win, three wrong ones lose.`,
	RunE: runPlay,
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Play a single round without an account",
	RunE:  runDemo,
}

func runPlay(cmd *cobra.Command, args []string) error {
	c, err := authedClient()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(cmd)
	defer cancel()

	return newTable(cmd.InOrStdin(), cmd.OutOrStdout()).play(ctx, c, false)
}

func runDemo(cmd *cobra.Command, args []string) error {
	c, err := anonymousClient()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(cmd)
	defer cancel()

	return newTable(cmd.InOrStdin(), cmd.OutOrStdout()).play(ctx, c, true)
}

// table renders the synchronizer's state and feeds it the player's input.
type table struct {
	lines <-chan string
	out   io.Writer

	mu       sync.Mutex
	shown    int // last countdown value printed
	trail    int
	resolved chan struct{}
}

func newTable(in io.Reader, out io.Writer) *table {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			lines <- strings.TrimSpace(sc.Text())
		}
	}()
	return &table{lines: lines, out: out, shown: -1, resolved: make(chan struct{}, 1)}
}

func (t *table) onChange(st client.State) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if st.Round != nil && st.Remaining != t.shown {
		t.shown = st.Remaining
		fmt.Fprintf(t.out, "\r  %2ds left > ", st.Remaining)
	}
	if len(st.Trail) > t.trail {
		t.trail = len(st.Trail)
		select {
		case t.resolved <- struct{}{}:
		default:
		}
	}
}

func (t *table) play(ctx context.Context, backend client.Backend, demo bool) error {
	s := client.NewSynchronizer(backend,
		client.WithTimer(client.NewCountdown(countdownCeiling, countdownUnit, countdownRefresh)),
		client.OnChange(t.onChange),
	)
	defer s.Close()

	start := s.Start
	if demo {
		start = s.StartDemo
	}
	if err := start(ctx); err != nil {
		return err
	}

	for {
		st := s.State()
		if st.Over {
			t.printSummary(st)
			return nil
		}

		if !demo {
			if _, err := s.NextRound(ctx); err != nil {
				return err
			}
		}
		t.printRound(s.State())

		if err := t.answer(ctx, s); err != nil {
			return err
		}
		t.printResult(s.State())
	}
}

// answer waits for a slot number or the countdown, whichever comes first.
func (t *table) answer(ctx context.Context, s *client.Synchronizer) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.resolved:
			fmt.Fprintln(t.out, "\n  Time is up.")
			return nil
		case line, ok := <-t.lines:
			if !ok {
				return errors.New("input closed")
			}
			pos, err := strconv.Atoi(line)
			if err != nil || pos < 0 || pos > len(s.State().Owned) {
				fmt.Fprintf(t.out, "  enter a slot between 0 and %d > ", len(s.State().Owned))
				continue
			}
			_, err = s.Submit(ctx, pos)
			switch {
			case errors.Is(err, client.ErrRoundSpent):
				// the countdown got there first; wait for its result
				if err := s.Settle(ctx); err != nil {
					return err
				}
				fmt.Fprintln(t.out, "\n  Time is up.")
			case errors.Is(err, client.ErrNoRound):
			case err != nil:
				return err
			}
			select {
			case <-t.resolved:
			default:
			}
			return nil
		}
	}
}

func (t *table) printRound(st client.State) {
	if st.Round == nil {
		return
	}
	fmt.Fprintf(t.out, "\nRound %d: where does %q go?\n", len(st.Trail)+1, st.Round.Name)
	for i, c := range st.Owned {
		fmt.Fprintf(t.out, "  [%d]\n      %-45s %6.1f\n", i, c.Name, c.Score)
	}
	fmt.Fprintf(t.out, "  [%d]\n", len(st.Owned))
}

func (t *table) printResult(st client.State) {
	t.mu.Lock()
	t.shown = -1
	t.mu.Unlock()

	if st.Err != nil {
		fmt.Fprintf(t.out, "  error: %v\n", st.Err)
		return
	}
	if st.Last == nil {
		return
	}
	switch {
	case st.Last.IsCorrect && st.Last.GuessCard != nil:
		fmt.Fprintf(t.out, "  Correct! %s scores %.1f.\n", st.Last.GuessCard.Name, st.Last.GuessCard.Score)
	case st.Last.TimedOut:
		fmt.Fprintln(t.out, "  Timed out: the round is lost.")
	default:
		fmt.Fprintf(t.out, "  Wrong, it belonged in slot %d.\n", st.Last.CorrectIndex)
	}
	if st.Mode == client.ModeSession {
		fmt.Fprintf(t.out, "  wins %d/%d, losses %d/%d\n", st.Wins, game.WinsToComplete, st.Losses, game.LossesToFail)
	}
}

func (t *table) printSummary(st client.State) {
	switch st.Outcome {
	case game.OutcomeWon:
		fmt.Fprintln(t.out, "\nYou won!")
	case game.OutcomeLost:
		fmt.Fprintln(t.out, "\nYou lost.")
	}
	fmt.Fprintln(t.out, "Your cards:")
	for _, c := range st.Owned {
		fmt.Fprintf(t.out, "  %-45s %6.1f\n", c.Name, c.Score)
	}
}
