package main

import (
	"fmt"
	"time"

	"example.com/stuff-happens/internal/game"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print your session events as they happen",
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	c, err := authedClient()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(cmd)
	defer cancel()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Watching events, Ctrl-C to stop")
	return c.Watch(ctx, func(e game.Envelope) {
		fmt.Fprintf(out, "%s  %-18s %s\n", time.Now().Format("15:04:05"), e.Type, e.Payload)
	})
}
