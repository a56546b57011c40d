package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List your past sessions",
	RunE:  runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	c, err := authedClient()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(cmd)
	defer cancel()

	me, err := c.Current(ctx)
	if err != nil {
		return err
	}
	hist, err := c.History(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d played, %d won, %d lost, %d ongoing\n\n",
		me.Username, me.Stats.Played, me.Stats.Won, me.Stats.Lost, me.Stats.Ongoing)

	for _, v := range hist {
		outcome := "-"
		if v.Session.Outcome != nil {
			outcome = *v.Session.Outcome
		}
		fmt.Fprintf(out, "#%d  %s  %s  %s\n", v.Session.ID,
			v.Session.CreatedAt.Local().Format("2006-01-02 15:04"), v.Session.Status, outcome)

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, sc := range v.Cards {
			round := "start"
			if sc.RoundNumber != nil {
				round = fmt.Sprintf("round %d", *sc.RoundNumber)
			}
			result := "won"
			if !sc.Won {
				result = "lost"
			}
			fmt.Fprintf(tw, "  %s\t%s\t%.1f\t%s\n", round, sc.Card.Name, sc.Card.MisfortuneScore, result)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}
	return nil
}
