package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gatehouse/internal/gate"
)

func newOpenCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "open <path>",
		Short: "Navigate to a path and show where the route gates settle",
		Long: `Navigate to a path (optionally with a query) as the current session and
print the location that finally renders, the gate that guards it and the
decision. Redirects are followed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := c.app.Open(args[0])
			if err != nil {
				return err
			}
			printView(cmd, v)
			return nil
		},
	}
}

func printView(cmd *cobra.Command, v gate.View) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s\tgate=%s\tdecision=%s\n", v.Location, v.Gate, v.Decision)
}
