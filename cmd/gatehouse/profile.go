package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newProfileImageCmd builds the avatar and cover commands. Both edit the
// local session only.
func newProfileImageCmd(c *cli, kind string) *cobra.Command {
	return &cobra.Command{
		Use:   kind + " <url>",
		Short: fmt.Sprintf("Set the %s image of the signed-in profile", kind),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			update := c.app.Sessions.UpdateAvatar
			if kind == "cover" {
				update = c.app.Sessions.UpdateCover
			}
			if err := update(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", kind)
			return nil
		},
	}
}
