package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gatehouse/internal/gate"
	"gatehouse/internal/reset"
	dErrors "gatehouse/pkg/domain-errors"
)

func newForgotCmd(c *cli) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "forgot",
		Short: "Request a password reset link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			address, err := c.valueOr(cmd, email, "Email: ")
			if err != nil {
				return err
			}
			msg, err := c.app.ForgotPassword(cmd.Context(), address)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email (prompted when empty)")
	return cmd
}

func newResetCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <link>",
		Short: "Set a new password from a reset link",
		Long: `Open the reset link from the reset email, choose a new password and wait
for the redirect to the sign-in page. A link without a token is turned away
to the sign-in page.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runReset(cmd, args[0])
		},
	}
}

func (c *cli) runReset(cmd *cobra.Command, link string) error {
	ctx := cmd.Context()

	v, err := c.app.Open(link)
	if err != nil {
		return err
	}
	if v.Decision != gate.DecisionRender || !v.Location.ResetToken().Present() {
		printView(cmd, v)
		return dErrors.New(dErrors.CodeBadRequest, reset.MsgInvalidToken)
	}

	redirected := make(chan gate.View, 1)
	flow := c.app.ResetFlow(v.Location, func(v gate.View) { redirected <- v })
	defer flow.Close()

	for {
		password, err := c.promptSecret(cmd, "New password: ")
		if err != nil {
			return err
		}
		confirm, err := c.promptSecret(cmd, "Confirm new password: ")
		if err != nil {
			return err
		}

		err = flow.Submit(ctx, password, confirm)
		if err == nil {
			break
		}
		// Local validation failures leave the form open for another try.
		if !dErrors.HasCode(err, dErrors.CodeBadRequest) {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), dErrors.UserMessage(err))
	}

	fmt.Fprintln(cmd.OutOrStdout(), flow.View().Message)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case v := <-redirected:
		printView(cmd, v)
		return nil
	}
}
