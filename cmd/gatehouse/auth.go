package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"gatehouse/internal/auth/models"
)

func newLoginCmd(c *cli) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with an email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			address, err := c.valueOr(cmd, email, "Email: ")
			if err != nil {
				return err
			}
			password, err := c.promptSecret(cmd, "Password: ")
			if err != nil {
				return err
			}
			sess, err := c.app.Login(cmd.Context(), address, password)
			if err != nil {
				return err
			}
			c.printSignedIn(cmd, sess)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email (prompted when empty)")
	return cmd
}

func newRegisterCmd(c *cli) *cobra.Command {
	var reg models.Registration
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if reg.Email, err = c.valueOr(cmd, reg.Email, "Email: "); err != nil {
				return err
			}
			if reg.Password, err = c.promptSecret(cmd, "Password: "); err != nil {
				return err
			}
			sess, err := c.app.Register(cmd.Context(), reg)
			if err != nil {
				return err
			}
			c.printSignedIn(cmd, sess)
			return nil
		},
	}
	cmd.Flags().StringVar(&reg.Email, "email", "", "account email (prompted when empty)")
	cmd.Flags().StringVar(&reg.UserName, "username", "", "public user name")
	cmd.Flags().StringVar(&reg.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&reg.LastName, "last-name", "", "last name")
	return cmd
}

func newProviderLoginCmd(c *cli, use string, provider models.ProviderName) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("Sign in with %s", provider),
		Long: fmt.Sprintf(`Sign in with %s. A consent URL is printed when the provider needs
one; open it, approve, and paste the URL you are redirected to.`, provider),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := c.app.ProviderLogin(cmd.Context(), provider)
			if err != nil {
				return err
			}
			c.printSignedIn(cmd, sess)
			return nil
		},
	}
}

func newLogoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c.app.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newWhoAmICmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, state := c.app.Sessions.Snapshot()
			if state != models.StateAuthenticated {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")
				return nil
			}
			printSession(cmd.OutOrStdout(), sess)
			return nil
		},
	}
}

func (c *cli) printSignedIn(cmd *cobra.Command, sess models.Session) {
	name := sess.DisplayName()
	if name == "" {
		name = sess.UserID
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", name, sess.Role)
	fmt.Fprintf(cmd.OutOrStdout(), "Now at %s\n", c.app.Navigator.Current().Location)
}

// printSession never prints the token.
func printSession(w io.Writer, sess models.Session) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"user id", sess.UserID},
		{"user name", sess.UserName},
		{"name", sess.DisplayName()},
		{"role", string(sess.Role)},
		{"avatar", sess.AvatarURL},
		{"cover", sess.CoverURL},
	}
	for _, r := range rows {
		if r[1] != "" {
			fmt.Fprintf(tw, "%s\t%s\n", r[0], r[1])
		}
	}
	_ = tw.Flush()
}
