package main

import (
	"bufio"

	"github.com/spf13/cobra"

	"gatehouse/internal/app"
	"gatehouse/internal/auth/models"
	"gatehouse/internal/platform/config"
	"gatehouse/internal/platform/logger"
)

// cli carries what every subcommand shares: the flag overrides and, once
// PersistentPreRunE has run, the wired App.
type cli struct {
	backendURL  string
	sessionFile string
	logLevel    string

	opts []app.Option
	app  *app.App
	in   *bufio.Reader
}

// NewRootCmd creates the root command. opts are appended to the App options
// built from config.
func NewRootCmd(opts ...app.Option) *cobra.Command {
	c := &cli{opts: opts}

	cmd := &cobra.Command{
		Use:   "gatehouse",
		Short: "gatehouse - sign in, route gates and password reset from the terminal",
		Long: `gatehouse drives the client session against an authentication backend:
local and provider sign-in, route gate evaluation, and the password reset flow.
The session is kept between runs in a file or, when configured, in redis.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
		PersistentPostRunE: c.teardown,
	}

	cmd.PersistentFlags().StringVar(&c.backendURL, "backend-url", "", "backend base URL (overrides GATEHOUSE_BACKEND_URL)")
	cmd.PersistentFlags().StringVar(&c.sessionFile, "session-file", "", "session file path (overrides GATEHOUSE_SESSION_FILE)")
	cmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "debug, info, warn or error (overrides GATEHOUSE_LOG_LEVEL)")

	cmd.AddCommand(
		newLoginCmd(c),
		newRegisterCmd(c),
		newProviderLoginCmd(c, "login-google", models.ProviderGoogle),
		newProviderLoginCmd(c, "login-facebook", models.ProviderFacebook),
		newLogoutCmd(c),
		newWhoAmICmd(c),
		newOpenCmd(c),
		newForgotCmd(c),
		newResetCmd(c),
		newProfileImageCmd(c, "avatar"),
		newProfileImageCmd(c, "cover"),
	)
	return cmd
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.ClientFromEnv()
	if err != nil {
		return err
	}
	if c.backendURL != "" {
		cfg.BackendURL = c.backendURL
	}
	if c.sessionFile != "" {
		cfg.SessionFile = c.sessionFile
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}

	// stdout belongs to command output.
	log := logger.NewWithWriter(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)

	opts := append([]app.Option{
		app.WithLogger(log),
		app.WithConsentIO(cmd.InOrStdin(), cmd.ErrOrStderr()),
	}, c.opts...)
	a, err := app.New(cmd.Context(), cfg, opts...)
	if err != nil {
		return err
	}
	c.app = a
	c.in = bufio.NewReader(cmd.InOrStdin())
	return nil
}

func (c *cli) teardown(*cobra.Command, []string) error {
	if c.app == nil {
		return nil
	}
	err := c.app.Close()
	c.app = nil
	return err
}
