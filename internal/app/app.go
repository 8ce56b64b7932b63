// Package app wires the client side of gatehouse: the session store and its
// persister, the backend client, the provider bridges and the route gates.
// Commands in cmd/gatehouse drive an App and never touch the pieces directly.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/oauth2"

	"gatehouse/internal/auth/models"
	"gatehouse/internal/auth/provider"
	"gatehouse/internal/auth/provider/facebook"
	"gatehouse/internal/auth/provider/google"
	"gatehouse/internal/auth/session"
	"gatehouse/internal/auth/signin"
	sessionstore "gatehouse/internal/auth/store/session"
	"gatehouse/internal/backend"
	"gatehouse/internal/gate"
	"gatehouse/internal/platform/config"
	"gatehouse/internal/platform/logger"
	"gatehouse/internal/platform/metrics"
	"gatehouse/internal/platform/redis"
	"gatehouse/internal/reset"
)

// App is one client process.
type App struct {
	Config    config.Client
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Backend   *backend.Client
	Sessions  *session.Store
	Providers *provider.Registry
	Targets   gate.Targets
	Router    *gate.Router
	Navigator *gate.Navigator

	form    *signin.Form
	closers []func() error
}

type options struct {
	logger     *slog.Logger
	registerer prometheus.Registerer
	httpClient *http.Client
	persister  session.Persister
	bridges    []provider.Bridge
	in         io.Reader
	out        io.Writer
}

// Option configures New.
type Option func(*options)

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRegisterer records client metrics into reg instead of a private registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithHTTPClient is used for backend calls and provider loads.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithPersister overrides the redis or file persister chosen from config.
func WithPersister(p session.Persister) Option {
	return func(o *options) { o.persister = p }
}

// WithBridges replaces the configured provider bridges.
func WithBridges(bridges ...provider.Bridge) Option {
	return func(o *options) { o.bridges = append([]provider.Bridge{}, bridges...) }
}

// WithConsentIO sets where provider consent prompts are shown and answered.
func WithConsentIO(in io.Reader, out io.Writer) Option {
	return func(o *options) {
		o.in = in
		o.out = out
	}
}

// New builds an App from cfg and restores any persisted session.
func New(ctx context.Context, cfg config.Client, opts ...Option) (*App, error) {
	o := options{in: eofReader{}, out: io.Discard}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	log := logger.OrDiscard(o.logger)
	if o.registerer == nil {
		o.registerer = prometheus.NewRegistry()
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}

	a := &App{
		Config:  cfg,
		Logger:  log,
		Metrics: metrics.New(o.registerer),
	}

	bc, err := backend.New(cfg.BackendURL,
		backend.WithHTTPClient(o.httpClient),
		backend.WithTimeout(cfg.HTTPTimeout),
		backend.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("backend client: %w", err)
	}
	a.Backend = bc

	persister := o.persister
	if persister == nil {
		persister, err = a.persister(ctx)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	a.Sessions = session.New(bc, persister, session.WithLogger(log), session.WithMetrics(a.Metrics))
	a.Sessions.Restore(ctx)
	a.form = signin.NewForm(a.Sessions)

	bridges := o.bridges
	if bridges == nil {
		bridges = a.bridges(o.httpClient, provider.PasteConsent(o.in, o.out))
	}
	a.Providers = provider.NewRegistry(bridges...)

	a.Targets = gate.Targets{
		AnonymousEntry:     cfg.Routes.AnonymousEntry,
		AuthenticatedEntry: cfg.Routes.AuthenticatedEntry,
		ResetEntry:         cfg.Routes.ResetEntry,
	}
	a.Router = gate.NewRouter(gate.DefaultRules(a.Targets)...)
	a.Navigator = gate.NewNavigator(a.Sessions, a.Router, a.Targets,
		gate.WithNavigatorLogger(log),
		gate.WithNavigatorMetrics(a.Metrics),
	)
	return a, nil
}

func (a *App) persister(ctx context.Context) (session.Persister, error) {
	client, err := redis.New(ctx, a.Config.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if client != nil {
		a.closers = append(a.closers, client.Close)
		a.Logger.DebugContext(ctx, "persisting session in redis", "key", a.Config.Redis.Key)
		return sessionstore.NewRedis(client.Client, sessionstore.WithKey(a.Config.Redis.Key)), nil
	}
	a.Logger.DebugContext(ctx, "persisting session on disk", "path", a.Config.SessionFile)
	return sessionstore.NewFile(a.Config.SessionFile), nil
}

func (a *App) bridges(client *http.Client, consent provider.ConsentFunc) []provider.Bridge {
	pc := a.Config.Providers
	handleOpts := []provider.HandleOption{
		provider.WithLoadTimeout(pc.LoadTimeout),
		provider.WithHandleLogger(a.Logger),
		provider.WithHandleMetrics(a.Metrics),
	}

	gsdk := google.NewOAuth2SDK(oauth2.Config{
		ClientID:     pc.GoogleClientID,
		ClientSecret: pc.GoogleClientSecret,
		RedirectURL:  pc.RedirectURL,
	}, consent)
	ghandle := provider.NewHandle(models.ProviderGoogle, gsdk.DiscoveryLoader(client, pc.GoogleIssuer), handleOpts...)
	g := google.New(google.Config{ClientID: pc.GoogleClientID}, ghandle, gsdk, google.WithLogger(a.Logger))

	fsdk := facebook.NewOAuth2SDK(oauth2.Config{
		ClientID:     pc.FacebookAppID,
		ClientSecret: pc.FacebookAppSecret,
		RedirectURL:  pc.RedirectURL,
	}, consent)
	fhandle := provider.NewHandle(models.ProviderFacebook, provider.HTTPLoader{Client: client, URL: pc.FacebookSDKURL}, handleOpts...)
	f := facebook.New(facebook.Config{AppID: pc.FacebookAppID}, fhandle, fsdk, facebook.WithLogger(a.Logger))

	return []provider.Bridge{g, f}
}

// Login signs in with an email and password.
func (a *App) Login(ctx context.Context, email, password string) (models.Session, error) {
	return a.form.SubmitLogin(ctx, email, password)
}

// Register creates an account and signs it in.
func (a *App) Register(ctx context.Context, reg models.Registration) (models.Session, error) {
	return a.form.SubmitRegister(ctx, reg)
}

// ProviderLogin runs one provider sign-in to completion: mount the button,
// click it and wait for the session store to settle.
func (a *App) ProviderLogin(ctx context.Context, name models.ProviderName) (models.Session, error) {
	bridge, err := a.Providers.Get(name)
	if err != nil {
		return models.Session{}, err
	}

	type result struct {
		sess models.Session
		err  error
	}
	done := make(chan result, 1)
	btn := signin.NewButton(bridge, a.Sessions,
		signin.WithButtonLogger(a.Logger),
		signin.OnSignedIn(func(s models.Session) { done <- result{sess: s} }),
		signin.OnError(func(_ string, err error) { done <- result{err: err} }),
	)
	if err := btn.Mount(ctx); err != nil {
		return models.Session{}, err
	}
	defer btn.Unmount()

	if !btn.Click() {
		return models.Session{}, errors.New("provider sign-in did not start")
	}
	select {
	case <-ctx.Done():
		return models.Session{}, ctx.Err()
	case r := <-done:
		return r.sess, r.err
	}
}

// Logout clears the session.
func (a *App) Logout(ctx context.Context) {
	a.Sessions.Logout(ctx)
}

// Open navigates to raw and returns the settled view.
func (a *App) Open(raw string) (gate.View, error) {
	return a.Navigator.Navigate(a.Sessions.Current(), raw)
}

// ForgotPassword asks the backend to mail a reset link.
func (a *App) ForgotPassword(ctx context.Context, email string) (string, error) {
	return reset.RequestLink(ctx, a.Backend, email)
}

// ResetFlow mounts a reset form for the token carried by loc. After a
// successful submit the flow navigates to the anonymous entry; navigated
// receives the settled view.
func (a *App) ResetFlow(loc gate.Location, navigated func(gate.View)) *reset.Flow {
	return reset.NewFlow(loc.ResetToken(), a.Backend, func(path string) {
		v, err := a.Open(path)
		if err != nil {
			a.Logger.Warn("post-reset navigation failed", "path", path, "error", err)
			return
		}
		if navigated != nil {
			navigated(v)
		}
	},
		reset.WithTargets(a.Targets),
		reset.WithRedirectDelay(a.Config.Reset.RedirectDelay),
		reset.WithLogger(a.Logger),
		reset.WithMetrics(a.Metrics),
	)
}

// Close releases the navigator, the bridges and any redis connection.
func (a *App) Close() error {
	if a.Navigator != nil {
		a.Navigator.Close()
	}
	if a.Providers != nil {
		a.Providers.Close()
	}
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// eofReader answers consent prompts when no input is wired.
type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }
