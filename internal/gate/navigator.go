package gate

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"gatehouse/internal/auth/models"
	"gatehouse/internal/platform/logger"
	"gatehouse/internal/platform/metrics"
)

// ErrRedirectLoop is returned when redirects do not settle.
var ErrRedirectLoop = errors.New("gate: redirect loop")

const defaultMaxHops = 4

// SessionSource is the read side of the session store.
type SessionSource interface {
	Current() models.Session
	Subscribe(fn func(models.Session, models.State)) func()
}

// View is a settled navigation: where the visitor ended up and what renders
// there.
type View struct {
	Location Location
	Gate     string
	Decision Decision
}

// Navigator holds the current location and re-evaluates it on every
// navigation and every session change, following redirects until a location
// renders.
type Navigator struct {
	router  *Router
	targets Targets
	logger  *slog.Logger
	metrics *metrics.Metrics
	maxHops int

	mu       sync.Mutex
	view     View
	onChange func(View)

	unsubscribe func()
}

type NavigatorOption func(*Navigator)

func WithNavigatorLogger(l *slog.Logger) NavigatorOption {
	return func(n *Navigator) { n.logger = logger.OrDiscard(l) }
}

func WithNavigatorMetrics(m *metrics.Metrics) NavigatorOption {
	return func(n *Navigator) { n.metrics = m }
}

// OnChange is called with every settled view that differs from the last.
func OnChange(fn func(View)) NavigatorOption {
	return func(n *Navigator) { n.onChange = fn }
}

func WithMaxHops(hops int) NavigatorOption {
	return func(n *Navigator) {
		if hops > 0 {
			n.maxHops = hops
		}
	}
}

// NewNavigator starts at the anonymous entry, or the authenticated entry if
// the source already holds a session, and subscribes to session changes.
func NewNavigator(source SessionSource, router *Router, targets Targets, opts ...NavigatorOption) *Navigator {
	n := &Navigator{
		router:  router,
		targets: targets,
		logger:  logger.Discard(),
		maxHops: defaultMaxHops,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(n)
		}
	}

	start := Location{Path: targets.AnonymousEntry}
	if v, err := n.settle(source.Current(), start); err == nil {
		n.view = v
	}
	n.unsubscribe = source.Subscribe(func(sess models.Session, state models.State) {
		if state == models.StateAuthenticating {
			return
		}
		n.reevaluate(sess)
	})
	return n
}

// Current returns the settled view.
func (n *Navigator) Current() View {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.view
}

// Navigate moves to raw (a path with optional query) for sess and returns
// where the visitor settles.
func (n *Navigator) Navigate(sess models.Session, raw string) (View, error) {
	loc, err := ParseLocation(raw)
	if err != nil {
		return View{}, fmt.Errorf("parse location %q: %w", raw, err)
	}
	return n.NavigateTo(sess, loc)
}

// NavigateTo is Navigate with a parsed location.
func (n *Navigator) NavigateTo(sess models.Session, loc Location) (View, error) {
	v, err := n.settle(sess, loc)
	if err != nil {
		return View{}, err
	}
	n.commit(v)
	return v, nil
}

// Close stops following session changes.
func (n *Navigator) Close() {
	if n.unsubscribe != nil {
		n.unsubscribe()
	}
}

func (n *Navigator) reevaluate(sess models.Session) {
	n.mu.Lock()
	loc := n.view.Location
	n.mu.Unlock()

	v, err := n.settle(sess, loc)
	if err != nil {
		n.logger.Warn("navigation did not settle after session change", "path", loc.Path, "error", err)
		return
	}
	n.commit(v)
}

func (n *Navigator) settle(sess models.Session, loc Location) (View, error) {
	for hop := 0; hop <= n.maxHops; hop++ {
		g, d := n.router.Evaluate(sess, loc)
		n.metrics.ObserveGateDecision(g.Name(), d.String())
		if !d.IsRedirect() {
			return View{Location: loc, Gate: g.Name(), Decision: d}, nil
		}
		target := n.targets.Target(d)
		if target == "" || target == loc.Path {
			return View{}, fmt.Errorf("%w: %s at %s", ErrRedirectLoop, d, loc.Path)
		}
		n.logger.Debug("gate redirect", "gate", g.Name(), "from", loc.Path, "to", target)
		loc = Location{Path: target}
	}
	return View{}, fmt.Errorf("%w: more than %d redirects", ErrRedirectLoop, n.maxHops)
}

func (n *Navigator) commit(v View) {
	n.mu.Lock()
	changed := !sameView(n.view, v)
	n.view = v
	fn := n.onChange
	n.mu.Unlock()

	if changed && fn != nil {
		fn(v)
	}
}

func sameView(a, b View) bool {
	return a.Location.String() == b.Location.String() &&
		a.Location.Pending == b.Location.Pending &&
		a.Decision == b.Decision
}
