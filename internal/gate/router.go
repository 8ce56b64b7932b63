package gate

import (
	"sort"
	"strings"

	"gatehouse/internal/auth/models"
)

// Rule binds a path prefix to a gate.
type Rule struct {
	Prefix string
	Gate   Gate
}

// Router picks the gate for a path by longest matching prefix. A prefix
// matches whole segments only: "/admin" matches "/admin/users" but not
// "/administrator".
type Router struct {
	rules []Rule
}

func NewRouter(rules ...Rule) *Router {
	sorted := make([]Rule, 0, len(rules))
	for _, r := range rules {
		r.Prefix = "/" + strings.Trim(r.Prefix, "/")
		sorted = append(sorted, r)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Prefix) > len(sorted[j].Prefix)
	})
	return &Router{rules: sorted}
}

// DefaultRules is the application's route table relative to targets.
func DefaultRules(t Targets) []Rule {
	rules := []Rule{
		{Prefix: "/login", Gate: Public},
		{Prefix: "/register", Gate: Public},
		{Prefix: "/forgot-password", Gate: Public},
		{Prefix: "/reset-password", Gate: ResetToken},
		{Prefix: "/admin", Gate: Admin},
		{Prefix: "/home", Gate: Protected},
		{Prefix: "/feed", Gate: Protected},
		{Prefix: "/chat", Gate: Protected},
		{Prefix: "/video", Gate: Protected},
		{Prefix: "/profile", Gate: Protected},
	}
	// Configured entry points keep the gate their role implies.
	for _, extra := range []Rule{
		{Prefix: t.AnonymousEntry, Gate: Public},
		{Prefix: t.AuthenticatedEntry, Gate: Protected},
		{Prefix: t.ResetEntry, Gate: Public},
	} {
		if extra.Prefix != "" && !hasPrefix(rules, extra.Prefix) {
			rules = append(rules, extra)
		}
	}
	return rules
}

func hasPrefix(rules []Rule, prefix string) bool {
	prefix = "/" + strings.Trim(prefix, "/")
	for _, r := range rules {
		if r.Prefix == prefix {
			return true
		}
	}
	return false
}

// Match returns the gate for path, Ungated when no rule matches.
func (r *Router) Match(path string) Gate {
	for _, rule := range r.rules {
		if matches(rule.Prefix, path) {
			return rule.Gate
		}
	}
	return Ungated
}

// Evaluate matches loc and evaluates the gate in one step.
func (r *Router) Evaluate(sess models.Session, loc Location) (Gate, Decision) {
	g := r.Match(loc.Path)
	return g, g.Evaluate(sess, loc)
}

func matches(prefix, path string) bool {
	if prefix == "/" {
		return true
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}
