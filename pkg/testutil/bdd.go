// Package testutil provides shared helpers for handler, middleware and
// scenario tests.
package testutil

import "testing"

// phase runs fn as a subtest named after the phase. A failed phase stops the
// scenario; later phases would only report consequences of the first failure.
func phase(t *testing.T, name, desc string, fn func(t *testing.T)) {
	t.Helper()
	if !t.Run(name+" "+desc, fn) {
		t.FailNow()
	}
}

// Given sets up scenario state.
func Given(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	phase(t, "Given", desc, fn)
}

// When performs the action under test.
func When(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	phase(t, "When", desc, fn)
}

// Then checks the outcome.
func Then(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	phase(t, "Then", desc, fn)
}
