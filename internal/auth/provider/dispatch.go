package provider

import (
	"sync"

	"gatehouse/internal/auth/models"
)

// Dispatcher delivers request outcomes to the current Callbacks. After Close
// every delivery is dropped, so late provider callbacks cannot reach a
// torn-down caller.
type Dispatcher struct {
	mu     sync.RWMutex
	cb     Callbacks
	closed bool
}

// Set replaces the callbacks and reopens a closed dispatcher.
func (d *Dispatcher) Set(cb Callbacks) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cb = cb
	d.closed = false
}

func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.cb = Callbacks{}
}

// Emit reports whether the attempt was delivered.
func (d *Dispatcher) Emit(attempt models.AuthAttempt) bool {
	d.mu.RLock()
	fn, closed := d.cb.OnAttempt, d.closed
	d.mu.RUnlock()
	if closed || fn == nil {
		return false
	}
	fn(attempt)
	return true
}

// Fail reports whether the error was delivered.
func (d *Dispatcher) Fail(err error) bool {
	d.mu.RLock()
	fn, closed := d.cb.OnError, d.closed
	d.mu.RUnlock()
	if closed || fn == nil {
		return false
	}
	fn(err)
	return true
}
