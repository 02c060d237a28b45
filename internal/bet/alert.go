package bet

import (
	"sync"
	"time"
)

// Alerts holds the current transient user-facing message. A posted message
// replaces the previous one and clears itself after the TTL; posting again
// cancels the pending clear.
type Alerts struct {
	mu      sync.Mutex
	ttl     time.Duration
	current string
	timer   *time.Timer
}

// NewAlerts builds an Alerts store with the given auto-dismiss TTL.
func NewAlerts(ttl time.Duration) *Alerts {
	if ttl <= 0 {
		ttl = 1200 * time.Millisecond
	}
	return &Alerts{ttl: ttl}
}

// Post sets the current message and schedules its dismissal.
func (a *Alerts) Post(message string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.timer != nil {
		a.timer.Stop()
	}
	a.current = message
	a.timer = time.AfterFunc(a.ttl, func() {
		a.mu.Lock()
		if a.current == message {
			a.current = ""
		}
		a.mu.Unlock()
	})
}

// Current returns the message on display, or "" if none.
func (a *Alerts) Current() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// Close cancels any pending dismissal.
func (a *Alerts) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}
