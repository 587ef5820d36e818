// Package throttle admits or rejects send requests against configured
// quota ceilings. The accountant keeps absolute counters over an
// accounting window plus a token-bucket limiter for burst smoothing.
//
// # Contract
//
// IsMessageQuotaAvailable is called before any transport I/O and must not
// consume quota on its own: a rejected request leaves the counters exactly
// as they were. IncrementCounters is called once per admitted request,
// after fan-out, regardless of per-channel outcomes. The check and the
// later increment are not one atomic step: requests admitted concurrently
// are counted only on completion, so a ceiling may be overshot by the
// volume in flight.
package throttle

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/opensearch-project/notifications-sub002/internal/settings"
)

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	WindowStart time.Time
	Requests    int
	Messages    int
	Emails      int
}

// Accountant tracks send volume against the throttle settings snapshot.
// Safe for concurrent use.
type Accountant struct {
	holder *settings.Holder

	mu          sync.Mutex
	windowStart time.Time
	requests    int
	messages    int
	emails      int
	limiter     *rate.Limiter
	limiterRPM  int

	now func() time.Time
}

// New builds an accountant reading ceilings from holder on every call, so
// settings updates take effect without restarting.
func New(holder *settings.Holder) *Accountant {
	a := &Accountant{
		holder: holder,
		now:    time.Now,
	}
	a.windowStart = a.now()
	return a
}

// rollWindowLocked resets the counters when the accounting window elapsed.
func (a *Accountant) rollWindowLocked(cfg settings.ThrottleSettings) {
	if cfg.WindowMinutes <= 0 {
		return
	}
	window := time.Duration(cfg.WindowMinutes) * time.Minute
	if a.now().Sub(a.windowStart) >= window {
		a.windowStart = a.now()
		a.requests = 0
		a.messages = 0
		a.emails = 0
	}
}

// limiterLocked lazily builds the rate limiter and rebuilds it when the
// configured rate changed.
func (a *Accountant) limiterLocked(cfg settings.ThrottleSettings) *rate.Limiter {
	if cfg.RequestsPerMinute <= 0 {
		a.limiter = nil
		a.limiterRPM = 0
		return nil
	}
	if a.limiter == nil || a.limiterRPM != cfg.RequestsPerMinute {
		a.limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), cfg.RequestsPerMinute)
		a.limiterRPM = cfg.RequestsPerMinute
	}
	return a.limiter
}

// IsMessageQuotaAvailable reports whether a request that would send
// proposedMessages more messages fits within every configured ceiling.
// A zero ceiling never rejects. The burst limiter token is consumed only
// when all absolute ceilings pass, so a quota-rejected request does not
// also burn rate budget. The ceilings count completed requests; a request
// admitted here holds no reservation until IncrementCounters runs.
func (a *Accountant) IsMessageQuotaAvailable(proposedMessages int) bool {
	cfg := a.holder.Current().Throttle

	a.mu.Lock()
	defer a.mu.Unlock()
	a.rollWindowLocked(cfg)

	if cfg.MaxRequests > 0 && a.requests+1 > cfg.MaxRequests {
		return false
	}
	if cfg.MaxMessages > 0 && a.messages+proposedMessages > cfg.MaxMessages {
		return false
	}
	if l := a.limiterLocked(cfg); l != nil && !l.Allow() {
		return false
	}
	return true
}

// IncrementCounters records one completed request that attempted messages
// sends, emails of which were email deliveries.
func (a *Accountant) IncrementCounters(messages, emails int) {
	cfg := a.holder.Current().Throttle

	a.mu.Lock()
	defer a.mu.Unlock()
	a.rollWindowLocked(cfg)
	a.requests++
	a.messages += messages
	a.emails += emails
}

// Counters returns a copy of the current counters.
func (a *Accountant) Counters() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Snapshot{
		WindowStart: a.windowStart,
		Requests:    a.requests,
		Messages:    a.messages,
		Emails:      a.emails,
	}
}

// Reset zeroes all counters and starts a fresh window.
func (a *Accountant) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.windowStart = a.now()
	a.requests = 0
	a.messages = 0
	a.emails = 0
	a.limiter = nil
	a.limiterRPM = 0
}
