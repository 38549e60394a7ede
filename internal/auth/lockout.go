package auth

import (
	"sync"
	"time"
)

// LockoutPolicy says how many bad credentials a client may send before
// the write routes stop answering it.
type LockoutPolicy struct {
	MaxFailures int           // failures within Window that lock the client out
	Window      time.Duration // failures older than this are forgotten
	Duration    time.Duration // how long a locked client is refused
}

func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{
		MaxFailures: 5,
		Window:      15 * time.Minute,
		Duration:    30 * time.Minute,
	}
}

// Lockout counts rejected basic auth attempts per client address and
// username. Stale entries are pruned when new failures arrive, so there is
// no background goroutine to stop.
type Lockout struct {
	policy LockoutPolicy
	now    func() time.Time

	mu        sync.Mutex
	clients   map[string]*failures
	lastPrune time.Time
}

type failures struct {
	count       int
	since       time.Time
	lockedUntil time.Time
}

// NewLockout fills zero fields of policy from DefaultLockoutPolicy.
func NewLockout(policy LockoutPolicy) *Lockout {
	def := DefaultLockoutPolicy()
	if policy.MaxFailures <= 0 {
		policy.MaxFailures = def.MaxFailures
	}
	if policy.Window <= 0 {
		policy.Window = def.Window
	}
	if policy.Duration <= 0 {
		policy.Duration = def.Duration
	}
	return &Lockout{
		policy:  policy,
		now:     time.Now,
		clients: make(map[string]*failures),
	}
}

func attemptKey(ip, username string) string {
	return ip + "\x00" + username
}

// Remaining returns how long ip/username stays locked out; 0 means the
// attempt may proceed.
func (l *Lockout) Remaining(ip, username string) time.Duration {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	f, ok := l.clients[attemptKey(ip, username)]
	if !ok {
		return 0
	}
	if wait := f.lockedUntil.Sub(now); wait > 0 {
		return wait
	}
	return 0
}

// Fail records a rejected attempt. It returns the lockout this failure
// started, or 0 when the client is still under the limit.
func (l *Lockout) Fail(ip, username string) time.Duration {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune(now)

	key := attemptKey(ip, username)
	f, ok := l.clients[key]
	if !ok || now.Sub(f.since) > l.policy.Window {
		f = &failures{since: now}
		l.clients[key] = f
	}

	f.count++
	if f.count < l.policy.MaxFailures {
		return 0
	}

	// The count starts over once the lockout ends.
	f.count = 0
	f.since = now
	f.lockedUntil = now.Add(l.policy.Duration)
	return l.policy.Duration
}

// Reset forgets ip/username after a successful login.
func (l *Lockout) Reset(ip, username string) {
	l.mu.Lock()
	delete(l.clients, attemptKey(ip, username))
	l.mu.Unlock()
}

// prune drops entries that are neither locked nor inside the window.
// Caller holds l.mu.
func (l *Lockout) prune(now time.Time) {
	if now.Sub(l.lastPrune) < l.policy.Window {
		return
	}
	l.lastPrune = now
	for key, f := range l.clients {
		if now.After(f.lockedUntil) && now.Sub(f.since) > l.policy.Window {
			delete(l.clients, key)
		}
	}
}
