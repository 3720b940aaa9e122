package worker

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter enforces per-client request quotas over a one-minute and a
// one-hour window. Each window is a token bucket whose burst equals its quota.
type Limiter struct {
	mu        sync.Mutex
	clients   map[string]*clientLimiter
	perMinute int
	perHour   int
	now       func() time.Time
}

type clientLimiter struct {
	minute   *rate.Limiter
	hour     *rate.Limiter
	lastSeen time.Time
}

// NewLimiter creates a limiter. A non-positive quota disables that window.
func NewLimiter(perMinute, perHour int) *Limiter {
	return &Limiter{
		clients:   make(map[string]*clientLimiter),
		perMinute: perMinute,
		perHour:   perHour,
		now:       time.Now,
	}
}

// Allow reports whether the client may make a request now. When it may not,
// the second return value is how long the client should wait.
func (l *Limiter) Allow(clientID string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c := l.client(clientID, now)
	c.lastSeen = now

	// Reserve on both windows so a request denied by one does not consume the other
	var reservations []*rate.Reservation
	for _, lim := range []*rate.Limiter{c.minute, c.hour} {
		if lim == nil {
			continue
		}
		reservations = append(reservations, lim.ReserveN(now, 1))
	}

	var wait time.Duration
	for _, r := range reservations {
		if !r.OK() {
			wait = time.Duration(math.MaxInt64)
			break
		}
		if d := r.DelayFrom(now); d > wait {
			wait = d
		}
	}
	if wait == 0 {
		return true, 0
	}

	for _, r := range reservations {
		r.CancelAt(now)
	}
	return false, wait
}

// Prune forgets clients idle for longer than idle
func (l *Limiter) Prune(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-idle)
	removed := 0
	for id, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, id)
			removed++
		}
	}
	return removed
}

// Clients returns the number of tracked clients
func (l *Limiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// client returns the limiter pair for a client; l.mu must be held
func (l *Limiter) client(clientID string, now time.Time) *clientLimiter {
	if c, ok := l.clients[clientID]; ok {
		return c
	}

	c := &clientLimiter{lastSeen: now}
	if l.perMinute > 0 {
		c.minute = rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMinute)), l.perMinute)
	}
	if l.perHour > 0 {
		c.hour = rate.NewLimiter(rate.Every(time.Hour/time.Duration(l.perHour)), l.perHour)
	}
	l.clients[clientID] = c
	return c
}
