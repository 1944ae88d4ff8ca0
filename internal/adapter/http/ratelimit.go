package http

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL    = 10 * time.Minute
	limiterMaxClients = 10000
)

// ipLimiter hands out one token bucket per client IP. Idle buckets are
// swept when a new client arrives and the table has grown past sweepAt
// entries. The table never holds more than maxClients buckets; the least
// recently seen one is evicted to make room.
type ipLimiter struct {
	limit      rate.Limit
	burst      int
	sweepAt    int
	maxClients int

	mu      sync.Mutex
	clients map[string]*client
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(perSecond float64, burst int) *ipLimiter {
	return &ipLimiter{
		limit:      rate.Limit(perSecond),
		burst:      burst,
		sweepAt:    1024,
		maxClients: limiterMaxClients,
		clients:    make(map[string]*client),
	}
}

// Allow reports whether ip may make a request now.
func (l *ipLimiter) Allow(ip string) bool {
	return l.allowAt(ip, time.Now())
}

func (l *ipLimiter) allowAt(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.clients[ip]
	if !ok {
		if len(l.clients) >= l.sweepAt {
			l.sweep(now)
		}
		if len(l.clients) >= l.maxClients {
			l.evictOldest()
		}
		c = &client{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

func (l *ipLimiter) sweep(now time.Time) {
	for k, c := range l.clients {
		if now.Sub(c.lastSeen) > limiterIdleTTL {
			delete(l.clients, k)
		}
	}
}

func (l *ipLimiter) evictOldest() {
	var (
		oldestKey string
		oldest    time.Time
	)
	for k, c := range l.clients {
		if oldestKey == "" || c.lastSeen.Before(oldest) {
			oldestKey, oldest = k, c.lastSeen
		}
	}
	delete(l.clients, oldestKey)
}
