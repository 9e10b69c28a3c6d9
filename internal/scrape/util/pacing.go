package util

import (
	"context"
	"math/rand"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HostLimiter rate-limits per hostname (boards-api.greenhouse.io,
// api.lever.co, etc). One limiter per host, created on first use.
type HostLimiter struct {
	mu    sync.Mutex
	hosts map[string]*rate.Limiter
	limit rate.Limit
	burst int
}

func NewHostLimiter(reqPerSec float64, burst int) *HostLimiter {
	return &HostLimiter{
		hosts: make(map[string]*rate.Limiter),
		limit: rate.Limit(reqPerSec),
		burst: burst,
	}
}

func (hl *HostLimiter) limiterFor(host string) *rate.Limiter {
	hl.mu.Lock()
	defer hl.mu.Unlock()

	lim, ok := hl.hosts[host]
	if !ok {
		lim = rate.NewLimiter(hl.limit, hl.burst)
		hl.hosts[host] = lim
	}
	return lim
}

// WaitURL blocks until the limiter for the URL's host allows another request.
// Unparseable URLs share one fallback bucket.
func (hl *HostLimiter) WaitURL(ctx context.Context, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return hl.limiterFor("_").Wait(ctx)
	}
	return hl.limiterFor(u.Host).Wait(ctx)
}

// Pause sleeps a random duration in [min, max]. Used between consecutive
// detail fetches as backpressure against the upstream site.
func Pause(ctx context.Context, min, max time.Duration) error {
	if max < min {
		max = min
	}
	d := min
	if max > min {
		d += time.Duration(rand.Int63n(int64(max - min + 1)))
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
