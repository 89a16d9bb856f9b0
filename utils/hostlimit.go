package utils

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HostLimiter keeps one token bucket per host so that concurrent callers
// never exceed the configured request rate against the same host.
type HostLimiter struct {
	every time.Duration
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHostLimiter allows one request per `every` per host. A non-positive
// interval disables limiting.
func NewHostLimiter(every time.Duration, burst int) *HostLimiter {
	if burst < 1 {
		burst = 1
	}
	return &HostLimiter{
		every:    every,
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (h *HostLimiter) limiter(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()

	l, ok := h.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Every(h.every), h.burst)
		h.limiters[host] = l
	}
	return l
}

// Wait blocks until a request to rawURL's host is allowed.
func (h *HostLimiter) Wait(ctx context.Context, rawURL string) error {
	if h == nil || h.every <= 0 {
		return nil
	}
	return h.limiter(hostOf(rawURL)).Wait(ctx)
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return strings.ToLower(u.Hostname())
}
