package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	appErr "github.com/buildbuddy/engine/pkg/errors"
	"golang.org/x/time/rate"
)

type limiterEntry struct {
	limiter *rate.Limiter
	last    time.Time
}

// visitors holds one token bucket per client address.
type visitors struct {
	mu      sync.Mutex
	rps     rate.Limit
	burst   int
	entries map[string]*limiterEntry
}

func (v *visitors) allow(ip string, now time.Time) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	le, ok := v.entries[ip]
	if !ok {
		le = &limiterEntry{limiter: rate.NewLimiter(v.rps, v.burst)}
		v.entries[ip] = le
	}
	le.last = now
	return le.limiter.AllowN(now, 1)
}

func (v *visitors) sweep(idle time.Duration, now time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for k, e := range v.entries {
		if now.Sub(e.last) > idle {
			delete(v.entries, k)
		}
	}
}

func getIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit applies an IP-based token bucket limiter. Generation endpoints
// are expensive, so the API mounts this with a low rate.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	v := &visitors{rps: rate.Limit(rps), burst: burst, entries: map[string]*limiterEntry{}}
	go func() {
		t := time.NewTicker(5 * time.Minute)
		defer t.Stop()
		for now := range t.C {
			v.sweep(10*time.Minute, now)
		}
	}()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !v.allow(getIP(r), time.Now()) {
				w.Header().Set("Retry-After", "1")
				writeError(w, r, appErr.New(appErr.CodeUnavailable, "too many requests, slow down"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
