package server

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	msgTooManyAttempts = "Too many attempts. Please wait a moment and try again."

	visitorIdleTime = 10 * time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// SignInLimiter throttles credential and registration submissions per remote address.
type SignInLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rps      rate.Limit
	burst    int
	nowTime  func() time.Time
}

func NewSignInLimiter(rps float64, burst int) *SignInLimiter {
	return &SignInLimiter{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
		nowTime:  time.Now,
	}
}

// Allow reports whether the key may submit now.
func (l *SignInLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowTime()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// Cleanup forgets keys idle for longer than maxIdle.
func (l *SignInLimiter) Cleanup(maxIdle time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.nowTime()
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > maxIdle {
			delete(l.visitors, key)
		}
	}
}

// StartJanitor runs Cleanup every minute until ctx is done.
func (l *SignInLimiter) StartJanitor(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Cleanup(visitorIdleTime)
			}
		}
	}()
}

// Limiter returns the sign in limiter, nil when rate limiting is disabled.
func (s *Server) Limiter() *SignInLimiter {
	return s.limiter
}

// RateLimitMiddleware rejects submissions over the configured rate.
func (s *Server) RateLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil {
			next(w, r)
			return
		}
		ip := remoteIP(r)
		if !s.limiter.Allow(ip) {
			log.Warn().Str("remote", ip).Str("path", r.URL.Path).Msg("Rate limit exceeded")
			w.Header().Set("Retry-After", "5")
			redirectWithError(w, r, pageFor(r.URL.Path), msgTooManyAttempts)
			return
		}
		next(w, r)
	}
}

func remoteIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = strings.TrimSuffix(strings.TrimPrefix(r.RemoteAddr, "["), "]")
	}
	return ip
}

// pageFor maps a form submission path to the page that shows its errors.
func pageFor(path string) string {
	if strings.HasPrefix(path, RouteSignup) {
		return RouteSignup
	}
	return RouteLogin
}
