package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"warbler/internal/metrics"
	"warbler/internal/store"
)

type requestIDKey struct{}

// requestID tags each request with an ID, reusing an incoming X-Request-ID.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// logger returns the server logger annotated with the request ID.
func (s *server) logger(r *http.Request) *zap.Logger {
	if id, ok := r.Context().Value(requestIDKey{}).(string); ok {
		return s.log.With(zap.String("request_id", id))
	}
	return s.log
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// instrument logs each request and records Prometheus metrics for it.
func (s *server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := routeTemplate(r)
		elapsed := time.Since(start)
		metrics.HTTPRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())

		s.logger(r).Info("Request handled",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("route", route),
			zap.Int("status", rec.status),
			zap.Duration("duration", elapsed))
	})
}

// noCache disables caching of every response.
func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate, public, max-age=0")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")
		next.ServeHTTP(w, r)
	})
}

// loadUser puts the logged-in user into the request context. A session that
// points at a deleted user is treated as logged out.
func (s *server) loadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.session(r).Values[currUserKey].(int64)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		u, err := s.store.UserByID(r.Context(), id)
		switch {
		case errors.Is(err, store.ErrNotFound):
			s.doLogout(w, r)
		case err != nil:
			s.serverError(w, r, err)
			return
		default:
			r = r.WithContext(withCurrentUser(r.Context(), u))
		}
		next.ServeHTTP(w, r)
	})
}

// requireLogin redirects anonymous visitors home with an error flash.
func (s *server) requireLogin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if currentUser(r) == nil {
			s.addFlash(w, r, "danger", "Access unauthorized.")
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		next(w, r)
	}
}

// --- Rate limiting ---

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter keeps one token bucket per client IP. At most maxEntries buckets
// are kept; idle ones are pruned first, then the least recently seen.
type ipLimiter struct {
	mu         sync.Mutex
	entries    map[string]*limiterEntry
	limit      rate.Limit
	burst      int
	ttl        time.Duration
	maxEntries int
	clock      clockwork.Clock
}

func newIPLimiter(perSecond float64, burst int, clock clockwork.Clock) *ipLimiter {
	return &ipLimiter{
		entries:    make(map[string]*limiterEntry),
		limit:      rate.Limit(perSecond),
		burst:      burst,
		ttl:        10 * time.Minute,
		maxEntries: 10000,
		clock:      clock,
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	e, ok := l.entries[ip]
	if !ok {
		if len(l.entries) >= l.maxEntries {
			l.prune(now)
		}
		if len(l.entries) >= l.maxEntries {
			l.evictOldest()
		}
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[ip] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

func (l *ipLimiter) prune(now time.Time) {
	for ip, e := range l.entries {
		if now.Sub(e.lastSeen) > l.ttl {
			delete(l.entries, ip)
		}
	}
}

func (l *ipLimiter) evictOldest() {
	var oldestIP string
	var oldest time.Time
	for ip, e := range l.entries {
		if oldestIP == "" || e.lastSeen.Before(oldest) {
			oldestIP, oldest = ip, e.lastSeen
		}
	}
	delete(l.entries, oldestIP)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// rateLimitPost throttles form submissions per client IP. GETs pass through.
func (s *server) rateLimitPost(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && !s.authLimiter.allow(clientIP(r)) {
			metrics.AuthRateLimited.Inc()
			s.logger(r).Warn("Auth attempt rate limited", zap.String("ip", clientIP(r)))
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}
