package main

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// MiddlewareFunc is a custom type for ease of use.
type MiddlewareFunc func(httprouter.Handle) httprouter.Handle

// Middlewares is a custom type to represent a stack of
// middleware functions used to build a single chain.
type Middlewares []MiddlewareFunc

// MiddlewaresStacks returns the public-facing and the ops middlewares stacks.
func (api *APIHandler) MiddlewaresStacks() (*Middlewares, *Middlewares) {
	public := &Middlewares{
		api.PanicRecoveryMiddleware,
		api.RequestsCounterMiddleware,
		api.RequestIDMiddleware,
		api.StatsMiddleware,
		api.CoreMiddleware,
		CORSMiddleware,
		api.MaintenanceModeMiddleware,
		api.RateLimitMiddleware,
	}

	ops := &Middlewares{
		api.PanicRecoveryMiddleware,
		api.RequestsCounterMiddleware,
		api.RequestIDMiddleware,
		api.StatsMiddleware,
		api.CoreMiddleware,
		CORSMiddleware,
	}
	return public, ops
}

// CoreMiddleware setup the duration measurement for each request and logs its result.
func (api *APIHandler) CoreMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		start := api.clock.Now()
		logger := api.GetLoggerFromContext(r.Context())
		logger.Info(
			"request",
			zap.String("request.method", r.Method),
			zap.String("request.path", r.URL.Path),
			zap.String("request.ip", GetRequestSourceIP(r)),
			zap.String("request.agent", r.UserAgent()),
			zap.String("request.referer", r.Referer()),
		)

		next(w, r, ps)
		logger.Info(
			"request",
			zap.String("request.method", r.Method),
			zap.String("request.path", r.URL.Path),
			zap.Duration("request.duration", api.clock.Now().Sub(start)),
		)
	}
}

// RequestsCounterMiddleware increments the number of received requests statistics and add this
// new value to the request context to be used during logging as `request.num` field.
func (api *APIHandler) RequestsCounterMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), RequestNumberContextKey, atomic.AddUint64(&api.stats.called, 1))
		r = r.WithContext(ctx)
		next(w, r, ps)
	}
}

// RequestIDMiddleware adds a unique id to the request context and to the response headers.
// A valid id sent by the caller is reused. It also stores a logger scoped to that request.
func (api *APIHandler) RequestIDMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		requestID := r.Header.Get(RequestIDHeader)
		if !api.idsHandler.IsValid(requestID, RequestIDPrefix) {
			requestID = api.idsHandler.Generate(RequestIDPrefix)
		}
		w.Header().Set(RequestIDHeader, requestID)
		logger := api.logger.With(
			zap.String("request.id", requestID),
			zap.Uint64("request.num", GetRequestNumberFromContext(r.Context())),
		)
		ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)
		ctx = context.WithValue(ctx, LoggerContextKey, logger)
		r = r.WithContext(ctx)
		next(w, r, ps)
	}
}

// StatsMiddleware records the status code of each response.
func (api *APIHandler) StatsMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		cw := NewStatusRecorder(w)
		next(cw, r, ps)
		api.stats.mu.Lock()
		api.stats.status[cw.Status()]++
		api.stats.mu.Unlock()
	}
}

// CORSMiddleware intercepts each incoming HTTP calls then apply cors headers on it.
func CORSMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, HEAD")
		w.Header().Set("Access-Control-Allow-Headers", "Origin, Access-Control-Request-Method, Access-Control-Request-Headers, Accept, Content-Type, Content-Length, Accept-Encoding, X-Request-ID, Authorization, User-Agent, Accept-Language, Referer, Cache-Control")
		next(w, r, ps)
	}
}

// MaintenanceModeMiddleware answers every public request with the maintenance
// message as long as the maintenance mode is enabled.
func (api *APIHandler) MaintenanceModeMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if api.mode.enabled.Load() {
			api.Maintenance(w, r, httprouter.Params{httprouter.Param{Key: "status", Value: "show"}})
			return
		}
		next(w, r, ps)
	}
}

// PanicRecoveryMiddleware catches any panic during the request lifecycle and produces
// an error log for further analysis. It sends a failure response to the client with 500.
func (api *APIHandler) PanicRecoveryMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		recovery := func() {
			if err := recover(); err != nil {
				requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
				api.logger.Error("panic occurred", zap.String("request.id", requestID), zap.Any("error", err))
				errResp := NewAPIError(requestID, http.StatusInternalServerError, "failed to process the request.", EmptyData)
				if err := WriteJSON(r.Context(), w, errResp.Status, errResp); err != nil {
					api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
				}
			}
		}
		defer recovery()
		next(w, r, ps)
	}
}

// visitor is the token bucket of one caller and the last time it was used.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// IPRateLimiter keeps one token bucket per caller IP. The caller IP is the
// connection peer, unless that peer is a trusted proxy in which case the
// forwarding headers are honored.
type IPRateLimiter struct {
	visitors sync.Map
	rate     rate.Limit
	burst    int
	trusted  []*net.IPNet
	clock    Clocker
}

// NewIPRateLimiter creates a limiter allowing `r` requests per second
// with bursts of at most `burst` requests for each source IP.
func NewIPRateLimiter(r float64, burst int, trusted []*net.IPNet, clock Clocker) *IPRateLimiter {
	return &IPRateLimiter{
		rate:    rate.Limit(r),
		burst:   burst,
		trusted: trusted,
		clock:   clock,
	}
}

// ClientIP returns the key used to limit the request.
func (l *IPRateLimiter) ClientIP(r *http.Request) string {
	peer := GetRequestPeerIP(r)
	if !l.isTrusted(peer) {
		return peer
	}
	if ip := GetRequestSourceIP(r); ip != "" {
		return ip
	}
	return peer
}

func (l *IPRateLimiter) isTrusted(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, n := range l.trusted {
		if n.Contains(parsed) {
			return true
		}
	}
	return false
}

// GetLimiter returns the rate limiter for a given IP and marks it as used.
func (l *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	v, ok := l.visitors.Load(ip)
	if !ok {
		v, _ = l.visitors.LoadOrStore(ip, &visitor{limiter: rate.NewLimiter(l.rate, l.burst)})
	}
	vis := v.(*visitor)
	vis.lastSeen.Store(l.clock.Now().UnixNano())
	return vis.limiter
}

// Len returns the number of tracked callers.
func (l *IPRateLimiter) Len() int {
	n := 0
	l.visitors.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

// Sweep drops the callers not seen for at least idle and returns how many were dropped.
func (l *IPRateLimiter) Sweep(idle time.Duration) int {
	cutoff := l.clock.Now().Add(-idle).UnixNano()
	dropped := 0
	l.visitors.Range(func(key, v interface{}) bool {
		if v.(*visitor).lastSeen.Load() <= cutoff {
			l.visitors.Delete(key)
			dropped++
		}
		return true
	})
	return dropped
}

// Run sweeps idle callers every idle period until the context is done.
func (l *IPRateLimiter) Run(ctx context.Context, logger *zap.Logger, idle time.Duration) error {
	ticker := time.NewTicker(idle)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("rate limiter: sweeper: context is done: exit", zap.String("reason", ctx.Err().Error()))
			return nil
		case <-ticker.C:
			if n := l.Sweep(idle); n > 0 {
				logger.Debug("rate limiter: idle callers dropped", zap.Int("count", n), zap.Int("remaining", l.Len()))
			}
		}
	}
}

// RateLimitMiddleware rejects with 429 the requests of a caller which
// exhausted its allowance. It is a no-op when rate limiting is disabled.
func (api *APIHandler) RateLimitMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if api.limiter == nil {
			next(w, r, ps)
			return
		}
		ip := api.limiter.ClientIP(r)
		if !api.limiter.GetLimiter(ip).Allow() {
			w.Header().Set("Retry-After", retryAfter(api.limiter.rate))
			api.sendError(w, r, http.StatusTooManyRequests, "too many requests. please retry later.", EmptyData, zap.String("request.ip", ip))
			return
		}
		next(w, r, ps)
	}
}

// retryAfter gives the number of seconds to wait for a new token.
func retryAfter(limit rate.Limit) string {
	if limit <= 0 {
		return "60"
	}
	wait := time.Duration(float64(time.Second) / float64(limit))
	secs := int(wait.Seconds())
	if wait > time.Duration(secs)*time.Second {
		secs++
	}
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// Chain wraps a given httprouter.Handle with a list of middlewares.
// It does by starting from the last middleware from the list.
func (m *Middlewares) Chain(h httprouter.Handle) httprouter.Handle {
	if len(*m) == 0 {
		return h
	}
	lg := len(*m)
	handle := (*m)[lg-1](h)

	for i := lg - 2; i >= 0; i-- {
		handle = (*m)[i](handle)
	}

	return handle
}
