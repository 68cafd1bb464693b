package ratelimit

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
	"golang.org/x/time/rate"
)

// idleTTL время, после которого лимитер неактивного клиента удаляется
const idleTTL = 5 * time.Minute

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter ограничивает частоту запросов с одного удаленного адреса
type Limiter struct {
	rps      rate.Limit
	burst    int
	onReject func()
	log      *slog.Logger
	now      func() time.Time

	mu        sync.Mutex
	clients   map[string]*client
	lastSweep time.Time
}

// New создает лимитер; rps <= 0 отключает ограничение.
// onReject вызывается на каждый отклоненный запрос (может быть nil)
func New(rps float64, burst int, onReject func(), log *slog.Logger) *Limiter {
	if burst <= 0 {
		burst = 1
	}
	if onReject == nil {
		onReject = func() {}
	}
	return &Limiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		onReject: onReject,
		log:      log.With(slog.String("component", "rate_limiter")),
		now:      time.Now,
		clients:  make(map[string]*client),
	}
}

func (l *Limiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > idleTTL {
		for k, c := range l.clients {
			if now.Sub(c.lastSeen) > idleTTL {
				delete(l.clients, k)
			}
		}
		l.lastSweep = now
	}

	c, ok := l.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// Middleware возвращает huma middleware, отвечающую 429 при превышении лимита
func (l *Limiter) Middleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if l.rps <= 0 {
			next(ctx)
			return
		}

		key := clientKey(ctx.RemoteAddr())
		if l.allow(key) {
			next(ctx)
			return
		}

		l.onReject()
		l.log.Warn("rate limit exceeded", slog.String("remote_addr", key), slog.String("path", ctx.URL().Path))

		ctx.SetHeader("Content-Type", "application/json")
		ctx.SetHeader("Retry-After", "1")
		ctx.SetStatus(http.StatusTooManyRequests)
		if err := json.NewEncoder(ctx.BodyWriter()).Encode(map[string]any{
			"success": false,
			"error":   "too many requests",
		}); err != nil {
			l.log.Error("failed to write response", slog.String("error", err.Error()))
		}
	}
}

func clientKey(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
