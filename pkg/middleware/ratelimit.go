package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/flexireact/flexi"
)

// RateLimitConfig configures the per-client rate limiter.
type RateLimitConfig struct {
	// Rate is the sustained requests per second per client.
	Rate rate.Limit

	// Burst is the short-term burst allowance per client.
	Burst int

	// KeyFunc derives the client key. Defaults to the remote IP.
	KeyFunc func(ctx *flexi.Context) string

	// SweepInterval is how often idle client entries are dropped.
	// Default: 5 minutes.
	SweepInterval time.Duration
}

// RateLimitOption configures the rate limiter.
type RateLimitOption func(*RateLimitConfig)

// WithRate sets the sustained rate and burst.
func WithRate(r rate.Limit, burst int) RateLimitOption {
	return func(c *RateLimitConfig) {
		c.Rate = r
		c.Burst = burst
	}
}

// WithKeyFunc sets the client key derivation.
func WithKeyFunc(fn func(ctx *flexi.Context) string) RateLimitOption {
	return func(c *RateLimitConfig) {
		c.KeyFunc = fn
	}
}

// clientLimiter pairs a limiter with its last use for idle sweeping.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit returns route middleware enforcing a per-client token bucket.
// Clients over the limit get a 429 with a Retry-After hint.
//
// Example:
//
//	app.Use(middleware.RateLimit(middleware.WithRate(10, 30)))
func RateLimit(opts ...RateLimitOption) flexi.Middleware {
	config := RateLimitConfig{
		Rate:          10,
		Burst:         20,
		SweepInterval: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(&config)
	}
	if config.KeyFunc == nil {
		config.KeyFunc = remoteIP
	}

	var (
		mu        sync.Mutex
		clients   = make(map[string]*clientLimiter)
		lastSweep = time.Now()
	)

	return flexi.Middleware{
		Name: "ratelimit",
		Handler: func(ctx *flexi.Context) flexi.Outcome {
			key := config.KeyFunc(ctx)

			mu.Lock()
			now := time.Now()
			if now.Sub(lastSweep) > config.SweepInterval {
				for k, c := range clients {
					if now.Sub(c.lastSeen) > config.SweepInterval {
						delete(clients, k)
					}
				}
				lastSweep = now
			}

			client, ok := clients[key]
			if !ok {
				client = &clientLimiter{limiter: rate.NewLimiter(config.Rate, config.Burst)}
				clients[key] = client
			}
			client.lastSeen = now
			allowed := client.limiter.Allow()
			mu.Unlock()

			if allowed {
				return flexi.Continue()
			}

			headers := http.Header{}
			headers.Set("Retry-After", "1")
			return flexi.Respond(http.StatusTooManyRequests, headers, []byte("rate limit exceeded"))
		},
	}
}

// remoteIP extracts the client IP from the request.
func remoteIP(ctx *flexi.Context) string {
	host, _, err := net.SplitHostPort(ctx.Request().RemoteAddr)
	if err != nil {
		return ctx.Request().RemoteAddr
	}
	return host
}
