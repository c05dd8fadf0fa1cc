package http

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"

	"github.com/jhoicas/farmacia-pos-api/internal/application/dto"
)

// limiterIdle tiempo sin tráfico tras el cual se descarta el limitador de una farmacia.
const limiterIdle = 10 * time.Minute

type tenantLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit limita las peticiones por minuto de cada farmacia (token bucket con ráfaga igual al límite).
// Debe ir después de AuthMiddleware; sin claims agrupa por IP.
func RateLimit(perMinute int) fiber.Handler {
	if perMinute <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	var (
		mu       sync.Mutex
		limiters = map[string]*tenantLimiter{}
		swept    = time.Now()
	)
	every := rate.Every(time.Minute / time.Duration(perMinute))

	get := func(key string, now time.Time) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		if now.Sub(swept) > limiterIdle {
			for k, l := range limiters {
				if now.Sub(l.lastSeen) > limiterIdle {
					delete(limiters, k)
				}
			}
			swept = now
		}
		l, ok := limiters[key]
		if !ok {
			l = &tenantLimiter{limiter: rate.NewLimiter(every, perMinute)}
			limiters[key] = l
		}
		l.lastSeen = now
		return l.limiter
	}

	return func(c *fiber.Ctx) error {
		key := GetPharmacyID(c)
		if key == "" {
			key = "ip:" + c.IP()
		}
		if !get(key, time.Now()).Allow() {
			c.Set(fiber.HeaderRetryAfter, "60")
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{Code: "RATE_LIMITED", Message: "demasiadas peticiones"})
		}
		return c.Next()
	}
}
