package telegram

import (
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/crisszkutnik/telegram-bot/core/config"
	"github.com/crisszkutnik/telegram-bot/core/telegram/middleware"
)

// DefaultMiddlewares builds the middleware chain: recover, optional per-user
// rate limit, then request logging.
func DefaultMiddlewares(cfg *coreconfig.Config, onLimited tele.HandlerFunc) []Middleware {
	mws := []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
	}

	if cfg != nil {
		interval := time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond
		if interval > 0 {
			mws = append(mws, Middleware{
				Name: "rate_limit",
				Use: middleware.RateLimitMiddleware(middleware.RateLimitOptions{
					Interval:  interval,
					OnLimited: onLimited,
				}),
			})
		}
	}

	return append(mws, Middleware{Name: "logger", Use: middleware.LoggerMiddleware})
}
