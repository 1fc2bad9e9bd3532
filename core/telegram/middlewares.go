package telegram

import (
	"time"

	coreconfig "github.com/m3rciful/kilobot/core/config"
	tghelpers "github.com/m3rciful/kilobot/core/telegram/helpers"
	"github.com/m3rciful/kilobot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// DefaultMiddlewares builds the global chain installed before any route:
// panic recovery, the optional per-user rate limit, update logging and reply
// counters. A nil onLimited answers limited callbacks so the client stops
// spinning; limited messages are dropped silently.
func DefaultMiddlewares(cfg *coreconfig.Config, onLimited tele.HandlerFunc) []Middleware {
	mws := []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
	}
	if rl, ok := rateLimit(cfg, onLimited); ok {
		mws = append(mws, rl)
	}
	return append(mws,
		Middleware{Name: "logger", Use: middleware.LoggerMiddleware},
		Middleware{Name: "metrics", Use: middleware.MessageMetricsMiddleware},
	)
}

func rateLimit(cfg *coreconfig.Config, onLimited tele.HandlerFunc) (Middleware, bool) {
	if cfg == nil || cfg.RateLimit.IntervalMS <= 0 {
		return Middleware{}, false
	}
	// Exclusions are lowercased by config.Normalize.
	exclude := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
	for _, kind := range cfg.RateLimit.ExcludeUpdates {
		exclude[kind] = struct{}{}
	}
	if onLimited == nil {
		onLimited = func(c tele.Context) error { return tghelpers.Answer(c) }
	}
	return Middleware{
		Name: "rate_limit",
		Use: middleware.RateLimitMiddleware(middleware.RateLimitOptions{
			Interval:  time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond,
			Exclude:   exclude,
			OnLimited: onLimited,
		}),
	}, true
}

// MiddlewareNames lists chain entries in installation order.
func MiddlewareNames(mws []Middleware) []string {
	names := make([]string, 0, len(mws))
	for _, mw := range mws {
		if mw.Use != nil {
			names = append(names, mw.Name)
		}
	}
	return names
}
