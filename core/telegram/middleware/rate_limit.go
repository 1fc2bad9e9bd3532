package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/kilobot/core/logger"
	tghelpers "github.com/m3rciful/kilobot/core/telegram/helpers"
	"github.com/m3rciful/kilobot/core/telegram/metrics"

	tele "gopkg.in/telebot.v4"
)

// RateLimitOptions configures RateLimitMiddleware. Exclude holds update
// kinds ("message", "callback", "inline_query", "other") that bypass the
// limit.
type RateLimitOptions struct {
	Interval  time.Duration
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
}

type throttle struct {
	interval time.Duration
	mu       sync.Mutex
	last     map[int64]time.Time
}

// admit records a hit for userID unless the previous one is too recent.
func (t *throttle) admit(userID int64, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.last[userID]; ok && now.Sub(prev) < t.interval {
		return false
	}
	t.last[userID] = now
	return true
}

func updateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return "callback"
	case upd.Message != nil:
		return "message"
	case upd.Query != nil:
		return "inline_query"
	}
	return "other"
}

// RateLimitMiddleware drops updates from a user that arrive less than
// Interval after the previous admitted one. Rejected updates go to
// OnLimited and never reach next.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	t := &throttle{interval: opts.Interval, last: make(map[int64]time.Time)}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || t.interval <= 0 {
				return next(c)
			}
			kind := updateKind(c.Update())
			if _, skip := opts.Exclude[kind]; skip {
				return next(c)
			}
			if t.admit(user.ID, time.Now()) {
				return next(c)
			}

			metrics.ObserveHandled("rate_limit", "rate_limited", 0)
			logger.Warn(tghelpers.BuildContext(c), "tg", "tg.rate_limit",
				slog.String("status", "rate_limited"),
				slog.String("update", kind),
			)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}
