// Package helpers keeps the per-update log context on tele.Context and
// acknowledges callback queries.
package helpers

import (
	"context"

	"github.com/m3rciful/kilobot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// Keys shared with the middleware package through tele.Context storage.
const (
	contextKey = "logger_ctx"
	ridKey     = "rid"
)

// StoreContext caches ctx on c for later helpers of the same update.
func StoreContext(c tele.Context, ctx context.Context) {
	if c != nil && ctx != nil {
		c.Set(contextKey, ctx)
	}
}

// ContextFrom returns the context cached by StoreContext.
func ContextFrom(c tele.Context) (context.Context, bool) {
	if c == nil {
		return nil, false
	}
	ctx, ok := c.Get(contextKey).(context.Context)
	return ctx, ok && ctx != nil
}

// BuildContext returns the log context of the update in c, creating and
// caching it on first use. A nil c yields a bare background context.
func BuildContext(c tele.Context) context.Context {
	if c == nil {
		return logger.WithLogger(context.Background(), logger.Component("tg"))
	}
	if cached, ok := ContextFrom(c); ok {
		return cached
	}
	ctx := fresh(c)
	StoreContext(c, ctx)
	return ctx
}

func fresh(c tele.Context) context.Context {
	var userID, chatID int64
	if u := c.Sender(); u != nil {
		userID = u.ID
	}
	if chat := c.Chat(); chat != nil {
		chatID = chat.ID
	}
	updateID := c.Update().ID

	rid, _ := c.Get(ridKey).(string)
	if rid == "" {
		rid = logger.BuildRID(updateID, chatID, userID)
	}
	ctx := logger.WithUpdateMeta(logger.WithRID(context.Background(), rid), updateID, userID, chatID)
	return logger.WithLogger(ctx, logger.Component("tg"))
}

// amend applies fn to the cached context and caches the result.
func amend(c tele.Context, fn func(context.Context) context.Context) context.Context {
	ctx := fn(BuildContext(c))
	StoreContext(c, ctx)
	return ctx
}

// WithHandler records the handler name on the cached context.
func WithHandler(c tele.Context, handler string) context.Context {
	if handler == "" {
		return BuildContext(c)
	}
	return amend(c, func(ctx context.Context) context.Context {
		return logger.WithHandler(ctx, handler)
	})
}

// WithRoute records the matched route kind and callback schema so later
// log lines of the update carry them.
func WithRoute(c tele.Context, kind, schema string) context.Context {
	return amend(c, func(ctx context.Context) context.Context {
		return logger.WithRoute(ctx, kind, schema)
	})
}
