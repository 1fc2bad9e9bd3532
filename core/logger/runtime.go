package logger

import (
	"context"
	"log/slog"
)

type (
	loggerKey struct{}
	metaKey   struct{}
)

// Meta is the correlation data of the Telegram update being handled. The
// structured handler copies its non-zero fields into every record logged
// with the context.
type Meta struct {
	RID      string
	UpdateID int
	UserID   int64
	ChatID   int64
	Handler  string
	Kind     string
	Schema   string
}

// MetaFrom returns the Meta stored in ctx, or the zero Meta.
func MetaFrom(ctx context.Context) Meta {
	if ctx == nil {
		return Meta{}
	}
	m, _ := ctx.Value(metaKey{}).(Meta)
	return m
}

func withMeta(ctx context.Context, fn func(*Meta)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	m := MetaFrom(ctx)
	fn(&m)
	return context.WithValue(ctx, metaKey{}, m)
}

// WithLogger stores log in ctx. A nil log leaves ctx unchanged.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, log)
}

// FromContext returns the logger stored in ctx, falling back to L.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return l
		}
	}
	return L
}

// WithRID sets the correlation id.
func WithRID(ctx context.Context, rid string) context.Context {
	return withMeta(ctx, func(m *Meta) { m.RID = rid })
}

// WithUpdateMeta sets the update, user and chat identifiers.
func WithUpdateMeta(ctx context.Context, updateID int, userID, chatID int64) context.Context {
	return withMeta(ctx, func(m *Meta) {
		m.UpdateID = updateID
		m.UserID = userID
		m.ChatID = chatID
	})
}

// WithHandler sets the name of the handler serving the update.
func WithHandler(ctx context.Context, handler string) context.Context {
	return withMeta(ctx, func(m *Meta) {
		if handler != "" {
			m.Handler = handler
		}
	})
}

// WithRoute sets the matched route kind and, for action routes, the
// callback schema name.
func WithRoute(ctx context.Context, kind, schema string) context.Context {
	return withMeta(ctx, func(m *Meta) {
		if kind != "" {
			m.Kind = kind
		}
		if schema != "" {
			m.Schema = schema
		}
	})
}

func RIDFrom(ctx context.Context) string     { return MetaFrom(ctx).RID }
func HandlerFrom(ctx context.Context) string { return MetaFrom(ctx).Handler }
func UserIDFrom(ctx context.Context) int64   { return MetaFrom(ctx).UserID }
func ChatIDFrom(ctx context.Context) int64   { return MetaFrom(ctx).ChatID }
func UpdateIDFrom(ctx context.Context) int   { return MetaFrom(ctx).UpdateID }

// RouteFrom returns the values stored by WithRoute.
func RouteFrom(ctx context.Context) (kind, schema string) {
	m := MetaFrom(ctx)
	return m.Kind, m.Schema
}
