package router

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/m3rciful/kilobot/core/logger"
	tg "github.com/m3rciful/kilobot/core/telegram"
	tghelpers "github.com/m3rciful/kilobot/core/telegram/helpers"
	"github.com/m3rciful/kilobot/core/telegram/metrics"
	"github.com/m3rciful/kilobot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// dispatch runs h under name and emits one handler.handled line for it.
func dispatch(c tele.Context, name string, start time.Time, h tele.HandlerFunc, extras ...slog.Attr) error {
	tghelpers.WithHandler(c, name)
	err := h(c)
	status := "ok"
	if err != nil {
		status = "fail"
	}
	summarize(c, name, status, start, err, extras...)
	return err
}

// skipped records an update that no handler took.
func skipped(c tele.Context, name string, start time.Time, extras ...slog.Attr) {
	summarize(c, name, "skip", start, nil, extras...)
}

func summarize(c tele.Context, name, status string, start time.Time, err error, extras ...slog.Attr) {
	took := time.Since(start)
	metrics.ObserveHandled(name, status, took)

	outcome := "ok"
	if err != nil {
		outcome = "fail"
	}
	msgs, kb := middleware.GetCounters(c)
	attrs := append([]slog.Attr{
		slog.String("status", status),
		slog.String("outcome", outcome),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Duration("duration", took),
	}, extras...)
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", errorCode(err)),
		)
	}
	logger.Info(tghelpers.WithHandler(c, name), "tg", "handler.handled", attrs...)
}

// errorCode prefers an explicit Code() and falls back to the error type
// name, upper-cased.
func errorCode(err error) string {
	if err == nil {
		return ""
	}
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		if code := strings.TrimSpace(coded.Code()); code != "" {
			return upperSnake(code)
		}
	}
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return "UNKNOWN_ERROR"
	}
	return upperSnake(t.Name())
}

func upperSnake(s string) string {
	return strings.ToUpper(strings.ReplaceAll(s, " ", "_"))
}

func withRoute(c tele.Context, w *tg.WiredRoute) {
	tghelpers.WithRoute(c, w.Kind.String(), w.Schema)
}

// guard applies the shared per-route middleware.
func guard(h tele.HandlerFunc) tele.HandlerFunc {
	return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
}
