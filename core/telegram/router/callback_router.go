package router

import (
	"log/slog"
	"time"

	"github.com/m3rciful/kilobot/core/logger"
	tg "github.com/m3rciful/kilobot/core/telegram"
	"github.com/m3rciful/kilobot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/kilobot/core/telegram/helpers"
	"github.com/m3rciful/kilobot/core/telegram/metrics"
	"github.com/m3rciful/kilobot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions customises callback acknowledgement and fallbacks.
type CallbackOptions struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc
	NotFound      tele.HandlerFunc
	// Ack answers the callback query before routing. Nil queues a bare
	// answer on the shared dispatcher.
	Ack tele.HandlerFunc
}

// CallbackRoute returns the OnCallback handler. The raw callback data is
// matched against wired action and regexp routes in wiring order.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	var routes []*tg.WiredRoute
	if reg != nil {
		for _, w := range reg.Routes() {
			if w.Event == tg.EventCallback {
				routes = append(routes, w)
			}
		}
	}
	ack := opts.Ack
	if ack == nil {
		ack = func(c tele.Context) error { return tghelpers.Answer(c) }
	}
	adminOnly := middleware.AdminOnlyMiddleware(middleware.AdminOptions{
		AdminID:  opts.AdminID,
		OnReject: opts.OnAdminReject,
	})

	handler := func(c tele.Context) error {
		start := time.Now()
		if c.Callback() == nil {
			return nil
		}

		token := callbacks.Token(c)
		extras := []slog.Attr{slog.String("cb_key", logger.SanitizeLimit(token, 128))}

		if err := ack(c); err != nil {
			logger.Debug(tghelpers.BuildContext(c), "tg", "callback.ack_failed", slog.String("err", err.Error()))
		}

		for _, w := range routes {
			if !w.Match(token) {
				continue
			}
			h := w.Handler
			if w.AdminOnly {
				h = adminOnly(h)
			}
			withRoute(c, w)
			return dispatch(c, w.Name, start, h, extras...)
		}

		metrics.ObserveUnmatched("callback")
		fallback := opts.NotFound
		if reg != nil && reg.CallbackNotFound() != nil {
			fallback = reg.CallbackNotFound()
		}
		extras = append(extras, slog.String("reason", "not_found"))
		if fallback == nil {
			skipped(c, "callback.not_found", start, extras...)
			return nil
		}
		return dispatch(c, "callback.not_found", start, fallback, extras...)
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  guard(handler),
	}
}
