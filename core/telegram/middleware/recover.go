package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/m3rciful/kilobot/core/logger"
	tghelpers "github.com/m3rciful/kilobot/core/telegram/helpers"
	"github.com/m3rciful/kilobot/core/telegram/metrics"

	tele "gopkg.in/telebot.v4"
)

// RecoverMiddleware is the last line of defence for panics that escape a
// handler. Wired routes recover through their own policy chain first, so
// reaching this means the chain itself failed. The update is dropped and
// the poller keeps running.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			metrics.ObserveUnhandled("panic")
			logger.Error(tghelpers.BuildContext(c), "tg", "tg.panic",
				slog.String("status", "fail"),
				slog.String("err", logger.SanitizeLimit(fmt.Sprint(r), 256)),
				slog.String("stack", string(debug.Stack())),
			)
			err = nil
		}()
		return next(c)
	}
}
