package middleware

import (
	"log/slog"

	"github.com/m3rciful/kilobot/core/logger"
	tghelpers "github.com/m3rciful/kilobot/core/telegram/helpers"
	"github.com/m3rciful/kilobot/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

// StateGetter is the minimal interface required from an FSM manager.
type StateGetter interface {
	GetState(userID int64) state.State
}

// State returns a middleware that checks if user is in the expected FSM state.
func State(mgr StateGetter, expected state.State) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil {
				return nil
			}
			current := mgr.GetState(user.ID)
			ctx := tghelpers.BuildContext(c)
			event := "fsm.skip"
			if current == expected {
				event = "fsm.match"
			}
			logger.Debug(ctx, "tg", event,
				slog.Int64("user_id", user.ID),
				slog.String("state", string(current)),
				slog.String("expected", string(expected)),
			)
			if current != expected {
				return nil
			}
			return next(c)
		}
	}
}
