package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/kilobot/core/logger"
	"github.com/m3rciful/kilobot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var acks atomic.Pointer[sender.Dispatcher]

// SetDispatcher routes Answer calls through d. Nil makes them synchronous.
func SetDispatcher(d *sender.Dispatcher) {
	acks.Store(d)
}

// Answer acknowledges the callback query in c without waiting for the Bot
// API when a dispatcher is set. A full or closed queue degrades to an
// inline call. Updates without a callback are ignored.
func Answer(c tele.Context, resp ...*tele.CallbackResponse) error {
	if c == nil || c.Callback() == nil {
		return nil
	}
	run := func() error { return c.Respond(resp...) }

	d := acks.Load()
	if d == nil {
		return run()
	}
	ctx := BuildContext(c)
	err := d.Enqueue(ctx, "callback.ack", "answerCallbackQuery", run)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sender.ErrQueueFull), errors.Is(err, sender.ErrQueueClosed):
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", "callback.ack"),
			slog.String("err", err.Error()),
		)
		return run()
	}
	return err
}
