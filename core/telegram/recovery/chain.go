package recovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/m3rciful/kilobot/core/logger"
	tghelpers "github.com/m3rciful/kilobot/core/telegram/helpers"
	"github.com/m3rciful/kilobot/core/telegram/metrics"
	"github.com/m3rciful/kilobot/core/telegram/page"

	tele "gopkg.in/telebot.v4"
)

// ErrNoDeliverer is returned when a policy produced a message but the
// chain has nowhere to send it.
var ErrNoDeliverer = errors.New("recovery: no deliverer")

// Deliverer sends recovery messages to a user.
type Deliverer interface {
	SendText(ctx context.Context, userID int64, text string) error
	SendPage(ctx context.Context, userID int64, p *page.Page) error
}

// PanicError carries a value recovered from a panicking handler.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }

// Code implements the log error-code contract.
func (e *PanicError) Code() string { return "PANIC" }

// Unwrap exposes a panicked error value.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Chain offers a handler fault to Policies in order.
type Chain struct {
	Name      string
	Policies  []Policy
	Deliverer Deliverer
}

// NewChain builds a chain and drops nil policies.
func NewChain(name string, d Deliverer, policies ...Policy) Chain {
	ps := make([]Policy, 0, len(policies))
	for _, p := range policies {
		if p != nil {
			ps = append(ps, p)
		}
	}
	return Chain{Name: name, Policies: ps, Deliverer: d}
}

// Handle runs fault through the policies. It returns nil when a policy
// answered and the answer was delivered, a wrapped delivery error when the
// answer could not be sent, and fault itself when nobody answered.
func (ch Chain) Handle(ctx context.Context, userID int64, fault error) error {
	if fault == nil {
		return nil
	}
	for _, p := range ch.Policies {
		if p == nil {
			continue
		}
		msg, ok := p.ProduceMessage(fault)
		if !ok || msg.Empty() {
			continue
		}
		policy := Name(p)
		if err := ch.deliver(ctx, userID, msg); err != nil {
			logger.Error(ctx, "tg.recovery", "recovery.delivery_failed",
				slog.String("status", "fail"),
				slog.String("handler", ch.Name),
				slog.String("policy", policy),
				slog.String("cause", logger.SanitizeLimit(fault.Error(), 256)),
				slog.String("err", err.Error()),
			)
			return fmt.Errorf("recovery %s: %w", ch.Name, err)
		}
		metrics.ObserveRecovered(ch.Name, policy)
		logger.Info(ctx, "tg.recovery", "recovery.handled",
			slog.String("status", "ok"),
			slog.String("handler", ch.Name),
			slog.String("policy", policy),
			slog.String("err", logger.SanitizeLimit(fault.Error(), 256)),
		)
		return nil
	}

	metrics.ObserveUnhandled(ch.Name)
	logger.Warn(ctx, "tg.recovery", "recovery.unhandled",
		slog.String("status", "fail"),
		slog.String("handler", ch.Name),
		slog.Int("policies", len(ch.Policies)),
		slog.String("err", logger.SanitizeLimit(fault.Error(), 256)),
	)
	return fault
}

func (ch Chain) deliver(ctx context.Context, userID int64, msg Message) error {
	if ch.Deliverer == nil {
		return ErrNoDeliverer
	}
	if msg.Page != nil {
		return ch.Deliverer.SendPage(ctx, userID, msg.Page)
	}
	return ch.Deliverer.SendText(ctx, userID, msg.Text)
}

// Wrap returns h guarded by the chain. Panics are converted to *PanicError
// and go through the same policies as returned errors.
func (ch Chain) Wrap(h tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				pe := &PanicError{Value: r, Stack: debug.Stack()}
				ctx := tghelpers.BuildContext(c)
				logger.Error(ctx, "tg.recovery", "handler.panic",
					slog.String("handler", ch.Name),
					slog.Any("err", r),
					slog.String("stack", string(pe.Stack)),
				)
				err = ch.Handle(ctx, Recipient(c), pe)
			}
		}()
		if herr := h(c); herr != nil {
			return ch.Handle(tghelpers.BuildContext(c), Recipient(c), herr)
		}
		return nil
	}
}

// Recipient resolves the user a recovery message goes to.
func Recipient(c tele.Context) int64 {
	if u := c.Sender(); u != nil {
		return u.ID
	}
	if chat := c.Chat(); chat != nil {
		return chat.ID
	}
	return 0
}
