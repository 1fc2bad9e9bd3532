// Package messenger delivers text and pages to users over telebot.
package messenger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/kilobot/core/logger"
	"github.com/m3rciful/kilobot/core/telegram/page"
	"github.com/m3rciful/kilobot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// ErrDelivery matches every *DeliveryError.
var ErrDelivery = errors.New("messenger: delivery failed")

// DeliveryError reports a failed outbound call.
type DeliveryError struct {
	UserID int64
	Op     string
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("messenger: %s to %d: %v", e.Op, e.UserID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrDelivery) hold for any delivery failure.
func (e *DeliveryError) Is(target error) bool { return target == ErrDelivery }

// Code implements the log error-code contract.
func (e *DeliveryError) Code() string { return "DELIVERY_ERROR" }

// Sender is the subset of *tele.Bot used for delivery.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Telebot sends through a telebot Sender. When Dispatcher is set, every call
// runs through its retry policy.
type Telebot struct {
	Bot          Sender
	Dispatcher   *sender.Dispatcher
	MaxDataBytes int
}

// New returns a messenger over bot.
func New(bot Sender, d *sender.Dispatcher, maxDataBytes int) *Telebot {
	return &Telebot{Bot: bot, Dispatcher: d, MaxDataBytes: maxDataBytes}
}

// SendText sends HTML-formatted text.
func (m *Telebot) SendText(ctx context.Context, userID int64, text string) error {
	opts := &tele.SendOptions{ParseMode: tele.ModeHTML}
	return m.send(ctx, userID, "send.text", text, opts)
}

// SendPage renders p and sends it.
func (m *Telebot) SendPage(ctx context.Context, userID int64, p *page.Page) error {
	text, opts, err := page.Render(p, m.MaxDataBytes)
	if err != nil {
		return &DeliveryError{UserID: userID, Op: "send.page", Err: err}
	}
	return m.send(ctx, userID, "send.page", text, opts)
}

func (m *Telebot) send(ctx context.Context, userID int64, op, text string, opts *tele.SendOptions) error {
	if m == nil || m.Bot == nil {
		return &DeliveryError{UserID: userID, Op: op, Err: errors.New("no bot")}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	run := func() error {
		_, err := m.Bot.Send(tele.ChatID(userID), text, opts)
		return err
	}

	var err error
	if m.Dispatcher != nil {
		err = m.Dispatcher.Run(ctx, op, "sendMessage", run)
	} else {
		err = run()
	}
	if err != nil {
		logger.Warn(ctx, "tg.messenger", op,
			slog.String("status", "fail"),
			slog.Int64("user_id", userID),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return &DeliveryError{UserID: userID, Op: op, Err: err}
	}
	return nil
}
