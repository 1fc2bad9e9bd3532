package middleware

import tele "gopkg.in/telebot.v4"

const tallyKey = "reply_tally"

// replyTally counts what a handler sent back for one update.
type replyTally struct {
	messages int
	keyboard bool
}

func (t *replyTally) record(err error, opts []any) error {
	if err != nil {
		return err
	}
	t.messages++
	t.keyboard = t.keyboard || carriesMarkup(opts)
	return nil
}

func carriesMarkup(opts []any) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		}
	}
	return false
}

// countingContext tallies successful outgoing calls made through it.
// Edits count as replies.
type countingContext struct {
	tele.Context
	tally *replyTally
}

func (c countingContext) Send(what any, opts ...any) error {
	return c.tally.record(c.Context.Send(what, opts...), opts)
}

func (c countingContext) Reply(what any, opts ...any) error {
	return c.tally.record(c.Context.Reply(what, opts...), opts)
}

func (c countingContext) Edit(what any, opts ...any) error {
	return c.tally.record(c.Context.Edit(what, opts...), opts)
}

func (c countingContext) EditOrSend(what any, opts ...any) error {
	return c.tally.record(c.Context.EditOrSend(what, opts...), opts)
}

func (c countingContext) EditOrReply(what any, opts ...any) error {
	return c.tally.record(c.Context.EditOrReply(what, opts...), opts)
}

// MessageMetricsMiddleware lets the handler summary report how many
// messages a handler produced and whether any carried a keyboard.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		tally, ok := c.Get(tallyKey).(*replyTally)
		if !ok {
			tally = &replyTally{}
			c.Set(tallyKey, tally)
		}
		return next(countingContext{Context: c, tally: tally})
	}
}

// GetCounters returns the message count and keyboard flag recorded for the
// update in c.
func GetCounters(c tele.Context) (messages int, keyboard bool) {
	if t, ok := c.Get(tallyKey).(*replyTally); ok {
		return t.messages, t.keyboard
	}
	return 0, false
}
