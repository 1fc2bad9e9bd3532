package recipebot

import (
	tele "gopkg.in/telebot.v4"
)

// UnknownText answers text no route matched.
func (b *Bot) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error {
		return b.sendText(c, "I don't know that one. Try /menu")
	}
}

// UnknownDocument answers documents outside of a dialog.
func (b *Bot) UnknownDocument() tele.HandlerFunc {
	return func(c tele.Context) error {
		return b.sendText(c, "Documents are not supported.")
	}
}

// UnknownCallback tells the user a pressed button is stale. The query
// itself was already answered by the callback router.
func (b *Bot) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		if b.ackText == "" {
			return nil
		}
		return b.sendText(c, b.ackText)
	}
}
