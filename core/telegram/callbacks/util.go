package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// ParseCallbackData returns the telebot unique key and the payload of cb.
// Unique buttons arrive as "\f<unique>|<payload>"; plain action tokens
// have no key and come back whole.
func ParseCallbackData(cb *tele.Callback) (unique, payload string) {
	switch {
	case cb == nil:
		return "", ""
	case cb.Unique != "":
		return cb.Unique, cb.Data
	}
	rest, ok := strings.CutPrefix(cb.Data, "\f")
	if !ok {
		return "", cb.Data
	}
	unique, payload, _ = strings.Cut(rest, "|")
	return strings.TrimSpace(unique), payload
}

// Token returns the callback payload of c that action schemas decode.
func Token(c tele.Context) string {
	_, payload := ParseCallbackData(c.Callback())
	return payload
}
