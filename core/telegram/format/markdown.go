// Package format escapes user-visible text for Telegram parse modes.
package format

import (
	"fmt"
	"html"
	"strings"

	tele "gopkg.in/telebot.v4"
)

const (
	specialsV1 = "_*`["
	specialsV2 = "_*[]()~`>#+-=|{}.!\\"
)

// Escape makes text render literally under mode.
func Escape(text string, mode tele.ParseMode) (string, error) {
	switch mode {
	case tele.ModeMarkdown:
		return escapeRunes(text, specialsV1), nil
	case tele.ModeMarkdownV2:
		return escapeRunes(text, specialsV2), nil
	case tele.ModeHTML:
		return HTML(text), nil
	case tele.ModeDefault:
		return text, nil
	}
	return "", fmt.Errorf("format: unsupported parse mode %q", mode)
}

// V2 escapes text for MarkdownV2 page bodies.
func V2(text string) string {
	return escapeRunes(text, specialsV2)
}

// HTML escapes text for HTML message bodies.
func HTML(text string) string {
	return html.EscapeString(text)
}

func escapeRunes(text, specials string) string {
	if !strings.ContainsAny(text, specials) {
		return text
	}
	var b strings.Builder
	b.Grow(len(text) + 8)
	for _, r := range text {
		if strings.ContainsRune(specials, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
