// Package page describes outgoing messages: a text body plus an optional
// inline keyboard whose buttons carry callback data built from actions.
package page

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kyokomi/emoji/v2"
	"github.com/m3rciful/kilobot/core/telegram/action"
	"github.com/m3rciful/kilobot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

// ErrCallbackDataTooLong is returned by Render when a button token exceeds the transport limit.
var ErrCallbackDataTooLong = errors.New("page: callback data too long")

// Body is the text part of a page.
type Body struct {
	Text      string
	ParseMode tele.ParseMode
}

// Button is a keyboard button that resolves to callback data.
type Button interface {
	Label() string
	CallbackData() (string, error)
}

// PlainButton carries callback data prepared by the caller.
type PlainButton struct {
	Text  string
	Emoji string
	Data  string
}

func (b PlainButton) Label() string                 { return label(b.Text, b.Emoji) }
func (b PlainButton) CallbackData() (string, error) { return b.Data, nil }

// ActionButton carries the serialized form of an action.
type ActionButton struct {
	Text   string
	Emoji  string
	Action action.Action
}

func (b ActionButton) Label() string { return label(b.Text, b.Emoji) }

func (b ActionButton) CallbackData() (string, error) {
	if b.Action.IsZero() {
		return "", fmt.Errorf("page: button %q has no action", b.Text)
	}
	return b.Action.Serialize(), nil
}

// Keyboard is an inline keyboard attached to a page.
type Keyboard struct {
	Buttons  []Button
	RowWidth int
}

// Page describes the parts of an outgoing message.
type Page struct {
	Body           Body
	Keyboard       *Keyboard
	DisablePreview bool
}

// Spec is a shorthand button description for Simple.
type Spec struct {
	Text   string
	Action action.Action
	Emoji  string
}

// Simple builds a MarkdownV2 page with one action button per row.
func Simple(text string, buttons ...Spec) *Page {
	p := &Page{Body: Body{Text: text, ParseMode: tele.ModeMarkdownV2}}
	if len(buttons) == 0 {
		return p
	}
	kb := &Keyboard{RowWidth: 1}
	for _, b := range buttons {
		kb.Buttons = append(kb.Buttons, ActionButton{Text: b.Text, Emoji: b.Emoji, Action: b.Action})
	}
	p.Keyboard = kb
	return p
}

// Render converts the page into telebot send options. maxBytes bounds the
// callback data of every button; zero means action.MaxCallbackDataBytes.
func Render(p *Page, maxBytes int) (string, *tele.SendOptions, error) {
	if p == nil {
		return "", nil, errors.New("page: nil page")
	}
	if maxBytes <= 0 {
		maxBytes = action.MaxCallbackDataBytes
	}
	parseMode := p.Body.ParseMode
	if parseMode == "" {
		parseMode = tele.ModeMarkdownV2
	}
	opts := &tele.SendOptions{
		ParseMode:             parseMode,
		DisableWebPagePreview: p.DisablePreview,
	}
	if p.Keyboard == nil || len(p.Keyboard.Buttons) == 0 {
		return p.Body.Text, opts, nil
	}

	btns := make([]keyboard.Button, 0, len(p.Keyboard.Buttons))
	for _, b := range p.Keyboard.Buttons {
		data, err := b.CallbackData()
		if err != nil {
			return "", nil, err
		}
		if len(data) > maxBytes {
			return "", nil, fmt.Errorf("%w: %q is %d bytes, limit %d", ErrCallbackDataTooLong, data, len(data), maxBytes)
		}
		btns = append(btns, keyboard.Button{Text: b.Label(), Data: data})
	}
	opts.ReplyMarkup = keyboard.Grid(btns, p.Keyboard.RowWidth)
	return p.Body.Text, opts, nil
}

func label(text, code string) string {
	code = strings.Trim(strings.TrimSpace(code), ":")
	switch {
	case text != "" && code != "":
		return emojize(code) + " " + text
	case code != "":
		return emojize(code)
	}
	return text
}

func emojize(code string) string {
	return strings.TrimSpace(emoji.Sprint(":" + code + ":"))
}
