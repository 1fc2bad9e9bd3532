// Package ui declares the handlers a bot supplies for updates no route claims.
package ui

import tele "gopkg.in/telebot.v4"

// FallbackProvider is implemented by bots with custom replies for
// unmatched text, unexpected documents and unknown callback tokens.
// A nil handler keeps the router default.
type FallbackProvider interface {
	UnknownText() tele.HandlerFunc
	UnknownDocument() tele.HandlerFunc
	UnknownCallback() tele.HandlerFunc
}

// Fallbacks adapts plain handlers to FallbackProvider.
type Fallbacks struct {
	Text     tele.HandlerFunc
	Document tele.HandlerFunc
	Callback tele.HandlerFunc
}

func (f Fallbacks) UnknownText() tele.HandlerFunc     { return f.Text }
func (f Fallbacks) UnknownDocument() tele.HandlerFunc { return f.Document }
func (f Fallbacks) UnknownCallback() tele.HandlerFunc { return f.Callback }
