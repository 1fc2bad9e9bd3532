package router

import (
	"time"

	tg "github.com/m3rciful/kilobot/core/telegram"
	"github.com/m3rciful/kilobot/core/telegram/metrics"
	"github.com/m3rciful/kilobot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// FSM is the part of a state manager the text router needs.
type FSM interface {
	InProgress(userID int64) bool
	ManagerHandler(c tele.Context) error
}

// TextOptions sets admin checks and the fallbacks for text and documents.
// Registry fallbacks take precedence over UnknownText.
type TextOptions struct {
	AdminID         int64
	OnAdminReject   tele.HandlerFunc
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

// textRouter resolves one text or document update.
type textRouter struct {
	fsm       FSM
	reg       *tg.Registry
	opts      TextOptions
	routes    []*tg.WiredRoute
	adminOnly tele.MiddlewareFunc
}

// TextRoutes builds the OnText and OnDocument handlers. A user inside a
// dialog goes to the FSM first; otherwise text goes to the first matching
// regexp route in wiring order, then to the fallback.
func TextRoutes(fsm FSM, reg *tg.Registry, opts TextOptions) []tg.Route {
	r := &textRouter{fsm: fsm, reg: reg, opts: opts}
	r.adminOnly = middleware.AdminOnlyMiddleware(middleware.AdminOptions{
		AdminID:  opts.AdminID,
		OnReject: opts.OnAdminReject,
	})
	if reg != nil {
		r.routes = reg.RoutesFor(tg.EventMessage, tg.MatchRegexp)
	}
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: guard(r.text)},
		{Endpoint: tele.OnDocument, Handler: guard(r.document)},
	}
}

func (r *textRouter) inDialog(c tele.Context) bool {
	u := c.Sender()
	return r.fsm != nil && u != nil && r.fsm.InProgress(u.ID)
}

func (r *textRouter) text(c tele.Context) error {
	start := time.Now()
	if r.inDialog(c) {
		return dispatch(c, "fsm", start, r.fsm.ManagerHandler)
	}

	text := c.Text()
	for _, w := range r.routes {
		if !w.Match(text) {
			continue
		}
		h := w.Handler
		if w.AdminOnly {
			h = r.adminOnly(h)
		}
		withRoute(c, w)
		return dispatch(c, w.Name, start, h)
	}

	metrics.ObserveUnmatched("message")
	fallback := r.opts.UnknownText
	if r.reg != nil && r.reg.TextFallback() != nil {
		fallback = r.reg.TextFallback()
	}
	if fallback == nil {
		skipped(c, "unknown_text", start)
		return nil
	}
	return dispatch(c, "unknown_text", start, fallback)
}

func (r *textRouter) document(c tele.Context) error {
	start := time.Now()
	switch {
	case r.inDialog(c):
		return dispatch(c, "fsm_document", start, r.fsm.ManagerHandler)
	case r.opts.UnknownDocument != nil:
		return dispatch(c, "unexpected_document", start, r.opts.UnknownDocument)
	}
	skipped(c, "unexpected_document", start)
	return nil
}
