package router

import (
	"log/slog"
	"time"

	tg "github.com/m3rciful/kilobot/core/telegram"
	"github.com/m3rciful/kilobot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures admin checks for command routes.
type CommandRouteOptions struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc
}

// CommandRoutes binds every wired command, aliases included, as a native
// telebot string endpoint. All names of one registration share a handler.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}
	adminOnly := middleware.AdminOnlyMiddleware(middleware.AdminOptions{
		AdminID:  opts.AdminID,
		OnReject: opts.OnAdminReject,
	})

	var routes []tg.Route
	for _, w := range reg.RoutesFor(tg.EventMessage, tg.MatchCommand) {
		h := func(c tele.Context) error {
			return dispatch(c, w.Name, time.Now(), w.Handler, slog.String("cmd", c.Text()))
		}
		if w.AdminOnly {
			h = adminOnly(h)
		}
		h = guard(h)
		for _, cmd := range w.Commands {
			routes = append(routes, tg.Route{Endpoint: cmd, Handler: h})
		}
	}
	return routes
}
