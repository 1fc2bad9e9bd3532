package recipebot

import (
	"bytes"

	tg "github.com/m3rciful/kilobot/core/telegram"
	"github.com/m3rciful/kilobot/core/telegram/format"
	"github.com/m3rciful/kilobot/core/telegram/router"

	tele "gopkg.in/telebot.v4"
)

// Admin holds operator commands.
type Admin struct{ bot *Bot }

func (a Admin) Routes() []*tg.Registration {
	return []*tg.Registration{
		tg.OnCommand("routes", a.routes, tg.AdminOnly(), tg.Hidden(), tg.WithDescription("Show wired routes")),
	}
}

func (a Admin) routes(c tele.Context) error {
	var buf bytes.Buffer
	if err := router.WriteTable(&buf, a.bot.reg); err != nil {
		return err
	}
	return a.bot.sendText(c, "<pre>"+format.HTML(buf.String())+"</pre>")
}
