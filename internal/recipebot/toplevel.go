package recipebot

import (
	"fmt"
	"strings"

	tg "github.com/m3rciful/kilobot/core/telegram"
	"github.com/m3rciful/kilobot/core/telegram/format"

	tele "gopkg.in/telebot.v4"
)

// Toplevel handles greetings and the main menu.
type Toplevel struct{ bot *Bot }

func (t Toplevel) Routes() []*tg.Registration {
	return []*tg.Registration{
		tg.OnCommand("hello", t.hello, tg.WithDescription("Say hello")),
		tg.OnCommand("menu", t.menu, tg.WithDescription("Main menu"), tg.WithAliases("start")),
	}
}

func (t Toplevel) hello(c tele.Context) error {
	return t.bot.sendText(c, fmt.Sprintf("Hello, %s, and thanks for all the fish!", mention(c.Sender())))
}

func (t Toplevel) menu(c tele.Context) error {
	return t.bot.sendText(c, "Main Menu: /hello /cabbage_grow /recipe_menu /recipe_add")
}

// mention renders an HTML link to the user profile.
func mention(u *tele.User) string {
	if u == nil {
		return "stranger"
	}
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		name = u.Username
	}
	if name == "" {
		name = fmt.Sprintf("user %d", u.ID)
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, u.ID, format.HTML(name))
}
