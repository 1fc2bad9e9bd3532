package recipebot

import (
	"fmt"
	"regexp"

	tg "github.com/m3rciful/kilobot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

var cookRe = regexp.MustCompile(`^/cabbage_cook_(\w+)$`)

// Cabbage handles cabbage commands.
type Cabbage struct{ bot *Bot }

func (cb Cabbage) Routes() []*tg.Registration {
	return []*tg.Registration{
		tg.OnCommand("cabbage_grow", cb.grow, tg.WithDescription("Plant some cabbage")),
		tg.OnRegexp(cookRe.String(), cb.cook, tg.WithName("cabbage.cook")),
	}
}

func (cb Cabbage) grow(c tele.Context) error {
	return cb.bot.sendText(c, "Planted some cabbage")
}

func (cb Cabbage) cook(c tele.Context) error {
	m := cookRe.FindStringSubmatch(c.Text())
	if m == nil {
		return fmt.Errorf("recipebot: unexpected cook command %q", c.Text())
	}
	return cb.bot.sendText(c, fmt.Sprintf("Cooking %s from cabbage", m[1]))
}
