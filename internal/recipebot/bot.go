// Package recipebot is a small demonstration bot: top-level greetings,
// cabbage commands, recipe buttons driven by callback actions and
// handlers that exercise the error recovery chain.
package recipebot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m3rciful/kilobot/core/logger"
	tg "github.com/m3rciful/kilobot/core/telegram"
	tghelpers "github.com/m3rciful/kilobot/core/telegram/helpers"
	"github.com/m3rciful/kilobot/core/telegram/page"
	"github.com/m3rciful/kilobot/core/telegram/recovery"
	"github.com/m3rciful/kilobot/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

// Deps are the collaborators the bot needs at construction time.
type Deps struct {
	// FSM tracks the add-recipe dialog.
	FSM state.Manager
	// Store keeps the last recipe action per user. Nil falls back to FSM.
	Store        state.Store
	MaxDataBytes int
	AckText      string
	// Separator splits callback tokens. Empty keeps the default.
	Separator string
}

// Bot owns the demonstration components.
type Bot struct {
	fsm          state.Manager
	store        state.Store
	maxDataBytes int
	ackText      string
	actions      Actions

	out recovery.Deliverer
	reg *tg.Registry
}

// New builds the bot. Bind must be called before updates arrive.
func New(deps Deps) (*Bot, error) {
	actions, err := NewActions(deps.Separator)
	if err != nil {
		return nil, err
	}
	fsm := deps.FSM
	if fsm == nil {
		fsm = state.NewMemoryManager()
	}
	store := deps.Store
	if store == nil {
		store = fsm
	}
	b := &Bot{
		fsm:          fsm,
		store:        store,
		maxDataBytes: deps.MaxDataBytes,
		ackText:      deps.AckText,
		actions:      actions,
	}
	fsm.Handle(StateAwaitTitle, b.saveTitle)
	return b, nil
}

// Bind attaches the outbound messenger and the wired registry.
func (b *Bot) Bind(out recovery.Deliverer, reg *tg.Registry) {
	b.out = out
	b.reg = reg
}

// Actions returns the callback schemas the recipe buttons use.
func (b *Bot) Actions() Actions { return b.actions }

// FSM returns the dialog manager consulted by the text router.
func (b *Bot) FSM() state.Manager { return b.fsm }

// Components lists the handler groups in wiring order.
func (b *Bot) Components() []tg.Component {
	return []tg.Component{
		Toplevel{bot: b},
		Cabbage{bot: b},
		Recipes{bot: b},
		Errors{bot: b},
		Admin{bot: b},
	}
}

func (b *Bot) sendText(c tele.Context, text string) error {
	if b.out == nil {
		return fmt.Errorf("recipebot: messenger not bound")
	}
	return b.out.SendText(tghelpers.BuildContext(c), recovery.Recipient(c), text)
}

func (b *Bot) sendPage(c tele.Context, p *page.Page) error {
	if b.out == nil {
		return fmt.Errorf("recipebot: messenger not bound")
	}
	return b.out.SendPage(tghelpers.BuildContext(c), recovery.Recipient(c), p)
}

func (b *Bot) logEvent(ctx context.Context, event string, attrs ...slog.Attr) {
	logger.Info(ctx, "recipebot", event, attrs...)
}
