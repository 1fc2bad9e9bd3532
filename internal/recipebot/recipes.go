package recipebot

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tg "github.com/m3rciful/kilobot/core/telegram"
	"github.com/m3rciful/kilobot/core/telegram/action"
	"github.com/m3rciful/kilobot/core/telegram/callbacks"
	"github.com/m3rciful/kilobot/core/telegram/format"
	tghelpers "github.com/m3rciful/kilobot/core/telegram/helpers"
	"github.com/m3rciful/kilobot/core/telegram/middleware"
	"github.com/m3rciful/kilobot/core/telegram/page"
	"github.com/m3rciful/kilobot/core/telegram/recovery"
	"github.com/m3rciful/kilobot/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

// ActionType selects what a recipe button does.
type ActionType int

const (
	ShowRecipe ActionType = iota + 1
	LikeRecipe
)

func (a ActionType) String() string {
	switch a {
	case ShowRecipe:
		return "show_recipe"
	case LikeRecipe:
		return "like_recipe"
	}
	return ""
}

// Owner is the author of a recipe list.
type Owner int

const (
	Daniel Owner = iota + 1
	Angela
)

func (o Owner) String() string {
	switch o {
	case Daniel:
		return "daniel"
	case Angela:
		return "angela"
	}
	return ""
}

// Title is the display form of the owner name.
func (o Owner) Title() string {
	s := o.String()
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Actions holds the callback schemas behind the recipe buttons.
type Actions struct {
	// Single is sent by the buttons of one recipe.
	Single *action.Schema
	// List opens the recipe list of an owner.
	List *action.Schema
}

// NewActions builds the recipe schemas. An empty sep keeps the default
// token separator.
func NewActions(sep string) (Actions, error) {
	var opts []action.SchemaOption
	if sep != "" {
		opts = append(opts, action.WithSeparator(sep))
	}
	single, err := action.NewSchema("single_recipe", []action.Field{
		action.Enum("action_type", ShowRecipe, LikeRecipe),
		action.String("recipe_title"),
	}, opts...)
	if err != nil {
		return Actions{}, fmt.Errorf("recipebot: %w", err)
	}
	list, err := action.NewSchema("list_recipes", []action.Field{
		action.Enum("owner", Daniel, Angela),
	}, opts...)
	if err != nil {
		return Actions{}, fmt.Errorf("recipebot: %w", err)
	}
	return Actions{Single: single, List: list}, nil
}

// StateAwaitTitle is the add-recipe dialog step waiting for a title.
const StateAwaitTitle state.State = "recipe.await_title"

var catalogue = []struct{ label, title string }{
	{"Menemen", "Fantastic Menemen"},
	{"Cheeseburger", "Classic Cheeseburger"},
	{"Poke", "Salmon Poke"},
}

// Recipes handles the recipe menu and its buttons.
type Recipes struct{ bot *Bot }

func (r Recipes) Routes() []*tg.Registration {
	return []*tg.Registration{
		tg.OnCommand("recipe_menu", r.menu, tg.WithDescription("Recipe menu")),
		tg.OnCommand("recipe_last", r.last, tg.WithDescription("Last viewed recipe")),
		tg.OnCommand("recipe_add", r.add, tg.WithDescription("Add a recipe")),
		tg.OnCommand("cancel", middleware.State(r.bot.fsm, StateAwaitTitle)(r.cancel), tg.WithDescription("Cancel the current dialog")),
		tg.OnAction(r.bot.actions.Single, r.single, tg.WithName("recipe.single")),
		tg.OnAction(r.bot.actions.List.MustWhen(action.Values{"owner": Angela}), r.listOf(Angela), tg.WithName("recipe.list.angela")),
		tg.OnAction(r.bot.actions.List.MustWhen(action.Values{"owner": Daniel}), r.listOf(Daniel), tg.WithName("recipe.list.daniel")),
	}
}

// ErrorPolicy answers bad callback tokens instead of failing silently.
func (r Recipes) ErrorPolicy() recovery.Policy {
	return recovery.Named("recipes.bad_action", recovery.As[*action.Error]{
		Message: func(*action.Error) recovery.Message {
			return recovery.Message{Text: "This button is outdated, open /recipe_menu again."}
		},
	})
}

func (r Recipes) menu(c tele.Context) error {
	p := &page.Page{
		Body: page.Body{Text: "Main Recipe Menu"},
		Keyboard: &page.Keyboard{
			RowWidth: 2,
			Buttons: []page.Button{
				page.ActionButton{Text: "Angela's Recipes", Action: r.bot.actions.List.MustNew(action.Values{"owner": Angela})},
				page.ActionButton{Text: "Daniel's Recipes", Action: r.bot.actions.List.MustNew(action.Values{"owner": Daniel})},
			},
		},
	}
	return r.bot.sendPage(c, p)
}

// listPage lists the catalogue of an owner.
func (r Recipes) listPage(owner Owner) *page.Page {
	specs := make([]page.Spec, 0, len(catalogue))
	for _, item := range catalogue {
		specs = append(specs, page.Spec{
			Text:   item.label,
			Action: r.bot.actions.Single.MustNew(action.Values{"action_type": ShowRecipe, "recipe_title": item.title}),
		})
	}
	return page.Simple(format.V2("List of recipes from "+owner.Title()), specs...)
}

func (r Recipes) listOf(owner Owner) tele.HandlerFunc {
	return func(c tele.Context) error {
		return r.bot.sendPage(c, r.listPage(owner))
	}
}

func (r Recipes) single(c tele.Context) error {
	a, err := callbacks.Decode(c, r.bot.actions.Single)
	if err != nil {
		return err
	}
	ctx := tghelpers.BuildContext(c)
	if err := state.SaveCurrentAction(ctx, r.bot.store, recovery.Recipient(c), a); err != nil {
		return err
	}

	kind, _ := action.Lookup[ActionType](a, "action_type")
	title, _ := action.Lookup[string](a, "recipe_title")
	var p *page.Page
	switch kind {
	case ShowRecipe:
		like, err := a.Clone(action.Values{"action_type": LikeRecipe})
		if err != nil {
			return err
		}
		p = page.Simple(format.V2(fmt.Sprintf("Here is the %q recipe: ...", title)),
			page.Spec{Text: "Like", Action: like, Emoji: "thumbsup"},
		)
	case LikeRecipe:
		r.bot.logEvent(ctx, "recipe.liked", slog.String("payload", title))
		p = page.Simple(format.V2(fmt.Sprintf("Liked the %q recipe", title)))
	default:
		return fmt.Errorf("recipebot: unsupported action %v", kind)
	}
	return r.bot.sendPage(c, p)
}

func (r Recipes) last(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	a, err := state.LoadCurrentAction(ctx, r.bot.store, recovery.Recipient(c), r.bot.actions.Single, false)
	if errors.Is(err, state.ErrNoCurrentAction) {
		return r.bot.sendText(c, "No recipe viewed yet. Try /recipe_menu")
	}
	if err != nil {
		return err
	}
	title, _ := action.Lookup[string](a, "recipe_title")
	show := a.MustClone(action.Values{"action_type": ShowRecipe})
	return r.bot.sendPage(c, page.Simple(format.V2("Last recipe: "+title),
		page.Spec{Text: "Open", Action: show},
	))
}

func (r Recipes) add(c tele.Context) error {
	r.bot.fsm.SetState(recovery.Recipient(c), StateAwaitTitle)
	return r.bot.sendText(c, "Send me the recipe title, or /cancel.")
}

// cancel only runs inside the add-recipe dialog.
func (r Recipes) cancel(c tele.Context) error {
	r.bot.fsm.ClearState(recovery.Recipient(c))
	return r.bot.sendText(c, "Cancelled.")
}

// saveTitle is the StateAwaitTitle step of the add-recipe dialog.
func (b *Bot) saveTitle(c tele.Context) error {
	uid := recovery.Recipient(c)
	title := strings.TrimSpace(c.Text())
	if title == "" {
		return b.sendText(c, "The title cannot be empty.")
	}

	a, err := b.actions.Single.New(action.Values{"action_type": ShowRecipe, "recipe_title": title})
	if errors.Is(err, action.ErrSeparatorInValue) {
		return b.sendText(c, fmt.Sprintf("The title cannot contain %q.", b.actions.Single.Separator()))
	}
	if err != nil {
		return err
	}
	limit := b.maxDataBytes
	if limit <= 0 {
		limit = action.MaxCallbackDataBytes
	}
	if len(a.MustClone(action.Values{"action_type": LikeRecipe}).Serialize()) > limit {
		return b.sendText(c, "The title is too long, try a shorter one.")
	}

	b.fsm.ClearState(uid)
	b.logEvent(tghelpers.BuildContext(c), "recipe.added", slog.String("payload", title))
	return b.sendPage(c, page.Simple(format.V2("Saved "+title),
		page.Spec{Text: "Show", Action: a},
	))
}
