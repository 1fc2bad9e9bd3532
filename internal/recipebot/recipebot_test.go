package recipebot

import (
	"context"
	"testing"

	tg "github.com/m3rciful/kilobot/core/telegram"
	"github.com/m3rciful/kilobot/core/telegram/action"
	"github.com/m3rciful/kilobot/core/telegram/page"
	"github.com/m3rciful/kilobot/core/telegram/router"
	"github.com/m3rciful/kilobot/core/telegram/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tele "gopkg.in/telebot.v4"
)

const uid = int64(77)

type outbox struct {
	texts []string
	pages []*page.Page
}

func (o *outbox) SendText(_ context.Context, _ int64, text string) error {
	o.texts = append(o.texts, text)
	return nil
}

func (o *outbox) SendPage(_ context.Context, _ int64, p *page.Page) error {
	o.pages = append(o.pages, p)
	return nil
}

func (o *outbox) lastText() string {
	if len(o.texts) == 0 {
		return ""
	}
	return o.texts[len(o.texts)-1]
}

func (o *outbox) lastPage() *page.Page {
	if len(o.pages) == 0 {
		return nil
	}
	return o.pages[len(o.pages)-1]
}

type harness struct {
	bot      *Bot
	out      *outbox
	reg      *tg.Registry
	text     tele.HandlerFunc
	callback tele.HandlerFunc
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return harnessWith(t, Deps{AckText: "Button expired"})
}

func harnessWith(t *testing.T, deps Deps) *harness {
	t.Helper()
	out := &outbox{}
	b, err := New(deps)
	require.NoError(t, err)
	reg := tg.NewRegistry()
	require.NoError(t, reg.Wire(out, b.Components()...))
	b.Bind(out, reg)

	textOpts := router.TextOptions{}
	cbOpts := router.CallbackOptions{Ack: func(tele.Context) error { return nil }}
	router.ApplyFallbacks(b, &textOpts, &cbOpts)
	reg.Activate()

	return &harness{
		bot:      b,
		out:      out,
		reg:      reg,
		text:     router.TextRoutes(b.FSM(), reg, textOpts)[0].Handler,
		callback: router.CallbackRoute(reg, cbOpts).Handler,
	}
}

func message(text string) tele.Context {
	return tele.NewContext(nil, tele.Update{
		ID: 1,
		Message: &tele.Message{
			Text:   text,
			Sender: &tele.User{ID: uid, FirstName: "Ann", LastName: "<Lee>"},
			Chat:   &tele.Chat{ID: uid, Type: tele.ChatPrivate},
		},
	})
}

func press(data string) tele.Context {
	return tele.NewContext(nil, tele.Update{
		ID:       2,
		Callback: &tele.Callback{ID: "q", Data: data, Sender: &tele.User{ID: uid}},
	})
}

func (h *harness) command(t *testing.T, name string) {
	t.Helper()
	w, ok := h.reg.LookupCommand(name)
	require.True(t, ok, name)
	require.NoError(t, w.Handler(message(name)))
}

func buttons(t *testing.T, p *page.Page) []string {
	t.Helper()
	require.NotNil(t, p)
	require.NotNil(t, p.Keyboard)
	var out []string
	for _, b := range p.Keyboard.Buttons {
		data, err := b.CallbackData()
		require.NoError(t, err)
		out = append(out, data)
	}
	return out
}

func TestToplevelAndCabbage(t *testing.T) {
	h := newHarness(t)

	h.command(t, "/hello")
	assert.Equal(t, `Hello, <a href="tg://user?id=77">Ann &lt;Lee&gt;</a>, and thanks for all the fish!`, h.out.lastText())

	h.command(t, "/start")
	assert.Contains(t, h.out.lastText(), "Main Menu")

	h.command(t, "/cabbage_grow")
	assert.Equal(t, "Planted some cabbage", h.out.lastText())

	require.NoError(t, h.text(message("/cabbage_cook_soup")))
	assert.Equal(t, "Cooking soup from cabbage", h.out.lastText())

	require.NoError(t, h.text(message("what?")))
	assert.Equal(t, "I don't know that one. Try /menu", h.out.lastText())
}

func TestRecipeFlow(t *testing.T) {
	h := newHarness(t)

	h.command(t, "/recipe_menu")
	assert.Equal(t, []string{"angela", "daniel"}, buttons(t, h.out.lastPage()))

	require.NoError(t, h.callback(press("angela")))
	list := h.out.lastPage()
	assert.Equal(t, `List of recipes from Angela`, list.Body.Text)
	assert.Equal(t, []string{
		"show_recipe/Fantastic Menemen",
		"show_recipe/Classic Cheeseburger",
		"show_recipe/Salmon Poke",
	}, buttons(t, list))

	require.NoError(t, h.callback(press("show_recipe/Salmon Poke")))
	shown := h.out.lastPage()
	assert.Equal(t, `Here is the "Salmon Poke" recipe: \.\.\.`, shown.Body.Text)
	assert.Equal(t, []string{"like_recipe/Salmon Poke"}, buttons(t, shown))

	require.NoError(t, h.callback(press("like_recipe/Salmon Poke")))
	assert.Equal(t, `Liked the "Salmon Poke" recipe`, h.out.lastPage().Body.Text)

	single := h.bot.Actions().Single
	a, err := state.LoadCurrentAction(context.Background(), h.bot.store, uid, single, false)
	require.NoError(t, err)
	assert.True(t, a.Equal(single.MustNew(action.Values{"action_type": LikeRecipe, "recipe_title": "Salmon Poke"})))

	h.command(t, "/recipe_last")
	assert.Equal(t, []string{"show_recipe/Salmon Poke"}, buttons(t, h.out.lastPage()))
}

func TestRecipeLastWithoutHistory(t *testing.T) {
	h := newHarness(t)
	h.command(t, "/recipe_last")
	assert.Equal(t, "No recipe viewed yet. Try /recipe_menu", h.out.lastText())
}

func TestStaleButtons(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.callback(press("show_recipe/a/b")))
	assert.Equal(t, "This button is outdated, open /recipe_menu again.", h.out.lastText())

	require.NoError(t, h.callback(press("nobody")))
	assert.Equal(t, "Button expired", h.out.lastText())
}

func TestAddRecipeDialog(t *testing.T) {
	h := newHarness(t)

	h.command(t, "/recipe_add")
	assert.True(t, h.bot.FSM().InProgress(uid))

	require.NoError(t, h.text(message("Pasta/Pesto")))
	assert.Equal(t, `The title cannot contain "/".`, h.out.lastText())
	assert.True(t, h.bot.FSM().InProgress(uid))

	require.NoError(t, h.text(message("Pasta al pesto")))
	assert.False(t, h.bot.FSM().InProgress(uid))
	assert.Equal(t, []string{"show_recipe/Pasta al pesto"}, buttons(t, h.out.lastPage()))

	sent := len(h.out.texts)
	h.command(t, "/cancel")
	assert.Len(t, h.out.texts, sent)

	h.command(t, "/recipe_add")
	h.command(t, "/cancel")
	assert.Equal(t, "Cancelled.", h.out.lastText())
	assert.False(t, h.bot.FSM().InProgress(uid))
}

func TestMultilineTitleKeepsButtonRoutable(t *testing.T) {
	h := newHarness(t)

	h.command(t, "/recipe_add")
	require.NoError(t, h.text(message("Poke\nBowl")))
	assert.Equal(t, []string{"show_recipe/Poke\nBowl"}, buttons(t, h.out.lastPage()))

	require.NoError(t, h.callback(press("show_recipe/Poke\nBowl")))
	assert.Equal(t, []string{"like_recipe/Poke\nBowl"}, buttons(t, h.out.lastPage()))
}

func TestConfiguredSeparator(t *testing.T) {
	h := harnessWith(t, Deps{Separator: ":"})
	assert.Equal(t, ":", h.bot.Actions().Single.Separator())

	h.command(t, "/recipe_add")
	require.NoError(t, h.text(message("Pasta:Pesto")))
	assert.Equal(t, `The title cannot contain ":".`, h.out.lastText())

	require.NoError(t, h.text(message("Pasta/Pesto")))
	assert.Equal(t, []string{"show_recipe:Pasta/Pesto"}, buttons(t, h.out.lastPage()))

	require.NoError(t, h.callback(press("show_recipe:Salmon Poke")))
	assert.Equal(t, []string{"like_recipe:Salmon Poke"}, buttons(t, h.out.lastPage()))

	_, err := New(Deps{Separator: "::"})
	assert.ErrorIs(t, err, action.ErrSchema)
}

func TestErrorPolicies(t *testing.T) {
	h := newHarness(t)

	h.command(t, "/main")
	assert.Equal(t, "This is the main error message about RuntimeError", h.out.lastText())

	h.command(t, "/custom")
	assert.Equal(t, "This is the custom error message about RuntimeError", h.out.lastPage().Body.Text)

	h.command(t, "/boom")
	assert.Equal(t, "This is the main error message about PanicError", h.out.lastText())
}

func TestAdminRoutesTable(t *testing.T) {
	h := newHarness(t)
	h.command(t, "/routes")
	assert.Contains(t, h.out.lastText(), "<pre>HANDLER")
	assert.Contains(t, h.out.lastText(), "recipe.single")

	visible := h.reg.ListCommands(true)
	for _, cmd := range visible {
		assert.NotEqual(t, "routes", cmd.Text)
		assert.NotEqual(t, "boom", cmd.Text)
	}
}
