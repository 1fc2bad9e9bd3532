package telegram

import (
	"context"
	"errors"
	"testing"

	"github.com/m3rciful/kilobot/core/telegram/action"
	"github.com/m3rciful/kilobot/core/telegram/page"
	"github.com/m3rciful/kilobot/core/telegram/recovery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tele "gopkg.in/telebot.v4"
)

type testComponent struct {
	routes []*Registration
	policy recovery.Policy
}

func (c testComponent) Routes() []*Registration      { return c.routes }
func (c testComponent) ErrorPolicy() recovery.Policy { return c.policy }

func nop(tele.Context) error { return nil }

func TestWireAssignsNamesAndStages(t *testing.T) {
	schema := action.MustSchema("item", []action.Field{action.Int("id")})
	start := OnCommand("start", nop, WithDescription("Start"))
	cook := OnRegexp(`^cook$`, nop)
	item := OnAction(schema, nop)

	reg := NewRegistry()
	require.NoError(t, reg.Wire(nil, testComponent{routes: []*Registration{start, cook, item}}))
	assert.Equal(t, StageWired, start.Stage())
	assert.False(t, reg.Active())

	names := []string{}
	for _, w := range reg.Routes() {
		names = append(names, w.Name)
	}
	assert.Equal(t, []string{"cmd.start", "msg.regexp.1", "cb.item.2"}, names)

	reg.Activate()
	assert.True(t, reg.Active())
	assert.Equal(t, StageActive, item.Stage())
	assert.ErrorIs(t, reg.Wire(nil, testComponent{routes: []*Registration{OnCommand("late", nop)}}), ErrRegistryActive)
}

func TestWireRejectsBadRegistrations(t *testing.T) {
	schema := action.MustSchema("item", []action.Field{action.Int("id")})
	tests := []struct {
		name string
		reg  *Registration
		want error
	}{
		{"nil handler", OnCommand("x", nil), ErrNilHandler},
		{"no matcher", OnMessage(nop), ErrNoMatcher},
		{"conflict", OnCommand("x", nop, WithRegexp("^x$")), ErrConflictingMatchers},
		{"action on message", OnMessage(nop, WithAction(schema)), ErrInvalidRegistration},
		{"bad command", OnCommand("two words", nop), ErrInvalidRegistration},
		{"bad regexp", OnRegexp("(", nop), ErrInvalidRegistration},
		{"zero parameterization", OnAction(action.Parameterization{}, nop), action.ErrSchema},
		{"nil schema", OnAction((*action.Schema)(nil), nop), action.ErrSchema},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewRegistry().Wire(nil, testComponent{routes: []*Registration{tt.reg}})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestWireIsAllOrNothing(t *testing.T) {
	ok := OnCommand("start", nop)
	dup := OnCommand("go", nop, WithAliases("start"))

	reg := NewRegistry()
	err := reg.Wire(nil, testComponent{routes: []*Registration{ok, dup}})
	require.ErrorIs(t, err, ErrDuplicateCommand)
	assert.Empty(t, reg.Routes())
	assert.Equal(t, StageDeclared, ok.Stage())

	require.NoError(t, reg.Wire(nil, testComponent{routes: []*Registration{ok}}))
	err = reg.Wire(nil, testComponent{routes: []*Registration{ok}})
	assert.ErrorIs(t, err, ErrAlreadyWired)
	_, found := reg.LookupCommand("start")
	assert.True(t, found)
}

type textDeliverer struct{ texts []string }

func (d *textDeliverer) SendText(_ context.Context, _ int64, text string) error {
	d.texts = append(d.texts, text)
	return nil
}

func (d *textDeliverer) SendPage(context.Context, int64, *page.Page) error { return nil }

func TestWirePolicyOrder(t *testing.T) {
	failing := func(tele.Context) error { return errors.New("boom") }
	r := OnCommand("fail", failing, WithErrorPolicy(recovery.Named("route", recovery.Text("A"))))

	out := &textDeliverer{}
	reg := NewRegistry()
	require.NoError(t, reg.Wire(out, testComponent{
		routes: []*Registration{r},
		policy: recovery.Named("component", recovery.Text("B")),
	}))
	w, ok := reg.LookupCommand("/fail")
	require.True(t, ok)
	assert.Equal(t, []string{"route", "component"}, w.Policies)

	err := w.Handler(tele.NewContext(nil, tele.Update{Message: &tele.Message{Sender: &tele.User{ID: 1}}}))
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, out.texts)
}

func TestWirePolicyFallsThroughSilentRoute(t *testing.T) {
	failing := func(tele.Context) error { return errors.New("boom") }
	r := OnCommand("fail", failing, WithErrorPolicy(recovery.Silent{}))

	out := &textDeliverer{}
	reg := NewRegistry()
	require.NoError(t, reg.Wire(out, testComponent{routes: []*Registration{r}, policy: recovery.Text("B")}))
	w, _ := reg.LookupCommand("/fail")

	require.NoError(t, w.Handler(tele.NewContext(nil, tele.Update{Message: &tele.Message{Sender: &tele.User{ID: 1}}})))
	assert.Equal(t, []string{"B"}, out.texts)
}

type commandSetter struct{ got []tele.Command }

func (s *commandSetter) SetCommands(opts ...interface{}) error {
	s.got = opts[0].([]tele.Command)
	return nil
}

func TestListCommandsFiltersMenu(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Wire(nil, testComponent{routes: []*Registration{
		OnCommand("zeta", nop, WithDescription("Last")),
		OnCommand("alpha", nop, WithDescription("First")),
		OnCommand("secret", nop, WithDescription("Hidden"), Hidden()),
		OnCommand("ban", nop, WithDescription("Ban"), AdminOnly()),
		OnCommand("bare", nop),
	}}))

	assert.Equal(t, []tele.Command{
		{Text: "alpha", Description: "First"},
		{Text: "zeta", Description: "Last"},
	}, reg.ListCommands(true))
	assert.Len(t, reg.ListCommands(false), 5)

	s := &commandSetter{}
	InitBotCommands(s, reg)
	assert.Len(t, s.got, 2)
}
