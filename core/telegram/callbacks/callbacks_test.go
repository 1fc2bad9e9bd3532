package callbacks

import (
	"testing"

	"github.com/m3rciful/kilobot/core/telegram/action"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tele "gopkg.in/telebot.v4"
)

type kind string

func (k kind) String() string { return string(k) }

var recipe = action.MustSchema("recipe", []action.Field{
	action.Enum("action_type", kind("show"), kind("like")),
	action.String("title"),
})

func callbackContext(data, unique string) tele.Context {
	return tele.NewContext(nil, tele.Update{Callback: &tele.Callback{
		ID:     "1",
		Data:   data,
		Unique: unique,
		Sender: &tele.User{ID: 1},
	}})
}

func TestDecode(t *testing.T) {
	a, err := Decode(callbackContext("show/Poke", ""), recipe)
	require.NoError(t, err)
	title, ok := action.Lookup[string](a, "title")
	require.True(t, ok)
	assert.Equal(t, "Poke", title)

	_, err = Decode(callbackContext("unknown/Poke", ""), recipe)
	assert.ErrorIs(t, err, action.ErrDecode)

	_, err = Decode(callbackContext("show", ""), recipe)
	assert.ErrorIs(t, err, action.ErrArityMismatch)

	_, err = Decode(tele.NewContext(nil, tele.Update{Message: &tele.Message{Text: "hi"}}), recipe)
	assert.ErrorIs(t, err, ErrNoCallback)
}

func TestParseCallbackData(t *testing.T) {
	k, p := ParseCallbackData(&tele.Callback{Data: "\fmenu|42"})
	assert.Equal(t, "menu", k)
	assert.Equal(t, "42", p)

	k, p = ParseCallbackData(&tele.Callback{Data: "show/Poke"})
	assert.Empty(t, k)
	assert.Equal(t, "show/Poke", p)

	k, p = ParseCallbackData(&tele.Callback{Unique: "menu", Data: "42"})
	assert.Equal(t, "menu", k)
	assert.Equal(t, "42", p)

	assert.Equal(t, "42", Token(callbackContext("42", "menu")))
	assert.Equal(t, "show/Poke", Token(callbackContext("show/Poke", "")))
	assert.Empty(t, Token(tele.NewContext(nil, tele.Update{})))
}
