package recipebot

import (
	"reflect"

	tg "github.com/m3rciful/kilobot/core/telegram"
	"github.com/m3rciful/kilobot/core/telegram/format"
	"github.com/m3rciful/kilobot/core/telegram/page"
	"github.com/m3rciful/kilobot/core/telegram/recovery"

	tele "gopkg.in/telebot.v4"
)

// RuntimeError is raised on purpose by the Errors handlers.
type RuntimeError struct{ Op string }

func (e *RuntimeError) Error() string { return "runtime error in " + e.Op }

// Errors shows how component and registration policies combine.
type Errors struct{ bot *Bot }

func (e Errors) Routes() []*tg.Registration {
	return []*tg.Registration{
		tg.OnCommand("main", e.raise("main"), tg.WithDescription("Fail with the main error message")),
		tg.OnCommand("custom", e.raise("custom"),
			tg.WithDescription("Fail with a custom error page"),
			tg.WithErrorPolicy(recovery.Named("errors.custom", recovery.Func(customPage))),
		),
		tg.OnCommand("boom", e.explode, tg.Hidden()),
	}
}

// ErrorPolicy is the default for every Errors handler.
func (Errors) ErrorPolicy() recovery.Policy {
	return recovery.Named("errors.main", recovery.Func(func(err error) (recovery.Message, bool) {
		return recovery.Message{Text: "This is the main error message about " + typeName(err)}, true
	}))
}

func customPage(err error) (recovery.Message, bool) {
	return recovery.Message{
		Page: page.Simple(format.V2("This is the custom error message about " + typeName(err))),
	}, true
}

func (Errors) raise(op string) tele.HandlerFunc {
	return func(tele.Context) error { return &RuntimeError{Op: op} }
}

func (Errors) explode(tele.Context) error {
	panic("boom requested")
}

func typeName(err error) string {
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Name() == "" {
		return "error"
	}
	return t.Name()
}
