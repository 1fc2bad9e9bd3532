package helpers

import (
	"testing"

	"github.com/m3rciful/kilobot/core/logger"

	tele "gopkg.in/telebot.v4"
)

func TestBuildContextCachesMetadata(t *testing.T) {
	c := tele.NewContext(nil, tele.Update{
		ID: 3,
		Message: &tele.Message{
			Sender: &tele.User{ID: 10},
			Chat:   &tele.Chat{ID: 20},
		},
	})

	ctx := BuildContext(c)
	if rid := logger.RIDFrom(ctx); rid != "3:20:10" {
		t.Fatalf("rid = %q", rid)
	}
	if logger.UserIDFrom(ctx) != 10 || logger.ChatIDFrom(ctx) != 20 {
		t.Fatal("update metadata missing")
	}

	ctx = WithHandler(c, "cmd.hello")
	if logger.HandlerFrom(BuildContext(c)) != "cmd.hello" {
		t.Fatalf("handler not cached: %q", logger.HandlerFrom(ctx))
	}
}

func TestWithRouteTagsCachedContext(t *testing.T) {
	c := tele.NewContext(nil, tele.Update{
		ID:       4,
		Callback: &tele.Callback{Data: "single_recipe/show_recipe/Poke", Sender: &tele.User{ID: 11}},
	})

	WithRoute(c, "action", "single_recipe")
	kind, schema := logger.RouteFrom(BuildContext(c))
	if kind != "action" || schema != "single_recipe" {
		t.Fatalf("route = %q/%q", kind, schema)
	}
	if logger.UserIDFrom(BuildContext(c)) != 11 {
		t.Fatal("sender lost")
	}
	if BuildContext(nil) == nil {
		t.Fatal("nil tele context")
	}
}

func TestAnswerSkipsNonCallback(t *testing.T) {
	c := tele.NewContext(nil, tele.Update{Message: &tele.Message{Sender: &tele.User{ID: 1}}})
	if err := Answer(c); err != nil {
		t.Fatalf("Answer on a message = %v", err)
	}
	if err := Answer(nil); err != nil {
		t.Fatalf("Answer(nil) = %v", err)
	}
}
