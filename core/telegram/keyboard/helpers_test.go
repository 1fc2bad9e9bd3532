package keyboard

import "testing"

func TestGrid(t *testing.T) {
	btns := []Button{
		{Text: "a", Data: "show/a"},
		{Text: "b", Data: "show/b"},
		{Text: "c", Data: "show/c"},
	}

	markup := Grid(btns, 2)
	if got := len(markup.InlineKeyboard); got != 2 {
		t.Fatalf("rows = %d, want 2", got)
	}
	if got := len(markup.InlineKeyboard[0]); got != 2 {
		t.Fatalf("first row = %d buttons, want 2", got)
	}
	if got := markup.InlineKeyboard[1][0].Data; got != "show/c" {
		t.Fatalf("data = %q, want raw token", got)
	}
	if got := markup.InlineKeyboard[1][0].Unique; got != "" {
		t.Fatalf("unique = %q, want empty", got)
	}

	single := Grid(btns, 0)
	if got := len(single.InlineKeyboard); got != 3 {
		t.Fatalf("rows = %d, want 3", got)
	}
	if got := len(Grid(nil, 3).InlineKeyboard); got != 0 {
		t.Fatalf("empty grid rows = %d", got)
	}
}

func TestRowsKeepsUnique(t *testing.T) {
	markup := Rows([]Button{{Text: "ok", Unique: "confirm", Data: "1"}}, []Button{})
	if len(markup.InlineKeyboard) != 2 {
		t.Fatalf("rows = %d", len(markup.InlineKeyboard))
	}
	if got := markup.InlineKeyboard[0][0]; got.Unique != "confirm" || got.Data != "1" || got.Text != "ok" {
		t.Fatalf("button = %+v", got)
	}
}
