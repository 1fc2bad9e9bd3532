// Package keyboard lays out inline keyboards.
package keyboard

import (
	"slices"

	tele "gopkg.in/telebot.v4"
)

// Button is one inline button. With an empty Unique, Data is sent verbatim
// as callback data; action tokens travel that way.
type Button struct {
	Text   string
	Unique string
	Data   string
}

func (b Button) inline() tele.InlineButton {
	return tele.InlineButton{Text: b.Text, Unique: b.Unique, Data: b.Data}
}

// Rows builds a markup with one keyboard row per argument.
func Rows(rows ...[]Button) *tele.ReplyMarkup {
	kb := make([][]tele.InlineButton, 0, len(rows))
	for _, row := range rows {
		line := make([]tele.InlineButton, 0, len(row))
		for _, b := range row {
			line = append(line, b.inline())
		}
		kb = append(kb, line)
	}
	return &tele.ReplyMarkup{InlineKeyboard: kb}
}

// Grid fills rows of width buttons, the last one possibly shorter. A width
// below 1 puts every button on its own row.
func Grid(buttons []Button, width int) *tele.ReplyMarkup {
	width = max(width, 1)
	return Rows(slices.Collect(slices.Chunk(buttons, width))...)
}
