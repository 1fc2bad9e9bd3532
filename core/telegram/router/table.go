package router

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	tg "github.com/m3rciful/kilobot/core/telegram"
	"github.com/m3rciful/kilobot/core/telegram/ui"
)

// Row is one printable line of the wired route table.
type Row struct {
	Handler  string
	Event    string
	Kind     string
	Matcher  string
	Flags    string
	Policies string
}

// Table lists wired routes in wiring order.
func Table(reg *tg.Registry) []Row {
	if reg == nil {
		return nil
	}
	routes := reg.Routes()
	rows := make([]Row, 0, len(routes))
	for _, w := range routes {
		var flags []string
		if w.AdminOnly {
			flags = append(flags, "admin")
		}
		if w.Hidden {
			flags = append(flags, "hidden")
		}
		policies := "-"
		if len(w.Policies) > 0 {
			policies = strings.Join(w.Policies, ",")
		}
		flagText := "-"
		if len(flags) > 0 {
			flagText = strings.Join(flags, ",")
		}
		rows = append(rows, Row{
			Handler:  w.Name,
			Event:    w.Event.String(),
			Kind:     w.Kind.String(),
			Matcher:  w.Matcher(),
			Flags:    flagText,
			Policies: policies,
		})
	}
	return rows
}

// WriteTable prints the route table with aligned columns.
func WriteTable(w io.Writer, reg *tg.Registry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "HANDLER\tEVENT\tKIND\tMATCHER\tFLAGS\tPOLICIES")
	for _, r := range Table(reg) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.Handler, r.Event, r.Kind, r.Matcher, r.Flags, r.Policies)
	}
	return tw.Flush()
}

// ApplyFallbacks copies the provider handlers into options left unset.
func ApplyFallbacks(p ui.FallbackProvider, text *TextOptions, cb *CallbackOptions) {
	if p == nil {
		return
	}
	if text != nil {
		if text.UnknownText == nil {
			text.UnknownText = p.UnknownText()
		}
		if text.UnknownDocument == nil {
			text.UnknownDocument = p.UnknownDocument()
		}
	}
	if cb != nil && cb.NotFound == nil {
		cb.NotFound = p.UnknownCallback()
	}
}
