// Package recovery runs handler faults through an ordered list of policies
// that may answer the user before the fault is treated as unhandled.
package recovery

import (
	"errors"
	"fmt"

	"github.com/m3rciful/kilobot/core/telegram/page"
)

// Message is what a policy wants delivered to the user. A page takes
// precedence over text.
type Message struct {
	Text string
	Page *page.Page
}

// Empty reports whether there is nothing to deliver.
func (m Message) Empty() bool { return m.Text == "" && m.Page == nil }

// Policy turns a fault into a user-facing message. Returning false (or an
// empty message) passes the fault to the next policy.
type Policy interface {
	ProduceMessage(err error) (Message, bool)
}

// Text answers every fault with the same text.
type Text string

// ProduceMessage implements Policy.
func (t Text) ProduceMessage(error) (Message, bool) {
	return Message{Text: string(t)}, t != ""
}

// PageOf answers every fault with the same page.
type PageOf struct{ Page *page.Page }

// ProduceMessage implements Policy.
func (p PageOf) ProduceMessage(error) (Message, bool) {
	return Message{Page: p.Page}, p.Page != nil
}

// Func adapts a function to Policy.
type Func func(err error) (Message, bool)

// ProduceMessage implements Policy.
func (f Func) ProduceMessage(err error) (Message, bool) {
	if f == nil {
		return Message{}, false
	}
	return f(err)
}

// Is answers faults matching Target with errors.Is.
type Is struct {
	Target  error
	Message Message
}

// ProduceMessage implements Policy.
func (p Is) ProduceMessage(err error) (Message, bool) {
	if p.Target == nil || !errors.Is(err, p.Target) {
		return Message{}, false
	}
	return p.Message, !p.Message.Empty()
}

// As answers faults whose chain contains a T.
type As[T error] struct {
	Message func(T) Message
}

// ProduceMessage implements Policy.
func (p As[T]) ProduceMessage(err error) (Message, bool) {
	var target T
	if p.Message == nil || !errors.As(err, &target) {
		return Message{}, false
	}
	m := p.Message(target)
	return m, !m.Empty()
}

// Silent never handles anything. Useful to document that a registration
// deliberately relies on the component default.
type Silent struct{}

// ProduceMessage implements Policy.
func (Silent) ProduceMessage(error) (Message, bool) { return Message{}, false }

// Named attaches a label used in logs, metrics and route tables.
func Named(name string, p Policy) Policy {
	return named{name: name, Policy: p}
}

type named struct {
	name string
	Policy
}

func (n named) PolicyName() string { return n.name }

// Name returns a short label for p.
func Name(p Policy) string {
	if p == nil {
		return "none"
	}
	if n, ok := p.(interface{ PolicyName() string }); ok {
		return n.PolicyName()
	}
	return fmt.Sprintf("%T", p)
}
