package telegram

import (
	"fmt"
	"strings"

	"github.com/m3rciful/kilobot/core/telegram/action"
	"github.com/m3rciful/kilobot/core/telegram/recovery"

	tele "gopkg.in/telebot.v4"
)

// Event is the inbound update category a registration listens to.
type Event int

const (
	EventMessage Event = iota + 1
	EventCallback
)

func (e Event) String() string {
	switch e {
	case EventMessage:
		return "message"
	case EventCallback:
		return "callback"
	}
	return "unknown"
}

// MatchKind tells how a registration selects its events.
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchCommand
	MatchRegexp
	MatchAction
)

func (k MatchKind) String() string {
	switch k {
	case MatchCommand:
		return "command"
	case MatchRegexp:
		return "regexp"
	case MatchAction:
		return "action"
	}
	return "none"
}

// Stage is the lifecycle position of a registration.
type Stage int

const (
	StageDeclared Stage = iota
	StageWired
	StageActive
)

func (s Stage) String() string {
	switch s {
	case StageDeclared:
		return "declared"
	case StageWired:
		return "wired"
	case StageActive:
		return "active"
	}
	return "unknown"
}

// Registration binds a handler to its match criteria. It does not install
// anything by itself; Registry.Wire consumes it once.
type Registration struct {
	Name        string
	Event       Event
	Commands    []string
	Regexp      string
	Action      action.Matcher
	Description string
	Aliases     []string
	AdminOnly   bool
	Hidden      bool
	Handler     tele.HandlerFunc
	ErrorPolicy recovery.Policy

	stage Stage
}

// Option customises a Registration.
type Option func(*Registration)

// WithErrorPolicy attaches a policy tried before the component default.
func WithErrorPolicy(p recovery.Policy) Option {
	return func(r *Registration) { r.ErrorPolicy = p }
}

// WithName overrides the handler name used in logs and metrics.
func WithName(name string) Option {
	return func(r *Registration) { r.Name = strings.TrimSpace(name) }
}

// WithDescription sets the command menu description.
func WithDescription(desc string) Option {
	return func(r *Registration) { r.Description = desc }
}

// WithAliases adds alternative command names.
func WithAliases(aliases ...string) Option {
	return func(r *Registration) { r.Aliases = append(r.Aliases, aliases...) }
}

// AdminOnly restricts the handler to the configured admin.
func AdminOnly() Option {
	return func(r *Registration) { r.AdminOnly = true }
}

// Hidden keeps a command out of the command menu.
func Hidden() Option {
	return func(r *Registration) { r.Hidden = true }
}

// WithAction matches callback data against m.
func WithAction(m action.Matcher) Option {
	return func(r *Registration) { r.Action = m }
}

// WithRegexp matches text or callback data against expr.
func WithRegexp(expr string) Option {
	return func(r *Registration) { r.Regexp = expr }
}

func newRegistration(ev Event, h tele.HandlerFunc, opts []Option) *Registration {
	r := &Registration{Event: ev, Handler: h}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// OnCommand handles "/name" messages.
func OnCommand(name string, h tele.HandlerFunc, opts ...Option) *Registration {
	r := newRegistration(EventMessage, h, opts)
	r.Commands = append([]string{name}, r.Commands...)
	return r
}

// OnRegexp handles messages whose text matches expr.
func OnRegexp(expr string, h tele.HandlerFunc, opts ...Option) *Registration {
	return newRegistration(EventMessage, h, append([]Option{WithRegexp(expr)}, opts...))
}

// OnAction handles callbacks whose data matches the pattern of m.
func OnAction(m action.Matcher, h tele.HandlerFunc, opts ...Option) *Registration {
	return newRegistration(EventCallback, h, append([]Option{WithAction(m)}, opts...))
}

// OnCallbackRegexp handles callbacks whose data matches expr.
func OnCallbackRegexp(expr string, h tele.HandlerFunc, opts ...Option) *Registration {
	return newRegistration(EventCallback, h, append([]Option{WithRegexp(expr)}, opts...))
}

// OnMessage declares a message handler whose matcher comes from options.
func OnMessage(h tele.HandlerFunc, opts ...Option) *Registration {
	return newRegistration(EventMessage, h, opts)
}

// OnCallback declares a callback handler whose matcher comes from options.
func OnCallback(h tele.HandlerFunc, opts ...Option) *Registration {
	return newRegistration(EventCallback, h, opts)
}

// Stage returns the registration lifecycle stage.
func (r *Registration) Stage() Stage { return r.stage }

// Kind returns the declared match kind.
func (r *Registration) Kind() MatchKind {
	switch {
	case r.Action != nil:
		return MatchAction
	case r.Regexp != "":
		return MatchRegexp
	case len(r.Commands) > 0:
		return MatchCommand
	}
	return MatchNone
}

func (r *Registration) validate() error {
	if r.Handler == nil {
		return ErrNilHandler
	}
	if r.Event != EventMessage && r.Event != EventCallback {
		return fmt.Errorf("%w: unknown event %d", ErrInvalidRegistration, r.Event)
	}
	declared := 0
	if len(r.Commands) > 0 {
		declared++
	}
	if r.Regexp != "" {
		declared++
	}
	if r.Action != nil {
		declared++
	}
	switch {
	case declared == 0:
		return ErrNoMatcher
	case declared > 1:
		return ErrConflictingMatchers
	}
	if len(r.Commands) > 0 && r.Event != EventMessage {
		return fmt.Errorf("%w: commands only match messages", ErrInvalidRegistration)
	}
	if r.Action != nil && r.Event != EventCallback {
		return fmt.Errorf("%w: actions only match callbacks", ErrInvalidRegistration)
	}
	if len(r.Aliases) > 0 && len(r.Commands) == 0 {
		return fmt.Errorf("%w: aliases need a command", ErrInvalidRegistration)
	}
	return nil
}

func normalizeCommand(name string) (string, error) {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "/")
	if name == "" || strings.ContainsAny(name, " \t\n/@") {
		return "", fmt.Errorf("%w: bad command %q", ErrInvalidRegistration, name)
	}
	return "/" + name, nil
}
