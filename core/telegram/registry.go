package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/m3rciful/kilobot/core/logger"
	"github.com/m3rciful/kilobot/core/telegram/action"
	"github.com/m3rciful/kilobot/core/telegram/metrics"
	"github.com/m3rciful/kilobot/core/telegram/recovery"

	tele "gopkg.in/telebot.v4"
)

var (
	// ErrConflictingMatchers is returned when a registration declares more than one matcher.
	ErrConflictingMatchers = errors.New("telegram: conflicting matchers")
	// ErrNoMatcher is returned when a registration declares no matcher.
	ErrNoMatcher = errors.New("telegram: no matcher")
	// ErrAlreadyWired is returned when a registration is wired a second time.
	ErrAlreadyWired = errors.New("telegram: registration already wired")
	// ErrDuplicateCommand is returned when two registrations claim one command.
	ErrDuplicateCommand = errors.New("telegram: duplicate command")
	// ErrNilHandler is returned for registrations without a handler.
	ErrNilHandler = errors.New("telegram: nil handler")
	// ErrInvalidRegistration covers malformed registrations.
	ErrInvalidRegistration = errors.New("telegram: invalid registration")
	// ErrRegistryActive is returned when wiring after Activate.
	ErrRegistryActive = errors.New("telegram: registry already active")
)

// Component groups handlers that share a default error policy.
type Component interface {
	Routes() []*Registration
}

// PolicyProvider is implemented by components with a default error policy.
type PolicyProvider interface {
	ErrorPolicy() recovery.Policy
}

// WiredRoute is a registration resolved into transport matchers.
type WiredRoute struct {
	Name        string
	Event       Event
	Kind        MatchKind
	Commands    []string
	Pattern     *regexp.Regexp
	Schema      string
	Description string
	AdminOnly   bool
	Hidden      bool
	Policies    []string
	Handler     tele.HandlerFunc

	reg *Registration
}

// Match reports whether the route pattern matches s.
func (w *WiredRoute) Match(s string) bool {
	return w.Pattern != nil && w.Pattern.MatchString(s)
}

// Matcher returns a printable form of the route matcher.
func (w *WiredRoute) Matcher() string {
	if w.Kind == MatchCommand {
		return strings.Join(w.Commands, " ")
	}
	if w.Pattern != nil {
		return w.Pattern.String()
	}
	return ""
}

// Registry holds wired routes and fallbacks.
type Registry struct {
	mu               sync.RWMutex
	active           bool
	routes           []*WiredRoute
	commands         map[string]*WiredRoute
	callbackNotFound tele.HandlerFunc
	textFallback     tele.HandlerFunc
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]*WiredRoute)}
}

// Wire resolves the routes of every component and records them. Handlers
// are wrapped in a recovery chain trying the registration policy before
// the component default. Nothing is recorded when any registration fails.
func (r *Registry) Wire(d recovery.Deliverer, components ...Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active {
		return ErrRegistryActive
	}
	if r.commands == nil {
		r.commands = make(map[string]*WiredRoute)
	}

	var (
		pending  []*WiredRoute
		seen     = make(map[*Registration]struct{})
		commands = make(map[string]*WiredRoute)
	)
	for _, comp := range components {
		if comp == nil {
			continue
		}
		var fallback recovery.Policy
		if pp, ok := comp.(PolicyProvider); ok {
			fallback = pp.ErrorPolicy()
		}
		for _, reg := range comp.Routes() {
			if reg == nil {
				continue
			}
			if _, dup := seen[reg]; dup || reg.stage != StageDeclared {
				return wireErr(reg, ErrAlreadyWired)
			}
			seen[reg] = struct{}{}

			w, err := r.resolve(reg, len(r.routes)+len(pending))
			if err != nil {
				return wireErr(reg, err)
			}
			for _, cmd := range w.Commands {
				if _, taken := r.commands[cmd]; taken {
					return wireErr(reg, fmt.Errorf("%w: %s", ErrDuplicateCommand, cmd))
				}
				if _, taken := commands[cmd]; taken {
					return wireErr(reg, fmt.Errorf("%w: %s", ErrDuplicateCommand, cmd))
				}
				commands[cmd] = w
			}

			chain := recovery.NewChain(w.Name, d, reg.ErrorPolicy, fallback)
			for _, p := range chain.Policies {
				w.Policies = append(w.Policies, recovery.Name(p))
			}
			w.Handler = chain.Wrap(reg.Handler)
			pending = append(pending, w)
		}
	}

	for _, w := range pending {
		w.reg.stage = StageWired
		r.routes = append(r.routes, w)
		logger.Info(context.Background(), "tg.wire", "wire.route",
			slog.String("handler", w.Name),
			slog.String("update", w.Event.String()),
			slog.String("kind", w.Kind.String()),
			slog.String("matcher", w.Matcher()),
		)
	}
	for cmd, w := range commands {
		r.commands[cmd] = w
	}
	return nil
}

func (r *Registry) resolve(reg *Registration, index int) (*WiredRoute, error) {
	if err := reg.validate(); err != nil {
		return nil, err
	}
	w := &WiredRoute{
		Name:        reg.Name,
		Event:       reg.Event,
		Kind:        reg.Kind(),
		Description: reg.Description,
		AdminOnly:   reg.AdminOnly,
		Hidden:      reg.Hidden,
		reg:         reg,
	}

	switch w.Kind {
	case MatchCommand:
		for _, name := range append(append([]string{}, reg.Commands...), reg.Aliases...) {
			cmd, err := normalizeCommand(name)
			if err != nil {
				return nil, err
			}
			w.Commands = append(w.Commands, cmd)
		}
		if w.Name == "" {
			w.Name = "cmd." + strings.TrimPrefix(w.Commands[0], "/")
		}
	case MatchRegexp:
		re, err := regexp.Compile(reg.Regexp)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRegistration, err)
		}
		w.Pattern = re
		if w.Name == "" {
			w.Name = fmt.Sprintf("%s.regexp.%d", shortEvent(reg.Event), index)
		}
	case MatchAction:
		re, err := action.Compile(reg.Action)
		if err != nil {
			return nil, err
		}
		w.Pattern = re
		w.Schema = reg.Action.SchemaName()
		if w.Name == "" {
			w.Name = fmt.Sprintf("cb.%s.%d", w.Schema, index)
		}
	}
	return w, nil
}

func shortEvent(e Event) string {
	if e == EventCallback {
		return "cb"
	}
	return "msg"
}

func wireErr(reg *Registration, err error) error {
	name := reg.Name
	if name == "" && len(reg.Commands) > 0 {
		name = reg.Commands[0]
	}
	if name == "" {
		return fmt.Errorf("wire: %w", err)
	}
	return fmt.Errorf("wire %s: %w", name, err)
}

// Activate marks every wired route as installed. Further wiring fails.
func (r *Registry) Activate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = true
	counts := map[string]int{}
	for _, w := range r.routes {
		w.reg.stage = StageActive
		counts[w.Event.String()+"."+w.Kind.String()]++
	}
	for kind, n := range counts {
		metrics.SetRoutes(kind, n)
	}
	logger.Info(context.Background(), "tg.wire", "wire.complete",
		slog.String("status", "ok"),
		slog.Int("count", len(r.routes)),
		slog.Int("commands", len(r.commands)),
	)
}

// Active reports whether Activate was called.
func (r *Registry) Active() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// Routes returns wired routes in wiring order.
func (r *Registry) Routes() []*WiredRoute {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*WiredRoute(nil), r.routes...)
}

// RoutesFor returns wired routes of one event and kind in wiring order.
func (r *Registry) RoutesFor(ev Event, kind MatchKind) []*WiredRoute {
	var out []*WiredRoute
	for _, w := range r.Routes() {
		if w.Event == ev && w.Kind == kind {
			out = append(out, w)
		}
	}
	return out
}

// ListCommands returns a slice of tele.Command, optionally filtering out hidden and admin-only commands.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	var list []tele.Command
	for _, w := range r.RoutesFor(EventMessage, MatchCommand) {
		if visibleOnly && (w.Hidden || w.AdminOnly || w.Description == "") {
			continue
		}
		list = append(list, tele.Command{Text: strings.TrimPrefix(w.Commands[0], "/"), Description: w.Description})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// LookupCommand finds the route owning a command or alias.
func (r *Registry) LookupCommand(name string) (*WiredRoute, bool) {
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.commands[name]
	return w, ok
}

// SetCallbackNotFound replaces the fallback handler for unknown callbacks.
func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	if h != nil {
		r.callbackNotFound = h
	}
}

// CallbackNotFound returns the current fallback callback handler.
func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	return r.callbackNotFound
}

// SetTextFallback sets a global fallback handler for unknown text messages.
func (r *Registry) SetTextFallback(h tele.HandlerFunc) {
	r.textFallback = h
}

// TextFallback returns the current text fallback handler.
func (r *Registry) TextFallback() tele.HandlerFunc {
	return r.textFallback
}

// CommandSetter is the subset of *tele.Bot used to publish the command menu.
type CommandSetter interface {
	SetCommands(opts ...interface{}) error
}

// InitBotCommands sets the Telegram bot commands shown in the command menu.
func InitBotCommands(bot CommandSetter, reg *Registry) {
	cmds := reg.ListCommands(true)
	if len(cmds) == 0 {
		return
	}
	if err := bot.SetCommands(cmds); err != nil {
		logger.Error(context.Background(), "tg.wire", "register.commands.set_failed",
			slog.String("err", err.Error()),
		)
	}
}
