package state

import (
	"context"
	"maps"

	tele "gopkg.in/telebot.v4"
)

// State identifies a finite-state-machine step used in conversations.
type State string

const (
	// StateIdle indicates there is no active conversation with the user.
	StateIdle State = "idle"
)

// Session stores conversation state and temporary data for a user.
// TempData must stay JSON-encodable when a postgres Store is used.
type Session struct {
	State    State
	TempData map[string]any
}

// NewSession returns an idle session.
func NewSession() *Session {
	return &Session{State: StateIdle, TempData: make(map[string]any)}
}

// Clone returns a copy safe to mutate.
func (s *Session) Clone() *Session {
	if s == nil {
		return NewSession()
	}
	out := &Session{State: s.State, TempData: maps.Clone(s.TempData)}
	if out.State == "" {
		out.State = StateIdle
	}
	if out.TempData == nil {
		out.TempData = make(map[string]any)
	}
	return out
}

// Store persists sessions between updates.
type Store interface {
	// Load returns the user session, or an idle one when none is stored.
	Load(ctx context.Context, userID int64) (*Session, error)
	Save(ctx context.Context, userID int64, s *Session) error
	Delete(ctx context.Context, userID int64) error
}

// Manager orchestrates user sessions and FSM state transitions.
type Manager interface {
	Store

	SetTemp(userID int64, key string, value any)
	GetTemp(userID int64, key string) (any, bool)
	ClearTemp(userID int64, key string)
	Clear(userID int64)

	SetState(userID int64, st State)
	GetState(userID int64) State
	ClearState(userID int64)

	// Handle binds a handler to a dialog step.
	Handle(st State, h tele.HandlerFunc)
	InProgress(userID int64) bool
	ManagerHandler(c tele.Context) error
}
