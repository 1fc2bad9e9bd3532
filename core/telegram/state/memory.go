package state

import (
	"context"
	"log/slog"
	"sync"

	"github.com/m3rciful/kilobot/core/logger"
	tghelpers "github.com/m3rciful/kilobot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// memoryManager keeps sessions in process memory. Sessions are created
// lazily by writes and dropped by Clear or Delete.
type memoryManager struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
	handlers handlerSet
}

// NewMemoryManager returns a Manager that also serves as the Store when no
// database is configured.
func NewMemoryManager() Manager {
	return &memoryManager{sessions: make(map[int64]*Session)}
}

// read runs fn on the stored session, or nil when the user has none.
func (m *memoryManager) read(userID int64, fn func(*Session)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fn(m.sessions[userID])
}

// write runs fn on the user session, creating it when missing.
func (m *memoryManager) write(userID int64, fn func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		s = NewSession()
		m.sessions[userID] = s
	}
	fn(s)
}

func (m *memoryManager) Load(_ context.Context, userID int64) (out *Session, _ error) {
	m.read(userID, func(s *Session) { out = s.Clone() })
	return out, nil
}

func (m *memoryManager) Save(_ context.Context, userID int64, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = s.Clone()
	return nil
}

func (m *memoryManager) Delete(_ context.Context, userID int64) error {
	m.Clear(userID)
	return nil
}

func (m *memoryManager) SetTemp(userID int64, key string, value any) {
	m.write(userID, func(s *Session) { s.TempData[key] = value })
}

func (m *memoryManager) GetTemp(userID int64, key string) (val any, ok bool) {
	m.read(userID, func(s *Session) {
		if s != nil {
			val, ok = s.TempData[key]
		}
	})
	return val, ok
}

func (m *memoryManager) ClearTemp(userID int64, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[userID]; ok {
		delete(s.TempData, key)
	}
}

func (m *memoryManager) Clear(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

func (m *memoryManager) SetState(userID int64, st State) {
	m.write(userID, func(s *Session) { s.State = st })
}

// GetState returns StateIdle for users without a session.
func (m *memoryManager) GetState(userID int64) State {
	st := StateIdle
	m.read(userID, func(s *Session) {
		if s != nil && s.State != "" {
			st = s.State
		}
	})
	return st
}

// ClearState returns the user to idle and keeps TempData.
func (m *memoryManager) ClearState(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[userID]; ok {
		s.State = StateIdle
	}
}

func (m *memoryManager) Handle(st State, h tele.HandlerFunc) {
	m.handlers.set(st, h)
}

func (m *memoryManager) InProgress(userID int64) bool {
	return m.GetState(userID) != StateIdle
}

// ManagerHandler runs the handler bound to the sender's current step.
// Steps without a handler swallow the update.
func (m *memoryManager) ManagerHandler(c tele.Context) error {
	u := c.Sender()
	if u == nil {
		return nil
	}
	st := m.GetState(u.ID)
	ctx := tghelpers.BuildContext(c)
	h, ok := m.handlers.get(st)
	if !ok {
		logger.Debug(ctx, "tg", "fsm.dispatch", slog.String("status", "skip"), slog.String("state", string(st)))
		return nil
	}
	logger.Debug(ctx, "tg", "fsm.dispatch", slog.String("status", "ok"), slog.String("state", string(st)))
	return h(c)
}
