package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/m3rciful/kilobot/core/telegram/action"
)

// CurrentActionKey holds the serialized current action in TempData.
const CurrentActionKey = "__current_action__"

// ErrNoCurrentAction is returned when no action was saved for the user.
var ErrNoCurrentAction = errors.New("state: no current action")

// WithSession loads the user session, passes it to fn and saves it back
// when fn succeeds.
func WithSession(ctx context.Context, store Store, userID int64, fn func(*Session) error) error {
	s, err := store.Load(ctx, userID)
	if err != nil {
		return err
	}
	if err := fn(s); err != nil {
		return err
	}
	return store.Save(ctx, userID, s)
}

// SaveCurrentAction remembers a as the user's current action.
func SaveCurrentAction(ctx context.Context, store Store, userID int64, a action.Action) error {
	if a.IsZero() {
		return fmt.Errorf("state: save current action: zero action")
	}
	token := a.Serialize()
	return WithSession(ctx, store, userID, func(s *Session) error {
		s.TempData[CurrentActionKey] = token
		return nil
	})
}

// LoadCurrentAction decodes the saved current action with schema. With
// clear set, the session data is emptied afterwards.
func LoadCurrentAction(ctx context.Context, store Store, userID int64, schema *action.Schema, clear bool) (action.Action, error) {
	var out action.Action
	err := WithSession(ctx, store, userID, func(s *Session) error {
		raw, ok := s.TempData[CurrentActionKey]
		if clear {
			clearTemp(s)
		}
		token, isString := raw.(string)
		if !ok || !isString {
			return ErrNoCurrentAction
		}
		a, err := schema.Deserialize(token)
		if err != nil {
			return err
		}
		out = a
		return nil
	})
	return out, err
}

func clearTemp(s *Session) {
	for k := range s.TempData {
		delete(s.TempData, k)
	}
}
