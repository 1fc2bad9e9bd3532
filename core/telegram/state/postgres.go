package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// PostgresStore keeps sessions in the fsm_sessions table.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore returns a Store backed by db. The fsm_sessions
// migration must have been applied.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type sessionRow struct {
	State string `db:"state"`
	Data  []byte `db:"data"`
}

// Load implements Store.
func (p *PostgresStore) Load(ctx context.Context, userID int64) (*Session, error) {
	var row sessionRow
	err := p.db.GetContext(ctx, &row, `SELECT state, data FROM fsm_sessions WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return NewSession(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("state: load %d: %w", userID, err)
	}
	s := &Session{State: State(row.State)}
	if len(row.Data) > 0 {
		if err := json.Unmarshal(row.Data, &s.TempData); err != nil {
			return nil, fmt.Errorf("state: decode %d: %w", userID, err)
		}
	}
	return s.Clone(), nil
}

// Save implements Store.
func (p *PostgresStore) Save(ctx context.Context, userID int64, s *Session) error {
	s = s.Clone()
	data, err := json.Marshal(s.TempData)
	if err != nil {
		return fmt.Errorf("state: encode %d: %w", userID, err)
	}
	_, err = p.db.ExecContext(ctx, `
INSERT INTO fsm_sessions (user_id, state, data, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (user_id) DO UPDATE
SET state = EXCLUDED.state, data = EXCLUDED.data, updated_at = now()`,
		userID, string(s.State), data)
	if err != nil {
		return fmt.Errorf("state: save %d: %w", userID, err)
	}
	return nil
}

// Delete implements Store.
func (p *PostgresStore) Delete(ctx context.Context, userID int64) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM fsm_sessions WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("state: delete %d: %w", userID, err)
	}
	return nil
}
