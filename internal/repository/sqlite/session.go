package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cleanCodeCultureSRL/returo-mca/internal/apperror"
	"github.com/cleanCodeCultureSRL/returo-mca/internal/model"
	"github.com/cleanCodeCultureSRL/returo-mca/internal/repository"
)

// Sessions returns the session repository view of this DB. Session methods
// hang off a view struct because *DB already uses Create for users.
func (db *DB) Sessions() *SessionDB {
	return &SessionDB{conn: db.conn}
}

// SessionDB implements repository.SessionRepository.
type SessionDB struct {
	conn *sql.DB
}

var _ repository.SessionRepository = (*SessionDB)(nil)

// Create persists a session row. Fills in ID and CreatedAt.
func (s *SessionDB) Create(ctx context.Context, session *model.Session) error {
	session.ID = uuid.NewString()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, token, created_at) VALUES (?, ?, ?, ?)`,
		session.ID, session.UserID, session.Token, session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting session for user %s: %w", session.UserID, err)
	}
	return nil
}

// GetByToken finds the persisted session for a bearer token.
func (s *SessionDB) GetByToken(ctx context.Context, token string) (*model.Session, error) {
	var sess model.Session
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, user_id, token, created_at FROM sessions WHERE token = ?`, token,
	).Scan(&sess.ID, &sess.UserID, &sess.Token, &sess.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("session", "token")
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: scanning session: %w", err)
	}
	return &sess, nil
}

// DeleteByToken removes a session. Deleting a token that is already gone is
// not an error — logout always succeeds locally.
func (s *SessionDB) DeleteByToken(ctx context.Context, token string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("sqlite: deleting session: %w", err)
	}
	return nil
}
