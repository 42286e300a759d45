package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/cleanCodeCultureSRL/returo-mca/internal/apperror"
	"github.com/cleanCodeCultureSRL/returo-mca/internal/model"
	"github.com/cleanCodeCultureSRL/returo-mca/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// Create inserts a new identity. Email is the unique key; a duplicate email
// surfaces as a DuplicateIdentity conflict for the registration flow.
//
// The caller leaves ID and DateJoined empty — this method fills them in.
// Emails are stored lowercased so lookup is case-insensitive.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.DateJoined.IsZero() {
		user.DateJoined = time.Now()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, email, first_name, last_name, phone, avatar, password_hash, date_joined, is_verified)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.FirstName,
		user.LastName,
		user.Phone,
		user.Avatar,
		user.PasswordHash,
		user.DateJoined,
		user.IsVerified,
	)
	if err != nil {
		// SQLite reports "UNIQUE constraint failed: users.email" — fold it
		// into the domain's duplicate-identity error instead of leaking SQL.
		if strings.Contains(err.Error(), "UNIQUE constraint failed: users.email") {
			return apperror.DuplicateIdentity(user.Email)
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Email, err)
	}

	return nil
}

// GetByID returns the user with the given internal ID.
func (db *DB) GetByID(ctx context.Context, id string) (*model.User, error) {
	return db.scanUser(db.conn.QueryRowContext(ctx,
		`SELECT id, email, first_name, last_name, phone, avatar, password_hash, date_joined, is_verified
		 FROM users WHERE id = ?`, id), "user", id)
}

// GetByEmail looks an identity up by its unique email (case-insensitive).
func (db *DB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return db.scanUser(db.conn.QueryRowContext(ctx,
		`SELECT id, email, first_name, last_name, phone, avatar, password_hash, date_joined, is_verified
		 FROM users WHERE email = ?`, email), "user", email)
}

// Update persists changed profile fields for an existing user.
func (db *DB) Update(ctx context.Context, user *model.User) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET first_name = ?, last_name = ?, phone = ?, avatar = ?, is_verified = ?
		 WHERE id = ?`,
		user.FirstName,
		user.LastName,
		user.Phone,
		user.Avatar,
		user.IsVerified,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking update of user %s: %w", user.ID, err)
	}
	if affected == 0 {
		return apperror.NotFound("user", user.ID)
	}
	return nil
}

func (db *DB) scanUser(row *sql.Row, resource, key string) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.FirstName,
		&u.LastName,
		&u.Phone,
		&u.Avatar,
		&u.PasswordHash,
		&u.DateJoined,
		&u.IsVerified,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound(resource, key)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: scanning %s %s: %w", resource, key, err)
	}
	return &u, nil
}
