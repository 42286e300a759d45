// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account in the identity store.
//
// Email is the unique lookup key — login resolves the account by email, and
// registration rejects an email that is already present. We still generate
// our own internal string ID (xid) so primary keys stay stable even if a
// user changes their email later.
//
// PasswordHash holds the bcrypt hash for self-registered accounts. Seeded
// demo accounts ship without a hash and authenticate through the demo
// credential verifier instead. The `json:"-"` tag keeps the hash out of
// every API response.
type User struct {
	ID           string    `json:"id"         db:"id"`
	Email        string    `json:"email"      db:"email"`
	FirstName    string    `json:"firstName"  db:"first_name"`
	LastName     string    `json:"lastName"   db:"last_name"`
	Phone        string    `json:"phone"      db:"phone"`
	Avatar       string    `json:"avatar,omitempty" db:"avatar"`
	DateJoined   time.Time `json:"dateJoined" db:"date_joined"`
	IsVerified   bool      `json:"isVerified" db:"is_verified"`
	PasswordHash string    `json:"-"          db:"password_hash"`
}

// Session is the persisted authentication record: which user, which token.
// A session row always references a user that existed at creation time, and
// restore re-checks the reference so a deleted user cannot be re-hydrated.
type Session struct {
	ID        string    `json:"id"        db:"id"`
	UserID    string    `json:"userId"    db:"user_id"`
	Token     string    `json:"token"     db:"token"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// UserUpdate is a partial profile update. Nil fields are left unchanged,
// which lets the profile screen submit only what the user edited.
type UserUpdate struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Avatar    *string `json:"avatar,omitempty"`
}
