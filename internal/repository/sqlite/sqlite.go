// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database — a single file inside the deployment, no
// separate server to run. The rewards app is a single-writer-per-wallet
// workload at modest scale, which is exactly SQLite's comfort zone, and
// ":memory:" databases make the repository tests fast and hermetic.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which needs a C compiler and complicates
// cross-compilation. modernc.org/sqlite is a pure Go translation of the
// SQLite sources — works everywhere Go works.
package sqlite

import (
	"database/sql"
	"fmt"

	// Side-effect import: registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements the repository
// interfaces (user, session, wallet, marker).
type DB struct {
	conn *sql.DB
}

// New opens the SQLite database at dbPath (":memory:" for tests) and runs
// migrations. Callers must Close() the returned DB.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Surface a bad path or permissions problem now, not on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL mode allows concurrent reads while a write is in progress —
	// needed for a web server where requests overlap.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite. Sessions and wallets
	// reference users, so we want referential integrity enforced.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it
// idempotent — safe on every startup.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			first_name    TEXT NOT NULL,
			last_name     TEXT NOT NULL,
			phone         TEXT NOT NULL DEFAULT '',
			avatar        TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL DEFAULT '',
			date_joined   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			is_verified   INTEGER NOT NULL DEFAULT 0
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id),
			token      TEXT NOT NULL UNIQUE,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_token ON sessions(token);
	`)
	if err != nil {
		return fmt.Errorf("creating sessions table: %w", err)
	}

	// Balance and the aggregate counters live in one row per user so a
	// ledger append and its balance/stats adjustment commit atomically.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS wallets (
			user_id              TEXT PRIMARY KEY REFERENCES users(id),
			balance              REAL NOT NULL DEFAULT 0,
			total_earned         REAL NOT NULL DEFAULT 0,
			total_spent          REAL NOT NULL DEFAULT 0,
			total_donated        REAL NOT NULL DEFAULT 0,
			receipts_scanned     INTEGER NOT NULL DEFAULT 0,
			challenges_completed INTEGER NOT NULL DEFAULT 0,
			vouchers_earned      INTEGER NOT NULL DEFAULT 0,
			carbon_saved         REAL NOT NULL DEFAULT 0
		);
	`)
	if err != nil {
		return fmt.Errorf("creating wallets table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS transactions (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL REFERENCES wallets(user_id),
			type        TEXT NOT NULL,
			amount      REAL NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			timestamp   DATETIME NOT NULL,
			status      TEXT NOT NULL DEFAULT 'completed',
			metadata    TEXT NOT NULL DEFAULT '{}'
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_user_time
			ON transactions(user_id, timestamp DESC);
	`)
	if err != nil {
		return fmt.Errorf("creating transactions table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS vouchers (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL REFERENCES wallets(user_id),
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			value       REAL NOT NULL,
			type        TEXT NOT NULL,
			retailer    TEXT NOT NULL DEFAULT '',
			expires_at  DATETIME NOT NULL,
			is_used     INTEGER NOT NULL DEFAULT 0,
			used_at     DATETIME,
			code        TEXT NOT NULL,
			terms       TEXT NOT NULL DEFAULT '',
			image       TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_vouchers_user ON vouchers(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating vouchers table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS markers (
			id            TEXT PRIMARY KEY,
			title         TEXT NOT NULL,
			description   TEXT NOT NULL DEFAULT '',
			latitude      REAL NOT NULL,
			longitude     REAL NOT NULL,
			accuracy      REAL NOT NULL DEFAULT 0,
			loc_timestamp INTEGER NOT NULL DEFAULT 0,
			type          TEXT NOT NULL,
			icon          TEXT NOT NULL DEFAULT '',
			metadata      TEXT NOT NULL DEFAULT '{}'
		);
	`)
	if err != nil {
		return fmt.Errorf("creating markers table: %w", err)
	}

	return nil
}
