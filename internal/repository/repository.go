// Package repository defines the persistence interfaces the services depend
// on. The concrete SQLite implementation lives in repository/sqlite; tests
// inject in-memory fakes. Persistence is a swappable boundary — nothing
// above this package knows about SQL.
package repository

import (
	"context"
	"time"

	"github.com/cleanCodeCultureSRL/returo-mca/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// StatsDelta is the aggregate-counter adjustment applied alongside a wallet
// mutation. Fields are deltas, not absolute values.
type StatsDelta struct {
	TotalEarned          float64
	TotalSpent           float64
	TotalDonated         float64
	ReceiptsScanned      int
	ChallengesCompleted  int
	VouchersEarned       int
	CarbonFootprintSaved float64
}

// UserRepository is the durable identity store.
type UserRepository interface {
	// Create inserts a new user. Returns a conflict error if the email is
	// already present.
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
}

// SessionRepository persists the session records backing restore/logout.
type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	GetByToken(ctx context.Context, token string) (*model.Session, error)
	DeleteByToken(ctx context.Context, token string) error
}

// WalletRepository owns the ledger, vouchers, and aggregate stats.
//
// Apply is the single write path for monetary mutations: it appends exactly
// one transaction, moves the balance by the transaction amount, and adjusts
// the stats — all inside one database transaction, so a cancelled or failed
// operation leaves no partial write.
type WalletRepository interface {
	// Get loads the full wallet snapshot (ledger newest-first). Returns a
	// not-found error if the user has no wallet yet.
	Get(ctx context.Context, userID string) (*model.Wallet, error)
	// Seed creates the initial wallet (balance, seed ledger, seed vouchers,
	// seed stats) for a user that has none.
	Seed(ctx context.Context, wallet *model.Wallet) error
	Balance(ctx context.Context, userID string) (float64, error)
	Apply(ctx context.Context, txn *model.Transaction, stats StatsDelta) error
	ListTransactions(ctx context.Context, userID string, opts ListOptions) ([]model.Transaction, error)

	GrantVoucher(ctx context.Context, voucher *model.Voucher) error
	GetVoucher(ctx context.Context, userID, voucherID string) (*model.Voucher, error)
	RedeemVoucher(ctx context.Context, userID, voucherID string, usedAt time.Time) error
}

// MarkerRepository stores the map's points of interest.
type MarkerRepository interface {
	List(ctx context.Context) ([]model.Marker, error)
	// ReplaceAll swaps the marker set wholesale (bulk load).
	ReplaceAll(ctx context.Context, markers []model.Marker) error
	Add(ctx context.Context, marker *model.Marker) error
	Remove(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*model.Marker, error)
	// UpdateLocation moves a marker without replacing it — the user marker's
	// identity must never churn.
	UpdateLocation(ctx context.Context, id string, loc model.Location) error
}
