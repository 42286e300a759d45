package model

import "time"

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TransactionScan      TransactionType = "scan"
	TransactionTransfer  TransactionType = "transfer"
	TransactionDonation  TransactionType = "donation"
	TransactionVoucher   TransactionType = "voucher"
	TransactionReward    TransactionType = "reward"
	TransactionChallenge TransactionType = "challenge"
)

// TransactionStatus is the processing state of a ledger entry.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
)

// TransactionMetadata carries the variant fields that depend on the
// transaction type. Unused fields stay empty and are omitted from JSON.
type TransactionMetadata struct {
	RecipientID    string `json:"recipientId,omitempty"`
	RecipientName  string `json:"recipientName,omitempty"`
	ReceiptID      string `json:"receiptId,omitempty"`
	ChallengeID    string `json:"challengeId,omitempty"`
	VoucherID      string `json:"voucherId,omitempty"`
	OrganizationID string `json:"organizationId,omitempty"`
	Retailer       string `json:"retailer,omitempty"`
}

// Transaction is one append-only ledger entry backing the wallet balance.
//
// Amount is signed: positive entries are credits (scan rewards, challenge
// rewards), negative entries are debits (transfers, donations). Once
// written, a transaction is never mutated — corrections are new entries.
//
// Invariant: balance == seed balance + sum of all appended amounts. Every
// wallet-mutating operation appends exactly one transaction and adjusts the
// balance and stats in the same unit of work.
type Transaction struct {
	ID          string              `json:"id"          db:"id"`
	UserID      string              `json:"-"           db:"user_id"`
	Type        TransactionType     `json:"type"        db:"type"`
	Amount      float64             `json:"amount"      db:"amount"`
	Description string              `json:"description" db:"description"`
	Timestamp   time.Time           `json:"timestamp"   db:"timestamp"`
	Status      TransactionStatus   `json:"status"      db:"status"`
	Metadata    TransactionMetadata `json:"metadata"    db:"metadata"`
}

// VoucherType classifies how a voucher is spent at the retailer.
type VoucherType string

const (
	VoucherDiscount VoucherType = "discount"
	VoucherCashback VoucherType = "cashback"
	VoucherFreeItem VoucherType = "free_item"
)

// Voucher is a reward-granted coupon. It is created by the reward-granting
// flow and mutated exactly once: redemption flips IsUsed and stamps UsedAt.
// Redemption is value consumption, not a monetary transaction — it touches
// neither the balance nor the ledger.
type Voucher struct {
	ID          string      `json:"id"          db:"id"`
	UserID      string      `json:"-"           db:"user_id"`
	Title       string      `json:"title"       db:"title"`
	Description string      `json:"description" db:"description"`
	Value       float64     `json:"value"       db:"value"`
	Type        VoucherType `json:"type"        db:"type"`
	Retailer    string      `json:"retailer"    db:"retailer"`
	ExpiresAt   time.Time   `json:"expiresAt"   db:"expires_at"`
	IsUsed      bool        `json:"isUsed"      db:"is_used"`
	UsedAt      *time.Time  `json:"usedAt,omitempty" db:"used_at"`
	Code        string      `json:"code"        db:"code"`
	Terms       string      `json:"terms,omitempty" db:"terms"`
	Image       string      `json:"image,omitempty" db:"image"`
}

// WalletStats are the aggregate counters shown on the wallet screen.
// They are updated alongside ledger writes and never independently
// corrected. CarbonFootprintSaved is in kilograms of CO2.
type WalletStats struct {
	TotalEarned          float64 `json:"totalEarned"          db:"total_earned"`
	TotalSpent           float64 `json:"totalSpent"           db:"total_spent"`
	TotalDonated         float64 `json:"totalDonated"         db:"total_donated"`
	ReceiptsScanned      int     `json:"receiptsScanned"      db:"receipts_scanned"`
	ChallengesCompleted  int     `json:"challengesCompleted"  db:"challenges_completed"`
	VouchersEarned       int     `json:"vouchersEarned"       db:"vouchers_earned"`
	CarbonFootprintSaved float64 `json:"carbonFootprintSaved" db:"carbon_saved"`
}

// Wallet is the full snapshot a client bootstraps from: balance, the ledger
// (newest first), vouchers, and aggregate stats.
type Wallet struct {
	UserID       string        `json:"-"`
	Balance      float64       `json:"balance"`
	Transactions []Transaction `json:"transactions"`
	Vouchers     []Voucher     `json:"vouchers"`
	Stats        WalletStats   `json:"stats"`
}
