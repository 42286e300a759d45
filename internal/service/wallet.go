package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/xid"

	"github.com/cleanCodeCultureSRL/returo-mca/internal/apperror"
	"github.com/cleanCodeCultureSRL/returo-mca/internal/model"
	"github.com/cleanCodeCultureSRL/returo-mca/internal/repository"
)

// Reward and pagination constants.
const (
	// ScanRewardRate is the fraction of a receipt's value returned as
	// points: reward = floor(amount * 0.10). A 127 RON receipt earns 12.
	ScanRewardRate = 0.10

	// CarbonSavedPerScan is the CO2 credit, in kilograms, granted for each
	// scanned receipt.
	CarbonSavedPerScan = 0.5

	DefaultTransactionLimit = 20
	MaxTransactionLimit     = 100
)

// Seed wallet contents for first-time users, mirroring the demo data the
// mobile app ships with.
const seedBalance = 265.50

// WalletService owns the wallet ledger: every monetary operation appends
// exactly one transaction and moves balance/stats by a matching amount.
//
// CONCURRENCY:
// Mutations are serialized per wallet through a lock manager. The balance
// sufficiency check for debits runs INSIDE the critical section, immediately
// before the write — two overlapping transfers cannot both pass the check
// against a stale snapshot. UI-level button disabling is a courtesy, not
// the correctness mechanism.
type WalletService struct {
	wallets repository.WalletRepository
	logger  *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewWalletService creates a WalletService.
func NewWalletService(wallets repository.WalletRepository, logger *slog.Logger) *WalletService {
	return &WalletService{
		wallets: wallets,
		logger:  logger,
		locks:   make(map[string]*sync.Mutex),
	}
}

// userLock returns the mutex serializing mutations of one user's wallet.
func (s *WalletService) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// Load is the idempotent wallet bootstrap. A user with no wallet yet gets
// one seeded with the demo balance, ledger, vouchers, and stats; everyone
// else gets their current snapshot.
func (s *WalletService) Load(ctx context.Context, userID string) (*model.Wallet, error) {
	if userID == "" {
		return nil, apperror.NoActiveUser()
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	wallet, err := s.wallets.Get(ctx, userID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/wallet: loading wallet %s: %w", userID, err)
	}

	seeded := seedWallet(userID)
	if err := s.wallets.Seed(ctx, seeded); err != nil {
		return nil, fmt.Errorf("service/wallet: seeding wallet %s: %w", userID, err)
	}

	s.logger.Info("wallet seeded",
		slog.String("userID", userID),
		slog.Float64("balance", seeded.Balance),
	)

	return s.wallets.Get(ctx, userID)
}

// ScanReceipt credits the reward for a scanned receipt.
//
// Reward = floor(amount × ScanRewardRate). Appends a `scan` transaction and
// bumps receiptsScanned, carbonFootprintSaved, and totalEarned.
func (s *WalletService) ScanReceipt(ctx context.Context, userID, retailer string, amount float64, items []string) (*model.Transaction, error) {
	retailer = strings.TrimSpace(retailer)
	if retailer == "" {
		return nil, apperror.ValidationFailed("retailer", "retailer is required")
	}
	if amount <= 0 {
		return nil, apperror.ValidationFailed("amount", "receipt amount must be positive")
	}

	reward := math.Floor(amount * ScanRewardRate)

	txn := &model.Transaction{
		ID:          xid.New().String(),
		UserID:      userID,
		Type:        model.TransactionScan,
		Amount:      reward,
		Description: fmt.Sprintf("Bon scanat - %s", retailer),
		Timestamp:   time.Now(),
		Status:      model.StatusCompleted,
		Metadata: model.TransactionMetadata{
			ReceiptID: xid.New().String(),
			Retailer:  retailer,
		},
	}

	delta := repository.StatsDelta{
		TotalEarned:          reward,
		ReceiptsScanned:      1,
		CarbonFootprintSaved: CarbonSavedPerScan,
	}

	if err := s.apply(ctx, userID, txn, delta); err != nil {
		return nil, err
	}

	s.logger.Info("receipt scanned",
		slog.String("userID", userID),
		slog.String("retailer", retailer),
		slog.Float64("amount", amount),
		slog.Float64("reward", reward),
		slog.Int("items", len(items)),
	)

	return txn, nil
}

// Transfer debits the wallet and sends the amount to another user.
//
// Fails with insufficient-balance — and appends NOTHING — when the amount
// exceeds the balance at commit time.
func (s *WalletService) Transfer(ctx context.Context, userID string, amount float64, recipientID, recipientName string) (*model.Transaction, error) {
	if amount <= 0 {
		return nil, apperror.ValidationFailed("amount", "transfer amount must be positive")
	}
	if strings.TrimSpace(recipientID) == "" {
		return nil, apperror.ValidationFailed("recipientId", "recipient is required")
	}

	txn := &model.Transaction{
		ID:          xid.New().String(),
		UserID:      userID,
		Type:        model.TransactionTransfer,
		Amount:      -amount,
		Description: fmt.Sprintf("Transfer către %s", recipientName),
		Timestamp:   time.Now(),
		Status:      model.StatusCompleted,
		Metadata: model.TransactionMetadata{
			RecipientID:   recipientID,
			RecipientName: recipientName,
		},
	}

	if err := s.applyDebit(ctx, userID, amount, txn, repository.StatsDelta{TotalSpent: amount}); err != nil {
		return nil, err
	}

	s.logger.Info("transfer completed",
		slog.String("userID", userID),
		slog.String("recipientID", recipientID),
		slog.Float64("amount", amount),
	)

	return txn, nil
}

// Donate debits the wallet in favour of an organization. Same balance
// contract as Transfer; bumps totalDonated.
func (s *WalletService) Donate(ctx context.Context, userID string, amount float64, organizationID, organizationName string) (*model.Transaction, error) {
	if amount <= 0 {
		return nil, apperror.ValidationFailed("amount", "donation amount must be positive")
	}
	if strings.TrimSpace(organizationID) == "" {
		return nil, apperror.ValidationFailed("organizationId", "organization is required")
	}

	txn := &model.Transaction{
		ID:          xid.New().String(),
		UserID:      userID,
		Type:        model.TransactionDonation,
		Amount:      -amount,
		Description: fmt.Sprintf("Donație către %s", organizationName),
		Timestamp:   time.Now(),
		Status:      model.StatusCompleted,
		Metadata: model.TransactionMetadata{
			OrganizationID: organizationID,
			RecipientName:  organizationName,
		},
	}

	if err := s.applyDebit(ctx, userID, amount, txn, repository.StatsDelta{TotalDonated: amount}); err != nil {
		return nil, err
	}

	s.logger.Info("donation completed",
		slog.String("userID", userID),
		slog.String("organizationID", organizationID),
		slog.Float64("amount", amount),
	)

	return txn, nil
}

// CompleteChallenge credits a challenge reward. Appends a `challenge`
// transaction and bumps totalEarned and challengesCompleted.
func (s *WalletService) CompleteChallenge(ctx context.Context, userID, challengeID string, reward float64) (*model.Transaction, error) {
	if strings.TrimSpace(challengeID) == "" {
		return nil, apperror.ValidationFailed("challengeId", "challenge is required")
	}
	if reward <= 0 {
		return nil, apperror.ValidationFailed("reward", "reward must be positive")
	}

	txn := &model.Transaction{
		ID:          xid.New().String(),
		UserID:      userID,
		Type:        model.TransactionChallenge,
		Amount:      reward,
		Description: fmt.Sprintf("Provocare completată - Recompensă %g RON", reward),
		Timestamp:   time.Now(),
		Status:      model.StatusCompleted,
		Metadata: model.TransactionMetadata{
			ChallengeID: challengeID,
		},
	}

	delta := repository.StatsDelta{
		TotalEarned:         reward,
		ChallengesCompleted: 1,
	}

	if err := s.apply(ctx, userID, txn, delta); err != nil {
		return nil, err
	}

	s.logger.Info("challenge completed",
		slog.String("userID", userID),
		slog.String("challengeID", challengeID),
		slog.Float64("reward", reward),
	)

	return txn, nil
}

// UseVoucher redeems a voucher: flips isUsed and stamps usedAt.
//
// Redemption consumes value at the retailer — it does NOT touch the balance
// or the ledger. A voucher that is already used fails with a conflict
// rather than silently no-opping, so a double tap surfaces in the UI.
func (s *WalletService) UseVoucher(ctx context.Context, userID, voucherID string) (*model.Voucher, error) {
	voucherID = strings.TrimSpace(voucherID)
	if voucherID == "" {
		return nil, apperror.ValidationFailed("voucherId", "voucher ID is required")
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	voucher, err := s.wallets.GetVoucher(ctx, userID, voucherID)
	if err != nil {
		return nil, err
	}
	if voucher.IsUsed {
		return nil, apperror.Conflict("voucher", voucherID)
	}

	usedAt := time.Now()
	if err := s.wallets.RedeemVoucher(ctx, userID, voucherID, usedAt); err != nil {
		return nil, err
	}

	voucher.IsUsed = true
	voucher.UsedAt = &usedAt

	s.logger.Info("voucher redeemed",
		slog.String("userID", userID),
		slog.String("voucherID", voucherID),
	)

	return voucher, nil
}

// GrantVoucher creates a voucher for a user (the reward-granting flow) and
// bumps vouchersEarned. The voucher code is generated here.
func (s *WalletService) GrantVoucher(ctx context.Context, userID, title, description string, value float64, vtype model.VoucherType, retailer string, expiresAt time.Time, terms, image string) (*model.Voucher, error) {
	if strings.TrimSpace(title) == "" {
		return nil, apperror.ValidationFailed("title", "voucher title is required")
	}
	if value <= 0 {
		return nil, apperror.ValidationFailed("value", "voucher value must be positive")
	}

	voucher := &model.Voucher{
		ID:          xid.New().String(),
		UserID:      userID,
		Title:       strings.TrimSpace(title),
		Description: description,
		Value:       value,
		Type:        vtype,
		Retailer:    retailer,
		ExpiresAt:   expiresAt,
		Code:        strings.ToUpper(uuid.NewString()[:8]),
		Terms:       terms,
		Image:       image,
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.wallets.GrantVoucher(ctx, voucher); err != nil {
		return nil, err
	}

	s.logger.Info("voucher granted",
		slog.String("userID", userID),
		slog.String("voucherID", voucher.ID),
		slog.String("retailer", retailer),
	)

	return voucher, nil
}

// Transactions returns a page of the ledger, newest first.
func (s *WalletService) Transactions(ctx context.Context, userID string, limit, offset int) ([]model.Transaction, error) {
	if limit <= 0 {
		limit = DefaultTransactionLimit
	}
	if limit > MaxTransactionLimit {
		limit = MaxTransactionLimit
	}
	if offset < 0 {
		offset = 0
	}

	txns, err := s.wallets.ListTransactions(ctx, userID, repository.ListOptions{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("service/wallet: listing transactions %s: %w", userID, err)
	}
	return txns, nil
}

// apply runs a credit mutation inside the wallet's critical section.
func (s *WalletService) apply(ctx context.Context, userID string, txn *model.Transaction, delta repository.StatsDelta) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	return s.wallets.Apply(ctx, txn, delta)
}

// applyDebit re-validates balance sufficiency immediately before the write,
// inside the critical section. If the check fails, no transaction is
// appended and nothing moves.
func (s *WalletService) applyDebit(ctx context.Context, userID string, amount float64, txn *model.Transaction, delta repository.StatsDelta) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	balance, err := s.wallets.Balance(ctx, userID)
	if err != nil {
		return err
	}
	if amount > balance {
		s.logger.Warn("debit rejected",
			slog.String("userID", userID),
			slog.Float64("amount", amount),
			slog.Float64("balance", balance),
		)
		return apperror.InsufficientBalance(amount)
	}

	return s.wallets.Apply(ctx, txn, delta)
}

// seedWallet builds the demo wallet a first-time user starts with.
func seedWallet(userID string) *model.Wallet {
	now := time.Now()
	return &model.Wallet{
		UserID:  userID,
		Balance: seedBalance,
		Transactions: []model.Transaction{
			{
				ID:          xid.New().String(),
				UserID:      userID,
				Type:        model.TransactionScan,
				Amount:      12.50,
				Description: "Bon scanat - Mega Image",
				Timestamp:   now.Add(-2 * time.Hour),
				Status:      model.StatusCompleted,
				Metadata: model.TransactionMetadata{
					ReceiptID: xid.New().String(),
					Retailer:  "Mega Image",
				},
			},
			{
				ID:          xid.New().String(),
				UserID:      userID,
				Type:        model.TransactionChallenge,
				Amount:      25.00,
				Description: "Provocare completată - Reciclare 100 PET",
				Timestamp:   now.Add(-24 * time.Hour),
				Status:      model.StatusCompleted,
				Metadata: model.TransactionMetadata{
					ChallengeID: "challenge_1",
				},
			},
		},
		Vouchers: []model.Voucher{
			{
				ID:          xid.New().String(),
				UserID:      userID,
				Title:       "20% Reducere Mega Image",
				Description: "Discount 20% la cumpărăturile peste 100 RON",
				Value:       20,
				Type:        model.VoucherDiscount,
				Retailer:    "Mega Image",
				ExpiresAt:   now.Add(30 * 24 * time.Hour),
				Code:        "MEGA20OFF",
				Terms:       "Valabil pentru cumpărături peste 100 RON",
				Image:       "/logos/mega-image-logo.png",
			},
			{
				ID:          xid.New().String(),
				UserID:      userID,
				Title:       "Voucher 50 RON Kaufland",
				Description: "Voucher în valoare de 50 RON",
				Value:       50,
				Type:        model.VoucherCashback,
				Retailer:    "Kaufland",
				ExpiresAt:   now.Add(45 * 24 * time.Hour),
				Code:        "KAUFLAND50",
				Terms:       "Valabil pentru orice cumpărătură",
				Image:       "/logos/kaufland-logo.png",
			},
		},
		Stats: model.WalletStats{
			TotalEarned:          1250.75,
			TotalSpent:           450.25,
			TotalDonated:         200.00,
			ReceiptsScanned:      87,
			ChallengesCompleted:  12,
			VouchersEarned:       15,
			CarbonFootprintSaved: 45.6,
		},
	}
}
