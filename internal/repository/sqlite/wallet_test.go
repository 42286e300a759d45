package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/xid"

	"github.com/cleanCodeCultureSRL/returo-mca/internal/apperror"
	"github.com/cleanCodeCultureSRL/returo-mca/internal/model"
	"github.com/cleanCodeCultureSRL/returo-mca/internal/repository"
)

// seedTestWallet creates a user plus a wallet with a known balance and one
// seed transaction and voucher. Returns the user ID.
func seedTestWallet(t *testing.T, db *DB, balance float64) string {
	t.Helper()
	user := createTestUser(t, db, xid.New().String()+"@example.com")

	wallet := &model.Wallet{
		UserID:  user.ID,
		Balance: balance,
		Transactions: []model.Transaction{
			{
				ID:          xid.New().String(),
				Type:        model.TransactionScan,
				Amount:      12.50,
				Description: "Bon scanat - Mega Image",
				Timestamp:   time.Now().Add(-2 * time.Hour),
				Status:      model.StatusCompleted,
				Metadata:    model.TransactionMetadata{Retailer: "Mega Image"},
			},
		},
		Vouchers: []model.Voucher{
			{
				ID:        "voucher_1",
				Title:     "20% Reducere Mega Image",
				Value:     20,
				Type:      model.VoucherDiscount,
				Retailer:  "Mega Image",
				ExpiresAt: time.Now().Add(30 * 24 * time.Hour),
				Code:      "MEGA20OFF",
			},
		},
		Stats: model.WalletStats{TotalEarned: 100, ReceiptsScanned: 5},
	}
	if err := db.Wallets().Seed(context.Background(), wallet); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	return user.ID
}

// =========================================================================
// SEED AND GET TESTS
// =========================================================================

func TestWalletSeedAndGet(t *testing.T) {
	db := newTestDB(t)
	userID := seedTestWallet(t, db, 265.50)

	wallet, err := db.Wallets().Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if wallet.Balance != 265.50 {
		t.Errorf("Balance = %v, want 265.50", wallet.Balance)
	}
	if len(wallet.Transactions) != 1 {
		t.Fatalf("len(Transactions) = %d, want 1", len(wallet.Transactions))
	}
	if wallet.Transactions[0].Metadata.Retailer != "Mega Image" {
		t.Errorf("Metadata.Retailer = %q, want %q", wallet.Transactions[0].Metadata.Retailer, "Mega Image")
	}
	if len(wallet.Vouchers) != 1 {
		t.Fatalf("len(Vouchers) = %d, want 1", len(wallet.Vouchers))
	}
	if wallet.Stats.TotalEarned != 100 {
		t.Errorf("Stats.TotalEarned = %v, want 100", wallet.Stats.TotalEarned)
	}
}

func TestWalletGet_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Wallets().Get(context.Background(), "no-such-user")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// APPLY TESTS
// =========================================================================

func TestWalletApply_MovesBalanceAndStatsTogether(t *testing.T) {
	db := newTestDB(t)
	userID := seedTestWallet(t, db, 100)
	wallets := db.Wallets()

	txn := &model.Transaction{
		ID:          xid.New().String(),
		UserID:      userID,
		Type:        model.TransactionScan,
		Amount:      12,
		Description: "Bon scanat - Kaufland",
		Timestamp:   time.Now(),
		Status:      model.StatusCompleted,
		Metadata:    model.TransactionMetadata{Retailer: "Kaufland"},
	}
	delta := repository.StatsDelta{TotalEarned: 12, ReceiptsScanned: 1, CarbonFootprintSaved: 0.5}

	if err := wallets.Apply(context.Background(), txn, delta); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	wallet, err := wallets.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if wallet.Balance != 112 {
		t.Errorf("Balance = %v, want 112", wallet.Balance)
	}
	if wallet.Stats.TotalEarned != 112 {
		t.Errorf("Stats.TotalEarned = %v, want 112", wallet.Stats.TotalEarned)
	}
	if wallet.Stats.ReceiptsScanned != 6 {
		t.Errorf("Stats.ReceiptsScanned = %v, want 6", wallet.Stats.ReceiptsScanned)
	}
	if wallet.Stats.CarbonFootprintSaved != 0.5 {
		t.Errorf("Stats.CarbonFootprintSaved = %v, want 0.5", wallet.Stats.CarbonFootprintSaved)
	}
	if len(wallet.Transactions) != 2 {
		t.Errorf("len(Transactions) = %d, want 2", len(wallet.Transactions))
	}
}

func TestWalletApply_DebitIsNegativeAmount(t *testing.T) {
	db := newTestDB(t)
	userID := seedTestWallet(t, db, 265.50)
	wallets := db.Wallets()

	txn := &model.Transaction{
		ID:          xid.New().String(),
		UserID:      userID,
		Type:        model.TransactionDonation,
		Amount:      -50,
		Description: "Donație către Daruiește Aripi",
		Timestamp:   time.Now(),
		Status:      model.StatusCompleted,
	}

	if err := wallets.Apply(context.Background(), txn, repository.StatsDelta{TotalDonated: 50}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	balance, err := wallets.Balance(context.Background(), userID)
	if err != nil {
		t.Fatalf("Balance() error = %v", err)
	}
	if balance != 215.50 {
		t.Errorf("Balance = %v, want 215.50", balance)
	}
}

func TestWalletApply_NoWallet(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "nowallet@example.com")

	txn := &model.Transaction{
		ID:        xid.New().String(),
		UserID:    user.ID,
		Type:      model.TransactionScan,
		Amount:    10,
		Timestamp: time.Now(),
		Status:    model.StatusCompleted,
	}

	if err := db.Wallets().Apply(context.Background(), txn, repository.StatsDelta{}); err == nil {
		t.Fatal("Apply() should fail for a user without a wallet")
	}

	// The failed apply must not leave an orphan ledger entry behind.
	txns, err := db.Wallets().ListTransactions(context.Background(), user.ID, repository.ListOptions{})
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(txns) != 0 {
		t.Errorf("len(transactions) = %d after failed Apply, want 0", len(txns))
	}
}

// =========================================================================
// LEDGER LISTING TESTS
// =========================================================================

func TestWalletListTransactions_NewestFirstWithPaging(t *testing.T) {
	db := newTestDB(t)
	userID := seedTestWallet(t, db, 1000)
	wallets := db.Wallets()

	base := time.Now()
	for i := 0; i < 3; i++ {
		txn := &model.Transaction{
			ID:        xid.New().String(),
			UserID:    userID,
			Type:      model.TransactionScan,
			Amount:    float64(i + 1),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Status:    model.StatusCompleted,
		}
		if err := wallets.Apply(context.Background(), txn, repository.StatsDelta{}); err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
	}

	page, err := wallets.ListTransactions(context.Background(), userID, repository.ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("len(page) = %d, want 2", len(page))
	}
	// Newest first: the last applied transaction (amount 3) leads.
	if page[0].Amount != 3 {
		t.Errorf("page[0].Amount = %v, want 3", page[0].Amount)
	}
	if page[1].Amount != 2 {
		t.Errorf("page[1].Amount = %v, want 2", page[1].Amount)
	}

	next, err := wallets.ListTransactions(context.Background(), userID, repository.ListOptions{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(next) != 2 {
		t.Fatalf("len(next) = %d, want 2", len(next))
	}
	if next[0].Amount != 1 {
		t.Errorf("next[0].Amount = %v, want 1", next[0].Amount)
	}
}

// =========================================================================
// VOUCHER TESTS
// =========================================================================

func TestVoucherGrantAndGet(t *testing.T) {
	db := newTestDB(t)
	userID := seedTestWallet(t, db, 100)
	wallets := db.Wallets()

	voucher := &model.Voucher{
		ID:        "voucher_new",
		UserID:    userID,
		Title:     "Voucher 50 RON Kaufland",
		Value:     50,
		Type:      model.VoucherCashback,
		Retailer:  "Kaufland",
		ExpiresAt: time.Now().Add(45 * 24 * time.Hour),
		Code:      "KAUFLAND50",
	}
	if err := wallets.GrantVoucher(context.Background(), voucher); err != nil {
		t.Fatalf("GrantVoucher() error = %v", err)
	}

	found, err := wallets.GetVoucher(context.Background(), userID, "voucher_new")
	if err != nil {
		t.Fatalf("GetVoucher() error = %v", err)
	}
	if found.Code != "KAUFLAND50" {
		t.Errorf("Code = %q, want %q", found.Code, "KAUFLAND50")
	}
	if found.IsUsed {
		t.Error("a fresh voucher should not be used")
	}

	// Granting bumps the earned counter.
	wallet, err := wallets.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if wallet.Stats.VouchersEarned != 1 {
		t.Errorf("Stats.VouchersEarned = %d, want 1", wallet.Stats.VouchersEarned)
	}
}

func TestVoucherGet_ScopedToOwner(t *testing.T) {
	db := newTestDB(t)
	ownerID := seedTestWallet(t, db, 100)
	otherID := seedTestWallet(t, db, 100)
	_ = ownerID

	_, err := db.Wallets().GetVoucher(context.Background(), otherID, "voucher_1")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound — vouchers must not leak across users", err)
	}
}

func TestVoucherRedeem(t *testing.T) {
	db := newTestDB(t)
	userID := seedTestWallet(t, db, 100)
	wallets := db.Wallets()

	usedAt := time.Now()
	if err := wallets.RedeemVoucher(context.Background(), userID, "voucher_1", usedAt); err != nil {
		t.Fatalf("RedeemVoucher() error = %v", err)
	}

	voucher, err := wallets.GetVoucher(context.Background(), userID, "voucher_1")
	if err != nil {
		t.Fatalf("GetVoucher() error = %v", err)
	}
	if !voucher.IsUsed {
		t.Error("voucher should be marked used")
	}
	if voucher.UsedAt == nil {
		t.Error("UsedAt should be set")
	}

	// Redemption does not touch the balance.
	balance, err := wallets.Balance(context.Background(), userID)
	if err != nil {
		t.Fatalf("Balance() error = %v", err)
	}
	if balance != 100 {
		t.Errorf("Balance = %v, want unchanged 100", balance)
	}
}

func TestVoucherRedeem_TwiceIsConflict(t *testing.T) {
	db := newTestDB(t)
	userID := seedTestWallet(t, db, 100)
	wallets := db.Wallets()

	if err := wallets.RedeemVoucher(context.Background(), userID, "voucher_1", time.Now()); err != nil {
		t.Fatalf("first RedeemVoucher() error = %v", err)
	}

	err := wallets.RedeemVoucher(context.Background(), userID, "voucher_1", time.Now())
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("second redemption error = %v, want ErrConflict", err)
	}
}
