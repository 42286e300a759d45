package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cleanCodeCultureSRL/returo-mca/internal/apperror"
	"github.com/cleanCodeCultureSRL/returo-mca/internal/model"
	"github.com/cleanCodeCultureSRL/returo-mca/internal/repository"
)

// Wallets returns the wallet repository view of this DB.
func (db *DB) Wallets() *WalletDB {
	return &WalletDB{conn: db.conn}
}

// WalletDB implements repository.WalletRepository.
//
// ATOMICITY:
// Apply and Seed run inside a sql.Tx. The ledger append, the balance move,
// and the stats adjustment either all commit or none do — the invariant
// "balance == seed + sum of appended amounts" survives crashes and
// cancelled contexts.
type WalletDB struct {
	conn *sql.DB
}

var _ repository.WalletRepository = (*WalletDB)(nil)

// Get loads the full wallet snapshot. The ledger comes back newest-first —
// that ordering is part of the read contract, not an accident of storage.
func (w *WalletDB) Get(ctx context.Context, userID string) (*model.Wallet, error) {
	wallet := &model.Wallet{UserID: userID}

	err := w.conn.QueryRowContext(ctx,
		`SELECT balance, total_earned, total_spent, total_donated,
		        receipts_scanned, challenges_completed, vouchers_earned, carbon_saved
		 FROM wallets WHERE user_id = ?`, userID,
	).Scan(
		&wallet.Balance,
		&wallet.Stats.TotalEarned,
		&wallet.Stats.TotalSpent,
		&wallet.Stats.TotalDonated,
		&wallet.Stats.ReceiptsScanned,
		&wallet.Stats.ChallengesCompleted,
		&wallet.Stats.VouchersEarned,
		&wallet.Stats.CarbonFootprintSaved,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("wallet", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: scanning wallet %s: %w", userID, err)
	}

	wallet.Transactions, err = w.ListTransactions(ctx, userID, repository.ListOptions{})
	if err != nil {
		return nil, err
	}

	wallet.Vouchers, err = w.listVouchers(ctx, userID)
	if err != nil {
		return nil, err
	}

	return wallet, nil
}

// Seed creates the initial wallet: the row, any seed transactions, and any
// seed vouchers, in a single transaction.
func (w *WalletDB) Seed(ctx context.Context, wallet *model.Wallet) error {
	tx, err := w.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning wallet seed: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO wallets (user_id, balance, total_earned, total_spent, total_donated,
		                      receipts_scanned, challenges_completed, vouchers_earned, carbon_saved)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		wallet.UserID,
		wallet.Balance,
		wallet.Stats.TotalEarned,
		wallet.Stats.TotalSpent,
		wallet.Stats.TotalDonated,
		wallet.Stats.ReceiptsScanned,
		wallet.Stats.ChallengesCompleted,
		wallet.Stats.VouchersEarned,
		wallet.Stats.CarbonFootprintSaved,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting wallet %s: %w", wallet.UserID, err)
	}

	for i := range wallet.Transactions {
		txn := &wallet.Transactions[i]
		txn.UserID = wallet.UserID
		if err := insertTransaction(ctx, tx, txn); err != nil {
			return err
		}
	}

	for i := range wallet.Vouchers {
		v := &wallet.Vouchers[i]
		v.UserID = wallet.UserID
		if err := insertVoucher(ctx, tx, v); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing wallet seed %s: %w", wallet.UserID, err)
	}
	return nil
}

// Balance returns the current balance only — used for the sufficiency check
// inside the wallet service's critical section.
func (w *WalletDB) Balance(ctx context.Context, userID string) (float64, error) {
	var balance float64
	err := w.conn.QueryRowContext(ctx,
		`SELECT balance FROM wallets WHERE user_id = ?`, userID,
	).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperror.NotFound("wallet", userID)
	}
	if err != nil {
		return 0, fmt.Errorf("sqlite: reading balance %s: %w", userID, err)
	}
	return balance, nil
}

// Apply appends one ledger entry and moves balance/stats by the matching
// deltas in a single database transaction.
func (w *WalletDB) Apply(ctx context.Context, txn *model.Transaction, stats repository.StatsDelta) error {
	tx, err := w.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning wallet apply: %w", err)
	}
	defer tx.Rollback()

	if err := insertTransaction(ctx, tx, txn); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE wallets SET
			balance = balance + ?,
			total_earned = total_earned + ?,
			total_spent = total_spent + ?,
			total_donated = total_donated + ?,
			receipts_scanned = receipts_scanned + ?,
			challenges_completed = challenges_completed + ?,
			vouchers_earned = vouchers_earned + ?,
			carbon_saved = carbon_saved + ?
		 WHERE user_id = ?`,
		txn.Amount,
		stats.TotalEarned,
		stats.TotalSpent,
		stats.TotalDonated,
		stats.ReceiptsScanned,
		stats.ChallengesCompleted,
		stats.VouchersEarned,
		stats.CarbonFootprintSaved,
		txn.UserID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating wallet %s: %w", txn.UserID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking wallet update %s: %w", txn.UserID, err)
	}
	if affected == 0 {
		return apperror.NotFound("wallet", txn.UserID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing wallet apply %s: %w", txn.UserID, err)
	}
	return nil
}

// ListTransactions returns the ledger newest-first. Limit 0 means all.
func (w *WalletDB) ListTransactions(ctx context.Context, userID string, opts repository.ListOptions) ([]model.Transaction, error) {
	query := `SELECT id, user_id, type, amount, description, timestamp, status, metadata
	          FROM transactions WHERE user_id = ?
	          ORDER BY timestamp DESC, id DESC`
	args := []any{userID}
	if opts.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := w.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing transactions %s: %w", userID, err)
	}
	defer rows.Close()

	txns := []model.Transaction{}
	for rows.Next() {
		var txn model.Transaction
		var metadata string
		if err := rows.Scan(
			&txn.ID, &txn.UserID, &txn.Type, &txn.Amount,
			&txn.Description, &txn.Timestamp, &txn.Status, &metadata,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning transaction: %w", err)
		}
		if err := json.Unmarshal([]byte(metadata), &txn.Metadata); err != nil {
			return nil, fmt.Errorf("sqlite: decoding transaction metadata %s: %w", txn.ID, err)
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating transactions %s: %w", userID, err)
	}
	return txns, nil
}

// GrantVoucher inserts a voucher and bumps the vouchers-earned counter in
// one transaction. Voucher grants carry no ledger entry — value lives in
// the voucher itself until it is redeemed at the retailer.
func (w *WalletDB) GrantVoucher(ctx context.Context, voucher *model.Voucher) error {
	tx, err := w.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning voucher grant: %w", err)
	}
	defer tx.Rollback()

	if err := insertVoucher(ctx, tx, voucher); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE wallets SET vouchers_earned = vouchers_earned + 1 WHERE user_id = ?`,
		voucher.UserID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating voucher count %s: %w", voucher.UserID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking voucher count update %s: %w", voucher.UserID, err)
	}
	if affected == 0 {
		return apperror.NotFound("wallet", voucher.UserID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing voucher grant: %w", err)
	}
	return nil
}

// GetVoucher returns one voucher scoped to its owner.
func (w *WalletDB) GetVoucher(ctx context.Context, userID, voucherID string) (*model.Voucher, error) {
	var v model.Voucher
	var usedAt sql.NullTime
	err := w.conn.QueryRowContext(ctx,
		`SELECT id, user_id, title, description, value, type, retailer,
		        expires_at, is_used, used_at, code, terms, image
		 FROM vouchers WHERE id = ? AND user_id = ?`, voucherID, userID,
	).Scan(
		&v.ID, &v.UserID, &v.Title, &v.Description, &v.Value, &v.Type,
		&v.Retailer, &v.ExpiresAt, &v.IsUsed, &usedAt, &v.Code, &v.Terms, &v.Image,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("voucher", voucherID)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: scanning voucher %s: %w", voucherID, err)
	}
	if usedAt.Valid {
		v.UsedAt = &usedAt.Time
	}
	return &v, nil
}

// RedeemVoucher flips is_used and stamps used_at. The WHERE clause refuses
// already-used vouchers, so a double redemption cannot slip through between
// the service's check and this write.
func (w *WalletDB) RedeemVoucher(ctx context.Context, userID, voucherID string, usedAt time.Time) error {
	res, err := w.conn.ExecContext(ctx,
		`UPDATE vouchers SET is_used = 1, used_at = ?
		 WHERE id = ? AND user_id = ? AND is_used = 0`,
		usedAt, voucherID, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: redeeming voucher %s: %w", voucherID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking voucher redemption %s: %w", voucherID, err)
	}
	if affected == 0 {
		return apperror.Conflict("voucher", voucherID)
	}
	return nil
}

func (w *WalletDB) listVouchers(ctx context.Context, userID string) ([]model.Voucher, error) {
	rows, err := w.conn.QueryContext(ctx,
		`SELECT id, user_id, title, description, value, type, retailer,
		        expires_at, is_used, used_at, code, terms, image
		 FROM vouchers WHERE user_id = ? ORDER BY expires_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing vouchers %s: %w", userID, err)
	}
	defer rows.Close()

	vouchers := []model.Voucher{}
	for rows.Next() {
		var v model.Voucher
		var usedAt sql.NullTime
		if err := rows.Scan(
			&v.ID, &v.UserID, &v.Title, &v.Description, &v.Value, &v.Type,
			&v.Retailer, &v.ExpiresAt, &v.IsUsed, &usedAt, &v.Code, &v.Terms, &v.Image,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning voucher: %w", err)
		}
		if usedAt.Valid {
			v.UsedAt = &usedAt.Time
		}
		vouchers = append(vouchers, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating vouchers %s: %w", userID, err)
	}
	return vouchers, nil
}

// execer lets the insert helpers run against either *sql.DB or *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertTransaction(ctx context.Context, e execer, txn *model.Transaction) error {
	metadata, err := json.Marshal(txn.Metadata)
	if err != nil {
		return fmt.Errorf("sqlite: encoding transaction metadata: %w", err)
	}
	_, err = e.ExecContext(ctx,
		`INSERT INTO transactions (id, user_id, type, amount, description, timestamp, status, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID, txn.UserID, txn.Type, txn.Amount,
		txn.Description, txn.Timestamp, txn.Status, string(metadata),
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting transaction %s: %w", txn.ID, err)
	}
	return nil
}

func insertVoucher(ctx context.Context, e execer, v *model.Voucher) error {
	var usedAt any
	if v.UsedAt != nil {
		usedAt = *v.UsedAt
	}
	_, err := e.ExecContext(ctx,
		`INSERT INTO vouchers (id, user_id, title, description, value, type, retailer,
		                       expires_at, is_used, used_at, code, terms, image)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.UserID, v.Title, v.Description, v.Value, v.Type, v.Retailer,
		v.ExpiresAt, v.IsUsed, usedAt, v.Code, v.Terms, v.Image,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting voucher %s: %w", v.ID, err)
	}
	return nil
}
