package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Crypto-Tax-Calculator/internal/apperrors"
	"github.com/ndewijer/Crypto-Tax-Calculator/internal/model"
)

// TransactionRepository provides data access methods for the ledger_transaction table.
type TransactionRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewTransactionRepository creates a new TransactionRepository with the provided database connection.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// WithTx returns a new TransactionRepository scoped to the provided transaction.
func (r *TransactionRepository) WithTx(tx *sql.Tx) *TransactionRepository {
	return &TransactionRepository{
		db: r.db,
		tx: tx,
	}
}

// getQuerier returns the active transaction if one is set, otherwise the database connection.
func (r *TransactionRepository) getQuerier() interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// InsertTransactions stores txs in slice order and assigns each one the next
// insertion sequence, which is written back into txs.
// A transaction whose ID already exists fails the call with ErrDuplicateEntry;
// callers wanting all-or-nothing semantics should use WithTx.
func (r *TransactionRepository) InsertTransactions(ctx context.Context, txs []model.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	var next int64
	err := r.getQuerier().QueryRowContext(ctx, `SELECT COALESCE(MAX(sequence), 0) FROM ledger_transaction`).Scan(&next)
	if err != nil {
		return fmt.Errorf("failed to read transaction sequence: %w", err)
	}

	query := `
		INSERT INTO ledger_transaction (
			id, wallet_id, token, direction, quantity, unit_price, quote_currency,
			fee_quantity, fee_token, timestamp, sequence, source
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	stmt, err := r.getQuerier().PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare transaction insert: %w", err)
	}
	defer stmt.Close()

	for i := range txs {
		next++
		t := &txs[i]
		t.Sequence = next

		var unitPrice sql.NullString
		if t.UnitPrice != nil {
			unitPrice = sql.NullString{String: t.UnitPrice.String(), Valid: true}
		}

		_, err := stmt.ExecContext(ctx,
			t.ID,
			t.WalletID,
			t.Token,
			string(t.Direction),
			t.Quantity.String(),
			unitPrice,
			nullString(t.QuoteCurrency),
			t.FeeQuantity.String(),
			nullString(t.FeeToken),
			formatTime(t.Timestamp),
			t.Sequence,
			nullString(t.Source),
		)
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: transaction %q", apperrors.ErrDuplicateEntry, t.ID)
		}
		if err != nil {
			return fmt.Errorf("failed to insert transaction %q: %w", t.ID, err)
		}
	}

	return nil
}

// GetTransactions retrieves every transaction of a wallet in insertion order.
// An empty walletID returns the whole ledger.
func (r *TransactionRepository) GetTransactions(ctx context.Context, walletID string) ([]model.Transaction, error) {
	query := `
		SELECT id, wallet_id, token, direction, quantity, unit_price, quote_currency,
		fee_quantity, fee_token, timestamp, sequence, source
		FROM ledger_transaction
	`

	var args []any
	if walletID != "" {
		query += `WHERE wallet_id = ?
		`
		args = append(args, walletID)
	}
	query += `ORDER BY sequence ASC`

	rows, err := r.getQuerier().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger_transaction table: %w", err)
	}
	defer rows.Close()

	transactions := []model.Transaction{}

	for rows.Next() {
		var quantityStr, feeStr, timestampStr, direction string
		var unitPriceStr, quoteCurrency, feeToken, source sql.NullString
		var t model.Transaction

		err := rows.Scan(
			&t.ID,
			&t.WalletID,
			&t.Token,
			&direction,
			&quantityStr,
			&unitPriceStr,
			&quoteCurrency,
			&feeStr,
			&feeToken,
			&timestampStr,
			&t.Sequence,
			&source,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger_transaction table results: %w", err)
		}

		t.Direction = model.Direction(direction)
		t.QuoteCurrency = quoteCurrency.String
		t.FeeToken = feeToken.String
		t.Source = source.String

		if t.Quantity, err = parseDecimal("quantity", quantityStr); err != nil {
			return nil, err
		}
		if t.FeeQuantity, err = parseDecimal("fee_quantity", feeStr); err != nil {
			return nil, err
		}
		if unitPriceStr.Valid {
			var price decimal.Decimal
			if price, err = parseDecimal("unit_price", unitPriceStr.String); err != nil {
				return nil, err
			}
			t.UnitPrice = &price
		}

		t.Timestamp, err = ParseTime(timestampStr)
		if err != nil {
			return nil, err
		}

		transactions = append(transactions, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger_transaction table: %w", err)
	}

	return transactions, nil
}

// GetWallets returns the distinct wallet IDs present in the ledger, sorted.
func (r *TransactionRepository) GetWallets(ctx context.Context) ([]string, error) {
	rows, err := r.getQuerier().QueryContext(ctx, `SELECT DISTINCT wallet_id FROM ledger_transaction ORDER BY wallet_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query wallets: %w", err)
	}
	defer rows.Close()

	wallets := []string{}
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("failed to scan wallet: %w", err)
		}
		wallets = append(wallets, w)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wallets: %w", err)
	}

	return wallets, nil
}

// WalletExists reports whether any transaction belongs to walletID.
func (r *TransactionRepository) WalletExists(ctx context.Context, walletID string) (bool, error) {
	var exists bool
	err := r.getQuerier().QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM ledger_transaction WHERE wallet_id = ?)`, walletID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check wallet: %w", err)
	}
	return exists, nil
}

// CountTransactions returns the number of stored transactions.
func (r *TransactionRepository) CountTransactions(ctx context.Context) (int, error) {
	var count int
	if err := r.getQuerier().QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger_transaction`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}
