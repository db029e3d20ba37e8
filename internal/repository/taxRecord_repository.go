package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ndewijer/Crypto-Tax-Calculator/internal/model"
)

// TaxRecordRepository provides data access methods for the tax_record table.
type TaxRecordRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewTaxRecordRepository creates a new TaxRecordRepository with the provided database connection.
func NewTaxRecordRepository(db *sql.DB) *TaxRecordRepository {
	return &TaxRecordRepository{db: db}
}

// WithTx returns a new TaxRecordRepository scoped to the provided transaction.
func (r *TaxRecordRepository) WithTx(tx *sql.Tx) *TaxRecordRepository {
	return &TaxRecordRepository{
		db: r.db,
		tx: tx,
	}
}

// getQuerier returns the active transaction if one is set, otherwise the database connection.
func (r *TaxRecordRepository) getQuerier() interface {
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

// ReplaceTaxRecords swaps every stored record of (walletID, method) for records.
// Run it inside WithTx so readers never observe a half-replaced set.
func (r *TaxRecordRepository) ReplaceTaxRecords(ctx context.Context, walletID string, method model.Method, records []model.TaxRecord) error {
	_, err := r.getQuerier().ExecContext(ctx,
		`DELETE FROM tax_record WHERE wallet_id = ? AND method = ?`,
		walletID, string(method),
	)
	if err != nil {
		return fmt.Errorf("failed to delete tax records: %w", err)
	}

	if len(records) == 0 {
		return nil
	}

	query := `
		INSERT INTO tax_record (
			id, wallet_id, token, method, disposal_transaction_id, lot_transaction_id,
			quantity, proceeds, cost_basis, gain_loss, unit_cost,
			disposed_at, acquired_at, tax_year
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	stmt, err := r.getQuerier().PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare tax record insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if rec.WalletID != walletID || rec.Method != method {
			return fmt.Errorf("tax record %s belongs to %s/%s, not %s/%s",
				rec.ID, rec.WalletID, rec.Method, walletID, method)
		}

		var acquiredAt sql.NullString
		if !rec.AcquiredAt.IsZero() {
			acquiredAt = sql.NullString{String: formatTime(rec.AcquiredAt), Valid: true}
		}

		_, err := stmt.ExecContext(ctx,
			rec.ID,
			rec.WalletID,
			rec.Token,
			string(rec.Method),
			rec.DisposalTxID,
			nullString(rec.LotTxID),
			rec.Quantity.String(),
			rec.Proceeds.String(),
			rec.CostBasis.String(),
			rec.GainLoss.String(),
			rec.UnitCost.String(),
			formatTime(rec.DisposedAt),
			acquiredAt,
			rec.TaxYear,
		)
		if err != nil {
			return fmt.Errorf("failed to insert tax record %s: %w", rec.ID, err)
		}
	}

	return nil
}

// GetTaxRecords retrieves the records of a wallet ordered by disposal time.
// year 0 means every year, an empty token every token and no methods every method.
func (r *TaxRecordRepository) GetTaxRecords(ctx context.Context, walletID string, year int, token string, methods ...model.Method) ([]model.TaxRecord, error) {
	query := `
		SELECT id, wallet_id, token, method, disposal_transaction_id, lot_transaction_id,
		quantity, proceeds, cost_basis, gain_loss, unit_cost,
		disposed_at, acquired_at, tax_year
		FROM tax_record
		WHERE wallet_id = ?
	`
	args := []any{walletID}

	if year != 0 {
		query += `AND tax_year = ?
		`
		args = append(args, year)
	}
	if token != "" {
		query += `AND token = ?
		`
		args = append(args, token)
	}
	if len(methods) > 0 {
		query += `AND method IN (` + placeholders(len(methods)) + `)
		`
		for _, m := range methods {
			args = append(args, string(m))
		}
	}
	query += `ORDER BY method ASC, disposed_at ASC, rowid ASC`

	rows, err := r.getQuerier().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tax_record table: %w", err)
	}
	defer rows.Close()

	records := []model.TaxRecord{}

	for rows.Next() {
		var method, quantityStr, proceedsStr, costBasisStr, gainLossStr, unitCostStr, disposedAtStr string
		var lotTxID, acquiredAtStr sql.NullString
		var rec model.TaxRecord

		err := rows.Scan(
			&rec.ID,
			&rec.WalletID,
			&rec.Token,
			&method,
			&rec.DisposalTxID,
			&lotTxID,
			&quantityStr,
			&proceedsStr,
			&costBasisStr,
			&gainLossStr,
			&unitCostStr,
			&disposedAtStr,
			&acquiredAtStr,
			&rec.TaxYear,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tax_record table results: %w", err)
		}

		rec.Method = model.Method(method)
		rec.LotTxID = lotTxID.String

		if rec.Quantity, err = parseDecimal("quantity", quantityStr); err != nil {
			return nil, err
		}
		if rec.Proceeds, err = parseDecimal("proceeds", proceedsStr); err != nil {
			return nil, err
		}
		if rec.CostBasis, err = parseDecimal("cost_basis", costBasisStr); err != nil {
			return nil, err
		}
		if rec.GainLoss, err = parseDecimal("gain_loss", gainLossStr); err != nil {
			return nil, err
		}
		if rec.UnitCost, err = parseDecimal("unit_cost", unitCostStr); err != nil {
			return nil, err
		}

		if rec.DisposedAt, err = ParseTime(disposedAtStr); err != nil {
			return nil, err
		}
		if acquiredAtStr.Valid {
			if rec.AcquiredAt, err = ParseTime(acquiredAtStr.String); err != nil {
				return nil, err
			}
		}

		records = append(records, rec)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tax_record table: %w", err)
	}

	return records, nil
}

// CountTaxRecords returns the number of stored tax records across all wallets and methods.
func (r *TaxRecordRepository) CountTaxRecords(ctx context.Context) (int, error) {
	var count int
	if err := r.getQuerier().QueryRowContext(ctx, `SELECT COUNT(*) FROM tax_record`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tax records: %w", err)
	}
	return count, nil
}
