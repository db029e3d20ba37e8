// Package importer reads ledger exports into model transactions.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Crypto-Tax-Calculator/internal/apperrors"
	"github.com/ndewijer/Crypto-Tax-Calculator/internal/ledger"
	"github.com/ndewijer/Crypto-Tax-Calculator/internal/model"
	"github.com/ndewijer/Crypto-Tax-Calculator/internal/money"
	"github.com/ndewijer/Crypto-Tax-Calculator/internal/validation"
)

// Columns understood by ReadCSV. Header names are matched case-insensitively
// and may appear in any order.
const (
	ColumnID            = "id"
	ColumnWallet        = "wallet"
	ColumnToken         = "token"
	ColumnDirection     = "direction"
	ColumnQuantity      = "quantity"
	ColumnUnitPrice     = "unit_price"
	ColumnQuoteCurrency = "quote_currency"
	ColumnFee           = "fee"
	ColumnFeeToken      = "fee_token"
	ColumnTimestamp     = "timestamp"
)

var requiredColumns = []string{ColumnWallet, ColumnToken, ColumnDirection, ColumnQuantity, ColumnTimestamp}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// importNamespace seeds the IDs generated for rows without an id column, so
// importing the same file twice yields the same IDs.
var importNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("crypto-tax-calculator/import"))

// ReadCSV parses a ledger export. Rows that cannot be parsed are returned as
// InvalidTransactionError with Index set to the zero-based data row; they do
// not stop the import. The returned error is reserved for unreadable input
// and missing required headers.
//
// Sequence is left at zero; the repository assigns it on insert.
func ReadCSV(r io.Reader, source string) ([]model.Transaction, []*ledger.InvalidTransactionError, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("%w: empty file", apperrors.ErrInvalidCSVHeaders)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	var missing []string
	for _, c := range requiredColumns {
		if _, ok := columns[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("%w: missing %s", apperrors.ErrInvalidCSVHeaders, strings.Join(missing, ", "))
	}

	var txs []model.Transaction
	var rejected []*ledger.InvalidTransactionError

	row := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read CSV row %d: %w", row+1, err)
		}
		if isBlank(record) {
			continue
		}

		field := func(name string) string {
			i, ok := columns[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		tx, err := parseRow(field, source, row, record)
		if err != nil {
			rejected = append(rejected, &ledger.InvalidTransactionError{TxID: tx.ID, Index: row, Err: err})
		} else {
			txs = append(txs, tx)
		}
		row++
	}

	return txs, rejected, nil
}

func parseRow(field func(string) string, source string, row int, record []string) (model.Transaction, error) {
	tx := model.Transaction{
		ID:            field(ColumnID),
		WalletID:      field(ColumnWallet),
		Token:         strings.ToUpper(field(ColumnToken)),
		QuoteCurrency: strings.ToUpper(field(ColumnQuoteCurrency)),
		FeeToken:      strings.ToUpper(field(ColumnFeeToken)),
		Source:        source,
	}
	if tx.ID == "" {
		name := fmt.Sprintf("%s|%d|%s", source, row, strings.Join(record, ","))
		tx.ID = uuid.NewSHA1(importNamespace, []byte(name)).String()
	}

	errs := make(map[string]string)
	var causes []error

	if err := validation.ValidateID(tx.WalletID); err != nil {
		errs["walletId"] = "walletId is required"
	}
	if err := validation.ValidateID(tx.Token); err != nil {
		errs["token"] = "token is required"
	}

	direction, err := model.ParseDirection(field(ColumnDirection))
	if err != nil {
		errs["direction"] = err.Error()
	}
	tx.Direction = direction

	if tx.Quantity, err = money.Parse(field(ColumnQuantity), money.QuantityScale); err != nil {
		errs["quantity"] = err.Error()
		causes = append(causes, err)
	}

	if s := field(ColumnUnitPrice); s != "" {
		price, err := money.Parse(s, money.PriceScale)
		if err != nil {
			errs["unitPrice"] = err.Error()
			causes = append(causes, err)
		} else {
			tx.UnitPrice = &price
		}
	}

	tx.FeeQuantity = decimal.Zero
	if s := field(ColumnFee); s != "" {
		if tx.FeeQuantity, err = money.Parse(s, money.QuantityScale); err != nil {
			errs["feeQuantity"] = err.Error()
			causes = append(causes, err)
		}
	}

	if tx.Timestamp, err = parseTimestamp(field(ColumnTimestamp)); err != nil {
		errs["timestamp"] = err.Error()
	}

	if len(errs) > 0 {
		return tx, &validation.Error{Fields: errs, Causes: causes}
	}
	return tx, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("timestamp is required")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
