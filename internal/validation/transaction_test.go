package validation

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Crypto-Tax-Calculator/internal/apperrors"
	"github.com/ndewijer/Crypto-Tax-Calculator/internal/model"
)

func validTransaction() model.Transaction {
	price := decimal.RequireFromString("100")
	return model.Transaction{
		ID:        "tx-1",
		WalletID:  "wallet-1",
		Token:     "ETH",
		Direction: model.DirectionAcquire,
		Quantity:  decimal.RequireFromString("1.5"),
		UnitPrice: &price,
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// TestValidateTransaction tests field validation of raw ledger entries.
//
// WHY: Each rejected field must be reported on its own so a caller can tell
// which part of an imported row is wrong without aborting the batch.
func TestValidateTransaction(t *testing.T) {
	t.Run("valid transaction passes", func(t *testing.T) {
		if err := ValidateTransaction(validTransaction()); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	})

	tests := []struct {
		name   string
		mutate func(*model.Transaction)
		field  string
	}{
		{name: "missing id", mutate: func(tx *model.Transaction) { tx.ID = "" }, field: "id"},
		{name: "missing wallet", mutate: func(tx *model.Transaction) { tx.WalletID = " " }, field: "walletId"},
		{name: "missing token", mutate: func(tx *model.Transaction) { tx.Token = "" }, field: "token"},
		{name: "unknown direction", mutate: func(tx *model.Transaction) { tx.Direction = "stake" }, field: "direction"},
		{name: "zero quantity", mutate: func(tx *model.Transaction) { tx.Quantity = decimal.Zero }, field: "quantity"},
		{name: "negative quantity", mutate: func(tx *model.Transaction) { tx.Quantity = decimal.NewFromInt(-1) }, field: "quantity"},
		{name: "missing price", mutate: func(tx *model.Transaction) { tx.UnitPrice = nil }, field: "unitPrice"},
		{name: "negative price", mutate: func(tx *model.Transaction) {
			p := decimal.NewFromInt(-5)
			tx.UnitPrice = &p
		}, field: "unitPrice"},
		{name: "negative fee", mutate: func(tx *model.Transaction) { tx.FeeQuantity = decimal.NewFromInt(-1) }, field: "feeQuantity"},
		{name: "zero timestamp", mutate: func(tx *model.Transaction) { tx.Timestamp = time.Time{} }, field: "timestamp"},
		{name: "quantity precision overflow", mutate: func(tx *model.Transaction) {
			tx.Quantity = decimal.RequireFromString("0.0000000000000000001")
		}, field: "quantity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := validTransaction()
			tt.mutate(&tx)

			err := ValidateTransaction(tx)
			var verr *Error
			if !errors.As(err, &verr) {
				t.Fatalf("Expected *validation.Error, got %v", err)
			}
			if !verr.Has(tt.field) {
				t.Errorf("Expected field %q to fail, got %v", tt.field, verr.Fields)
			}
		})
	}

	t.Run("reports every failing field", func(t *testing.T) {
		err := ValidateTransaction(model.Transaction{})
		var verr *Error
		if !errors.As(err, &verr) {
			t.Fatalf("Expected *validation.Error, got %v", err)
		}
		for _, field := range []string{"id", "walletId", "token", "direction", "quantity", "unitPrice", "timestamp"} {
			if !verr.Has(field) {
				t.Errorf("Expected field %q in %v", field, verr.Fields)
			}
		}
	})

	t.Run("error message is stable", func(t *testing.T) {
		err := &Error{Fields: map[string]string{"b": "second", "a": "first"}}
		if err.Error() != "a: first; b: second" {
			t.Errorf("Expected sorted message, got %q", err.Error())
		}
	})
}

func TestValidateTokenFee(t *testing.T) {
	if err := ValidateTokenFee(decimal.NewFromInt(10), decimal.NewFromInt(1)); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if err := ValidateTokenFee(decimal.NewFromInt(10), decimal.NewFromInt(10)); err == nil {
		t.Error("Expected error when fee consumes the whole quantity")
	}
}

func TestValidateYear(t *testing.T) {
	for _, year := range []int{0, 2009, 2024} {
		if err := ValidateYear(year); err != nil {
			t.Errorf("ValidateYear(%d) returned unexpected error: %v", year, err)
		}
	}
	if err := ValidateYear(1999); !errors.Is(err, apperrors.ErrInvalidYear) {
		t.Errorf("Expected ErrInvalidYear, got %v", err)
	}
	if err := ValidateID(""); !errors.Is(err, apperrors.ErrEmptyID) {
		t.Errorf("Expected ErrEmptyID, got %v", err)
	}
}

func TestValidateQuoteFee(t *testing.T) {
	if err := ValidateQuoteFee(decimal.RequireFromString("1.12345678")); err != nil {
		t.Errorf("Expected 8 fractional digits to pass, got %v", err)
	}

	err := ValidateQuoteFee(decimal.RequireFromString("1.123456789"))
	var verr *Error
	if !errors.As(err, &verr) || !verr.Has("feeQuantity") {
		t.Fatalf("Expected feeQuantity error, got %v", err)
	}
	if !errors.Is(err, apperrors.ErrPrecisionOverflow) {
		t.Errorf("Expected ErrPrecisionOverflow, got %v", err)
	}
}
