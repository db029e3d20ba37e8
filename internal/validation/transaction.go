package validation

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Crypto-Tax-Calculator/internal/model"
	"github.com/ndewijer/Crypto-Tax-Calculator/internal/money"
)

// ValidateTransaction checks a raw ledger transaction before normalization.
//
// Required fields:
//   - id, walletId, token: non-empty
//   - direction: acquire or dispose
//   - quantity: positive, at most money.QuantityScale fractional digits
//   - unitPrice: present and non-negative, at most money.PriceScale fractional digits
//   - feeQuantity: non-negative, at most money.QuantityScale fractional digits;
//     ValidateQuoteFee tightens this once the fee is known to be in the quote currency
//   - timestamp: set (a zero timestamp is treated as malformed)
//
// Returns a validation Error with field-specific messages if validation fails.
func ValidateTransaction(tx model.Transaction) error {
	errors := make(map[string]string)
	var causes []error

	if strings.TrimSpace(tx.ID) == "" {
		errors["id"] = "id is required"
	}

	if strings.TrimSpace(tx.WalletID) == "" {
		errors["walletId"] = "walletId is required"
	}

	if strings.TrimSpace(tx.Token) == "" {
		errors["token"] = "token is required"
	}

	if tx.Direction != model.DirectionAcquire && tx.Direction != model.DirectionDispose {
		errors["direction"] = "direction must be acquire or dispose"
	}

	if tx.Quantity.Sign() <= 0 {
		errors["quantity"] = "quantity must be positive"
	} else if err := money.CheckScale(tx.Quantity, money.QuantityScale); err != nil {
		errors["quantity"] = err.Error()
		causes = append(causes, err)
	}

	switch {
	case tx.UnitPrice == nil:
		errors["unitPrice"] = "unitPrice is required"
	case tx.UnitPrice.Sign() < 0:
		errors["unitPrice"] = "unitPrice cannot be negative"
	default:
		if err := money.CheckScale(*tx.UnitPrice, money.PriceScale); err != nil {
			errors["unitPrice"] = err.Error()
			causes = append(causes, err)
		}
	}

	if tx.FeeQuantity.Sign() < 0 {
		errors["feeQuantity"] = "feeQuantity cannot be negative"
	} else if err := money.CheckScale(tx.FeeQuantity, money.QuantityScale); err != nil {
		errors["feeQuantity"] = err.Error()
		causes = append(causes, err)
	}

	if tx.Timestamp.IsZero() {
		errors["timestamp"] = "timestamp is missing or malformed"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors, Causes: causes}
	}

	return nil
}

// ValidateTokenFee checks that a fee paid in the acquired token leaves a positive
// quantity received.
func ValidateTokenFee(quantity, fee decimal.Decimal) error {
	if fee.Cmp(quantity) >= 0 {
		return &Error{Fields: map[string]string{
			"feeQuantity": "fee paid in the acquired token must be smaller than quantity",
		}}
	}
	return nil
}

// ValidateQuoteFee checks a fee paid in the quote currency, which is a
// currency amount and carries at most money.AmountScale fractional digits.
func ValidateQuoteFee(fee decimal.Decimal) error {
	if err := money.CheckScale(fee, money.AmountScale); err != nil {
		return &Error{
			Fields: map[string]string{"feeQuantity": err.Error()},
			Causes: []error{err},
		}
	}
	return nil
}
