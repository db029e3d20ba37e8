// Package money holds the decimal arithmetic shared by every quantity and
// monetary amount in the calculator. All values are shopspring decimals;
// there is no binary floating-point path.
package money

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Crypto-Tax-Calculator/internal/apperrors"
)

// Fixed scales (fractional digits) used for rounding and for input validation.
const (
	// QuantityScale bounds token quantities.
	QuantityScale int32 = 18
	// PriceScale bounds unit prices and derived unit costs.
	PriceScale int32 = 18
	// AmountScale bounds quote-currency amounts produced by division.
	AmountScale int32 = 8
)

var two = decimal.NewFromInt(2)

// thousandsGrouped matches an integer part grouped in threes by commas.
var thousandsGrouped = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d*)?$`)

// Parse converts a decimal string into a Decimal, rejecting values that need
// more than scale fractional digits. Surrounding whitespace and commas that
// group the integer part in threes ("1,234.5") are tolerated; any other comma,
// such as a decimal comma in "0,5", is an error. An empty string is an error.
func Parse(s string, scale int32) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty decimal value")
	}
	if strings.Contains(s, ",") {
		if !thousandsGrouped.MatchString(s) {
			return decimal.Zero, fmt.Errorf("failed to parse decimal %q: comma is only allowed as a thousands separator", s)
		}
		s = strings.ReplaceAll(s, ",", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse decimal %q: %w", s, err)
	}

	if err := CheckScale(d, scale); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// CheckScale returns ErrPrecisionOverflow when d cannot be represented with
// scale fractional digits. Trailing zeros do not count.
func CheckScale(d decimal.Decimal, scale int32) error {
	if d.Exponent() >= -scale {
		return nil
	}
	if !d.Truncate(scale).Equal(d) {
		return fmt.Errorf("%w: %s exceeds %d fractional digits", apperrors.ErrPrecisionOverflow, d.String(), scale)
	}
	return nil
}

// DivHalfEven returns a / b rounded half-to-even at scale fractional digits.
// The rounding decision is made on the exact remainder, so results are
// reproducible regardless of the library's default division precision.
func DivHalfEven(a, b decimal.Decimal, scale int32) (decimal.Decimal, error) {
	if b.IsZero() {
		return decimal.Zero, apperrors.ErrDivisionByZero
	}

	q, r := a.QuoRem(b, scale)
	if r.IsZero() {
		return q, nil
	}

	ulp := decimal.New(1, -scale)
	// |r| < |b| * ulp, so comparing 2|r| against |b| * ulp locates the half point.
	cmp := r.Abs().Mul(two).Cmp(b.Abs().Mul(ulp))
	if cmp < 0 {
		return q, nil
	}
	if cmp == 0 && !isOdd(q, scale) {
		return q, nil
	}

	if a.Sign()*b.Sign() < 0 {
		return q.Sub(ulp), nil
	}
	return q.Add(ulp), nil
}

// MulDivHalfEven returns a * b / c rounded half-to-even. The product is exact.
func MulDivHalfEven(a, b, c decimal.Decimal, scale int32) (decimal.Decimal, error) {
	return DivHalfEven(a.Mul(b), c, scale)
}

// Min returns the smaller of a and b.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// IsPositive reports whether d > 0.
func IsPositive(d decimal.Decimal) bool {
	return d.Sign() > 0
}

func isOdd(q decimal.Decimal, scale int32) bool {
	return q.Shift(scale).BigInt().Bit(0) == 1
}
