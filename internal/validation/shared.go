package validation

import (
	"fmt"
	"strings"

	"github.com/ndewijer/Crypto-Tax-Calculator/internal/apperrors"
)

// Supported range for tax year filters.
const (
	MinTaxYear = 2009
	MaxTaxYear = 9999
)

// ValidateID checks that a required identifier is present.
func ValidateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return apperrors.ErrEmptyID
	}
	return nil
}

// ValidateYear checks a tax year filter. Zero means "all years" and is accepted.
func ValidateYear(year int) error {
	if year == 0 {
		return nil
	}
	if year < MinTaxYear || year > MaxTaxYear {
		return fmt.Errorf("%w: %d", apperrors.ErrInvalidYear, year)
	}
	return nil
}
