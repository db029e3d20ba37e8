package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Crypto-Tax-Calculator/internal/repository"
	"github.com/ndewijer/Crypto-Tax-Calculator/internal/service"
)

func NewTestTransactionService(t *testing.T, db *sql.DB) *service.TransactionService {
	t.Helper()

	return service.NewTransactionService(
		db,
		repository.NewTransactionRepository(db),
	)
}

func NewTestSystemService(t *testing.T, db *sql.DB) *service.SystemService {
	t.Helper()

	return service.NewSystemService(
		db,
		"test",
		repository.NewTransactionRepository(db),
		repository.NewTaxRecordRepository(db),
	)
}

// NewTestTaxService wires a TaxService with a non-expiring report cache and
// the default settings (all methods, USD, GOMAXPROCS workers).
func NewTestTaxService(t *testing.T, db *sql.DB) *service.TaxService {
	t.Helper()

	return NewTestTaxServiceWithSettings(t, db, service.TaxSettings{QuoteCurrency: "USD"})
}

func NewTestTaxServiceWithSettings(t *testing.T, db *sql.DB, settings service.TaxSettings) *service.TaxService {
	t.Helper()

	return service.NewTaxService(
		db,
		repository.NewTransactionRepository(db),
		repository.NewTaxRecordRepository(db),
		cache.New(cache.NoExpiration, 0),
		settings,
	)
}

// MakeID generates a UUID string for use in tests.
//
// Example usage:
//
//	id := testutil.MakeID()
//	// Returns: "550e8400-e29b-41d4-a716-446655440000"
func MakeID() string {
	return uuid.New().String()
}

// D parses a decimal literal and panics on malformed input.
func D(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Price returns a pointer to a decimal literal, for Transaction.UnitPrice.
func Price(s string) *decimal.Decimal {
	p := D(s)
	return &p
}

// Day returns midnight UTC of the given day in January 2024.
func Day(n int) time.Time {
	return time.Date(2024, time.January, n, 0, 0, 0, 0, time.UTC)
}

// Date returns midnight UTC of the given date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
