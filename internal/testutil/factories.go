package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Crypto-Tax-Calculator/internal/model"
	"github.com/ndewijer/Crypto-Tax-Calculator/internal/repository"
)

// TransactionBuilder provides a fluent interface for creating ledger transactions.
//
// Example usage:
//
//	// In-memory value for engine tests
//	tx := testutil.NewTransaction("w1", "BTC").Acquire("10", "1").At(testutil.Day(1)).Value()
//
//	// Stored in the ledger
//	tx := testutil.NewTransaction("w1", "BTC").Dispose("5", "3").Build(t, db)
type TransactionBuilder struct {
	tx model.Transaction
}

// NewTransaction creates a TransactionBuilder for an acquisition of 1 unit at
// price 1 on Day(1), with a fresh ID.
func NewTransaction(walletID, token string) *TransactionBuilder {
	return &TransactionBuilder{tx: model.Transaction{
		ID:          MakeID(),
		WalletID:    walletID,
		Token:       token,
		Direction:   model.DirectionAcquire,
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   Price("1"),
		FeeQuantity: decimal.Zero,
		Timestamp:   Day(1),
	}}
}

// WithID sets a custom ID.
func (b *TransactionBuilder) WithID(id string) *TransactionBuilder {
	b.tx.ID = id
	return b
}

// Acquire makes the transaction an acquisition of quantity at price.
func (b *TransactionBuilder) Acquire(quantity, price string) *TransactionBuilder {
	b.tx.Direction = model.DirectionAcquire
	b.tx.Quantity = D(quantity)
	b.tx.UnitPrice = Price(price)
	return b
}

// Dispose makes the transaction a disposal of quantity at price.
func (b *TransactionBuilder) Dispose(quantity, price string) *TransactionBuilder {
	b.tx.Direction = model.DirectionDispose
	b.tx.Quantity = D(quantity)
	b.tx.UnitPrice = Price(price)
	return b
}

// WithQuantity sets the raw quantity without validation.
func (b *TransactionBuilder) WithQuantity(quantity decimal.Decimal) *TransactionBuilder {
	b.tx.Quantity = quantity
	return b
}

// WithoutPrice clears the unit price.
func (b *TransactionBuilder) WithoutPrice() *TransactionBuilder {
	b.tx.UnitPrice = nil
	return b
}

// WithFee sets a fee of quantity paid in token. An empty token means the
// quote currency.
func (b *TransactionBuilder) WithFee(quantity, token string) *TransactionBuilder {
	b.tx.FeeQuantity = D(quantity)
	b.tx.FeeToken = token
	return b
}

// WithQuoteCurrency sets the currency the unit price is expressed in.
func (b *TransactionBuilder) WithQuoteCurrency(currency string) *TransactionBuilder {
	b.tx.QuoteCurrency = currency
	return b
}

// At sets the transaction timestamp.
func (b *TransactionBuilder) At(ts time.Time) *TransactionBuilder {
	b.tx.Timestamp = ts
	return b
}

// WithSequence sets the insertion sequence used to break timestamp ties.
func (b *TransactionBuilder) WithSequence(seq int64) *TransactionBuilder {
	b.tx.Sequence = seq
	return b
}

// Value returns the transaction without storing it.
func (b *TransactionBuilder) Value() model.Transaction {
	tx := b.tx
	if b.tx.UnitPrice != nil {
		p := *b.tx.UnitPrice
		tx.UnitPrice = &p
	}
	return tx
}

// Build stores the transaction in the ledger and returns it with its
// assigned sequence.
func (b *TransactionBuilder) Build(t *testing.T, db *sql.DB) model.Transaction {
	t.Helper()

	txs := []model.Transaction{b.Value()}
	if err := repository.NewTransactionRepository(db).InsertTransactions(context.Background(), txs); err != nil {
		t.Fatalf("Failed to create transaction: %v", err)
	}

	return txs[0]
}

// Buy is shorthand for an acquisition value.
func Buy(walletID, token, quantity, price string, at time.Time) model.Transaction {
	return NewTransaction(walletID, token).Acquire(quantity, price).At(at).Value()
}

// Sell is shorthand for a disposal value.
func Sell(walletID, token, quantity, price string, at time.Time) model.Transaction {
	return NewTransaction(walletID, token).Dispose(quantity, price).At(at).Value()
}

// CreateTransactions stores txs in order and returns them with sequences assigned.
func CreateTransactions(t *testing.T, db *sql.DB, txs ...model.Transaction) []model.Transaction {
	t.Helper()

	if err := repository.NewTransactionRepository(db).InsertTransactions(context.Background(), txs); err != nil {
		t.Fatalf("Failed to create transactions: %v", err)
	}

	return txs
}

// TaxRecordBuilder provides a fluent interface for creating tax records.
type TaxRecordBuilder struct {
	rec model.TaxRecord
}

// NewTaxRecord creates a FIFO record of 1 unit with proceeds 2 and cost basis 1
// disposed on Day(2).
func NewTaxRecord(walletID, token, disposalTxID string) *TaxRecordBuilder {
	b := &TaxRecordBuilder{rec: model.TaxRecord{
		ID:           MakeID(),
		WalletID:     walletID,
		Token:        token,
		Method:       model.MethodFIFO,
		DisposalTxID: disposalTxID,
		UnitCost:     D("1"),
	}}
	return b.WithAmounts("1", "2", "1").DisposedAt(Day(2))
}

// WithMethod sets the cost-basis method.
func (b *TaxRecordBuilder) WithMethod(m model.Method) *TaxRecordBuilder {
	b.rec.Method = m
	return b
}

// WithLot sets the matched lot.
func (b *TaxRecordBuilder) WithLot(lotTxID string, acquiredAt time.Time) *TaxRecordBuilder {
	b.rec.LotTxID = lotTxID
	b.rec.AcquiredAt = acquiredAt
	return b
}

// WithAmounts sets quantity, proceeds and cost basis, deriving the gain.
func (b *TaxRecordBuilder) WithAmounts(quantity, proceeds, costBasis string) *TaxRecordBuilder {
	b.rec.Quantity = D(quantity)
	b.rec.Proceeds = D(proceeds)
	b.rec.CostBasis = D(costBasis)
	b.rec.GainLoss = b.rec.Proceeds.Sub(b.rec.CostBasis)
	return b
}

// DisposedAt sets the disposal time and the tax year that follows from it.
func (b *TaxRecordBuilder) DisposedAt(ts time.Time) *TaxRecordBuilder {
	b.rec.DisposedAt = ts
	b.rec.TaxYear = ts.UTC().Year()
	return b
}

// Value returns the record without storing it.
func (b *TaxRecordBuilder) Value() model.TaxRecord {
	return b.rec
}
