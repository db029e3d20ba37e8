// Package ledger turns raw transactions into the strictly ordered, per
// (wallet, token) event streams consumed by the cost-basis engine.
package ledger

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Crypto-Tax-Calculator/internal/apperrors"
	"github.com/ndewijer/Crypto-Tax-Calculator/internal/model"
	"github.com/ndewijer/Crypto-Tax-Calculator/internal/money"
	"github.com/ndewijer/Crypto-Tax-Calculator/internal/validation"
)

// DefaultQuoteCurrency is used when neither the options nor the transaction name one.
const DefaultQuoteCurrency = "USD"

// Options controls normalization.
type Options struct {
	// Method, when set, enables method-specific checks. Under average cost a
	// disposal seen before any acquisition of its pair is rejected.
	Method model.Method
	// QuoteCurrency is the currency unit prices are expressed in, unless the
	// transaction carries its own.
	QuoteCurrency string
}

// InvalidTransactionError reports a single rejected transaction. It matches
// apperrors.ErrInvalidTransaction with errors.Is and exposes the field errors
// through errors.As.
type InvalidTransactionError struct {
	TxID  string
	Index int // position in the input slice
	Err   error
}

func (e *InvalidTransactionError) Error() string {
	return fmt.Sprintf("invalid transaction %q at index %d: %v", e.TxID, e.Index, e.Err)
}

func (e *InvalidTransactionError) Unwrap() []error {
	return []error{apperrors.ErrInvalidTransaction, e.Err}
}

type indexed struct {
	tx    model.Transaction
	index int
}

// Normalize validates, orders and splits transactions into per-pair event
// streams. Rejected transactions are returned alongside the stream in input
// order; they never abort the batch.
//
// Ordering is (timestamp, sequence, input position), so ties on both
// timestamp and sequence keep the order the caller supplied.
func Normalize(txs []model.Transaction, opts Options) (*model.EventStream, []*InvalidTransactionError) {
	quote := opts.QuoteCurrency
	if strings.TrimSpace(quote) == "" {
		quote = DefaultQuoteCurrency
	}

	var rejected []*InvalidTransactionError
	reject := func(it indexed, err error) {
		rejected = append(rejected, &InvalidTransactionError{TxID: it.tx.ID, Index: it.index, Err: err})
	}

	valid := make([]indexed, 0, len(txs))
	for i, tx := range txs {
		if err := validation.ValidateTransaction(tx); err != nil {
			reject(indexed{tx: tx, index: i}, err)
			continue
		}
		valid = append(valid, indexed{tx: tx, index: i})
	}

	slices.SortStableFunc(valid, func(a, b indexed) int {
		if c := a.tx.Timestamp.Compare(b.tx.Timestamp); c != 0 {
			return c
		}
		if c := cmp.Compare(a.tx.Sequence, b.tx.Sequence); c != 0 {
			return c
		}
		return cmp.Compare(a.index, b.index)
	})

	partitions := make(map[model.PartitionKey]*model.Partition)
	acquired := make(map[model.PartitionKey]bool)

	for _, it := range valid {
		key := it.tx.Key()
		txQuote := quote
		if q := strings.TrimSpace(it.tx.QuoteCurrency); q != "" {
			txQuote = q
		}

		if classifyFee(it.tx, txQuote) == feeInQuote {
			if err := validation.ValidateQuoteFee(it.tx.FeeQuantity); err != nil {
				reject(it, err)
				continue
			}
		}

		var event model.Event
		switch it.tx.Direction {
		case model.DirectionAcquire:
			a, err := newAcquisition(it.tx, txQuote)
			if err != nil {
				reject(it, err)
				continue
			}
			acquired[key] = true
			event = a
		case model.DirectionDispose:
			if opts.Method == model.MethodAverageCost && !acquired[key] {
				reject(it, &validation.Error{Fields: map[string]string{
					"direction": "disposal before any acquisition: average cost of an empty pool is undefined",
				}})
				continue
			}
			event = newDisposal(it.tx, txQuote)
		}

		p, ok := partitions[key]
		if !ok {
			p = &model.Partition{Key: key}
			partitions[key] = p
		}
		p.Events = append(p.Events, event)
	}

	stream := &model.EventStream{Partitions: make([]model.Partition, 0, len(partitions))}
	for _, p := range partitions {
		stream.Partitions = append(stream.Partitions, *p)
	}
	slices.SortFunc(stream.Partitions, func(a, b model.Partition) int {
		if c := cmp.Compare(a.Key.WalletID, b.Key.WalletID); c != 0 {
			return c
		}
		return cmp.Compare(a.Key.Token, b.Key.Token)
	})

	slices.SortFunc(rejected, func(a, b *InvalidTransactionError) int {
		return cmp.Compare(a.Index, b.Index)
	})

	return stream, rejected
}

type feeKind int

const (
	feeNone feeKind = iota
	feeInQuote
	feeInToken
	feeInOtherToken
)

func classifyFee(tx model.Transaction, quote string) feeKind {
	if !money.IsPositive(tx.FeeQuantity) {
		return feeNone
	}
	feeToken := strings.TrimSpace(tx.FeeToken)
	switch {
	case feeToken == "" || strings.EqualFold(feeToken, quote):
		return feeInQuote
	case strings.EqualFold(feeToken, tx.Token):
		return feeInToken
	default:
		return feeInOtherToken
	}
}

func meta(tx model.Transaction) model.EventMeta {
	return model.EventMeta{
		TxID:      tx.ID,
		WalletID:  tx.WalletID,
		Token:     tx.Token,
		Timestamp: tx.Timestamp.UTC(),
		Sequence:  tx.Sequence,
	}
}

// newAcquisition derives the lot quantity and cost of an acquisition.
// Quote-currency fees add to cost; fees in the acquired token reduce the
// quantity received; fees in any other token are ignored.
func newAcquisition(tx model.Transaction, quote string) (*model.Acquisition, error) {
	price := *tx.UnitPrice
	received := tx.Quantity
	totalCost := tx.Quantity.Mul(price)
	feeIgnored := false

	switch classifyFee(tx, quote) {
	case feeInQuote:
		totalCost = totalCost.Add(tx.FeeQuantity)
	case feeInToken:
		if err := validation.ValidateTokenFee(tx.Quantity, tx.FeeQuantity); err != nil {
			return nil, err
		}
		received = tx.Quantity.Sub(tx.FeeQuantity)
	case feeInOtherToken:
		feeIgnored = true
	}

	unitCost, err := money.DivHalfEven(totalCost, received, money.PriceScale)
	if err != nil {
		return nil, fmt.Errorf("failed to derive unit cost: %w", err)
	}

	return &model.Acquisition{
		EventMeta:  meta(tx),
		Quantity:   received,
		TotalCost:  totalCost,
		UnitCost:   unitCost,
		FeeIgnored: feeIgnored,
	}, nil
}

// newDisposal values the disposal fee in quote currency. A fee paid in the
// disposed token is part of the gross quantity and is valued at the disposal price.
func newDisposal(tx model.Transaction, quote string) *model.Disposal {
	price := *tx.UnitPrice
	fee := decimal.Zero
	feeIgnored := false

	switch classifyFee(tx, quote) {
	case feeInQuote:
		fee = tx.FeeQuantity
	case feeInToken:
		fee = tx.FeeQuantity.Mul(price)
	case feeInOtherToken:
		feeIgnored = true
	}

	return &model.Disposal{
		EventMeta:  meta(tx),
		Quantity:   tx.Quantity,
		UnitPrice:  price,
		Fee:        fee,
		FeeIgnored: feeIgnored,
	}
}
