package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Crypto-Tax-Calculator/internal/apperrors"
)

// Direction tells whether a transaction adds to or removes from a holding.
type Direction string

const (
	DirectionAcquire Direction = "acquire"
	DirectionDispose Direction = "dispose"
)

// directionAliases maps the transaction kinds found in exchange and wallet
// exports onto the two directions the engine understands.
var directionAliases = map[string]Direction{
	"acquire":      DirectionAcquire,
	"buy":          DirectionAcquire,
	"transfer_in":  DirectionAcquire,
	"income":       DirectionAcquire,
	"dispose":      DirectionDispose,
	"sell":         DirectionDispose,
	"swap":         DirectionDispose,
	"transfer_out": DirectionDispose,
}

// ParseDirection resolves a direction or one of its aliases (case-insensitive).
func ParseDirection(s string) (Direction, error) {
	d, ok := directionAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: %q", apperrors.ErrUnknownDirection, s)
	}
	return d, nil
}

// Transaction is a raw ledger entry as supplied by the transaction source.
// It is validated and ordered by the ledger normalizer before the engine sees it.
type Transaction struct {
	ID            string           `json:"id"`
	WalletID      string           `json:"walletId"`
	Token         string           `json:"token"`
	Direction     Direction        `json:"direction"`
	Quantity      decimal.Decimal  `json:"quantity"`
	UnitPrice     *decimal.Decimal `json:"unitPrice,omitempty"` // nil when the source has no price
	QuoteCurrency string           `json:"quoteCurrency,omitempty"`
	FeeQuantity   decimal.Decimal  `json:"feeQuantity"`
	FeeToken      string           `json:"feeToken,omitempty"`
	Timestamp     time.Time        `json:"timestamp"`
	Sequence      int64            `json:"sequence"` // insertion order, breaks timestamp ties
	Source        string           `json:"source,omitempty"`
}

// PartitionKey identifies one independent (wallet, token) stream.
type PartitionKey struct {
	WalletID string
	Token    string
}

func (k PartitionKey) String() string {
	return k.WalletID + "/" + k.Token
}

// Key returns the partition the transaction belongs to.
func (t Transaction) Key() PartitionKey {
	return PartitionKey{WalletID: t.WalletID, Token: t.Token}
}
