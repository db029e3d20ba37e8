package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaxRecord is one disposal-to-lot match. A disposal spanning several lots
// yields several records; under average cost there is exactly one per disposal.
// Records are immutable once produced.
type TaxRecord struct {
	ID           string          `json:"id"`
	WalletID     string          `json:"walletId"`
	Token        string          `json:"token"`
	Method       Method          `json:"method"`
	DisposalTxID string          `json:"disposalTxId"`
	LotTxID      string          `json:"lotTxId,omitempty"` // empty under average cost
	Quantity     decimal.Decimal `json:"quantity"`
	Proceeds     decimal.Decimal `json:"proceeds"`
	CostBasis    decimal.Decimal `json:"costBasis"`
	GainLoss     decimal.Decimal `json:"gainLoss"`
	UnitCost     decimal.Decimal `json:"unitCost"`
	DisposedAt   time.Time       `json:"disposedAt"`
	AcquiredAt   time.Time       `json:"acquiredAt,omitzero"`
	TaxYear      int             `json:"taxYear"`
}

// ShortfallWarning reports disposal quantity that no open lot or pool could cover.
// It is recoverable: records for the matched part are still emitted.
type ShortfallWarning struct {
	WalletID          string          `json:"walletId"`
	Token             string          `json:"token"`
	Method            Method          `json:"method"`
	DisposalTxID      string          `json:"disposalTxId"`
	Requested         decimal.Decimal `json:"requested"`
	UnmatchedQuantity decimal.Decimal `json:"unmatchedQuantity"`
}
