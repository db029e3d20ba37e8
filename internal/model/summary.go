package model

import "github.com/shopspring/decimal"

// Totals are the sums shared by annual summaries and their per-token breakdown.
type Totals struct {
	TotalGain      decimal.Decimal `json:"totalGain"`
	TotalLoss      decimal.Decimal `json:"totalLoss"` // absolute value of all losses
	Net            decimal.Decimal `json:"net"`
	TotalProceeds  decimal.Decimal `json:"totalProceeds"`
	TotalCostBasis decimal.Decimal `json:"totalCostBasis"`
	RecordCount    int             `json:"recordCount"`
}

// TokenSummary is the per-token breakdown inside an AnnualSummary.
type TokenSummary struct {
	Token string `json:"token"`
	Totals
}

// AnnualSummary groups TaxRecords by (wallet, year, method).
// It is always derived from records and never edited on its own.
type AnnualSummary struct {
	WalletID string `json:"walletId"`
	Year     int    `json:"year"`
	Method   Method `json:"method"`
	Totals
	Tokens []TokenSummary `json:"tokens"`
}
