// Package report rolls tax records up into per-wallet, per-year, per-method
// summaries. No tax rate is applied.
package report

import (
	"cmp"
	"slices"

	"github.com/ndewijer/Crypto-Tax-Calculator/internal/model"
)

type summaryKey struct {
	walletID string
	year     int
	method   model.Method
}

type group struct {
	totals model.Totals
	tokens map[string]*model.Totals
}

// Aggregate groups records by (wallet, tax year, method). Gains and losses are
// summed separately; TotalLoss holds the absolute value of the losses and
// Net = TotalGain - TotalLoss. The result is sorted by wallet, year and method,
// and each summary's token breakdown is sorted by token.
func Aggregate(records []model.TaxRecord) []model.AnnualSummary {
	groups := make(map[summaryKey]*group)

	for _, r := range records {
		key := summaryKey{walletID: r.WalletID, year: r.TaxYear, method: r.Method}
		g, ok := groups[key]
		if !ok {
			g = &group{tokens: make(map[string]*model.Totals)}
			groups[key] = g
		}
		add(&g.totals, r)

		t, ok := g.tokens[r.Token]
		if !ok {
			t = &model.Totals{}
			g.tokens[r.Token] = t
		}
		add(t, r)
	}

	summaries := make([]model.AnnualSummary, 0, len(groups))
	for key, g := range groups {
		s := model.AnnualSummary{
			WalletID: key.walletID,
			Year:     key.year,
			Method:   key.method,
			Totals:   finish(g.totals),
			Tokens:   make([]model.TokenSummary, 0, len(g.tokens)),
		}
		for token, t := range g.tokens {
			s.Tokens = append(s.Tokens, model.TokenSummary{Token: token, Totals: finish(*t)})
		}
		slices.SortFunc(s.Tokens, func(a, b model.TokenSummary) int {
			return cmp.Compare(a.Token, b.Token)
		})
		summaries = append(summaries, s)
	}

	slices.SortFunc(summaries, func(a, b model.AnnualSummary) int {
		if c := cmp.Compare(a.WalletID, b.WalletID); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Year, b.Year); c != 0 {
			return c
		}
		return cmp.Compare(methodRank(a.Method), methodRank(b.Method))
	})

	return summaries
}

// Filter keeps the summaries of one year (0 keeps every year) and, when
// methods are given, only those methods. Order is preserved.
func Filter(summaries []model.AnnualSummary, year int, methods ...model.Method) []model.AnnualSummary {
	out := make([]model.AnnualSummary, 0, len(summaries))
	for _, s := range summaries {
		if year != 0 && s.Year != year {
			continue
		}
		if len(methods) > 0 && !slices.Contains(methods, s.Method) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func add(t *model.Totals, r model.TaxRecord) {
	switch r.GainLoss.Sign() {
	case 1:
		t.TotalGain = t.TotalGain.Add(r.GainLoss)
	case -1:
		t.TotalLoss = t.TotalLoss.Add(r.GainLoss.Abs())
	}
	t.TotalProceeds = t.TotalProceeds.Add(r.Proceeds)
	t.TotalCostBasis = t.TotalCostBasis.Add(r.CostBasis)
	t.RecordCount++
}

func finish(t model.Totals) model.Totals {
	t.Net = t.TotalGain.Sub(t.TotalLoss)
	return t
}

// methodRank orders methods as listed in model.AllMethods; unknown methods sort last.
func methodRank(m model.Method) int {
	if i := slices.Index(model.AllMethods, m); i >= 0 {
		return i
	}
	return len(model.AllMethods)
}
