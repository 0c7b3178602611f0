// Package portfolio derives the worth of the user's holdings from the
// current price snapshot. Everything here is a pure recomputation: outputs
// are never cached across an input change.
package portfolio

import (
	"github.com/shopspring/decimal"

	"sarraf/internal/market"
)

// Holding is one user-owned asset quantity. At most one entry per code;
// Amount is always strictly positive (the mutator deletes on zero).
type Holding struct {
	Code   string          `json:"code"`
	Amount decimal.Decimal `json:"amount"`
}

// ValuedHolding joins a holding with its matching price entry. Holdings
// without a matching entry keep zero price, value and change but stay in the
// list.
type ValuedHolding struct {
	Code         string          `json:"code"`
	Amount       decimal.Decimal `json:"amount"`
	CurrentPrice decimal.Decimal `json:"currentPrice"`
	TotalValue   decimal.Decimal `json:"totalValue"`
	Change       decimal.Decimal `json:"change"`
}

// Aggregate is the whole-portfolio valuation. ChangePercent is value-weighted
// against the reconstructed previous-period total, and zero when that total
// is not strictly positive.
type Aggregate struct {
	TotalValue    decimal.Decimal `json:"totalValue"`
	ChangePercent decimal.Decimal `json:"totalChangePercent"`
}

// Slice is one holding's share of the portfolio for proportional display.
type Slice struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
}

var (
	hundred      = decimal.NewFromInt(100)
	minusHundred = decimal.NewFromInt(-100)
)

// Valuate joins holdings against the price snapshot on the SELL side and
// computes per-holding and aggregate valuation.
//
// The previous price is reconstructed as price / (1 + change/100). A change
// of exactly -100 would divide by zero; such a holding still counts toward
// the current total but is skipped when reconstructing the previous one.
func Valuate(holdings []Holding, entries []market.Entry) ([]ValuedHolding, Aggregate) {
	byCode := indexEntries(entries)

	valued := make([]ValuedHolding, 0, len(holdings))
	total := decimal.Zero
	prevTotal := decimal.Zero

	for _, h := range holdings {
		e, ok := byCode[h.Code]
		if !ok {
			valued = append(valued, ValuedHolding{
				Code:         h.Code,
				Amount:       h.Amount,
				CurrentPrice: decimal.Zero,
				TotalValue:   decimal.Zero,
				Change:       decimal.Zero,
			})
			continue
		}

		price := e.Sell
		value := price.Mul(h.Amount)
		total = total.Add(value)

		if !e.Change.Equal(minusHundred) {
			prevPrice := price.Div(decimal.NewFromInt(1).Add(e.Change.Div(hundred)))
			prevTotal = prevTotal.Add(prevPrice.Mul(h.Amount))
		}

		valued = append(valued, ValuedHolding{
			Code:         h.Code,
			Amount:       h.Amount,
			CurrentPrice: price,
			TotalValue:   value,
			Change:       e.Change,
		})
	}

	agg := Aggregate{TotalValue: total, ChangePercent: decimal.Zero}
	if prevTotal.IsPositive() {
		agg.ChangePercent = total.Sub(prevTotal).Div(prevTotal).Mul(hundred)
	}
	return valued, agg
}

// Distribution projects holdings to name→value slices for the proportion
// chart, valued on the BUY side. Non-positive values are excluded entirely;
// percentages of the whole are the renderer's business.
func Distribution(holdings []Holding, entries []market.Entry) []Slice {
	byCode := indexEntries(entries)

	out := make([]Slice, 0, len(holdings))
	for _, h := range holdings {
		e, ok := byCode[h.Code]
		if !ok {
			continue
		}
		value := e.Buy.Mul(h.Amount)
		if !value.IsPositive() {
			continue
		}
		out = append(out, Slice{Name: h.Code, Value: value})
	}
	return out
}

func indexEntries(entries []market.Entry) map[string]market.Entry {
	byCode := make(map[string]market.Entry, len(entries))
	for _, e := range entries {
		byCode[e.Code] = e
	}
	return byCode
}
