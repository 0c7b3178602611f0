package market

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// AllowedSymbols is the fixed subset shown in the always-visible ticker strip
// and on the dashboard. Everything else is dropped by the ticker pipeline but
// retained by the full market view.
var AllowedSymbols = []string{
	"Gram Altın",
	"Altın Ons",
	"Gümüş Ons",
	"Gram Gümüş",
}

// displayOrder fixes the row order of the full market view. Codes not listed
// here sort after all known ones, keeping their original relative order.
var displayOrder = []string{
	"Has Altın",
	"Altın Ons",
	"Gram Gümüş",
	"Gümüş Ons",
	"14 Ayar Altın",
	"22 Ayar Altın",
	"Gram Altın",
	"Çeyrek Altın",
	"Yarım Altın",
	"Tam Altın",
	"Ata Altın",
	"Ata 5'li",
	"Gremse Altın",
}

// rawTick mirrors one feed entry. Field types are deliberately loose: the
// provider sends prices sometimes as strings, sometimes as numbers, and omits
// fields freely, so everything is coerced after decoding.
type rawTick struct {
	Symbol string          `json:"symbol"`
	Code   string          `json:"code"`
	Buy    json.RawMessage `json:"buy"`
	Sell   json.RawMessage `json:"sell"`
	Price  json.RawMessage `json:"price"`
	Change json.RawMessage `json:"change"`
}

type envelope struct {
	Tickers []rawTick `json:"tickers"`
	Time    string    `json:"time"`
}

// ParseMessage decodes one feed payload, which is either a bare array of raw
// ticks or an envelope {"tickers": [...], "time": "..."}. Both shapes are
// accepted transparently. Malformed input never raises; the worst case is
// (Message{}, false). Entries without a derivable code are dropped.
func ParseMessage(data []byte) (Message, bool) {
	var raws []rawTick
	var msg Message
	if err := json.Unmarshal(data, &raws); err != nil {
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return Message{}, false
		}
		raws = env.Tickers
		msg.Time = env.Time
	}

	msg.Ticks = make([]Tick, 0, len(raws))
	for _, r := range raws {
		code := r.Symbol
		if code == "" {
			code = r.Code
		}
		if code == "" {
			continue
		}
		t := Tick{
			Code:    code,
			RawCode: r.Code,
			Buy:     coerceDecimal(r.Buy),
			Sell:    coerceDecimal(r.Sell),
			Change:  coerceDecimal(r.Change),
		}
		t.Price = coerceDecimal(r.Price)
		if t.Price.IsZero() {
			t.Price = t.Sell
		}
		msg.Ticks = append(msg.Ticks, t)
	}
	return msg, true
}

// coerceDecimal accepts a JSON string or number; absent, null or garbage all
// collapse to zero.
func coerceDecimal(raw json.RawMessage) decimal.Decimal {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return decimal.Zero
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Allowed reports whether code is in the ticker-strip allow-list.
func Allowed(code string) bool {
	return slices.Contains(AllowedSymbols, code)
}

// FilterAllowed keeps only allow-listed ticks, preserving order.
func FilterAllowed(ticks []Tick) []Tick {
	out := make([]Tick, 0, len(AllowedSymbols))
	for _, t := range ticks {
		if Allowed(t.Code) {
			out = append(out, t)
		}
	}
	return out
}

// SortDisplay orders ticks by the fixed market-view order, unknown codes
// last. The sort is stable so unknown codes keep their feed order.
func SortDisplay(ticks []Tick) []Tick {
	out := slices.Clone(ticks)
	slices.SortStableFunc(out, func(a, b Tick) int {
		return displayRank(a.Code) - displayRank(b.Code)
	})
	return out
}

func displayRank(code string) int {
	if i := slices.Index(displayOrder, code); i != -1 {
		return i
	}
	return len(displayOrder)
}
