package market

import (
	"github.com/shopspring/decimal"
)

// Tick is one normalized price update for one asset, produced by ParseMessage.
// Transient: ticks flow into the stores and are never persisted directly.
type Tick struct {
	Code    string          // display code ("Gram Altın"); keys the snapshot
	RawCode string          // provider code ("ALTIN"), when the feed sent one
	Buy     decimal.Decimal
	Sell    decimal.Decimal
	Price   decimal.Decimal // ticker-strip price; falls back to Sell when the feed omits it
	Change  decimal.Decimal // percent delta vs the previous period
}

// Entry is the authoritative per-asset price state held by the market
// snapshot store. Created on first sighting of a code, updated in place on
// every later tick, never deleted within a session.
type Entry struct {
	Code    string          `json:"code"`
	Buy     decimal.Decimal `json:"buy"`
	Sell    decimal.Decimal `json:"sell"`
	Change  decimal.Decimal `json:"change"`
	RawCode string          `json:"rawCode,omitempty"`
}

// TickerEntry is the ticker-strip projection of an asset: the persisted shape
// excludes everything presentational.
type TickerEntry struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	Change decimal.Decimal `json:"change"`
}

// Message is a fully decoded feed payload: the tick batch plus the server
// timestamp when the envelope form carried one.
type Message struct {
	Ticks []Tick
	Time  string
}

func (t Tick) Entry() Entry {
	return Entry{
		Code:    t.Code,
		Buy:     t.Buy,
		Sell:    t.Sell,
		Change:  t.Change,
		RawCode: t.RawCode,
	}
}

func (t Tick) TickerEntry() TickerEntry {
	return TickerEntry{
		Symbol: t.Code,
		Price:  t.Price,
		Change: t.Change,
	}
}
