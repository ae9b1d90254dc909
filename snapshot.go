package ptfs

import (
	"context"
	"time"
)

// RunTimestampLayout is the layout of the run timestamp shared by all rows of a run.
// It is meant to be read by humans, not sorted.
const RunTimestampLayout = "03:04 PM 01/02/2006"

// Row is the observation of one holding during one run.
type Row struct {
	ISIN     ISIN       `json:"isin"`
	Class    AssetClass `json:"class,omitempty"`
	Quantity Quantity   `json:"quantity"`
	Currency string     `json:"currency,omitempty"`
	Price    *float64   `json:"price"` // nil when the quote is unknown
	RunAt    string     `json:"t"`
}

// HasPrice reports whether the row carries a price.
func (r Row) HasPrice() bool { return r.Price != nil }

// BuildSnapshot returns one row per holding of p, in p.Holdings() order.
//
// Rows get their price from the matching quote, if known. Holdings without
// a quote or with a failed one have no price: a missing price is never
// replaced by zero.
func BuildSnapshot(p *Portfolio, quotes map[ISIN]Quote, runAt string) []Row {
	holdings := p.Holdings()
	rows := make([]Row, 0, len(holdings))
	for _, h := range holdings {
		row := Row{
			ISIN:     h.ISIN,
			Class:    h.Class,
			Quantity: h.Quantity,
			RunAt:    runAt,
		}
		if q, ok := quotes[h.ISIN]; ok {
			if price, known := q.Price(); known {
				row.Price = &price
				row.Currency = q.Currency()
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// Collect fetches and parses quotes for every holding of p, and returns the
// snapshot rows of a run started at 'at'.
//
// Fetch failures only affect the holdings concerned.
func Collect(ctx context.Context, p *Portfolio, f Fetcher, at time.Time) ([]Row, map[ISIN]Quote) {
	targets := p.Targets()
	raw := complete(f.Fetch(ctx, targets), targets)

	quotes := make(map[ISIN]Quote, len(raw))
	for isin, text := range raw {
		quotes[isin] = ParseQuote(isin, text)
	}
	return BuildSnapshot(p, quotes, at.Format(RunTimestampLayout)), quotes
}
