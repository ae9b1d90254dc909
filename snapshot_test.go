package ptfs

import (
	"context"
	"testing"
	"time"
)

func testPortfolio(t *testing.T) *Portfolio {
	t.Helper()
	p, err := Build([]Holding{
		{ISIN: msciWorld, Class: ETF, Quantity: Q(3)},
		{ISIN: xtrackers, Class: ETF, Quantity: Q(2)},
		{ISIN: apple, Class: Equity, Quantity: Q(10)},
	})
	if err != nil {
		t.Fatalf("Build() unexpected error: %v", err)
	}
	return p
}

func TestBuildSnapshot(t *testing.T) {
	p := testPortfolio(t)
	at := time.Date(2024, time.March, 1, 10, 15, 0, 0, time.UTC)
	quotes := map[ISIN]Quote{
		msciWorld: NewQuote(msciWorld, "EUR", 98.5, at),
		xtrackers: FailedQuote(xtrackers),
	}
	rows := BuildSnapshot(p, quotes, "10:20 AM 03/01/2024")
	if len(rows) != 3 {
		t.Fatalf("BuildSnapshot() returned %d rows, want 3", len(rows))
	}
	for _, row := range rows {
		if row.RunAt != "10:20 AM 03/01/2024" {
			t.Errorf("row %s RunAt = %q", row.ISIN, row.RunAt)
		}
	}
	if rows[0].ISIN != msciWorld || !rows[0].HasPrice() || *rows[0].Price != 98.5 || rows[0].Currency != "EUR" {
		t.Errorf("rows[0] = %+v, want %s EUR 98.5", rows[0], msciWorld)
	}
	if rows[1].ISIN != xtrackers || rows[1].HasPrice() || rows[1].Currency != "" {
		t.Errorf("rows[1] = %+v, want %s without price", rows[1], xtrackers)
	}
	if rows[2].ISIN != apple || rows[2].HasPrice() || !rows[2].Quantity.Equal(Q(10)) {
		t.Errorf("rows[2] = %+v, want %s without price and quantity 10", rows[2], apple)
	}
}

func TestCollect_FailedFetchDoesNotBlockOthers(t *testing.T) {
	p := testPortfolio(t)
	var requested []Target
	f := FetcherFunc(func(_ context.Context, targets []Target) map[ISIN]string {
		requested = targets
		return map[ISIN]string{
			msciWorld: "EUR 98.50\nQuote 01/03/2024 10:15:00",
			xtrackers: "",
			// apple is missing altogether, and an unrequested isin is returned.
			vw: "EUR 1.00\nQuote 01/03/2024 10:15:00",
		}
	})
	at := time.Date(2024, time.March, 1, 10, 20, 0, 0, time.Local)
	rows, quotes := Collect(context.Background(), p, f, at)

	if len(requested) != 3 || requested[2] != (Target{ISIN: apple, Class: Equity}) {
		t.Errorf("Fetch() targets = %v", requested)
	}
	if len(rows) != 3 {
		t.Fatalf("Collect() returned %d rows, want 3", len(rows))
	}
	if !rows[0].HasPrice() || *rows[0].Price != 98.5 {
		t.Errorf("rows[0] = %+v, want a price of 98.5", rows[0])
	}
	if rows[1].HasPrice() || rows[2].HasPrice() {
		t.Errorf("rows = %+v, want no price for failed fetches", rows)
	}
	if rows[0].RunAt != "10:20 AM 03/01/2024" {
		t.Errorf("RunAt = %q, want %q", rows[0].RunAt, "10:20 AM 03/01/2024")
	}
	if _, ok := quotes[vw]; ok {
		t.Errorf("Collect() returned a quote for an unrequested ISIN")
	}
	if q := quotes[apple]; q.OK() {
		t.Errorf("quote for %s = %v, want failed", apple, q)
	}
}

func TestFallback(t *testing.T) {
	primary := FetcherFunc(func(_ context.Context, targets []Target) map[ISIN]string {
		return map[ISIN]string{msciWorld: "EUR 1\n01/03/2024 10:15:00"}
	})
	var asked []Target
	secondary := FetcherFunc(func(_ context.Context, targets []Target) map[ISIN]string {
		asked = targets
		return map[ISIN]string{apple: "EUR 2\n01/03/2024 10:15:00", msciWorld: "EUR 3\n01/03/2024 10:15:00"}
	})
	targets := []Target{{msciWorld, ETF}, {apple, Equity}}
	res := Fallback(primary, secondary).Fetch(context.Background(), targets)

	if len(asked) != 1 || asked[0].ISIN != apple {
		t.Errorf("secondary asked for %v, want only %s", asked, apple)
	}
	if res[msciWorld] != "EUR 1\n01/03/2024 10:15:00" {
		t.Errorf("primary result was overwritten: %q", res[msciWorld])
	}
	if res[apple] != "EUR 2\n01/03/2024 10:15:00" {
		t.Errorf("fallback result = %q", res[apple])
	}
}
