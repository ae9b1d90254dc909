package ptfs

import "testing"

func price(v float64) *float64 { return &v }

func TestNewReport(t *testing.T) {
	rows := []Row{
		{ISIN: msciWorld, Class: ETF, Quantity: Q(3), Currency: "EUR", Price: price(98.5), RunAt: "10:20 AM 03/01/2024"},
		{ISIN: apple, Class: Equity, Quantity: Q(10), RunAt: "10:20 AM 03/01/2024"},
		{ISIN: msciWorld, Class: ETF, Quantity: Q(4), RunAt: "10:20 AM 03/02/2024"},
		{ISIN: apple, Class: Equity, Quantity: Q(10), Currency: "USD", Price: price(170.1), RunAt: "10:20 AM 03/02/2024"},
		{ISIN: vw, Class: Equity, Quantity: Q(1), RunAt: "10:20 AM 03/02/2024"},
	}
	r := NewReport(rows)

	if r.Rows != 5 || len(r.Runs) != 2 {
		t.Fatalf("NewReport() has %d rows, %d runs, want 5 rows, 2 runs", r.Rows, len(r.Runs))
	}
	latest := r.Latest()
	if latest.RunAt != "10:20 AM 03/02/2024" || len(latest.Rows) != 3 {
		t.Errorf("Latest() = %+v", latest)
	}
	if len(r.Securities) != 3 {
		t.Fatalf("Securities = %d, want 3", len(r.Securities))
	}

	world := r.Securities[0]
	if world.ISIN != msciWorld || world.Observations != 2 || world.Priced != 1 {
		t.Errorf("Securities[0] = %+v", world)
	}
	if world.LastPrice == nil || *world.LastPrice != 98.5 || world.LastPriced != "10:20 AM 03/01/2024" {
		t.Errorf("Securities[0] last price = %v on %q, want 98.5 on the first run", world.LastPrice, world.LastPriced)
	}
	if !world.Quantity.Equal(Q(4)) || world.LastRun != "10:20 AM 03/02/2024" {
		t.Errorf("Securities[0] = %+v, want the latest quantity and run", world)
	}
	if r.Securities[2].LastPrice != nil || r.Securities[2].FirstRun != "10:20 AM 03/02/2024" {
		t.Errorf("Securities[2] = %+v, want never priced", r.Securities[2])
	}
}

func TestNewReport_Empty(t *testing.T) {
	r := NewReport(nil)
	if r.Latest() != nil || r.Rows != 0 {
		t.Errorf("NewReport(nil) = %+v, want empty", r)
	}
}

// Two runs within the same minute share their timestamp.
func TestNewReport_SameMinute(t *testing.T) {
	const at = "06:00 PM 03/01/2024"
	rows := []Row{
		{ISIN: msciWorld, Class: ETF, Quantity: Q(3), RunAt: at},
		{ISIN: apple, Class: Equity, Quantity: Q(10), RunAt: at},
		{ISIN: msciWorld, Class: ETF, Quantity: Q(3), Currency: "EUR", Price: price(98.5), RunAt: at},
		{ISIN: apple, Class: Equity, Quantity: Q(10), RunAt: at},
	}
	r := NewReport(rows)
	if len(r.Runs) != 2 {
		t.Fatalf("NewReport() has %d runs, want 2", len(r.Runs))
	}
	for i, run := range r.Runs {
		if len(run.Rows) != 2 {
			t.Errorf("Runs[%d] has %d rows, want 2", i, len(run.Rows))
		}
	}
	if r.Latest().Rows[0].Price == nil {
		t.Errorf("Latest() = %+v, want the second run", r.Latest())
	}
}
