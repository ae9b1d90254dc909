package ptfs

// Run is the set of rows recorded by a single run.
type Run struct {
	RunAt string
	Rows  []Row
}

// SecurityHistory summarizes the observations of one security across runs.
type SecurityHistory struct {
	ISIN         ISIN
	Class        AssetClass
	Observations int // number of rows
	Priced       int // number of rows with a price
	FirstRun     string
	LastRun      string
	Quantity     Quantity // latest quantity
	LastPrice    *float64 // latest known price, nil if never priced
	LastCurrency string
	LastPriced   string // run of the latest known price
}

// Report is a read-only view of a time series.
type Report struct {
	Rows       int
	Runs       []Run
	Securities []SecurityHistory // in order of first appearance
}

// Latest returns the most recent run, nil if there is none.
func (r *Report) Latest() *Run {
	if len(r.Runs) == 0 {
		return nil
	}
	return &r.Runs[len(r.Runs)-1]
}

// NewReport builds a report from the rows of a time series, in append order.
//
// A run is a sequence of consecutive rows sharing the same run timestamp.
// Run timestamps have a minute precision, so an identifier appearing twice
// also starts a new run: it is two runs recorded within the same minute.
func NewReport(rows []Row) *Report {
	r := &Report{Rows: len(rows)}
	index := make(map[ISIN]int)
	var seen map[ISIN]bool // identifiers of the current run
	for _, row := range rows {
		if n := len(r.Runs); n == 0 || r.Runs[n-1].RunAt != row.RunAt || seen[row.ISIN] {
			r.Runs = append(r.Runs, Run{RunAt: row.RunAt})
			seen = make(map[ISIN]bool)
		}
		seen[row.ISIN] = true
		last := &r.Runs[len(r.Runs)-1]
		last.Rows = append(last.Rows, row)

		i, ok := index[row.ISIN]
		if !ok {
			i = len(r.Securities)
			index[row.ISIN] = i
			r.Securities = append(r.Securities, SecurityHistory{ISIN: row.ISIN, FirstRun: row.RunAt})
		}
		s := &r.Securities[i]
		s.Observations++
		s.LastRun = row.RunAt
		s.Quantity = row.Quantity
		if row.Class != "" {
			s.Class = row.Class
		}
		if row.Price != nil {
			s.Priced++
			price := *row.Price
			s.LastPrice = &price
			s.LastCurrency = row.Currency
			s.LastPriced = row.RunAt
		}
	}
	return r
}
