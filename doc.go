// Package ptfs records the market prices of a portfolio of ETFs and equities.
//
// A Portfolio is built from holdings grouped by AssetClass: identifiers are
// validated ISINs, duplicates within a class are summed, and an ISIN held in
// two classes is rejected.
//
// A run fetches one quote per holding through a Fetcher, parses it with
// ParseQuote, and builds one Row per holding with BuildSnapshot. A quote
// that cannot be fetched or parsed only leaves its row without a price.
//
//	rows, _ := ptfs.Collect(ctx, p, fetcher, time.Now())
//
// Rows are meant to be appended to a time series, see package timeseries.
// The package does not log and never touches the network itself: fetchers
// live in packages justetf and tradegate.
package ptfs
