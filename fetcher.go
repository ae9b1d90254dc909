package ptfs

import "context"

// Target is a security to fetch a quote for.
// Sources usually serve each asset class from a different page.
type Target struct {
	ISIN  ISIN
	Class AssetClass
}

// Fetcher retrieves raw quote text blocks from a market data source.
//
// The result has one entry per requested target. An empty string means the
// retrieval failed for that identifier (network error, missing page,
// timeout). Fetch does not return errors: failures are per identifier.
type Fetcher interface {
	Fetch(ctx context.Context, targets []Target) map[ISIN]string
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, targets []Target) map[ISIN]string

func (f FetcherFunc) Fetch(ctx context.Context, targets []Target) map[ISIN]string {
	return f(ctx, targets)
}

// Fallback returns a Fetcher that asks secondary only for targets primary failed to retrieve.
func Fallback(primary, secondary Fetcher) Fetcher {
	return FetcherFunc(func(ctx context.Context, targets []Target) map[ISIN]string {
		res := complete(primary.Fetch(ctx, targets), targets)
		var missing []Target
		for _, t := range targets {
			if res[t.ISIN] == "" {
				missing = append(missing, t)
			}
		}
		if len(missing) == 0 {
			return res
		}
		for isin, raw := range secondary.Fetch(ctx, missing) {
			if prev, requested := res[isin]; requested && prev == "" {
				res[isin] = raw
			}
		}
		return res
	})
}

// complete makes sure that every target has an entry in raw, and drops entries that were not requested.
func complete(raw map[ISIN]string, targets []Target) map[ISIN]string {
	res := make(map[ISIN]string, len(targets))
	for _, t := range targets {
		res[t.ISIN] = raw[t.ISIN]
	}
	return res
}
