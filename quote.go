package ptfs

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// QuoteTimeLayout is the layout of the quote timestamp: day first, then month, then year.
const QuoteTimeLayout = "02/01/2006 15:04:05"

// DetailsVersion is the version of the optional quote details extension.
const DetailsVersion = 1

var quoteTimeRegex = regexp.MustCompile(`\d{2}/\d{2}/\d{4} \d{2}:\d{2}:\d{2}`)

// Quote is the latest price of a security.
//
// A Quote is either fully known or failed: a failed Quote has no currency,
// no price and no time. There is no partially known Quote.
type Quote struct {
	isin     ISIN
	currency string
	price    float64
	at       time.Time
	ok       bool
	details  *Details
}

// NewQuote returns a known quote.
func NewQuote(isin ISIN, currency string, price float64, at time.Time) Quote {
	return Quote{isin: isin, currency: currency, price: price, at: at, ok: true}
}

// FailedQuote returns the unknown quote for isin.
func FailedQuote(isin ISIN) Quote { return Quote{isin: isin} }

func (q Quote) ISIN() ISIN { return q.isin }

// OK reports whether the quote is known.
func (q Quote) OK() bool { return q.ok }

// Currency returns the quote's currency code, "" if the quote failed.
func (q Quote) Currency() string { return q.currency }

// Price returns the quote's price and whether it is known.
func (q Quote) Price() (float64, bool) { return q.price, q.ok }

// ObservedAt returns when the source observed that price, zero if the quote failed.
func (q Quote) ObservedAt() time.Time { return q.at }

// Details returns the optional details, nil if not available.
func (q Quote) Details() *Details { return q.details }

func (q Quote) String() string {
	if !q.ok {
		return fmt.Sprintf("%s: unknown", q.isin)
	}
	return fmt.Sprintf("%s: %s %v at %s", q.isin, q.currency, q.price, q.at.Format(QuoteTimeLayout))
}

// Details are optional quote fields. Their absence never makes a quote fail.
type Details struct {
	Version   int
	ChangeAbs float64 // daily change in the quote currency
	ChangePct float64 // daily change in percent
	Spread    float64 // bid/ask spread in percent
	Low52W    float64
	High52W   float64
}

// ParseQuote parses a raw quote block as returned by fetchers.
//
// The block is line oriented:
//
//	EUR 34.56
//	<any text> 01/03/2024 10:15:00 <any text>
//
// The first line holds exactly the currency and the price, the second line
// contains the quote time with the day first. If anything does not match,
// the quote is failed as a whole. ParseQuote never panics.
func ParseQuote(isin ISIN, raw string) Quote {
	currency, price, at, err := parseCore(raw)
	if err != nil {
		return FailedQuote(isin)
	}
	q := NewQuote(isin, currency, price, at)
	if d, err := ParseDetails(raw); err == nil {
		q.details = d
	}
	return q
}

// splitLines splits raw into trimmed lines, tolerating CRLF.
func splitLines(raw string) []string {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return lines
}

func parseCore(raw string) (currency string, price float64, at time.Time, err error) {
	lines := splitLines(raw)
	if len(lines) < 2 {
		return "", 0, time.Time{}, errors.New("missing lines")
	}

	tokens := strings.Fields(lines[0])
	if len(tokens) != 2 {
		return "", 0, time.Time{}, fmt.Errorf("want '<currency> <price>', got %q", lines[0])
	}
	currency = tokens[0]
	price, err = strconv.ParseFloat(tokens[1], 64)
	if err != nil {
		return "", 0, time.Time{}, fmt.Errorf("invalid price: %w", err)
	}
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return "", 0, time.Time{}, fmt.Errorf("invalid price %q", tokens[1])
	}

	stamp := quoteTimeRegex.FindString(lines[1])
	if stamp == "" {
		return "", 0, time.Time{}, fmt.Errorf("no timestamp in %q", lines[1])
	}
	at, err = time.ParseInLocation(QuoteTimeLayout, stamp, time.UTC)
	if err != nil {
		return "", 0, time.Time{}, fmt.Errorf("invalid timestamp: %w", err)
	}
	return currency, price, at, nil
}

// ParseDetails parses the optional fields of a raw quote block.
//
// They are found on line 2 (daily change "abs|pct%"), line 5 (spread "x%"),
// and lines 7 and 8 (52 weeks low and high). Numbers can use ',' as decimal separator.
func ParseDetails(raw string) (*Details, error) {
	lines := splitLines(raw)
	if len(lines) < 9 {
		return nil, fmt.Errorf("details need 9 lines, got %d", len(lines))
	}
	abs, pct, ok := strings.Cut(lines[2], "|")
	if !ok {
		return nil, fmt.Errorf("daily change: want 'abs|pct', got %q", lines[2])
	}
	d := &Details{Version: DetailsVersion}
	var err error
	if d.ChangeAbs, err = parseLocalFloat(abs); err != nil {
		return nil, fmt.Errorf("daily change: %w", err)
	}
	if d.ChangePct, err = parseLocalFloat(pct); err != nil {
		return nil, fmt.Errorf("daily change percent: %w", err)
	}
	if d.Spread, err = parseLocalFloat(lines[5]); err != nil {
		return nil, fmt.Errorf("spread: %w", err)
	}
	if d.Low52W, err = parseLocalFloat(lines[7]); err != nil {
		return nil, fmt.Errorf("52 weeks low: %w", err)
	}
	if d.High52W, err = parseLocalFloat(lines[8]); err != nil {
		return nil, fmt.Errorf("52 weeks high: %w", err)
	}
	return d, nil
}

// parseLocalFloat parses numbers like "+0,35%".
func parseLocalFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "+")
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}
