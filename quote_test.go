package ptfs

import (
	"testing"
	"time"
)

const apple ISIN = "US0378331005"

func TestParseQuote(t *testing.T) {
	q := ParseQuote(apple, "EUR 34.56\nOther text 01/03/2024 10:15:00 ...")
	if !q.OK() {
		t.Fatalf("ParseQuote() failed, want a known quote")
	}
	if got := q.Currency(); got != "EUR" {
		t.Errorf("Currency() = %q, want %q", got, "EUR")
	}
	if price, ok := q.Price(); !ok || price != 34.56 {
		t.Errorf("Price() = %v, %v, want 34.56, true", price, ok)
	}
	want := time.Date(2024, time.March, 1, 10, 15, 0, 0, time.UTC)
	if got := q.ObservedAt(); !got.Equal(want) {
		t.Errorf("ObservedAt() = %v, want %v", got, want)
	}
	if q.Details() != nil {
		t.Errorf("Details() = %v, want nil for a two lines block", q.Details())
	}
}

func TestParseQuote_Failures(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"single line", "EUR 34.56"},
		{"missing price", "EUR\n01/03/2024 10:15:00"},
		{"extra token", "EUR 34.56 +1%\n01/03/2024 10:15:00"},
		{"non numeric price", "EUR abc\n01/03/2024 10:15:00"},
		{"nan price", "EUR NaN\n01/03/2024 10:15:00"},
		{"infinite price", "EUR +Inf\n01/03/2024 10:15:00"},
		{"missing timestamp", "EUR 34.56\nno date here"},
		{"month first", "EUR 34.56\n12/31/2024 10:15:00"},
		{"invalid time", "EUR 34.56\n01/03/2024 25:15:00"},
		{"timestamp on the wrong line", "EUR 34.56\nQuote\n01/03/2024 10:15:00"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			q := ParseQuote(apple, tc.raw)
			if q.OK() {
				t.Fatalf("ParseQuote(%q) = %v, want a failed quote", tc.raw, q)
			}
			if q.ISIN() != apple {
				t.Errorf("ISIN() = %q, want %q", q.ISIN(), apple)
			}
			if q.Currency() != "" || !q.ObservedAt().IsZero() {
				t.Errorf("failed quote is partially filled: %#v", q)
			}
			if price, ok := q.Price(); ok || price != 0 {
				t.Errorf("Price() = %v, %v, want 0, false", price, ok)
			}
		})
	}
}

func TestParseQuote_CRLF(t *testing.T) {
	q := ParseQuote(apple, "  USD 189.2 \r\nLast quote 15/08/2025 17:35:02\r\n")
	if price, ok := q.Price(); !ok || price != 189.2 || q.Currency() != "USD" {
		t.Errorf("ParseQuote() = %v, want USD 189.2", q)
	}
}

func TestParseQuote_Details(t *testing.T) {
	raw := "EUR 104.32\n" +
		"Quote from 14/10/2025 16:59:58 on gettex\n" +
		"+0,58|+0,56%\n" +
		"1 day\n" +
		"Spread\n" +
		"0,05%\n" +
		"52 weeks low/high\n" +
		"85,10\n" +
		"106,99\n"

	q := ParseQuote(apple, raw)
	if !q.OK() {
		t.Fatalf("ParseQuote() failed, want a known quote")
	}
	d := q.Details()
	if d == nil {
		t.Fatalf("Details() = nil, want details")
	}
	want := Details{Version: DetailsVersion, ChangeAbs: 0.58, ChangePct: 0.56, Spread: 0.05, Low52W: 85.10, High52W: 106.99}
	if *d != want {
		t.Errorf("Details() = %+v, want %+v", *d, want)
	}
}

func TestParseDetails_DoesNotFailQuote(t *testing.T) {
	raw := "EUR 104.32\n14/10/2025 16:59:58\nnot a change\n\n\nspread?\n\nlow\nhigh"
	if _, err := ParseDetails(raw); err == nil {
		t.Errorf("ParseDetails() expected an error")
	}
	q := ParseQuote(apple, raw)
	if !q.OK() || q.Details() != nil {
		t.Errorf("ParseQuote() = %v, details=%v, want a known quote without details", q, q.Details())
	}
}
