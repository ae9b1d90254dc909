package ptfs

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// newDecimal is a convenient factory for decimal.Decimal
func newDecimal[T float64 | int | int64 | decimal.Decimal](value T) decimal.Decimal {
	switch v := any(value).(type) {
	case decimal.Decimal:
		return v
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	default:
		panic("unsupported type")
	}
}

// Quantity is a number of shares held. It is exact, so that summing
// fractional holdings does not drift.
//
// The zero value is a zero quantity.
type Quantity struct {
	value decimal.Decimal
}

// Q returns a Quantity from a numeric value.
func Q[T float64 | int | int64 | decimal.Decimal](value T) Quantity {
	return Quantity{value: newDecimal(value)}
}

var (
	commaGrouping = regexp.MustCompile(`^[+-]?[1-9]\d{0,2}(,\d{3})+(\.\d+)?$`)
	dotGrouping   = regexp.MustCompile(`^[+-]?[1-9]\d{0,2}(\.\d{3})+(,\d+)?$`)
)

// ParseQuantity parses a quantity with '.' as decimal separator, as in "1,234.5".
//
// Surrounding spaces are ignored. ',' is a thousands separator when it
// groups digits by three ("1,234" is 1234), otherwise a single ',' is
// accepted as decimal separator ("2,5" is 2.5).
func ParseQuantity(s string) (Quantity, error) {
	s = strings.TrimSpace(s)
	switch {
	case commaGrouping.MatchString(s):
		s = strings.ReplaceAll(s, ",", "")
	case strings.Count(s, ",") == 1 && !strings.Contains(s, "."):
		s = strings.Replace(s, ",", ".", 1)
	}
	return parseDecimal(s)
}

// ParseQuantityComma parses a quantity with ',' as decimal separator, as in "1.234,5".
//
// '.' is a thousands separator when it groups digits by three ("1.234" is
// 1234), otherwise it is the decimal separator ("2.5" is 2.5).
func ParseQuantityComma(s string) (Quantity, error) {
	s = strings.TrimSpace(s)
	if dotGrouping.MatchString(s) {
		s = strings.ReplaceAll(s, ".", "")
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	return parseDecimal(s)
}

func parseDecimal(s string) (Quantity, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Quantity{}, fmt.Errorf("invalid quantity %q: %w", s, err)
	}
	return Quantity{value: d}, nil
}

func (q Quantity) Add(p Quantity) Quantity      { return Quantity{value: q.value.Add(p.value)} }
func (q Quantity) Equal(p Quantity) bool        { return q.value.Equal(p.value) }
func (q Quantity) IsZero() bool                 { return q.value.IsZero() }
func (q Quantity) IsNegative() bool             { return q.value.IsNegative() }
func (q Quantity) String() string               { return q.value.String() }
func (q Quantity) Decimal() decimal.Decimal     { return q.value }
func (q Quantity) InexactFloat64() float64      { return q.value.InexactFloat64() }
func (q Quantity) MarshalJSON() ([]byte, error) { return q.value.MarshalJSON() }

func (q *Quantity) UnmarshalJSON(decimalBytes []byte) error {
	return q.value.UnmarshalJSON(decimalBytes)
}
