package ptfs

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrInvalidHoldingsShape is returned when holdings are not grouped by exactly the registered asset classes.
var ErrInvalidHoldingsShape = errors.New("invalid holdings shape")

// InvalidIdentifierError lists every identifier that failed ISIN validation.
type InvalidIdentifierError struct {
	Codes []string // sorted
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid ISIN(s) found: %s", strings.Join(e.Codes, ", "))
}

// OverlapError lists every identifier held in more than one asset class.
type OverlapError struct {
	Codes []ISIN // sorted
}

func (e *OverlapError) Error() string {
	codes := make([]string, len(e.Codes))
	for i, c := range e.Codes {
		codes[i] = string(c)
	}
	return fmt.Sprintf("ISIN(s) held in more than one asset class: %s", strings.Join(codes, ", "))
}

// Holding is a quantity of a security held in a given asset class.
type Holding struct {
	ISIN     ISIN
	Class    AssetClass
	Quantity Quantity
}

// class is the ordered content of one asset class.
type class struct {
	order []ISIN
	qty   map[ISIN]Quantity
}

func newClass() *class { return &class{qty: make(map[ISIN]Quantity)} }

// add sums q into the quantity of isin.
func (c *class) add(isin ISIN, q Quantity) {
	prev, ok := c.qty[isin]
	if !ok {
		c.order = append(c.order, isin)
	}
	c.qty[isin] = prev.Add(q)
}

// Portfolio is the set of holdings of a single run, grouped by asset class.
//
// It is immutable once built: every identifier is a valid ISIN, and belongs to exactly one class.
type Portfolio struct {
	classes map[AssetClass]*class
	union   map[ISIN]AssetClass
}

// NewPortfolio creates a Portfolio from quantities grouped by asset class.
//
// The set of keys must be exactly the registered asset classes, otherwise
// ErrInvalidHoldingsShape is returned. Invalid identifiers are all reported
// at once in an *InvalidIdentifierError, and identifiers present in more
// than one class in an *OverlapError.
//
// Maps carry no order so holdings of a class are ordered by ISIN.
func NewPortfolio(byClass map[AssetClass]map[ISIN]Quantity) (*Portfolio, error) {
	var keys []AssetClass
	for c := range byClass {
		keys = append(keys, c)
	}
	slices.Sort(keys)
	expected := Classes()
	slices.Sort(expected)
	if !slices.Equal(keys, expected) {
		return nil, fmt.Errorf("%w: got classes %v, want exactly %v", ErrInvalidHoldingsShape, keys, expected)
	}

	var holdings []Holding
	for _, c := range Classes() {
		isins := make([]ISIN, 0, len(byClass[c]))
		for isin := range byClass[c] {
			isins = append(isins, isin)
		}
		slices.Sort(isins)
		for _, isin := range isins {
			holdings = append(holdings, Holding{ISIN: isin, Class: c, Quantity: byClass[c][isin]})
		}
	}
	return Build(holdings)
}

// Build creates a Portfolio from a list of holdings.
//
// Holdings of the same ISIN in the same class are summed, and the first
// occurrence sets the order. Every registered class is present in the
// Portfolio, possibly empty. Holdings with an unregistered class are an
// ErrInvalidHoldingsShape.
func Build(holdings []Holding) (*Portfolio, error) {
	p := &Portfolio{
		classes: make(map[AssetClass]*class),
		union:   make(map[ISIN]AssetClass),
	}
	for _, c := range Classes() {
		p.classes[c] = newClass()
	}

	var unknown []string
	invalid := make(map[string]bool)
	for _, h := range holdings {
		c, ok := p.classes[h.Class]
		if !ok {
			if !slices.Contains(unknown, string(h.Class)) {
				unknown = append(unknown, string(h.Class))
			}
			continue
		}
		if err := ValidateISIN(string(h.ISIN)); err != nil {
			invalid[string(h.ISIN)] = true
			continue
		}
		c.add(h.ISIN, h.Quantity)
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: unknown asset class(es) %v, want one of %v", ErrInvalidHoldingsShape, unknown, Classes())
	}
	if len(invalid) > 0 {
		codes := make([]string, 0, len(invalid))
		for code := range invalid {
			codes = append(codes, code)
		}
		slices.Sort(codes)
		return nil, &InvalidIdentifierError{Codes: codes}
	}

	overlaps := make(map[ISIN]bool)
	for _, name := range Classes() {
		for _, isin := range p.classes[name].order {
			if _, dup := p.union[isin]; dup {
				overlaps[isin] = true
				continue
			}
			p.union[isin] = name
		}
	}
	if len(overlaps) > 0 {
		codes := make([]ISIN, 0, len(overlaps))
		for isin := range overlaps {
			codes = append(codes, isin)
		}
		slices.Sort(codes)
		return nil, &OverlapError{Codes: codes}
	}
	return p, nil
}

// Classes returns the asset classes of the portfolio in registry order.
func (p *Portfolio) Classes() []AssetClass {
	var res []AssetClass
	for _, c := range Classes() {
		if _, ok := p.classes[c]; ok {
			res = append(res, c)
		}
	}
	return res
}

// Len returns the number of distinct holdings.
func (p *Portfolio) Len() int { return len(p.union) }

// Has reports whether isin is held.
func (p *Portfolio) Has(isin ISIN) bool {
	_, ok := p.union[isin]
	return ok
}

// Class returns the asset class isin is held in.
func (p *Portfolio) Class(isin ISIN) (AssetClass, bool) {
	c, ok := p.union[isin]
	return c, ok
}

// Quantity returns the total quantity held for isin, zero if isin is not held.
func (p *Portfolio) Quantity(isin ISIN) Quantity {
	c, ok := p.union[isin]
	if !ok {
		return Quantity{}
	}
	return p.classes[c].qty[isin]
}

// ClassHoldings returns the holdings of one asset class, in insertion order.
func (p *Portfolio) ClassHoldings(c AssetClass) []Holding {
	cl, ok := p.classes[c]
	if !ok {
		return nil
	}
	res := make([]Holding, 0, len(cl.order))
	for _, isin := range cl.order {
		res = append(res, Holding{ISIN: isin, Class: c, Quantity: cl.qty[isin]})
	}
	return res
}

// Holdings returns all holdings, class after class in registry order.
func (p *Portfolio) Holdings() []Holding {
	res := make([]Holding, 0, len(p.union))
	for _, c := range p.Classes() {
		res = append(res, p.ClassHoldings(c)...)
	}
	return res
}

// Targets returns what fetchers need to retrieve a quote for every holding.
func (p *Portfolio) Targets() []Target {
	holdings := p.Holdings()
	res := make([]Target, len(holdings))
	for i, h := range holdings {
		res[i] = Target{ISIN: h.ISIN, Class: h.Class}
	}
	return res
}
