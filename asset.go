package ptfs

import (
	"fmt"
	"slices"
	"strings"
)

// AssetClass tags a holding with the kind of security it is.
//
// Classes are registered once, in registry order, and everything that
// depends on the class (holdings file labels, fetcher page selection) goes
// through the registry instead of hard coding a code path per class.
type AssetClass string

const (
	ETF    AssetClass = "ETF"
	Equity AssetClass = "EQUITY"
)

// classes is the registry of known asset classes, in display order.
var classes = []AssetClass{ETF, Equity}

// Classes returns the registered asset classes in registry order.
func Classes() []AssetClass { return slices.Clone(classes) }

// RegisterClass adds a new asset class to the registry.
// It must be called during program initialization.
func RegisterClass(c AssetClass) error {
	label := strings.ToUpper(strings.TrimSpace(string(c)))
	if label == "" {
		return fmt.Errorf("asset class cannot be empty")
	}
	if slices.Contains(classes, AssetClass(label)) {
		return fmt.Errorf("asset class %q is already registered", label)
	}
	classes = append(classes, AssetClass(label))
	return nil
}

// ParseAssetClass returns the registered asset class for label.
// The comparison ignores case and surrounding spaces.
func ParseAssetClass(label string) (AssetClass, error) {
	c := AssetClass(strings.ToUpper(strings.TrimSpace(label)))
	if !slices.Contains(classes, c) {
		return "", fmt.Errorf("unknown asset class %q: must be one of %v", label, classes)
	}
	return c, nil
}

// String implements the fmt.Stringer interface.
func (c AssetClass) String() string { return string(c) }
