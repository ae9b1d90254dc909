package ptfs

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// column aliases accepted in holdings files header, lower case.
var (
	isinColumns     = []string{"isin", "identifier"}
	classColumns    = []string{"type", "class", "asset_class", "asset class"}
	quantityColumns = []string{"q", "quantity", "qty"}
)

// ReadHoldingsFile reads holdings from a CSV or an XLSX file, depending on its extension.
func ReadHoldingsFile(filename string) ([]Holding, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot open holdings file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return ReadHoldingsXLSX(f)
	default:
		return ReadHoldingsCSV(f)
	}
}

// ReadHoldingsCSV reads holdings from a CSV with a header row.
//
// The header must name an identifier column (ISIN), an asset class column
// (TYPE) and a quantity column (q). Other columns are ignored. Both ',' and
// ';' separated files are accepted.
func ReadHoldingsCSV(r io.Reader) ([]Holding, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("cannot read holdings: %w", err)
	}
	cr := csv.NewReader(strings.NewReader(string(data)))
	parse := ParseQuantity
	first, _, _ := strings.Cut(string(data), "\n")
	if strings.Count(first, ";") > strings.Count(first, ",") {
		// semicolon separated files come with a decimal comma.
		cr.Comma = ';'
		parse = ParseQuantityComma
	}
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("cannot parse holdings csv: %w", err)
	}
	return decodeHoldings(records, parse)
}

// ReadHoldingsXLSX reads holdings from the first sheet of a spreadsheet, with the same layout as ReadHoldingsCSV.
func ReadHoldingsXLSX(r io.Reader) ([]Holding, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("cannot open holdings spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("holdings spreadsheet has no sheet")
	}
	// raw values, the displayed text depends on the cell number format.
	records, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("cannot read sheet %q: %w", sheets[0], err)
	}
	return decodeHoldings(records, ParseQuantity)
}

// decodeHoldings decodes holdings from records, the first one being the header.
// Quantities are read with parse.
func decodeHoldings(records [][]string, parse func(string) (Quantity, error)) ([]Holding, error) {
	if len(records) == 0 {
		return nil, errors.New("holdings file is empty")
	}
	header := records[0]
	iIsin, iClass, iQty := findColumn(header, isinColumns), findColumn(header, classColumns), findColumn(header, quantityColumns)
	if iIsin < 0 || iClass < 0 || iQty < 0 {
		return nil, fmt.Errorf("holdings header %q must name an ISIN, a TYPE and a quantity column", header)
	}

	var holdings []Holding
	var errs []error
	for i, rec := range records[1:] {
		line := i + 2
		if blank(rec) {
			continue
		}
		get := func(j int) string {
			if j < len(rec) {
				return strings.TrimSpace(rec[j])
			}
			return ""
		}
		class, err := ParseAssetClass(get(iClass))
		if err != nil {
			errs = append(errs, fmt.Errorf("row %d: %w", line, err))
			continue
		}
		qty, err := parse(get(iQty))
		if err != nil {
			errs = append(errs, fmt.Errorf("row %d: %w", line, err))
			continue
		}
		// identifiers are validated when the portfolio is built, to report them all at once.
		holdings = append(holdings, Holding{ISIN: ISIN(get(iIsin)), Class: class, Quantity: qty})
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid holdings: %w", errors.Join(errs...))
	}
	return holdings, nil
}

func findColumn(header []string, aliases []string) int {
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		for _, alias := range aliases {
			if name == alias {
				return i
			}
		}
	}
	return -1
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
