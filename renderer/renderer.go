// Package renderer renders time series reports as markdown, for the terminal or the web.
package renderer

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"
	"text/template"

	"github.com/Rhymond/go-money"
	"github.com/charmbracelet/glamour"
	"github.com/etnz/ptfs"
	"github.com/shopspring/decimal"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed templates/*.md
var templates embed.FS

var funcs = template.FuncMap{
	"price": Price,
}

// RenderHistory renders a time series report to a markdown string.
func RenderHistory(r *ptfs.Report) string {
	return renderTemplate("history", "templates/history.md", r)
}

// RenderSnapshot renders the rows of a single run to a markdown string.
func RenderSnapshot(run ptfs.Run) string {
	return renderTemplate("snapshot", "templates/snapshot.md", run)
}

// renderTemplate renders an embedded template.
func renderTemplate(templateName, file string, data any) string {
	content, err := fs.ReadFile(templates, file)
	if err != nil {
		return fmt.Sprintf("error reading template %q: %v", file, err)
	}
	tmpl, err := template.New(templateName).Funcs(funcs).Parse(string(content))
	if err != nil {
		return fmt.Sprintf("error parsing template %q: %v", file, err)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", templateName, err)
	}
	return b.String()
}

// Price formats a price in its currency, "-" if the price is unknown.
//
// Known currencies are formatted the usual way for that currency, unless
// the price has more digits than the currency has, in which case all digits are kept.
func Price(price *float64, currency string) string {
	if price == nil {
		return "-"
	}
	raw := strconv.FormatFloat(*price, 'f', -1, 64)
	cur := money.GetCurrency(currency)
	if cur == nil {
		return strings.TrimSpace(currency + " " + raw)
	}
	d := decimal.NewFromFloat(*price)
	if -d.Exponent() > int32(cur.Fraction) {
		return currency + " " + raw
	}
	return cur.Formatter().Format(d.Shift(int32(cur.Fraction)).IntPart())
}

// Terminal renders markdown for a terminal.
func Terminal(md string) (string, error) {
	out, err := glamour.Render(md, "auto")
	if err != nil {
		return "", fmt.Errorf("cannot render markdown: %w", err)
	}
	return out, nil
}

// HTML converts markdown to HTML.
func HTML(w io.Writer, md string) error {
	var buf bytes.Buffer
	conv := goldmark.New(goldmark.WithExtensions(extension.Table))
	if err := conv.Convert([]byte(md), &buf); err != nil {
		return fmt.Errorf("cannot convert markdown: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
