package timeseries

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/etnz/ptfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(v float64) *float64 { return &v }

func run(runAt string, qty float64, p *float64) []ptfs.Row {
	row := func(isin ptfs.ISIN, class ptfs.AssetClass) ptfs.Row {
		r := ptfs.Row{ISIN: isin, Class: class, Quantity: ptfs.Q(qty), RunAt: runAt}
		if p != nil {
			r.Price = p
			r.Currency = "EUR"
		}
		return r
	}
	return []ptfs.Row{
		row("IE00B4L5Y983", ptfs.ETF),
		row("US0378331005", ptfs.Equity),
	}
}

// assertRows compares rows field by field: decimals are compared by value.
func assertRows(t *testing.T, want, got []ptfs.Row) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ISIN, got[i].ISIN, "row %d", i)
		assert.Equal(t, want[i].Class, got[i].Class, "row %d", i)
		assert.True(t, want[i].Quantity.Equal(got[i].Quantity), "row %d quantity %v != %v", i, want[i].Quantity, got[i].Quantity)
		assert.Equal(t, want[i].Currency, got[i].Currency, "row %d", i)
		assert.Equal(t, want[i].Price, got[i].Price, "row %d", i)
		assert.Equal(t, want[i].RunAt, got[i].RunAt, "row %d", i)
	}
}

func TestLoad_FirstRun(t *testing.T) {
	store := Open(filepath.Join(t.TempDir(), "time_series.jsonl"))

	series, status, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, Missing, status)
	assert.Empty(t, series)

	rows := run("10:20 AM 03/01/2024", 3, price(98.5))
	saved, err := store.AppendAndSave(series, rows)
	require.NoError(t, err)
	assertRows(t, rows, saved)

	loaded, status, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, Loaded, status)
	assertRows(t, rows, loaded)
}

func TestAppendAndSave_RoundTrip(t *testing.T) {
	store := Open(filepath.Join(t.TempDir(), "time_series.jsonl"))

	first := run("10:20 AM 03/01/2024", 3, price(98.5))
	second := run("10:20 AM 03/02/2024", 4, nil)
	third := run("10:20 AM 03/03/2024", 4, price(101.25))

	var want []ptfs.Row
	for _, rows := range [][]ptfs.Row{first, second, third} {
		previous, _, err := store.Load()
		require.NoError(t, err)

		_, err = store.AppendAndSave(previous, rows)
		require.NoError(t, err)
		want = append(want, rows...)

		loaded, status, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, Loaded, status)
		assertRows(t, want, loaded)
	}
}

func TestAppendAndSave_DoesNotModifyExisting(t *testing.T) {
	store := Open(filepath.Join(t.TempDir(), "ts.jsonl"))
	existing := make(Series, 0, 10)
	existing = append(existing, run("a", 1, nil)...)

	combined, err := store.AppendAndSave(existing, run("b", 2, nil))
	require.NoError(t, err)
	assert.Len(t, existing, 2)
	assert.Len(t, combined, 4)

	combined[0].RunAt = "changed"
	assert.Equal(t, "a", existing[0].RunAt)
}

func TestLoad_Corrupt(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{"not json", "this is not json\n"},
		{"empty file", ""},
		{"no header", `{"isin":"US0378331005","quantity":"1","price":null,"t":"x"}` + "\n"},
		{"unknown format", `{"format":"other","version":1}` + "\n"},
		{"future version", `{"format":"ptfs-timeseries","version":2}` + "\n"},
		{"truncated row", `{"format":"ptfs-timeseries","version":1}` + "\n" + `{"isin":"US03783`},
		{"unknown field", `{"format":"ptfs-timeseries","version":1}` + "\n" + `{"isin":"US0378331005","q":"1","t":"x"}` + "\n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "ts.jsonl")
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0644))

			series, status, err := Open(path).Load()
			assert.Error(t, err)
			assert.Equal(t, Corrupt, status)
			assert.Empty(t, series)
		})
	}
}

func TestQuarantine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ts.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0644))
	store := Open(path)

	moved, err := store.Quarantine(time.Unix(1700000000, 0))
	require.NoError(t, err)
	assert.Equal(t, path+".corrupt-1700000000", moved)

	content, err := os.ReadFile(moved)
	require.NoError(t, err)
	assert.Equal(t, "garbage", string(content))

	_, status, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, Missing, status)
}

func TestSave_LeavesNoTemporaryFile(t *testing.T) {
	dir := t.TempDir()
	store := Open(filepath.Join(dir, "ts.jsonl"))
	require.NoError(t, store.Save(run("a", 1, price(1))))
	require.NoError(t, store.Save(run("b", 1, price(2))))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ts.jsonl", entries[0].Name())
}

func TestSave_FailureKeepsPreviousFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ts.jsonl")
	store := Open(path)
	require.NoError(t, store.Save(run("a", 1, price(1))))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	// the target is now a non empty directory: rename cannot replace it.
	broken := Open(filepath.Join(dir, "sub"))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub", "x"), 0755))
	err = broken.Save(run("b", 1, nil))
	assert.ErrorIs(t, err, ErrWrite)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "temporary file %q left behind", e.Name())
	}
}

func TestEncode(t *testing.T) {
	var sb strings.Builder
	rows := []ptfs.Row{
		{ISIN: "US0378331005", Class: ptfs.Equity, Quantity: ptfs.Q(10), Currency: "USD", Price: price(170.5), RunAt: "10:20 AM 03/01/2024"},
		{ISIN: "IE00B4L5Y983", Class: ptfs.ETF, Quantity: ptfs.Q(2.5), RunAt: "10:20 AM 03/01/2024"},
	}
	require.NoError(t, Encode(&sb, rows))
	want := `{"format":"ptfs-timeseries","version":1}
{"isin":"US0378331005","class":"EQUITY","quantity":"10","currency":"USD","price":170.5,"t":"10:20 AM 03/01/2024"}
{"isin":"IE00B4L5Y983","class":"ETF","quantity":"2.5","price":null,"t":"10:20 AM 03/01/2024"}
`
	assert.Equal(t, want, sb.String())
}
