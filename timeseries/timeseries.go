// Package timeseries persists snapshot rows as an append-only historical log.
//
// The log is a single JSONL file: a header line identifying the format and
// its version, then one JSON object per row, in append order. It remains
// human-readable and git friendly, like the rest of the data files.
//
// Saving always rewrites the whole file through a temporary file renamed
// over the previous one, so that a crash never leaves a half written log.
package timeseries

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/etnz/ptfs"
)

// Format and Version identify the file layout, in the header line.
const (
	Format  = "ptfs-timeseries"
	Version = 1
)

// ErrWrite is returned when the time series could not be written.
var ErrWrite = errors.New("cannot write time series")

// Series is the ordered sequence of all rows ever recorded.
type Series []ptfs.Row

// Status tells how Load went.
type Status int

const (
	Loaded  Status = iota // the history was read.
	Missing               // there is no history yet: first run.
	Corrupt               // the history exists but cannot be read.
)

func (s Status) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case Missing:
		return "missing"
	case Corrupt:
		return "corrupt"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// header is the first line of the file.
type header struct {
	Format  string `json:"format"`
	Version int    `json:"version"`
}

// Store is the time series file.
type Store struct {
	path string
}

// Open returns the Store persisted at path. The file does not need to exist.
func Open(path string) *Store { return &Store{path: path} }

// Path returns the file path of the store.
func (s *Store) Path() string { return s.path }

// Load reads the persisted series.
//
// It never fails the run: when there is no file (Missing) or it cannot be
// decoded (Corrupt), it returns an empty series. In the Corrupt case, the
// error tells why.
func (s *Store) Load() (Series, Status, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Series{}, Missing, nil
	}
	if err != nil {
		return Series{}, Corrupt, fmt.Errorf("cannot open time series %q: %w", s.path, err)
	}
	defer f.Close()

	series, err := Decode(f)
	if err != nil {
		return Series{}, Corrupt, fmt.Errorf("cannot decode time series %q: %w", s.path, err)
	}
	return series, Loaded, nil
}

// AppendAndSave writes existing followed by rows, and returns the combined series.
//
// existing is not modified. Errors wrap ErrWrite.
func (s *Store) AppendAndSave(existing Series, rows []ptfs.Row) (Series, error) {
	combined := make(Series, 0, len(existing)+len(rows))
	combined = append(combined, existing...)
	combined = append(combined, rows...)
	if err := s.Save(combined); err != nil {
		return nil, err
	}
	return combined, nil
}

// Save replaces the persisted series with series.
//
// The content is written to a temporary file in the same folder, synced,
// then renamed over the previous file. On failure the previous file is
// untouched and the temporary file removed. Errors wrap ErrWrite.
func (s *Store) Save(series Series) (err error) {
	var buf bytes.Buffer
	if err := Encode(&buf, series); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: cannot create temporary file in %q: %w", ErrWrite, dir, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err = os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err = os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("%w: cannot replace %q: %w", ErrWrite, s.path, err)
	}
	return nil
}

// Quarantine moves an unreadable file aside, so that the next Save does not destroy it.
// It returns the new name of the file.
func (s *Store) Quarantine(now time.Time) (string, error) {
	dst := fmt.Sprintf("%s.corrupt-%d", s.path, now.Unix())
	if err := os.Rename(s.path, dst); err != nil {
		return "", fmt.Errorf("cannot move corrupt time series aside: %w", err)
	}
	return dst, nil
}

// Encode writes series in the time series format.
func Encode(w io.Writer, series Series) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	if err := enc.Encode(header{Format: Format, Version: Version}); err != nil {
		return fmt.Errorf("cannot encode header: %w", err)
	}
	for i, row := range series {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("cannot encode row %d (%s): %w", i, row.ISIN, err)
		}
	}
	return bw.Flush()
}

// Decode reads a series in the time series format. Empty lines are ignored.
func Decode(r io.Reader) (Series, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	series := Series{}
	i := 0
	sawHeader := false
	for scanner.Scan() {
		i++
		txt := strings.TrimSpace(scanner.Text())
		if txt == "" {
			continue
		}
		if !sawHeader {
			var h header
			if err := json.Unmarshal([]byte(txt), &h); err != nil {
				return nil, fmt.Errorf("line %d: invalid header: %w", i, err)
			}
			if h.Format != Format {
				return nil, fmt.Errorf("line %d: unknown format %q", i, h.Format)
			}
			if h.Version != Version {
				return nil, fmt.Errorf("line %d: unsupported version %d, want %d", i, h.Version, Version)
			}
			sawHeader = true
			continue
		}

		var row ptfs.Row
		dec := json.NewDecoder(strings.NewReader(txt))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&row); err != nil {
			return nil, fmt.Errorf("line %d: not a correct row: %w", i, err)
		}
		if row.ISIN == "" {
			return nil, fmt.Errorf("line %d: missing property %q", i, "isin")
		}
		series = append(series, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read time series: %w", err)
	}
	if !sawHeader {
		return nil, errors.New("missing header line")
	}
	return series, nil
}
