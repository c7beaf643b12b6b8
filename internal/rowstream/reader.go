// Package rowstream reads delimited customer extracts as a lazy, single-pass
// sequence of records.
package rowstream

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/dbsmedya/custrecon/internal/types"
)

// Options controls how a stream is decoded.
type Options struct {
	Delimiter     rune   // defaults to ','
	Encoding      string // utf-8 (default), latin1/iso-8859-1, windows-1252
	TrimSpace     bool
	Strict        bool
	ProgressEvery int64
	Observer      func(Progress)
}

// Progress is a periodic, non-authoritative notification.
type Progress struct {
	Records   int64
	Malformed int64
}

// Stats holds counters for the rows consumed so far.
type Stats struct {
	Records   int64 // rows returned to the caller
	Malformed int64 // rows skipped in lenient mode
}

// Reader yields Records from a delimited source.
type Reader struct {
	csv    *csv.Reader
	closer io.Closer
	header *Header
	opts   Options
	stats  Stats
	done   bool
}

// Open opens the file at path. Failure to open or to read the header
// returns an error wrapping types.ErrSourceUnavailable.
func Open(path string, opts Options) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrSourceUnavailable, err)
	}
	r, err := NewReader(f, opts)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// NewReader wraps src and reads the header row.
func NewReader(src io.Reader, opts Options) (*Reader, error) {
	decoded, err := decode(src, opts.Encoding)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(decoded)
	cr.Comma = ','
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}
	cr.LazyQuotes = !opts.Strict
	cr.TrimLeadingSpace = opts.TrimSpace
	cr.FieldsPerRecord = 0

	r := &Reader{csv: cr, opts: opts}

	names, err := cr.Read()
	if errors.Is(err, io.EOF) {
		r.header = newHeader(nil)
		r.done = true
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", types.ErrSourceUnavailable, err)
	}
	for i := range names {
		names[i] = strings.TrimSpace(names[i])
	}
	r.header = newHeader(names)
	return r, nil
}

func decode(src io.Reader, encoding string) (io.Reader, error) {
	var fallback transform.Transformer
	switch strings.ToLower(encoding) {
	case "", "utf-8", "utf8":
		fallback = unicode.UTF8.NewDecoder()
	case "latin1", "iso-8859-1":
		fallback = charmap.ISO8859_1.NewDecoder()
	case "windows-1252":
		fallback = charmap.Windows1252.NewDecoder()
	default:
		return nil, fmt.Errorf("%w: unsupported encoding %q", types.ErrSourceUnavailable, encoding)
	}
	// BOMOverride strips a leading byte order mark and honours it.
	return transform.NewReader(src, unicode.BOMOverride(fallback)), nil
}

// Header returns the field names of the stream.
func (r *Reader) Header() *Header {
	return r.header
}

// Stats returns the counters for rows consumed so far.
func (r *Reader) Stats() Stats {
	return r.stats
}

// Next returns the next record, or io.EOF when the stream is exhausted.
func (r *Reader) Next() (Record, error) {
	for !r.done {
		values, err := r.csv.Read()
		if errors.Is(err, io.EOF) {
			r.done = true
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				r.done = true
				return Record{}, fmt.Errorf("%w: %v", types.ErrSourceUnavailable, err)
			}
			if r.opts.Strict {
				r.done = true
				return Record{}, fmt.Errorf("line %d: %w: %v", perr.Line, types.ErrMalformedRecord, perr.Err)
			}
			r.stats.Malformed++
			continue
		}

		if r.opts.TrimSpace {
			for i := range values {
				values[i] = strings.TrimSpace(values[i])
			}
		}

		r.stats.Records++
		if r.opts.Observer != nil && r.opts.ProgressEvery > 0 && r.stats.Records%r.opts.ProgressEvery == 0 {
			r.opts.Observer(Progress{Records: r.stats.Records, Malformed: r.stats.Malformed})
		}
		return Record{header: r.header, values: values}, nil
	}
	return Record{}, io.EOF
}

// ForEach calls fn for every remaining record. It stops at the first error
// from the stream, from fn, or from ctx.
func (r *Reader) ForEach(ctx context.Context, fn func(Record) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}

// Close releases the underlying file, if any.
func (r *Reader) Close() error {
	r.done = true
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// ParseDelimiter converts a configured delimiter into a rune.
// An empty string yields ',' and the two-character sequence \t yields a tab.
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return ',', nil
	case `\t`:
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", s)
	}
	d, _ := utf8.DecodeRuneInString(s)
	return d, nil
}
