package index

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/dbsmedya/custrecon/internal/types"
)

const maxExportLine = 4 * 1024 * 1024

// Export file layouts.
const (
	ExportAuto     = "auto"
	ExportJSONL    = "jsonl"
	ExportDocument = "document"
)

// DefaultExportArrayPath is where a document export keeps its entries:
// {"exportInfo":{...},"vectors":[{"id":"<customer>-<chunk>"}]}.
const DefaultExportArrayPath = "vectors"

// ExportLister reads a file export of the index. Two layouts are read: JSON
// Lines with one entry per line, and a single (usually pretty-printed) JSON
// document with the entries in an array. The identifier is read from each
// entry with a gjson path; vector IDs of the form "<customer>-<chunk>" are
// reduced to the customer part.
type ExportLister struct {
	path      string
	format    string
	arrayPath string
	idField   string
	pageSize  int

	file    *os.File
	scanner *bufio.Scanner
	line    int

	// document layout, loaded on the first page
	entries *SliceLister

	done bool
}

// ExportOption configures an ExportLister.
type ExportOption func(*ExportLister)

// WithExportFormat selects the file layout. An empty format or ExportAuto
// detects it from the first line; an empty arrayPath keeps "vectors".
func WithExportFormat(format, arrayPath string) ExportOption {
	return func(l *ExportLister) {
		if format != "" {
			l.format = format
		}
		if arrayPath != "" {
			l.arrayPath = arrayPath
		}
	}
}

// NewExportLister creates a lister over the file at path.
func NewExportLister(path, idField string, pageSize int, opts ...ExportOption) (*ExportLister, error) {
	if path == "" {
		return nil, fmt.Errorf("export path is required")
	}
	if idField == "" {
		idField = "id"
	}
	if pageSize <= 0 {
		return nil, fmt.Errorf("page size must be positive, got %d", pageSize)
	}
	l := &ExportLister{
		path:      path,
		format:    ExportAuto,
		arrayPath: DefaultExportArrayPath,
		idField:   idField,
		pageSize:  pageSize,
	}
	for _, opt := range opts {
		opt(l)
	}
	switch l.format {
	case ExportAuto, ExportJSONL, ExportDocument:
	default:
		return nil, fmt.Errorf("unknown export format %q", l.format)
	}
	return l, nil
}

// NextPage implements Lister.
func (l *ExportLister) NextPage(ctx context.Context) ([]string, error) {
	if l.done {
		return nil, nil
	}
	if l.scanner == nil && l.entries == nil {
		if err := l.open(); err != nil {
			_ = l.Close()
			return nil, err
		}
	}
	if l.entries != nil {
		page, err := l.entries.NextPage(ctx)
		if len(page) == 0 {
			l.done = true
		}
		return page, err
	}
	return l.nextLines()
}

// open resolves the layout and prepares the reader for it.
func (l *ExportLister) open() error {
	format := l.format
	if format == ExportAuto {
		detected, err := l.detect()
		if err != nil {
			return err
		}
		format = detected
	}

	if format == ExportDocument {
		return l.loadDocument()
	}

	f, err := os.Open(l.path)
	if err != nil {
		return fmt.Errorf("failed to open export %s: %w", l.path, err)
	}
	l.file = f
	l.scanner = bufio.NewScanner(f)
	l.scanner.Buffer(make([]byte, 0, 64*1024), maxExportLine)
	return nil
}

// detect reads the first non-blank line. A line that is a JSON value on its
// own starts a JSON Lines export, unless it already holds the entry array
// (a compact document). Anything else is the start of a multi-line document.
func (l *ExportLister) detect() (string, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return "", fmt.Errorf("failed to open export %s: %w", l.path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	for {
		line, err := r.ReadBytes('\n')
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			if gjson.ValidBytes(trimmed) && !gjson.GetBytes(trimmed, l.arrayPath).IsArray() {
				return ExportJSONL, nil
			}
			return ExportDocument, nil
		}
		if errors.Is(err, io.EOF) {
			return ExportJSONL, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to read export %s: %w", l.path, err)
		}
	}
}

func (l *ExportLister) loadDocument() error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return fmt.Errorf("failed to open export %s: %w", l.path, err)
	}
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid JSON document in export %s", l.path)
	}
	arr := gjson.GetBytes(data, l.arrayPath)
	if !arr.IsArray() {
		return fmt.Errorf("export %s has no %q array", l.path, l.arrayPath)
	}

	var ids []string
	arr.ForEach(func(_, entry gjson.Result) bool {
		// Entries without the field still count toward the page so that
		// Drain reports them as skipped.
		ids = append(ids, CustomerFromVectorID(entry.Get(l.idField).String()))
		return true
	})
	l.entries = NewSliceLister(ids, l.pageSize)
	return nil
}

func (l *ExportLister) nextLines() ([]string, error) {
	ids := make([]string, 0, l.pageSize)
	for len(ids) < l.pageSize {
		if !l.scanner.Scan() {
			if err := l.scanner.Err(); err != nil {
				_ = l.Close()
				return nil, fmt.Errorf("failed to read export %s at line %d: %w", l.path, l.line+1, err)
			}
			_ = l.Close()
			break
		}
		l.line++

		line := l.scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if !gjson.ValidBytes(line) {
			_ = l.Close()
			return nil, fmt.Errorf("invalid JSON in export %s at line %d", l.path, l.line)
		}
		ids = append(ids, CustomerFromVectorID(gjson.GetBytes(line, l.idField).String()))
	}
	return ids, nil
}

// Close releases the export file.
func (l *ExportLister) Close() error {
	l.done = true
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// CustomerFromVectorID returns the customer part of a vector ID: the text
// before the first '-', when it is a customer identifier. Other values are
// returned trimmed and unchanged.
func CustomerFromVectorID(id string) string {
	id = strings.TrimSpace(id)
	if prefix, _, found := strings.Cut(id, "-"); found && types.IsCustomerID(prefix) {
		return prefix
	}
	return id
}
