package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrSourceUnavailable is returned when an input extract cannot be opened or read.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrMalformedRecord is returned in strict mode when a row violates the header shape.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrMissingIdentifier marks rows that lack the customer identifier.
	// It is counted, never fatal.
	ErrMissingIdentifier = errors.New("missing identifier")

	// ErrTargetUnavailable is returned when the remote index cannot be listed completely.
	ErrTargetUnavailable = errors.New("target unavailable")
)

// RunError is returned when a run aborts. Partial holds the counters
// accumulated up to the failure; they are never a final result.
type RunError struct {
	Stage   string
	Source  string
	Partial map[string]int64
	Err     error
}

func (e *RunError) Error() string {
	var b strings.Builder
	b.WriteString("run incomplete: stage ")
	b.WriteString(e.Stage)
	if e.Source != "" {
		fmt.Fprintf(&b, " (source %s)", e.Source)
	}
	fmt.Fprintf(&b, " failed: %v", e.Err)
	return b.String()
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// PartialKeys returns the partial counter names, sorted.
func (e *RunError) PartialKeys() []string {
	keys := make([]string, 0, len(e.Partial))
	for k := range e.Partial {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NewRunError wraps err with the failing stage. A nil err returns nil.
func NewRunError(stage, source string, partial map[string]int64, err error) error {
	if err == nil {
		return nil
	}
	return &RunError{Stage: stage, Source: source, Partial: partial, Err: err}
}

// AsRunError extracts a *RunError from err's chain.
func AsRunError(err error) (*RunError, bool) {
	var re *RunError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
