// Package analysis counts how a target identifier list matches a customer
// extract and how duplicated the extract's identifiers are.
package analysis

import (
	"sort"
	"strings"

	"github.com/dbsmedya/custrecon/internal/reconcile"
	"github.com/dbsmedya/custrecon/internal/rowstream"
	"github.com/dbsmedya/custrecon/internal/types"
)

// DefaultTopN is the number of duplicates surfaced in a Report.
const DefaultTopN = 10

// Duplicate is an identifier that occurs more than once.
type Duplicate struct {
	ID    string `json:"id" yaml:"id"`
	Count int64  `json:"count" yaml:"count"`
}

// Report summarises one analysis run.
type Report struct {
	TotalRecords           int64       `json:"totalRecords" yaml:"totalRecords"`
	MissingIdentifier      int64       `json:"missingIdentifier" yaml:"missingIdentifier"`
	MatchedRecords         int64       `json:"matchedRecords" yaml:"matchedRecords"`
	UniqueCustomersMatched int64       `json:"uniqueCustomersMatched" yaml:"uniqueCustomersMatched"`
	MatchRate              float64     `json:"matchRate" yaml:"matchRate"`
	UniqueMatchRate        float64     `json:"uniqueMatchRate" yaml:"uniqueMatchRate"`
	TargetSize             int64       `json:"targetSize" yaml:"targetSize"`
	NotFoundInSource       int64       `json:"notFoundInSource" yaml:"notFoundInSource"`
	DuplicateImpact        int64       `json:"duplicateImpact" yaml:"duplicateImpact"`
	DistinctCustomers      int64       `json:"distinctCustomers" yaml:"distinctCustomers"`
	DuplicatedCustomers    int64       `json:"duplicatedCustomers" yaml:"duplicatedCustomers"`
	TopDuplicates          []Duplicate `json:"topDuplicates" yaml:"topDuplicates"`
}

// Analyzer consumes a record stream once. It is not safe for concurrent use;
// concurrent sources each own an Analyzer and are combined with Merge.
type Analyzer struct {
	target  *reconcile.IdentifierSet
	field   string
	total   int64
	missing int64
	matched int64
	unique  map[string]struct{}
	counts  map[string]int64
}

// New creates an Analyzer that matches the identifier in field against target.
func New(target *reconcile.IdentifierSet, field string) *Analyzer {
	return &Analyzer{
		target: target,
		field:  field,
		unique: make(map[string]struct{}),
		counts: make(map[string]int64),
	}
}

// Observe counts one record.
func (a *Analyzer) Observe(rec rowstream.Record) {
	a.ObserveID(strings.TrimSpace(rec.Value(a.field)))
}

// ObserveID counts one record given its identifier.
func (a *Analyzer) ObserveID(id string) {
	a.total++
	if id == "" {
		a.missing++
		return
	}
	a.counts[id]++
	if a.target.Contains(id) {
		a.matched++
		a.unique[id] = struct{}{}
	}
}

// Matched returns the number of matching records seen so far.
func (a *Analyzer) Matched() int64 {
	return a.matched
}

// Total returns the number of records seen so far.
func (a *Analyzer) Total() int64 {
	return a.total
}

// Counters returns the running counters, used for partial results.
func (a *Analyzer) Counters() map[string]int64 {
	return map[string]int64{
		"total_records":      a.total,
		"matched_records":    a.matched,
		"missing_identifier": a.missing,
		"unique_matched":     int64(len(a.unique)),
	}
}

// Merge folds other into a. Both analyzers must share the same target.
func (a *Analyzer) Merge(other *Analyzer) {
	a.total += other.total
	a.missing += other.missing
	a.matched += other.matched
	for id := range other.unique {
		a.unique[id] = struct{}{}
	}
	for id, n := range other.counts {
		a.counts[id] += n
	}
}

// Duplicates returns every identifier seen more than once, ordered by count
// descending then identifier ascending.
func (a *Analyzer) Duplicates() []Duplicate {
	var dups []Duplicate
	for id, n := range a.counts {
		if n > 1 {
			dups = append(dups, Duplicate{ID: id, Count: n})
		}
	}
	sort.Slice(dups, func(i, j int) bool {
		if dups[i].Count != dups[j].Count {
			return dups[i].Count > dups[j].Count
		}
		return types.CompareIDs(dups[i].ID, dups[j].ID) < 0
	})
	return dups
}

// Report builds the summary with at most topN duplicates. topN <= 0 selects
// DefaultTopN.
func (a *Analyzer) Report(topN int) Report {
	if topN <= 0 {
		topN = DefaultTopN
	}

	dups := a.Duplicates()
	duplicated := int64(len(dups))
	if len(dups) > topN {
		dups = dups[:topN]
	}
	if dups == nil {
		dups = []Duplicate{}
	}

	uniqueMatched := int64(len(a.unique))
	targetSize := int64(a.target.Len())

	return Report{
		TotalRecords:           a.total,
		MissingIdentifier:      a.missing,
		MatchedRecords:         a.matched,
		UniqueCustomersMatched: uniqueMatched,
		MatchRate:              rate(a.matched, a.total),
		UniqueMatchRate:        rate(uniqueMatched, targetSize),
		TargetSize:             targetSize,
		NotFoundInSource:       targetSize - uniqueMatched,
		DuplicateImpact:        a.matched - uniqueMatched,
		DistinctCustomers:      int64(len(a.counts)),
		DuplicatedCustomers:    duplicated,
		TopDuplicates:          dups,
	}
}

// rate returns n/d, or 0 when d is 0.
func rate(n, d int64) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}
