package reconcile

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/dbsmedya/custrecon/internal/types"
)

// Summary holds the counters of a diff. Every field is derived from the
// inputs when the diff is computed.
type Summary struct {
	TotalInSource int    `json:"totalInSource" yaml:"totalInSource"`
	ExcludedCount int    `json:"excludedCount" yaml:"excludedCount"`
	FilteredCount int    `json:"filteredCount" yaml:"filteredCount"`
	TotalInTarget int    `json:"totalInTarget" yaml:"totalInTarget"`
	MissingCount  int    `json:"missingCount" yaml:"missingCount"`
	ExclusionRule string `json:"exclusionRule" yaml:"exclusionRule"`
}

// Result is the outcome of Diff.
type Result struct {
	Summary            Summary  `json:"summary" yaml:"summary"`
	MissingIdentifiers []string `json:"missingIdentifiers" yaml:"missingIdentifiers"`
}

// Diff computes source \ target after dropping source identifiers matched by
// rule. MissingIdentifiers is sorted numerically ascending.
func Diff(source, target *IdentifierSet, rule ExclusionRule) *Result {
	excluded := 0
	missing := make([]string, 0)

	if source != nil {
		for id := range source.ids {
			if rule.Matches(id) {
				excluded++
				continue
			}
			if !target.Contains(id) {
				missing = append(missing, id)
			}
		}
	}
	types.SortIDs(missing)

	total := source.Len()
	return &Result{
		Summary: Summary{
			TotalInSource: total,
			ExcludedCount: excluded,
			FilteredCount: total - excluded,
			TotalInTarget: target.Len(),
			MissingCount:  len(missing),
			ExclusionRule: rule.String(),
		},
		MissingIdentifiers: missing,
	}
}

// Fingerprint returns the SHA256 of the sorted missing list, so runs on
// unchanged inputs can be compared without storing the whole list.
func (r *Result) Fingerprint() string {
	h := sha256.New()
	for _, id := range r.MissingIdentifiers {
		h.Write([]byte(id))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
