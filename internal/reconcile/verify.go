package reconcile

import (
	"fmt"

	"github.com/dbsmedya/custrecon/internal/types"
)

// VerificationError describes the first property a Result failed.
type VerificationError struct {
	Check   string
	ID      string
	Message string
}

func (e *VerificationError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("verification failed (%s) for %s: %s", e.Check, e.ID, e.Message)
	}
	return fmt.Sprintf("verification failed (%s): %s", e.Check, e.Message)
}

// Verify re-checks a Result against its inputs: every missing identifier is
// in the source, passes the exclusion rule and is absent from the target;
// every other source identifier was excluded or is in the target; the list
// is strictly ascending; and the summary matches the inputs.
func Verify(result *Result, source, target *IdentifierSet, rule ExclusionRule) error {
	if result == nil {
		return &VerificationError{Check: "result", Message: "result is nil"}
	}

	if err := verifySummary(result, source, target, rule); err != nil {
		return err
	}

	missing := make(map[string]struct{}, len(result.MissingIdentifiers))
	for i, id := range result.MissingIdentifiers {
		if i > 0 && types.CompareIDs(result.MissingIdentifiers[i-1], id) >= 0 {
			return &VerificationError{Check: "order", ID: id, Message: "missing list is not strictly ascending"}
		}
		if !source.Contains(id) {
			return &VerificationError{Check: "membership", ID: id, Message: "not in source set"}
		}
		if rule.Matches(id) {
			return &VerificationError{Check: "exclusion", ID: id, Message: "matches exclusion rule"}
		}
		if target.Contains(id) {
			return &VerificationError{Check: "target", ID: id, Message: "present in target set"}
		}
		missing[id] = struct{}{}
	}

	if source == nil {
		return nil
	}
	for id := range source.ids {
		if _, ok := missing[id]; ok {
			continue
		}
		if !rule.Matches(id) && !target.Contains(id) {
			return &VerificationError{Check: "completeness", ID: id, Message: "absent from target but not reported missing"}
		}
	}
	return nil
}

func verifySummary(result *Result, source, target *IdentifierSet, rule ExclusionRule) error {
	s := result.Summary
	switch {
	case s.TotalInSource != source.Len():
		return &VerificationError{Check: "summary", Message: fmt.Sprintf("totalInSource %d, source has %d", s.TotalInSource, source.Len())}
	case s.TotalInTarget != target.Len():
		return &VerificationError{Check: "summary", Message: fmt.Sprintf("totalInTarget %d, target has %d", s.TotalInTarget, target.Len())}
	case s.FilteredCount != s.TotalInSource-s.ExcludedCount:
		return &VerificationError{Check: "summary", Message: fmt.Sprintf("filteredCount %d != %d - %d", s.FilteredCount, s.TotalInSource, s.ExcludedCount)}
	case s.MissingCount != len(result.MissingIdentifiers):
		return &VerificationError{Check: "summary", Message: fmt.Sprintf("missingCount %d, list has %d", s.MissingCount, len(result.MissingIdentifiers))}
	case s.ExclusionRule != rule.String():
		return &VerificationError{Check: "summary", Message: fmt.Sprintf("exclusionRule %q, expected %q", s.ExclusionRule, rule.String())}
	}
	return nil
}
