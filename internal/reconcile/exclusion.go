package reconcile

import (
	"strings"
)

// ExclusionKind names the shape of an exclusion rule.
type ExclusionKind string

const (
	ExclusionNone          ExclusionKind = "none"
	ExclusionLeadingDigits ExclusionKind = "leading_digits"
)

// ExclusionRule removes identifiers from the source set before the diff.
// The zero value excludes nothing.
type ExclusionRule struct {
	Kind     ExclusionKind
	Prefixes []string
}

// LeadingDigits returns a rule that excludes identifiers starting with any
// of prefixes. No prefixes yields a rule that excludes nothing.
func LeadingDigits(prefixes ...string) ExclusionRule {
	if len(prefixes) == 0 {
		return ExclusionRule{Kind: ExclusionNone}
	}
	return ExclusionRule{
		Kind:     ExclusionLeadingDigits,
		Prefixes: append([]string(nil), prefixes...),
	}
}

// Matches reports whether id is excluded by the rule.
func (r ExclusionRule) Matches(id string) bool {
	if r.Kind != ExclusionLeadingDigits {
		return false
	}
	for _, p := range r.Prefixes {
		if strings.HasPrefix(id, p) {
			return true
		}
	}
	return false
}

// String describes the rule for reports, e.g. "starts with 3, 4, 5".
func (r ExclusionRule) String() string {
	if r.Kind != ExclusionLeadingDigits || len(r.Prefixes) == 0 {
		return "none"
	}
	return "starts with " + strings.Join(r.Prefixes, ", ")
}
