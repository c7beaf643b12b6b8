package reconcile

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentifierSet(t *testing.T) {
	s := NewIdentifierSet("300", "20", "1000", "20")

	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Contains("20"))
	assert.False(t, s.Contains("2"))
	assert.Equal(t, []string{"20", "300", "1000"}, s.Sorted())

	var nilSet *IdentifierSet
	assert.Equal(t, 0, nilSet.Len())
	assert.False(t, nilSet.Contains("1"))
	assert.Nil(t, nilSet.Sorted())
}

func TestUnion(t *testing.T) {
	u := Union(NewIdentifierSet("1", "2"), nil, NewIdentifierSet("2", "3"))
	assert.Equal(t, []string{"1", "2", "3"}, u.Sorted())
}

func TestExclusionRule(t *testing.T) {
	tests := []struct {
		name     string
		rule     ExclusionRule
		id       string
		expected bool
	}{
		{"zero value excludes nothing", ExclusionRule{}, "400", false},
		{"no prefixes", LeadingDigits(), "400", false},
		{"matches prefix", LeadingDigits("4"), "400", true},
		{"no match", LeadingDigits("4"), "140", false},
		{"multi-digit prefix", LeadingDigits("31"), "3100", true},
		{"multi-digit prefix miss", LeadingDigits("31"), "3200", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.rule.Matches(tt.id))
		})
	}

	assert.Equal(t, "starts with 3, 4", LeadingDigits("3", "4").String())
	assert.Equal(t, "none", ExclusionRule{}.String())
}

func TestDiffScenario(t *testing.T) {
	source := NewIdentifierSet("100", "200", "300", "400")
	target := NewIdentifierSet("100")
	rule := LeadingDigits("4")

	result := Diff(source, target, rule)

	assert.Equal(t, []string{"200", "300"}, result.MissingIdentifiers)
	assert.Equal(t, Summary{
		TotalInSource: 4,
		ExcludedCount: 1,
		FilteredCount: 3,
		TotalInTarget: 1,
		MissingCount:  2,
		ExclusionRule: "starts with 4",
	}, result.Summary)
	require.NoError(t, Verify(result, source, target, rule))
}

func TestDiffNumericOrder(t *testing.T) {
	source := NewIdentifierSet("1000", "99", "200", "3")
	result := Diff(source, NewIdentifierSet(), ExclusionRule{})

	assert.Equal(t, []string{"3", "99", "200", "1000"}, result.MissingIdentifiers)
}

func TestDiffEmptyInputs(t *testing.T) {
	result := Diff(nil, nil, LeadingDigits("3"))

	assert.NotNil(t, result.MissingIdentifiers, "empty list, not null, in reports")
	assert.Empty(t, result.MissingIdentifiers)
	assert.Equal(t, 0, result.Summary.TotalInSource)
	require.NoError(t, Verify(result, nil, nil, LeadingDigits("3")))
}

func TestDiffIdempotent(t *testing.T) {
	ids := make([]string, 0, 5000)
	for i := 0; i < 5000; i++ {
		ids = append(ids, fmt.Sprintf("%d", i*7))
	}
	source := NewIdentifierSet(ids...)
	target := NewIdentifierSet(ids[:1000]...)
	rule := LeadingDigits("3", "4", "5", "6", "7", "8", "9")

	first := Diff(source, target, rule)
	second := Diff(source, target, rule)

	assert.Equal(t, first, second)
	assert.Equal(t, first.Fingerprint(), second.Fingerprint())
	require.NoError(t, Verify(first, source, target, rule))
}

func TestFingerprintChanges(t *testing.T) {
	a := Diff(NewIdentifierSet("1", "2"), nil, ExclusionRule{})
	b := Diff(NewIdentifierSet("1", "3"), nil, ExclusionRule{})
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestVerifyDetectsTampering(t *testing.T) {
	source := NewIdentifierSet("100", "200", "300", "400")
	target := NewIdentifierSet("100")
	rule := LeadingDigits("4")

	tests := []struct {
		name   string
		mutate func(r *Result)
		check  string
	}{
		{
			name:   "dropped identifier",
			mutate: func(r *Result) { r.MissingIdentifiers = []string{"200"}; r.Summary.MissingCount = 1 },
			check:  "completeness",
		},
		{
			name:   "identifier in target",
			mutate: func(r *Result) { r.MissingIdentifiers = []string{"100", "200", "300"}; r.Summary.MissingCount = 3 },
			check:  "target",
		},
		{
			name:   "excluded identifier",
			mutate: func(r *Result) { r.MissingIdentifiers = []string{"200", "300", "400"}; r.Summary.MissingCount = 3 },
			check:  "exclusion",
		},
		{
			name:   "foreign identifier",
			mutate: func(r *Result) { r.MissingIdentifiers = []string{"200", "300", "500"}; r.Summary.MissingCount = 3 },
			check:  "membership",
		},
		{
			name:   "unsorted",
			mutate: func(r *Result) { r.MissingIdentifiers = []string{"300", "200"} },
			check:  "order",
		},
		{
			name:   "summary drift",
			mutate: func(r *Result) { r.Summary.MissingCount = 5 },
			check:  "summary",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Diff(source, target, rule)
			tt.mutate(result)

			err := Verify(result, source, target, rule)
			require.Error(t, err)
			var verr *VerificationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.check, verr.Check)
		})
	}
}
