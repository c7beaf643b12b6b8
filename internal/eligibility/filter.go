// Package eligibility implements the ordered, counted filter funnel that
// decides which customer records are eligible for downstream processing.
package eligibility

import (
	"fmt"
	"strings"

	"github.com/dbsmedya/custrecon/internal/config"
	"github.com/dbsmedya/custrecon/internal/rowstream"
	"github.com/dbsmedya/custrecon/internal/types"
)

// StageID names one stage of the funnel.
type StageID string

const (
	StageNone         StageID = ""
	StageRange        StageID = "range"
	StageJurisdiction StageID = "jurisdiction"
	StageDeletion     StageID = "deletion"
)

// Stages lists the funnel stages in evaluation order.
var Stages = []StageID{StageRange, StageJurisdiction, StageDeletion}

// Outcome is the tagged result of evaluating one record. Stage is the
// stage that excluded the record, or StageNone when it was included.
type Outcome struct {
	Included  bool
	Stage     StageID
	MissingID bool
}

// Rules holds everything the filter needs to evaluate a record.
type Rules struct {
	CustomerField    string
	CountryField     string
	DeletionField    string
	MaxCustomerID    int64
	DomesticCountry  string
	Jurisdiction     JurisdictionRule
	JurisdictionName string
	DeletionSentinel string
}

// RulesFromConfig builds Rules from configuration.
func RulesFromConfig(elig config.EligibilityConfig, cols config.ColumnsConfig) (Rules, error) {
	rule, err := LookupJurisdiction(elig.JurisdictionRule)
	if err != nil {
		return Rules{}, err
	}
	name := elig.JurisdictionRule
	if name == "" {
		name = RuleExcludeDomesticAndMissing
	}
	return Rules{
		CustomerField:    cols.Customer,
		CountryField:     cols.Country,
		DeletionField:    cols.DeletionFlag,
		MaxCustomerID:    elig.MaxCustomerID,
		DomesticCountry:  elig.DomesticCountry,
		Jurisdiction:     rule,
		JurisdictionName: name,
		DeletionSentinel: elig.DeletionSentinel,
	}, nil
}

// Filter evaluates records against Rules. It holds no mutable state and is
// safe for concurrent use.
type Filter struct {
	rules    Rules
	sentinel string
}

// New creates a Filter.
func New(rules Rules) (*Filter, error) {
	if rules.Jurisdiction == nil {
		return nil, fmt.Errorf("jurisdiction rule is required")
	}
	if rules.MaxCustomerID <= 0 {
		return nil, fmt.Errorf("max customer id must be positive, got %d", rules.MaxCustomerID)
	}
	return &Filter{
		rules:    rules,
		sentinel: normalizeFlag(rules.DeletionSentinel),
	}, nil
}

// Rules returns the rules the filter was built with.
func (f *Filter) Rules() Rules {
	return f.rules
}

// Evaluate applies the stages in order and stops at the first one that fails.
func (f *Filter) Evaluate(rec rowstream.Record) Outcome {
	id := strings.TrimSpace(rec.Value(f.rules.CustomerField))
	if id == "" {
		return Outcome{Stage: StageRange, MissingID: true}
	}
	if !f.inRange(id) {
		return Outcome{Stage: StageRange}
	}
	if !f.rules.Jurisdiction(rec.Value(f.rules.CountryField), f.rules.DomesticCountry) {
		return Outcome{Stage: StageJurisdiction}
	}
	if f.IsDeleted(rec) {
		return Outcome{Stage: StageDeletion}
	}
	return Outcome{Included: true}
}

// CustomerID returns the trimmed identifier of rec.
func (f *Filter) CustomerID(rec rowstream.Record) string {
	return strings.TrimSpace(rec.Value(f.rules.CustomerField))
}

// IsDeleted reports whether the record's deletion flag equals the sentinel.
func (f *Filter) IsDeleted(rec rowstream.Record) bool {
	return normalizeFlag(rec.Value(f.rules.DeletionField)) == f.sentinel
}

func (f *Filter) inRange(id string) bool {
	if !types.IsCustomerID(id) {
		return false
	}
	n, ok := types.ParseCustomerID(id)
	// Digit strings that overflow int64 are above any bound.
	return ok && n <= f.rules.MaxCustomerID
}

func normalizeFlag(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
