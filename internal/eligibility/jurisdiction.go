package eligibility

import (
	"fmt"
	"sort"
	"strings"
)

// JurisdictionRule decides whether a record's country passes the
// jurisdiction stage. domestic is the configured domestic-market code.
type JurisdictionRule func(country, domestic string) bool

const (
	// RuleExcludeDomesticAndMissing drops domestic records and records with
	// no country. This is the behaviour of the production load.
	RuleExcludeDomesticAndMissing = "exclude_domestic_and_missing"

	// RuleExcludeDomesticOnly drops domestic records and keeps records with
	// no country.
	RuleExcludeDomesticOnly = "exclude_domestic_only"
)

// JurisdictionRules is the registry of named jurisdiction predicates.
var JurisdictionRules = map[string]JurisdictionRule{
	RuleExcludeDomesticAndMissing: func(country, domestic string) bool {
		country = strings.TrimSpace(country)
		return country != "" && !strings.EqualFold(country, domestic)
	},
	RuleExcludeDomesticOnly: func(country, domestic string) bool {
		country = strings.TrimSpace(country)
		return country == "" || !strings.EqualFold(country, domestic)
	},
}

// LookupJurisdiction returns the rule registered under name. An empty name
// selects RuleExcludeDomesticAndMissing.
func LookupJurisdiction(name string) (JurisdictionRule, error) {
	if name == "" {
		name = RuleExcludeDomesticAndMissing
	}
	rule, ok := JurisdictionRules[name]
	if !ok {
		return nil, fmt.Errorf("unknown jurisdiction rule %q (known: %s)", name, strings.Join(JurisdictionRuleNames(), ", "))
	}
	return rule, nil
}

// JurisdictionRuleNames returns the registered rule names, sorted.
func JurisdictionRuleNames() []string {
	names := make([]string, 0, len(JurisdictionRules))
	for name := range JurisdictionRules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
