package eligibility

import (
	"sort"
	"strings"

	"github.com/dbsmedya/custrecon/internal/rowstream"
	"github.com/dbsmedya/custrecon/internal/types"
)

const (
	flagActive  = "ACTIVE"
	flagDeleted = "DELETED"

	lowBucketBound = 1000000
	maxFlagSamples = 20
)

// CountryCount is one entry of the country distribution.
type CountryCount struct {
	Country string `json:"country" yaml:"country"`
	Count   int64  `json:"count" yaml:"count"`
}

// RangeBuckets splits identifiers into below 1M, up to the configured
// bound, and above it.
type RangeBuckets struct {
	Under1M    int64 `json:"under1M" yaml:"under1M"`
	UpToBound  int64 `json:"upToBound" yaml:"upToBound"`
	AboveBound int64 `json:"aboveBound" yaml:"aboveBound"`
}

// FlagSample captures the raw deletion flag of a traced record that reached
// the deletion stage.
type FlagSample struct {
	Customer string `json:"customer" yaml:"customer"`
	Country  string `json:"country" yaml:"country"`
	RawFlag  string `json:"rawFlag" yaml:"rawFlag"`
	Excluded bool   `json:"excluded" yaml:"excluded"`
}

// DiagnosticsReport is the summary produced by Diagnostics.
type DiagnosticsReport struct {
	Countries   []CountryCount   `json:"countries" yaml:"countries"`
	Flags       map[string]int64 `json:"deletionFlags" yaml:"deletionFlags"`
	Ranges      RangeBuckets     `json:"ranges" yaml:"ranges"`
	Traced      *Snapshot        `json:"traced,omitempty" yaml:"traced,omitempty"`
	TracedFound int64            `json:"tracedFound,omitempty" yaml:"tracedFound,omitempty"`
	FlagSamples []FlagSample     `json:"flagSamples,omitempty" yaml:"flagSamples,omitempty"`
}

// Diagnostics collects distributions that explain why records were dropped.
// When a trace set is given, a second funnel counts only records whose
// identifier is in that set.
type Diagnostics struct {
	filter    *Filter
	countries map[string]int64
	flags     map[string]int64
	ranges    RangeBuckets
	trace     map[string]struct{}
	traced    *Funnel
	found     int64
	samples   []FlagSample
}

// NewDiagnostics creates Diagnostics bound to filter. trace may be nil.
func NewDiagnostics(filter *Filter, trace []string) *Diagnostics {
	d := &Diagnostics{
		filter:    filter,
		countries: make(map[string]int64),
		flags:     map[string]int64{flagActive: 0, flagDeleted: 0},
	}
	if len(trace) > 0 {
		d.trace = make(map[string]struct{}, len(trace))
		for _, id := range trace {
			d.trace[id] = struct{}{}
		}
		d.traced = NewFunnel()
	}
	return d
}

// Observe records one record and the outcome the filter gave it.
func (d *Diagnostics) Observe(rec rowstream.Record, o Outcome) {
	rules := d.filter.Rules()

	if country := strings.TrimSpace(rec.Value(rules.CountryField)); country != "" {
		d.countries[country]++
	}

	if d.filter.IsDeleted(rec) {
		d.flags[flagDeleted]++
	} else {
		d.flags[flagActive]++
	}

	id := d.filter.CustomerID(rec)
	if types.IsCustomerID(id) {
		n, ok := types.ParseCustomerID(id)
		switch {
		case ok && n < lowBucketBound:
			d.ranges.Under1M++
		case ok && n <= rules.MaxCustomerID:
			d.ranges.UpToBound++
		default:
			d.ranges.AboveBound++
		}
	}

	if d.traced == nil {
		return
	}
	if _, ok := d.trace[id]; !ok {
		return
	}
	d.found++
	d.traced.Observe(o)
	reachedDeletion := o.Included || o.Stage == StageDeletion
	if reachedDeletion && len(d.samples) < maxFlagSamples {
		d.samples = append(d.samples, FlagSample{
			Customer: id,
			Country:  rec.Value(rules.CountryField),
			RawFlag:  rec.Value(rules.DeletionField),
			Excluded: o.Stage == StageDeletion,
		})
	}
}

// Report returns the collected distributions with the topN countries.
func (d *Diagnostics) Report(topN int) DiagnosticsReport {
	countries := make([]CountryCount, 0, len(d.countries))
	for c, n := range d.countries {
		countries = append(countries, CountryCount{Country: c, Count: n})
	}
	sort.Slice(countries, func(i, j int) bool {
		if countries[i].Count != countries[j].Count {
			return countries[i].Count > countries[j].Count
		}
		return countries[i].Country < countries[j].Country
	})
	if topN > 0 && len(countries) > topN {
		countries = countries[:topN]
	}

	flags := make(map[string]int64, len(d.flags))
	for k, v := range d.flags {
		flags[k] = v
	}

	report := DiagnosticsReport{
		Countries: countries,
		Flags:     flags,
		Ranges:    d.ranges,
	}
	if d.traced != nil {
		snap := d.traced.Snapshot()
		report.Traced = &snap
		report.TracedFound = d.found
		report.FlagSamples = append([]FlagSample(nil), d.samples...)
	}
	return report
}

// MergeDiagnostics combines reports from independent sources. Countries are
// re-ranked and cut to topN; samples are kept up to the usual cap.
func MergeDiagnostics(topN int, reports ...DiagnosticsReport) DiagnosticsReport {
	countries := make(map[string]int64)
	out := DiagnosticsReport{Flags: map[string]int64{flagActive: 0, flagDeleted: 0}}
	var traced []Snapshot

	for _, r := range reports {
		for _, c := range r.Countries {
			countries[c.Country] += c.Count
		}
		for k, v := range r.Flags {
			out.Flags[k] += v
		}
		out.Ranges.Under1M += r.Ranges.Under1M
		out.Ranges.UpToBound += r.Ranges.UpToBound
		out.Ranges.AboveBound += r.Ranges.AboveBound
		if r.Traced != nil {
			traced = append(traced, *r.Traced)
			out.TracedFound += r.TracedFound
		}
		for _, s := range r.FlagSamples {
			if len(out.FlagSamples) < maxFlagSamples {
				out.FlagSamples = append(out.FlagSamples, s)
			}
		}
	}

	d := &Diagnostics{countries: countries}
	out.Countries = d.Report(topN).Countries
	if len(traced) > 0 {
		merged := MergeSnapshots(traced...)
		out.Traced = &merged
	}
	return out
}
