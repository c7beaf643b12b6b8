package report

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dbsmedya/custrecon/internal/analysis"
	"github.com/dbsmedya/custrecon/internal/eligibility"
	"github.com/dbsmedya/custrecon/internal/graph"
	"github.com/dbsmedya/custrecon/internal/types"
)

func TestPrinterNumber(t *testing.T) {
	p := NewPrinter(&bytes.Buffer{}, false)
	assert.Equal(t, "1,234,567", p.Number(1234567))
	assert.Equal(t, "12", p.Number(12))
}

func TestPrinterTableAlignsWideLabels(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)

	p.Table([]Row{{"DE", "1"}, {"日本", "2"}})
	assert.Equal(t, "  DE:    1\n  日本:  2\n", buf.String())
}

func TestPrinterFunnel(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)

	p.Funnel("Eligibility", eligibility.Snapshot{
		Total:             10,
		MissingIdentifier: 1,
		Stages: []eligibility.StageCount{
			{Stage: eligibility.StageRange, Reached: 9, Passed: 6},
			{Stage: eligibility.StageJurisdiction, Reached: 6, Passed: 4},
			{Stage: eligibility.StageDeletion, Reached: 4, Passed: 3},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "[Eligibility]")
	assert.Contains(t, out, "6 (-3)")
	assert.Contains(t, out, "Included:")
	assert.NotContains(t, out, "\x1b[", "no escape codes when colors are off")
}

func TestPrinterDiffSample(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)

	res := sampleResult()
	p.Diff(res, 1)

	out := buf.String()
	assert.Contains(t, out, "Missing from index:")
	assert.Contains(t, out, "200 ... and 1 more")
	assert.Contains(t, out, "Excluded (starts with 4)")
}

func TestPrinterMatchesAndPartners(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)

	p.Matches(analysis.Report{
		TotalRecords:   4,
		MatchedRecords: 2,
		MatchRate:      0.5,
		TopDuplicates:  []analysis.Duplicate{{ID: "1000", Count: 3}},
	})
	g := buildGraph(t,
		graph.PartnerRow{SoldTo: "1", ShipTo: "2", Function: "SH"},
		graph.PartnerRow{SoldTo: "1", ShipTo: "3", Function: "SH"},
		graph.PartnerRow{SoldTo: "4", ShipTo: "3", Function: "BP"},
		graph.PartnerRow{SoldTo: "5", ShipTo: "5", Function: "SH"},
	)
	p.Partners(g, graph.BuildStats{Rows: 4})

	out := buf.String()
	assert.Contains(t, out, "2 (50.00%)")
	assert.Contains(t, out, "3 rows")
	assert.Contains(t, out, "Families:")
	assert.Regexp(t, `Mutual relationships:\s+2\n`, out)
	assert.Regexp(t, `Largest relation set:\s+2\n`, out)
}

func TestPrinterIncomplete(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)

	runErr := &types.RunError{
		Stage:   "read",
		Source:  "us",
		Partial: map[string]int64{"records": 1500, "malformed": 2},
		Err:     errors.New("source unavailable"),
	}
	p.Incomplete(runErr)

	out := buf.String()
	assert.Contains(t, out, "INCOMPLETE: stage read (source us)")
	assert.Contains(t, out, "partial counters (not a result)")
	assert.Contains(t, out, "1,500")
}
