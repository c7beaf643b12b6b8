package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/custrecon/internal/analysis"
	"github.com/dbsmedya/custrecon/internal/eligibility"
	"github.com/dbsmedya/custrecon/internal/reconcile"
	"github.com/dbsmedya/custrecon/internal/rowstream"
)

func TestObserveRead(t *testing.T) {
	r := New()
	r.ObserveRead("us", rowstream.Stats{Records: 120, Malformed: 3})

	assert.Equal(t, 120.0, testutil.ToFloat64(r.RecordsRead.WithLabelValues("us")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.Malformed.WithLabelValues("us")))
}

func TestObserveFunnel(t *testing.T) {
	r := New()
	r.ObserveFunnel(eligibility.Snapshot{
		Total:             10,
		MissingIdentifier: 1,
		Stages: []eligibility.StageCount{
			{Stage: eligibility.StageRange, Reached: 9, Passed: 7},
			{Stage: eligibility.StageJurisdiction, Reached: 7, Passed: 4},
			{Stage: eligibility.StageDeletion, Reached: 4, Passed: 3},
		},
	})

	assert.Equal(t, 10.0, testutil.ToFloat64(r.FunnelReached.WithLabelValues("total")))
	assert.Equal(t, 9.0, testutil.ToFloat64(r.FunnelPassed.WithLabelValues("total")))
	assert.Equal(t, 7.0, testutil.ToFloat64(r.FunnelPassed.WithLabelValues(string(eligibility.StageRange))))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.FunnelPassed.WithLabelValues(string(eligibility.StageDeletion))))
}

func TestObserveDiffAndMatch(t *testing.T) {
	r := New()
	r.ObserveDiff(reconcile.Summary{TotalInSource: 4, ExcludedCount: 1, FilteredCount: 3, TotalInTarget: 1, MissingCount: 2})
	r.ObserveMatch(analysis.Report{TotalRecords: 8, MatchedRecords: 6, MatchRate: 0.75})

	assert.Equal(t, 2.0, testutil.ToFloat64(r.Diff.WithLabelValues("missing")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.Diff.WithLabelValues("filtered")))
	assert.Equal(t, 6.0, testutil.ToFloat64(r.Match.WithLabelValues("matched_records")))
	assert.Equal(t, 0.75, testutil.ToFloat64(r.Match.WithLabelValues("match_rate")))
}

func TestObserveRun(t *testing.T) {
	r := New()
	r.ObserveRun("reconcile", "", 2*time.Second)
	r.ObserveRun("reconcile", "index", time.Second)
	r.ObserveRun("matches", "index", time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.RunDuration.WithLabelValues("reconcile")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.RunFailures.WithLabelValues("index")))
	assert.Greater(t, testutil.ToFloat64(r.LastSuccess.WithLabelValues("reconcile")), 0.0)
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	r.ObserveRead("us", rowstream.Stats{})
	r.ObserveFunnel(eligibility.Snapshot{})
	r.ObserveDiff(reconcile.Summary{})
	r.ObserveMatch(analysis.Report{})
	r.ObserveRun("filter", "", time.Second)
	assert.Nil(t, r.Registry())
	assert.NoError(t, r.WriteTextfile("ignored.prom"))
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.ObserveDiff(reconcile.Summary{MissingCount: 2})

	path := filepath.Join(t.TempDir(), "custrecon.prom")
	require.NoError(t, r.WriteTextfile(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `custrecon_diff_identifiers{field="missing"} 2`)

	count, err := testutil.GatherAndCount(r.Registry(), "custrecon_diff_identifiers")
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	err = r.WriteTextfile(filepath.Join(t.TempDir(), "missing-dir", "x.prom"))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "failed to write metrics textfile"))
}
