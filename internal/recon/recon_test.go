package recon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dbsmedya/custrecon/internal/config"
	"github.com/dbsmedya/custrecon/internal/eligibility"
	"github.com/dbsmedya/custrecon/internal/index"
	"github.com/dbsmedya/custrecon/internal/metrics"
	"github.com/dbsmedya/custrecon/internal/reconcile"
	"github.com/dbsmedya/custrecon/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const emeaCustomers = `Customer,Country,Central Deletion Flag
100,DE,
200,FR,
300,US,
4000000,DE,
,DE,
150,DE,X
100,DE,
4100,GB,
`

const apacCustomers = `Customer,Country,Central Deletion Flag
200,JP,
250,SG,
260,,
`

const emeaPartners = `Customer,Customer,Partner Function
100,101,SH
100,102,BP
,103,SH
`

const apacPartners = `Customer,Customer,Partner Function
200,201,SH
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Sources = map[string]config.SourceConfig{
		"emea": {
			Customers: writeFile(t, dir, "emea_customers.csv", emeaCustomers),
			Partners:  writeFile(t, dir, "emea_partners.csv", emeaPartners),
		},
		"apac": {
			Customers: writeFile(t, dir, "apac_customers.csv", apacCustomers),
			Partners:  writeFile(t, dir, "apac_partners.csv", apacPartners),
		},
	}
	return cfg
}

func newTestReconciler(t *testing.T, cfg *config.Config) *Reconciler {
	t.Helper()
	r, err := New(cfg, nil, nil)
	require.NoError(t, err)
	return r
}

type runLogCall struct {
	method string
	runID  string
	stage  string
}

type fakeRunLog struct {
	mu    sync.Mutex
	calls []runLogCall
	err   error
}

func (f *fakeRunLog) record(c runLogCall) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return f.err
}

func (f *fakeRunLog) Start(ctx context.Context, runID, command, sources string) error {
	return f.record(runLogCall{method: "start", runID: runID})
}

func (f *fakeRunLog) Complete(ctx context.Context, runID string, counters map[string]int64) error {
	return f.record(runLogCall{method: "complete", runID: runID})
}

func (f *fakeRunLog) Fail(ctx context.Context, runID, stage string, runErr error, partial map[string]int64) error {
	return f.record(runLogCall{method: "fail", runID: runID, stage: stage})
}

type failingLister struct{}

func (failingLister) NextPage(ctx context.Context) ([]string, error) {
	return nil, errors.New("connection reset")
}

func TestNew(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		r, err := New(nil, nil, nil)
		assert.Error(t, err)
		assert.Nil(t, r)
	})

	t.Run("unknown jurisdiction rule", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Eligibility.JurisdictionRule = "exclude_everything"
		r, err := New(cfg, nil, nil)
		assert.Error(t, err)
		assert.Nil(t, r)
	})

	t.Run("exclusion rule from config", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Reconciliation.ExcludeLeadingDigits = []string{"4"}
		r := newTestReconciler(t, cfg)
		assert.True(t, r.ExclusionRule().Matches("4100"))
		assert.False(t, r.ExclusionRule().Matches("3100"))
	})
}

func TestFilter(t *testing.T) {
	r := newTestReconciler(t, testConfig(t))

	res, err := r.Filter(context.Background(), []string{"apac", "emea"}, nil)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.NotEmpty(t, res.RunID)

	emea := res.Sources["emea"]
	assert.Equal(t, int64(8), emea.Total)
	assert.Equal(t, int64(1), emea.MissingIdentifier)
	assert.Equal(t, int64(6), emea.Passed(eligibility.StageRange))
	assert.Equal(t, int64(5), emea.Passed(eligibility.StageJurisdiction))
	assert.Equal(t, int64(4), emea.Passed(eligibility.StageDeletion))

	apac := res.Sources["apac"]
	assert.Equal(t, int64(3), apac.Total)
	assert.Equal(t, int64(2), apac.Included())

	assert.Equal(t, int64(11), res.Funnel.Total)
	assert.Equal(t, int64(6), res.Funnel.Included())
	assert.NoError(t, res.Funnel.Check())
	assert.Equal(t, []string{"100", "200", "250", "4100"}, res.Eligible.Sorted())

	assert.Equal(t, int64(8), res.Reads["emea"].Records)

	require.NotNil(t, res.Diagnostics)
	assert.Equal(t, int64(1), res.Diagnostics.Flags["DELETED"])
	assert.Equal(t, int64(10), res.Diagnostics.Flags["ACTIVE"])
	require.NotEmpty(t, res.Diagnostics.Countries)
	assert.Equal(t, "DE", res.Diagnostics.Countries[0].Country)
	assert.Nil(t, res.Diagnostics.Traced)

	counters := res.Counters()
	assert.Equal(t, int64(11), counters["records_read"])
	assert.Equal(t, int64(4), counters["eligible_unique"])
	assert.Equal(t, int64(11), counters["total"])
}

func TestFilter_Trace(t *testing.T) {
	r := newTestReconciler(t, testConfig(t))

	res, err := r.Filter(context.Background(), []string{"emea", "apac"}, []string{"150", "200"})
	require.NoError(t, err)
	require.NotNil(t, res.Diagnostics.Traced)
	assert.Equal(t, int64(3), res.Diagnostics.TracedFound)
	assert.Equal(t, int64(2), res.Diagnostics.Traced.Included())
}

func TestFilter_ConcurrencyDoesNotChangeResult(t *testing.T) {
	cfg := testConfig(t)
	sources := []string{"apac", "emea"}

	cfg.Processing.MaxConcurrentSources = 1
	serial, err := newTestReconciler(t, cfg).Filter(context.Background(), sources, nil)
	require.NoError(t, err)

	cfg.Processing.MaxConcurrentSources = 8
	parallel, err := newTestReconciler(t, cfg).Filter(context.Background(), sources, nil)
	require.NoError(t, err)

	assert.Equal(t, serial.Funnel, parallel.Funnel)
	assert.Equal(t, serial.Eligible.Sorted(), parallel.Eligible.Sorted())
}

func TestFilter_MissingSourceFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sources["ghost"] = config.SourceConfig{Customers: filepath.Join(t.TempDir(), "absent.csv")}
	rl := &fakeRunLog{}
	r := newTestReconciler(t, cfg).WithRunLog(rl)

	res, err := r.Filter(context.Background(), []string{"ghost"}, nil)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, types.ErrSourceUnavailable)

	runErr, ok := types.AsRunError(err)
	require.True(t, ok)
	assert.Equal(t, StageRead, runErr.Stage)
	assert.Equal(t, "ghost", runErr.Source)
	assert.Contains(t, err.Error(), "incomplete")

	require.Len(t, rl.calls, 2)
	assert.Equal(t, "start", rl.calls[0].method)
	assert.Equal(t, "fail", rl.calls[1].method)
	assert.Equal(t, StageRead, rl.calls[1].stage)
	assert.Equal(t, rl.calls[0].runID, rl.calls[1].runID)
}

func TestFilter_StrictMalformedRow(t *testing.T) {
	cfg := testConfig(t)
	bad := writeFile(t, t.TempDir(), "bad.csv", "Customer,Country,Central Deletion Flag\n100,DE,\n200,DE\n300,DE,\n")
	strict := true
	cfg.Sources["bad"] = config.SourceConfig{Customers: bad, Reader: &config.ReaderConfig{Strict: &strict}}
	r := newTestReconciler(t, cfg)

	_, err := r.Filter(context.Background(), []string{"bad"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrMalformedRecord)

	runErr, ok := types.AsRunError(err)
	require.True(t, ok)
	assert.Equal(t, int64(1), runErr.Partial["records_read"])
	assert.Equal(t, int64(1), runErr.Partial["total"])
}

func TestFilter_LenientMalformedRow(t *testing.T) {
	cfg := testConfig(t)
	bad := writeFile(t, t.TempDir(), "bad.csv", "Customer,Country,Central Deletion Flag\n100,DE,\n200,DE\n300,DE,\n")
	cfg.Sources["bad"] = config.SourceConfig{Customers: bad}
	r := newTestReconciler(t, cfg)

	res, err := r.Filter(context.Background(), []string{"bad"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Reads["bad"].Malformed)
	assert.Equal(t, int64(2), res.Funnel.Total)
}

func TestFilter_Canceled(t *testing.T) {
	r := newTestReconciler(t, testConfig(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := r.Filter(ctx, []string{"emea", "apac"}, nil)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
	_, ok := types.AsRunError(err)
	assert.True(t, ok)
}

func TestReconcile(t *testing.T) {
	rec := metrics.New()
	rl := &fakeRunLog{}
	r, err := New(testConfig(t), nil, rec)
	require.NoError(t, err)
	r.WithRunLog(rl)

	lister := index.NewSliceLister([]string{"200", "999", "abc"}, 2)
	res, err := r.Reconcile(context.Background(), []string{"emea", "apac"}, lister)
	require.NoError(t, err)

	assert.Equal(t, []string{"100", "250"}, res.Result.MissingIdentifiers)
	assert.Equal(t, reconcile.Summary{
		TotalInSource: 4,
		ExcludedCount: 1,
		FilteredCount: 3,
		TotalInTarget: 2,
		MissingCount:  2,
		ExclusionRule: r.ExclusionRule().String(),
	}, res.Result.Summary)
	assert.Equal(t, 1, res.Target.Skipped)
	assert.Equal(t, res.Result.Fingerprint(), res.Fingerprint)
	assert.Equal(t, int64(11), res.Filter.Funnel.Total)

	assert.Equal(t, float64(2), testutil.ToFloat64(rec.Diff.WithLabelValues("missing")))
	assert.Equal(t, float64(4), testutil.ToFloat64(rec.Diff.WithLabelValues("total_in_source")))

	require.Len(t, rl.calls, 2)
	assert.Equal(t, "complete", rl.calls[1].method)
	assert.Equal(t, res.RunID, rl.calls[1].runID)

	counters := res.Counters()
	assert.Equal(t, int64(2), counters["missing"])
	assert.Equal(t, int64(1), counters["target_skipped"])
}

func TestReconcile_WithoutEligibility(t *testing.T) {
	cfg := testConfig(t)
	cfg.Reconciliation.ApplyEligibility = false
	r := newTestReconciler(t, cfg)

	res, err := r.Reconcile(context.Background(), []string{"emea", "apac"}, index.NewSliceLister([]string{"200"}, 0))
	require.NoError(t, err)

	assert.Equal(t, 8, res.Result.Summary.TotalInSource)
	assert.Equal(t, 3, res.Result.Summary.ExcludedCount)
	assert.Equal(t, []string{"100", "150", "250", "260"}, res.Result.MissingIdentifiers)
}

func TestReconcile_TargetUnavailable(t *testing.T) {
	rec := metrics.New()
	rl := &fakeRunLog{}
	r, err := New(testConfig(t), nil, rec)
	require.NoError(t, err)
	r.WithRunLog(rl)

	res, err := r.Reconcile(context.Background(), []string{"emea"}, failingLister{})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, types.ErrTargetUnavailable)

	runErr, ok := types.AsRunError(err)
	require.True(t, ok)
	assert.Equal(t, StageIndex, runErr.Stage)
	assert.Equal(t, int64(0), runErr.Partial["target_pages"])

	assert.Equal(t, float64(1), testutil.ToFloat64(rec.RunFailures.WithLabelValues(StageIndex)))
	require.Len(t, rl.calls, 2)
	assert.Equal(t, StageIndex, rl.calls[1].stage)
}

func TestReconcile_RunLogErrorsDoNotFailRun(t *testing.T) {
	rl := &fakeRunLog{err: errors.New("table is read only")}
	r := newTestReconciler(t, testConfig(t)).WithRunLog(rl)

	res, err := r.Reconcile(context.Background(), []string{"apac"}, index.NewSliceLister(nil, 0))
	require.NoError(t, err)
	assert.Equal(t, []string{"200", "250"}, res.Result.MissingIdentifiers)
	assert.Len(t, rl.calls, 2)
}

func TestPartners(t *testing.T) {
	r := newTestReconciler(t, testConfig(t))

	res, err := r.Partners(context.Background(), []string{"emea", "apac"})
	require.NoError(t, err)

	assert.Equal(t, 5, res.Graph.NodeCount())
	assert.Equal(t, 5, res.Graph.EdgeCount())
	assert.Equal(t, []string{"101"}, res.Graph.Related("100"))
	assert.Equal(t, []string{"100"}, res.Graph.Related("102"))
	assert.Equal(t, []string{"201"}, res.Graph.Related("200"))
	assert.Equal(t, int64(4), res.Stats.Rows)
	assert.Equal(t, int64(1), res.Stats.Skipped)
	assert.Equal(t, int64(1), res.Sources["emea"].Skipped)

	counters := res.Counters()
	assert.Equal(t, int64(5), counters["nodes"])
	assert.Equal(t, int64(1), counters["skipped_rows"])
}

func TestPartners_SkipsSourcesWithoutExtract(t *testing.T) {
	cfg := testConfig(t)
	apac := cfg.Sources["apac"]
	apac.Partners = ""
	cfg.Sources["apac"] = apac
	r := newTestReconciler(t, cfg)

	res, err := r.Partners(context.Background(), []string{"emea", "apac"})
	require.NoError(t, err)
	assert.Len(t, res.Sources, 1)
	assert.False(t, res.Graph.HasNode("200"))

	_, err = r.Partners(context.Background(), []string{"apac"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoPartnerExtracts)
}

func TestMatches(t *testing.T) {
	rec := metrics.New()
	r, err := New(testConfig(t), nil, rec)
	require.NoError(t, err)

	target := reconcile.NewIdentifierSet("100", "250", "777")
	res, err := r.Matches(context.Background(), []string{"emea", "apac"}, target)
	require.NoError(t, err)

	rep := res.Report
	assert.Equal(t, int64(11), rep.TotalRecords)
	assert.Equal(t, int64(1), rep.MissingIdentifier)
	assert.Equal(t, int64(3), rep.MatchedRecords)
	assert.Equal(t, int64(2), rep.UniqueCustomersMatched)
	assert.Equal(t, int64(3), rep.TargetSize)
	assert.Equal(t, int64(1), rep.NotFoundInSource)
	assert.Equal(t, int64(1), rep.DuplicateImpact)
	assert.Equal(t, int64(8), rep.DistinctCustomers)
	assert.Equal(t, int64(2), rep.DuplicatedCustomers)
	require.Len(t, rep.TopDuplicates, 2)
	assert.Equal(t, "100", rep.TopDuplicates[0].ID)
	assert.Equal(t, "200", rep.TopDuplicates[1].ID)

	assert.Equal(t, int64(2), res.Sources["emea"].MatchedRecords)
	assert.Equal(t, int64(1), res.Sources["apac"].MatchedRecords)
	assert.Equal(t, float64(3), testutil.ToFloat64(rec.Match.WithLabelValues("matched_records")))
}

func TestMatches_NilTarget(t *testing.T) {
	r := newTestReconciler(t, testConfig(t))
	_, err := r.Matches(context.Background(), []string{"emea"}, nil)
	require.Error(t, err)
	runErr, ok := types.AsRunError(err)
	require.True(t, ok)
	assert.Equal(t, StageAnalyze, runErr.Stage)
}
