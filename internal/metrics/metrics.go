// Package metrics exposes the counters of a run as prometheus gauges and
// writes them to a node_exporter textfile.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dbsmedya/custrecon/internal/analysis"
	"github.com/dbsmedya/custrecon/internal/eligibility"
	"github.com/dbsmedya/custrecon/internal/reconcile"
	"github.com/dbsmedya/custrecon/internal/rowstream"
)

const namespace = "custrecon"

// Recorder holds the run metrics in its own registry so that a batch run
// exports only what it produced. A nil *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	RecordsRead   *prometheus.GaugeVec
	Malformed     *prometheus.GaugeVec
	FunnelReached *prometheus.GaugeVec
	FunnelPassed  *prometheus.GaugeVec
	Diff          *prometheus.GaugeVec
	Match         *prometheus.GaugeVec
	RunDuration   *prometheus.GaugeVec
	RunFailures   *prometheus.CounterVec
	LastSuccess   *prometheus.GaugeVec
}

// New creates a Recorder with every metric registered.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,

		RecordsRead: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records_read",
			Help:      "Records read from a customer extract",
		}, []string{"source"}),

		Malformed: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records_malformed",
			Help:      "Malformed rows skipped in lenient mode",
		}, []string{"source"}),

		FunnelReached: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "funnel",
			Name:      "reached",
			Help:      "Records reaching an eligibility stage",
		}, []string{"stage"}),

		FunnelPassed: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "funnel",
			Name:      "passed",
			Help:      "Records passing an eligibility stage",
		}, []string{"stage"}),

		Diff: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "diff",
			Name:      "identifiers",
			Help:      "Set reconciliation counters by field",
		}, []string{"field"}), // total_in_source, excluded, filtered, total_in_target, missing

		Match: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "match",
			Name:      "value",
			Help:      "Match and duplicate analysis values by field",
		}, []string{"field"}),

		RunDuration: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of the last run by command",
		}, []string{"command"}),

		RunFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "run_failures_total",
			Help:      "Runs aborted by stage",
		}, []string{"stage"}),

		LastSuccess: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run by command",
		}, []string{"command"}),
	}
}

// Registry returns the registry holding the run metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveRead records the reader counters of one source.
func (r *Recorder) ObserveRead(source string, stats rowstream.Stats) {
	if r != nil {
		r.RecordsRead.WithLabelValues(source).Set(float64(stats.Records))
		r.Malformed.WithLabelValues(source).Set(float64(stats.Malformed))
	}
}

// ObserveFunnel records a funnel snapshot.
func (r *Recorder) ObserveFunnel(s eligibility.Snapshot) {
	if r == nil {
		return
	}
	r.FunnelReached.WithLabelValues("total").Set(float64(s.Total))
	r.FunnelPassed.WithLabelValues("total").Set(float64(s.Total - s.MissingIdentifier))
	for _, sc := range s.Stages {
		r.FunnelReached.WithLabelValues(string(sc.Stage)).Set(float64(sc.Reached))
		r.FunnelPassed.WithLabelValues(string(sc.Stage)).Set(float64(sc.Passed))
	}
}

// ObserveDiff records a diff summary.
func (r *Recorder) ObserveDiff(s reconcile.Summary) {
	if r == nil {
		return
	}
	r.Diff.WithLabelValues("total_in_source").Set(float64(s.TotalInSource))
	r.Diff.WithLabelValues("excluded").Set(float64(s.ExcludedCount))
	r.Diff.WithLabelValues("filtered").Set(float64(s.FilteredCount))
	r.Diff.WithLabelValues("total_in_target").Set(float64(s.TotalInTarget))
	r.Diff.WithLabelValues("missing").Set(float64(s.MissingCount))
}

// ObserveMatch records a match report.
func (r *Recorder) ObserveMatch(rep analysis.Report) {
	if r == nil {
		return
	}
	r.Match.WithLabelValues("total_records").Set(float64(rep.TotalRecords))
	r.Match.WithLabelValues("matched_records").Set(float64(rep.MatchedRecords))
	r.Match.WithLabelValues("unique_matched").Set(float64(rep.UniqueCustomersMatched))
	r.Match.WithLabelValues("not_found_in_source").Set(float64(rep.NotFoundInSource))
	r.Match.WithLabelValues("duplicate_impact").Set(float64(rep.DuplicateImpact))
	r.Match.WithLabelValues("match_rate").Set(rep.MatchRate)
	r.Match.WithLabelValues("unique_match_rate").Set(rep.UniqueMatchRate)
}

// ObserveRun records the end of a run. A non-empty failedStage counts a
// failure; otherwise the success timestamp is updated.
func (r *Recorder) ObserveRun(command, failedStage string, d time.Duration) {
	if r == nil {
		return
	}
	r.RunDuration.WithLabelValues(command).Set(d.Seconds())
	if failedStage != "" {
		r.RunFailures.WithLabelValues(failedStage).Inc()
		return
	}
	r.LastSuccess.WithLabelValues(command).SetToCurrentTime()
}

// WriteTextfile writes the registry in the text exposition format. The file
// is written to a temporary name and renamed, as the textfile collector expects.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	return nil
}
