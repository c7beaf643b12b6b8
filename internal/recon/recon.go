// Package recon runs the reconciliation pipeline over the configured regional
// extracts. Each source is read by its own goroutine into its own funnel,
// set, graph or analyzer; results are merged only after every source
// succeeded, so a failed run never yields a final result.
package recon

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dbsmedya/custrecon/internal/config"
	"github.com/dbsmedya/custrecon/internal/eligibility"
	"github.com/dbsmedya/custrecon/internal/logger"
	"github.com/dbsmedya/custrecon/internal/metrics"
	"github.com/dbsmedya/custrecon/internal/reconcile"
	"github.com/dbsmedya/custrecon/internal/rowstream"
	"github.com/dbsmedya/custrecon/internal/runlog"
	"github.com/dbsmedya/custrecon/internal/types"
)

// Stage names reported in RunError and in the run log.
const (
	StageRead     = "read"
	StageFilter   = "filter"
	StageIndex    = "index"
	StageDiff     = "diff"
	StageVerify   = "verify"
	StagePartners = "partners"
	StageAnalyze  = "analyze"
)

// RunLog persists the lifecycle of a run. runlog.Store implements it.
type RunLog interface {
	Start(ctx context.Context, runID, command, sources string) error
	Complete(ctx context.Context, runID string, counters map[string]int64) error
	Fail(ctx context.Context, runID, stage string, runErr error, partial map[string]int64) error
}

// Reconciler coordinates the pipeline for one configuration.
type Reconciler struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Recorder
	runLog  RunLog
	filter  *eligibility.Filter
	rule    reconcile.ExclusionRule
}

// New creates a Reconciler. log and rec may be nil.
func New(cfg *config.Config, log *logger.Logger, rec *metrics.Recorder) (*Reconciler, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if log == nil {
		log = logger.NewNop()
	}

	rules, err := eligibility.RulesFromConfig(cfg.Eligibility, cfg.Columns)
	if err != nil {
		return nil, fmt.Errorf("invalid eligibility rules: %w", err)
	}
	filter, err := eligibility.New(rules)
	if err != nil {
		return nil, fmt.Errorf("invalid eligibility rules: %w", err)
	}

	return &Reconciler{
		cfg:     cfg,
		log:     log,
		metrics: rec,
		filter:  filter,
		rule:    reconcile.LeadingDigits(cfg.Reconciliation.ExcludeLeadingDigits...),
	}, nil
}

// WithRunLog records every subsequent run in rl.
func (r *Reconciler) WithRunLog(rl RunLog) *Reconciler {
	r.runLog = rl
	return r
}

// ExclusionRule returns the rule applied before the set difference.
func (r *Reconciler) ExclusionRule() reconcile.ExclusionRule {
	return r.rule
}

// track wraps one run: it records start and outcome in the run log and the
// duration in metrics. Run log failures are logged, never returned.
func (r *Reconciler) track(ctx context.Context, command string, sources []string, run func(runID string) (map[string]int64, error)) error {
	runID := runlog.NewRunID()
	log := r.log.WithRun(runID)
	started := time.Now()

	// The outcome is recorded even when ctx was canceled.
	recordCtx := context.WithoutCancel(ctx)

	if r.runLog != nil {
		if err := r.runLog.Start(recordCtx, runID, command, strings.Join(sources, ",")); err != nil {
			log.Warnf("failed to record run start: %v", err)
		}
	}
	log.Infof("Starting %s for sources %s", command, strings.Join(sources, ", "))

	counters, err := run(runID)
	elapsed := time.Since(started)

	if err != nil {
		stage, partial := StageRead, map[string]int64(nil)
		if re, ok := types.AsRunError(err); ok {
			stage, partial = re.Stage, re.Partial
		}
		log.Errorf("%s failed at stage %s after %s: %v", command, stage, elapsed.Round(time.Millisecond), err)
		r.metrics.ObserveRun(command, stage, elapsed)
		if r.runLog != nil {
			if ferr := r.runLog.Fail(recordCtx, runID, stage, err, partial); ferr != nil {
				log.Warnf("failed to record run failure: %v", ferr)
			}
		}
		return err
	}

	log.Infof("%s completed in %s", command, elapsed.Round(time.Millisecond))
	r.metrics.ObserveRun(command, "", elapsed)
	if r.runLog != nil {
		if cerr := r.runLog.Complete(recordCtx, runID, counters); cerr != nil {
			log.Warnf("failed to record run completion: %v", cerr)
		}
	}
	return nil
}

// forEachSource runs fn for every source, at most
// processing.max_concurrent_sources at a time. The first error cancels the
// others and is returned.
func (r *Reconciler) forEachSource(ctx context.Context, sources []string, fn func(ctx context.Context, i int, name string) error) error {
	g, gctx := errgroup.WithContext(ctx)
	if n := r.cfg.Processing.MaxConcurrentSources; n > 0 {
		g.SetLimit(n)
	}
	for i, name := range sources {
		g.Go(func() error {
			return fn(gctx, i, name)
		})
	}
	return g.Wait()
}

// readSource streams the file at path through fn using the source's
// effective reader settings.
func (r *Reconciler) readSource(ctx context.Context, name, path string, fn func(rowstream.Record) error) (rowstream.Stats, error) {
	rc := r.cfg.GetSourceReader(name)
	delim, err := rowstream.ParseDelimiter(rc.Delimiter)
	if err != nil {
		return rowstream.Stats{}, err
	}

	log := r.log.WithSource(name)
	reader, err := rowstream.Open(path, rowstream.Options{
		Delimiter:     delim,
		Encoding:      rc.Encoding,
		TrimSpace:     rc.IsTrimSpace(),
		Strict:        rc.IsStrict(),
		ProgressEvery: r.cfg.Processing.ProgressEvery,
		Observer: func(p rowstream.Progress) {
			log.Infof("Read %d records (%d malformed)", p.Records, p.Malformed)
		},
	})
	if err != nil {
		return rowstream.Stats{}, err
	}
	defer func() {
		if cerr := reader.Close(); cerr != nil {
			log.Warnf("failed to close %s: %v", path, cerr)
		}
	}()

	err = reader.ForEach(ctx, fn)
	stats := reader.Stats()
	r.metrics.ObserveRead(name, stats)
	if stats.Malformed > 0 {
		log.Warnf("Skipped %d malformed rows in %s", stats.Malformed, path)
	}
	return stats, err
}

func readCounters(stats rowstream.Stats) map[string]int64 {
	return map[string]int64{
		"records_read": stats.Records,
		"malformed":    stats.Malformed,
	}
}

func mergeCounters(dst map[string]int64, src map[string]int64) map[string]int64 {
	if dst == nil {
		dst = make(map[string]int64, len(src))
	}
	for k, v := range src {
		dst[k] += v
	}
	return dst
}
