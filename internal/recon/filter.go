package recon

import (
	"context"
	"fmt"

	"github.com/dbsmedya/custrecon/internal/eligibility"
	"github.com/dbsmedya/custrecon/internal/reconcile"
	"github.com/dbsmedya/custrecon/internal/rowstream"
	"github.com/dbsmedya/custrecon/internal/types"
)

// FilterResult is the merged outcome of the eligibility funnel.
type FilterResult struct {
	RunID       string
	Funnel      eligibility.Snapshot
	Sources     map[string]eligibility.Snapshot
	Reads       map[string]rowstream.Stats
	Diagnostics *eligibility.DiagnosticsReport
	Eligible    *reconcile.IdentifierSet
}

// Counters flattens the merged funnel and read statistics.
func (fr *FilterResult) Counters() map[string]int64 {
	out := fr.Funnel.Counters()
	for _, stats := range fr.Reads {
		out = mergeCounters(out, readCounters(stats))
	}
	out["eligible_unique"] = int64(fr.Eligible.Len())
	return out
}

// sourceScan is what one customer extract produced.
type sourceScan struct {
	read     rowstream.Stats
	funnel   eligibility.Snapshot
	diag     *eligibility.DiagnosticsReport
	eligible *reconcile.IdentifierSet
	valid    *reconcile.IdentifierSet
}

// Filter runs every selected customer extract through the eligibility
// funnel. Diagnostics are collected as well; trace restricts a second funnel
// to the given identifiers and may be nil.
func (r *Reconciler) Filter(ctx context.Context, sources []string, trace []string) (*FilterResult, error) {
	var result *FilterResult
	err := r.track(ctx, "filter", sources, func(runID string) (map[string]int64, error) {
		scans, err := r.scan(ctx, sources, true, trace)
		if err != nil {
			return nil, err
		}
		result, err = r.mergeScans(runID, sources, scans)
		if err != nil {
			return nil, err
		}
		return result.Counters(), nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// scan reads every source concurrently. Each goroutine writes only its own
// slot of the returned slice.
func (r *Reconciler) scan(ctx context.Context, sources []string, withDiagnostics bool, trace []string) ([]sourceScan, error) {
	scans := make([]sourceScan, len(sources))
	err := r.forEachSource(ctx, sources, func(ctx context.Context, i int, name string) error {
		src, err := r.cfg.GetSource(name)
		if err != nil {
			return types.NewRunError(StageRead, name, nil, err)
		}

		funnel := eligibility.NewFunnel()
		var diag *eligibility.Diagnostics
		if withDiagnostics {
			diag = eligibility.NewDiagnostics(r.filter, trace)
		}
		eligible := reconcile.NewIdentifierSet()
		valid := reconcile.NewIdentifierSet()

		stats, err := r.readSource(ctx, name, src.Customers, func(rec rowstream.Record) error {
			o := r.filter.Evaluate(rec)
			funnel.Observe(o)
			if diag != nil {
				diag.Observe(rec, o)
			}
			id := r.filter.CustomerID(rec)
			if types.IsCustomerID(id) {
				valid.Add(id)
			}
			if o.Included {
				eligible.Add(id)
			}
			return nil
		})
		snap := funnel.Snapshot()
		if err != nil {
			return types.NewRunError(StageRead, name, mergeCounters(readCounters(stats), snap.Counters()), err)
		}

		scans[i] = sourceScan{read: stats, funnel: snap, eligible: eligible, valid: valid}
		if diag != nil {
			// Per-source reports keep every country so the merged top N is exact.
			rep := diag.Report(0)
			scans[i].diag = &rep
		}
		r.log.WithSource(name).Infof("Funnel: %d records, %d eligible (%d unique)",
			snap.Total, snap.Included(), eligible.Len())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return scans, nil
}

func (r *Reconciler) mergeScans(runID string, sources []string, scans []sourceScan) (*FilterResult, error) {
	result := &FilterResult{
		RunID:   runID,
		Sources: make(map[string]eligibility.Snapshot, len(sources)),
		Reads:   make(map[string]rowstream.Stats, len(sources)),
	}

	snaps := make([]eligibility.Snapshot, 0, len(scans))
	sets := make([]*reconcile.IdentifierSet, 0, len(scans))
	var reports []eligibility.DiagnosticsReport
	for i, name := range sources {
		result.Sources[name] = scans[i].funnel
		result.Reads[name] = scans[i].read
		snaps = append(snaps, scans[i].funnel)
		sets = append(sets, scans[i].eligible)
		if scans[i].diag != nil {
			reports = append(reports, *scans[i].diag)
		}
	}

	result.Funnel = eligibility.MergeSnapshots(snaps...)
	if err := result.Funnel.Check(); err != nil {
		return nil, types.NewRunError(StageFilter, "", result.Funnel.Counters(), fmt.Errorf("funnel counters inconsistent: %w", err))
	}
	result.Eligible = reconcile.Union(sets...)
	if len(reports) > 0 {
		merged := eligibility.MergeDiagnostics(r.cfg.Analysis.TopN, reports...)
		result.Diagnostics = &merged
	}
	r.metrics.ObserveFunnel(result.Funnel)
	return result, nil
}
