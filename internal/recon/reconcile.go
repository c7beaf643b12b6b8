package recon

import (
	"context"

	"github.com/dbsmedya/custrecon/internal/index"
	"github.com/dbsmedya/custrecon/internal/reconcile"
	"github.com/dbsmedya/custrecon/internal/types"
)

// ReconcileResult is the outcome of a reconciliation run.
type ReconcileResult struct {
	RunID       string
	Filter      *FilterResult
	Target      index.DrainStats
	Result      *reconcile.Result
	Fingerprint string
}

// Counters flattens the diff summary and the target listing.
func (rr *ReconcileResult) Counters() map[string]int64 {
	s := rr.Result.Summary
	return map[string]int64{
		"total_in_source": int64(s.TotalInSource),
		"excluded":        int64(s.ExcludedCount),
		"filtered":        int64(s.FilteredCount),
		"total_in_target": int64(s.TotalInTarget),
		"missing":         int64(s.MissingCount),
		"target_pages":    int64(rr.Target.Pages),
		"target_skipped":  int64(rr.Target.Skipped),
	}
}

// Reconcile lists the whole target index, reads the selected sources and
// computes which source identifiers the target lacks. The target is drained
// first: a partial listing would turn into false misses, so any listing
// failure aborts the run before the extracts are read.
func (r *Reconciler) Reconcile(ctx context.Context, sources []string, lister index.Lister) (*ReconcileResult, error) {
	var result *ReconcileResult
	err := r.track(ctx, "reconcile", sources, func(runID string) (map[string]int64, error) {
		log := r.log.WithRun(runID)

		target, drained, err := index.Drain(ctx, lister, log.WithStage(StageIndex))
		if err != nil {
			return nil, types.NewRunError(StageIndex, "", map[string]int64{
				"target_pages":  int64(drained.Pages),
				"target_listed": int64(drained.Listed),
			}, err)
		}
		log.Infof("Target index lists %d identifiers (%d entries skipped)", target.Len(), drained.Skipped)

		scans, err := r.scan(ctx, sources, false, nil)
		if err != nil {
			return nil, err
		}
		filtered, err := r.mergeScans(runID, sources, scans)
		if err != nil {
			return nil, err
		}

		source := filtered.Eligible
		if !r.cfg.Reconciliation.ApplyEligibility {
			valid := make([]*reconcile.IdentifierSet, 0, len(scans))
			for _, s := range scans {
				valid = append(valid, s.valid)
			}
			source = reconcile.Union(valid...)
		}

		diff := reconcile.Diff(source, target, r.rule)
		if r.cfg.Reconciliation.Verify {
			if err := reconcile.Verify(diff, source, target, r.rule); err != nil {
				return nil, types.NewRunError(StageVerify, "", filtered.Counters(), err)
			}
		}
		r.metrics.ObserveDiff(diff.Summary)

		result = &ReconcileResult{
			RunID:       runID,
			Filter:      filtered,
			Target:      drained,
			Result:      diff,
			Fingerprint: diff.Fingerprint(),
		}
		log.Infof("Reconciled %d source identifiers (%d excluded by %s): %d missing from target",
			diff.Summary.TotalInSource, diff.Summary.ExcludedCount, diff.Summary.ExclusionRule, diff.Summary.MissingCount)
		return result.Counters(), nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
