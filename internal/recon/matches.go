package recon

import (
	"context"
	"fmt"

	"github.com/dbsmedya/custrecon/internal/analysis"
	"github.com/dbsmedya/custrecon/internal/reconcile"
	"github.com/dbsmedya/custrecon/internal/rowstream"
	"github.com/dbsmedya/custrecon/internal/types"
)

// MatchesResult is the merged match/duplicate report.
type MatchesResult struct {
	RunID   string
	Report  analysis.Report
	Sources map[string]analysis.Report
}

// Matches counts how target matches the customer extracts of the selected
// sources and how duplicated their identifiers are.
func (r *Reconciler) Matches(ctx context.Context, sources []string, target *reconcile.IdentifierSet) (*MatchesResult, error) {
	if target == nil {
		return nil, types.NewRunError(StageAnalyze, "", nil, fmt.Errorf("target list is nil"))
	}

	var result *MatchesResult
	err := r.track(ctx, "matches", sources, func(runID string) (map[string]int64, error) {
		analyzers := make([]*analysis.Analyzer, len(sources))

		err := r.forEachSource(ctx, sources, func(ctx context.Context, i int, name string) error {
			src, err := r.cfg.GetSource(name)
			if err != nil {
				return types.NewRunError(StageAnalyze, name, nil, err)
			}
			a := analysis.New(target, r.cfg.Columns.Customer)
			read, err := r.readSource(ctx, name, src.Customers, func(rec rowstream.Record) error {
				a.Observe(rec)
				return nil
			})
			if err != nil {
				return types.NewRunError(StageRead, name, mergeCounters(readCounters(read), a.Counters()), err)
			}
			analyzers[i] = a
			return nil
		})
		if err != nil {
			return nil, err
		}

		result = &MatchesResult{
			RunID:   runID,
			Sources: make(map[string]analysis.Report, len(sources)),
		}
		merged := analysis.New(target, r.cfg.Columns.Customer)
		for i, name := range sources {
			result.Sources[name] = analyzers[i].Report(r.cfg.Analysis.TopN)
			merged.Merge(analyzers[i])
		}
		result.Report = merged.Report(r.cfg.Analysis.TopN)
		r.metrics.ObserveMatch(result.Report)

		r.log.WithRun(runID).Infof("Matched %d of %d records (%d unique of %d targets)",
			result.Report.MatchedRecords, result.Report.TotalRecords,
			result.Report.UniqueCustomersMatched, result.Report.TargetSize)
		return merged.Counters(), nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
