package recon

import (
	"context"
	"errors"

	"github.com/dbsmedya/custrecon/internal/graph"
	"github.com/dbsmedya/custrecon/internal/rowstream"
	"github.com/dbsmedya/custrecon/internal/types"
)

// ErrNoPartnerExtracts is returned when none of the selected sources has a
// partner extract configured.
var ErrNoPartnerExtracts = errors.New("no partner extracts configured for the selected sources")

// PartnersResult is the merged relationship graph.
type PartnersResult struct {
	RunID   string
	Graph   *graph.Graph
	Stats   graph.BuildStats
	Sources map[string]graph.BuildStats
}

// Counters flattens the graph size and row statistics.
func (pr *PartnersResult) Counters() map[string]int64 {
	return map[string]int64{
		"nodes":        int64(pr.Graph.NodeCount()),
		"edges":        int64(pr.Graph.EdgeCount()),
		"rows":         pr.Stats.Rows,
		"skipped_rows": pr.Stats.Skipped,
	}
}

// Partners builds one graph per partner extract and merges them. Sources
// without a partner extract are skipped with a warning.
func (r *Reconciler) Partners(ctx context.Context, sources []string) (*PartnersResult, error) {
	var withPartners []string
	for _, name := range sources {
		src, err := r.cfg.GetSource(name)
		if err != nil {
			return nil, types.NewRunError(StagePartners, name, nil, err)
		}
		if src.Partners == "" {
			r.log.WithSource(name).Warnf("No partner extract configured, skipping")
			continue
		}
		withPartners = append(withPartners, name)
	}
	if len(withPartners) == 0 {
		return nil, types.NewRunError(StagePartners, "", nil, ErrNoPartnerExtracts)
	}

	var result *PartnersResult
	err := r.track(ctx, "partners", withPartners, func(runID string) (map[string]int64, error) {
		graphs := make([]*graph.Graph, len(withPartners))
		stats := make([]graph.BuildStats, len(withPartners))

		err := r.forEachSource(ctx, withPartners, func(ctx context.Context, i int, name string) error {
			src, err := r.cfg.GetSource(name)
			if err != nil {
				return types.NewRunError(StagePartners, name, nil, err)
			}
			b := graph.NewBuilder(r.cfg.Partners.ShipToFunction)
			read, err := r.readSource(ctx, name, src.Partners, func(rec rowstream.Record) error {
				return b.AddRecord(rec, r.cfg.Columns)
			})
			if err != nil {
				partial := readCounters(read)
				partial["rows"] = b.Stats().Rows
				partial["skipped_rows"] = b.Stats().Skipped
				return types.NewRunError(StageRead, name, partial, err)
			}
			graphs[i] = b.Build()
			stats[i] = b.Stats()
			r.log.WithSource(name).Infof("Partner graph: %d nodes, %d edges (%d rows skipped)",
				graphs[i].NodeCount(), graphs[i].EdgeCount(), stats[i].Skipped)
			return nil
		})
		if err != nil {
			return nil, err
		}

		result = &PartnersResult{
			RunID:   runID,
			Graph:   graph.Merge(graphs...),
			Sources: make(map[string]graph.BuildStats, len(withPartners)),
		}
		for i, name := range withPartners {
			result.Sources[name] = stats[i]
			result.Stats.Rows += stats[i].Rows
			result.Stats.Skipped += stats[i].Skipped
		}
		return result.Counters(), nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
