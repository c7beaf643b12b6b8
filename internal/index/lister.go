// Package index lists the customer identifiers already known to the external
// index. Every backend pages through its data and signals the end with an
// empty page.
package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/dbsmedya/custrecon/internal/logger"
	"github.com/dbsmedya/custrecon/internal/reconcile"
	"github.com/dbsmedya/custrecon/internal/types"
)

// Lister produces pages of identifiers. An empty page with a nil error means
// the listing is complete.
type Lister interface {
	NextPage(ctx context.Context) ([]string, error)
}

// DrainStats counts what Drain consumed.
type DrainStats struct {
	Pages   int `json:"pages" yaml:"pages"`
	Listed  int `json:"listed" yaml:"listed"`
	Skipped int `json:"skipped" yaml:"skipped"` // entries that are not customer identifiers
}

// Drain consumes every page of l into an IdentifierSet. Any failure, including
// cancellation, returns an error wrapping types.ErrTargetUnavailable and no
// set: a diff against a partial target would report false misses.
func Drain(ctx context.Context, l Lister, log *logger.Logger) (*reconcile.IdentifierSet, DrainStats, error) {
	if log == nil {
		log = logger.NewNop()
	}
	set := reconcile.NewIdentifierSet()
	var stats DrainStats

	for {
		if err := ctx.Err(); err != nil {
			return nil, stats, fmt.Errorf("%w: listing interrupted after %d pages: %v", types.ErrTargetUnavailable, stats.Pages, err)
		}

		page, err := l.NextPage(ctx)
		if err != nil {
			if errors.Is(err, types.ErrTargetUnavailable) {
				return nil, stats, err
			}
			return nil, stats, fmt.Errorf("%w: page %d: %v", types.ErrTargetUnavailable, stats.Pages+1, err)
		}
		if len(page) == 0 {
			break
		}

		stats.Pages++
		for _, id := range page {
			stats.Listed++
			if !types.IsCustomerID(id) {
				stats.Skipped++
				continue
			}
			set.Add(id)
		}
		log.Debugf("Index page %d: %d identifiers (%d distinct so far)", stats.Pages, len(page), set.Len())
	}

	log.Infof("Index listing complete: %d distinct identifiers in %d pages (%d skipped)",
		set.Len(), stats.Pages, stats.Skipped)
	return set, stats, nil
}

// SliceLister pages through a fixed list. Useful for tests and for target
// lists loaded from a previous report.
type SliceLister struct {
	ids      []string
	pageSize int
	pos      int
}

// NewSliceLister creates a SliceLister. pageSize <= 0 returns everything in
// one page.
func NewSliceLister(ids []string, pageSize int) *SliceLister {
	if pageSize <= 0 {
		pageSize = len(ids)
	}
	return &SliceLister{ids: ids, pageSize: pageSize}
}

// NextPage implements Lister.
func (s *SliceLister) NextPage(ctx context.Context) ([]string, error) {
	if s.pos >= len(s.ids) {
		return nil, nil
	}
	end := s.pos + s.pageSize
	if end > len(s.ids) {
		end = len(s.ids)
	}
	page := s.ids[s.pos:end]
	s.pos = end
	return page, nil
}
