// Package reconcile computes which eligible customers are missing from the
// external index.
package reconcile

import (
	"github.com/dbsmedya/custrecon/internal/types"
)

// IdentifierSet is a set of customer identifiers with O(1) membership.
type IdentifierSet struct {
	ids map[string]struct{}
}

// NewIdentifierSet creates a set holding ids.
func NewIdentifierSet(ids ...string) *IdentifierSet {
	s := &IdentifierSet{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id. Adding an existing id is a no-op.
func (s *IdentifierSet) Add(id string) {
	s.ids[id] = struct{}{}
}

// Contains reports whether id is in the set. A nil set contains nothing.
func (s *IdentifierSet) Contains(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of identifiers.
func (s *IdentifierSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// Sorted returns the identifiers in numeric ascending order.
func (s *IdentifierSet) Sorted() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	types.SortIDs(out)
	return out
}

// Union returns a new set holding the members of every input.
func Union(sets ...*IdentifierSet) *IdentifierSet {
	size := 0
	for _, s := range sets {
		size += s.Len()
	}
	out := &IdentifierSet{ids: make(map[string]struct{}, size)}
	for _, s := range sets {
		if s == nil {
			continue
		}
		for id := range s.ids {
			out.ids[id] = struct{}{}
		}
	}
	return out
}
