package graph

import (
	"errors"
	"strings"

	"github.com/dbsmedya/custrecon/internal/config"
	"github.com/dbsmedya/custrecon/internal/rowstream"
	"github.com/dbsmedya/custrecon/internal/types"
)

// ErrSealed is returned when rows are added after Build.
var ErrSealed = errors.New("graph builder is sealed")

// DefaultShipToFunction is the partner function code of a confirmed ship-to.
const DefaultShipToFunction = "SH"

// PartnerRow is one row of the partner relationship extract.
type PartnerRow struct {
	SoldTo   string
	ShipTo   string
	Function string
}

// BuildStats counts the rows seen by a Builder.
type BuildStats struct {
	Rows    int64 `json:"rows" yaml:"rows"`
	Skipped int64 `json:"skipped" yaml:"skipped"`
}

// Builder constructs a partner Graph from partner rows. It owns the graph
// until Build hands it out.
type Builder struct {
	shipToFunction string
	graph          *Graph
	stats          BuildStats
	sealed         bool
}

// NewBuilder creates a builder. An empty shipToFunction selects "SH".
func NewBuilder(shipToFunction string) *Builder {
	if shipToFunction == "" {
		shipToFunction = DefaultShipToFunction
	}
	return &Builder{
		shipToFunction: shipToFunction,
		graph:          newGraph(),
	}
}

// Add applies one partner row. The ship-to always points back to its
// sold-to; the sold-to points to the ship-to only for the ship-to partner
// function. Rows where either side is not a customer identifier (empty, a
// repeated header, "N/A") are skipped and counted.
func (b *Builder) Add(row PartnerRow) error {
	if b.sealed {
		return ErrSealed
	}
	b.stats.Rows++

	soldTo := strings.TrimSpace(row.SoldTo)
	shipTo := strings.TrimSpace(row.ShipTo)
	if !types.IsCustomerID(soldTo) || !types.IsCustomerID(shipTo) {
		b.stats.Skipped++
		return nil
	}

	b.graph.addNode(soldTo)
	b.graph.addNode(shipTo)
	if strings.TrimSpace(row.Function) == b.shipToFunction {
		b.graph.addEdge(soldTo, shipTo)
	}
	b.graph.addEdge(shipTo, soldTo)
	return nil
}

// AddRecord maps a partner extract record through the configured columns.
func (b *Builder) AddRecord(rec rowstream.Record, cols config.ColumnsConfig) error {
	return b.Add(PartnerRow{
		SoldTo:   rec.Value(cols.SoldTo),
		ShipTo:   rec.Value(cols.ShipTo),
		Function: rec.Value(cols.PartnerFunction),
	})
}

// Stats returns the row counters.
func (b *Builder) Stats() BuildStats {
	return b.stats
}

// Build seals the builder and returns the graph. Calling Build again returns
// the same graph.
func (b *Builder) Build() *Graph {
	b.sealed = true
	return b.graph
}
