package index

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dbsmedya/custrecon/internal/config"
)

// New builds the Lister selected by cfg.Kind. db is required for the mysql
// kind and ignored otherwise.
func New(ctx context.Context, cfg config.IndexConfig, db *sql.DB) (Lister, error) {
	switch cfg.Kind {
	case "mysql", "":
		return NewMySQLLister(db, cfg.MySQL.Table, cfg.MySQL.Column, cfg.PageSize)
	case "weaviate":
		pager, err := NewWeaviatePager(cfg.Weaviate)
		if err != nil {
			return nil, err
		}
		return NewWeaviateLister(pager, cfg.Weaviate.Class, cfg.Weaviate.Property, cfg.PageSize)
	case "export":
		return NewExportLister(cfg.Export.Path, cfg.Export.IDField, cfg.PageSize,
			WithExportFormat(cfg.Export.Format, cfg.Export.ArrayPath))
	default:
		return nil, fmt.Errorf("unknown index kind %q", cfg.Kind)
	}
}
