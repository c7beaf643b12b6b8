package index

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dbsmedya/custrecon/internal/sqlutil"
)

// MySQLLister pages through a column of a MySQL table with keyset
// pagination: each page selects values greater than the last one seen.
type MySQLLister struct {
	db       *sql.DB
	query    string
	table    string
	pageSize int
	cursor   string
}

// NewMySQLLister creates a lister over table.column. table may be
// schema-qualified. Identifiers are validated before they are quoted into
// the query.
func NewMySQLLister(db *sql.DB, table, column string, pageSize int) (*MySQLLister, error) {
	if db == nil {
		return nil, fmt.Errorf("database is nil")
	}
	if pageSize <= 0 {
		return nil, fmt.Errorf("page size must be positive, got %d", pageSize)
	}
	qTable, err := sqlutil.QuoteQualifiedSafe(table)
	if err != nil {
		return nil, err
	}
	qColumn, err := sqlutil.QuoteIdentifierSafe(column)
	if err != nil {
		return nil, err
	}

	// Query format: SELECT col FROM table WHERE col > cursor ORDER BY col LIMIT page
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s > ? ORDER BY %s ASC LIMIT ?",
		qColumn, qTable, qColumn, qColumn,
	)
	return &MySQLLister{db: db, query: query, table: table, pageSize: pageSize}, nil
}

// NextPage implements Lister.
func (l *MySQLLister) NextPage(ctx context.Context) ([]string, error) {
	rows, err := l.db.QueryContext(ctx, l.query, l.cursor, l.pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list identifiers from %s: %w", l.table, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id sql.NullString
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan identifier from %s: %w", l.table, err)
		}
		if id.Valid {
			ids = append(ids, id.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating identifiers from %s: %w", l.table, err)
	}

	if len(ids) > 0 {
		l.cursor = ids[len(ids)-1]
	}
	return ids, nil
}

// Cursor returns the last value returned, for logging.
func (l *MySQLLister) Cursor() string {
	return l.cursor
}
