// Package database manages the MySQL connection to the index database, which
// also holds the run log and the job lock.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/go-sql-driver/mysql" // MySQL driver

	"github.com/dbsmedya/custrecon/internal/config"
	"github.com/dbsmedya/custrecon/internal/logger"
)

const (
	defaultRetryInterval = time.Second
	defaultMaxElapsed    = 30 * time.Second
	connMaxLifetime      = 10 * time.Minute
)

// Opener opens a database handle for a DSN. sql.Open is the default; tests
// substitute a sqlmock opener.
type Opener func(dsn string) (*sql.DB, error)

func openMySQL(dsn string) (*sql.DB, error) {
	return sql.Open("mysql", dsn)
}

// Manager owns the connection to the index database.
type Manager struct {
	DB            *sql.DB
	config        *config.DatabaseConfig
	log           *logger.Logger
	open          Opener
	retryInterval time.Duration
	maxElapsed    time.Duration
}

// NewManager creates a manager for cfg. log may be nil.
func NewManager(cfg *config.DatabaseConfig, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.NewNop()
	}
	return &Manager{
		config:        cfg,
		log:           log,
		open:          openMySQL,
		retryInterval: defaultRetryInterval,
		maxElapsed:    defaultMaxElapsed,
	}
}

// WithOpener replaces the function used to open connections.
func (m *Manager) WithOpener(open Opener) *Manager {
	m.open = open
	return m
}

// WithMaxElapsed bounds the total time spent retrying Connect.
func (m *Manager) WithMaxElapsed(d time.Duration) *Manager {
	m.maxElapsed = d
	return m
}

// Connect opens and pings the index database, retrying with exponential
// backoff until the context ends or the retry budget is spent.
func (m *Manager) Connect(ctx context.Context) error {
	dsn := BuildDSN(m.config)
	attempt := 0

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = m.retryInterval
	policy.MaxElapsedTime = m.maxElapsed

	operation := func() error {
		attempt++
		db, err := m.open(dsn)
		if err != nil {
			// A malformed DSN will not improve with retries.
			return backoff.Permanent(err)
		}
		m.configurePool(db)

		if err := db.PingContext(ctx); err != nil {
			db.Close()
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		m.DB = db
		return nil
	}
	notify := func(err error, wait time.Duration) {
		m.log.Warnf("Index database %s:%d not reachable (attempt %d): %v; retrying in %s",
			m.config.Host, m.config.Port, attempt, err, wait.Round(time.Millisecond))
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(policy, ctx), notify); err != nil {
		return fmt.Errorf("failed to connect to index database after %d attempts: %w", attempt, err)
	}
	m.log.Debugf("Connected to index database %s:%d/%s", m.config.Host, m.config.Port, m.config.Database)
	return nil
}

func (m *Manager) configurePool(db *sql.DB) {
	if m.config.MaxConnections > 0 {
		db.SetMaxOpenConns(m.config.MaxConnections)
	}
	if m.config.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(m.config.MaxIdleConnections)
	}
	db.SetConnMaxLifetime(connMaxLifetime)
}

// BuildDSN constructs a MySQL DSN from configuration.
func BuildDSN(cfg *config.DatabaseConfig) string {
	// Format: user:password@tcp(host:port)/database?params
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Database,
	)

	params := "?parseTime=true"
	switch cfg.TLS {
	case "disable":
		params += "&tls=false"
	case "required":
		params += "&tls=true"
	case "preferred", "":
		params += "&tls=preferred"
	}

	return dsn + params
}

// Ping verifies the connection is alive.
func (m *Manager) Ping(ctx context.Context) error {
	if m.DB == nil {
		return fmt.Errorf("index database is not connected")
	}
	if err := m.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("index database ping failed: %w", err)
	}
	return nil
}

// Close closes the connection if one is open.
func (m *Manager) Close() error {
	if m.DB == nil {
		return nil
	}
	err := m.DB.Close()
	m.DB = nil
	if err != nil {
		return fmt.Errorf("index database close: %w", err)
	}
	return nil
}
