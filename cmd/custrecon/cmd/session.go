package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gookit/color"

	"github.com/dbsmedya/custrecon/internal/config"
	"github.com/dbsmedya/custrecon/internal/database"
	"github.com/dbsmedya/custrecon/internal/lock"
	"github.com/dbsmedya/custrecon/internal/logger"
	"github.com/dbsmedya/custrecon/internal/metrics"
	"github.com/dbsmedya/custrecon/internal/recon"
	"github.com/dbsmedya/custrecon/internal/report"
	"github.com/dbsmedya/custrecon/internal/runlog"
	"github.com/dbsmedya/custrecon/internal/types"
)

// outputWriter is used for printing output, can be overridden in tests
var outputWriter io.Writer = os.Stdout

// setOutputWriter sets the output writer (used for testing)
func setOutputWriter(w io.Writer) {
	outputWriter = w
}

// resetOutputWriter resets output to stdout (used for testing)
func resetOutputWriter() {
	outputWriter = os.Stdout
}

// loadConfig reads the config file, applies CLI overrides and validates the
// result. The env file flag is loaded first so the config can reference it.
func loadConfig() (*config.Config, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, err
	}

	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.ApplyOverrides(GetCLIOverrides())

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// session holds what every reconciliation command needs.
type session struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Recorder
	printer *report.Printer
	sources []string
	db      *database.Manager
}

// newSession loads the configuration and builds the logger and metrics. The
// index database is connected when the run log is enabled or needDB is set.
func newSession(ctx context.Context, needDB bool) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	sources, err := cfg.SelectSources(sourceNames)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	s := &session{
		cfg:     cfg,
		log:     log,
		metrics: metrics.New(),
		printer: report.NewPrinter(outputWriter, useColor()),
		sources: sources,
	}

	if needDB || cfg.RunLog.Enabled {
		s.db = database.NewManager(&cfg.Index.MySQL.Database, log)
		if err := s.db.Connect(ctx); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func useColor() bool {
	return !noColor && outputWriter == os.Stdout && color.SupportColor()
}

func (s *session) close() {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.log.Warnf("failed to close index database: %v", err)
		}
	}
	_ = s.log.Sync()
}

// run executes fn with a Reconciler. With the run log enabled, the run is
// recorded and serialized per command with the job lock. Metrics are
// exported whether or not the run succeeded.
func (s *session) run(ctx context.Context, command string, fn func(*recon.Reconciler) error) error {
	r, err := recon.New(s.cfg, s.log, s.metrics)
	if err != nil {
		return err
	}

	if s.cfg.RunLog.Enabled {
		store, serr := runlog.NewStore(s.db.DB, s.log)
		if serr != nil {
			return serr
		}
		if serr := store.InitializeTable(ctx); serr != nil {
			return serr
		}
		r.WithRunLog(store)

		err = lock.WithJobLock(ctx, s.db.DB, command, lock.TimeoutImmediate, func() error {
			return fn(r)
		})
		if errors.Is(err, lock.ErrLockHeld) {
			err = fmt.Errorf("%s is already running on another instance: %w", command, err)
		}
	} else {
		err = fn(r)
	}

	if merr := s.metrics.WriteTextfile(s.cfg.Metrics.Textfile); merr != nil {
		s.log.Warnf("%v", merr)
	}

	if runErr, ok := types.AsRunError(err); ok {
		s.printer.Incomplete(runErr)
	}
	return err
}

// write stores an artifact and prints its path.
func (s *session) write(path string, err error) error {
	if err != nil {
		return err
	}
	s.printer.Artifact(path)
	return nil
}
