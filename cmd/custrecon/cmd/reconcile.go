package cmd

import (
	"context"
	"database/sql"
	"io"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/custrecon/internal/database"
	"github.com/dbsmedya/custrecon/internal/index"
	"github.com/dbsmedya/custrecon/internal/recon"
	"github.com/dbsmedya/custrecon/internal/report"
)

var reconcileSample int

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "List customers missing from the external index",
	Long: `Reconcile lists every identifier known to the configured index, reads
the selected customer extracts and reports the eligible customers the index
does not know.

The process follows these steps:
  1. Drain the index completely (mysql, weaviate or export)
  2. Run the extracts through the eligibility funnel
  3. Drop identifiers matching the exclusion rule
  4. Compute the sorted set difference and verify it

A failure at any step aborts the run. The counters gathered so far are
printed as INCOMPLETE and no missing report is written.

Example:
  custrecon reconcile --config custrecon.yaml --format yaml`,
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().IntVar(&reconcileSample, "sample", report.DefaultSampleSize,
		"Number of missing identifiers to print")

	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := database.SetupSignalHandler()

	s, err := newSession(ctx, false)
	if err != nil {
		return err
	}
	defer s.close()

	if s.cfg.Index.Kind == "mysql" && s.db == nil {
		s.db = database.NewManager(&s.cfg.Index.MySQL.Database, s.log)
		if err := s.db.Connect(ctx); err != nil {
			return err
		}
	}

	lister, err := openLister(ctx, s)
	if err != nil {
		return err
	}
	if c, ok := lister.(io.Closer); ok {
		defer c.Close()
	}

	return s.run(ctx, "reconcile", func(r *recon.Reconciler) error {
		res, err := r.Reconcile(ctx, s.sources, lister)
		if err != nil {
			return err
		}

		s.printer.Header("Reconciliation (run %s)", res.RunID)
		s.printer.Funnel("Eligibility", res.Filter.Funnel)
		s.printer.Diff(res.Result, reconcileSample)
		s.log.Infow("Reconciliation fingerprint", "sha256", res.Fingerprint)

		return s.write(report.WriteMissing(s.cfg.Output.Dir, s.cfg.Output.Format, res.Result))
	})
}

func openLister(ctx context.Context, s *session) (index.Lister, error) {
	var db *sql.DB
	if s.db != nil {
		db = s.db.DB
	}
	return index.New(ctx, s.cfg.Index, db)
}
