package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/custrecon/internal/database"
	"github.com/dbsmedya/custrecon/internal/logger"
	"github.com/dbsmedya/custrecon/internal/runlog"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recent runs recorded in the run log",
	Long: `Runs lists the latest reconciliation runs recorded in the index
database, newest first, with the stage that failed and the counters each run
produced. Requires runlog.enabled and a mysql index.

Example:
  custrecon runs --config custrecon.yaml --limit 5`,
	RunE: runRuns,
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 10,
		"Number of runs to show")

	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	ctx := database.SetupSignalHandler()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.RunLog.Enabled {
		return fmt.Errorf("run log is disabled (set runlog.enabled)")
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	dbManager := database.NewManager(&cfg.Index.MySQL.Database, log)
	if err := dbManager.Connect(ctx); err != nil {
		return err
	}
	defer dbManager.Close()

	store, err := runlog.NewStore(dbManager.DB, log)
	if err != nil {
		return err
	}
	runs, err := store.Recent(ctx, runsLimit)
	if err != nil {
		return err
	}

	printRuns(runs)
	return nil
}

func printRuns(runs []runlog.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(outputWriter, "No runs recorded")
		return
	}
	for _, run := range runs {
		fmt.Fprintf(outputWriter, "%s  %-10s %-9s %s  [%s]\n",
			run.StartedAt.Format(time.RFC3339), run.Command, run.Status, run.ID, run.Sources)
		if run.FailedStage != "" {
			fmt.Fprintf(outputWriter, "    failed at %s: %s\n", run.FailedStage, run.Error)
		}
		if len(run.Counters) > 0 {
			keys := make([]string, 0, len(run.Counters))
			for k := range run.Counters {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			parts := make([]string, 0, len(keys))
			for _, k := range keys {
				parts = append(parts, fmt.Sprintf("%s=%d", k, run.Counters[k]))
			}
			fmt.Fprintf(outputWriter, "    %s\n", strings.Join(parts, " "))
		}
	}
}
