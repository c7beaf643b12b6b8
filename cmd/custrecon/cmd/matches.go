package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/custrecon/internal/database"
	"github.com/dbsmedya/custrecon/internal/recon"
	"github.com/dbsmedya/custrecon/internal/report"
)

var matchesTarget string

var matchesCmd = &cobra.Command{
	Use:   "matches",
	Short: "Analyze how a target list matches the customer extracts",
	Long: `Matches counts how many extract rows and distinct customers match a
target identifier list, and which customers are duplicated in the extracts.

The target is a missing report written by reconcile (json or yaml) or a
JSON array of identifiers.

Example:
  custrecon matches --config custrecon.yaml --target missing.json`,
	RunE: runMatches,
}

func init() {
	matchesCmd.Flags().StringVarP(&matchesTarget, "target", "t", "",
		"Missing report or identifier list to match (required)")
	matchesCmd.MarkFlagRequired("target")

	rootCmd.AddCommand(matchesCmd)
}

func runMatches(cmd *cobra.Command, args []string) error {
	ctx := database.SetupSignalHandler()

	target, err := report.LoadMissing(matchesTarget)
	if err != nil {
		return fmt.Errorf("failed to load target list: %w", err)
	}

	s, err := newSession(ctx, false)
	if err != nil {
		return err
	}
	defer s.close()

	return s.run(ctx, "matches", func(r *recon.Reconciler) error {
		res, err := r.Matches(ctx, s.sources, target)
		if err != nil {
			return err
		}

		s.printer.Header("Match analysis (run %s)", res.RunID)
		s.printer.Matches(res.Report)

		return s.write(report.WriteMatches(s.cfg.Output.Dir, s.cfg.Output.Format, report.MatchesReport{
			Report:  res.Report,
			Sources: res.Sources,
		}))
	})
}
