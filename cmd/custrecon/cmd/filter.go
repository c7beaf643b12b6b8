package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/custrecon/internal/database"
	"github.com/dbsmedya/custrecon/internal/recon"
	"github.com/dbsmedya/custrecon/internal/report"
)

var (
	filterTrace       string
	filterDiagnostics bool
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Run the eligibility funnel over the customer extracts",
	Long: `Filter streams every selected customer extract through the eligibility
funnel and reports how many records each stage kept.

The stages run in a fixed order:
  1. range         identifier present, numeric and within max_customer_id
  2. jurisdiction  the configured jurisdiction rule
  3. deletion      the central deletion flag is not set

With --diagnostics the country distribution, deletion flag distribution and
identifier ranges are printed. --trace restricts a second funnel to the
identifiers of a previous missing report, to explain why they were dropped.

Example:
  custrecon filter --config custrecon.yaml --source emea --diagnostics`,
	RunE: runFilter,
}

func init() {
	filterCmd.Flags().StringVar(&filterTrace, "trace", "",
		"Missing report or identifier list whose identifiers are traced through the funnel")
	filterCmd.Flags().BoolVar(&filterDiagnostics, "diagnostics", false,
		"Print country, deletion flag and identifier range distributions")

	rootCmd.AddCommand(filterCmd)
}

func runFilter(cmd *cobra.Command, args []string) error {
	ctx := database.SetupSignalHandler()

	s, err := newSession(ctx, false)
	if err != nil {
		return err
	}
	defer s.close()

	var trace []string
	if filterTrace != "" {
		set, err := report.LoadMissing(filterTrace)
		if err != nil {
			return fmt.Errorf("failed to load trace list: %w", err)
		}
		trace = set.Sorted()
	}

	return s.run(ctx, "filter", func(r *recon.Reconciler) error {
		res, err := r.Filter(ctx, s.sources, trace)
		if err != nil {
			return err
		}

		s.printer.Header("Eligibility funnel (run %s)", res.RunID)
		for _, name := range s.sources {
			s.printer.Funnel("Source "+name, res.Sources[name])
		}
		if len(s.sources) > 1 {
			s.printer.Funnel("All sources", res.Funnel)
		}
		if res.Diagnostics != nil && (filterDiagnostics || len(trace) > 0) {
			s.printer.Diagnostics(*res.Diagnostics)
		}

		return s.write(report.WriteFunnel(s.cfg.Output.Dir, s.cfg.Output.Format, report.FunnelReport{
			Funnel:      res.Funnel,
			Sources:     res.Sources,
			Diagnostics: res.Diagnostics,
		}))
	})
}
