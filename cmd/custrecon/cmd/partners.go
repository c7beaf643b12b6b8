package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dbsmedya/custrecon/internal/database"
	"github.com/dbsmedya/custrecon/internal/recon"
	"github.com/dbsmedya/custrecon/internal/report"
)

var partnersCmd = &cobra.Command{
	Use:   "partners",
	Short: "Build the ship-to / sold-to partner graph",
	Long: `Partners reads the partner extracts of the selected sources and builds
the customer relationship graph.

Every ship-to points back to its sold-to. A sold-to points to a ship-to only
when the row carries the ship-to partner function (partners.ship_to_function,
default SH). Sources without a partner extract are skipped.

Example:
  custrecon partners --config custrecon.yaml --source emea --source apac`,
	RunE: runPartners,
}

func init() {
	rootCmd.AddCommand(partnersCmd)
}

func runPartners(cmd *cobra.Command, args []string) error {
	ctx := database.SetupSignalHandler()

	s, err := newSession(ctx, false)
	if err != nil {
		return err
	}
	defer s.close()

	return s.run(ctx, "partners", func(r *recon.Reconciler) error {
		res, err := r.Partners(ctx, s.sources)
		if err != nil {
			return err
		}

		s.printer.Header("Partner graph (run %s)", res.RunID)
		s.printer.Partners(res.Graph, res.Stats)

		return s.write(report.WriteGraph(s.cfg.Output.Dir, s.cfg.Output.Format, res.Graph))
	})
}
