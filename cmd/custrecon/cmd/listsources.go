package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/custrecon/internal/config"
)

var listSourcesCmd = &cobra.Command{
	Use:   "list-sources",
	Short: "List all sources defined in configuration",
	Long: `List-sources displays all regional sources defined in the configuration
file along with their extracts and reader settings.

Example:
  custrecon list-sources --config custrecon.yaml`,
	RunE: runListSources,
}

func init() {
	rootCmd.AddCommand(listSourcesCmd)
}

func runListSources(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	names := cfg.ListSources()
	if len(names) == 0 {
		cmd.Printf("No sources defined in %s\n", configFile)
		return nil
	}

	cmd.Printf("Sources defined in %s:\n\n", configFile)

	for i, name := range names {
		src, err := cfg.GetSource(name)
		if err != nil {
			return fmt.Errorf("failed to get source %q: %w", name, err)
		}

		cmd.Printf("%d. %s\n", i+1, name)
		cmd.Printf("   Customers:     %s\n", orNone(src.Customers))
		cmd.Printf("   Partners:      %s\n", orNone(src.Partners))

		if src.Reader != nil {
			rc := src.GetReader(cfg.Reader)
			cmd.Printf("   Reader:        Custom (delimiter=%q, encoding=%s, strict=%v)\n",
				rc.Delimiter, rc.Encoding, rc.IsStrict())
		}

		if i < len(names)-1 {
			cmd.Println()
		}
	}

	cmd.Printf("\nTotal: %d source(s)\n", len(names))
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
