package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/custrecon/internal/config"
	"github.com/dbsmedya/custrecon/internal/database"
	"github.com/dbsmedya/custrecon/internal/index"
	"github.com/dbsmedya/custrecon/internal/logger"
	"github.com/dbsmedya/custrecon/internal/rowstream"
)

var validateSkipIndex bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and source extracts",
	Long: `Validate checks the configuration file, the header of every extract and
the connection to the external index.

Checks performed:
  - Configuration syntax and required fields
  - Extract files exist and can be decoded with the reader settings
  - Customer extracts carry the customer, country and deletion flag columns
  - Partner extracts carry the sold-to, ship-to and partner function columns
  - Index connectivity (mysql ping, export file, weaviate client)

Example:
  custrecon validate --config custrecon.yaml`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateSkipIndex, "skip-index", false,
		"Do not check the connection to the external index")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	fmt.Fprintf(outputWriter, "\n=== Configuration Validation ===\n")
	fmt.Fprintf(outputWriter, "Config file: %s\n", configFile)
	fmt.Fprintf(outputWriter, "Sources found: %d\n\n", len(cfg.Sources))

	hasErrors := false
	for _, name := range cfg.ListSources() {
		src := cfg.Sources[name]
		fmt.Fprintf(outputWriter, "--- Source: %s ---\n", name)

		if src.Customers != "" {
			required := []string{cfg.Columns.Customer, cfg.Columns.Country, cfg.Columns.DeletionFlag}
			if err := checkExtract(cfg, name, src.Customers, required); err != nil {
				fmt.Fprintf(outputWriter, "❌ Customers %s: %v\n", src.Customers, err)
				hasErrors = true
			} else {
				fmt.Fprintf(outputWriter, "✅ Customers %s\n", src.Customers)
			}
		}

		if src.Partners != "" {
			required := []string{cfg.Columns.SoldTo, cfg.Columns.ShipTo, cfg.Columns.PartnerFunction}
			if err := checkExtract(cfg, name, src.Partners, required); err != nil {
				fmt.Fprintf(outputWriter, "❌ Partners %s: %v\n", src.Partners, err)
				hasErrors = true
			} else {
				fmt.Fprintf(outputWriter, "✅ Partners %s\n", src.Partners)
			}
		}
		fmt.Fprintln(outputWriter)
	}

	if !validateSkipIndex {
		fmt.Fprintf(outputWriter, "--- Index: %s ---\n", cfg.Index.Kind)
		if err := checkIndex(context.Background(), cfg, log); err != nil {
			fmt.Fprintf(outputWriter, "❌ %v\n\n", err)
			hasErrors = true
		} else {
			fmt.Fprintf(outputWriter, "✅ Index OK\n\n")
		}
	}

	if hasErrors {
		return fmt.Errorf("validation failed for one or more checks")
	}

	fmt.Fprintln(outputWriter, "=== Validation Complete ===")
	fmt.Fprintln(outputWriter, "✅ Configuration validated successfully")
	return nil
}

// checkExtract opens path with the source's reader settings and checks that
// the header names every required column.
func checkExtract(cfg *config.Config, source, path string, required []string) error {
	rc := cfg.GetSourceReader(source)
	delim, err := rowstream.ParseDelimiter(rc.Delimiter)
	if err != nil {
		return err
	}

	reader, err := rowstream.Open(path, rowstream.Options{
		Delimiter: delim,
		Encoding:  rc.Encoding,
		TrimSpace: rc.IsTrimSpace(),
	})
	if err != nil {
		return err
	}
	defer reader.Close()

	present := make(map[string]bool, reader.Header().Len())
	for _, f := range reader.Header().Fields() {
		present[f] = true
	}
	var missing []string
	for _, col := range required {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing columns %q (header: %q)", missing, reader.Header().Fields())
	}
	return nil
}

func checkIndex(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	switch cfg.Index.Kind {
	case "mysql":
		dbManager := database.NewManager(&cfg.Index.MySQL.Database, log)
		if err := dbManager.Connect(ctx); err != nil {
			return err
		}
		defer dbManager.Close()
		return dbManager.Ping(ctx)
	case "export":
		if _, err := os.Stat(cfg.Index.Export.Path); err != nil {
			return fmt.Errorf("export file: %w", err)
		}
		return nil
	default:
		_, err := index.New(ctx, cfg.Index, nil)
		return err
	}
}
