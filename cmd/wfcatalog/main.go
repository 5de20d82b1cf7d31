package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"liyu1981.xyz/wfdb-catalog/pkg/catalog"
	"liyu1981.xyz/wfdb-catalog/pkg/config"
	"liyu1981.xyz/wfdb-catalog/pkg/db"
	"liyu1981.xyz/wfdb-catalog/pkg/models"
)

const envFile = ".env"

func main() {
	rootCmd := &cobra.Command{
		Use:          "wfcatalog",
		Short:        "Extract and load MIMIC-IV waveform, echo and ECG metadata",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("db-type", "", "destination database: postgres, file or memory")
	rootCmd.PersistentFlags().String("db-dsn", "", "postgres DSN")
	rootCmd.PersistentFlags().String("db-path", "", "sqlite file for db-type=file")

	rootCmd.AddCommand(
		extractCommand(),
		updateRecordsCommand(),
		createSchemaCommand(),
		loadCommand(),
		summaryCommand(),
		serveCommand(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		log.Fatal(err)
	}
}

func loadConfig(cmd *cobra.Command) *config.Config {
	cfg, err := config.Load(envFile, cmd.Flags())
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

// openCatalog opens the configured database; the caller closes it.
func openCatalog(cfg *config.Config) (*db.DB, *catalog.Catalog) {
	dbInstance, err := db.Open(cfg.Dialector())
	if err != nil {
		log.Fatalf("open %s database: %v", cfg.DBType, err)
	}
	return dbInstance, catalog.New(dbInstance, cfg.BatchSize)
}

func addDatasetFlag(cmd *cobra.Command) {
	cmd.Flags().String("dataset", "", "dataset: waveforms, echo or ecg")
	_ = cmd.MarkFlagRequired("dataset")
}

func datasetFlag(cmd *cobra.Command) (models.Dataset, error) {
	s, _ := cmd.Flags().GetString("dataset")
	return models.ParseDataset(s)
}
