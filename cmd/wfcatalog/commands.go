package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"maps"
	"net"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/proto"

	"liyu1981.xyz/wfdb-catalog/pkg/catalog"
	"liyu1981.xyz/wfdb-catalog/pkg/common"
	"liyu1981.xyz/wfdb-catalog/pkg/extract"
	wfGrpc "liyu1981.xyz/wfdb-catalog/pkg/grpc"
	wfHttp "liyu1981.xyz/wfdb-catalog/pkg/http"
)

const refreshInterval = 30 * time.Second

func extractCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Write the waveform CSV files from a WFDB data directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(cmd)
			if cfg.DataDir == "" || cfg.OutputDir == "" {
				return errors.New("--data-dir and --output-dir are required")
			}
			skipNumerics, _ := cmd.Flags().GetBool("skip-numerics")

			report, err := extract.New(extract.Options{
				DataDir:          cfg.DataDir,
				OutputDir:        cfg.OutputDir,
				Workers:          cfg.Workers,
				ReadRate:         cfg.ReadRate,
				SkipNumerics:     skipNumerics,
				RejectOutOfRange: cfg.RejectOutOfRange,
			}).Run(cmd.Context())
			if err != nil {
				return err
			}
			printExtractReport(cmd.OutOrStdout(), cmd.ErrOrStderr(), report)
			return nil
		},
	}

	cmd.Flags().String("data-dir", "", "root of the waves tree (p*/p<subject>/<record>)")
	cmd.Flags().String("output-dir", "", "directory receiving the CSV files")
	cmd.Flags().Bool("skip-numerics", false, "do not read the numerics files")
	cmd.Flags().Int("workers", 0, "records read in parallel, 0 = number of CPUs")
	cmd.Flags().Float64("read-rate", 0, "records per second per shard, 0 = unthrottled")
	cmd.Flags().Bool("reject-out-of-range", false, "store implausible numerics values as NULL")
	return cmd
}

func updateRecordsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update-records",
		Short: "Rewrite only the waveform records CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(cmd)
			outputFile, _ := cmd.Flags().GetString("output-file")
			if cfg.DataDir == "" || outputFile == "" {
				return errors.New("--data-dir and --output-file are required")
			}

			report, err := extract.New(extract.Options{
				DataDir:     cfg.DataDir,
				RecordsFile: outputFile,
				Workers:     cfg.Workers,
				ReadRate:    cfg.ReadRate,
			}).Run(cmd.Context())
			if err != nil {
				return err
			}
			printExtractReport(cmd.OutOrStdout(), cmd.ErrOrStderr(), report)
			return nil
		},
	}

	cmd.Flags().String("data-dir", "", "root of the waves tree")
	cmd.Flags().String("output-file", "", "records CSV to write")
	cmd.Flags().Int("workers", 0, "records read in parallel, 0 = number of CPUs")
	cmd.Flags().Float64("read-rate", 0, "records per second per shard, 0 = unthrottled")
	return cmd
}

func printExtractReport(out, errOut io.Writer, report *extract.Report) {
	fmt.Fprintf(out, "records found %d, emitted %d, failed %d, numerics warnings %d\n",
		report.Found, report.Emitted, len(report.Failed), report.Warnings)
	for _, table := range slices.Sorted(maps.Keys(report.Rows)) {
		fmt.Fprintf(out, "  %-20s %d rows\n", table, report.Rows[table])
	}
	if report.Err != nil {
		fmt.Fprintf(errOut, "failed records:\n%v\n", report.Err)
	}
}

func createSchemaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-schema",
		Short: "Drop and create the tables of a dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			dataset, err := datasetFlag(cmd)
			if err != nil {
				return err
			}
			dbInstance, cat := openCatalog(loadConfig(cmd))
			defer dbInstance.Close()

			if err := cat.Schema.CreateSchema(cmd.Context(), dataset); err != nil {
				return err
			}
			fmt.Printf("created schema for %s\n", dataset)
			return nil
		},
	}
	addDatasetFlag(cmd)
	return cmd
}

func loadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load a dataset's CSV files into its tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			dataset, err := datasetFlag(cmd)
			if err != nil {
				return err
			}
			cfg := loadConfig(cmd)
			if cfg.CSVDir == "" {
				return errors.New("--csv-dir is required")
			}
			dbInstance, cat := openCatalog(cfg)
			defer dbInstance.Close()

			report, loadErr := cat.Loader.Load(cmd.Context(), dataset, cfg.CSVDir)
			out := cmd.OutOrStdout()
			if loadErr != nil {
				out = cmd.ErrOrStderr()
			}
			if report != nil {
				printLoadReport(out, report)
			}

			// the summary shows the tables as the load left them, also when it failed
			summary, err := cat.Summary.Summary(context.Background(), dataset)
			if err != nil {
				return multierr.Append(loadErr, err)
			}
			if err := summary.Write(out); err != nil {
				return multierr.Append(loadErr, err)
			}
			return loadErr
		},
	}
	addDatasetFlag(cmd)
	cmd.Flags().String("csv-dir", "", "directory holding the dataset's CSV files")
	cmd.Flags().Int("batch-size", 0, "rows per insert statement")
	return cmd
}

func printLoadReport(w io.Writer, report *catalog.LoadReport) {
	fmt.Fprintf(w, "load %s, batch %s\n", report.Dataset, report.BatchID)
	for _, step := range report.Steps {
		if step.Skipped {
			fmt.Fprintf(w, "  %-28s skipped (%s not found)\n", step.Table, step.File)
			continue
		}
		fmt.Fprintf(w, "  %-28s %d rows\n", step.Table, step.Rows)
	}
	if report.RolledBack {
		fmt.Fprintln(w, "  failed, the steps above were rolled back")
	}
}

func summaryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print row counts and time ranges of a dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			dataset, err := datasetFlag(cmd)
			if err != nil {
				return err
			}
			dbInstance, cat := openCatalog(loadConfig(cmd))
			defer dbInstance.Close()

			report, err := cat.Summary.Summary(cmd.Context(), dataset)
			if err != nil {
				return err
			}
			return report.Write(cmd.OutOrStdout())
		},
	}
	addDatasetFlag(cmd)
	return cmd
}

func serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve catalog health and summaries over HTTP and gRPC",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig(cmd)
			dbInstance, cat := openCatalog(cfg)
			defer dbInstance.Close()

			logger := common.GetLogger()

			if cfg.GrpcHostPort != "" {
				catalogServer := wfGrpc.NewCatalogServer(cat, cfg.RateLimiterStore())
				go catalogServer.RunRefresher(cmd.Context(), refreshInterval)

				go func() {
					s := grpc.NewServer(grpc.ChainUnaryInterceptor(
						wfGrpc.CreateLoggingInterceptor(),
						catalogServer.CreateRateLimitInterceptor([]proto.Message{&healthpb.HealthCheckRequest{}}),
					))
					catalogServer.Register(s)
					logger.Info("gRPC server created with:",
						zap.Float64("default_rate", cfg.DefaultRate),
						zap.Int("default_burst", cfg.DefaultBurst))

					listener, err := net.Listen("tcp", cfg.GrpcHostPort)
					if err != nil {
						log.Fatalf("failed to listen: %v", err)
					}

					logger.Info("start gRPC server on " + cfg.GrpcHostPort)
					if err := s.Serve(listener); err != nil {
						log.Fatalf("grpc server failed to serve: %v", err)
					}
				}()
			}

			rs := &wfHttp.RestfulServer{
				Server:           gin.Default(),
				Catalog:          cat,
				RateLimiterStore: cfg.RateLimiterStore(),
			}
			rs.Setup()

			logger.Info("Starting HTTP server on: " + cfg.HttpHostPort)
			if err := rs.Server.Run(cfg.HttpHostPort); err != nil {
				log.Fatalf("http server failed to serve: %v", err)
			}
		},
	}
	cmd.Flags().String("http", "", "HTTP listen address")
	cmd.Flags().String("grpc", "", "gRPC listen address, empty = no gRPC server")
	cmd.Flags().Float64("rate", 0, "summary requests per second per dataset, 0 = unthrottled")
	cmd.Flags().Int("burst", 0, "burst of the per dataset limiter")
	return cmd
}
