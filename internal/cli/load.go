package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vvka-141/parquet2pg/internal/handler"
	"github.com/vvka-141/parquet2pg/internal/logging"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load every .parquet object under a prefix into PostgreSQL",
	Long: `Load lists the .parquet objects under a bucket prefix in key order and, for each one,
drops and recreates a table named after the file (p/orders.parquet -> orders), then
inserts its rows. The first failure stops the run; tables loaded before it remain.

On success the response envelope is printed to stdout as JSON:
  {"statusCode":200,"body":{"processed_files":2,"details":[...]}}
On failure the error envelope is printed and the process exits with the mapped code.

Password Authentication:
  Password is NOT accepted as a CLI flag. Use $PGPASSWORD, .pgpass or a
  connection string, or --aws-iam for RDS IAM authentication.

Examples:
  # Load the default prefix
  parquet2pg load --bucket snapshots -d warehouse

  # Load a specific prefix into a staging schema
  parquet2pg load --bucket snapshots --prefix exports/2024-06-01/ --schema staging \
    --connection postgresql://loader@db:5432/warehouse

  # Load from an on-prem MinIO
  parquet2pg load --storage minio --endpoint http://minio:9000 --bucket snapshots

  # Load from a local directory (one sub-directory per bucket)
  parquet2pg load --storage local --dir ./data --bucket snapshots`,
	Args: cobra.NoArgs,
	RunE: runLoad,
}

var loadFlags runFlagValues

func init() {
	rootCmd.AddCommand(loadCmd)

	addConnectionFlags(loadCmd, &loadFlags.conn)

	addSourceFlags(loadCmd, &loadFlags)
	addTimeoutFlag(loadCmd, &loadFlags.timeout)
}

func runLoad(cmd *cobra.Command, _ []string) error {
	verbose := getVerboseFlag(cmd)

	settings, err := buildRunSettings(cmd, &loadFlags, verbose)
	if err != nil {
		return err
	}
	runCfg := settings.runConfig(verbose)
	if err := runCfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), settings.timeout)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\n[INTERRUPT] Received interrupt signal, cancelling load...")
			cancel()
		case <-ctx.Done():
		}
	}()

	logger := logging.NewConsoleLogger(verbose)
	h, err := newHandler(ctx, settings, logger)
	if err != nil {
		return err
	}

	resp, err := h.Handle(ctx, handler.Request{})
	if err != nil {
		_ = writeJSON(cmd.OutOrStdout(), handler.ErrorResponse(err))
		return err
	}
	return writeJSON(cmd.OutOrStdout(), resp)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
