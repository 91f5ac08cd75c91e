package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vvka-141/parquet2pg/internal/checksum"
	"github.com/vvka-141/parquet2pg/internal/config"
	"github.com/vvka-141/parquet2pg/internal/db"
	"github.com/vvka-141/parquet2pg/internal/decoder"
	"github.com/vvka-141/parquet2pg/internal/handler"
	"github.com/vvka-141/parquet2pg/internal/loader"
	"github.com/vvka-141/parquet2pg/internal/metrics"
	"github.com/vvka-141/parquet2pg/internal/services"
	"github.com/vvka-141/parquet2pg/internal/storage"
	"github.com/vvka-141/parquet2pg/pkg/parquet2pg"
)

// runSettings is the fully resolved configuration of one process.
type runSettings struct {
	cfg     *config.Config
	conn    *parquet2pg.ConnectionConfig
	timeout time.Duration
}

// runConfig flattens the settings for validation of a single CLI run.
func (s *runSettings) runConfig(verbose bool) parquet2pg.RunConfig {
	return parquet2pg.RunConfig{
		Bucket:           s.cfg.Source.Bucket,
		Prefix:           s.cfg.Source.Prefix,
		ConnectionString: db.BuildConnectionString(s.conn),
		BatchSize:        s.cfg.Load.BatchSize,
		Schema:           s.cfg.Load.Schema,
		Timeout:          s.timeout,
		Verbose:          verbose,
		AuthMethod:       s.conn.AuthMethod,
		AWSRegion:        s.conn.AWSRegion,
	}
}

// buildRunSettings resolves configuration with the precedence
// flags > environment (.env included) > parquet2pg.yaml > defaults.
func buildRunSettings(cmd *cobra.Command, flags *runFlagValues, verbose bool) (*runSettings, error) {
	_ = godotenv.Load()

	cfg, err := config.LoadOrDefault(getConfigDir(cmd))
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %v: %w", config.ConfigFileName, err, parquet2pg.ErrInvalidConfig)
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	applySourceFlags(cmd, flags, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	timeout := flags.timeout
	if !cmd.Flags().Changed("timeout") {
		if timeout, err = cfg.TimeoutDuration(flags.timeout); err != nil {
			return nil, err
		}
	}

	conn, err := db.ResolveConnectionParams(
		flags.conn.connection,
		flags.conn.granular(),
		flags.conn.iam(),
		db.LoadFromEnvironment(),
		&cfg.Connection,
	)
	if err != nil {
		return nil, err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "[VERBOSE] Configuration resolved:\n")
		fmt.Fprintf(os.Stderr, "  Source: %s s3://%s/%s\n", cfg.Source.Backend, cfg.Source.Bucket, cfg.Source.Prefix)
		fmt.Fprintf(os.Stderr, "  Host: %s\n", conn.Host)
		fmt.Fprintf(os.Stderr, "  Port: %d\n", conn.Port)
		fmt.Fprintf(os.Stderr, "  User: %s\n", conn.Username)
		fmt.Fprintf(os.Stderr, "  Database: %s\n", conn.Database)
		fmt.Fprintf(os.Stderr, "  SSL Mode: %s\n", conn.SSLMode)
		fmt.Fprintf(os.Stderr, "  Auth Method: %s\n", conn.AuthMethod)
		fmt.Fprintf(os.Stderr, "  Batch Size: %d\n", cfg.Load.BatchSize)
	}

	return &runSettings{cfg: cfg, conn: conn, timeout: timeout}, nil
}

// newHandler wires the storage backend, decoder, loader, metrics and
// orchestrator behind a Handler.
func newHandler(ctx context.Context, settings *runSettings, logger parquet2pg.Logger) (*handler.Handler, error) {
	cfg := settings.cfg

	store, err := storage.NewObjectStore(ctx, cfg.Source)
	if err != nil {
		return nil, err
	}

	recorder, err := metrics.New(cfg.Metrics, logger)
	if err != nil {
		return nil, err
	}

	runner := services.NewRunService(
		db.NewConnectorFactory(db.WithLogger(logger)),
		settings.conn,
		store,
		decoder.New(store, decoder.WithLogger(logger), decoder.WithChecksum(checksum.New())),
		loader.New(
			loader.WithBatchSize(cfg.Load.BatchSize),
			loader.WithSchema(cfg.Load.Schema),
			loader.WithLogger(logger),
		),
		logger,
		recorder,
	)

	return handler.New(runner, handler.Defaults{
		Bucket: cfg.Source.Bucket,
		Prefix: cfg.Source.Prefix,
	}, logger), nil
}
