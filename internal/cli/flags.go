package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/vvka-141/parquet2pg/internal/config"
	"github.com/vvka-141/parquet2pg/internal/db"
	"github.com/vvka-141/parquet2pg/pkg/parquet2pg"
)

type connFlagValues struct {
	connection, host, username, database, sslMode string
	port                                          int
	awsIAM                                        bool
	awsRegion                                     string
}

func (c *connFlagValues) granular() *db.GranularConnFlags {
	return &db.GranularConnFlags{
		Host:     c.host,
		Port:     c.port,
		Username: c.username,
		Database: c.database,
		SSLMode:  c.sslMode,
	}
}

func (c *connFlagValues) iam() *db.AWSIAMFlags {
	return &db.AWSIAMFlags{Enabled: c.awsIAM, Region: c.awsRegion}
}

type runFlagValues struct {
	conn                           connFlagValues
	bucket, prefix                 string
	storage, endpoint, dir, schema string
	batchSize                      int
	timeout                        time.Duration
}

// addConnectionFlags registers the PostgreSQL connection flags on cmd.
// -h is taken by --host, so the root command defines --help without a shorthand.
func addConnectionFlags(cmd *cobra.Command, v *connFlagValues) {
	cmd.Flags().StringVar(&v.connection, "connection", "",
		"PostgreSQL connection string (URI or ADO.NET format).\n"+
			"Mutually exclusive with granular flags (--host, --port, --username).\n"+
			"Alternative: PARQUET2PG_CONNECTION_STRING or DATABASE_URL environment variable.\n"+
			"Example: postgresql://loader@localhost:5432/warehouse")
	cmd.Flags().StringVarP(&v.host, "host", "h", "",
		"PostgreSQL server host\n"+
			"Precedence: --host > $PGHOST > parquet2pg.yaml > localhost")
	cmd.Flags().IntVarP(&v.port, "port", "p", 0,
		"PostgreSQL server port\n"+
			"Precedence: --port > $PGPORT > parquet2pg.yaml > 5432")
	cmd.Flags().StringVarP(&v.username, "username", "U", "",
		"PostgreSQL user (default: $PGUSER or current OS user)")
	cmd.Flags().StringVarP(&v.database, "database", "d", "",
		"Target database (overrides the database of a connection string, or $PGDATABASE)")
	cmd.Flags().StringVar(&v.sslMode, "sslmode", "",
		"SSL mode: disable|allow|prefer|require|verify-ca|verify-full\n"+
			"(default: prefer, or $PGSSLMODE)")

	cmd.Flags().BoolVar(&v.awsIAM, "aws-iam", false,
		"Authenticate with an AWS RDS IAM token instead of a password")
	cmd.Flags().StringVar(&v.awsRegion, "aws-region", "",
		"AWS region for RDS IAM tokens (overrides $AWS_REGION)")
}

func addSourceFlags(cmd *cobra.Command, v *runFlagValues) {
	cmd.Flags().StringVar(&v.bucket, "bucket", "",
		"Source bucket (default: $SOURCE_S3_BUCKET)")
	cmd.Flags().StringVar(&v.prefix, "prefix", "",
		"Key prefix to list; an explicit empty value lists the whole bucket\n"+
			"(default: $SOURCE_S3_PREFIX or parquet-snapshot/)")
	cmd.Flags().StringVar(&v.storage, "storage", "",
		"Storage backend: s3|minio|local (default: $PARQUET2PG_STORAGE or s3)")
	cmd.Flags().StringVar(&v.endpoint, "endpoint", "",
		"Custom S3/MinIO endpoint (default: $PARQUET2PG_S3_ENDPOINT)")
	cmd.Flags().StringVar(&v.dir, "dir", "",
		"Root directory for the local backend (default: $PARQUET2PG_LOCAL_DIR)")
	cmd.Flags().IntVar(&v.batchSize, "batch-size", 0,
		"Maximum rows per INSERT statement (default: $PARQUET2PG_BATCH_SIZE or 1000)")
	cmd.Flags().StringVar(&v.schema, "schema", "",
		"Target schema for created tables (default: search_path)")
}

func addTimeoutFlag(cmd *cobra.Command, dst *time.Duration) {
	cmd.Flags().DurationVar(dst, "timeout", parquet2pg.DefaultRunTimeout,
		"Upper bound for one run (default 15m)\n"+
			"Examples: 30s, 5m, 1h30m")
}

// applySourceFlags overlays explicitly set flags onto cfg. Unset flags leave the
// environment and parquet2pg.yaml values in place.
func applySourceFlags(cmd *cobra.Command, v *runFlagValues, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("bucket") {
		cfg.Source.Bucket = v.bucket
	}
	if changed("prefix") {
		cfg.Source.Prefix = v.prefix
	}
	if changed("storage") {
		cfg.Source.Backend = v.storage
	}
	if changed("endpoint") {
		cfg.Source.Endpoint = v.endpoint
	}
	if changed("dir") {
		cfg.Source.Dir = v.dir
	}
	if changed("batch-size") {
		cfg.Load.BatchSize = v.batchSize
	}
	if changed("schema") {
		cfg.Load.Schema = v.schema
	}
}
