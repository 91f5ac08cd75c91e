package db

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/vvka-141/parquet2pg/internal/config"
	"github.com/vvka-141/parquet2pg/pkg/parquet2pg"
)

// GranularConnFlags holds connection parameters from CLI flags (-h, -p, -U, -d).
// There is no password flag; use $PGPASSWORD, .pgpass or a connection string.
type GranularConnFlags struct {
	Host     string
	Port     int
	Username string
	Database string
	SSLMode  string
}

// IsEmpty reports whether no connection-related granular flags were provided.
// Database is excluded because it may override the database of a connection string.
func (g *GranularConnFlags) IsEmpty() bool {
	return g.Host == "" && g.Port == 0 && g.Username == "" && g.SSLMode == ""
}

// AWSIAMFlags enables RDS IAM authentication.
type AWSIAMFlags struct {
	Enabled bool
	Region  string // overrides $AWS_REGION
}

// EnvVars holds connection-related environment variables.
// See https://www.postgresql.org/docs/current/libpq-envars.html
type EnvVars struct {
	ConnectionString string // PARQUET2PG_CONNECTION_STRING
	DatabaseURL      string // DATABASE_URL
	PGHOST           string
	PGPORT           string
	PGUSER           string
	PGPASSWORD       string
	PGDATABASE       string
	PGSSLMODE        string
	AWSRegion        string // AWS_REGION
}

// LoadFromEnvironment reads EnvVars from the process environment.
func LoadFromEnvironment() *EnvVars {
	return &EnvVars{
		ConnectionString: os.Getenv("PARQUET2PG_CONNECTION_STRING"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PGHOST:           os.Getenv("PGHOST"),
		PGPORT:           os.Getenv("PGPORT"),
		PGUSER:           os.Getenv("PGUSER"),
		PGPASSWORD:       os.Getenv("PGPASSWORD"),
		PGDATABASE:       os.Getenv("PGDATABASE"),
		PGSSLMODE:        os.Getenv("PGSSLMODE"),
		AWSRegion:        os.Getenv("AWS_REGION"),
	}
}

// ResolveConnectionParams resolves the target connection with this precedence:
//
//  1. --connection flag
//  2. granular flags (-h, -p, -U, -d, --sslmode), each falling back to PG* variables,
//     then parquet2pg.yaml, then defaults
//  3. $PARQUET2PG_CONNECTION_STRING, then $DATABASE_URL (only without granular flags)
//
// A --database flag overrides the database of any connection string.
// Providing both --connection and granular flags is an error.
func ResolveConnectionParams(
	connStringFlag string,
	granularFlags *GranularConnFlags,
	iamFlags *AWSIAMFlags,
	envVars *EnvVars,
	fileConfig *config.ConnectionConfig,
) (*parquet2pg.ConnectionConfig, error) {
	if granularFlags == nil {
		granularFlags = &GranularConnFlags{}
	}
	if iamFlags == nil {
		iamFlags = &AWSIAMFlags{}
	}
	if envVars == nil {
		envVars = &EnvVars{}
	}
	if fileConfig == nil {
		fileConfig = &config.ConnectionConfig{}
	}

	if connStringFlag != "" && !granularFlags.IsEmpty() {
		return nil, fmt.Errorf("cannot specify both --connection and granular flags (-h, -p, -U, --sslmode): %w",
			parquet2pg.ErrInvalidConfig)
	}

	connStr := connStringFlag
	if connStr == "" && granularFlags.IsEmpty() {
		connStr = firstNonEmpty(envVars.ConnectionString, envVars.DatabaseURL)
	}

	var cfg *parquet2pg.ConnectionConfig
	if connStr != "" {
		parsed, err := ParseConnectionString(connStr)
		if err != nil {
			return nil, fmt.Errorf("invalid connection string: %v: %w", err, parquet2pg.ErrInvalidConfig)
		}
		cfg = parsed
		if granularFlags.Database != "" {
			cfg.Database = granularFlags.Database
		}
	} else {
		var err error
		if cfg, err = resolveFromGranularParams(granularFlags, envVars, fileConfig); err != nil {
			return nil, err
		}
	}

	cfg.SSLMode = firstNonEmpty(cfg.SSLMode, envVars.PGSSLMODE, "prefer")
	if cfg.AppName == "" {
		cfg.AppName = parquet2pg.DefaultApplicationName
	}

	if err := applyAWSIAM(cfg, iamFlags, envVars, fileConfig); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolveFromGranularParams(
	flags *GranularConnFlags,
	env *EnvVars,
	file *config.ConnectionConfig,
) (*parquet2pg.ConnectionConfig, error) {
	cfg := &parquet2pg.ConnectionConfig{
		AuthMethod:       parquet2pg.AuthMethodStandard,
		AdditionalParams: make(map[string]string),
	}

	cfg.Host = firstNonEmpty(flags.Host, env.PGHOST, file.Host, "localhost")

	switch {
	case flags.Port != 0:
		cfg.Port = flags.Port
	case env.PGPORT != "":
		port, err := strconv.Atoi(env.PGPORT)
		if err != nil {
			return nil, fmt.Errorf("invalid $PGPORT value '%s': must be an integer: %w", env.PGPORT, parquet2pg.ErrInvalidConfig)
		}
		cfg.Port = port
	case file.Port != 0:
		cfg.Port = file.Port
	default:
		cfg.Port = 5432
	}

	cfg.Username = firstNonEmpty(flags.Username, env.PGUSER, file.Username, os.Getenv("USER"), os.Getenv("USERNAME"))
	cfg.Password = env.PGPASSWORD
	cfg.Database = firstNonEmpty(flags.Database, env.PGDATABASE, file.Database, "postgres")
	cfg.SSLMode = firstNonEmpty(flags.SSLMode, env.PGSSLMODE, file.SSLMode)

	return cfg, nil
}

// applyAWSIAM switches the config to RDS IAM auth when requested by flag or parquet2pg.yaml.
func applyAWSIAM(cfg *parquet2pg.ConnectionConfig, flags *AWSIAMFlags, env *EnvVars, file *config.ConnectionConfig) error {
	method := strings.ToLower(file.AuthMethod)
	if !flags.Enabled && method != "aws-iam" && method != "aws_iam" {
		return nil
	}

	cfg.AuthMethod = parquet2pg.AuthMethodAWSIAM
	cfg.AWSRegion = firstNonEmpty(flags.Region, env.AWSRegion, file.AWSRegion)
	if cfg.AWSRegion == "" {
		return fmt.Errorf("AWS IAM auth requires a region (--aws-region or $AWS_REGION): %w", parquet2pg.ErrInvalidConfig)
	}
	if cfg.Username == "" {
		return fmt.Errorf("AWS IAM auth requires a database username: %w", parquet2pg.ErrInvalidConfig)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
