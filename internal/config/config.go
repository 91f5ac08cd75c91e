// Package config loads parquet2pg.yaml and overlays environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vvka-141/parquet2pg/pkg/parquet2pg"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

const ConfigFileName = "parquet2pg.yaml"

// Storage backends.
const (
	BackendS3    = "s3"
	BackendMinIO = "minio"
	BackendLocal = "local"
)

// Environment variable names.
const (
	EnvBucket         = "SOURCE_S3_BUCKET"
	EnvPrefix         = "SOURCE_S3_PREFIX"
	EnvRegion         = "AWS_REGION"
	EnvEndpoint       = "PARQUET2PG_S3_ENDPOINT"
	EnvBackend        = "PARQUET2PG_STORAGE"
	EnvPathStyle      = "PARQUET2PG_S3_PATH_STYLE"
	EnvLocalDir       = "PARQUET2PG_LOCAL_DIR"
	EnvBatchSize      = "PARQUET2PG_BATCH_SIZE"
	EnvSchema         = "PARQUET2PG_SCHEMA"
	EnvPushgatewayURL = "PARQUET2PG_PUSHGATEWAY_URL"
	EnvTimeout        = "PARQUET2PG_TIMEOUT"
	EnvAccessKeyID    = "AWS_ACCESS_KEY_ID"
	EnvSecretKey      = "AWS_SECRET_ACCESS_KEY"
)

type SourceConfig struct {
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Backend   string `yaml:"backend,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	PathStyle bool   `yaml:"path_style,omitempty"`
	PageSize  int32  `yaml:"page_size,omitempty"`

	// Dir is the root of the local backend; buckets are its subdirectories.
	Dir string `yaml:"dir,omitempty"`

	// Static keys are only read from the environment.
	AccessKeyID     string `yaml:"-"`
	SecretAccessKey string `yaml:"-"`
}

type ConnectionConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Username   string `yaml:"username"`
	Database   string `yaml:"database"`
	SSLMode    string `yaml:"sslmode"`
	AuthMethod string `yaml:"auth_method,omitempty"`
	AWSRegion  string `yaml:"aws_region,omitempty"`
}

type LoadConfig struct {
	BatchSize int    `yaml:"batch_size,omitempty"`
	Schema    string `yaml:"schema,omitempty"`
}

type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url,omitempty"`
	Job            string `yaml:"job,omitempty"`
}

// Config is the file and environment configuration of one invocation.
type Config struct {
	Source     SourceConfig     `yaml:"source"`
	Connection ConnectionConfig `yaml:"connection"`
	Load       LoadConfig       `yaml:"load"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Timeout    string           `yaml:"timeout"`
}

// Default returns the configuration used when no file or environment overrides exist.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			Prefix:   parquet2pg.DefaultSourcePrefix,
			Backend:  BackendS3,
			PageSize: parquet2pg.DefaultListPageSize,
		},
		Load:    LoadConfig{BatchSize: parquet2pg.DefaultBatchSize},
		Metrics: MetricsConfig{Job: "parquet2pg"},
	}
}

// Load reads parquet2pg.yaml from dir on top of Default().
func Load(dir string) (*Config, error) {
	data, err := os.ReadFile(filepath.Join(dir, ConfigFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ConfigFileName, err)
	}
	return cfg, nil
}

// LoadOrDefault is Load, falling back to Default() when the file is absent.
func LoadOrDefault(dir string) (*Config, error) {
	cfg, err := Load(dir)
	if errors.Is(err, ErrConfigNotFound) {
		return Default(), nil
	}
	return cfg, err
}

// ApplyEnv overlays environment variables onto the configuration. lookupEnv has
// the signature of os.LookupEnv. Connection variables (PG*, DATABASE_URL) are
// resolved by the db package.
func (c *Config) ApplyEnv(lookupEnv func(string) (string, bool)) error {
	setString := func(dst *string, key string) {
		if v, ok := lookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	setString(&c.Source.Bucket, EnvBucket)
	// An explicitly empty prefix lists the whole bucket.
	if v, ok := lookupEnv(EnvPrefix); ok {
		c.Source.Prefix = v
	}
	setString(&c.Source.Region, EnvRegion)
	setString(&c.Source.Endpoint, EnvEndpoint)
	setString(&c.Source.Backend, EnvBackend)
	setString(&c.Source.Dir, EnvLocalDir)
	setString(&c.Source.AccessKeyID, EnvAccessKeyID)
	setString(&c.Source.SecretAccessKey, EnvSecretKey)
	setString(&c.Load.Schema, EnvSchema)
	setString(&c.Metrics.PushgatewayURL, EnvPushgatewayURL)
	setString(&c.Timeout, EnvTimeout)

	var errs []error
	if v, ok := lookupEnv(EnvPathStyle); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid $%s value %q: %w", EnvPathStyle, v, parquet2pg.ErrInvalidConfig))
		} else {
			c.Source.PathStyle = b
		}
	}
	if v, ok := lookupEnv(EnvBatchSize); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid $%s value %q: %w", EnvBatchSize, v, parquet2pg.ErrInvalidConfig))
		} else {
			c.Load.BatchSize = n
		}
	}
	if c.Connection.AWSRegion == "" {
		c.Connection.AWSRegion = c.Source.Region
	}
	return errors.Join(errs...)
}

// TimeoutDuration parses Timeout, returning fallback when it is empty.
func (c *Config) TimeoutDuration(fallback time.Duration) (time.Duration, error) {
	if c.Timeout == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", c.Timeout, parquet2pg.ErrInvalidConfig)
	}
	return d, nil
}

// Validate checks field values. It returns a multi-error if multiple validation failures occur.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Source.Backend) {
	case BackendS3, BackendLocal, "":
	case BackendMinIO:
		if c.Source.Endpoint == "" {
			errs = append(errs, fmt.Errorf("minio backend requires an endpoint: %w", parquet2pg.ErrInvalidConfig))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q (expected s3, minio or local): %w", c.Source.Backend, parquet2pg.ErrInvalidConfig))
	}

	if c.Source.PageSize < 0 || c.Source.PageSize > parquet2pg.DefaultListPageSize {
		errs = append(errs, fmt.Errorf("page size must be between 1 and %d: %w", parquet2pg.DefaultListPageSize, parquet2pg.ErrInvalidConfig))
	}

	if c.Load.BatchSize < 0 {
		errs = append(errs, fmt.Errorf("batch size cannot be negative: %w", parquet2pg.ErrInvalidConfig))
	}

	if _, err := c.TimeoutDuration(0); err != nil {
		errs = append(errs, err)
	}

	switch strings.ToLower(c.Connection.AuthMethod) {
	case "", "standard", "aws-iam", "aws_iam":
	default:
		errs = append(errs, fmt.Errorf("unknown auth_method %q: %w", c.Connection.AuthMethod, parquet2pg.ErrUnsupportedAuthMethod))
	}

	return errors.Join(errs...)
}
