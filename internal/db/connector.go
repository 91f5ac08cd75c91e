package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/parquet2pg/internal/logging"
	"github.com/vvka-141/parquet2pg/internal/retry"
	"github.com/vvka-141/parquet2pg/pkg/parquet2pg"
)

// A run uses exactly one connection: the orchestrator acquires it once and
// every DROP, CREATE and INSERT goes through it.
const (
	DefaultMaxConns        = 1
	DefaultMaxConnIdleTime = 30 * time.Minute
)

// ConnectorOption configures the connectors built by NewConnector.
type ConnectorOption func(*connectorOptions)

type connectorOptions struct {
	logger   parquet2pg.Logger
	executor *retry.Executor
}

// WithLogger routes server notices and retry attempts to logger.
func WithLogger(logger parquet2pg.Logger) ConnectorOption {
	return func(o *connectorOptions) { o.logger = logger }
}

// WithRetryExecutor replaces the default retry policy.
func WithRetryExecutor(executor *retry.Executor) ConnectorOption {
	return func(o *connectorOptions) { o.executor = executor }
}

func buildOptions(opts []ConnectorOption) connectorOptions {
	o := connectorOptions{logger: logging.NewNullLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.executor == nil {
		o.executor = retry.NewExecutor(
			retry.NewPostgreSQLErrorClassifier(),
			retry.NewExponentialBackoff(parquet2pg.DefaultRetryMaxAttempts,
				retry.WithInitialDelay(parquet2pg.DefaultRetryInitialDelay),
				retry.WithMaxDelay(parquet2pg.DefaultRetryMaxDelay),
			),
		)
	}
	logger := o.logger
	o.executor = o.executor.WithOnRetry(func(attempt int, err error, delay time.Duration) {
		logger.Info("Connection attempt %d failed, retrying in %v: %v", attempt+1, delay.Round(time.Millisecond), err)
	})
	return o
}

// NewConnector returns the Connector for the config's AuthMethod.
func NewConnector(cfg *parquet2pg.ConnectionConfig, opts ...ConnectorOption) (parquet2pg.Connector, error) {
	o := buildOptions(opts)

	switch cfg.AuthMethod {
	case parquet2pg.AuthMethodStandard:
		return &StandardConnector{config: cfg, opts: o}, nil
	case parquet2pg.AuthMethodAWSIAM:
		provider, err := NewAWSIAMTokenProvider(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), cfg.AWSRegion, cfg.Username)
		if err != nil {
			return nil, fmt.Errorf("failed to create AWS IAM token provider: %v: %w", err, parquet2pg.ErrInvalidConfig)
		}
		return &TokenBasedConnector{config: cfg, tokenProvider: provider, opts: o}, nil
	default:
		return nil, fmt.Errorf("auth method %v: %w", cfg.AuthMethod, parquet2pg.ErrUnsupportedAuthMethod)
	}
}

// NewConnectorFactory binds opts to NewConnector.
func NewConnectorFactory(opts ...ConnectorOption) parquet2pg.ConnectorFactory {
	return func(cfg *parquet2pg.ConnectionConfig) (parquet2pg.Connector, error) {
		return NewConnector(cfg, opts...)
	}
}

// StandardConnector connects with username and password, retrying transient failures.
type StandardConnector struct {
	config *parquet2pg.ConnectionConfig
	opts   connectorOptions
}

func (c *StandardConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	return connectWithRetry(ctx, c.config, c.opts, nil)
}

// TokenBasedConnector uses a short-lived token from a TokenProvider as the password.
// A fresh token is acquired for every connection attempt.
type TokenBasedConnector struct {
	config        *parquet2pg.ConnectionConfig
	tokenProvider TokenProvider
	opts          connectorOptions
}

// NewTokenBasedConnector creates a connector authenticating through provider.
func NewTokenBasedConnector(cfg *parquet2pg.ConnectionConfig, provider TokenProvider, opts ...ConnectorOption) *TokenBasedConnector {
	return &TokenBasedConnector{config: cfg, tokenProvider: provider, opts: buildOptions(opts)}
}

func (c *TokenBasedConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	return connectWithRetry(ctx, c.config, c.opts, func(ctx context.Context) (string, error) {
		token, expiresOn, err := c.tokenProvider.GetToken(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to acquire token from %s: %w", c.tokenProvider, err)
		}
		if remaining := time.Until(expiresOn); remaining < 5*time.Minute {
			c.opts.logger.Info("Warning: database token expires in %v", remaining.Round(time.Second))
		}
		return token, nil
	})
}

func connectWithRetry(
	ctx context.Context,
	cfg *parquet2pg.ConnectionConfig,
	opts connectorOptions,
	password func(context.Context) (string, error),
) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool

	err := opts.executor.Execute(ctx, func(ctx context.Context) error {
		attemptCfg := *cfg
		if password != nil {
			token, err := password(ctx)
			if err != nil {
				return err
			}
			attemptCfg.Password = token
		}

		poolConfig, err := pgxpool.ParseConfig(BuildConnectionString(&attemptCfg))
		if err != nil {
			return fmt.Errorf("failed to parse connection config: %w", err)
		}
		configurePool(poolConfig, opts.logger)

		p, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return wrapConnectionError(err, cfg.Host, cfg.Port, cfg.Database)
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return wrapConnectionError(err, cfg.Host, cfg.Port, cfg.Database)
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", parquet2pg.ErrConnectionFailed, err)
	}

	opts.logger.Verbose("Connected to %s:%d/%s as %s", cfg.Host, cfg.Port, cfg.Database, cfg.Username)
	return pool, nil
}

func configurePool(poolConfig *pgxpool.Config, logger parquet2pg.Logger) {
	poolConfig.MaxConns = DefaultMaxConns
	poolConfig.MinConns = 0
	poolConfig.MaxConnIdleTime = DefaultMaxConnIdleTime
	poolConfig.ConnConfig.OnNotice = func(_ *pgconn.PgConn, notice *pgconn.Notice) {
		logger.Verbose("%s: %s", notice.Severity, notice.Message)
	}
}

// wrapConnectionError adds actionable guidance to common pgx connection failures.
func wrapConnectionError(err error, host string, port int, database string) error {
	errStr := strings.ToLower(err.Error())
	addr := fmt.Sprintf("%s:%d", host, port)

	switch {
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "actively refused"):
		return fmt.Errorf("connection refused to %s (is PostgreSQL running? check: pg_isready -h %s -p %d): %w",
			addr, host, port, err)
	case strings.Contains(errStr, "no such host"):
		return fmt.Errorf("cannot resolve host %q: %w", host, err)
	case strings.Contains(errStr, "password authentication failed"):
		return fmt.Errorf("password authentication failed for database %q (check $PGPASSWORD or the connection string): %w",
			database, err)
	case strings.Contains(errStr, "does not exist"):
		return fmt.Errorf("database %q does not exist (create it with: createdb %s): %w", database, database, err)
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out"):
		return fmt.Errorf("connection timed out to %s: %w", addr, err)
	case strings.Contains(errStr, "too many connections"):
		return fmt.Errorf("too many connections to database %q: %w", database, err)
	default:
		return fmt.Errorf("failed to connect to database: %w", err)
	}
}
