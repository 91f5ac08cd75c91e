package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vvka-141/parquet2pg/internal/storage"
	"github.com/vvka-141/parquet2pg/pkg/parquet2pg"
)

// metricsPushTimeout bounds the final metrics push, which runs even after the
// run context has been cancelled.
const metricsPushTimeout = 10 * time.Second

type sessionFunc func(ctx context.Context, connConfig *parquet2pg.ConnectionConfig) (parquet2pg.DBConn, func(), error)

// RunService restores every .parquet object under a prefix into PostgreSQL,
// one table per object, in listing order.
// Thread-Safety: NOT safe for concurrent Run() calls on the same instance.
type RunService struct {
	connectorFactory parquet2pg.ConnectorFactory
	connConfig       *parquet2pg.ConnectionConfig
	store            parquet2pg.ObjectStore
	decoder          parquet2pg.BatchDecoder
	loader           parquet2pg.TableLoader
	logger           parquet2pg.Logger
	metrics          parquet2pg.MetricsRecorder
	openSession      sessionFunc
}

// NewRunService creates a RunService with all dependencies injected.
// Panics on nil dependencies.
func NewRunService(
	connectorFactory parquet2pg.ConnectorFactory,
	connConfig *parquet2pg.ConnectionConfig,
	store parquet2pg.ObjectStore,
	decoder parquet2pg.BatchDecoder,
	loader parquet2pg.TableLoader,
	logger parquet2pg.Logger,
	metrics parquet2pg.MetricsRecorder,
) *RunService {
	if connectorFactory == nil {
		panic("connectorFactory cannot be nil")
	}
	if connConfig == nil {
		panic("connConfig cannot be nil")
	}
	if store == nil {
		panic("store cannot be nil")
	}
	if decoder == nil {
		panic("decoder cannot be nil")
	}
	if loader == nil {
		panic("loader cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	if metrics == nil {
		panic("metrics cannot be nil")
	}

	svc := &RunService{
		connectorFactory: connectorFactory,
		connConfig:       connConfig,
		store:            store,
		decoder:          decoder,
		loader:           loader,
		logger:           logger,
		metrics:          metrics,
	}
	svc.openSession = svc.defaultOpenSession
	return svc
}

// defaultOpenSession opens a pool and pins one connection for the whole run.
// The returned release func returns the connection and closes the pool.
func (s *RunService) defaultOpenSession(ctx context.Context, connConfig *parquet2pg.ConnectionConfig) (parquet2pg.DBConn, func(), error) {
	s.logger.Verbose("Connecting to database '%s'", connConfig.Database)

	connector, err := s.connectorFactory(connConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create connector: %w", err)
	}

	pool, err := connector.Connect(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database %q: %w", connConfig.Database, err)
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to acquire connection: %w", err)
	}

	release := func() {
		conn.Release()
		pool.Close()
	}
	return conn, release, nil
}

// Run lists bucket/prefix and, for each .parquet key in order, decodes the
// object and replaces the table named after it. The first failure stops the
// run; tables loaded before it stay in place and are reported in the returned
// summary alongside the error.
func (s *RunService) Run(ctx context.Context, bucket, prefix string) (summary parquet2pg.RunSummary, err error) {
	runID := uuid.NewString()
	start := time.Now()
	summary = parquet2pg.RunSummary{Details: []parquet2pg.LoadResult{}}

	logger := s.logger
	if scoped, ok := logger.(parquet2pg.RunScopedLogger); ok {
		logger = scoped.WithRunID(runID[:8])
	}

	phase := parquet2pg.PhaseIdle
	enter := func(p parquet2pg.Phase) {
		phase = p
		logger.Verbose("Phase: %s", p)
	}

	defer func() {
		var failed parquet2pg.Phase
		if err != nil {
			failed = phase
			logger.Error("Run failed during %s: %v", phase, err)
			phase = parquet2pg.PhaseFailed
		}
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsPushTimeout)
		defer cancel()
		s.metrics.RunFinished(pushCtx, summary, failed, time.Since(start))
	}()

	logger.Info("Restoring s3://%s/%s (run %s)", bucket, prefix, runID)

	enter(parquet2pg.PhaseConnecting)
	connConfig := *s.connConfig
	connConfig.AppName = applicationName(connConfig.AppName, runID)
	conn, release, err := s.openSession(ctx, &connConfig)
	if err != nil {
		return summary, fmt.Errorf("%s failed: %w", phase, err)
	}
	defer release()

	enter(parquet2pg.PhaseListing)
	it := storage.NewLister(s.store).List(bucket, prefix)
	for it.Next(ctx) {
		ref := it.Object()
		table := ref.TableName()
		logger.Info("Processing %s -> %s", ref.Key, table)

		enter(parquet2pg.PhaseDecoding)
		batch, err := s.decoder.Decode(ctx, ref)
		if err != nil {
			return summary, fmt.Errorf("%s failed for %s: %w", phase, ref, err)
		}

		enter(parquet2pg.PhaseLoading)
		rows, err := s.loader.Load(ctx, conn, table, batch)
		if err != nil {
			return summary, fmt.Errorf("%s failed for %s: %w", phase, ref, err)
		}

		summary.ProcessedFiles++
		summary.Details = append(summary.Details, parquet2pg.LoadResult{Table: table, Rows: rows})
		s.metrics.FileLoaded(table, rows)
		logger.Info("Loaded %d rows into %s", rows, table)

		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("%s interrupted: %w", phase, err)
		}
		enter(parquet2pg.PhaseListing)
	}
	if err := it.Err(); err != nil {
		return summary, fmt.Errorf("%s failed: %w", phase, err)
	}

	enter(parquet2pg.PhaseDone)
	logger.Info("✓ Restored %d files (%d rows) in %s",
		summary.ProcessedFiles, summary.TotalRows(), time.Since(start).Round(time.Millisecond))
	return summary, nil
}

// applicationName tags the PostgreSQL session with the run ID so it can be
// found in pg_stat_activity.
func applicationName(base, runID string) string {
	if base == "" {
		base = parquet2pg.DefaultApplicationName
	}
	return base + "/" + runID[:8]
}

var _ parquet2pg.Runner = (*RunService)(nil)
