// Package metrics records per-run Prometheus metrics and pushes them to a
// Pushgateway when the run finishes.
//
// Collectors live in a registry owned by the recorder and are pushed once,
// from RunFinished. File and row counters cover a single run and start from
// zero again after each push, so a warm Lambda container reports per invocation.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/vvka-141/parquet2pg/internal/config"
	"github.com/vvka-141/parquet2pg/internal/logging"
	"github.com/vvka-141/parquet2pg/pkg/parquet2pg"
)

const defaultJob = "parquet2pg"

// PushRecorder collects run metrics in its own registry and pushes them to a Pushgateway.
type PushRecorder struct {
	reg    *prometheus.Registry
	pusher *push.Pusher
	logger parquet2pg.Logger

	filesLoaded prometheus.Counter
	rowsLoaded  *prometheus.CounterVec
	duration    prometheus.Gauge
	lastSuccess prometheus.Gauge
	failures    *prometheus.CounterVec
}

// NewPushRecorder registers the run collectors and targets gatewayURL under job.
func NewPushRecorder(gatewayURL, job string, logger parquet2pg.Logger) (*PushRecorder, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("pushgateway URL is required: %w", parquet2pg.ErrInvalidConfig)
	}
	if job == "" {
		job = defaultJob
	}
	if logger == nil {
		logger = logging.NewNullLogger()
	}

	r := &PushRecorder{
		reg:         prometheus.NewRegistry(),
		logger:      logger,
		filesLoaded: newFilesCounter(),
		rowsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parquet2pg_rows_loaded_total",
			Help: "Rows inserted in this run, partitioned by destination table.",
		}, []string{"table"}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "parquet2pg_run_duration_seconds",
			Help: "Wall-clock duration of the last run.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "parquet2pg_last_success_timestamp_seconds",
			Help: "Unix time of the last run that loaded every file.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parquet2pg_run_failures_total",
			Help: "Failed runs since the process started, partitioned by the phase that failed.",
		}, []string{"phase"}),
	}

	for _, c := range []prometheus.Collector{r.filesLoaded, r.rowsLoaded, r.duration, r.lastSuccess, r.failures} {
		if err := r.reg.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}

	r.pusher = push.New(gatewayURL, job).Gatherer(r.reg)
	return r, nil
}

func newFilesCounter() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "parquet2pg_files_processed_total",
		Help: "Parquet files decoded and loaded in this run.",
	})
}

// Registry exposes the recorder's registry.
func (r *PushRecorder) Registry() *prometheus.Registry { return r.reg }

// resetRun zeroes the per-run counters once they have been pushed.
func (r *PushRecorder) resetRun() {
	r.rowsLoaded.Reset()
	r.reg.Unregister(r.filesLoaded)
	r.filesLoaded = newFilesCounter()
	r.reg.MustRegister(r.filesLoaded)
}

func (r *PushRecorder) FileLoaded(table string, rows int) {
	r.filesLoaded.Inc()
	r.rowsLoaded.WithLabelValues(table).Add(float64(rows))
}

// RunFinished records the outcome and pushes the registry. An empty failedPhase
// marks a successful run. Push failures are logged, not returned.
func (r *PushRecorder) RunFinished(ctx context.Context, _ parquet2pg.RunSummary, failedPhase parquet2pg.Phase, elapsed time.Duration) {
	r.duration.Set(elapsed.Seconds())
	if failedPhase == "" {
		r.lastSuccess.SetToCurrentTime()
	} else {
		r.failures.WithLabelValues(string(failedPhase)).Inc()
	}
	defer r.resetRun()

	if err := r.pusher.PushContext(ctx); err != nil {
		r.logger.Error("Failed to push metrics: %v", err)
		return
	}
	r.logger.Verbose("Pushed run metrics")
}

// Noop discards every observation.
type Noop struct{}

func (Noop) FileLoaded(string, int) {}

func (Noop) RunFinished(context.Context, parquet2pg.RunSummary, parquet2pg.Phase, time.Duration) {}

// New returns a PushRecorder when a Pushgateway URL is configured and Noop otherwise.
func New(cfg config.MetricsConfig, logger parquet2pg.Logger) (parquet2pg.MetricsRecorder, error) {
	if cfg.PushgatewayURL == "" {
		return Noop{}, nil
	}
	return NewPushRecorder(cfg.PushgatewayURL, cfg.Job, logger)
}

var (
	_ parquet2pg.MetricsRecorder = (*PushRecorder)(nil)
	_ parquet2pg.MetricsRecorder = Noop{}
)
