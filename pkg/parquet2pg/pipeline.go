package parquet2pg

import (
	"context"
	"time"
)

// ObjectStore is the object storage backend the lister and decoder read from.
type ObjectStore interface {
	// ListPage returns one page of keys under prefix, starting at the opaque
	// continuation token (empty for the first page).
	ListPage(ctx context.Context, bucket, prefix, token string) (ObjectPage, error)

	// GetObject returns the full contents of an object.
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
}

// BatchDecoder turns one stored Parquet object into an in-memory batch.
type BatchDecoder interface {
	Decode(ctx context.Context, ref ObjectRef) (*Batch, error)
}

// TableLoader replaces a table with the contents of a batch and reports the rows inserted.
type TableLoader interface {
	Load(ctx context.Context, conn DBConn, table string, batch *Batch) (int, error)
}

// Runner executes one restore run.
type Runner interface {
	Run(ctx context.Context, bucket, prefix string) (RunSummary, error)
}

// MetricsRecorder receives run progress for metrics export.
type MetricsRecorder interface {
	// FileLoaded is called after each table load succeeds.
	FileLoaded(table string, rows int)

	// RunFinished is called once per run. failedPhase is empty on success.
	RunFinished(ctx context.Context, summary RunSummary, failedPhase Phase, elapsed time.Duration)
}
