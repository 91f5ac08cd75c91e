// Package retry retries establishing a PostgreSQL connection with exponential backoff.
//
// Only connection setup goes through an Executor. Object listing, decoding and
// table loading fail fast and are never retried.
//
//	executor := retry.NewExecutor(retry.NewPostgreSQLErrorClassifier(), retry.NewExponentialBackoff(3))
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return pool.Ping(ctx)
//	})
package retry
