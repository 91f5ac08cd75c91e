package parquet2pg

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess         = 0  // Run completed and every file was loaded
	ExitGeneralError    = 1  // Unknown or unclassified error
	ExitUsageError      = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic           = 3  // Internal panic (unexpected crash)
	ExitConfigError     = 10 // Invalid configuration or parameters
	ExitConnectionError = 11 // Failed to connect to database
	ExitStorageError    = 15 // Object listing or fetch failed
	ExitDecodeError     = 16 // Object is not a valid Parquet file
	ExitLoadError       = 17 // Table creation or row insertion failed
)

const (
	// ParquetExtension is the case-sensitive key suffix selected by the lister.
	ParquetExtension = ".parquet"

	// DefaultSourcePrefix is used when neither the request nor the configuration names a prefix.
	DefaultSourcePrefix = "parquet-snapshot/"

	// DefaultBatchSize is the number of rows per multi-row INSERT statement.
	DefaultBatchSize = 1000

	// MaxBindParameters is PostgreSQL's limit on bind parameters in a single statement.
	// Insert statements are split so that rows*columns never exceeds it.
	MaxBindParameters = 65535

	// DefaultListPageSize is the number of keys requested per listing page.
	DefaultListPageSize = 1000

	// DefaultRunTimeout bounds an entire invocation.
	DefaultRunTimeout = 15 * time.Minute

	// DefaultRetryInitialDelay is the default initial delay before the first retry attempt.
	DefaultRetryInitialDelay = 100 * time.Millisecond

	// DefaultRetryMaxDelay is the default maximum delay between retry attempts.
	DefaultRetryMaxDelay = 10 * time.Second

	// DefaultRetryMaxAttempts is the default maximum number of connection retry attempts.
	DefaultRetryMaxAttempts = 3

	// DefaultApplicationName is reported to PostgreSQL as application_name.
	DefaultApplicationName = "parquet2pg"
)
