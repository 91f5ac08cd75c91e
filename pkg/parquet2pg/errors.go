package parquet2pg

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for error classification with errors.Is.
var (
	// ErrInvalidConfig indicates invalid configuration or parameters.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConnectionFailed indicates the database could not be reached.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrUnsupportedAuthMethod indicates an auth method with no connector.
	ErrUnsupportedAuthMethod = errors.New("unsupported authentication method")

	// ErrStorageAccess indicates an object listing or fetch failed.
	ErrStorageAccess = errors.New("storage access failed")

	// ErrDecode indicates an object is not a valid Parquet file.
	ErrDecode = errors.New("parquet decode failed")

	// ErrLoad indicates a database statement failed while loading a table.
	ErrLoad = errors.New("table load failed")
)

// StorageAccessError reports a failed list or fetch call against the object store.
type StorageAccessError struct {
	Op     string // "list" or "get"
	Bucket string
	Key    string // prefix for list operations
	Err    error
}

func (e *StorageAccessError) Error() string {
	return fmt.Sprintf("storage access failed: %s s3://%s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
}

func (e *StorageAccessError) Unwrap() error { return e.Err }

func (e *StorageAccessError) Is(target error) bool { return target == ErrStorageAccess }

// DecodeError reports an object whose bytes are not a readable Parquet file.
type DecodeError struct {
	Bucket string
	Key    string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("parquet decode failed for s3://%s/%s: %v", e.Bucket, e.Key, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// Load stages.
const (
	StageValidate = "validate"
	StageDrop     = "drop"
	StageCreate   = "create"
	StageInsert   = "insert"
)

// LoadError reports a failed database statement for one table.
type LoadError struct {
	Table string
	Stage string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("table load failed for %q during %s: %v", e.Table, e.Stage, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Is(target error) bool { return target == ErrLoad }

// ExitCodeForError maps an error to its process exit code.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrInvalidConfig), errors.Is(err, ErrUnsupportedAuthMethod):
		return ExitConfigError
	case errors.Is(err, ErrConnectionFailed):
		return ExitConnectionError
	case errors.Is(err, ErrStorageAccess):
		return ExitStorageError
	case errors.Is(err, ErrDecode):
		return ExitDecodeError
	case errors.Is(err, ErrLoad):
		return ExitLoadError
	}

	if isUsageError(err) {
		return ExitUsageError
	}

	errStr := err.Error()
	if strings.Contains(errStr, "failed to connect") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") {
		return ExitConnectionError
	}

	return ExitGeneralError
}

// isUsageError recognises cobra's argument and flag errors, which are plain strings.
func isUsageError(err error) bool {
	msg := err.Error()
	for _, pattern := range []string{
		"unknown command",
		"unknown flag",
		"unknown shorthand flag",
		"accepts ",
		"requires at least",
		"requires at most",
		"invalid argument",
		"flag needs an argument",
		"required flag",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
