// Package handler is the invocation boundary shared by the CLI and the Lambda runtime.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/vvka-141/parquet2pg/pkg/parquet2pg"
)

// Request is one invocation. Nil fields fall back to the configured defaults.
type Request struct {
	Bucket *string `json:"bucket,omitempty"`
	Prefix *string `json:"prefix,omitempty"`
}

// Response is the success envelope.
type Response struct {
	StatusCode int                   `json:"statusCode"`
	Body       parquet2pg.RunSummary `json:"body"`
}

// ErrorBody describes a failed invocation.
type ErrorBody struct {
	Error     string `json:"error"`
	ErrorType string `json:"error_type"`
}

// ErrorEnvelope is the failure envelope built by ErrorResponse.
type ErrorEnvelope struct {
	StatusCode int       `json:"statusCode"`
	Body       ErrorBody `json:"body"`
}

// Error types reported in ErrorBody.ErrorType.
const (
	ErrorTypeStorageAccess = "storage_access"
	ErrorTypeDecode        = "decode"
	ErrorTypeLoad          = "load"
	ErrorTypeConfig        = "config"
	ErrorTypeConnection    = "connection"
	ErrorTypeInternal      = "internal"
)

// Defaults are the process-level values used when a request omits a field.
type Defaults struct {
	Bucket string
	Prefix string
}

type Handler struct {
	runner   parquet2pg.Runner
	defaults Defaults
	logger   parquet2pg.Logger
}

// New creates a Handler. Panics on nil dependencies.
func New(runner parquet2pg.Runner, defaults Defaults, logger parquet2pg.Logger) *Handler {
	if runner == nil {
		panic("runner cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Handler{runner: runner, defaults: defaults, logger: logger}
}

// Resolve applies the defaults to req. An explicit empty prefix is kept and
// lists the whole bucket; an empty bucket falls back to the default, and it is
// an error only when no default exists.
func (h *Handler) Resolve(req Request) (bucket, prefix string, err error) {
	bucket, prefix = h.defaults.Bucket, h.defaults.Prefix
	if req.Bucket != nil && *req.Bucket != "" {
		bucket = *req.Bucket
	}
	if req.Prefix != nil {
		prefix = *req.Prefix
	}
	if bucket == "" {
		return "", "", fmt.Errorf("bucket is required (set it in the request or SOURCE_S3_BUCKET): %w", parquet2pg.ErrInvalidConfig)
	}
	return bucket, prefix, nil
}

// Handle runs one restore. Failures are returned unchanged; use ErrorResponse
// to turn them into an envelope.
func (h *Handler) Handle(ctx context.Context, req Request) (*Response, error) {
	bucket, prefix, err := h.Resolve(req)
	if err != nil {
		return nil, err
	}
	h.logger.Verbose("Invocation for bucket %q, prefix %q", bucket, prefix)

	summary, err := h.runner.Run(ctx, bucket, prefix)
	if err != nil {
		return nil, err
	}
	return &Response{StatusCode: http.StatusOK, Body: summary}, nil
}

// ErrorResponse classifies err into the failure envelope. Configuration
// problems are reported as 400, everything else as 500.
func ErrorResponse(err error) *ErrorEnvelope {
	errorType := ErrorTypeInternal
	switch {
	case errors.Is(err, parquet2pg.ErrInvalidConfig), errors.Is(err, parquet2pg.ErrUnsupportedAuthMethod):
		errorType = ErrorTypeConfig
	case errors.Is(err, parquet2pg.ErrConnectionFailed):
		errorType = ErrorTypeConnection
	case errors.Is(err, parquet2pg.ErrStorageAccess):
		errorType = ErrorTypeStorageAccess
	case errors.Is(err, parquet2pg.ErrDecode):
		errorType = ErrorTypeDecode
	case errors.Is(err, parquet2pg.ErrLoad):
		errorType = ErrorTypeLoad
	}

	status := http.StatusInternalServerError
	if errorType == ErrorTypeConfig {
		status = http.StatusBadRequest
	}

	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &ErrorEnvelope{StatusCode: status, Body: ErrorBody{Error: msg, ErrorType: errorType}}
}
