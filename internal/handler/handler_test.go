package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/parquet2pg/internal/logging"
	"github.com/vvka-141/parquet2pg/pkg/parquet2pg"
)

type mockRunner struct {
	runFn  func(bucket, prefix string) (parquet2pg.RunSummary, error)
	bucket string
	prefix string
	calls  int
}

func (m *mockRunner) Run(_ context.Context, bucket, prefix string) (parquet2pg.RunSummary, error) {
	m.calls++
	m.bucket, m.prefix = bucket, prefix
	if m.runFn != nil {
		return m.runFn(bucket, prefix)
	}
	return parquet2pg.RunSummary{Details: []parquet2pg.LoadResult{}}, nil
}

func ptr(s string) *string { return &s }

func newHandler(r *mockRunner) *Handler {
	return New(r, Defaults{Bucket: "default-bucket", Prefix: "parquet-snapshot/"}, logging.NewNullLogger())
}

func TestHandle_SuccessEnvelope(t *testing.T) {
	runner := &mockRunner{runFn: func(string, string) (parquet2pg.RunSummary, error) {
		return parquet2pg.RunSummary{
			ProcessedFiles: 2,
			Details:        []parquet2pg.LoadResult{{Table: "alpha", Rows: 3}, {Table: "beta", Rows: 5}},
		}, nil
	}}

	resp, err := newHandler(runner).Handle(context.Background(), Request{Bucket: ptr("b"), Prefix: ptr("p/")})
	require.NoError(t, err)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"statusCode":200,"body":{"processed_files":2,"details":[{"table":"alpha","rows":3},{"table":"beta","rows":5}]}}`, string(raw))
	assert.Equal(t, "b", runner.bucket)
	assert.Equal(t, "p/", runner.prefix)
}

func TestHandle_EmptySummaryHasEmptyDetails(t *testing.T) {
	resp, err := newHandler(&mockRunner{}).Handle(context.Background(), Request{})
	require.NoError(t, err)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"statusCode":200,"body":{"processed_files":0,"details":[]}}`, string(raw))
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		req        Request
		defaults   Defaults
		wantBucket string
		wantPrefix string
		wantErr    bool
	}{
		{"defaults", Request{}, Defaults{"d", "snap/"}, "d", "snap/", false},
		{"overrides", Request{Bucket: ptr("b"), Prefix: ptr("p/")}, Defaults{"d", "snap/"}, "b", "p/", false},
		{"explicit empty prefix", Request{Prefix: ptr("")}, Defaults{"d", "snap/"}, "d", "", false},
		{"empty bucket falls back", Request{Bucket: ptr("")}, Defaults{"d", "snap/"}, "d", "snap/", false},
		{"no bucket anywhere", Request{}, Defaults{Prefix: "snap/"}, "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(&mockRunner{}, tt.defaults, logging.NewNullLogger())
			bucket, prefix, err := h.Resolve(tt.req)
			if tt.wantErr {
				assert.ErrorIs(t, err, parquet2pg.ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBucket, bucket)
			assert.Equal(t, tt.wantPrefix, prefix)
		})
	}
}

func TestHandle_PropagatesErrors(t *testing.T) {
	runErr := &parquet2pg.DecodeError{Bucket: "b", Key: "p/bad.parquet", Err: errors.New("bad magic")}
	runner := &mockRunner{runFn: func(string, string) (parquet2pg.RunSummary, error) {
		return parquet2pg.RunSummary{}, fmt.Errorf("decoding failed: %w", runErr)
	}}

	resp, err := newHandler(runner).Handle(context.Background(), Request{})
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, runErr)
}

func TestHandle_MissingBucketSkipsRun(t *testing.T) {
	runner := &mockRunner{}
	h := New(runner, Defaults{}, logging.NewNullLogger())

	_, err := h.Handle(context.Background(), Request{})
	assert.ErrorIs(t, err, parquet2pg.ErrInvalidConfig)
	assert.Zero(t, runner.calls)
}

func TestErrorResponse(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"storage", &parquet2pg.StorageAccessError{Op: "list", Bucket: "b", Err: cause}, 500, ErrorTypeStorageAccess},
		{"decode", &parquet2pg.DecodeError{Bucket: "b", Key: "k", Err: cause}, 500, ErrorTypeDecode},
		{"load", &parquet2pg.LoadError{Table: "t", Stage: parquet2pg.StageInsert, Err: cause}, 500, ErrorTypeLoad},
		{"config", fmt.Errorf("bucket is required: %w", parquet2pg.ErrInvalidConfig), 400, ErrorTypeConfig},
		{"auth", parquet2pg.ErrUnsupportedAuthMethod, 400, ErrorTypeConfig},
		{"connection", fmt.Errorf("%w: refused", parquet2pg.ErrConnectionFailed), 500, ErrorTypeConnection},
		{"other", cause, 500, ErrorTypeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := ErrorResponse(tt.err)
			assert.Equal(t, tt.wantStatus, env.StatusCode)
			assert.Equal(t, tt.wantType, env.Body.ErrorType)
			assert.Equal(t, tt.err.Error(), env.Body.Error)
		})
	}
}

func TestErrorResponse_JSONShape(t *testing.T) {
	raw, err := json.Marshal(ErrorResponse(&parquet2pg.DecodeError{Bucket: "b", Key: "k", Err: errors.New("bad")}))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.EqualValues(t, 500, decoded["statusCode"])
	body := decoded["body"].(map[string]any)
	assert.Equal(t, "decode", body["error_type"])
	assert.Contains(t, body["error"], "parquet decode failed")
}

func TestNew_PanicsOnNil(t *testing.T) {
	assert.Panics(t, func() { New(nil, Defaults{}, logging.NewNullLogger()) })
	assert.Panics(t, func() { New(&mockRunner{}, Defaults{}, nil) })
}
