package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/parquet2pg/pkg/parquet2pg"
)

type mockConnector struct {
	pool *pgxpool.Pool
	err  error
}

func (m *mockConnector) Connect(_ context.Context) (*pgxpool.Pool, error) {
	return m.pool, m.err
}

// mockStore serves a fixed set of keys one per page.
type mockStore struct {
	keys      []string
	listErr   error
	listCalls int
}

func newMockStore(keys ...string) *mockStore {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	return &mockStore{keys: sorted}
}

func (m *mockStore) ListPage(_ context.Context, _, prefix, token string) (parquet2pg.ObjectPage, error) {
	m.listCalls++
	if m.listErr != nil {
		return parquet2pg.ObjectPage{}, m.listErr
	}
	for _, k := range m.keys {
		if strings.HasPrefix(k, prefix) && k > token {
			return parquet2pg.ObjectPage{Keys: []string{k}, NextToken: k}, nil
		}
	}
	return parquet2pg.ObjectPage{}, nil
}

func (m *mockStore) GetObject(_ context.Context, _, key string) ([]byte, error) {
	return []byte(key), nil
}

type mockDecoder struct {
	decodeFn func(ref parquet2pg.ObjectRef) (*parquet2pg.Batch, error)
	decoded  []string
}

func (m *mockDecoder) Decode(_ context.Context, ref parquet2pg.ObjectRef) (*parquet2pg.Batch, error) {
	m.decoded = append(m.decoded, ref.Key)
	if m.decodeFn != nil {
		return m.decodeFn(ref)
	}
	return rowsBatch(1), nil
}

type mockLoader struct {
	loadFn func(table string, batch *parquet2pg.Batch) (int, error)
	tables []string
}

func (m *mockLoader) Load(_ context.Context, _ parquet2pg.DBConn, table string, batch *parquet2pg.Batch) (int, error) {
	m.tables = append(m.tables, table)
	if m.loadFn != nil {
		return m.loadFn(table, batch)
	}
	return batch.NumRows(), nil
}

type mockConn struct{}

func (mockConn) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

type runFinished struct {
	summary parquet2pg.RunSummary
	failed  parquet2pg.Phase
}

type mockMetrics struct {
	loaded   map[string]int
	finished []runFinished
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{loaded: map[string]int{}}
}

func (m *mockMetrics) FileLoaded(table string, rows int) {
	m.loaded[table] += rows
}

func (m *mockMetrics) RunFinished(_ context.Context, summary parquet2pg.RunSummary, failed parquet2pg.Phase, _ time.Duration) {
	m.finished = append(m.finished, runFinished{summary: summary, failed: failed})
}

type mockLogger struct{}

func (m *mockLogger) Verbose(_ string, _ ...interface{}) {}
func (m *mockLogger) Info(_ string, _ ...interface{})    {}
func (m *mockLogger) Error(_ string, _ ...interface{})   {}

func rowsBatch(n int) *parquet2pg.Batch {
	values := make([]any, n)
	for i := range values {
		values[i] = int64(i)
	}
	return &parquet2pg.Batch{Columns: []parquet2pg.Column{{Name: "id", Kind: parquet2pg.KindInt64, Values: values}}}
}
