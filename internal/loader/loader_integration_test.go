package loader_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/parquet2pg/internal/loader"
	testhelpers "github.com/vvka-141/parquet2pg/internal/testing"
	"github.com/vvka-141/parquet2pg/pkg/parquet2pg"
)

func allKindsBatch() *parquet2pg.Batch {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	return &parquet2pg.Batch{Columns: []parquet2pg.Column{
		{Name: "flag", Kind: parquet2pg.KindBool, Values: []any{true, nil}},
		{Name: "small", Kind: parquet2pg.KindInt16, Values: []any{int16(7), nil}},
		{Name: "id", Kind: parquet2pg.KindInt64, Values: []any{int64(1), int64(2)}},
		{Name: "big", Kind: parquet2pg.KindUint64, Values: []any{uint64(18446744073709551615), nil}},
		{Name: "ratio", Kind: parquet2pg.KindFloat32, Values: []any{float32(0.5), nil}},
		{Name: "amount", Kind: parquet2pg.KindDecimal, Precision: 10, Scale: 2,
			Values: []any{pgtype.Numeric{Int: big.NewInt(12345), Exp: -2, Valid: true}, nil}},
		{Name: "name", Kind: parquet2pg.KindString, Values: []any{"alpha", nil}},
		{Name: "blob", Kind: parquet2pg.KindBinary, Values: []any{[]byte{0x01, 0x02}, nil}},
		{Name: "day", Kind: parquet2pg.KindDate, Values: []any{day, nil}},
		{Name: "at", Kind: parquet2pg.KindTime, Values: []any{pgtype.Time{Microseconds: 3600_000_000, Valid: true}, nil}},
		{Name: "created", Kind: parquet2pg.KindTimestamp, Values: []any{ts, nil}},
		{Name: "created_tz", Kind: parquet2pg.KindTimestampTZ, Values: []any{ts, nil}},
		{Name: "tags", Kind: parquet2pg.KindJSON, Values: []any{`["a","b"]`, nil}},
	}}
}

func TestLoad_Integration_AllKinds(t *testing.T) {
	connString := testhelpers.RequireDatabase(t)
	dbConn := testhelpers.CreateTestDB(t, connString, testhelpers.UniqueDatabaseName("loader"))
	pool := testhelpers.GetTestPool(t, dbConn)
	ctx := context.Background()

	n, err := loader.New().Load(ctx, pool, "everything", allKindsBatch())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, testhelpers.CountRows(t, pool, "everything"))

	var (
		big    string
		amount string
		tags   string
		name   *string
	)
	err = pool.QueryRow(ctx,
		`SELECT big::text, amount::text, tags::text, name FROM everything WHERE id = 1`).
		Scan(&big, &amount, &tags, &name)
	require.NoError(t, err)
	assert.Equal(t, "18446744073709551615", big)
	assert.Equal(t, "123.45", amount)
	assert.JSONEq(t, `["a","b"]`, tags)
	require.NotNil(t, name)
	assert.Equal(t, "alpha", *name)

	var nulls int
	err = pool.QueryRow(ctx, `SELECT count(*) FROM everything WHERE id = 2 AND name IS NULL AND tags IS NULL`).Scan(&nulls)
	require.NoError(t, err)
	assert.Equal(t, 1, nulls)
}

func TestLoad_Integration_ReplacesTable(t *testing.T) {
	connString := testhelpers.RequireDatabase(t)
	dbConn := testhelpers.CreateTestDB(t, connString, testhelpers.UniqueDatabaseName("loader"))
	pool := testhelpers.GetTestPool(t, dbConn)
	ctx := context.Background()

	_, err := pool.Exec(ctx, `CREATE TABLE orders (legacy TEXT)`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO orders VALUES ('stale')`)
	require.NoError(t, err)

	batch := &parquet2pg.Batch{Columns: []parquet2pg.Column{
		{Name: "id", Kind: parquet2pg.KindInt32, Values: []any{int32(1), int32(2), int32(3)}},
	}}

	l := loader.New(loader.WithBatchSize(2))
	for range 2 {
		n, err := l.Load(ctx, pool, "orders", batch)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		assert.Equal(t, 3, testhelpers.CountRows(t, pool, "orders"))
	}

	var columns int
	err = pool.QueryRow(ctx,
		`SELECT count(*) FROM information_schema.columns WHERE table_name = 'orders'`).Scan(&columns)
	require.NoError(t, err)
	assert.Equal(t, 1, columns, "no synthetic index column")
}
