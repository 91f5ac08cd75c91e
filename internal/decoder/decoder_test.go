package decoder

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/decimal128"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/parquet2pg/internal/checksum"
	"github.com/vvka-141/parquet2pg/internal/logging"
	"github.com/vvka-141/parquet2pg/internal/testinfra"
	"github.com/vvka-141/parquet2pg/pkg/parquet2pg"
)

type mockObjectStore struct {
	GetObjectFunc func(ctx context.Context, bucket, key string) ([]byte, error)
}

func (m *mockObjectStore) ListPage(context.Context, string, string, string) (parquet2pg.ObjectPage, error) {
	return parquet2pg.ObjectPage{}, nil
}

func (m *mockObjectStore) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	return m.GetObjectFunc(ctx, bucket, key)
}

func storeWith(data []byte) *mockObjectStore {
	return &mockObjectStore{GetObjectFunc: func(context.Context, string, string) ([]byte, error) {
		return data, nil
	}}
}

func column(t *testing.T, b *parquet2pg.Batch, name string) parquet2pg.Column {
	t.Helper()
	for _, c := range b.Columns {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("column %q not found in %v", name, b.ColumnNames())
	return parquet2pg.Column{}
}

func TestDecode_RowCountAndValues(t *testing.T) {
	data := testinfra.MustSnapshotParquet(5)
	d := New(storeWith(data), WithAllocator(memory.NewGoAllocator()))

	batch, err := d.Decode(context.Background(), parquet2pg.ObjectRef{Bucket: "b", Key: "p/beta.parquet"})
	require.NoError(t, err)
	require.NoError(t, batch.Validate())

	assert.Equal(t, 5, batch.NumRows())
	assert.Equal(t, []string{"id", "name", "amount"}, batch.ColumnNames())

	id := column(t, batch, "id")
	assert.Equal(t, parquet2pg.KindInt64, id.Kind)
	assert.Equal(t, []any{int64(1), int64(2), int64(3), int64(4), int64(5)}, id.Values)

	name := column(t, batch, "name")
	assert.Equal(t, parquet2pg.KindString, name.Kind)
	assert.Equal(t, []any{"row-1", "row-2", nil, "row-4", "row-5"}, name.Values)

	assert.Equal(t, parquet2pg.KindFloat64, column(t, batch, "amount").Kind)
}

func TestDecode_MultipleRowGroups(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{{Name: "n", Type: arrow.PrimitiveTypes.Int32}}, nil)
	rec := testinfra.BuildRecord(schema, func(b *array.RecordBuilder) {
		for i := 0; i < 10; i++ {
			b.Field(0).(*array.Int32Builder).Append(int32(i))
		}
	})
	defer rec.Release()

	data, err := testinfra.WriteParquet(rec, 3)
	require.NoError(t, err)

	batch, err := New(storeWith(data)).DecodeBytes(context.Background(), data)
	require.NoError(t, err)

	n := column(t, batch, "n")
	require.Len(t, n.Values, 10)
	for i, v := range n.Values {
		assert.Equal(t, int32(i), v)
	}
}

func TestDecode_TypeMapping(t *testing.T) {
	decType := &arrow.Decimal128Type{Precision: 10, Scale: 2}
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "flag", Type: arrow.FixedWidthTypes.Boolean},
		{Name: "tiny", Type: arrow.PrimitiveTypes.Int8},
		{Name: "small", Type: arrow.PrimitiveTypes.Int16},
		{Name: "big_unsigned", Type: arrow.PrimitiveTypes.Uint64},
		{Name: "ratio", Type: arrow.PrimitiveTypes.Float32},
		{Name: "price", Type: decType},
		{Name: "payload", Type: arrow.BinaryTypes.Binary},
		{Name: "day", Type: arrow.FixedWidthTypes.Date32},
		{Name: "clock", Type: arrow.FixedWidthTypes.Time32ms},
		{Name: "seen_at", Type: &arrow.TimestampType{Unit: arrow.Microsecond}},
		{Name: "seen_at_tz", Type: &arrow.TimestampType{Unit: arrow.Millisecond, TimeZone: "UTC"}},
		{Name: "tags", Type: arrow.ListOf(arrow.BinaryTypes.String)},
	}, nil)

	seen := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	rec := testinfra.BuildRecord(schema, func(b *array.RecordBuilder) {
		b.Field(0).(*array.BooleanBuilder).Append(true)
		b.Field(1).(*array.Int8Builder).Append(-7)
		b.Field(2).(*array.Int16Builder).Append(300)
		b.Field(3).(*array.Uint64Builder).Append(18446744073709551615)
		b.Field(4).(*array.Float32Builder).Append(0.5)
		b.Field(5).(*array.Decimal128Builder).Append(decimal128.FromI64(12345))
		b.Field(6).(*array.BinaryBuilder).Append([]byte{0xde, 0xad})
		b.Field(7).(*array.Date32Builder).Append(arrow.Date32FromTime(seen))
		b.Field(8).(*array.Time32Builder).Append(arrow.Time32(37861001))
		b.Field(9).(*array.TimestampBuilder).Append(arrow.Timestamp(seen.UnixMicro()))
		b.Field(10).(*array.TimestampBuilder).Append(arrow.Timestamp(seen.UnixMilli()))
		tags := b.Field(11).(*array.ListBuilder)
		tags.Append(true)
		tags.ValueBuilder().(*array.StringBuilder).AppendValues([]string{"a", "b"}, nil)
	})
	defer rec.Release()

	data, err := testinfra.WriteParquet(rec, 0)
	require.NoError(t, err)

	batch, err := New(storeWith(data)).DecodeBytes(context.Background(), data)
	require.NoError(t, err)
	require.Equal(t, 1, batch.NumRows())

	assert.Equal(t, parquet2pg.KindBool, column(t, batch, "flag").Kind)
	assert.Equal(t, true, column(t, batch, "flag").Values[0])

	assert.Equal(t, parquet2pg.KindInt16, column(t, batch, "tiny").Kind)
	assert.Equal(t, int16(-7), column(t, batch, "tiny").Values[0])
	assert.Equal(t, int16(300), column(t, batch, "small").Values[0])

	assert.Equal(t, parquet2pg.KindUint64, column(t, batch, "big_unsigned").Kind)
	assert.Equal(t, uint64(18446744073709551615), column(t, batch, "big_unsigned").Values[0])

	assert.Equal(t, parquet2pg.KindFloat32, column(t, batch, "ratio").Kind)
	assert.Equal(t, float32(0.5), column(t, batch, "ratio").Values[0])

	price := column(t, batch, "price")
	assert.Equal(t, parquet2pg.KindDecimal, price.Kind)
	assert.Equal(t, int32(10), price.Precision)
	assert.Equal(t, int32(2), price.Scale)
	assert.Equal(t, pgtype.Numeric{Int: big.NewInt(12345), Exp: -2, Valid: true}, price.Values[0])

	assert.Equal(t, parquet2pg.KindBinary, column(t, batch, "payload").Kind)
	assert.Equal(t, []byte{0xde, 0xad}, column(t, batch, "payload").Values[0])

	assert.Equal(t, parquet2pg.KindDate, column(t, batch, "day").Kind)
	day := column(t, batch, "day").Values[0].(time.Time)
	assert.True(t, day.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)), "got %v", day)

	assert.Equal(t, parquet2pg.KindTime, column(t, batch, "clock").Kind)
	assert.Equal(t, pgtype.Time{Microseconds: 37861001000, Valid: true}, column(t, batch, "clock").Values[0])

	assert.Equal(t, parquet2pg.KindTimestamp, column(t, batch, "seen_at").Kind)
	assert.True(t, seen.Equal(column(t, batch, "seen_at").Values[0].(time.Time)))

	assert.Equal(t, parquet2pg.KindTimestampTZ, column(t, batch, "seen_at_tz").Kind)
	assert.True(t, seen.Equal(column(t, batch, "seen_at_tz").Values[0].(time.Time)))

	assert.Equal(t, parquet2pg.KindJSON, column(t, batch, "tags").Kind)
	assert.JSONEq(t, `["a","b"]`, column(t, batch, "tags").Values[0].(string))
}

func TestDecode_NaiveTimestampKeepsWallClock(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "created_ms", Type: &arrow.TimestampType{Unit: arrow.Millisecond}},
		{Name: "created_us", Type: &arrow.TimestampType{Unit: arrow.Microsecond}},
	}, nil)

	wall := time.Date(2023, 12, 31, 23, 59, 58, 123000000, time.UTC)
	rec := testinfra.BuildRecord(schema, func(b *array.RecordBuilder) {
		b.Field(0).(*array.TimestampBuilder).Append(arrow.Timestamp(wall.UnixMilli()))
		b.Field(1).(*array.TimestampBuilder).Append(arrow.Timestamp(wall.UnixMicro()))
	})
	defer rec.Release()

	data, err := testinfra.WriteParquet(rec, 0)
	require.NoError(t, err)

	batch, err := New(storeWith(data)).DecodeBytes(context.Background(), data)
	require.NoError(t, err)

	for _, name := range []string{"created_ms", "created_us"} {
		col := column(t, batch, name)
		assert.Equal(t, parquet2pg.KindTimestamp, col.Kind, name)
		got := col.Values[0].(time.Time)
		assert.Equal(t, "2023-12-31 23:59:58.123", got.Format("2006-01-02 15:04:05.000"), name)
	}
}

func TestDecode_DictionaryColumnIsFlattened(t *testing.T) {
	dictType := &arrow.DictionaryType{IndexType: arrow.PrimitiveTypes.Int32, ValueType: arrow.BinaryTypes.String}
	schema := arrow.NewSchema([]arrow.Field{{Name: "status", Type: dictType, Nullable: true}}, nil)

	rec := testinfra.BuildRecord(schema, func(b *array.RecordBuilder) {
		sb := b.Field(0).(*array.BinaryDictionaryBuilder)
		require.NoError(t, sb.AppendString("open"))
		require.NoError(t, sb.AppendString("closed"))
		sb.AppendNull()
		require.NoError(t, sb.AppendString("open"))
	})
	defer rec.Release()

	data, err := testinfra.WriteParquet(rec, 0)
	require.NoError(t, err)

	batch, err := New(storeWith(data)).DecodeBytes(context.Background(), data)
	require.NoError(t, err)

	status := column(t, batch, "status")
	assert.Equal(t, parquet2pg.KindString, status.Kind)
	assert.Equal(t, []any{"open", "closed", nil, "open"}, status.Values)
}

func TestDecode_SkipsPandasIndexColumns(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "value", Type: arrow.PrimitiveTypes.Int64},
		{Name: "__index_level_0__", Type: arrow.PrimitiveTypes.Int64},
	}, nil)
	rec := testinfra.BuildRecord(schema, func(b *array.RecordBuilder) {
		b.Field(0).(*array.Int64Builder).AppendValues([]int64{10, 20}, nil)
		b.Field(1).(*array.Int64Builder).AppendValues([]int64{0, 1}, nil)
	})
	defer rec.Release()

	data, err := testinfra.WriteParquet(rec, 0)
	require.NoError(t, err)

	batch, err := New(storeWith(data)).DecodeBytes(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, []string{"value"}, batch.ColumnNames())
	assert.Equal(t, 2, batch.NumRows())
}

func TestDecode_ZeroRows(t *testing.T) {
	data := testinfra.MustSnapshotParquet(0)

	batch, err := New(storeWith(data)).Decode(context.Background(), parquet2pg.ObjectRef{Bucket: "b", Key: "empty.parquet"})
	require.NoError(t, err)
	assert.Equal(t, 0, batch.NumRows())
	assert.Len(t, batch.Columns, 3)
}

func TestDecode_CorruptFileIsDecodeError(t *testing.T) {
	for name, data := range map[string][]byte{
		"not parquet": []byte("this is definitely not a parquet file"),
		"empty":       {},
		"truncated":   testinfra.MustSnapshotParquet(3)[:40],
	} {
		t.Run(name, func(t *testing.T) {
			_, err := New(storeWith(data)).Decode(context.Background(), parquet2pg.ObjectRef{Bucket: "b", Key: "p/bad.parquet"})
			require.Error(t, err)

			var decodeErr *parquet2pg.DecodeError
			require.ErrorAs(t, err, &decodeErr)
			assert.Equal(t, "p/bad.parquet", decodeErr.Key)
			assert.ErrorIs(t, err, parquet2pg.ErrDecode)
			assert.NotErrorIs(t, err, parquet2pg.ErrStorageAccess)
		})
	}
}

func TestDecode_FetchFailureIsStorageError(t *testing.T) {
	fetchErr := &parquet2pg.StorageAccessError{Op: "get", Bucket: "b", Key: "k.parquet", Err: errors.New("AccessDenied")}
	store := &mockObjectStore{GetObjectFunc: func(context.Context, string, string) ([]byte, error) {
		return nil, fetchErr
	}}

	_, err := New(store).Decode(context.Background(), parquet2pg.ObjectRef{Bucket: "b", Key: "k.parquet"})
	assert.ErrorIs(t, err, parquet2pg.ErrStorageAccess)
	assert.NotErrorIs(t, err, parquet2pg.ErrDecode)
}

func TestDecode_LogsChecksum(t *testing.T) {
	data := testinfra.MustSnapshotParquet(2)
	var buf bytes.Buffer
	d := New(storeWith(data), WithChecksum(checksum.New()), WithLogger(logging.NewWriterLogger(&buf, true)))

	_, err := d.Decode(context.Background(), parquet2pg.ObjectRef{Bucket: "b", Key: "p/a.parquet"})
	require.NoError(t, err)

	want := checksum.Short(checksum.New().Calculate(data))
	assert.Contains(t, buf.String(), "sha256 "+want)
}

func TestNew_PanicsOnNilStore(t *testing.T) {
	assert.Panics(t, func() { New(nil) })
}
