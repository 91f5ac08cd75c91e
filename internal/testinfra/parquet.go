package testinfra

import (
	"bytes"
	"fmt"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"
)

// WriteParquet serializes rec as a Parquet file. rowGroupSize > 0 splits the
// file into several row groups; the Arrow schema is stored in the file metadata.
func WriteParquet(rec arrow.Record, rowGroupSize int64) ([]byte, error) {
	tbl := array.NewTableFromRecords(rec.Schema(), []arrow.Record{rec})
	defer tbl.Release()

	if rowGroupSize <= 0 {
		rowGroupSize = 1024
	}

	var buf bytes.Buffer
	err := pqarrow.WriteTable(tbl, &buf, rowGroupSize,
		parquet.NewWriterProperties(parquet.WithAllocator(memory.DefaultAllocator)),
		pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()),
	)
	if err != nil {
		return nil, fmt.Errorf("write parquet: %w", err)
	}
	return buf.Bytes(), nil
}

// BuildRecord creates a record for schema, letting fill append values to the builder.
// The caller must Release the record.
func BuildRecord(schema *arrow.Schema, fill func(b *array.RecordBuilder)) arrow.Record {
	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()
	fill(b)
	return b.NewRecord()
}

// SnapshotParquet returns a file with columns id (int64), name (string) and
// amount (float64) holding rows rows. Every third name is NULL.
func SnapshotParquet(rows int) ([]byte, error) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "amount", Type: arrow.PrimitiveTypes.Float64},
	}, nil)

	rec := BuildRecord(schema, func(b *array.RecordBuilder) {
		ids := b.Field(0).(*array.Int64Builder)
		names := b.Field(1).(*array.StringBuilder)
		amounts := b.Field(2).(*array.Float64Builder)
		for i := 0; i < rows; i++ {
			ids.Append(int64(i + 1))
			if i%3 == 2 {
				names.AppendNull()
			} else {
				names.Append(fmt.Sprintf("row-%d", i+1))
			}
			amounts.Append(float64(i) * 1.5)
		}
	})
	defer rec.Release()

	return WriteParquet(rec, 0)
}

// MustSnapshotParquet is SnapshotParquet for test setup; it panics on error.
func MustSnapshotParquet(rows int) []byte {
	data, err := SnapshotParquet(rows)
	if err != nil {
		panic(err)
	}
	return data
}
