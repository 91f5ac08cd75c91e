// Package decoder turns Parquet objects into in-memory column batches using Apache Arrow.
package decoder

import (
	"bytes"
	"context"
	"fmt"
	"regexp"

	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/file"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"

	"github.com/vvka-141/parquet2pg/internal/checksum"
	"github.com/vvka-141/parquet2pg/internal/logging"
	"github.com/vvka-141/parquet2pg/pkg/parquet2pg"
)

// pandasIndexColumn matches the index columns pandas writes alongside the data.
var pandasIndexColumn = regexp.MustCompile(`^__index_level_\d+__$`)

// Decoder fetches an object and decodes it into a Batch.
type Decoder struct {
	store  parquet2pg.ObjectStore
	logger parquet2pg.Logger
	mem    memory.Allocator
	sum    checksum.Calculator
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithAllocator sets the allocator used for Parquet pages and Arrow buffers.
func WithAllocator(mem memory.Allocator) Option {
	return func(d *Decoder) { d.mem = mem }
}

// WithChecksum adds the content digest to the verbose fetch log line.
func WithChecksum(calc checksum.Calculator) Option {
	return func(d *Decoder) { d.sum = calc }
}

func WithLogger(logger parquet2pg.Logger) Option {
	return func(d *Decoder) { d.logger = logger }
}

// New creates a Decoder reading objects from store. Panics if store is nil.
func New(store parquet2pg.ObjectStore, opts ...Option) *Decoder {
	if store == nil {
		panic("store cannot be nil")
	}
	d := &Decoder{
		store:  store,
		logger: logging.NewNullLogger(),
		mem:    memory.DefaultAllocator,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode fetches ref in full and decodes it. Fetch failures are returned as
// *parquet2pg.StorageAccessError and invalid content as *parquet2pg.DecodeError.
func (d *Decoder) Decode(ctx context.Context, ref parquet2pg.ObjectRef) (*parquet2pg.Batch, error) {
	data, err := d.store.GetObject(ctx, ref.Bucket, ref.Key)
	if err != nil {
		return nil, err
	}
	if d.sum != nil {
		d.logger.Verbose("Fetched %s (%d bytes, sha256 %s)", ref, len(data), checksum.Short(d.sum.Calculate(data)))
	} else {
		d.logger.Verbose("Fetched %s (%d bytes)", ref, len(data))
	}

	batch, err := d.DecodeBytes(ctx, data)
	if err != nil {
		return nil, &parquet2pg.DecodeError{Bucket: ref.Bucket, Key: ref.Key, Err: err}
	}
	return batch, nil
}

// DecodeBytes parses a complete Parquet file held in memory.
func (d *Decoder) DecodeBytes(ctx context.Context, data []byte) (batch *parquet2pg.Batch, err error) {
	// Arrow panics on some malformed inputs instead of returning an error.
	defer func() {
		if r := recover(); r != nil {
			batch, err = nil, fmt.Errorf("malformed parquet data: %v", r)
		}
	}()

	rdr, err := file.NewParquetReader(bytes.NewReader(data), file.WithReadProps(parquet.NewReaderProperties(d.mem)))
	if err != nil {
		return nil, fmt.Errorf("open parquet file: %w", err)
	}
	defer rdr.Close()

	fr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{}, d.mem)
	if err != nil {
		return nil, fmt.Errorf("read parquet schema: %w", err)
	}

	tbl, err := fr.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("read parquet data: %w", err)
	}
	defer tbl.Release()

	root := rdr.MetaData().Schema.Root()
	rows := int(tbl.NumRows())
	batch = &parquet2pg.Batch{Columns: make([]parquet2pg.Column, 0, tbl.NumCols())}
	for i := 0; i < int(tbl.NumCols()); i++ {
		col := tbl.Column(i)
		if pandasIndexColumn.MatchString(col.Name()) {
			d.logger.Verbose("Skipping pandas index column %s", col.Name())
			continue
		}

		values, err := columnValues(col.Data().Chunks(), rows)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col.Name(), err)
		}

		column := parquet2pg.Column{Name: col.Name(), Kind: kindOf(col.DataType()), Values: values}
		if column.Kind == parquet2pg.KindTimestampTZ && naiveTimestamp(fr.Manifest.OriginSchema, root, col.Name()) {
			column.Kind = parquet2pg.KindTimestamp
		}
		if p, s, ok := decimalParams(col.DataType()); ok {
			column.Precision, column.Scale = p, s
		}
		batch.Columns = append(batch.Columns, column)
	}

	d.logger.Verbose("Decoded %d rows, %d columns, %d row groups", rows, len(batch.Columns), rdr.NumRowGroups())
	return batch, nil
}
