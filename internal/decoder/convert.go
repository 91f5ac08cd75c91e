package decoder

import (
	"encoding/json"
	"time"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/parquet/schema"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/vvka-141/parquet2pg/pkg/parquet2pg"
)

// valueFunc returns the Go value of row i of an Arrow array. Callers handle nulls.
type valueFunc func(i int) any

// naiveTimestamp reports whether a top-level timestamp column has no time zone.
// pqarrow reads every TIMESTAMP back as UTC, so the stored Arrow schema decides
// when present and the Parquet isAdjustedToUTC flag decides otherwise.
func naiveTimestamp(origin *arrow.Schema, root *schema.GroupNode, name string) bool {
	if origin != nil {
		if idx := origin.FieldIndices(name); len(idx) == 1 {
			if ts, ok := origin.Field(idx[0]).Type.(*arrow.TimestampType); ok {
				return ts.TimeZone == ""
			}
		}
	}
	idx := root.FieldIndexByName(name)
	if idx < 0 {
		return false
	}
	ts, ok := root.Field(idx).LogicalType().(*schema.TimestampLogicalType)
	return ok && !ts.IsAdjustedToUTC()
}

// kindOf maps an Arrow type to the logical column kind.
func kindOf(dt arrow.DataType) parquet2pg.ColumnKind {
	switch t := dt.(type) {
	case *arrow.DictionaryType:
		return kindOf(t.ValueType)
	case *arrow.TimestampType:
		if t.TimeZone != "" {
			return parquet2pg.KindTimestampTZ
		}
		return parquet2pg.KindTimestamp
	}

	switch dt.ID() {
	case arrow.BOOL:
		return parquet2pg.KindBool
	case arrow.INT8, arrow.INT16, arrow.UINT8:
		return parquet2pg.KindInt16
	case arrow.INT32, arrow.UINT16:
		return parquet2pg.KindInt32
	case arrow.INT64, arrow.UINT32:
		return parquet2pg.KindInt64
	case arrow.UINT64:
		return parquet2pg.KindUint64
	case arrow.FLOAT16, arrow.FLOAT32:
		return parquet2pg.KindFloat32
	case arrow.FLOAT64:
		return parquet2pg.KindFloat64
	case arrow.DECIMAL128, arrow.DECIMAL256:
		return parquet2pg.KindDecimal
	case arrow.STRING, arrow.LARGE_STRING:
		return parquet2pg.KindString
	case arrow.BINARY, arrow.LARGE_BINARY, arrow.FIXED_SIZE_BINARY:
		return parquet2pg.KindBinary
	case arrow.DATE32, arrow.DATE64:
		return parquet2pg.KindDate
	case arrow.TIME32, arrow.TIME64:
		return parquet2pg.KindTime
	case arrow.LIST, arrow.LARGE_LIST, arrow.FIXED_SIZE_LIST, arrow.STRUCT, arrow.MAP:
		return parquet2pg.KindJSON
	default:
		return parquet2pg.KindUnknown
	}
}

// valuesOf returns the accessor for arr. Values never alias Arrow buffers,
// so they stay valid after the table is released.
func valuesOf(arr arrow.Array) (valueFunc, error) {
	switch a := arr.(type) {
	case *array.Boolean:
		return func(i int) any { return a.Value(i) }, nil
	case *array.Int8:
		return func(i int) any { return int16(a.Value(i)) }, nil
	case *array.Int16:
		return func(i int) any { return a.Value(i) }, nil
	case *array.Int32:
		return func(i int) any { return a.Value(i) }, nil
	case *array.Int64:
		return func(i int) any { return a.Value(i) }, nil
	case *array.Uint8:
		return func(i int) any { return int16(a.Value(i)) }, nil
	case *array.Uint16:
		return func(i int) any { return int32(a.Value(i)) }, nil
	case *array.Uint32:
		return func(i int) any { return int64(a.Value(i)) }, nil
	case *array.Uint64:
		return func(i int) any { return a.Value(i) }, nil
	case *array.Float16:
		return func(i int) any { return a.Value(i).Float32() }, nil
	case *array.Float32:
		return func(i int) any { return a.Value(i) }, nil
	case *array.Float64:
		return func(i int) any { return a.Value(i) }, nil
	case *array.Decimal128:
		scale := a.DataType().(*arrow.Decimal128Type).Scale
		return func(i int) any {
			return pgtype.Numeric{Int: a.Value(i).BigInt(), Exp: -scale, Valid: true}
		}, nil
	case *array.Decimal256:
		scale := a.DataType().(*arrow.Decimal256Type).Scale
		return func(i int) any {
			return pgtype.Numeric{Int: a.Value(i).BigInt(), Exp: -scale, Valid: true}
		}, nil
	case *array.String:
		return func(i int) any { return a.Value(i) }, nil
	case *array.LargeString:
		return func(i int) any { return a.Value(i) }, nil
	case *array.Binary:
		return func(i int) any { return cloneBytes(a.Value(i)) }, nil
	case *array.LargeBinary:
		return func(i int) any { return cloneBytes(a.Value(i)) }, nil
	case *array.FixedSizeBinary:
		return func(i int) any { return cloneBytes(a.Value(i)) }, nil
	case *array.Date32:
		return func(i int) any { return a.Value(i).ToTime() }, nil
	case *array.Date64:
		return func(i int) any { return a.Value(i).ToTime() }, nil
	case *array.Time32:
		unit := a.DataType().(*arrow.Time32Type).Unit
		return func(i int) any { return timeOfDay(int64(a.Value(i)), unit) }, nil
	case *array.Time64:
		unit := a.DataType().(*arrow.Time64Type).Unit
		return func(i int) any { return timeOfDay(int64(a.Value(i)), unit) }, nil
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return func(i int) any { return a.Value(i).ToTime(unit) }, nil
	case *array.Dictionary:
		dictValues := a.Dictionary()
		dict, err := valuesOf(dictValues)
		if err != nil {
			return nil, err
		}
		return func(i int) any {
			idx := a.GetValueIndex(i)
			if dictValues.IsNull(idx) {
				return nil
			}
			return dict(idx)
		}, nil
	case *array.List, *array.LargeList, *array.FixedSizeList, *array.Struct, *array.Map:
		return func(i int) any { return marshalJSON(arr, i) }, nil
	case *array.Null:
		return func(int) any { return nil }, nil
	default:
		// Durations, intervals and extension types are loaded as their text form.
		return func(i int) any { return arr.ValueStr(i) }, nil
	}
}

// columnValues flattens every chunk of a column into Go values.
func columnValues(chunks []arrow.Array, rows int) ([]any, error) {
	values := make([]any, 0, rows)
	for _, chunk := range chunks {
		value, err := valuesOf(chunk)
		if err != nil {
			return nil, err
		}
		for i := 0; i < chunk.Len(); i++ {
			if chunk.IsNull(i) {
				values = append(values, nil)
				continue
			}
			values = append(values, value(i))
		}
	}
	return values, nil
}

func timeOfDay(v int64, unit arrow.TimeUnit) pgtype.Time {
	return pgtype.Time{
		Microseconds: v * int64(unit.Multiplier()) / int64(time.Microsecond),
		Valid:        true,
	}
}

func marshalJSON(arr arrow.Array, i int) any {
	data, err := json.Marshal(arr.GetOneForMarshal(i))
	if err != nil {
		data, _ = json.Marshal(arr.ValueStr(i))
	}
	return string(data)
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func decimalParams(dt arrow.DataType) (precision, scale int32, ok bool) {
	if dict, isDict := dt.(*arrow.DictionaryType); isDict {
		dt = dict.ValueType
	}
	switch t := dt.(type) {
	case *arrow.Decimal128Type:
		return t.Precision, t.Scale, true
	case *arrow.Decimal256Type:
		return t.Precision, t.Scale, true
	}
	return 0, 0, false
}
