package loader

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/vvka-141/parquet2pg/pkg/parquet2pg"
)

// PostgreSQL column types produced by the loader.
const (
	TypeBoolean     = "BOOLEAN"
	TypeSmallint    = "SMALLINT"
	TypeInteger     = "INTEGER"
	TypeBigint      = "BIGINT"
	TypeNumeric     = "NUMERIC"
	TypeUint64      = "NUMERIC(20,0)"
	TypeReal        = "REAL"
	TypeDouble      = "DOUBLE PRECISION"
	TypeText        = "TEXT"
	TypeBytea       = "BYTEA"
	TypeDate        = "DATE"
	TypeTime        = "TIME"
	TypeTimestamp   = "TIMESTAMP"
	TypeTimestamptz = "TIMESTAMPTZ"
	TypeJSONB       = "JSONB"
)

// ColumnType returns the PostgreSQL type for a column. Columns of unknown kind
// are typed from their first non-nil value; an all-NULL column becomes TEXT.
func ColumnType(c parquet2pg.Column) string {
	switch c.Kind {
	case parquet2pg.KindBool:
		return TypeBoolean
	case parquet2pg.KindInt16:
		return TypeSmallint
	case parquet2pg.KindInt32:
		return TypeInteger
	case parquet2pg.KindInt64:
		return TypeBigint
	case parquet2pg.KindUint64:
		return TypeUint64
	case parquet2pg.KindFloat32:
		return TypeReal
	case parquet2pg.KindFloat64:
		return TypeDouble
	case parquet2pg.KindDecimal:
		if c.Precision > 0 {
			return fmt.Sprintf("NUMERIC(%d,%d)", c.Precision, c.Scale)
		}
		return TypeNumeric
	case parquet2pg.KindString:
		return TypeText
	case parquet2pg.KindBinary:
		return TypeBytea
	case parquet2pg.KindDate:
		return TypeDate
	case parquet2pg.KindTime:
		return TypeTime
	case parquet2pg.KindTimestamp:
		return TypeTimestamp
	case parquet2pg.KindTimestampTZ:
		return TypeTimestamptz
	case parquet2pg.KindJSON:
		return TypeJSONB
	}

	for _, v := range c.Values {
		if v != nil {
			return typeOfValue(v)
		}
	}
	return TypeText
}

func typeOfValue(v any) string {
	switch v.(type) {
	case bool:
		return TypeBoolean
	case int8, int16, uint8:
		return TypeSmallint
	case int32, uint16:
		return TypeInteger
	case int, int64, uint32:
		return TypeBigint
	case uint, uint64:
		return TypeUint64
	case float32:
		return TypeReal
	case float64:
		return TypeDouble
	case pgtype.Numeric, *big.Int:
		return TypeNumeric
	case []byte:
		return TypeBytea
	case pgtype.Date:
		return TypeDate
	case pgtype.Time:
		return TypeTime
	case time.Time:
		return TypeTimestamptz
	case map[string]any, []any:
		return TypeJSONB
	default:
		return TypeText
	}
}

// encodeValue adapts a decoded value to something pgx can bind to a column of
// the given PostgreSQL type.
func encodeValue(v any, pgType string) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch x := v.(type) {
	case uint64:
		return pgtype.Numeric{Int: new(big.Int).SetUint64(x), Valid: true}, nil
	case uint:
		return pgtype.Numeric{Int: new(big.Int).SetUint64(uint64(x)), Valid: true}, nil
	case *big.Int:
		return pgtype.Numeric{Int: x, Valid: true}, nil
	}

	switch pgType {
	case TypeJSONB:
		if s, ok := v.(string); ok {
			return s, nil
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %T as json: %w", v, err)
		}
		return string(raw), nil
	case TypeText:
		switch x := v.(type) {
		case string:
			return x, nil
		case fmt.Stringer:
			return x.String(), nil
		default:
			return fmt.Sprint(x), nil
		}
	}
	return v, nil
}
