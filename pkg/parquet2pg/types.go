package parquet2pg

import (
	"fmt"
	"path"
	"strings"
)

// ObjectRef identifies one object in the source store.
type ObjectRef struct {
	Bucket string
	Key    string
}

// String renders the reference as an s3:// URI.
func (r ObjectRef) String() string {
	return fmt.Sprintf("s3://%s/%s", r.Bucket, r.Key)
}

// TableName returns the destination table for the object.
func (r ObjectRef) TableName() string {
	return TableNameForKey(r.Key)
}

// TableNameForKey derives a table name from an object key: the last path
// segment with the .parquet suffix removed. "prefix/orders.parquet" yields "orders".
func TableNameForKey(key string) string {
	base := path.Base(key)
	// Leading dots belong to the name, so ".parquet" has no extension to strip.
	if name := strings.TrimSuffix(base, ParquetExtension); strings.Trim(name, ".") != "" {
		return name
	}
	return base
}

// IsParquetKey reports whether the key ends with the exact, case-sensitive .parquet suffix.
func IsParquetKey(key string) bool {
	return strings.HasSuffix(key, ParquetExtension)
}

// ObjectPage is one page of a key listing.
// An empty NextToken means no further pages exist.
type ObjectPage struct {
	Keys      []string
	NextToken string
}

// ColumnKind is the logical type of a decoded column.
type ColumnKind int

const (
	KindUnknown ColumnKind = iota
	KindBool
	KindInt16
	KindInt32
	KindInt64
	KindUint64
	KindFloat32
	KindFloat64
	KindDecimal
	KindString
	KindBinary
	KindDate
	KindTime
	KindTimestamp
	KindTimestampTZ
	KindJSON
)

var kindNames = map[ColumnKind]string{
	KindUnknown:     "unknown",
	KindBool:        "bool",
	KindInt16:       "int16",
	KindInt32:       "int32",
	KindInt64:       "int64",
	KindUint64:      "uint64",
	KindFloat32:     "float32",
	KindFloat64:     "float64",
	KindDecimal:     "decimal",
	KindString:      "string",
	KindBinary:      "binary",
	KindDate:        "date",
	KindTime:        "time",
	KindTimestamp:   "timestamp",
	KindTimestampTZ: "timestamptz",
	KindJSON:        "json",
}

func (k ColumnKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ColumnKind(%d)", int(k))
}

// Column is one named, typed column of decoded values.
// Values holds Go scalars; nil represents SQL NULL.
type Column struct {
	Name   string
	Kind   ColumnKind
	Values []any

	// Precision and Scale are set for KindDecimal columns.
	Precision int32
	Scale     int32
}

// Batch is the in-memory tabular form of one Parquet file.
type Batch struct {
	Columns []Column
}

// NumRows returns the row count. A batch with no columns has zero rows.
func (b *Batch) NumRows() int {
	if b == nil || len(b.Columns) == 0 {
		return 0
	}
	return len(b.Columns[0].Values)
}

// ColumnNames returns the column names in order.
func (b *Batch) ColumnNames() []string {
	names := make([]string, len(b.Columns))
	for i, c := range b.Columns {
		names[i] = c.Name
	}
	return names
}

// Validate checks that every column has the same length and a non-empty, unique name.
func (b *Batch) Validate() error {
	if b == nil {
		return fmt.Errorf("batch is nil")
	}
	seen := make(map[string]struct{}, len(b.Columns))
	rows := b.NumRows()
	for i, c := range b.Columns {
		if c.Name == "" {
			return fmt.Errorf("column %d has an empty name", i)
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("duplicate column name %q", c.Name)
		}
		seen[c.Name] = struct{}{}
		if len(c.Values) != rows {
			return fmt.Errorf("column %q has %d values, expected %d", c.Name, len(c.Values), rows)
		}
	}
	return nil
}

// LoadResult records one loaded table.
type LoadResult struct {
	Table string `json:"table"`
	Rows  int    `json:"rows"`
}

// RunSummary is the outcome of a successful run.
type RunSummary struct {
	ProcessedFiles int          `json:"processed_files"`
	Details        []LoadResult `json:"details"`
}

// TotalRows sums the rows of every loaded table.
func (s RunSummary) TotalRows() int {
	total := 0
	for _, d := range s.Details {
		total += d.Rows
	}
	return total
}

// Phase is a run lifecycle state:
// idle -> connecting -> listing -> (decoding -> loading)* -> done.
// Any phase after idle may end in failed.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseConnecting Phase = "connecting"
	PhaseListing    Phase = "listing"
	PhaseDecoding   Phase = "decoding"
	PhaseLoading    Phase = "loading"
	PhaseDone       Phase = "done"
	PhaseFailed     Phase = "failed"
)
