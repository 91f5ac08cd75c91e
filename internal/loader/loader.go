package loader

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/vvka-141/parquet2pg/internal/logging"
	"github.com/vvka-141/parquet2pg/pkg/parquet2pg"
)

// Loader replaces one table per call with the contents of a batch.
type Loader struct {
	batchSize int
	schema    string
	logger    parquet2pg.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithBatchSize caps the rows per INSERT statement. Values below 1 keep the default.
func WithBatchSize(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.batchSize = n
		}
	}
}

// WithSchema qualifies every table with the given schema.
func WithSchema(schema string) Option {
	return func(l *Loader) { l.schema = schema }
}

// WithLogger sets the logger used for per-statement progress.
func WithLogger(logger parquet2pg.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a Loader with the default batch size and no schema qualifier.
func New(opts ...Option) *Loader {
	l := &Loader{
		batchSize: parquet2pg.DefaultBatchSize,
		logger:    logging.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load drops and recreates table from the batch's columns, then inserts every
// row. It returns the number of rows inserted.
func (l *Loader) Load(ctx context.Context, conn parquet2pg.DBConn, table string, batch *parquet2pg.Batch) (int, error) {
	if err := batch.Validate(); err != nil {
		return 0, &parquet2pg.LoadError{Table: table, Stage: parquet2pg.StageValidate, Err: err}
	}

	ident := l.identifier(table)
	types := make([]string, len(batch.Columns))
	for i, c := range batch.Columns {
		types[i] = ColumnType(c)
	}

	if _, err := conn.Exec(ctx, "DROP TABLE IF EXISTS "+ident); err != nil {
		return 0, &parquet2pg.LoadError{Table: table, Stage: parquet2pg.StageDrop, Err: err}
	}
	if _, err := conn.Exec(ctx, CreateTableSQL(ident, batch.Columns, types)); err != nil {
		return 0, &parquet2pg.LoadError{Table: table, Stage: parquet2pg.StageCreate, Err: err}
	}
	l.logger.Verbose("Created table %s with %d columns", ident, len(batch.Columns))

	rows := batch.NumRows()
	if rows == 0 || len(batch.Columns) == 0 {
		return 0, nil
	}

	perStatement := RowsPerStatement(l.batchSize, len(batch.Columns))
	prefix := insertPrefix(ident, batch.Columns)
	inserted := 0
	for start := 0; start < rows; start += perStatement {
		end := min(start+perStatement, rows)
		sql, args, err := insertStatement(prefix, batch.Columns, types, start, end)
		if err != nil {
			return inserted, &parquet2pg.LoadError{Table: table, Stage: parquet2pg.StageInsert, Err: err}
		}
		tag, err := conn.Exec(ctx, sql, args...)
		if err != nil {
			return inserted, &parquet2pg.LoadError{Table: table, Stage: parquet2pg.StageInsert, Err: err}
		}
		inserted += int(tag.RowsAffected())
		l.logger.Verbose("Inserted rows %d-%d into %s", start+1, end, ident)
	}
	return inserted, nil
}

func (l *Loader) identifier(table string) string {
	if l.schema != "" {
		return pgx.Identifier{l.schema, table}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

// RowsPerStatement returns how many rows fit in one INSERT: at most batchSize,
// and never more bind parameters than PostgreSQL accepts.
func RowsPerStatement(batchSize, columns int) int {
	if batchSize < 1 {
		batchSize = parquet2pg.DefaultBatchSize
	}
	if columns < 1 {
		return batchSize
	}
	return max(1, min(batchSize, parquet2pg.MaxBindParameters/columns))
}

// CreateTableSQL renders the CREATE TABLE statement for an already quoted identifier.
func CreateTableSQL(ident string, columns []parquet2pg.Column, types []string) string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = pgx.Identifier{c.Name}.Sanitize() + " " + types[i]
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", ident, strings.Join(defs, ", "))
}

func insertPrefix(ident string, columns []parquet2pg.Column) string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = pgx.Identifier{c.Name}.Sanitize()
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES ", ident, strings.Join(names, ", "))
}

// insertStatement builds one multi-row INSERT for rows [start, end).
func insertStatement(prefix string, columns []parquet2pg.Column, types []string, start, end int) (string, []any, error) {
	ncols := len(columns)
	args := make([]any, 0, (end-start)*ncols)

	var sb strings.Builder
	sb.WriteString(prefix)
	for row := start; row < end; row++ {
		if row > start {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for col := range columns {
			if col > 0 {
				sb.WriteString(", ")
			}
			v, err := encodeValue(columns[col].Values[row], types[col])
			if err != nil {
				return "", nil, fmt.Errorf("column %q row %d: %w", columns[col].Name, row, err)
			}
			args = append(args, v)
			fmt.Fprintf(&sb, "$%d", len(args))
		}
		sb.WriteByte(')')
	}
	return sb.String(), args, nil
}
