package parquet2pg

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Connector establishes a connection pool to the target database.
// Different implementations handle different authentication methods.
type Connector interface {
	// Connect establishes a connection pool to the database.
	// The returned pool must be closed by the caller when done.
	Connect(ctx context.Context) (*pgxpool.Pool, error)
}

// ConnectorFactory builds the Connector matching a ConnectionConfig's AuthMethod.
type ConnectorFactory func(*ConnectionConfig) (Connector, error)

// DBConn is the slice of a database connection the table loader needs.
// *pgxpool.Conn and *pgx.Conn both satisfy it.
type DBConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}
