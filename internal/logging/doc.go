// Package logging provides concrete implementations of the parquet2pg.Logger interface.
//
// ConsoleLogger is used by the CLI and the Lambda entry point; its output lands in
// stderr, which Lambda forwards to CloudWatch. NullLogger silences everything and is
// meant for tests.
package logging
