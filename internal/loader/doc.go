// Package loader writes decoded batches into PostgreSQL tables.
//
// Every load replaces the destination table: it is dropped, recreated from the
// batch's column types and filled with multi-row INSERT statements. Loads are
// not wrapped in a transaction, so a failed insert leaves the rows of earlier
// statements in place.
package loader
