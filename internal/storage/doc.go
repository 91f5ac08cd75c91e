// Package storage lists and fetches Parquet snapshot objects.
//
// ObjectStore backends: S3Store on aws-sdk-go-v2, MinIOStore on minio-go for
// S3-compatible stores, DirStore for a local directory tree and MemoryStore for
// tests. Lister wraps any of them in a lazy, single-pass KeyIterator that
// requests one listing page at a time.
package storage
