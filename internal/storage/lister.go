package storage

import (
	"context"
	"errors"

	"github.com/vvka-141/parquet2pg/pkg/parquet2pg"
)

// Lister enumerates .parquet keys under a prefix.
type Lister struct {
	store parquet2pg.ObjectStore
}

func NewLister(store parquet2pg.ObjectStore) *Lister {
	if store == nil {
		panic("store cannot be nil")
	}
	return &Lister{store: store}
}

// List returns an iterator over the .parquet objects under prefix. No request
// is made until the first call to Next.
func (l *Lister) List(bucket, prefix string) *KeyIterator {
	return &KeyIterator{store: l.store, bucket: bucket, prefix: prefix}
}

// KeyIterator is a lazy, finite, single-pass sequence of object references.
//
//	it := lister.List(bucket, prefix)
//	for it.Next(ctx) {
//	    ref := it.Object()
//	}
//	if err := it.Err(); err != nil { ... }
//
// Not safe for concurrent use.
type KeyIterator struct {
	store  parquet2pg.ObjectStore
	bucket string
	prefix string

	page      []string
	pos       int
	nextToken string
	exhausted bool
	pages     int

	current parquet2pg.ObjectRef
	err     error
}

// Next advances to the next .parquet key, fetching another page only when the
// current one is used up. It returns false at the end of the listing or on error.
func (it *KeyIterator) Next(ctx context.Context) bool {
	for it.err == nil {
		for it.pos < len(it.page) {
			key := it.page[it.pos]
			it.pos++
			if parquet2pg.IsParquetKey(key) {
				it.current = parquet2pg.ObjectRef{Bucket: it.bucket, Key: key}
				return true
			}
		}

		if it.exhausted {
			return false
		}
		it.fetch(ctx)
	}
	return false
}

func (it *KeyIterator) fetch(ctx context.Context) {
	page, err := it.store.ListPage(ctx, it.bucket, it.prefix, it.nextToken)
	if err != nil {
		var storageErr *parquet2pg.StorageAccessError
		if !errors.As(err, &storageErr) {
			err = &parquet2pg.StorageAccessError{Op: "list", Bucket: it.bucket, Key: it.prefix, Err: err}
		}
		it.err = err
		return
	}

	it.pages++
	it.page, it.pos = page.Keys, 0
	it.nextToken = page.NextToken
	it.exhausted = page.NextToken == ""
}

// Object returns the current reference. Valid only after Next returned true.
func (it *KeyIterator) Object() parquet2pg.ObjectRef {
	return it.current
}

// Err returns the listing failure, if any, as a *parquet2pg.StorageAccessError.
func (it *KeyIterator) Err() error {
	return it.err
}

// PagesFetched reports how many listing pages have been requested so far.
func (it *KeyIterator) PagesFetched() int {
	return it.pages
}
