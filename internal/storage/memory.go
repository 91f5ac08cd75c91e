package storage

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/vvka-141/parquet2pg/pkg/parquet2pg"
)

var (
	errNoSuchBucket = errors.New("bucket does not exist")
	errNoSuchKey    = errors.New("object does not exist")
)

// MemoryStore is an in-memory ObjectStore with S3 listing semantics: keys are
// returned in lexical order, pages hold at most pageSize keys and a missing
// bucket is an error. Safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	buckets  map[string]map[string][]byte
	pageSize int
}

// NewMemoryStore creates an empty store. pageSize <= 0 uses the S3 default of 1000.
func NewMemoryStore(pageSize int) *MemoryStore {
	if pageSize <= 0 {
		pageSize = parquet2pg.DefaultListPageSize
	}
	return &MemoryStore{buckets: make(map[string]map[string][]byte), pageSize: pageSize}
}

// CreateBucket adds an empty bucket. Existing buckets are left untouched.
func (m *MemoryStore) CreateBucket(bucket string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.buckets[bucket]; !ok {
		m.buckets[bucket] = make(map[string][]byte)
	}
}

// Put stores data under bucket/key, creating the bucket if needed.
func (m *MemoryStore) Put(bucket, key string, data []byte) {
	m.CreateBucket(bucket)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buckets[bucket][key] = data
}

func (m *MemoryStore) ListPage(_ context.Context, bucket, prefix, token string) (parquet2pg.ObjectPage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	objects, ok := m.buckets[bucket]
	if !ok {
		return parquet2pg.ObjectPage{}, &parquet2pg.StorageAccessError{Op: "list", Bucket: bucket, Key: prefix, Err: errNoSuchBucket}
	}
	keys := make([]string, 0, len(objects))
	for k := range objects {
		keys = append(keys, k)
	}
	return paginate(keys, prefix, token, m.pageSize), nil
}

func (m *MemoryStore) GetObject(_ context.Context, bucket, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	objects, ok := m.buckets[bucket]
	if !ok {
		return nil, &parquet2pg.StorageAccessError{Op: "get", Bucket: bucket, Key: key, Err: errNoSuchBucket}
	}
	data, ok := objects[key]
	if !ok {
		return nil, &parquet2pg.StorageAccessError{Op: "get", Bucket: bucket, Key: key, Err: errNoSuchKey}
	}
	return append([]byte(nil), data...), nil
}

// paginate returns the page of keys under prefix that sort after token. The
// last key of a full page is the next token.
func paginate(keys []string, prefix, token string, pageSize int) parquet2pg.ObjectPage {
	sort.Strings(keys)
	start := sort.SearchStrings(keys, token)
	if start < len(keys) && keys[start] == token {
		start++
	}

	var page parquet2pg.ObjectPage
	for _, k := range keys[start:] {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if len(page.Keys) == pageSize {
			page.NextToken = page.Keys[len(page.Keys)-1]
			break
		}
		page.Keys = append(page.Keys, k)
	}
	return page
}
