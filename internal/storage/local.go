package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/vvka-141/parquet2pg/pkg/parquet2pg"
)

// DirStore serves objects from the local filesystem. Each bucket is a
// directory under root and keys are slash-separated paths relative to it.
type DirStore struct {
	root     string
	pageSize int
}

// NewDirStore creates a store rooted at root. An empty root treats bucket names
// as directory paths.
func NewDirStore(root string, pageSize int) *DirStore {
	if pageSize <= 0 {
		pageSize = parquet2pg.DefaultListPageSize
	}
	return &DirStore{root: root, pageSize: pageSize}
}

func (d *DirStore) bucketDir(bucket string) string {
	return filepath.Join(d.root, filepath.FromSlash(bucket))
}

func (d *DirStore) ListPage(ctx context.Context, bucket, prefix, token string) (parquet2pg.ObjectPage, error) {
	dir := d.bucketDir(bucket)
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
		err = errNoSuchBucket
	}
	if err != nil {
		return parquet2pg.ObjectPage{}, &parquet2pg.StorageAccessError{Op: "list", Bucket: bucket, Key: prefix, Err: err}
	}

	var keys []string
	err = fs.WalkDir(os.DirFS(dir), ".", func(p string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !entry.IsDir() {
			keys = append(keys, path.Clean(p))
		}
		return nil
	})
	if err != nil {
		return parquet2pg.ObjectPage{}, &parquet2pg.StorageAccessError{Op: "list", Bucket: bucket, Key: prefix, Err: err}
	}
	return paginate(keys, prefix, token, d.pageSize), nil
}

func (d *DirStore) GetObject(_ context.Context, bucket, key string) ([]byte, error) {
	if !fs.ValidPath(key) {
		return nil, &parquet2pg.StorageAccessError{Op: "get", Bucket: bucket, Key: key, Err: errNoSuchKey}
	}
	data, err := fs.ReadFile(os.DirFS(d.bucketDir(bucket)), key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = errNoSuchKey
		}
		return nil, &parquet2pg.StorageAccessError{Op: "get", Bucket: bucket, Key: key, Err: err}
	}
	return data, nil
}
