package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/vvka-141/parquet2pg/pkg/parquet2pg"
)

// MinIOOptions configures the minio-go client.
type MinIOOptions struct {
	Endpoint        string // host:port, or a URL whose scheme selects TLS
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	PageSize        int
}

// MinIOStore implements parquet2pg.ObjectStore for S3-compatible stores via minio-go.
//
// minio-go hides continuation tokens behind a channel, so pages are emulated:
// each ListPage starts after the last key of the previous page and stops after
// PageSize keys.
type MinIOStore struct {
	client   *minio.Client
	pageSize int
}

func NewMinIOStore(opts MinIOOptions) (*MinIOStore, error) {
	endpoint, secure, err := splitEndpoint(opts.Endpoint)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure: secure,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = parquet2pg.DefaultListPageSize
	}
	return &MinIOStore{client: client, pageSize: pageSize}, nil
}

// splitEndpoint accepts "host:port" or "http(s)://host:port".
func splitEndpoint(endpoint string) (string, bool, error) {
	if endpoint == "" {
		return "", false, fmt.Errorf("MinIO endpoint is required: %w", parquet2pg.ErrInvalidConfig)
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return endpoint, true, nil
	}
	switch u.Scheme {
	case "http":
		return u.Host, false, nil
	case "https":
		return u.Host, true, nil
	default:
		return "", false, fmt.Errorf("unsupported MinIO endpoint scheme %q: %w", u.Scheme, parquet2pg.ErrInvalidConfig)
	}
}

func (s *MinIOStore) ListPage(ctx context.Context, bucket, prefix, token string) (parquet2pg.ObjectPage, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objects := s.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:     prefix,
		Recursive:  true,
		StartAfter: token,
		MaxKeys:    s.pageSize,
	})

	var page parquet2pg.ObjectPage
	for obj := range objects {
		if obj.Err != nil {
			return parquet2pg.ObjectPage{}, &parquet2pg.StorageAccessError{Op: "list", Bucket: bucket, Key: prefix, Err: obj.Err}
		}
		if len(page.Keys) == s.pageSize {
			// One more key exists beyond this page.
			page.NextToken = page.Keys[len(page.Keys)-1]
			break
		}
		page.Keys = append(page.Keys, obj.Key)
	}
	return page, nil
}

func (s *MinIOStore) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, &parquet2pg.StorageAccessError{Op: "get", Bucket: bucket, Key: key, Err: err}
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, &parquet2pg.StorageAccessError{Op: "get", Bucket: bucket, Key: key, Err: err}
	}
	return data, nil
}
