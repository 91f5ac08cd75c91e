package storage

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/vvka-141/parquet2pg/pkg/parquet2pg"
)

// mockObjectStore is a func-field ObjectStore.
type mockObjectStore struct {
	ListPageFunc  func(ctx context.Context, bucket, prefix, token string) (parquet2pg.ObjectPage, error)
	GetObjectFunc func(ctx context.Context, bucket, key string) ([]byte, error)
	listCalls     int
}

func (m *mockObjectStore) ListPage(ctx context.Context, bucket, prefix, token string) (parquet2pg.ObjectPage, error) {
	m.listCalls++
	if m.ListPageFunc != nil {
		return m.ListPageFunc(ctx, bucket, prefix, token)
	}
	return parquet2pg.ObjectPage{}, nil
}

func (m *mockObjectStore) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	if m.GetObjectFunc != nil {
		return m.GetObjectFunc(ctx, bucket, key)
	}
	return nil, errors.New("not found")
}

// fakeS3 serves a fixed, sorted key set through ListObjectsV2 with MaxKeys
// pagination and opaque continuation tokens.
type fakeS3 struct {
	keys    []string
	objects map[string]string
	listErr error
	getErr  error

	inputs []*s3.ListObjectsV2Input
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.inputs = append(f.inputs, in)
	if f.listErr != nil {
		return nil, f.listErr
	}

	var matching []string
	for _, k := range f.keys {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			matching = append(matching, k)
		}
	}

	start := 0
	if in.ContinuationToken != nil {
		for i, k := range matching {
			if "token:"+k == *in.ContinuationToken {
				start = i + 1
			}
		}
	}

	limit := 1000
	if in.MaxKeys != nil {
		limit = int(*in.MaxKeys)
	}
	end := start + limit
	if end > len(matching) {
		end = len(matching)
	}

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(matching))}
	for _, k := range matching[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	if end < len(matching) {
		out.NextContinuationToken = aws.String("token:" + matching[end-1])
	}
	return out, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	body, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("The specified key does not exist.")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}
