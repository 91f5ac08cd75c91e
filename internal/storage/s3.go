package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/vvka-141/parquet2pg/pkg/parquet2pg"
)

// S3API is the subset of *s3.Client used by S3Store.
type S3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Options configures the S3 client.
type S3Options struct {
	Region          string
	Endpoint        string // LocalStack, MinIO gateway or another S3-compatible endpoint
	UsePathStyle    bool
	AccessKeyID     string // optional; the default credential chain is used otherwise
	SecretAccessKey string
}

// NewS3Client builds an *s3.Client from the default AWS configuration chain.
func NewS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
	}), nil
}

// S3Store implements parquet2pg.ObjectStore with ListObjectsV2 and GetObject.
type S3Store struct {
	client   S3API
	pageSize int32
}

// NewS3Store wraps client. pageSize <= 0 lets the service choose (1000 keys).
func NewS3Store(client S3API, pageSize int32) *S3Store {
	if client == nil {
		panic("client cannot be nil")
	}
	return &S3Store{client: client, pageSize: pageSize}
}

func (s *S3Store) ListPage(ctx context.Context, bucket, prefix, token string) (parquet2pg.ObjectPage, error) {
	input := &s3.ListObjectsV2Input{Bucket: aws.String(bucket)}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}
	if token != "" {
		input.ContinuationToken = aws.String(token)
	}
	if s.pageSize > 0 {
		input.MaxKeys = aws.Int32(s.pageSize)
	}

	out, err := s.client.ListObjectsV2(ctx, input)
	if err != nil {
		return parquet2pg.ObjectPage{}, &parquet2pg.StorageAccessError{Op: "list", Bucket: bucket, Key: prefix, Err: describeAPIError(err)}
	}

	page := parquet2pg.ObjectPage{Keys: make([]string, 0, len(out.Contents))}
	for _, obj := range out.Contents {
		page.Keys = append(page.Keys, aws.ToString(obj.Key))
	}
	if aws.ToBool(out.IsTruncated) {
		page.NextToken = aws.ToString(out.NextContinuationToken)
	}
	return page, nil
}

func (s *S3Store) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, &parquet2pg.StorageAccessError{Op: "get", Bucket: bucket, Key: key, Err: describeAPIError(err)}
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, &parquet2pg.StorageAccessError{Op: "get", Bucket: bucket, Key: key, Err: fmt.Errorf("read body: %w", err)}
	}
	return data, nil
}

// describeAPIError prefixes service errors with their error code.
func describeAPIError(err error) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.ErrorCode() {
	case "NoSuchBucket":
		return fmt.Errorf("bucket does not exist: %w", err)
	case "NoSuchKey":
		return fmt.Errorf("object does not exist: %w", err)
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return fmt.Errorf("access denied (check the execution role or AWS credentials): %w", err)
	default:
		return err
	}
}
