package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3GetObjectAPI is the S3 operation the fetcher needs.
type S3GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Fetcher reads s3://bucket/key references.
type S3Fetcher struct {
	client S3GetObjectAPI
}

func NewS3FetcherWithClient(client S3GetObjectAPI) *S3Fetcher {
	return &S3Fetcher{client: client}
}

// NewS3Fetcher builds a client from the default AWS config. A non-empty
// endpoint switches to path-style addressing for S3-compatible stores.
func NewS3Fetcher(ctx context.Context, region, endpoint string) (*S3Fetcher, error) {
	opts := []func(*config.LoadOptions) error{}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Fetcher{client: client}, nil
}

func (f *S3Fetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	bucket, key, err := splitBucketKey(ref, "s3")
	if err != nil {
		return nil, err
	}
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		var missing *types.NotFound
		var noBucket *types.NoSuchBucket
		if errors.As(err, &noKey) || errors.As(err, &missing) || errors.As(err, &noBucket) {
			return nil, notFound(ref, err)
		}
		return nil, transient(ref, err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, transient(ref, err)
	}
	return data, nil
}
