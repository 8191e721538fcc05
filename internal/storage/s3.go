package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var _ Storage = (*S3Storage)(nil)

// S3Options configures an S3Storage. Empty credentials fall back to the SDK's
// default provider chain; a non-empty Endpoint switches to path-style
// addressing against that endpoint.
type S3Options struct {
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Endpoint  string
	KeyPrefix string
	Expiry    time.Duration
}

// S3Storage implements Storage on AWS S3.
type S3Storage struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	prefix    string
	expiry    time.Duration
	now       func() time.Time
}

// NewS3Storage loads the AWS configuration and returns a ready S3Storage.
func NewS3Storage(ctx context.Context, opts S3Options) (*S3Storage, error) {
	loaders := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loaders = append(loaders, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3Storage(client, opts), nil
}

func newS3Storage(client *s3.Client, opts S3Options) *S3Storage {
	return &S3Storage{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    opts.Bucket,
		prefix:    opts.KeyPrefix,
		expiry:    opts.Expiry,
		now:       time.Now,
	}
}

// Put uploads data under a freshly generated key.
func (s *S3Storage) Put(ctx context.Context, data []byte, contentType, originalName string) (PutResult, error) {
	key := ObjectKey(s.prefix, originalName, s.now())
	out, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return PutResult{}, fmt.Errorf("%w: put object %q: %w", ErrWrite, key, err)
	}
	return PutResult{
		Key:       key,
		ETag:      aws.ToString(out.ETag),
		VersionID: aws.ToString(out.VersionId),
	}, nil
}

// SignedURL presigns a GetObject request and returns its base path.
func (s *S3Storage) SignedURL(ctx context.Context, key string) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", fmt.Errorf("%w: presign %q: %w", ErrSign, key, err)
	}

	u, err := url.Parse(req.URL)
	if err != nil {
		return "", fmt.Errorf("%w: parse presigned url: %w", ErrSign, err)
	}
	return stripQuery(u), nil
}

// Delete removes the object at key.
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("%w: delete object %q: %w", ErrDelete, key, err)
	}
	return nil
}
