package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// compile-time check that MinioStorage satisfies the Storage interface.
var _ Storage = (*MinioStorage)(nil)

// MinioOptions configures a MinioStorage.
type MinioOptions struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	Region     string
	Bucket     string
	KeyPrefix  string
	UseSSL     bool
	PublicRead bool
	Expiry     time.Duration
}

// MinioStorage implements Storage using a MinIO (or any S3-compatible) backend.
type MinioStorage struct {
	client *minio.Client
	bucket string
	prefix string
	expiry time.Duration
	now    func() time.Time
}

// NewMinioStorage creates a MinIO client, ensures the bucket exists and, when
// opts.PublicRead is set, applies an anonymous-read policy so that stripped
// signed URLs stay resolvable.
func NewMinioStorage(ctx context.Context, opts MinioOptions, log *zap.Logger) (*MinioStorage, error) {
	s, err := newMinioStorage(opts)
	if err != nil {
		return nil, err
	}

	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: opts.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", s.bucket, err)
		}
		log.Info("storage: created bucket", zap.String("bucket", s.bucket))
	}

	if opts.PublicRead {
		if err := s.client.SetBucketPolicy(ctx, s.bucket, publicReadPolicy(s.bucket)); err != nil {
			return nil, fmt.Errorf("set bucket policy: %w", err)
		}
	}

	return s, nil
}

// newMinioStorage builds the client without touching the network.
func newMinioStorage(opts MinioOptions) (*MinioStorage, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &MinioStorage{
		client: client,
		bucket: opts.Bucket,
		prefix: opts.KeyPrefix,
		expiry: opts.Expiry,
		now:    time.Now,
	}, nil
}

// Put uploads data under a freshly generated key.
func (s *MinioStorage) Put(ctx context.Context, data []byte, contentType, originalName string) (PutResult, error) {
	key := ObjectKey(s.prefix, originalName, s.now())
	info, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return PutResult{}, fmt.Errorf("%w: put object %q: %w", ErrWrite, key, err)
	}
	return PutResult{Key: key, ETag: info.ETag, VersionID: info.VersionID}, nil
}

// SignedURL presigns a GET for key and returns it without the signature query.
func (s *MinioStorage) SignedURL(ctx context.Context, key string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("%w: presign %q: %w", ErrSign, key, err)
	}
	return stripQuery(u), nil
}

// Delete removes the object at key from the bucket.
func (s *MinioStorage) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("%w: remove object %q: %w", ErrDelete, key, err)
	}
	return nil
}

// publicReadPolicy returns an S3 bucket policy JSON that allows anonymous GET on all objects.
func publicReadPolicy(bucket string) string {
	policy := map[string]interface{}{
		"Version": "2012-10-17",
		"Statement": []map[string]interface{}{
			{
				"Effect":    "Allow",
				"Principal": "*",
				"Action":    "s3:GetObject",
				"Resource":  fmt.Sprintf("arn:aws:s3:::%s/*", bucket),
			},
		},
	}
	b, _ := json.Marshal(policy)
	return string(b)
}
