package storage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 records requests and answers PUT/DELETE like a bucket endpoint.
type fakeS3 struct {
	mu       sync.Mutex
	requests []string
	fail     bool
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	f.mu.Unlock()

	if f.fail {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>denied</Message></Error>`))
		return
	}
	switch r.Method {
	case http.MethodPut:
		w.Header().Set("ETag", `"etag-1"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestS3(endpoint string) *S3Storage {
	client := s3.New(s3.Options{
		Region:           "us-east-1",
		Credentials:      credentials.NewStaticCredentialsProvider("AKID", "SECRET", ""),
		BaseEndpoint:     aws.String(endpoint),
		UsePathStyle:     true,
		RetryMaxAttempts: 1,
	})
	return newS3Storage(client, S3Options{
		Bucket:    "test-bucket",
		KeyPrefix: "uploads",
		Expiry:    15 * time.Minute,
	})
}

func TestS3Storage_SignedURLStripsSignature(t *testing.T) {
	client := s3.New(s3.Options{
		Region:      "us-east-1",
		Credentials: credentials.NewStaticCredentialsProvider("AKID", "SECRET", ""),
	})
	s := newS3Storage(client, S3Options{Bucket: "test-bucket", Expiry: time.Minute})

	u, err := s.SignedURL(context.Background(), "uploads/a.jpg")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(u, "https://"), u)
	assert.True(t, strings.HasSuffix(u, "/uploads/a.jpg"), u)
	assert.NotContains(t, u, "?")
	assert.NotContains(t, u, "X-Amz-Signature")
}

func TestS3Storage_PutAndDelete(t *testing.T) {
	fake := &fakeS3{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	s := newTestS3(srv.URL)

	res, err := s.Put(context.Background(), []byte("jpeg bytes"), "image/jpeg", "cat.jpg")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Key, "uploads/"), res.Key)
	assert.True(t, strings.HasSuffix(res.Key, "-cat.jpg"), res.Key)
	assert.Equal(t, `"etag-1"`, res.ETag)

	require.NoError(t, s.Delete(context.Background(), res.Key))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.requests, 2)
	assert.Equal(t, "PUT /test-bucket/"+res.Key, fake.requests[0])
	assert.Equal(t, "DELETE /test-bucket/"+res.Key, fake.requests[1])
}

func TestS3Storage_ErrorsAreClassified(t *testing.T) {
	srv := httptest.NewServer(&fakeS3{fail: true})
	defer srv.Close()

	s := newTestS3(srv.URL)

	_, err := s.Put(context.Background(), []byte("x"), "image/png", "x.png")
	assert.True(t, errors.Is(err, ErrWrite), err)

	err = s.Delete(context.Background(), "uploads/x.png")
	assert.True(t, errors.Is(err, ErrDelete), err)
}
