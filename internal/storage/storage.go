// Package storage defines the Object Store Gateway used for image bytes.
// Two implementations are provided: S3Storage talks to AWS S3 through
// aws-sdk-go-v2 and MinioStorage works with any S3-compatible provider.
package storage

import (
	"context"
	"errors"
	"net/url"
)

var (
	// ErrWrite wraps failures to put an object.
	ErrWrite = errors.New("storage: write failed")
	// ErrSign wraps failures to issue a signed read URL.
	ErrSign = errors.New("storage: sign failed")
	// ErrDelete wraps failures to remove an object.
	ErrDelete = errors.New("storage: delete failed")
)

// PutResult is the raw outcome of a single object upload.
type PutResult struct {
	Key       string `json:"key"`
	ETag      string `json:"etag,omitempty"`
	VersionID string `json:"versionId,omitempty"`
}

// Storage is the interface for uploading, signing and deleting objects.
type Storage interface {
	// Put builds a unique key for originalName, uploads data under it and
	// returns the key with the provider's response metadata.
	Put(ctx context.Context, data []byte, contentType, originalName string) (PutResult, error)
	// SignedURL issues a time-limited read URL for key, reduced to its base path.
	SignedURL(ctx context.Context, key string) (string, error)
	// Delete removes the object identified by key.
	Delete(ctx context.Context, key string) error
}

// stripQuery drops the query string and fragment from a signed URL.
func stripQuery(u *url.URL) string {
	base := *u
	base.RawQuery = ""
	base.ForceQuery = false
	base.Fragment = ""
	base.RawFragment = ""
	return base.String()
}
