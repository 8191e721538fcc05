package image

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("image record not found")

// Repository persists image records.
type Repository interface {
	// Create stores a new record with one image per key, URLs empty.
	Create(ctx context.Context, keys []string) (*Record, error)
	// FindByID returns the record or ErrNotFound.
	FindByID(ctx context.Context, id string) (*Record, error)
	// UpdateImageURL sets the cached URL of the image with key inside record id.
	UpdateImageURL(ctx context.Context, id, key, url string) error
	// DeleteByID removes the record or returns ErrNotFound.
	DeleteByID(ctx context.Context, id string) error
}
