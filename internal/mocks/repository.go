// Package mocks provides in-memory fakes of the image repository and object
// storage for tests.
package mocks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/imagepost/service/internal/image"
)

var _ image.Repository = (*MockRepository)(nil)

// MockRepository is an in-memory image.Repository.
type MockRepository struct {
	mu      sync.Mutex
	records map[string]*image.Record
	nextID  int

	// CreateErr, when set, is returned by Create.
	CreateErr error
	// UpdateCalls counts UpdateImageURL invocations.
	UpdateCalls int
}

// NewMockRepository creates an empty repository.
func NewMockRepository() *MockRepository {
	return &MockRepository{records: make(map[string]*image.Record)}
}

// Create stores a new record.
func (m *MockRepository) Create(ctx context.Context, keys []string) (*image.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateErr != nil {
		return nil, m.CreateErr
	}

	m.nextID++
	now := time.Now().UTC()
	rec := &image.Record{
		ID:        fmt.Sprintf("rec-%d", m.nextID),
		Images:    make([]image.Image, 0, len(keys)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, k := range keys {
		rec.Images = append(rec.Images, image.Image{Key: k})
	}
	m.records[rec.ID] = rec
	return clone(rec), nil
}

// FindByID returns a copy of the stored record.
func (m *MockRepository) FindByID(ctx context.Context, id string) (*image.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, image.ErrNotFound
	}
	return clone(rec), nil
}

// UpdateImageURL sets the cached url of one image.
func (m *MockRepository) UpdateImageURL(ctx context.Context, id, key, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UpdateCalls++
	rec, ok := m.records[id]
	if !ok {
		return image.ErrNotFound
	}
	for i := range rec.Images {
		if rec.Images[i].Key == key {
			rec.Images[i].URL = url
			rec.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return image.ErrNotFound
}

// DeleteByID removes a record.
func (m *MockRepository) DeleteByID(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[id]; !ok {
		return image.ErrNotFound
	}
	delete(m.records, id)
	return nil
}

// Put stores rec as-is, replacing any record with the same id.
func (m *MockRepository) Put(rec *image.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = clone(rec)
}

// Len returns the number of stored records.
func (m *MockRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// Updates returns the number of UpdateImageURL calls so far.
func (m *MockRepository) Updates() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.UpdateCalls
}

// ErrMock is a generic failure for injection.
var ErrMock = errors.New("mock failure")

func clone(rec *image.Record) *image.Record {
	c := *rec
	c.Images = append([]image.Image(nil), rec.Images...)
	return &c
}
