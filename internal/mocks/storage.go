package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/imagepost/service/internal/storage"
)

var _ storage.Storage = (*MockStorage)(nil)

// MockStorage is an in-memory storage.Storage that counts calls and can be
// told to fail for specific files or keys.
type MockStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	seq     int

	PutCalls    int
	SignCalls   int
	DeleteCalls int

	// FailPut lists original file names whose Put fails.
	FailPut map[string]bool
	// FailSign and FailDelete list keys whose SignedURL/Delete fails.
	FailSign   map[string]bool
	FailDelete map[string]bool
}

// NewMockStorage creates an empty store.
func NewMockStorage() *MockStorage {
	return &MockStorage{
		objects:    make(map[string][]byte),
		FailPut:    make(map[string]bool),
		FailSign:   make(map[string]bool),
		FailDelete: make(map[string]bool),
	}
}

// Put stores data under a sequential key.
func (m *MockStorage) Put(ctx context.Context, data []byte, contentType, originalName string) (storage.PutResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PutCalls++
	if m.FailPut[originalName] {
		return storage.PutResult{}, fmt.Errorf("%w: %s", storage.ErrWrite, originalName)
	}
	m.seq++
	key := fmt.Sprintf("uploads/%d-%s", m.seq, originalName)
	m.objects[key] = append([]byte(nil), data...)
	return storage.PutResult{Key: key, ETag: fmt.Sprintf("etag-%d", m.seq)}, nil
}

// SignedURL returns a deterministic URL for key.
func (m *MockStorage) SignedURL(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SignCalls++
	if m.FailSign[key] {
		return "", fmt.Errorf("%w: %s", storage.ErrSign, key)
	}
	return "https://bucket.example.com/" + key, nil
}

// Delete removes key.
func (m *MockStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DeleteCalls++
	if m.FailDelete[key] {
		return fmt.Errorf("%w: %s", storage.ErrDelete, key)
	}
	delete(m.objects, key)
	return nil
}

// Has reports whether key is stored.
func (m *MockStorage) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

// Object returns the bytes stored under key.
func (m *MockStorage) Object(key string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.objects[key]
}

// Calls returns the put, sign and delete call counts.
func (m *MockStorage) Calls() (put, sign, del int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.PutCalls, m.SignCalls, m.DeleteCalls
}
