package repository

import (
	"context"
	"strings"
	"sync"

	appErrors "github.com/noah-isme/sma-course-api/pkg/errors"
)

// MemoryStateRepository keeps actor state in process memory. It is the
// default for development and the backend used by service tests.
type MemoryStateRepository struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewMemoryStateRepository constructs an empty in-memory store.
func NewMemoryStateRepository() *MemoryStateRepository {
	return &MemoryStateRepository{items: make(map[string][]byte)}
}

func memoryKey(partition, key string) string {
	return partition + "/" + key
}

// ReadState returns a copy of the stored payload.
func (r *MemoryStateRepository) ReadState(_ context.Context, partition, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	payload, ok := r.items[memoryKey(partition, key)]
	if !ok {
		return nil, appErrors.ErrStateNotFound
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, nil
}

// WriteState stores a copy of payload.
func (r *MemoryStateRepository) WriteState(_ context.Context, partition, key string, payload []byte) error {
	stored := make([]byte, len(payload))
	copy(stored, payload)
	r.mu.Lock()
	r.items[memoryKey(partition, key)] = stored
	r.mu.Unlock()
	return nil
}

// ClearState removes the payload if present.
func (r *MemoryStateRepository) ClearState(_ context.Context, partition, key string) error {
	r.mu.Lock()
	delete(r.items, memoryKey(partition, key))
	r.mu.Unlock()
	return nil
}

// CountByPartition reports how many records each partition holds.
func (r *MemoryStateRepository) CountByPartition(_ context.Context) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]int)
	for key := range r.items {
		partition, _, _ := strings.Cut(key, "/")
		out[partition]++
	}
	return out, nil
}

// Len reports how many records are stored.
func (r *MemoryStateRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
