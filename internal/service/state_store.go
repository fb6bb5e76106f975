package service

import (
	"context"
	"time"

	"github.com/noah-isme/sma-course-api/internal/actor"
)

// InstrumentedStateStore times every persistence call of the wrapped store.
type InstrumentedStateStore struct {
	next    actor.StateStore
	backend string
	metrics *MetricsService
}

// NewInstrumentedStateStore wraps store; backend labels the metrics.
func NewInstrumentedStateStore(store actor.StateStore, backend string, metrics *MetricsService) *InstrumentedStateStore {
	return &InstrumentedStateStore{next: store, backend: backend, metrics: metrics}
}

// ReadState implements actor.StateStore.
func (s *InstrumentedStateStore) ReadState(ctx context.Context, partition, key string) ([]byte, error) {
	start := time.Now()
	payload, err := s.next.ReadState(ctx, partition, key)
	s.metrics.ObserveStateOperation(s.backend, "read", time.Since(start))
	return payload, err
}

// WriteState implements actor.StateStore.
func (s *InstrumentedStateStore) WriteState(ctx context.Context, partition, key string, payload []byte) error {
	start := time.Now()
	err := s.next.WriteState(ctx, partition, key, payload)
	s.metrics.ObserveStateOperation(s.backend, "write", time.Since(start))
	return err
}

// ClearState implements actor.StateStore.
func (s *InstrumentedStateStore) ClearState(ctx context.Context, partition, key string) error {
	start := time.Now()
	err := s.next.ClearState(ctx, partition, key)
	s.metrics.ObserveStateOperation(s.backend, "clear", time.Since(start))
	return err
}
