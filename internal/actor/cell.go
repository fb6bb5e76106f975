package actor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	appErrors "github.com/noah-isme/sma-course-api/pkg/errors"
)

// StateStore persists opaque actor payloads under a partition and key.
// ReadState returns appErrors.ErrStateNotFound when nothing was stored.
type StateStore interface {
	ReadState(ctx context.Context, partition, key string) ([]byte, error)
	WriteState(ctx context.Context, partition, key string, payload []byte) error
	ClearState(ctx context.Context, partition, key string) error
}

// Cell is the durable slot behind one actor. It loads on first use and
// writes back explicitly. A Cell is owned by a single activation and is not
// safe for concurrent use.
type Cell[T any] struct {
	store     StateStore
	partition string
	key       string

	loaded bool
	exists bool
	value  T
}

// NewCell binds a cell to partition/key on store.
func NewCell[T any](store StateStore, partition, key string) *Cell[T] {
	return &Cell[T]{store: store, partition: partition, key: key}
}

// Load returns the current value, reading the store on first use. A missing
// record yields the zero value.
func (c *Cell[T]) Load(ctx context.Context) (T, error) {
	if c.loaded {
		return c.value, nil
	}
	var value T
	payload, err := c.store.ReadState(ctx, c.partition, c.key)
	switch {
	case errors.Is(err, appErrors.ErrStateNotFound):
		c.exists = false
	case err != nil:
		return value, c.persistenceError("read", err)
	default:
		if err := json.Unmarshal(payload, &value); err != nil {
			return value, c.persistenceError("decode", err)
		}
		c.exists = true
	}
	c.value = value
	c.loaded = true
	return c.value, nil
}

// Exists reports whether a record is stored for this cell.
func (c *Cell[T]) Exists(ctx context.Context) (bool, error) {
	if _, err := c.Load(ctx); err != nil {
		return false, err
	}
	return c.exists, nil
}

// Write persists value. On failure the cell forgets what it had loaded so
// the next operation re-reads durable state.
func (c *Cell[T]) Write(ctx context.Context, value T) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return c.persistenceError("encode", err)
	}
	if err := c.store.WriteState(ctx, c.partition, c.key, payload); err != nil {
		c.reset()
		return c.persistenceError("write", err)
	}
	c.value = value
	c.exists = true
	c.loaded = true
	return nil
}

// Clear removes the stored record.
func (c *Cell[T]) Clear(ctx context.Context) error {
	if err := c.store.ClearState(ctx, c.partition, c.key); err != nil {
		c.reset()
		return c.persistenceError("clear", err)
	}
	var zero T
	c.value = zero
	c.exists = false
	c.loaded = true
	return nil
}

func (c *Cell[T]) reset() {
	var zero T
	c.value = zero
	c.exists = false
	c.loaded = false
}

func (c *Cell[T]) persistenceError(op string, err error) error {
	return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status,
		fmt.Sprintf("%s %s/%s", op, c.partition, c.key))
}
