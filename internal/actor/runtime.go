// Package actor implements single-writer entity actors on top of the mailbox
// dispatcher. Every actor owns a Cell persisted through a StateStore.
package actor

import (
	"context"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/sma-course-api/pkg/errors"
	"github.com/noah-isme/sma-course-api/pkg/mailbox"
)

// Partition names of persisted actor state.
const (
	KindStudent         = "student"
	KindClass           = "class"
	KindGrade           = "grade"
	KindPerformance     = "performance"
	KindUser            = "user"
	KindNotification    = "notification"
	KindStudentRegistry = "studentRegistry"
	KindClassRegistry   = "classRegistry"
	KindClassCatalog    = "classCatalog"
)

// RegistryKey addresses singleton registries.
const RegistryKey = "0"

// Config tunes the runtime.
type Config struct {
	IdleTimeout time.Duration
	Logger      *zap.Logger
	Observer    mailbox.Observer
}

// Runtime hands out actor references sharing one dispatcher and store.
type Runtime struct {
	dispatcher *mailbox.Dispatcher
	store      StateStore
	logger     *zap.Logger
}

// NewRuntime constructs a Runtime over store.
func NewRuntime(store StateStore, cfg Config) *Runtime {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Runtime{
		dispatcher: mailbox.New(mailbox.Config{
			IdleTimeout: cfg.IdleTimeout,
			Logger:      cfg.Logger.Named("mailbox"),
			Observer:    cfg.Observer,
		}),
		store:  store,
		logger: cfg.Logger,
	}
}

// Active reports the number of live activations.
func (r *Runtime) Active() int {
	return r.dispatcher.Active()
}

// Close drains queued operations and stops accepting new ones.
func (r *Runtime) Close(ctx context.Context) error {
	return r.dispatcher.Close(ctx)
}

// call runs fn inside the turn of kind/key with that activation's cell.
func call[T, R any](ctx context.Context, r *Runtime, kind, key string, fn func(ctx context.Context, cell *Cell[T]) (R, error)) (R, error) {
	results := make(chan R, 1)
	err := r.dispatcher.Do(ctx, mailbox.Address{Kind: kind, ID: key}, func(ctx context.Context, act *mailbox.Activation) error {
		cell, ok := act.State.(*Cell[T])
		if !ok {
			cell = NewCell[T](r.store, kind, key)
			act.State = cell
		}
		out, err := fn(ctx, cell)
		if err != nil {
			return err
		}
		results <- out
		return nil
	})
	if err != nil {
		var zero R
		if appErrors.Is(err, appErrors.ErrPersistence) {
			r.logger.Error("actor state not persisted", zap.String("kind", kind), zap.String("key", key), zap.Error(err))
		}
		return zero, translate(err)
	}
	return <-results, nil
}

// exec is call for operations without a result.
func exec[T any](ctx context.Context, r *Runtime, kind, key string, fn func(ctx context.Context, cell *Cell[T]) error) error {
	_, err := call(ctx, r, kind, key, func(ctx context.Context, cell *Cell[T]) (struct{}, error) {
		return struct{}{}, fn(ctx, cell)
	})
	return err
}

func translate(err error) error {
	if err == mailbox.ErrClosed {
		return appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "actor runtime is shutting down")
	}
	return err
}
