// Package mailbox runs operations one at a time per address.
//
// Every address (an entity kind plus an identifier) gets its own goroutine
// while it has work or was used within the idle window. Operations sent to
// the same address execute in arrival order and never overlap; operations on
// different addresses run concurrently.
package mailbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrClosed is returned once the dispatcher stopped accepting work.
var ErrClosed = errors.New("mailbox: dispatcher closed")

// Address identifies a single-writer owner.
type Address struct {
	Kind string
	ID   string
}

// String renders the address as kind/id.
func (a Address) String() string {
	return a.Kind + "/" + a.ID
}

// Activation is the in-memory incarnation of an address. State survives
// between operations until the activation goes idle or is discarded.
type Activation struct {
	Address Address
	State   interface{}
}

// Operation is executed inside an activation's turn.
type Operation func(ctx context.Context, act *Activation) error

// Observer receives lifecycle and timing callbacks. Implementations must be
// safe for concurrent use.
type Observer interface {
	Activated(kind string)
	Deactivated(kind string)
	Observed(kind string, duration time.Duration, err error)
}

// Config tunes dispatcher behaviour.
type Config struct {
	IdleTimeout time.Duration
	Logger      *zap.Logger
	Observer    Observer
}

// Dispatcher routes operations to per-address goroutines.
type Dispatcher struct {
	idle     time.Duration
	logger   *zap.Logger
	observer Observer

	mu     sync.Mutex
	boxes  map[Address]*box
	closed bool
	stop   chan struct{}
	wg     sync.WaitGroup
}

type box struct {
	addr  Address
	queue []*call
	wake  chan struct{}
	act   *Activation
}

type call struct {
	ctx  context.Context
	op   Operation
	done chan error
}

// New builds a dispatcher.
func New(cfg Config) *Dispatcher {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 2 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Dispatcher{
		idle:     cfg.IdleTimeout,
		logger:   cfg.Logger,
		observer: cfg.Observer,
		boxes:    make(map[Address]*box),
		stop:     make(chan struct{}),
	}
}

// Do queues op for addr and waits for its result. When ctx ends first the
// caller gets ctx.Err() but the operation still runs to completion.
func (d *Dispatcher) Do(ctx context.Context, addr Address, op Operation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c := &call{ctx: context.WithoutCancel(ctx), op: op, done: make(chan error, 1)}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	b, ok := d.boxes[addr]
	if !ok {
		b = &box{addr: addr, wake: make(chan struct{}, 1), act: &Activation{Address: addr}}
		d.boxes[addr] = b
		d.wg.Add(1)
		go d.loop(b)
		if d.observer != nil {
			d.observer.Activated(addr.Kind)
		}
		d.logger.Debug("activation started", zap.String("address", addr.String()))
	}
	b.queue = append(b.queue, c)
	d.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}

	select {
	case err := <-c.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Active reports the number of live activations.
func (d *Dispatcher) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.boxes)
}

// Close stops accepting work and waits until queued operations finish or
// ctx ends.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.stop)
	}
	d.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) loop(b *box) {
	defer d.wg.Done()
	timer := time.NewTimer(d.idle)
	defer timer.Stop()

	for {
		d.mu.Lock()
		if len(b.queue) > 0 {
			c := b.queue[0]
			b.queue[0] = nil
			b.queue = b.queue[1:]
			d.mu.Unlock()

			c.done <- d.run(b, c)
			timer.Reset(d.idle)
			continue
		}
		d.mu.Unlock()

		select {
		case <-b.wake:
		case <-timer.C:
			if d.retire(b) {
				return
			}
			timer.Reset(d.idle)
		case <-d.stop:
			if d.retire(b) {
				return
			}
			// work raced in before close; drain it, then stop.
			select {
			case <-b.wake:
			default:
			}
		}
	}
}

// retire removes an idle box. It reports false when work arrived meanwhile.
func (d *Dispatcher) retire(b *box) bool {
	d.mu.Lock()
	if len(b.queue) > 0 {
		d.mu.Unlock()
		return false
	}
	delete(d.boxes, b.addr)
	d.mu.Unlock()

	if d.observer != nil {
		d.observer.Deactivated(b.addr.Kind)
	}
	d.logger.Debug("activation retired", zap.String("address", b.addr.String()))
	return true
}

func (d *Dispatcher) run(b *box, c *call) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mailbox: operation on %s panicked: %v", b.addr, r)
			// state may be half-mutated; force a reload on the next turn
			b.act.State = nil
			d.logger.Error("operation panicked", zap.String("address", b.addr.String()), zap.Any("panic", r))
		}
		if d.observer != nil {
			d.observer.Observed(b.addr.Kind, time.Since(start), err)
		}
	}()
	return c.op(c.ctx, b.act)
}
