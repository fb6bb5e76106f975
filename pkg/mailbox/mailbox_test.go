package mailbox

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingObserver struct {
	activated   atomic.Int64
	deactivated atomic.Int64
	observed    atomic.Int64
}

func (o *countingObserver) Activated(string)   { o.activated.Add(1) }
func (o *countingObserver) Deactivated(string) { o.deactivated.Add(1) }
func (o *countingObserver) Observed(string, time.Duration, error) {
	o.observed.Add(1)
}

func queued(d *Dispatcher, addr Address) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if b, ok := d.boxes[addr]; ok {
		return len(b.queue)
	}
	return 0
}

func TestDispatcherSameAddressRunsInOrder(t *testing.T) {
	d := New(Config{IdleTimeout: time.Second})
	defer d.Close(context.Background()) //nolint:errcheck

	addr := Address{Kind: "student", ID: "s1"}
	release := make(chan struct{})
	started := make(chan struct{})
	var mu sync.Mutex
	var order []int
	var inFlight atomic.Int32
	var overlapped atomic.Bool

	record := func(idx int) Operation {
		return func(ctx context.Context, act *Activation) error {
			if inFlight.Add(1) != 1 {
				overlapped.Store(true)
			}
			defer inFlight.Add(-1)
			mu.Lock()
			order = append(order, idx)
			mu.Unlock()
			return nil
		}
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = d.Do(context.Background(), addr, func(ctx context.Context, act *Activation) error {
			close(started)
			<-release
			return record(0)(ctx, act)
		})
	}()
	<-started

	const n = 20
	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_ = d.Do(context.Background(), addr, record(idx))
		}(i)
		want := i
		require.Eventually(t, func() bool { return queued(d, addr) == want }, time.Second, time.Millisecond)
	}
	close(release)
	wg.Wait()

	assert.False(t, overlapped.Load())
	require.Len(t, order, n+1)
	for i := range order {
		assert.Equal(t, i, order[i])
	}
}

func TestDispatcherDifferentAddressesRunConcurrently(t *testing.T) {
	d := New(Config{IdleTimeout: time.Second})
	defer d.Close(context.Background()) //nolint:errcheck

	release := make(chan struct{})
	started := make(chan struct{}, 2)
	var wg sync.WaitGroup
	for _, id := range []string{"a", "b"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			err := d.Do(context.Background(), Address{Kind: "class", ID: id}, func(ctx context.Context, act *Activation) error {
				started <- struct{}{}
				<-release
				return nil
			})
			assert.NoError(t, err)
		}(id)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(2 * time.Second):
			t.Fatal("operations on different addresses did not overlap")
		}
	}
	close(release)
	wg.Wait()
}

func TestDispatcherKeepsActivationState(t *testing.T) {
	d := New(Config{IdleTimeout: time.Second})
	defer d.Close(context.Background()) //nolint:errcheck

	addr := Address{Kind: "grade", ID: "g1"}
	for i := 1; i <= 3; i++ {
		require.NoError(t, d.Do(context.Background(), addr, func(ctx context.Context, act *Activation) error {
			n, _ := act.State.(int)
			act.State = n + 1
			return nil
		}))
	}
	var got int
	require.NoError(t, d.Do(context.Background(), addr, func(ctx context.Context, act *Activation) error {
		got = act.State.(int)
		return nil
	}))
	assert.Equal(t, 3, got)
}

func TestDispatcherAbandonedCallStillCompletes(t *testing.T) {
	d := New(Config{IdleTimeout: time.Second})
	defer d.Close(context.Background()) //nolint:errcheck

	addr := Address{Kind: "class", ID: "c1"}
	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	var finished atomic.Bool

	errCh := make(chan error, 1)
	go func() {
		errCh <- d.Do(ctx, addr, func(opCtx context.Context, act *Activation) error {
			<-release
			assert.NoError(t, opCtx.Err())
			finished.Store(true)
			return nil
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
	close(release)

	// the next turn on the same address observes the finished effect
	require.NoError(t, d.Do(context.Background(), addr, func(ctx context.Context, act *Activation) error {
		return nil
	}))
	assert.True(t, finished.Load())
}

func TestDispatcherRecoversPanicAndDropsState(t *testing.T) {
	d := New(Config{IdleTimeout: time.Second})
	defer d.Close(context.Background()) //nolint:errcheck

	addr := Address{Kind: "user", ID: "u1"}
	require.NoError(t, d.Do(context.Background(), addr, func(ctx context.Context, act *Activation) error {
		act.State = "loaded"
		return nil
	}))
	err := d.Do(context.Background(), addr, func(ctx context.Context, act *Activation) error {
		panic("boom")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	require.NoError(t, d.Do(context.Background(), addr, func(ctx context.Context, act *Activation) error {
		assert.Nil(t, act.State)
		return nil
	}))
}

func TestDispatcherRetiresIdleActivations(t *testing.T) {
	obs := &countingObserver{}
	d := New(Config{IdleTimeout: 20 * time.Millisecond, Observer: obs})
	defer d.Close(context.Background()) //nolint:errcheck

	addr := Address{Kind: "student", ID: "idle"}
	require.NoError(t, d.Do(context.Background(), addr, func(ctx context.Context, act *Activation) error {
		act.State = 42
		return nil
	}))
	assert.Equal(t, 1, d.Active())

	require.Eventually(t, func() bool { return d.Active() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(1), obs.deactivated.Load())

	require.NoError(t, d.Do(context.Background(), addr, func(ctx context.Context, act *Activation) error {
		assert.Nil(t, act.State)
		return nil
	}))
	assert.Equal(t, int64(2), obs.activated.Load())
	assert.Equal(t, int64(2), obs.observed.Load())
}

func TestDispatcherPropagatesOperationError(t *testing.T) {
	d := New(Config{})
	defer d.Close(context.Background()) //nolint:errcheck

	sentinel := errors.New("write failed")
	err := d.Do(context.Background(), Address{Kind: "class", ID: "x"}, func(ctx context.Context, act *Activation) error {
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
}

func TestDispatcherCloseRejectsNewWork(t *testing.T) {
	d := New(Config{IdleTimeout: time.Minute})
	require.NoError(t, d.Do(context.Background(), Address{Kind: "k", ID: "1"}, func(ctx context.Context, act *Activation) error {
		return nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))
	assert.Equal(t, 0, d.Active())

	err := d.Do(context.Background(), Address{Kind: "k", ID: "1"}, func(ctx context.Context, act *Activation) error {
		return nil
	})
	assert.ErrorIs(t, err, ErrClosed)
}
