package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRetriesFailedJobs(t *testing.T) {
	var attempts atomic.Int32
	q := NewQueue("repair", func(ctx context.Context, job Job) error {
		if attempts.Add(1) < 3 {
			return errors.New("class unavailable")
		}
		return nil
	}, QueueConfig{MaxRetries: 5, RetryDelay: 5 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1", Type: "enrollment"}))
	require.Eventually(t, func() bool { return q.Pending() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestQueueReportsExhaustedJobs(t *testing.T) {
	exhausted := make(chan Job, 1)
	q := NewQueue("repair", func(ctx context.Context, job Job) error {
		return errors.New("still failing")
	}, QueueConfig{MaxRetries: 2, RetryDelay: time.Millisecond, OnExhausted: func(j Job, err error) {
		exhausted <- j
	}})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-2"}))
	select {
	case job := <-exhausted:
		assert.Equal(t, "job-2", job.ID)
		assert.Equal(t, 3, job.Attempt)
	case <-time.After(time.Second):
		t.Fatal("job never exhausted")
	}
	assert.Equal(t, 0, q.Pending())
}

func TestQueueRejectsBeforeStart(t *testing.T) {
	q := NewQueue("repair", func(context.Context, Job) error { return nil }, QueueConfig{})
	require.Error(t, q.Enqueue(Job{ID: "x"}))
	assert.Equal(t, 0, q.Pending())
}
