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

func TestQueueProcessesJobs(t *testing.T) {
	var handled int32
	done := make(chan struct{}, 3)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&handled, 1)
		done <- struct{}{}
		return nil
	}, QueueConfig{Workers: 2})

	require.Error(t, q.Enqueue(Job{ID: "early"}))

	q.Start(context.Background())
	defer q.Stop()
	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(Job{ID: "job"}))
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("job not processed")
		}
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&handled))
}

func TestQueueRetriesThenExhausts(t *testing.T) {
	var attempts int32
	exhausted := make(chan Job, 1)
	q := NewQueue("retry", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("boom")
	}, QueueConfig{
		MaxRetries: 2,
		RetryDelay: 5 * time.Millisecond,
		OnExhausted: func(ctx context.Context, job Job, err error) {
			exhausted <- job
		},
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "export-1", Type: "export"}))
	select {
	case job := <-exhausted:
		assert.Equal(t, "export-1", job.ID)
		assert.Equal(t, 3, job.Attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("job never exhausted")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestQueueRecoversPanicsAndTimesOut(t *testing.T) {
	exhausted := make(chan error, 2)
	q := NewQueue("faulty", func(ctx context.Context, job Job) error {
		if job.ID == "panic" {
			panic("nil roster")
		}
		<-ctx.Done()
		return ctx.Err()
	}, QueueConfig{
		JobTimeout: 10 * time.Millisecond,
		OnExhausted: func(ctx context.Context, job Job, err error) {
			exhausted <- err
		},
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "panic"}))
	require.NoError(t, q.Enqueue(Job{ID: "slow"}))
	var errs []error
	for i := 0; i < 2; i++ {
		select {
		case err := <-exhausted:
			errs = append(errs, err)
		case <-time.After(2 * time.Second):
			t.Fatal("job never failed")
		}
	}
	var sawPanic, sawTimeout bool
	for _, err := range errs {
		if errors.Is(err, context.DeadlineExceeded) {
			sawTimeout = true
		} else if assert.Error(t, err) {
			sawPanic = assert.Contains(t, err.Error(), "panicked")
		}
	}
	assert.True(t, sawPanic)
	assert.True(t, sawTimeout)
	assert.Equal(t, int64(2), q.Stats().Exhausted)
}

func TestQueueBackoffIsCapped(t *testing.T) {
	q := NewQueue("backoff", nil, QueueConfig{RetryDelay: time.Second, MaxRetryDelay: 5 * time.Second})
	assert.Equal(t, time.Second, q.backoff(1))
	assert.Equal(t, 2*time.Second, q.backoff(2))
	assert.Equal(t, 4*time.Second, q.backoff(3))
	assert.Equal(t, 5*time.Second, q.backoff(4))
	assert.Equal(t, 5*time.Second, q.backoff(10))
}
