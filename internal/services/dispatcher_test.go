package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_RunsTasks(t *testing.T) {
	d := NewDispatcher(newTestLogger(), 4, 16, time.Second)

	var ran int32
	for i := 0; i < 10; i++ {
		require.NoError(t, d.Submit("test", func(ctx context.Context) error {
			atomic.AddInt32(&ran, 1)
			return nil
		}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))
	assert.Equal(t, int32(10), atomic.LoadInt32(&ran))
}

func TestDispatcher_TaskHasOwnDeadline(t *testing.T) {
	d := NewDispatcher(newTestLogger(), 1, 1, time.Second)

	type result struct {
		err         error
		hasDeadline bool
	}
	resCh := make(chan result, 1)
	d.Go("test", func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		resCh <- result{err: ctx.Err(), hasDeadline: ok}
		return nil
	})

	select {
	case res := <-resCh:
		assert.NoError(t, res.err)
		assert.True(t, res.hasDeadline)
	case <-time.After(time.Second):
		t.Fatal("task did not run")
	}
	require.NoError(t, d.Close(context.Background()))
}

func TestDispatcher_FullQueueDrops(t *testing.T) {
	d := NewDispatcher(newTestLogger(), 1, 1, time.Second)

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, d.Submit("block", func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started

	require.NoError(t, d.Submit("queued", func(ctx context.Context) error { return nil }))
	err := d.Submit("overflow", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrQueueFull)

	close(release)
	require.NoError(t, d.Close(context.Background()))
}

func TestDispatcher_SurvivesPanicsAndErrors(t *testing.T) {
	d := NewDispatcher(newTestLogger(), 1, 4, time.Second)

	var after int32
	d.Go("panic", func(ctx context.Context) error { panic("boom") })
	d.Go("error", func(ctx context.Context) error { return errors.New("smtp down") })
	d.Go("after", func(ctx context.Context) error {
		atomic.StoreInt32(&after, 1)
		return nil
	})

	require.NoError(t, d.Close(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&after))
}

func TestDispatcher_SubmitAfterClose(t *testing.T) {
	d := NewDispatcher(newTestLogger(), 1, 1, time.Second)
	require.NoError(t, d.Close(context.Background()))

	err := d.Submit("late", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrDispatcherClosed)
	// closing twice is safe
	assert.NoError(t, d.Close(context.Background()))
}
