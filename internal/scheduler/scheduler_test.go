package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRejectsBadSpecAndDuplicates(t *testing.T) {
	s := New(time.UTC)

	assert.Error(t, s.Add("bad", "every morning", func(context.Context) error { return nil }))
	require.NoError(t, s.Add("accrual", "0 3 * * *", func(context.Context) error { return nil }))
	assert.Error(t, s.Add("accrual", "0 4 * * *", func(context.Context) error { return nil }))
}

func TestNextUsesLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	s := New(tokyo)
	require.NoError(t, s.Add("accrual", "0 3 * * *", func(context.Context) error { return nil }))

	s.Start()
	defer func() {
		require.NoError(t, s.Stop(context.Background()))
	}()

	next, ok := s.Next("accrual")
	require.True(t, ok)
	local := next.In(tokyo)
	assert.Equal(t, 3, local.Hour())
	assert.Equal(t, 0, local.Minute())
	assert.True(t, next.After(time.Now()))

	_, ok = s.Next("missing")
	assert.False(t, ok)
}

func TestRunNow(t *testing.T) {
	s := New(time.UTC)

	var runs atomic.Int32
	require.NoError(t, s.Add("accrual", "0 3 * * *", func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}))
	require.NoError(t, s.Add("failing", "0 4 * * *", func(ctx context.Context) error {
		return errors.New("boom")
	}))

	require.NoError(t, s.RunNow("accrual"))
	require.NoError(t, s.RunNow("failing"))
	assert.Error(t, s.RunNow("missing"))
	assert.Equal(t, int32(1), runs.Load())
}

func TestStopCancelsJobContext(t *testing.T) {
	s := New(time.UTC)

	started := make(chan struct{})
	cancelled := make(chan struct{})
	require.NoError(t, s.Add("slow", "0 3 1 1 *", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	}))

	s.Start()
	go func() {
		_ = s.RunNow("slow")
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("job context was not cancelled")
	}
}
