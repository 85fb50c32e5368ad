package keys

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuture_SettlesOnce(t *testing.T) {
	t.Parallel()

	f := NewFuture()
	first := &Response{StatusCode: 200}

	assert.True(t, f.Resolve(first))
	assert.False(t, f.Resolve(&Response{StatusCode: 204}))
	assert.False(t, f.Reject(errors.New("late")))

	resp, err := f.Result()
	require.NoError(t, err)
	assert.Same(t, first, resp)
}

func TestFuture_ConcurrentSettle(t *testing.T) {
	t.Parallel()

	f := NewFuture()
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var won bool
			if i%2 == 0 {
				won = f.Resolve(&Response{StatusCode: 200})
			} else {
				won = f.Reject(errors.New("boom"))
			}
			if won {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	select {
	case <-f.Done():
	default:
		t.Fatal("future should be settled")
	}
}

func TestFuture_AwaitContext(t *testing.T) {
	t.Parallel()

	t.Run("cancelled wait", func(t *testing.T) {
		t.Parallel()
		f := NewFuture()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		resp, err := f.Await(ctx)
		assert.Nil(t, resp)
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		// The future itself is still open and can settle afterwards.
		assert.True(t, f.Resolve(&Response{StatusCode: 200}))
	})

	t.Run("settled result wins over cancelled context", func(t *testing.T) {
		t.Parallel()
		f := Resolved(&Response{StatusCode: 200})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		resp, err := f.Await(ctx)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("nil context waits", func(t *testing.T) {
		t.Parallel()
		f := NewFuture()
		go func() {
			time.Sleep(5 * time.Millisecond)
			f.Reject(errors.New("late failure"))
		}()

		//nolint:staticcheck // nil context is accepted
		_, err := f.Await(nil)
		assert.EqualError(t, err, "late failure")
	})
}

func TestRejected(t *testing.T) {
	t.Parallel()

	cause := errors.New("network down")
	resp, err := Rejected(cause).Result()
	assert.Nil(t, resp)
	assert.Same(t, cause, err)
}
