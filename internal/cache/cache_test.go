package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobiasfroe/cs2-portfolio-tool/internal/cache"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/testutil"
)

func TestEntryFresh(t *testing.T) {
	now := testutil.TestNow
	e := cache.Entry[int]{Value: 1, FetchedAt: now}

	assert.True(t, e.Fresh(now, time.Minute))
	assert.True(t, e.Fresh(now.Add(59*time.Second), time.Minute))
	assert.False(t, e.Fresh(now.Add(time.Minute), time.Minute), "an entry exactly TTL old is stale")
}

func TestStoreResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("fetches once within the window and once after it", func(t *testing.T) {
		clock := testutil.NewFakeClock(testutil.TestNow)
		s := cache.New[int](time.Minute, clock)
		calls := 0
		fetch := func(context.Context) (int, error) {
			calls++
			return calls, nil
		}

		for range 5 {
			v, err := s.Resolve(ctx, "a", fetch)
			require.NoError(t, err)
			assert.Equal(t, 1, v)
		}
		assert.Equal(t, 1, calls)

		clock.Advance(time.Minute)
		v, err := s.Resolve(ctx, "a", fetch)
		require.NoError(t, err)
		assert.Equal(t, 2, v)
		assert.Equal(t, 2, calls)
	})

	t.Run("failed fetch stores nothing and keeps the stale entry", func(t *testing.T) {
		clock := testutil.NewFakeClock(testutil.TestNow)
		s := cache.New[string](time.Minute, clock)
		_, err := s.Resolve(ctx, "a", func(context.Context) (string, error) { return "old", nil })
		require.NoError(t, err)

		clock.Advance(2 * time.Minute)
		boom := errors.New("boom")
		_, err = s.Resolve(ctx, "a", func(context.Context) (string, error) { return "", boom })
		assert.ErrorIs(t, err, boom)

		e, ok := s.Get("a")
		require.True(t, ok)
		assert.Equal(t, "old", e.Value)
		assert.Equal(t, testutil.TestNow, e.FetchedAt)
	})

	t.Run("concurrent callers share one fetch", func(t *testing.T) {
		s := cache.New[int](time.Minute, nil)
		var calls atomic.Int32
		release := make(chan struct{})
		fetch := func(context.Context) (int, error) {
			calls.Add(1)
			<-release
			return 7, nil
		}

		var wg sync.WaitGroup
		results := make([]int, 10)
		for i := range results {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i], _ = s.Resolve(ctx, "a", fetch)
			}()
		}
		// let the goroutines queue on the in-flight call
		time.Sleep(50 * time.Millisecond)
		close(release)
		wg.Wait()

		assert.Equal(t, int32(1), calls.Load())
		for _, r := range results {
			assert.Equal(t, 7, r)
		}
	})

	t.Run("a canceled caller does not fail the shared fetch", func(t *testing.T) {
		s := cache.New[int](time.Minute, testutil.NewFakeClock(testutil.TestNow))
		gate := make(chan struct{})
		var calls atomic.Int32
		fetch := func(fctx context.Context) (int, error) {
			<-gate
			if err := fctx.Err(); err != nil {
				return 0, err
			}
			calls.Add(1)
			return 42, nil
		}

		canceled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := s.Resolve(canceled, "a", fetch)
		require.ErrorIs(t, err, context.Canceled)

		close(gate)
		v, err := s.Resolve(ctx, "a", fetch)
		require.NoError(t, err)
		assert.Equal(t, 42, v)
		assert.Equal(t, int32(1), calls.Load())

		_, ok := s.Fresh("a")
		assert.True(t, ok)
	})

	t.Run("keys are independent", func(t *testing.T) {
		s := cache.New[string](time.Minute, testutil.NewFakeClock(testutil.TestNow))
		a, _ := s.Resolve(ctx, "a", func(context.Context) (string, error) { return "A", nil })
		b, _ := s.Resolve(ctx, "b", func(context.Context) (string, error) { return "B", nil })
		assert.Equal(t, "A", a)
		assert.Equal(t, "B", b)
		assert.Equal(t, 2, s.Len())
	})
}

func TestStoreTouch(t *testing.T) {
	clock := testutil.NewFakeClock(testutil.TestNow)
	s := cache.New[int](time.Minute, clock)
	s.Set("a", 1)

	clock.Advance(2 * time.Minute)
	_, ok := s.Fresh("a")
	assert.False(t, ok)

	s.Touch("a")
	v, ok := s.Fresh("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	s.Touch("missing")
	_, ok = s.Get("missing")
	assert.False(t, ok)
}
