package gate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitBoundsConcurrency(t *testing.T) {
	g := New(5, zerolog.Nop())

	var (
		current atomic.Int64
		peak    atomic.Int64
		wg      sync.WaitGroup
		done    atomic.Int64
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := Submit(context.Background(), g, func(context.Context) (int, error) {
				n := current.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				current.Add(-1)
				return i, nil
			})
			assert.NoError(t, err)
			assert.Equal(t, i, v)
			done.Add(1)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(50), done.Load())
	assert.LessOrEqual(t, peak.Load(), int64(5))
	assert.Equal(t, 0, g.Queued())
	assert.Equal(t, 0, g.Running())
}

func TestSubmitAdmitsInOrder(t *testing.T) {
	g := New(1, zerolog.Nop())
	release := make(chan struct{})
	started := make(chan struct{})

	go Submit(context.Background(), g, func(context.Context) (struct{}, error) {
		close(started)
		<-release
		return struct{}{}, nil
	})
	<-started

	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)
	for i := 1; i <= 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			Submit(context.Background(), g, func(context.Context) (struct{}, error) {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return struct{}{}, nil
			})
		}(i)
		require.Eventually(t, func() bool { return g.Queued() == i }, time.Second, time.Millisecond)
		// let the waiter reach the semaphore before the next one is queued
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, 1, g.Running())

	close(release)
	wg.Wait()
	assert.Equal(t, []int{1, 2, 3, 4}, order)
}

func TestSubmitCancelledWhileQueued(t *testing.T) {
	g := New(1, zerolog.Nop())
	release := make(chan struct{})
	started := make(chan struct{})

	go Submit(context.Background(), g, func(context.Context) (int, error) {
		close(started)
		<-release
		return 0, nil
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	ran := false
	_, err := Submit(ctx, g, func(context.Context) (int, error) {
		ran = true
		return 1, nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, ran)
	assert.Equal(t, 0, g.Queued())

	close(release)
	v, err := Submit(context.Background(), g, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestSubmitPropagatesOperationError(t *testing.T) {
	g := New(0, zerolog.Nop())
	assert.Equal(t, 1, g.Limit())

	boom := errors.New("boom")
	_, err := Submit(context.Background(), g, func(context.Context) (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, g.Running())
}

func TestSubmitWithFreeSlotIsNeverQueued(t *testing.T) {
	const callers = 20
	g := New(callers, zerolog.Nop())

	stop := make(chan struct{})
	var maxQueued atomic.Int64
	var watcher sync.WaitGroup
	watcher.Add(1)
	go func() {
		defer watcher.Done()
		for {
			select {
			case <-stop:
				return
			default:
				if q := int64(g.Queued()); q > maxQueued.Load() {
					maxQueued.Store(q)
				}
			}
		}
	}()

	var wg sync.WaitGroup
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Submit(context.Background(), g, func(context.Context) (int, error) {
				time.Sleep(time.Millisecond)
				return 0, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	close(stop)
	watcher.Wait()

	assert.Zero(t, maxQueued.Load())
}
