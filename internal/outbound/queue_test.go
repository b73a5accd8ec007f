package outbound

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

func TestQueue_FIFOAndSingleFlight(t *testing.T) {
	q := New()
	defer q.Close()

	var (
		mu       sync.Mutex
		order    []int
		inFlight int32
		maxSeen  int32
	)
	// 先占住工作协程，保证后续任务按入队顺序排队
	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = q.Do(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = q.Do(context.Background(), func(context.Context) error {
				n := atomic.AddInt32(&inFlight, 1)
				if n > atomic.LoadInt32(&maxSeen) {
					atomic.StoreInt32(&maxSeen, n)
				}
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inFlight, -1)
				return nil
			})
		}()
		require.Eventually(t, func() bool { return q.Len() == i+1 }, time.Second, time.Millisecond)
	}
	close(release)
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxSeen))
}

func TestQueue_FailureIsolation(t *testing.T) {
	q := New()
	defer q.Close()

	boom := errors.New("boom")
	err := q.Do(context.Background(), func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	err = q.Do(context.Background(), func(context.Context) error { return nil })
	assert.NoError(t, err)
}

func TestQueue_PanicRecovered(t *testing.T) {
	q := New()
	defer q.Close()

	err := q.Do(context.Background(), func(context.Context) error { panic("bad task") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad task")

	assert.NoError(t, q.Do(context.Background(), func(context.Context) error { return nil }))
}

func TestQueue_CanceledWhileQueued(t *testing.T) {
	q := New()
	defer q.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = q.Do(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	var ran int32
	errC := make(chan error, 1)
	go func() {
		errC <- q.Do(ctx, func(context.Context) error {
			atomic.StoreInt32(&ran, 1)
			return nil
		})
	}()
	require.Eventually(t, func() bool { return q.Len() == 1 }, time.Second, time.Millisecond)
	cancel()

	assert.ErrorIs(t, <-errC, context.Canceled)
	close(release)
	assert.NoError(t, q.Do(context.Background(), func(context.Context) error { return nil }))
	assert.Equal(t, int32(0), atomic.LoadInt32(&ran))
}

func TestQueue_CloseFailsPending(t *testing.T) {
	var depths []int
	var dmu sync.Mutex
	q := New(WithDepthCallback(func(n int) {
		dmu.Lock()
		depths = append(depths, n)
		dmu.Unlock()
	}))

	release := make(chan struct{})
	started := make(chan struct{})
	firstC := make(chan error, 1)
	go func() {
		firstC <- q.Do(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	pendingC := make(chan error, 1)
	go func() {
		pendingC <- q.Do(context.Background(), func(context.Context) error { return nil })
	}()
	require.Eventually(t, func() bool { return q.Len() == 1 }, time.Second, time.Millisecond)

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()
	q.Close()
	q.Close()

	assert.ErrorIs(t, <-pendingC, ErrQueueClosed)
	assert.NoError(t, <-firstC)
	assert.ErrorIs(t, q.Do(context.Background(), func(context.Context) error { return nil }), ErrQueueClosed)

	dmu.Lock()
	defer dmu.Unlock()
	require.NotEmpty(t, depths)
	assert.Equal(t, 0, depths[len(depths)-1])
}

func TestQueue_Interval(t *testing.T) {
	q := New(WithInterval(20 * time.Millisecond))
	defer q.Close()

	start := time.Now()
	for i := 0; i < 4; i++ {
		require.NoError(t, q.Do(context.Background(), func(context.Context) error { return nil }))
	}
	// 首个令牌立即可用，其后每个任务至少间隔 20ms
	assert.GreaterOrEqual(t, time.Since(start), 55*time.Millisecond)
}
