package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/prolite-gateway/internal/coremodel"
	"github.com/taoyao-code/prolite-gateway/internal/protocol"
)

type fakeSource struct {
	mu    sync.Mutex
	input coremodel.VideoSource
	power coremodel.PowerState
	err   error
	calls int
}

func (f *fakeSource) Input(context.Context) (coremodel.VideoSource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.input, f.err
}

func (f *fakeSource) PowerState(context.Context) (coremodel.PowerState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.power, f.err
}

func (f *fakeSource) set(in coremodel.VideoSource, p coremodel.PowerState, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.input, f.power, f.err = in, p, err
}

func TestPoller_ChangesAndStatus(t *testing.T) {
	src := &fakeSource{}
	src.set(coremodel.SourceHDMI1, coremodel.PowerBacklightOn, nil)
	p := New(src)

	var changes []Change
	p.OnChange(func(c Change) { changes = append(changes, c) })

	assert.Equal(t, StatusUnknown, p.Snapshot().Status)

	ctx := context.Background()
	p.PollOnce(ctx)
	snap := p.Snapshot()
	assert.Equal(t, StatusOK, snap.Status)
	assert.Equal(t, coremodel.SourceHDMI1, snap.Input)
	assert.False(t, snap.LastSeen.IsZero())
	require.Len(t, changes, 2)

	// 无变化不回调
	p.PollOnce(ctx)
	assert.Len(t, changes, 2)

	src.set(coremodel.SourceVGA, coremodel.PowerBacklightOn, nil)
	p.PollOnce(ctx)
	require.Len(t, changes, 3)
	assert.Equal(t, Change{Field: FieldInput, Old: "001", New: "000"}, changes[2])
}

func TestPoller_ConnectionFailureKeepsLastValues(t *testing.T) {
	src := &fakeSource{}
	src.set(coremodel.SourceHDMI2, coremodel.PowerBacklightOff, nil)
	p := New(src, WithBreaker(NewBreaker(10, time.Minute)))
	ctx := context.Background()
	p.PollOnce(ctx)

	src.set("", "", &protocol.ConnError{Op: "dial", Err: errors.New("connection refused")})
	p.PollOnce(ctx)

	snap := p.Snapshot()
	assert.Equal(t, StatusConnectionFailure, snap.Status)
	assert.Contains(t, snap.LastError, "connection refused")
	assert.Equal(t, coremodel.SourceHDMI2, snap.Input)
	assert.Equal(t, coremodel.PowerBacklightOff, snap.Power)
}

func TestPoller_BreakerSkipsPolls(t *testing.T) {
	src := &fakeSource{}
	src.set("", "", errors.New("timeout"))
	b := NewBreaker(2, time.Hour)
	p := New(src, WithBreaker(b))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		p.PollOnce(ctx)
	}
	src.mu.Lock()
	calls := src.calls
	src.mu.Unlock()
	assert.Equal(t, 2, calls)
	assert.Equal(t, BreakerOpen, b.State())
	assert.Equal(t, "open", p.Snapshot().Breaker)
}

func TestPoller_RunStopsOnCancel(t *testing.T) {
	src := &fakeSource{}
	src.set(coremodel.SourceHDMI1, coremodel.PowerBacklightOn, nil)
	p := New(src, WithInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		src.mu.Lock()
		defer src.mu.Unlock()
		return src.calls >= 3
	}, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run 未在取消后退出")
	}
}

func TestBreaker(t *testing.T) {
	t.Run("熔断与恢复", func(t *testing.T) {
		now := time.Now()
		b := NewBreaker(3, time.Second)
		b.now = func() time.Time { return now }

		testErr := errors.New("test error")
		for i := 0; i < 3; i++ {
			_ = b.Call(func() error { return testErr })
		}
		assert.Equal(t, BreakerOpen, b.State())
		assert.ErrorIs(t, b.Call(func() error { return nil }), ErrBreakerOpen)

		now = now.Add(2 * time.Second)
		assert.NoError(t, b.Call(func() error { return nil }))
		assert.Equal(t, BreakerClosed, b.State())
		assert.Equal(t, int64(1), b.TripCount())
	})

	t.Run("半开试探失败重新熔断", func(t *testing.T) {
		now := time.Now()
		b := NewBreaker(1, time.Second)
		b.now = func() time.Time { return now }

		_ = b.Call(func() error { return errors.New("x") })
		assert.Equal(t, BreakerOpen, b.State())

		now = now.Add(2 * time.Second)
		_ = b.Call(func() error { return errors.New("x") })
		assert.Equal(t, BreakerOpen, b.State())
		assert.Equal(t, int64(2), b.TripCount())
	})

	t.Run("成功重置计数", func(t *testing.T) {
		b := NewBreaker(2, time.Second)
		_ = b.Call(func() error { return errors.New("x") })
		_ = b.Call(func() error { return nil })
		_ = b.Call(func() error { return errors.New("x") })
		assert.Equal(t, BreakerClosed, b.State())

		b.Reset()
		assert.Equal(t, BreakerClosed, b.State())
	})
}
