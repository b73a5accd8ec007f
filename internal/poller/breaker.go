package poller

import (
	"errors"
	"sync"
	"time"
)

// BreakerState 熔断器状态
type BreakerState int

const (
	BreakerClosed   BreakerState = iota // 正常轮询
	BreakerOpen                         // 暂停轮询
	BreakerHalfOpen                     // 冷却结束，允许一次试探
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// ErrBreakerOpen 熔断期内跳过轮询
var ErrBreakerOpen = errors.New("poller: breaker open")

// Breaker 连续失败达到阈值后打开，冷却后放行一次试探
type Breaker struct {
	mu           sync.Mutex
	state        BreakerState
	failureCount int
	lastFailTime time.Time
	tripCount    int64

	threshold int
	cooldown  time.Duration
	now       func() time.Time

	onStateChange func(from, to BreakerState)
}

// NewBreaker 创建熔断器
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 3
	}
	if cooldown <= 0 {
		cooldown = 10 * time.Second
	}
	return &Breaker{
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// Call 执行函数，受熔断器保护
func (b *Breaker) Call(fn func() error) error {
	if err := b.beforeCall(); err != nil {
		return err
	}
	err := fn()
	b.afterCall(err)
	return err
}

func (b *Breaker) beforeCall() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed, BreakerHalfOpen:
		return nil
	case BreakerOpen:
		if b.now().Sub(b.lastFailTime) >= b.cooldown {
			b.transitionTo(BreakerHalfOpen)
			return nil
		}
		return ErrBreakerOpen
	default:
		return ErrBreakerOpen
	}
}

func (b *Breaker) afterCall(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.failureCount = 0
		b.transitionTo(BreakerClosed)
		return
	}
	b.failureCount++
	b.lastFailTime = b.now()
	switch b.state {
	case BreakerClosed:
		if b.failureCount >= b.threshold {
			b.transitionTo(BreakerOpen)
			b.tripCount++
		}
	case BreakerHalfOpen:
		// 试探失败，重新熔断
		b.transitionTo(BreakerOpen)
		b.tripCount++
	}
}

func (b *Breaker) transitionTo(s BreakerState) {
	if b.state == s {
		return
	}
	old := b.state
	b.state = s
	if b.onStateChange != nil {
		go b.onStateChange(old, s)
	}
}

// State 当前状态
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// TripCount 累计熔断次数
func (b *Breaker) TripCount() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tripCount
}

// SetStateChangeCallback 设置状态变化回调（异步触发）
func (b *Breaker) SetStateChangeCallback(fn func(from, to BreakerState)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onStateChange = fn
}

// Reset 手动恢复
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failureCount = 0
	b.transitionTo(BreakerClosed)
}
