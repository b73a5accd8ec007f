// Package poller 周期查询显示器输入源与电源状态，维护最近一次快照，
// 值变化时回调订阅者，并据此给出设备健康状态。
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/prolite-gateway/internal/coremodel"
	"github.com/taoyao-code/prolite-gateway/internal/metrics"
)

// Source 轮询所需的设备能力，由 device.Device 实现
type Source interface {
	Input(ctx context.Context) (coremodel.VideoSource, error)
	PowerState(ctx context.Context) (coremodel.PowerState, error)
}

// Status 设备状态
type Status string

const (
	StatusUnknown           Status = "unknown"
	StatusOK                Status = "ok"
	StatusConnectionFailure Status = "connection_failure"
)

// 变化字段
const (
	FieldInput = "input"
	FieldPower = "power"
)

// Snapshot 最近一次轮询结果
type Snapshot struct {
	Input     coremodel.VideoSource `json:"input"`
	Power     coremodel.PowerState  `json:"power"`
	Status    Status                `json:"status"`
	LastError string                `json:"last_error,omitempty"`
	LastSeen  time.Time             `json:"last_seen"`
	Breaker   string                `json:"breaker"`
}

// Change 值变化事件
type Change struct {
	Field string
	Old   string
	New   string
}

// Poller 状态轮询器
type Poller struct {
	src      Source
	interval time.Duration
	breaker  *Breaker
	logger   *zap.Logger
	metrics  *metrics.AppMetrics

	mu        sync.RWMutex
	snap      Snapshot
	listeners []func(Change)
}

// Option 轮询器选项
type Option func(*Poller)

func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithBreaker(b *Breaker) Option {
	return func(p *Poller) { p.breaker = b }
}

func WithLogger(l *zap.Logger) Option {
	return func(p *Poller) {
		if l != nil {
			p.logger = l
		}
	}
}

func WithMetrics(m *metrics.AppMetrics) Option {
	return func(p *Poller) { p.metrics = m }
}

// DefaultInterval 默认轮询间隔
const DefaultInterval = 750 * time.Millisecond

// New 创建轮询器
func New(src Source, opts ...Option) *Poller {
	p := &Poller{
		src:      src,
		interval: DefaultInterval,
		logger:   zap.NewNop(),
		snap:     Snapshot{Status: StatusUnknown},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.breaker == nil {
		p.breaker = NewBreaker(0, 0)
	}
	p.snap.Breaker = p.breaker.State().String()
	return p
}

// OnChange 注册变化回调，在轮询协程中同步调用
func (p *Poller) OnChange(fn func(Change)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// Interval 轮询间隔
func (p *Poller) Interval() time.Duration { return p.interval }

// Snapshot 返回最近一次结果
func (p *Poller) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

// Run 阻塞执行轮询直到 ctx 结束
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	p.PollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.PollOnce(ctx)
		}
	}
}

// PollOnce 执行一轮查询
func (p *Poller) PollOnce(ctx context.Context) {
	var (
		input coremodel.VideoSource
		power coremodel.PowerState
	)
	err := p.breaker.Call(func() error {
		var err error
		if input, err = p.src.Input(ctx); err != nil {
			return err
		}
		power, err = p.src.PowerState(ctx)
		return err
	})

	if errors.Is(err, ErrBreakerOpen) {
		p.metrics.ObservePoll("skipped", false)
		p.mu.Lock()
		p.snap.Breaker = p.breaker.State().String()
		p.mu.Unlock()
		return
	}
	if ctx.Err() != nil {
		// 停机过程中的失败不计入状态
		return
	}

	var changes []Change
	p.mu.Lock()
	prev := p.snap
	p.snap.Breaker = p.breaker.State().String()
	if err != nil {
		p.snap.Status = StatusConnectionFailure
		p.snap.LastError = err.Error()
	} else {
		p.snap.Status = StatusOK
		p.snap.LastError = ""
		p.snap.LastSeen = time.Now()
		if input != prev.Input {
			changes = append(changes, Change{Field: FieldInput, Old: string(prev.Input), New: string(input)})
			p.snap.Input = input
		}
		if power != prev.Power {
			changes = append(changes, Change{Field: FieldPower, Old: string(prev.Power), New: string(power)})
			p.snap.Power = power
		}
	}
	listeners := p.listeners
	p.mu.Unlock()

	if err != nil {
		p.metrics.ObservePoll("error", false)
		if prev.Status != StatusConnectionFailure {
			p.logger.Warn("display unreachable", zap.Error(err))
		}
		return
	}
	p.metrics.ObservePoll("ok", true)
	if prev.Status != StatusOK {
		p.logger.Info("display reachable", zap.String("input", string(input)), zap.String("power", string(power)))
	}
	for _, c := range changes {
		p.logger.Debug("display state changed", zap.String("field", c.Field), zap.String("old", c.Old), zap.String("new", c.New))
		for _, fn := range listeners {
			fn(c)
		}
	}
}
