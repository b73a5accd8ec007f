// Package outbound 设备下行命令调度：严格 FIFO、单任务在途，
// 任务间保持最小间隔，前一个任务的应答读完后才执行下一个。
package outbound

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrQueueClosed 队列已关闭
var ErrQueueClosed = errors.New("outbound: queue closed")

// DefaultInterval 相邻任务最小间隔
const DefaultInterval = time.Millisecond

// Task 在队列工作协程中执行的任务
type Task func(ctx context.Context) error

type job struct {
	ctx   context.Context
	task  Task
	doneC chan error
}

// Queue 单工作协程的任务队列
type Queue struct {
	limiter *rate.Limiter
	logger  *zap.Logger
	onDepth func(int)

	mu     sync.Mutex
	jobs   []*job
	closed bool

	notifyC chan struct{}
	stopC   chan struct{}
	doneC   chan struct{}
}

// Option 队列选项
type Option func(*Queue)

// WithInterval 相邻任务最小间隔（<=0 不限速）
func WithInterval(d time.Duration) Option {
	return func(q *Queue) {
		if d <= 0 {
			q.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		q.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithLogger 设置日志
func WithLogger(l *zap.Logger) Option {
	return func(q *Queue) {
		if l != nil {
			q.logger = l
		}
	}
}

// WithDepthCallback 队列深度变化回调（用于指标）
func WithDepthCallback(fn func(int)) Option {
	return func(q *Queue) { q.onDepth = fn }
}

// New 创建队列并启动工作协程
func New(opts ...Option) *Queue {
	q := &Queue{
		limiter: rate.NewLimiter(rate.Every(DefaultInterval), 1),
		logger:  zap.NewNop(),
		notifyC: make(chan struct{}, 1),
		stopC:   make(chan struct{}),
		doneC:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	go q.run()
	return q
}

// Do 入队并阻塞直到任务执行完成，返回任务自身的错误。
// 排队期间 ctx 结束则任务被跳过，返回 ctx.Err()。
func (q *Queue) Do(ctx context.Context, task Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	j := &job{ctx: ctx, task: task, doneC: make(chan error, 1)}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.jobs = append(q.jobs, j)
	depth := len(q.jobs)
	q.mu.Unlock()
	q.reportDepth(depth)

	select {
	case q.notifyC <- struct{}{}:
	default:
	}

	select {
	case err := <-j.doneC:
		return err
	case <-ctx.Done():
		if q.remove(j) {
			return ctx.Err()
		}
		// 已开始执行，等待其结束，由任务自身响应 ctx
		return <-j.doneC
	}
}

// remove 从队列中摘除尚未执行的任务
func (q *Queue) remove(target *job) bool {
	q.mu.Lock()
	removed := false
	for i, j := range q.jobs {
		if j == target {
			q.jobs = append(q.jobs[:i], q.jobs[i+1:]...)
			removed = true
			break
		}
	}
	depth := len(q.jobs)
	q.mu.Unlock()
	if removed {
		q.reportDepth(depth)
	}
	return removed
}

// Len 当前排队任务数（不含执行中的任务）
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Close 停止工作协程，排队中与之后的任务返回 ErrQueueClosed。可重复调用。
// 正在执行的任务会执行完毕。
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	pending := q.jobs
	q.jobs = nil
	q.mu.Unlock()

	close(q.stopC)
	for _, j := range pending {
		j.doneC <- ErrQueueClosed
	}
	q.reportDepth(0)
	<-q.doneC
}

func (q *Queue) run() {
	defer close(q.doneC)
	for {
		j := q.next()
		if j == nil {
			select {
			case <-q.notifyC:
				continue
			case <-q.stopC:
				return
			}
		}
		q.exec(j)
	}
}

// next 取出队首任务
func (q *Queue) next() *job {
	q.mu.Lock()
	if len(q.jobs) == 0 {
		q.mu.Unlock()
		return nil
	}
	j := q.jobs[0]
	q.jobs[0] = nil
	q.jobs = q.jobs[1:]
	depth := len(q.jobs)
	q.mu.Unlock()
	q.reportDepth(depth)
	return j
}

func (q *Queue) exec(j *job) {
	if err := j.ctx.Err(); err != nil {
		j.doneC <- err
		return
	}
	if err := q.limiter.Wait(j.ctx); err != nil {
		j.doneC <- err
		return
	}
	j.doneC <- q.safeRun(j)
}

// safeRun 执行任务并把 panic 转为错误
func (q *Queue) safeRun(j *job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("outbound task panic", zap.Any("panic", r))
			err = fmt.Errorf("outbound: task panic: %v", r)
		}
	}()
	return j.task(j.ctx)
}

func (q *Queue) reportDepth(n int) {
	if q.onDepth != nil {
		q.onDepth(n)
	}
}
