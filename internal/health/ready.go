package health

import "sync/atomic"

// Readiness 进程级就绪标记：启动完成且未进入关闭流程
type Readiness struct {
	started  atomic.Bool
	draining atomic.Bool
}

func New() *Readiness { return &Readiness{} }

func (r *Readiness) SetStarted(v bool)  { r.started.Store(v) }
func (r *Readiness) SetDraining(v bool) { r.draining.Store(v) }

// Ready 已启动且未在关闭
func (r *Readiness) Ready() bool {
	return r.started.Load() && !r.draining.Load()
}
