package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// AppMetrics 自定义业务指标。所有方法对 nil 接收者安全，测试中可直接传 nil
type AppMetrics struct {
	DeviceOps         *prometheus.CounterVec   // labels: op=get|set, cmd, result
	DeviceOpDuration  *prometheus.HistogramVec // labels: op
	DeviceConnects    *prometheus.CounterVec   // labels: result=ok|error
	DeviceDisconnects *prometheus.CounterVec   // labels: reason
	QueueDepth        prometheus.Gauge         // 调度队列排队数
	PollTotal         *prometheus.CounterVec   // labels: result=ok|error|skipped
	DeviceReachable   prometheus.Gauge         // 1 可达，0 不可达
}

// NewAppMetrics 注册并返回业务指标
func NewAppMetrics(reg *prometheus.Registry) *AppMetrics {
	m := &AppMetrics{
		DeviceOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prolite_device_ops_total",
			Help: "Device get/set operations by command and result.",
		}, []string{"op", "cmd", "result"}),
		DeviceOpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "prolite_device_op_duration_seconds",
			Help:    "Device operation latency including queue wait.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 1.5, 2.5},
		}, []string{"op"}),
		DeviceConnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prolite_device_connects_total",
			Help: "TCP connection attempts to the display.",
		}, []string{"result"}),
		DeviceDisconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prolite_device_disconnects_total",
			Help: "Destroyed display connections by reason.",
		}, []string{"reason"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "prolite_queue_depth",
			Help: "Commands waiting in the device queue.",
		}),
		PollTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prolite_poll_total",
			Help: "Status poll rounds by result.",
		}, []string{"result"}),
		DeviceReachable: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "prolite_device_reachable",
			Help: "Whether the last poll reached the display.",
		}),
	}
	reg.MustRegister(m.DeviceOps, m.DeviceOpDuration, m.DeviceConnects, m.DeviceDisconnects,
		m.QueueDepth, m.PollTotal, m.DeviceReachable)
	return m
}

// ObserveOp 记录一次设备操作
func (m *AppMetrics) ObserveOp(op, cmd, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.DeviceOps.WithLabelValues(op, cmd, result).Inc()
	m.DeviceOpDuration.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveConnect 记录一次建连结果
func (m *AppMetrics) ObserveConnect(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.DeviceConnects.WithLabelValues(result).Inc()
}

// ObserveDisconnect 记录连接销毁
func (m *AppMetrics) ObserveDisconnect(reason string) {
	if m == nil {
		return
	}
	m.DeviceDisconnects.WithLabelValues(reason).Inc()
}

// SetQueueDepth 更新队列深度
func (m *AppMetrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}

// ObservePoll 记录一轮轮询
func (m *AppMetrics) ObservePoll(result string, reachable bool) {
	if m == nil {
		return
	}
	m.PollTotal.WithLabelValues(result).Inc()
	if result == "skipped" {
		return
	}
	if reachable {
		m.DeviceReachable.Set(1)
	} else {
		m.DeviceReachable.Set(0)
	}
}
