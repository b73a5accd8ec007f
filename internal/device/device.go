// Package device 显示器控制门面：固定属性集合的 get/set，
// 协议在构造时选定，所有操作经单任务队列串行下发到同一条 TCP 连接。
package device

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taoyao-code/prolite-gateway/internal/coremodel"
	"github.com/taoyao-code/prolite-gateway/internal/metrics"
	"github.com/taoyao-code/prolite-gateway/internal/outbound"
	"github.com/taoyao-code/prolite-gateway/internal/protocol"
	"github.com/taoyao-code/prolite-gateway/internal/protocol/lh42uhs"
	"github.com/taoyao-code/prolite-gateway/internal/protocol/te04"
	"github.com/taoyao-code/prolite-gateway/internal/tcpclient"
)

// Config 设备连接参数
type Config struct {
	Host      string
	Port      int // 0 使用协议默认端口
	Protocol  coremodel.Protocol
	MonitorID int // 仅 LH42UHS，1..255
	Timeout   time.Duration
	Interval  time.Duration
	MaxLine   int
}

// Device 单台显示器
type Device struct {
	id   string
	kind coremodel.Protocol
	// 按 kind 二选一
	lh *lh42uhs.Codec
	te *te04.Codec

	client  *tcpclient.Client
	queue   *outbound.Queue
	logger  *zap.Logger
	metrics *metrics.AppMetrics

	destroyOnce sync.Once
}

// Option 设备选项
type Option func(*options)

type options struct {
	logger  *zap.Logger
	metrics *metrics.AppMetrics
}

// WithLogger 设置日志
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics 设置指标（可为 nil）
func WithMetrics(m *metrics.AppMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// New 创建设备，不会立即建立连接
func New(cfg Config, opts ...Option) (*Device, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if cfg.Host == "" {
		return nil, errors.New("device: host is required")
	}

	d := &Device{
		id:      uuid.NewString(),
		kind:    cfg.Protocol,
		metrics: o.metrics,
	}
	switch cfg.Protocol {
	case coremodel.ProtocolLH42UHS:
		if cfg.MonitorID < 1 || cfg.MonitorID > 255 {
			return nil, fmt.Errorf("device: monitor id must be in [1,255], got %d", cfg.MonitorID)
		}
		d.lh = lh42uhs.New(byte(cfg.MonitorID))
	case coremodel.ProtocolTE04:
		d.te = te04.New()
	default:
		return nil, fmt.Errorf("device: unknown protocol %q", cfg.Protocol)
	}

	port := cfg.Port
	if port == 0 {
		port = cfg.Protocol.DefaultPort()
	}
	d.logger = o.logger.With(zap.String("device_id", d.id), zap.String("protocol", string(cfg.Protocol)))

	d.client = tcpclient.New(cfg.Host, port,
		tcpclient.WithTimeout(cfg.Timeout),
		tcpclient.WithMaxLine(cfg.MaxLine),
		tcpclient.WithLogger(d.logger),
		tcpclient.WithOnConnect(d.metrics.ObserveConnect),
		tcpclient.WithOnDrop(d.metrics.ObserveDisconnect),
	)
	queueOpts := []outbound.Option{
		outbound.WithLogger(d.logger),
		outbound.WithDepthCallback(d.metrics.SetQueueDepth),
	}
	if cfg.Interval > 0 {
		queueOpts = append(queueOpts, outbound.WithInterval(cfg.Interval))
	}
	d.queue = outbound.New(queueOpts...)
	return d, nil
}

// ID 设备实例 ID
func (d *Device) ID() string { return d.id }

// Protocol 构造时选定的协议
func (d *Device) Protocol() coremodel.Protocol { return d.kind }

// Addr 设备地址 host:port
func (d *Device) Addr() string { return d.client.Addr() }

// ConnState 当前连接状态
func (d *Device) ConnState() tcpclient.State { return d.client.State() }

// Supports 当前协议能否表示命令
func (d *Device) Supports(cmd coremodel.Command) bool {
	if !cmd.Valid() {
		return false
	}
	if d.kind == coremodel.ProtocolLH42UHS {
		return lh42uhs.Supports(cmd)
	}
	return true
}

// Get 查询属性，返回三位码
func (d *Device) Get(ctx context.Context, cmd coremodel.Command) (string, error) {
	start := time.Now()
	var out string
	err := d.run(ctx, cmd, func(ctx context.Context) error {
		var err error
		switch d.kind {
		case coremodel.ProtocolLH42UHS:
			out, err = d.lh.Get(ctx, d.client, cmd)
		default:
			out, err = d.te.Get(ctx, d.client, cmd)
		}
		return err
	})
	d.observe("get", cmd, coremodel.NoValue, out, start, err)
	if err != nil {
		return "", err
	}
	return out, nil
}

// Set 设置属性
func (d *Device) Set(ctx context.Context, cmd coremodel.Command, v coremodel.Value) error {
	start := time.Now()
	err := d.run(ctx, cmd, func(ctx context.Context) error {
		switch d.kind {
		case coremodel.ProtocolLH42UHS:
			return d.lh.Set(ctx, d.client, cmd, v)
		default:
			return d.te.Set(ctx, d.client, cmd, v)
		}
	})
	d.observe("set", cmd, v, "", start, err)
	return err
}

// run 不支持的命令直接拒绝，不占用队列
func (d *Device) run(ctx context.Context, cmd coremodel.Command, task outbound.Task) error {
	if !d.Supports(cmd) {
		return fmt.Errorf("%w: %s over %s", protocol.ErrUnsupportedCommand, cmd, d.kind)
	}
	return d.queue.Do(ctx, task)
}

func (d *Device) observe(op string, cmd coremodel.Command, v coremodel.Value, out string, start time.Time, err error) {
	elapsed := time.Since(start)
	result := ResultLabel(err)
	d.metrics.ObserveOp(op, cmd.String(), result, elapsed)

	fields := []zap.Field{
		zap.String("op", op),
		zap.String("cmd", cmd.String()),
		zap.Duration("duration", elapsed),
	}
	if v.Present() {
		fields = append(fields, zap.Stringer("value", v))
	}
	if err != nil {
		d.logger.Warn("device operation failed", append(fields, zap.String("result", result), zap.Error(err))...)
		return
	}
	if out != "" {
		fields = append(fields, zap.String("reply", out))
	}
	d.logger.Debug("device operation", fields...)
}

// ResultLabel 错误分类标签
func ResultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, protocol.ErrUnsupportedCommand):
		return "unsupported"
	case errors.Is(err, protocol.ErrInvalidValue):
		return "invalid_value"
	case errors.Is(err, protocol.ErrNack):
		return "nack"
	case errors.Is(err, protocol.ErrChecksum):
		return "checksum"
	case errors.Is(err, protocol.ErrUnknownResponse):
		return "unknown_response"
	case errors.Is(err, outbound.ErrQueueClosed):
		return "closed"
	case protocol.IsConnError(err):
		return "conn_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

// Destroy 关闭连接与队列，排队中的操作失败。可重复调用
func (d *Device) Destroy() {
	d.destroyOnce.Do(func() {
		_ = d.client.Close()
		d.queue.Close()
		d.logger.Info("device destroyed")
	})
}
