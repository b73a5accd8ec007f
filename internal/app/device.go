package app

import (
	"fmt"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/prolite-gateway/internal/config"
	"github.com/taoyao-code/prolite-gateway/internal/coremodel"
	"github.com/taoyao-code/prolite-gateway/internal/device"
	"github.com/taoyao-code/prolite-gateway/internal/metrics"
	"github.com/taoyao-code/prolite-gateway/internal/poller"
	"github.com/taoyao-code/prolite-gateway/internal/wol"
)

// NewDevice 按配置创建显示器
func NewDevice(cfg cfgpkg.DeviceConfig, log *zap.Logger, appm *metrics.AppMetrics) (*device.Device, error) {
	proto, err := coremodel.ParseProtocol(cfg.Protocol)
	if err != nil {
		return nil, fmt.Errorf("device.protocol: %w", err)
	}
	return device.New(device.Config{
		Host:      cfg.Host,
		Port:      cfg.Port,
		Protocol:  proto,
		MonitorID: cfg.MonitorID,
		Timeout:   cfg.Timeout,
		Interval:  cfg.Interval,
		MaxLine:   cfg.MaxLine,
	}, device.WithLogger(log), device.WithMetrics(appm))
}

// NewPoller 按配置创建轮询器，未启用时返回 nil
func NewPoller(cfg cfgpkg.PollerConfig, dev *device.Device, log *zap.Logger, appm *metrics.AppMetrics) *poller.Poller {
	if !cfg.Enable {
		return nil
	}
	breaker := poller.NewBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown)
	breaker.SetStateChangeCallback(func(from, to poller.BreakerState) {
		log.Warn("device breaker state changed",
			zap.String("from", from.String()),
			zap.String("to", to.String()))
	})
	p := poller.New(dev,
		poller.WithInterval(cfg.Interval),
		poller.WithBreaker(breaker),
		poller.WithLogger(log),
		poller.WithMetrics(appm),
	)
	p.OnChange(func(c poller.Change) {
		log.Info("display status changed",
			zap.String("field", c.Field),
			zap.String("old", c.Old),
			zap.String("new", c.New))
	})
	return p
}

// NewWaker 未配置 MAC 时返回 nil
func NewWaker(dev cfgpkg.DeviceConfig, cfg cfgpkg.WOLConfig, log *zap.Logger) (*wol.Sender, error) {
	if dev.MAC == "" {
		return nil, nil
	}
	return wol.NewSender(cfg.Broadcast, cfg.Port, log)
}
