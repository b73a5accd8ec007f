package app

import (
	"github.com/gin-gonic/gin"

	"github.com/taoyao-code/prolite-gateway/internal/device"
	"github.com/taoyao-code/prolite-gateway/internal/health"
	"github.com/taoyao-code/prolite-gateway/internal/poller"
)

// 连续多少个轮询周期无新结果视为陈旧
const staleIntervals = 10

// NewHealthAggregator 创建健康检查聚合器；p 为 nil 表示未启用轮询
func NewHealthAggregator(dev *device.Device, p *poller.Poller) *health.Aggregator {
	var snap health.SnapshotSource
	stale := poller.DefaultInterval * staleIntervals
	if p != nil {
		snap = p
		stale = p.Interval() * staleIntervals
	}
	return health.NewAggregator(health.NewDeviceChecker(snap, dev, stale))
}

// RegisterHealthRoutes 注册健康检查路由
func RegisterHealthRoutes(r *gin.Engine, aggregator *health.Aggregator) {
	health.RegisterHTTPRoutes(r, aggregator)
}
