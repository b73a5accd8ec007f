package health

import (
	"context"
	"time"

	"github.com/taoyao-code/prolite-gateway/internal/poller"
	"github.com/taoyao-code/prolite-gateway/internal/tcpclient"
)

// SnapshotSource 轮询快照来源
type SnapshotSource interface {
	Snapshot() poller.Snapshot
}

// ConnSource 设备连接状态来源
type ConnSource interface {
	Addr() string
	ConnState() tcpclient.State
}

// DeviceChecker 基于轮询结果的显示器健康检查。
// 显示器关机或休眠时 LAN 无响应属于常态，因此不可达只记为降级。
type DeviceChecker struct {
	snap SnapshotSource
	conn ConnSource
	// 超过该时长未成功轮询视为数据陈旧
	staleAfter time.Duration
	now        func() time.Time
}

// NewDeviceChecker 创建设备检查器；snap 为 nil 表示未启用轮询
func NewDeviceChecker(snap SnapshotSource, conn ConnSource, staleAfter time.Duration) *DeviceChecker {
	return &DeviceChecker{snap: snap, conn: conn, staleAfter: staleAfter, now: time.Now}
}

func (c *DeviceChecker) Name() string { return "device" }

func (c *DeviceChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	details := map[string]any{}
	if c.conn != nil {
		details["addr"] = c.conn.Addr()
		details["connection"] = c.conn.ConnState().String()
	}

	if c.snap == nil {
		return CheckResult{
			Status:  StatusHealthy,
			Message: "polling disabled",
			Details: details,
			Latency: time.Since(start),
		}
	}

	s := c.snap.Snapshot()
	details["poll_status"] = s.Status
	details["breaker"] = s.Breaker
	if !s.LastSeen.IsZero() {
		details["last_seen"] = s.LastSeen
	}

	status, msg := StatusHealthy, "ok"
	switch s.Status {
	case poller.StatusUnknown:
		status, msg = StatusDegraded, "not polled yet"
	case poller.StatusConnectionFailure:
		status, msg = StatusDegraded, "device unreachable"
		if s.LastError != "" {
			details["last_error"] = s.LastError
		}
	default:
		if c.staleAfter > 0 && c.now().Sub(s.LastSeen) > c.staleAfter {
			status, msg = StatusDegraded, "stale status"
		}
	}

	return CheckResult{
		Status:  status,
		Message: msg,
		Details: details,
		Latency: time.Since(start),
	}
}
