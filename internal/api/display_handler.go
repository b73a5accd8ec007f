package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/prolite-gateway/internal/coremodel"
	"github.com/taoyao-code/prolite-gateway/internal/outbound"
	"github.com/taoyao-code/prolite-gateway/internal/poller"
	"github.com/taoyao-code/prolite-gateway/internal/protocol"
	"github.com/taoyao-code/prolite-gateway/internal/tcpclient"
)

// Display 处理器所需的设备能力，由 device.Device 实现
type Display interface {
	ID() string
	Protocol() coremodel.Protocol
	Addr() string
	ConnState() tcpclient.State
	Supports(cmd coremodel.Command) bool
	Get(ctx context.Context, cmd coremodel.Command) (string, error)
	Set(ctx context.Context, cmd coremodel.Command, v coremodel.Value) error
}

// StatusSource 轮询快照来源
type StatusSource interface {
	Snapshot() poller.Snapshot
}

// Waker 网络唤醒
type Waker interface {
	Wake(ctx context.Context, mac string) error
}

// DisplayHandler 显示器控制 API
type DisplayHandler struct {
	dev    Display
	status StatusSource // 未启用轮询时为 nil
	waker  Waker        // 未配置 MAC 时为 nil
	mac    string
	logger *zap.Logger
	// 单次请求的设备操作上限（含排队）
	opTimeout time.Duration
}

// NewDisplayHandler 创建处理器
func NewDisplayHandler(dev Display, status StatusSource, waker Waker, mac string, logger *zap.Logger) *DisplayHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DisplayHandler{
		dev:       dev,
		status:    status,
		waker:     waker,
		mac:       mac,
		logger:    logger,
		opTimeout: 10 * time.Second,
	}
}

// propertyView 属性读取结果
type propertyView struct {
	Property string `json:"property"`
	Code     string `json:"code"`
	Name     string `json:"name,omitempty"`
	Value    *int   `json:"value,omitempty"`
}

func newPropertyView(cmd coremodel.Command, code string) propertyView {
	v := propertyView{Property: cmd.String(), Code: code}
	if cmd.Scalar() {
		if n, err := strconv.Atoi(code); err == nil {
			v.Value = &n
		}
		return v
	}
	if name := coremodel.CodeName(cmd, code); name != code {
		v.Name = name
	}
	return v
}

// GetStatus 设备与轮询状态
// GET /api/v1/display/status
func (h *DisplayHandler) GetStatus(c *gin.Context) {
	resp := gin.H{
		"device_id":  h.dev.ID(),
		"protocol":   h.dev.Protocol(),
		"addr":       h.dev.Addr(),
		"connection": h.dev.ConnState().String(),
	}
	if h.status != nil {
		snap := h.status.Snapshot()
		resp["poll"] = snap
		if snap.Input != "" {
			resp["input"] = newPropertyView(coremodel.CmdVideoSource, string(snap.Input))
		}
		if snap.Power != "" {
			resp["power"] = newPropertyView(coremodel.CmdPower, string(snap.Power))
		}
	}
	c.JSON(http.StatusOK, resp)
}

// ListProperties 列出属性及当前协议是否支持
// GET /api/v1/display/properties
func (h *DisplayHandler) ListProperties(c *gin.Context) {
	list := make([]gin.H, 0, len(coremodel.Commands))
	for _, cmd := range coremodel.Commands {
		list = append(list, gin.H{
			"property":  cmd.String(),
			"scalar":    cmd.Scalar(),
			"supported": h.dev.Supports(cmd),
		})
	}
	c.JSON(http.StatusOK, gin.H{"protocol": h.dev.Protocol(), "properties": list})
}

// GetProperty 读取属性
// GET /api/v1/display/properties/:name
func (h *DisplayHandler) GetProperty(c *gin.Context) {
	cmd, ok := h.command(c)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.opTimeout)
	defer cancel()

	code, err := h.dev.Get(ctx, cmd)
	if err != nil {
		h.writeDeviceError(c, err)
		return
	}
	if cmd.Scalar() {
		if _, err := strconv.Atoi(code); err != nil {
			h.writeDeviceError(c, protocol.ErrUnknownResponse)
			return
		}
	}
	c.JSON(http.StatusOK, newPropertyView(cmd, code))
}

type setPropertyRequest struct {
	Value json.RawMessage `json:"value" binding:"required"`
}

// SetProperty 设置属性：数值属性传数字，枚举属性传名称或三位码
// PUT /api/v1/display/properties/:name
func (h *DisplayHandler) SetProperty(c *gin.Context) {
	cmd, ok := h.command(c)
	if !ok {
		return
	}
	var req setPropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	v, err := parseValue(cmd, req.Value)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_value", "message": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.opTimeout)
	defer cancel()
	if err := h.dev.Set(ctx, cmd, v); err != nil {
		h.writeDeviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"property": cmd.String(), "value": v.String(), "ok": true})
}

// Wake 发送网络唤醒包
// POST /api/v1/display/wake
func (h *DisplayHandler) Wake(c *gin.Context) {
	if h.waker == nil || h.mac == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "wol_unconfigured", "message": "device.mac is not configured"})
		return
	}
	if err := h.waker.Wake(c.Request.Context(), h.mac); err != nil {
		h.logger.Warn("wake-on-lan failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "wol_failed", "message": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"mac": h.mac, "sent": true})
}

func (h *DisplayHandler) command(c *gin.Context) (coremodel.Command, bool) {
	name := c.Param("name")
	cmd, ok := coremodel.ParseCommand(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown_property", "message": name})
		return 0, false
	}
	return cmd, true
}

var errValueType = errors.New("value type does not match property")

// parseValue 数值属性接受整数，枚举属性接受名称或三位码
func parseValue(cmd coremodel.Command, raw json.RawMessage) (coremodel.Value, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return coremodel.NoValue, errValueType
	}
	if cmd.Scalar() {
		var n int
		if err := json.Unmarshal(raw, &n); err != nil {
			return coremodel.NoValue, errValueType
		}
		return coremodel.Number(n), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return coremodel.NoValue, errValueType
	}
	code, ok := coremodel.LookupCode(cmd, s)
	if !ok {
		return coremodel.NoValue, errors.New("unknown value " + strconv.Quote(s) + " for " + cmd.String())
	}
	return coremodel.Code(code), nil
}

// writeDeviceError 设备错误到 HTTP 状态码
func (h *DisplayHandler) writeDeviceError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, protocol.ErrUnsupportedCommand):
		status, code = http.StatusNotImplemented, "unsupported_command"
	case errors.Is(err, protocol.ErrInvalidValue):
		status, code = http.StatusBadRequest, "invalid_value"
	case errors.Is(err, protocol.ErrNack):
		status, code = http.StatusConflict, "nack"
	case errors.Is(err, protocol.ErrChecksum):
		status, code = http.StatusBadGateway, "checksum"
	case errors.Is(err, protocol.ErrUnknownResponse):
		status, code = http.StatusBadGateway, "unknown_response"
	case errors.Is(err, outbound.ErrQueueClosed):
		status, code = http.StatusServiceUnavailable, "shutting_down"
	case protocol.IsConnError(err), errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, "device_unreachable"
	case errors.Is(err, context.Canceled):
		status, code = http.StatusServiceUnavailable, "canceled"
	}
	if status >= http.StatusInternalServerError {
		h.logger.Warn("display request failed", zap.String("path", c.Request.URL.Path), zap.Int("status", status), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": code, "message": err.Error()})
}
