package app

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/taoyao-code/prolite-gateway/internal/metrics"
)

// NewMetrics 初始化注册表与应用指标；禁用时返回 nil 处理器，指标方法对 nil 安全
func NewMetrics(enable bool) (*prometheus.Registry, *metrics.AppMetrics, http.Handler) {
	if !enable {
		return nil, nil, nil
	}
	reg := metrics.NewRegistry()
	appm := metrics.NewAppMetrics(reg)
	return reg, appm, metrics.Handler(reg)
}
