package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/prolite-gateway/internal/api/middleware"
)

// RegisterDisplayRoutes 注册显示器控制路由
func RegisterDisplayRoutes(r *gin.Engine, h *DisplayHandler, authCfg middleware.AuthConfig, logger *zap.Logger) {
	if r == nil || h == nil {
		return
	}

	api := r.Group("/api/v1")
	api.Use(middleware.RequestID(logger))
	if authCfg.Enabled {
		api.Use(middleware.APIKeyAuth(authCfg, logger))
		logger.Info("api authentication enabled", zap.Int("api_keys_count", len(authCfg.APIKeys)))
	} else {
		logger.Warn("api authentication disabled - only for development!")
	}

	display := api.Group("/display")
	display.GET("/status", h.GetStatus)
	display.GET("/properties", h.ListProperties)
	display.GET("/properties/:name", h.GetProperty)
	display.PUT("/properties/:name", h.SetProperty)
	display.POST("/wake", h.Wake)

	logger.Info("display routes registered", zap.Int("endpoints", 5))
}
