package bootstrap

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/prolite-gateway/internal/api"
	"github.com/taoyao-code/prolite-gateway/internal/api/middleware"
	"github.com/taoyao-code/prolite-gateway/internal/app"
	cfgpkg "github.com/taoyao-code/prolite-gateway/internal/config"
	"github.com/taoyao-code/prolite-gateway/internal/health"
)

// 优雅关闭上限
const shutdownTimeout = 10 * time.Second

// Run 统一启动流程，收到 SIGINT/SIGTERM 后优雅退出
func Run(cfg *cfgpkg.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return RunContext(ctx, cfg, log)
}

// RunContext 启动全部组件并阻塞到 ctx 结束
func RunContext(ctx context.Context, cfg *cfgpkg.Config, log *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	instanceID := app.GenerateInstanceID()
	log = log.With(zap.String("instance_id", instanceID))
	log.Info("starting prolite gateway",
		zap.String("env", cfg.App.Env),
		zap.String("device", fmt.Sprintf("%s:%d", cfg.Device.Host, cfg.DevicePort())),
		zap.String("protocol", cfg.Device.Protocol))
	if out, err := cfg.Dump(); err == nil {
		log.Debug("effective config", zap.String("config", out))
	}

	// ========== 阶段1: 基础组件 ==========
	_, appm, metricsHandler := app.NewMetrics(cfg.Metrics.Enable)
	ready := health.New()

	// ========== 阶段2: 设备与轮询 ==========
	dev, err := app.NewDevice(cfg.Device, log, appm)
	if err != nil {
		return err
	}
	defer dev.Destroy()

	poll := app.NewPoller(cfg.Poller, dev, log, appm)
	sender, err := app.NewWaker(cfg.Device, cfg.WOL, log)
	if err != nil {
		return err
	}
	log.Info("device initialized",
		zap.String("device_id", dev.ID()),
		zap.Bool("poller", poll != nil),
		zap.Bool("wol", sender != nil))

	// ========== 阶段3: HTTP ==========
	healthAgg := app.NewHealthAggregator(dev, poll)
	httpSrv := app.NewHTTPServer(cfg, metricsHandler, ready.Ready, log)

	var (
		status api.StatusSource
		waker  api.Waker
	)
	if poll != nil {
		status = poll
	}
	if sender != nil {
		waker = sender
	}
	handler := api.NewDisplayHandler(dev, status, waker, cfg.Device.MAC, log)
	httpSrv.Register(func(r *gin.Engine) {
		authCfg := middleware.AuthConfig{
			APIKeys: cfg.API.AuthKeys,
			Enabled: cfg.API.AuthEnable,
		}
		api.RegisterDisplayRoutes(r, handler, authCfg, log)
		app.RegisterHealthRoutes(r, healthAgg)
	})

	errC := make(chan error, 1)
	go func() { errC <- httpSrv.Start() }()

	// ========== 阶段4: 轮询 ==========
	pollCtx, cancelPoll := context.WithCancel(ctx)
	pollDone := make(chan struct{})
	if poll != nil {
		go func() {
			defer close(pollDone)
			poll.Run(pollCtx)
		}()
	} else {
		close(pollDone)
	}

	ready.SetStarted(true)
	log.Info("all services ready", zap.String("http_addr", cfg.HTTP.Addr))

	// ========== 阶段5: 等待退出 ==========
	var runErr error
	select {
	case <-ctx.Done():
		log.Info("received shutdown signal, gracefully shutting down...")
	case runErr = <-errC:
		log.Error("http server error", zap.Error(runErr))
	}
	ready.SetDraining(true)

	cancelPoll()
	<-pollDone
	log.Info("poller stopped")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	log.Info("http server stopped")

	log.Info("shutdown complete")
	return runErr
}
