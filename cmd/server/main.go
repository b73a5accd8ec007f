package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/taoyao-code/prolite-gateway/internal/app/bootstrap"
	cfgpkg "github.com/taoyao-code/prolite-gateway/internal/config"
	"github.com/taoyao-code/prolite-gateway/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "config file path (default: $PROLITE_CONFIG or configs/example.yaml)")
	printConfig := flag.Bool("print-config", false, "print effective config and exit")
	flag.Parse()

	// 1) 加载配置
	cfg, err := cfgpkg.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *printConfig {
		out, err := cfg.Dump()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Print(out)
		return
	}

	// 2) 初始化日志
	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	// 3) 启动
	if err := bootstrap.Run(cfg, zap.L()); err != nil {
		zap.L().Error("gateway exited", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}
