package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/betbot/equityorder/internal/metrics"
	"github.com/betbot/equityorder/pkg/config"
	"github.com/betbot/equityorder/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "配置文件路径（支持 .yaml, .yml, .json）")
	ticksPath := flag.String("ticks", "-", "报价 CSV 文件（equity_code,price），- 表示标准输入")
	envFile := flag.String("env", ".env", "环境变量文件（不存在则忽略）")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "加载环境变量文件失败 %s: %v\n", *envFile, err)
	}

	if err := logger.InitDefault(); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		return 1
	}
	defer logger.Close()

	cfg, err := config.LoadFromFile(*configPath)
	if err != nil {
		logger.Errorf("加载配置失败: %v", err)
		return 2
	}

	logConfig := logger.Config{
		Level:      cfg.Log.Level,
		OutputFile: cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	}
	if err := logger.Init(logConfig); err != nil {
		logger.Errorf("初始化日志失败: %v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg)
	if err != nil {
		logger.Errorf("启动失败: %v", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if n := a.shutdown.Shutdown(shutdownCtx); n > 0 {
			logger.Warnf("⚠️ %d 个关闭回调失败", n)
		}
	}()

	if cfg.MetricsAddr != "" {
		srv, err := metrics.StartAsync(ctx, cfg.MetricsAddr)
		if err != nil {
			logger.Errorf("启动 metrics server 失败: %v", err)
			return 1
		}
		logger.Infof("📈 metrics: http://%s/metrics", srv.Addr)
		a.shutdown.OnShutdown("metrics", srv.Shutdown)
	}

	var src io.Reader = os.Stdin
	if *ticksPath != "-" && *ticksPath != "" {
		f, err := os.Open(*ticksPath)
		if err != nil {
			logger.Errorf("打开报价文件失败: %v", err)
			return 1
		}
		defer f.Close()
		src = f
	}

	n, err := a.replay(ctx, src)
	logger.Infof("报价回放结束，共 %d 条", n)
	a.summary(os.Stdout)
	if err != nil {
		logger.Errorf("报价回放失败: %v", err)
		return 1
	}
	return 0
}
