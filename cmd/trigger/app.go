package main

import (
	"context"
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"github.com/betbot/equityorder/internal/broker"
	"github.com/betbot/equityorder/internal/events"
	"github.com/betbot/equityorder/internal/execution"
	"github.com/betbot/equityorder/internal/feed"
	"github.com/betbot/equityorder/internal/journal"
	"github.com/betbot/equityorder/internal/metrics"
	"github.com/betbot/equityorder/internal/ports"
	"github.com/betbot/equityorder/internal/trigger"
	"github.com/betbot/equityorder/pkg/config"
	"github.com/betbot/equityorder/pkg/logger"
	"github.com/betbot/equityorder/pkg/shutdown"
)

// app 一次运行所需的全部组件
type app struct {
	cfg        *config.Config
	svc        ports.OrderService
	dispatcher *events.Dispatcher
	router     *trigger.Router
	journal    *journal.Store
	replayer   *feed.Replayer
	shutdown   *shutdown.Manager
}

func newApp(cfg *config.Config) (*app, error) {
	a := &app{
		cfg:      cfg,
		router:   trigger.NewRouter(),
		replayer: feed.NewReplayer(cfg.FeedWorkers),
		shutdown: shutdown.NewManager(),
	}

	if cfg.DryRun {
		logger.Info("📝 [DryRun] 使用纸交易下单服务")
		a.svc = broker.NewPaper()
	} else {
		logger.Infof("🔗 使用 HTTP 下单服务: %s", cfg.OrderService.Endpoint)
		a.svc = broker.NewHTTP(broker.HTTPConfig{
			Endpoint: cfg.OrderService.Endpoint,
			APIKey:   cfg.OrderService.APIKey,
			Timeout:  cfg.OrderService.Timeout,
		})
	}

	eventLog := logger.WithField("component", "app")
	a.dispatcher = events.NewDispatcher(events.WithFailureHook(metrics.ObserveObserverFailure))
	metrics.Observer{}.Attach(a.dispatcher)
	a.dispatcher.OnOrderPlaced(events.OrderPlacedHandlerFunc(func(_ context.Context, e *events.OrderPlacedEvent) error {
		eventLog.Infof("✅ [%s] 已下单: %s x%d @ %s", e.Trigger, e.EquityCode, e.Quantity, e.Price)
		return nil
	}))
	a.dispatcher.OnOrderErrored(events.OrderErroredHandlerFunc(func(_ context.Context, e *events.OrderErroredEvent) error {
		eventLog.Errorf("❌ [%s] 下单失败: %s x%d @ %s: %s", e.Trigger, e.EquityCode, e.Quantity, e.Price, e.CauseMessage())
		return nil
	}))

	if cfg.JournalPath != "" {
		store, err := journal.Open(cfg.JournalPath)
		if err != nil {
			return nil, fmt.Errorf("打开下单日志失败: %w", err)
		}
		store.Attach(a.dispatcher)
		a.journal = store
		a.shutdown.OnShutdown("journal", func(context.Context) error { return store.Close() })
	}

	var regOpts []execution.RegistryOption
	if cfg.RetainLockEntries {
		regOpts = append(regOpts, execution.WithRetainEntries())
	}
	var sharedLocks *execution.LockRegistry
	switch {
	case cfg.SharedLockRegistry && cfg.RetainLockEntries:
		sharedLocks = execution.NewLockRegistry(regOpts...)
	case cfg.SharedLockRegistry:
		sharedLocks = execution.Shared()
	}

	for _, tc := range cfg.Triggers {
		locks := sharedLocks
		if locks == nil {
			locks = execution.NewLockRegistry(regOpts...)
		}
		g := trigger.NewGate(a.svc, tc.Params,
			trigger.WithName(tc.Name),
			trigger.WithLockRegistry(locks),
			trigger.WithDispatcher(a.dispatcher),
			trigger.WithTickObserver(func(code string, _ decimal.Decimal, d trigger.Decision) {
				metrics.ObserveTick(code, string(d))
			}),
		)
		a.router.Bind(tc.EquityCode, g)
		logger.Infof("🎯 触发器 %s 已就绪: %s %s", tc.Name, tc.EquityCode, tc.Params)
	}

	return a, nil
}

// replay 把 src 中的报价回放给所有触发器
func (a *app) replay(ctx context.Context, src io.Reader) (int, error) {
	return a.replayer.Run(ctx, src, a.router)
}

// summary 输出每个触发器的最终状态
func (a *app) summary(w io.Writer) {
	for _, g := range a.router.Gates() {
		fmt.Fprintf(w, "%-20s %-8s %s\n", g.Name(), g.State(), g.Params())
	}
}
