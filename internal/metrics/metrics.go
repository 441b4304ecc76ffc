// Package metrics 触发器 Prometheus 指标：
//
//   - equityorder_ticks_total{equity_code,result}      报价处理结果（fired / above_threshold / latched）
//   - equityorder_orders_total{equity_code,outcome}    下单结果（placed / errored）
//   - equityorder_observer_failures_total{event}       事件处理器失败（error / panic）
//
// 在 init() 中注册到默认 registry，由 server.go 的 /metrics 暴露。
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/betbot/equityorder/internal/events"
)

var log = logrus.WithField("component", "metrics")

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "equityorder_ticks_total",
			Help: "Ticks handled by trigger gates, by decision",
		},
		[]string{"equity_code", "result"},
	)

	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "equityorder_orders_total",
			Help: "Buy attempts by outcome",
		},
		[]string{"equity_code", "outcome"},
	)

	ObserverFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "equityorder_observer_failures_total",
			Help: "Event observers that returned an error or panicked",
		},
		[]string{"event"},
	)
)

func init() {
	prometheus.MustRegister(TicksTotal, OrdersTotal, ObserverFailures)
}

// ObserveTick 记录一笔报价的处理结果
func ObserveTick(equityCode, result string) {
	TicksTotal.WithLabelValues(equityCode, result).Inc()
}

// ObserveObserverFailure 可直接作为 events.FailureHook
func ObserveObserverFailure(event string) {
	ObserverFailures.WithLabelValues(event).Inc()
}

// Observer 把下单事件计入 OrdersTotal
type Observer struct{}

var (
	_ events.OrderPlacedHandler  = Observer{}
	_ events.OrderErroredHandler = Observer{}
)

func (Observer) OnOrderPlaced(_ context.Context, e *events.OrderPlacedEvent) error {
	OrdersTotal.WithLabelValues(e.EquityCode, "placed").Inc()
	return nil
}

func (Observer) OnOrderErrored(_ context.Context, e *events.OrderErroredEvent) error {
	OrdersTotal.WithLabelValues(e.EquityCode, "errored").Inc()
	return nil
}

// Attach 注册到分发器
func (o Observer) Attach(d *events.Dispatcher) {
	d.OnOrderPlaced(o)
	d.OnOrderErrored(o)
}
