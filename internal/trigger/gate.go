package trigger

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/betbot/equityorder/internal/domain"
	"github.com/betbot/equityorder/internal/events"
	"github.com/betbot/equityorder/internal/execution"
	"github.com/betbot/equityorder/internal/ports"
)

// Gate 单次触发的买入触发器。
//
// 收到第一笔 price < PriceThreshold 的报价时下一次买单，之后忽略所有报价。
// ReceiveTick 可被多个 goroutine 并发调用：
//   - 同一股票代码的报价经 LockRegistry 严格串行（按抢到锁的顺序）
//   - 不同股票代码的报价并行处理
//   - 闩锁在下单前翻转为 Fired，下单失败也不会复位
//   - 事件在释放该代码的锁之前同步分发
//
// 注意：不要在事件处理器里对同一股票代码再调用 ReceiveTick，会死锁。
type Gate struct {
	name       string
	svc        ports.OrderService
	params     domain.OrderParameters
	locks      *execution.LockRegistry
	dispatcher *events.Dispatcher
	onTick     TickObserver
	log        *logrus.Entry

	state atomic.Int32 // LatchState
}

var _ ports.TickReceiver = (*Gate)(nil)

// Option Gate 选项
type Option func(*Gate)

// WithName 设置触发器名称（日志/事件使用）
func WithName(name string) Option {
	return func(g *Gate) { g.name = name }
}

// WithLockRegistry 指定 LockRegistry。
// 默认每个 Gate 独享一个；传入 execution.Shared() 则与其他 Gate 在同一代码上串行。
func WithLockRegistry(r *execution.LockRegistry) Option {
	return func(g *Gate) {
		if r != nil {
			g.locks = r
		}
	}
}

// WithDispatcher 指定事件分发器（多个 Gate 可共享）
func WithDispatcher(d *events.Dispatcher) Option {
	return func(g *Gate) {
		if d != nil {
			g.dispatcher = d
		}
	}
}

// WithTickObserver 设置报价处理结果回调
func WithTickObserver(fn TickObserver) Option {
	return func(g *Gate) { g.onTick = fn }
}

// WithLogger 指定日志 entry
func WithLogger(entry *logrus.Entry) Option {
	return func(g *Gate) {
		if entry != nil {
			g.log = entry
		}
	}
}

// NewGate 创建触发器，初始状态 Armed。
// params 由调用方负责校验。
func NewGate(svc ports.OrderService, params domain.OrderParameters, opts ...Option) *Gate {
	g := &Gate{
		name:   "gate",
		svc:    svc,
		params: params,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.locks == nil {
		g.locks = execution.NewLockRegistry()
	}
	if g.dispatcher == nil {
		g.dispatcher = events.NewDispatcher()
	}
	if g.log == nil {
		g.log = logrus.WithField("component", "trigger")
	}
	g.log = g.log.WithField("trigger", g.name)
	return g
}

func (g *Gate) Name() string                   { return g.name }
func (g *Gate) Params() domain.OrderParameters { return g.params }
func (g *Gate) State() LatchState              { return LatchState(g.state.Load()) }

// OnOrderPlaced 订阅下单成功事件
func (g *Gate) OnOrderPlaced(h events.OrderPlacedHandler) events.Subscription {
	return g.dispatcher.OnOrderPlaced(h)
}

// OnOrderErrored 订阅下单失败事件
func (g *Gate) OnOrderErrored(h events.OrderErroredHandler) events.Subscription {
	return g.dispatcher.OnOrderErrored(h)
}

// Unsubscribe 取消订阅
func (g *Gate) Unsubscribe(id events.Subscription) bool {
	return g.dispatcher.Unsubscribe(id)
}

// ReceiveTick 处理一笔报价，不返回错误。
func (g *Gate) ReceiveTick(equityCode string, price decimal.Decimal) {
	g.ReceiveTickContext(context.Background(), equityCode, price)
}

// ReceiveTickContext 同 ReceiveTick，ctx 透传给下单后端。
// 等待锁的过程不可取消。
func (g *Gate) ReceiveTickContext(ctx context.Context, equityCode string, price decimal.Decimal) {
	unlock := g.locks.Lock(equityCode)
	defer unlock()

	if g.State() == Fired {
		g.observe(equityCode, price, DecisionLatched)
		return
	}
	if !g.params.Triggers(price) {
		g.observe(equityCode, price, DecisionAboveThreshold)
		return
	}
	// 不同代码的报价持有不同的锁，用 CAS 保证整个实例只下一次单
	if !g.state.CompareAndSwap(int32(Armed), int32(Fired)) {
		g.observe(equityCode, price, DecisionLatched)
		return
	}
	g.observe(equityCode, price, DecisionFired)

	g.log.Infof("🎯 触发买入: code=%s price=%s %s", equityCode, price, g.params)
	if err := g.buy(ctx, equityCode, price); err != nil {
		g.log.Warnf("❌ 买入失败: code=%s price=%s err=%v", equityCode, price, err)
		g.dispatcher.EmitOrderErrored(ctx, events.NewOrderErroredEvent(g.name, equityCode, price, g.params.Quantity, err))
		return
	}
	g.log.Infof("✅ 买入成功: code=%s price=%s qty=%d", equityCode, price, g.params.Quantity)
	g.dispatcher.EmitOrderPlaced(ctx, events.NewOrderPlacedEvent(g.name, equityCode, price, g.params.Quantity))
}

// buy 调用下单后端，后端 panic 转为 error，按下单失败处理
func (g *Gate) buy(ctx context.Context, equityCode string, price decimal.Decimal) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("下单后端 panic: %v", r)
		}
	}()
	return g.svc.Buy(ctx, equityCode, g.params.Quantity, price)
}

func (g *Gate) observe(equityCode string, price decimal.Decimal, d Decision) {
	if d != DecisionFired {
		g.log.Debugf("忽略报价: code=%s price=%s reason=%s", equityCode, price, d)
	}
	if g.onTick != nil {
		g.onTick(equityCode, price, d)
	}
}
