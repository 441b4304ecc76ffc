package events

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "event_dispatcher")

// OrderPlacedHandler 下单成功处理器
type OrderPlacedHandler interface {
	OnOrderPlaced(ctx context.Context, e *OrderPlacedEvent) error
}

// OrderErroredHandler 下单失败处理器
type OrderErroredHandler interface {
	OnOrderErrored(ctx context.Context, e *OrderErroredEvent) error
}

// OrderPlacedHandlerFunc 函数适配器
type OrderPlacedHandlerFunc func(ctx context.Context, e *OrderPlacedEvent) error

func (f OrderPlacedHandlerFunc) OnOrderPlaced(ctx context.Context, e *OrderPlacedEvent) error {
	return f(ctx, e)
}

// OrderErroredHandlerFunc 函数适配器
type OrderErroredHandlerFunc func(ctx context.Context, e *OrderErroredEvent) error

func (f OrderErroredHandlerFunc) OnOrderErrored(ctx context.Context, e *OrderErroredEvent) error {
	return f(ctx, e)
}

// Subscription 订阅句柄，用于取消订阅
type Subscription string

// FailureHook 处理器返回 error 或 panic 时回调（kind: order_placed / order_errored）
type FailureHook func(kind string)

type entry[H any] struct {
	id      Subscription
	handler H
}

// observerList 按注册顺序保存处理器
type observerList[H any] struct {
	mu      sync.RWMutex
	entries []entry[H]
}

func (l *observerList[H]) add(h H) Subscription {
	id := Subscription(uuid.NewString())
	l.mu.Lock()
	l.entries = append(l.entries, entry[H]{id: id, handler: h})
	l.mu.Unlock()
	return id
}

func (l *observerList[H]) remove(id Subscription) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, e := range l.entries {
		if e.id == id {
			l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
			return true
		}
	}
	return false
}

// snapshot 返回处理器快照（遍历时不持锁，允许回调中注册/取消订阅）
func (l *observerList[H]) snapshot() []entry[H] {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]entry[H], len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *observerList[H]) count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Dispatcher 同步事件分发器。
//
// - 处理器按注册顺序串行执行，Emit 在全部处理器返回后才返回
// - 注册/取消订阅有独立的锁，可与分发并发
// - 不回放：Emit 之后注册的处理器收不到之前的事件
// - 处理器返回 error 或 panic 只记录日志，不影响后续处理器
type Dispatcher struct {
	placed  observerList[OrderPlacedHandler]
	errored observerList[OrderErroredHandler]

	failures atomic.Int64
	onFail   FailureHook
}

// DispatcherOption 分发器选项
type DispatcherOption func(*Dispatcher)

// WithFailureHook 设置处理器失败回调（用于 metrics）
func WithFailureHook(hook FailureHook) DispatcherOption {
	return func(d *Dispatcher) { d.onFail = hook }
}

func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// OnOrderPlaced 注册下单成功处理器
func (d *Dispatcher) OnOrderPlaced(h OrderPlacedHandler) Subscription {
	return d.placed.add(h)
}

// OnOrderErrored 注册下单失败处理器
func (d *Dispatcher) OnOrderErrored(h OrderErroredHandler) Subscription {
	return d.errored.add(h)
}

// Unsubscribe 取消订阅，返回是否找到该订阅
func (d *Dispatcher) Unsubscribe(id Subscription) bool {
	if d.placed.remove(id) {
		return true
	}
	return d.errored.remove(id)
}

// Count 返回处理器数量（placed, errored）
func (d *Dispatcher) Count() (int, int) {
	return d.placed.count(), d.errored.count()
}

// Failures 返回处理器失败（error/panic）累计次数
func (d *Dispatcher) Failures() int64 {
	return d.failures.Load()
}

// EmitOrderPlaced 同步触发所有下单成功处理器
func (d *Dispatcher) EmitOrderPlaced(ctx context.Context, e *OrderPlacedEvent) {
	if e == nil {
		return
	}
	for i, s := range d.placed.snapshot() {
		if s.handler == nil {
			continue
		}
		h := s.handler
		d.invoke("order_placed", i, func() error { return h.OnOrderPlaced(ctx, e) })
	}
}

// EmitOrderErrored 同步触发所有下单失败处理器
func (d *Dispatcher) EmitOrderErrored(ctx context.Context, e *OrderErroredEvent) {
	if e == nil {
		return
	}
	for i, s := range d.errored.snapshot() {
		if s.handler == nil {
			continue
		}
		h := s.handler
		d.invoke("order_errored", i, func() error { return h.OnOrderErrored(ctx, e) })
	}
}

func (d *Dispatcher) invoke(kind string, idx int, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("%s 处理器 %d panic: %v", kind, idx, r)
			d.fail(kind)
		}
	}()
	if err := fn(); err != nil {
		log.Errorf("%s 处理器 %d 执行失败: %v", kind, idx, err)
		d.fail(kind)
	}
}

func (d *Dispatcher) fail(kind string) {
	d.failures.Add(1)
	if d.onFail != nil {
		d.onFail(kind)
	}
}
