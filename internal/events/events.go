package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderPlacedEvent 下单成功事件
type OrderPlacedEvent struct {
	ID         string // 事件 ID（uuid）
	Trigger    string // 触发器名称
	EquityCode string
	Price      decimal.Decimal
	Quantity   int
	Timestamp  time.Time
}

// OrderErroredEvent 下单失败事件
// Cause 为下单后端返回的原始 error，不做包装。
type OrderErroredEvent struct {
	ID         string
	Trigger    string
	EquityCode string
	Price      decimal.Decimal
	Quantity   int
	Cause      error
	Timestamp  time.Time
}

// NewOrderPlacedEvent 创建下单成功事件
func NewOrderPlacedEvent(trigger, equityCode string, price decimal.Decimal, quantity int) *OrderPlacedEvent {
	return &OrderPlacedEvent{
		ID:         uuid.NewString(),
		Trigger:    trigger,
		EquityCode: equityCode,
		Price:      price,
		Quantity:   quantity,
		Timestamp:  time.Now(),
	}
}

// NewOrderErroredEvent 创建下单失败事件
func NewOrderErroredEvent(trigger, equityCode string, price decimal.Decimal, quantity int, cause error) *OrderErroredEvent {
	return &OrderErroredEvent{
		ID:         uuid.NewString(),
		Trigger:    trigger,
		EquityCode: equityCode,
		Price:      price,
		Quantity:   quantity,
		Cause:      cause,
		Timestamp:  time.Now(),
	}
}

// CauseMessage 返回原始错误信息（Cause 为 nil 时返回空字符串）
func (e *OrderErroredEvent) CauseMessage() string {
	if e == nil || e.Cause == nil {
		return ""
	}
	return e.Cause.Error()
}
