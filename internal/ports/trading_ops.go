package ports

import (
	"context"

	"github.com/shopspring/decimal"
)

// Small capability interfaces shared across layers (trigger/broker/feed).

// OrderService 下单后端。
// 触发器只调用 Buy；Sell 为后续卖出逻辑预留，核心不会调用。
// 任何非 nil error 都视为"下单失败"，不区分错误类型。
type OrderService interface {
	Buy(ctx context.Context, equityCode string, quantity int, price decimal.Decimal) error
	Sell(ctx context.Context, equityCode string, quantity int, price decimal.Decimal) error
}

// TickReceiver 接收行情的一方（Gate / Router）。
type TickReceiver interface {
	ReceiveTickContext(ctx context.Context, equityCode string, price decimal.Decimal)
}
