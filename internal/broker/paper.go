package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/betbot/equityorder/internal/domain"
	"github.com/betbot/equityorder/internal/ports"
)

var log = logrus.WithField("component", "broker")

// PlacedOrder 已提交的订单
type PlacedOrder struct {
	ID         string
	EquityCode string
	Side       domain.Side
	Quantity   int
	Price      decimal.Decimal
	CreatedAt  time.Time
}

// Paper 纸交易（dry run）下单后端：只在内存中记录订单，不接触交易所。
type Paper struct {
	mu       sync.Mutex
	orders   []PlacedOrder
	failNext int
	failErr  error
}

var _ ports.OrderService = (*Paper)(nil)

func NewPaper() *Paper { return &Paper{} }

func (p *Paper) Buy(ctx context.Context, equityCode string, quantity int, price decimal.Decimal) error {
	return p.place(ctx, domain.SideBuy, equityCode, quantity, price)
}

func (p *Paper) Sell(ctx context.Context, equityCode string, quantity int, price decimal.Decimal) error {
	return p.place(ctx, domain.SideSell, equityCode, quantity, price)
}

// FailNext 让接下来 n 次下单返回 err（err 为 nil 时使用 ErrRejected）
func (p *Paper) FailNext(n int, err error) {
	if err == nil {
		err = ErrRejected
	}
	p.mu.Lock()
	p.failNext = n
	p.failErr = err
	p.mu.Unlock()
}

// Orders 返回已记录订单的副本
func (p *Paper) Orders() []PlacedOrder {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PlacedOrder, len(p.orders))
	copy(out, p.orders)
	return out
}

func (p *Paper) place(ctx context.Context, side domain.Side, equityCode string, quantity int, price decimal.Decimal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if quantity <= 0 {
		return fmt.Errorf("下单数量必须大于 0: %d", quantity)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failNext > 0 {
		p.failNext--
		return p.failErr
	}

	o := PlacedOrder{
		ID:         uuid.NewString(),
		EquityCode: equityCode,
		Side:       side,
		Quantity:   quantity,
		Price:      price,
		CreatedAt:  time.Now().UTC(),
	}
	p.orders = append(p.orders, o)
	log.Infof("📝 [DryRun] 模拟下单: id=%s %s %s qty=%d price=%s", o.ID, side, equityCode, quantity, price)
	return nil
}
