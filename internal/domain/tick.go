package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tick 一笔行情报价
type Tick struct {
	EquityCode string
	Price      decimal.Decimal
	ReceivedAt time.Time
}
