package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Side 订单方向
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderParameters 触发下单参数
// 构造触发器时一次性传入，之后不可变。
type OrderParameters struct {
	PriceThreshold decimal.Decimal // 触发价（严格小于该价格才触发）
	Quantity       int             // 下单数量（股）
}

// NewOrderParameters 从字符串价格构造下单参数（配置/命令行使用）
func NewOrderParameters(priceThreshold string, quantity int) (OrderParameters, error) {
	p, err := decimal.NewFromString(strings.TrimSpace(priceThreshold))
	if err != nil {
		return OrderParameters{}, fmt.Errorf("解析触发价失败 %q: %w", priceThreshold, err)
	}
	params := OrderParameters{PriceThreshold: p, Quantity: quantity}
	if err := params.Validate(); err != nil {
		return OrderParameters{}, err
	}
	return params, nil
}

// Validate 验证参数
func (p OrderParameters) Validate() error {
	if !p.PriceThreshold.IsPositive() {
		return fmt.Errorf("触发价必须大于 0，当前=%s", p.PriceThreshold)
	}
	if p.Quantity <= 0 {
		return fmt.Errorf("下单数量必须大于 0，当前=%d", p.Quantity)
	}
	return nil
}

// Triggers 价格是否满足触发条件：price < PriceThreshold（等于不触发）
func (p OrderParameters) Triggers(price decimal.Decimal) bool {
	return price.LessThan(p.PriceThreshold)
}

func (p OrderParameters) String() string {
	return fmt.Sprintf("threshold=%s qty=%d", p.PriceThreshold, p.Quantity)
}
