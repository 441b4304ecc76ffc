package broker

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/betbot/equityorder/internal/domain"
	"github.com/betbot/equityorder/internal/ports"
)

// ErrRejected 下单被后端拒绝
var ErrRejected = errors.New("order rejected")

// HTTPConfig HTTP 下单后端配置
type HTTPConfig struct {
	Endpoint string        // 例如 http://127.0.0.1:8080
	APIKey   string        // 可选，放在 X-API-Key 头
	Timeout  time.Duration // 单次请求超时，默认 10s
}

// HTTP 通过 REST 接口下单：POST {endpoint}/orders
type HTTP struct {
	client *resty.Client
}

var _ ports.OrderService = (*HTTP)(nil)

type orderRequest struct {
	EquityCode string `json:"equity_code"`
	Side       string `json:"side"`
	Quantity   int    `json:"quantity"`
	Price      string `json:"price"`
}

type orderResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

func NewHTTP(cfg HTTPConfig) *HTTP {
	host := strings.TrimSuffix(cfg.Endpoint, "/")
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	// 下单请求不做自动重试：失败直接返回给触发器
	client := resty.New().
		SetBaseURL(host).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "equityorder/1.0")
	if cfg.APIKey != "" {
		client.SetHeader("X-API-Key", cfg.APIKey)
	}
	return &HTTP{client: client}
}

func (h *HTTP) Buy(ctx context.Context, equityCode string, quantity int, price decimal.Decimal) error {
	return h.place(ctx, domain.SideBuy, equityCode, quantity, price)
}

func (h *HTTP) Sell(ctx context.Context, equityCode string, quantity int, price decimal.Decimal) error {
	return h.place(ctx, domain.SideSell, equityCode, quantity, price)
}

func (h *HTTP) place(ctx context.Context, side domain.Side, equityCode string, quantity int, price decimal.Decimal) error {
	var out orderResponse
	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(orderRequest{
			EquityCode: equityCode,
			Side:       string(side),
			Quantity:   quantity,
			Price:      price.String(),
		}).
		SetResult(&out).
		Post("/orders")
	if err != nil {
		return errors.Wrapf(err, "下单请求失败: %s %s", side, equityCode)
	}
	if resp.IsError() {
		return errors.Wrapf(ErrRejected, "status=%d body=%s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	log.Infof("📤 下单已提交: orderID=%s status=%s %s %s qty=%d price=%s",
		out.OrderID, out.Status, side, equityCode, quantity, price)
	return nil
}
