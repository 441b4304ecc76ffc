package trigger

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/betbot/equityorder/internal/ports"
)

// Router 按股票代码把报价转发给绑定的 Gate（一个代码可以绑定多个 Gate）。
// 没有绑定 Gate 的代码直接丢弃。
type Router struct {
	mu    sync.RWMutex
	gates map[string][]*Gate
}

var _ ports.TickReceiver = (*Router)(nil)

func NewRouter() *Router {
	return &Router{gates: make(map[string][]*Gate)}
}

// Bind 把 gate 绑定到 equityCode
func (r *Router) Bind(equityCode string, g *Gate) {
	code := normalizeCode(equityCode)
	r.mu.Lock()
	r.gates[code] = append(r.gates[code], g)
	r.mu.Unlock()
}

// ReceiveTickContext 按绑定顺序依次转发
func (r *Router) ReceiveTickContext(ctx context.Context, equityCode string, price decimal.Decimal) {
	code := normalizeCode(equityCode)
	r.mu.RLock()
	gates := r.gates[code]
	r.mu.RUnlock()

	for _, g := range gates {
		g.ReceiveTickContext(ctx, code, price)
	}
}

// Gates 返回所有 Gate（按代码排序，便于输出汇总）
func (r *Router) Gates() []*Gate {
	r.mu.RLock()
	defer r.mu.RUnlock()

	codes := make([]string, 0, len(r.gates))
	for c := range r.gates {
		codes = append(codes, c)
	}
	sort.Strings(codes)

	var out []*Gate
	for _, c := range codes {
		out = append(out, r.gates[c]...)
	}
	return out
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
