package trigger

import "github.com/shopspring/decimal"

// LatchState 触发器闩锁状态：Armed -> Fired，单向，不可复位
type LatchState int32

const (
	Armed LatchState = iota // 等待首个满足条件的报价
	Fired                   // 已尝试下单（无论成功或失败），后续报价全部忽略
)

func (s LatchState) String() string {
	switch s {
	case Armed:
		return "armed"
	case Fired:
		return "fired"
	default:
		return "unknown"
	}
}

// Decision 单笔报价的处理结果
type Decision string

const (
	DecisionFired          Decision = "fired"           // 本笔报价触发了下单
	DecisionAboveThreshold Decision = "above_threshold" // price >= 触发价
	DecisionLatched        Decision = "latched"         // 已触发过，忽略
)

// TickObserver 在临界区内按串行顺序回调每笔报价的处理结果（metrics / 测试使用）
type TickObserver func(equityCode string, price decimal.Decimal, decision Decision)
