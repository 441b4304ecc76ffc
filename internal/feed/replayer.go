package feed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/betbot/equityorder/internal/domain"
	"github.com/betbot/equityorder/internal/ports"
)

var log = logrus.WithField("component", "feed")

// Replayer 从 CSV 流读取报价并并发推送给 TickReceiver。
//
// 行格式：equity_code,price（空行、# 开头的行跳过）。
// 同一代码的报价固定分给同一个 worker，保证同代码内按文件顺序到达；
// 不同代码之间没有顺序保证。
type Replayer struct {
	workers int
}

func NewReplayer(workers int) *Replayer {
	if workers <= 0 {
		workers = 1
	}
	return &Replayer{workers: workers}
}

// ParseTick 解析一行 CSV 记录
func ParseTick(record []string) (domain.Tick, error) {
	if len(record) != 2 {
		return domain.Tick{}, fmt.Errorf("需要 2 列 (equity_code,price)，实际 %d 列", len(record))
	}
	code := strings.ToUpper(strings.TrimSpace(record[0]))
	if code == "" {
		return domain.Tick{}, fmt.Errorf("股票代码为空")
	}
	price, err := decimal.NewFromString(strings.TrimSpace(record[1]))
	if err != nil {
		return domain.Tick{}, fmt.Errorf("解析价格失败 %q: %w", record[1], err)
	}
	return domain.Tick{EquityCode: code, Price: price, ReceivedAt: time.Now()}, nil
}

// Run 读取 src 直到 EOF / ctx 取消 / 解析错误，返回已分发的报价数量。
// 返回前会等待所有已分发的报价处理完毕。
func (r *Replayer) Run(ctx context.Context, src io.Reader, recv ports.TickReceiver) (int, error) {
	queues := make([]chan domain.Tick, r.workers)
	var wg sync.WaitGroup
	for i := range queues {
		queues[i] = make(chan domain.Tick, 64)
		wg.Add(1)
		go func(q <-chan domain.Tick) {
			defer wg.Done()
			for t := range q {
				recv.ReceiveTickContext(ctx, t.EquityCode, t.Price)
			}
		}(queues[i])
	}
	defer func() {
		for _, q := range queues {
			close(q)
		}
		wg.Wait()
	}()

	reader := csv.NewReader(src)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	dispatched := 0
	for {
		if err := ctx.Err(); err != nil {
			return dispatched, err
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			log.Infof("报价回放结束，共分发 %d 笔", dispatched)
			return dispatched, nil
		}
		if err != nil {
			return dispatched, fmt.Errorf("读取报价失败: %w", err)
		}
		tick, err := ParseTick(record)
		if err != nil {
			line, _ := reader.FieldPos(0)
			return dispatched, fmt.Errorf("第 %d 行: %w", line, err)
		}

		select {
		case queues[r.worker(tick.EquityCode)] <- tick:
			dispatched++
		case <-ctx.Done():
			return dispatched, ctx.Err()
		}
	}
}

func (r *Replayer) worker(code string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(code))
	return int(h.Sum32() % uint32(r.workers))
}
