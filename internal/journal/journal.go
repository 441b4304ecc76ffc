package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/betbot/equityorder/internal/events"
)

var log = logrus.WithField("component", "journal")

// 定长时间格式，保证按字符串排序即按时间排序
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Kind 事件类型
type Kind string

const (
	KindPlaced  Kind = "placed"
	KindErrored Kind = "errored"
)

// Record 一条下单事件记录
type Record struct {
	ID         string
	Trigger    string
	Kind       Kind
	EquityCode string
	Quantity   int
	Price      decimal.Decimal
	Cause      string
	CreatedAt  time.Time
}

// Store 下单事件审计日志（SQLite，只写入，不用于恢复触发器状态）。
// 实现 events.OrderPlacedHandler / events.OrderErroredHandler。
type Store struct {
	db *sql.DB
}

var (
	_ events.OrderPlacedHandler  = (*Store)(nil)
	_ events.OrderErroredHandler = (*Store)(nil)
)

// Open 打开（或创建）journal 数据库
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("journal: path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`
CREATE TABLE IF NOT EXISTS order_events (
  id TEXT PRIMARY KEY,
  trigger_name TEXT NOT NULL,
  kind TEXT NOT NULL,        -- "placed" | "errored"
  equity_code TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  price TEXT NOT NULL,       -- decimal string
  cause TEXT,
  created_at TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS idx_order_events_code_ts ON order_events(equity_code, created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Attach 把 Store 注册为下单事件观察者
func (s *Store) Attach(d *events.Dispatcher) (events.Subscription, events.Subscription) {
	return d.OnOrderPlaced(s), d.OnOrderErrored(s)
}

func (s *Store) OnOrderPlaced(ctx context.Context, e *events.OrderPlacedEvent) error {
	return s.insert(ctx, Record{
		ID:         e.ID,
		Trigger:    e.Trigger,
		Kind:       KindPlaced,
		EquityCode: e.EquityCode,
		Quantity:   e.Quantity,
		Price:      e.Price,
		CreatedAt:  e.Timestamp,
	})
}

func (s *Store) OnOrderErrored(ctx context.Context, e *events.OrderErroredEvent) error {
	return s.insert(ctx, Record{
		ID:         e.ID,
		Trigger:    e.Trigger,
		Kind:       KindErrored,
		EquityCode: e.EquityCode,
		Quantity:   e.Quantity,
		Price:      e.Price,
		Cause:      e.CauseMessage(),
		CreatedAt:  e.Timestamp,
	})
}

func (s *Store) insert(ctx context.Context, r Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO order_events (id, trigger_name, kind, equity_code, quantity, price, cause, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Trigger, string(r.Kind), r.EquityCode, r.Quantity, r.Price.String(), nullString(r.Cause),
		r.CreatedAt.UTC().Format(tsLayout),
	)
	if err != nil {
		return fmt.Errorf("journal insert %s: %w", r.ID, err)
	}
	log.Debugf("journal: %s %s %s price=%s", r.Kind, r.Trigger, r.EquityCode, r.Price)
	return nil
}

// Records 按写入时间返回所有记录（巡检/测试用）
func (s *Store) Records(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, trigger_name, kind, equity_code, quantity, price, cause, created_at
FROM order_events ORDER BY created_at, rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r       Record
			kind    string
			price   string
			cause   sql.NullString
			created string
		)
		if err := rows.Scan(&r.ID, &r.Trigger, &kind, &r.EquityCode, &r.Quantity, &price, &cause, &created); err != nil {
			return nil, err
		}
		r.Kind = Kind(kind)
		if r.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("journal: bad price %q: %w", price, err)
		}
		r.Cause = cause.String
		if r.CreatedAt, err = time.Parse(tsLayout, created); err != nil {
			return nil, fmt.Errorf("journal: bad timestamp %q: %w", created, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
