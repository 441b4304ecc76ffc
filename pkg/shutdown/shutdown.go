package shutdown

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "shutdown")

// Handler 关闭处理函数，ctx 携带整体关闭期限
type Handler func(ctx context.Context) error

type namedHandler struct {
	name string
	fn   Handler
}

// Manager 优雅关闭管理器
type Manager struct {
	mu        sync.Mutex
	callbacks []namedHandler
	done      bool
}

// NewManager 创建新的关闭管理器
func NewManager() *Manager {
	return &Manager{}
}

// OnShutdown 注册关闭回调
func (m *Manager) OnShutdown(name string, handler Handler) {
	if handler == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, namedHandler{name: name, fn: handler})
}

// Shutdown 并发执行所有关闭回调（阻塞调用，只执行一次）
// ctx 应该带超时，超时后不再等待未完成的回调。返回失败的回调数量。
func (m *Manager) Shutdown(ctx context.Context) int {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return 0
	}
	m.done = true
	callbacks := m.callbacks
	m.mu.Unlock()

	if len(callbacks) == 0 {
		log.Info("没有注册的关闭回调")
		return 0
	}

	log.Infof("开始优雅关闭，共 %d 个回调", len(callbacks))

	var (
		wg       sync.WaitGroup
		failMu   sync.Mutex
		failures int
	)
	wg.Add(len(callbacks))
	for _, cb := range callbacks {
		go func(h namedHandler) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Errorf("关闭回调 %s panic: %v", h.name, r)
					failMu.Lock()
					failures++
					failMu.Unlock()
				}
			}()
			if err := h.fn(ctx); err != nil {
				log.WithError(err).Warnf("关闭回调 %s 失败", h.name)
				failMu.Lock()
				failures++
				failMu.Unlock()
			}
		}(cb)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("所有关闭回调已完成")
	case <-ctx.Done():
		log.Warnf("关闭超时: %v", ctx.Err())
		failMu.Lock()
		defer failMu.Unlock()
		return failures + 1
	}

	failMu.Lock()
	defer failMu.Unlock()
	return failures
}
