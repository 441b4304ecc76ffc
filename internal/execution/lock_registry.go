package execution

import (
	"hash/fnv"
	"sync"
)

// KeyLock 某个 key（股票代码）的互斥句柄。
type KeyLock struct {
	mu   sync.Mutex
	key  string
	refs int // 持有/等待该句柄的调用方数量，受所在 shard.mu 保护
}

func (l *KeyLock) Key() string { return l.key }
func (l *KeyLock) Lock()       { l.mu.Lock() }
func (l *KeyLock) Unlock()     { l.mu.Unlock() }

// LockRegistry 按 key 懒创建互斥句柄：
// - 相同 key 的并发调用方拿到同一个句柄
// - 不同 key 互不阻塞（分片 map，簿记只在各自 shard 上加锁）
//
// 条目带引用计数：AcquireOrCreate +1，Remove -1，归零才从 map 删除。
// 因此只要还有调用方持有或等待旧句柄，新来的调用方拿到的一定是同一个句柄；
// 不存在"刚删除就被重建、两个临界区同时运行"的窗口。
type LockRegistry struct {
	shards []lockShard
	retain bool
}

type lockShard struct {
	mu sync.Mutex
	m  map[string]*KeyLock
}

// RegistryOption LockRegistry 选项
type RegistryOption func(*LockRegistry)

// WithRetainEntries 条目创建后永不删除（key 集合固定时使用）
func WithRetainEntries() RegistryOption {
	return func(r *LockRegistry) { r.retain = true }
}

// WithShardCount 设置分片数量（默认 32）
func WithShardCount(n int) RegistryOption {
	return func(r *LockRegistry) {
		if n > 0 {
			r.shards = make([]lockShard, n)
		}
	}
}

// NewLockRegistry 创建 LockRegistry
func NewLockRegistry(opts ...RegistryOption) *LockRegistry {
	r := &LockRegistry{shards: make([]lockShard, 32)}
	for _, opt := range opts {
		opt(r)
	}
	for i := range r.shards {
		r.shards[i].m = make(map[string]*KeyLock)
	}
	return r
}

var shared = NewLockRegistry()

// Shared 返回进程级共享的 LockRegistry。
// 使用它的多个触发器在同一股票代码上会相互串行。
func Shared() *LockRegistry { return shared }

// AcquireOrCreate 返回 key 对应的句柄，不存在则原子地创建。
// 每次调用都必须有一次对应的 Remove。
func (r *LockRegistry) AcquireOrCreate(key string) *KeyLock {
	sh := r.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	l, ok := sh.m[key]
	if !ok {
		l = &KeyLock{key: key}
		sh.m[key] = l
	}
	l.refs++
	return l
}

// Remove 释放一次引用；没有其他调用方引用时删除条目。
// 已被其他调用方持有的句柄不受影响。
func (r *LockRegistry) Remove(key string) {
	sh := r.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	l, ok := sh.m[key]
	if !ok {
		return
	}
	if l.refs > 0 {
		l.refs--
	}
	if l.refs == 0 && !r.retain {
		delete(sh.m, key)
	}
}

// Lock 获取并锁定 key 的句柄，返回的 unlock 会 Remove 条目并解锁。
// unlock 可重复调用（只生效一次），适合 defer。
func (r *LockRegistry) Lock(key string) (unlock func()) {
	l := r.AcquireOrCreate(key)
	l.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.Remove(key)
			l.Unlock()
		})
	}
}

// Len 当前条目数量
func (r *LockRegistry) Len() int {
	n := 0
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.Lock()
		n += len(sh.m)
		sh.mu.Unlock()
	}
	return n
}

func (r *LockRegistry) shard(key string) *lockShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	idx := int(h.Sum32() % uint32(len(r.shards)))
	return &r.shards[idx]
}
