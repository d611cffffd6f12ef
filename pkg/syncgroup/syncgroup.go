package syncgroup

import (
	"sync"
)

// SyncGroup 是 sync.WaitGroup 的包装器
// 统一管理 Add/Done，避免调用方漏掉 Done 导致永久阻塞
type SyncGroup struct {
	wg sync.WaitGroup

	mu      sync.Mutex
	pending []func()
	running int
}

// NewSyncGroup 创建新的 SyncGroup
func NewSyncGroup() *SyncGroup {
	return &SyncGroup{}
}

// Add 登记一个待启动的函数
// 上一批还在运行时登记的函数会被丢弃，必须先 Wait
func (g *SyncGroup) Add(fn func()) {
	if fn == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running > 0 {
		return
	}
	g.pending = append(g.pending, fn)
}

// Run 启动所有已登记的函数，每个函数一个 goroutine
// 启动后清空登记列表，避免重复启动
func (g *SyncGroup) Run() {
	g.mu.Lock()
	if g.running > 0 {
		g.mu.Unlock()
		return
	}
	fns := g.pending
	g.pending = nil
	g.running = len(fns)
	g.mu.Unlock()

	for _, fn := range fns {
		g.wg.Add(1)
		go func(do func()) {
			defer func() {
				g.wg.Done()
				g.mu.Lock()
				g.running--
				g.mu.Unlock()
			}()
			do()
		}(fn)
	}
}

// Wait 等待当前批次的所有 goroutine 完成
func (g *SyncGroup) Wait() {
	g.wg.Wait()
}
