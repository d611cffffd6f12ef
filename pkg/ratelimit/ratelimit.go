package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"
)

// RateLimiter 速率限制器接口
type RateLimiter interface {
	Wait(ctx context.Context) error
	Allow() bool
	GetRemaining() int
}

// SlidingWindow 滑动窗口速率限制器
type SlidingWindow struct {
	limit      int           // 窗口内允许的请求数
	windowSize time.Duration // 窗口大小
	requests   []time.Time   // 请求时间戳
	mu         sync.Mutex
}

// NewSlidingWindow 创建新的滑动窗口速率限制器
func NewSlidingWindow(limit int, windowSize time.Duration) *SlidingWindow {
	return &SlidingWindow{
		limit:      limit,
		windowSize: windowSize,
		requests:   make([]time.Time, 0),
	}
}

// Allow 检查是否允许请求
func (sw *SlidingWindow) Allow() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-sw.windowSize)

	// 移除窗口外的请求
	valid := sw.requests[:0]
	for _, req := range sw.requests {
		if req.After(cutoff) {
			valid = append(valid, req)
		}
	}
	sw.requests = valid

	if len(sw.requests) >= sw.limit {
		return false
	}
	sw.requests = append(sw.requests, now)
	return true
}

// Wait 等待直到允许请求
func (sw *SlidingWindow) Wait(ctx context.Context) error {
	for {
		if sw.Allow() {
			return nil
		}

		sw.mu.Lock()
		oldest := time.Now()
		if len(sw.requests) > 0 {
			oldest = sw.requests[0]
		}
		waitTime := sw.windowSize - time.Since(oldest)
		sw.mu.Unlock()

		if waitTime <= 0 {
			waitTime = 50 * time.Millisecond
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitTime):
		}
	}
}

// GetRemaining 获取窗口内剩余请求数
func (sw *SlidingWindow) GetRemaining() int {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	cutoff := time.Now().Add(-sw.windowSize)
	valid := 0
	for _, req := range sw.requests {
		if req.After(cutoff) {
			valid++
		}
	}
	if remaining := sw.limit - valid; remaining > 0 {
		return remaining
	}
	return 0
}

// Manager 按请求类别分桶的限速管理器
// 写操作（建单）比读操作（报价、查单、行情）配额低得多
type Manager struct {
	limiters map[string]RateLimiter
	mu       sync.RWMutex
}

// NewManager 创建限速管理器
func NewManager() *Manager {
	m := &Manager{
		limiters: make(map[string]RateLimiter),
	}
	// 读：轮询订单 + 行情，写：建单
	m.limiters["read"] = NewSlidingWindow(300, 10*time.Second)
	m.limiters["write"] = NewSlidingWindow(30, 10*time.Second)
	return m
}

// group 由 HTTP method 推出类别
func group(method string) string {
	if strings.EqualFold(method, "GET") {
		return "read"
	}
	return "write"
}

// Wait 等待直到该类别允许请求
func (m *Manager) Wait(ctx context.Context, method string) error {
	return m.limiter(group(method)).Wait(ctx)
}

// Allow 检查该类别是否允许请求
func (m *Manager) Allow(method string) bool {
	return m.limiter(group(method)).Allow()
}

func (m *Manager) limiter(g string) RateLimiter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if l, ok := m.limiters[g]; ok {
		return l
	}
	return m.limiters["read"]
}
