package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/swapbot/goswap/pkg/logger"
	"github.com/swapbot/goswap/pkg/sigchan"
	"github.com/swapbot/goswap/route/types"
)

// OrderFetcher 订单查询（由 route/client.Client 满足）
type OrderFetcher interface {
	GetOrder(ctx context.Context, orderID string) (*types.SwapOrder, error)
}

// ErrLedgerNotFound 账本上还没有这笔交易
// 付款之前这是正常状态，调用方不得当作错误
var ErrLedgerNotFound = errors.New("账本无此交易")

// LedgerTransaction 账本交易
type LedgerTransaction struct {
	TraceID string
	State   string
}

// 账本交易状态
const (
	LedgerStatePending = "pending"
	LedgerStateSpent   = "spent"
)

// Settled 是否已入账结清
func (t *LedgerTransaction) Settled() bool {
	return t != nil && t.State == LedgerStateSpent
}

// LedgerClient 账本查询，订单完成的第二信号源
// 交易不存在时必须返回 ErrLedgerNotFound（可包装）
type LedgerClient interface {
	FetchTransaction(ctx context.Context, traceID string) (*LedgerTransaction, error)
}

// OrderTracker 单订单状态机：Created → Pending → {Confirmed | Failed}
//
// 两路独立信号都能推进状态：订单状态查询、账本结算查询，先到先赢；
// 同一订单的两路检查绝不并发执行；到达终态后立即停止全部轮询
type OrderTracker struct {
	orders   OrderFetcher
	ledger   LedgerClient
	orderID  string
	traceID  string
	interval time.Duration

	cancel  context.CancelFunc
	done    chan struct{}
	pollNow *sigchan.Chan
	started atomic.Bool

	// checking 防重入：一轮检查没跑完之前不允许下一轮进入
	checking atomic.Bool

	mu    sync.RWMutex
	state types.OrderState
}

// NewOrderTracker 创建订单跟踪器
// interval <= 0 时使用 5 秒
func NewOrderTracker(orders OrderFetcher, ledger LedgerClient, orderID, traceID string, interval time.Duration) *OrderTracker {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &OrderTracker{
		orders:   orders,
		ledger:   ledger,
		orderID:  orderID,
		traceID:  traceID,
		interval: interval,
		done:     make(chan struct{}),
		pollNow:  sigchan.New(1),
		state:    types.OrderStateCreated,
	}
}

// Start 启动轮询（立即做第一次检查，无初始延迟）
// 重复调用只有第一次生效
func (t *OrderTracker) Start(ctx context.Context) {
	if !t.started.CompareAndSwap(false, true) {
		return
	}
	ctx, t.cancel = context.WithCancel(ctx)
	go t.loop(ctx)
}

// Stop 停止轮询（幂等）
// 已发出的 HTTP 请求无法召回，只是不再消费其结果
func (t *OrderTracker) Stop() {
	if t.cancel != nil {
		t.cancel()
	}
}

// Done 轮询结束后关闭（终态或被拆除）
func (t *OrderTracker) Done() <-chan struct{} {
	return t.done
}

// OrderID 被跟踪的订单号
func (t *OrderTracker) OrderID() string {
	return t.orderID
}

// State 当前状态
func (t *OrderTracker) State() types.OrderState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// PollNow 请求立即做一次检查（比如刚发出付款之后）
func (t *OrderTracker) PollNow() {
	t.pollNow.Emit()
}

func (t *OrderTracker) loop(ctx context.Context) {
	defer close(t.done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	// 第一次检查立即执行
	if t.checkOnce(ctx) {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-t.pollNow.C():
		}
		if t.checkOnce(ctx) {
			return
		}
	}
}

// checkOnce 依次查两路信号，返回是否已到终态
func (t *OrderTracker) checkOnce(ctx context.Context) bool {
	if !t.checking.CompareAndSwap(false, true) {
		// 上一轮还在跑，跳过本轮
		return false
	}
	defer t.checking.Store(false)

	// 信号一：订单状态查询
	order, err := t.orders.GetOrder(ctx, t.orderID)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		logger.Warnf("订单 %s 状态查询失败: %v", t.orderID, err)
	} else if order.State.Terminal() {
		t.finish(order.State)
		return true
	} else {
		t.advance(order.State)
	}

	// 信号二：账本结算查询
	if t.ledger != nil && t.traceID != "" {
		tx, err := t.ledger.FetchTransaction(ctx, t.traceID)
		switch {
		case err == nil && tx.Settled():
			// 账本已结清即视为成功，不必等订单状态翻转
			t.finish(types.OrderStateConfirmed)
			return true
		case err == nil:
			// 交易存在但未结清，继续等
		case errors.Is(err, ErrLedgerNotFound):
			// 付款前的正常状态，不是错误，继续轮询
		case ctx.Err() != nil:
			return false
		default:
			// 意外错误只记录，轮询照常继续
			logger.Warnf("订单 %s 账本查询失败 (trace=%s): %v", t.orderID, t.traceID, err)
		}
	}
	return false
}

// advance 非终态推进（Created → Pending）
func (t *OrderTracker) advance(s types.OrderState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.Terminal() {
		return
	}
	if t.state == types.OrderStateCreated && s == types.OrderStatePending {
		t.state = types.OrderStatePending
	}
}

// finish 进入终态（终态不可逆），并停止轮询
func (t *OrderTracker) finish(s types.OrderState) {
	t.mu.Lock()
	if t.state.Terminal() {
		t.mu.Unlock()
		return
	}
	t.state = s
	t.mu.Unlock()

	logger.Infof("订单 %s 到达终态: %s", t.orderID, s)
	if t.cancel != nil {
		t.cancel()
	}
}
