package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/swapbot/goswap/route/types"
)

// fakeOrders 按调用次数依次返回预设状态，超出后停在最后一个
type fakeOrders struct {
	states []types.OrderState
	calls  atomic.Int64
}

func (f *fakeOrders) GetOrder(_ context.Context, orderID string) (*types.SwapOrder, error) {
	n := int(f.calls.Add(1)) - 1
	if n >= len(f.states) {
		n = len(f.states) - 1
	}
	return &types.SwapOrder{OrderID: orderID, State: f.states[n]}, nil
}

// fakeLedger notFoundUntil 次调用内返回「无此交易」，之后按 state 返回
type fakeLedger struct {
	notFoundUntil int64
	state         string
	err           error
	calls         atomic.Int64
}

func (f *fakeLedger) FetchTransaction(_ context.Context, traceID string) (*LedgerTransaction, error) {
	n := f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	if n <= f.notFoundUntil {
		return nil, ErrLedgerNotFound
	}
	return &LedgerTransaction{TraceID: traceID, State: f.state}, nil
}

func waitDone(t *testing.T, tr *OrderTracker, timeout time.Duration) {
	t.Helper()
	select {
	case <-tr.Done():
	case <-time.After(timeout):
		t.Fatalf("跟踪器超时未结束, state=%s", tr.State())
	}
}

// 订单状态信号先到：success → Confirmed，且到终态后停止轮询
func TestOrderTracker_OrderStatusSignalWins(t *testing.T) {
	orders := &fakeOrders{states: []types.OrderState{
		types.OrderStatePending, types.OrderStatePending, types.OrderStateConfirmed,
	}}
	ledger := &fakeLedger{notFoundUntil: 1 << 30} // 账本永远查不到

	tr := NewOrderTracker(orders, ledger, "o-1", "t-1", 5*time.Millisecond)
	tr.Start(context.Background())
	waitDone(t, tr, 2*time.Second)

	if tr.State() != types.OrderStateConfirmed {
		t.Fatalf("state got=%s want=%s", tr.State(), types.OrderStateConfirmed)
	}

	// 终态后不得再有任何轮询
	ordersCalls := orders.calls.Load()
	ledgerCalls := ledger.calls.Load()
	time.Sleep(50 * time.Millisecond)
	if orders.calls.Load() != ordersCalls || ledger.calls.Load() != ledgerCalls {
		t.Fatalf("终态后仍在轮询: orders %d→%d, ledger %d→%d",
			ordersCalls, orders.calls.Load(), ledgerCalls, ledger.calls.Load())
	}
}

// 账本结算信号先到：spent → Confirmed，不必等订单状态翻转
func TestOrderTracker_LedgerSignalWins(t *testing.T) {
	orders := &fakeOrders{states: []types.OrderState{types.OrderStatePending}}
	ledger := &fakeLedger{notFoundUntil: 1, state: LedgerStateSpent}

	tr := NewOrderTracker(orders, ledger, "o-2", "t-2", 5*time.Millisecond)
	tr.Start(context.Background())
	waitDone(t, tr, 2*time.Second)

	if tr.State() != types.OrderStateConfirmed {
		t.Fatalf("state got=%s want=%s", tr.State(), types.OrderStateConfirmed)
	}
}

func TestOrderTracker_FailedIsTerminal(t *testing.T) {
	orders := &fakeOrders{states: []types.OrderState{
		types.OrderStatePending, types.OrderStateFailed,
	}}
	tr := NewOrderTracker(orders, nil, "o-3", "", 5*time.Millisecond)
	tr.Start(context.Background())
	waitDone(t, tr, 2*time.Second)

	if tr.State() != types.OrderStateFailed {
		t.Fatalf("state got=%s want=%s", tr.State(), types.OrderStateFailed)
	}
}

// 账本的意外错误只记录，轮询必须继续直到订单状态给出结果
func TestOrderTracker_LedgerErrorDoesNotStopPolling(t *testing.T) {
	orders := &fakeOrders{states: []types.OrderState{
		types.OrderStatePending, types.OrderStatePending, types.OrderStateConfirmed,
	}}
	ledger := &fakeLedger{err: errors.New("账本临时故障")}

	tr := NewOrderTracker(orders, ledger, "o-4", "t-4", 5*time.Millisecond)
	tr.Start(context.Background())
	waitDone(t, tr, 2*time.Second)

	if tr.State() != types.OrderStateConfirmed {
		t.Fatalf("state got=%s want=%s", tr.State(), types.OrderStateConfirmed)
	}
	if ledger.calls.Load() < 2 {
		t.Fatalf("账本出错后轮询应继续, calls=%d", ledger.calls.Load())
	}
}

// 拆除：Stop 后 Done 关闭，状态停留在非终态
func TestOrderTracker_Teardown(t *testing.T) {
	orders := &fakeOrders{states: []types.OrderState{types.OrderStatePending}}
	ledger := &fakeLedger{notFoundUntil: 1 << 30}

	tr := NewOrderTracker(orders, ledger, "o-5", "t-5", 5*time.Millisecond)
	tr.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	tr.Stop()
	waitDone(t, tr, time.Second)

	if tr.State().Terminal() {
		t.Fatalf("拆除不应产生终态, state=%s", tr.State())
	}
}

// PollNow 在长间隔下强制立即复查
func TestOrderTracker_PollNow(t *testing.T) {
	orders := &fakeOrders{states: []types.OrderState{
		types.OrderStatePending, types.OrderStateConfirmed,
	}}
	// 间隔一分钟：不靠 PollNow 测试必然超时
	tr := NewOrderTracker(orders, nil, "o-6", "", time.Minute)
	tr.Start(context.Background())

	// 等首次立即检查完成后再触发复查
	deadline := time.Now().Add(time.Second)
	for orders.calls.Load() < 1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	tr.PollNow()
	waitDone(t, tr, 2*time.Second)

	if tr.State() != types.OrderStateConfirmed {
		t.Fatalf("state got=%s want=%s", tr.State(), types.OrderStateConfirmed)
	}
}
