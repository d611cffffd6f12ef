package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/swapbot/goswap/pkg/logger"
	"github.com/swapbot/goswap/pkg/syncgroup"
	"github.com/swapbot/goswap/route/client"
	"github.com/swapbot/goswap/route/types"
)

// SwapExecutor 报价+建单（由 route/client.Client 满足）
type SwapExecutor interface {
	OrderFetcher
	ExecuteSwap(ctx context.Context, inputAssetID, outputAssetID, amount string) (*client.SwapResult, error)
}

// BulkSource 集中兑换的一个源资产
type BulkSource struct {
	AssetID string
	// Amount 持有量（十进制字符串）
	Amount string
}

// SplitLeg 分散兑换的一个目标
type SplitLeg struct {
	AssetID string
	// Percent 分配百分比（十进制，所有 leg 之和必须恰好为 100）
	Percent decimal.Decimal
}

// TrackedOrder 已创建并在跟踪中的订单
type TrackedOrder struct {
	InputAssetID  string
	OutputAssetID string
	Amount        string
	Result        *client.SwapResult
	Tracker       *OrderTracker
}

// OrderFailure 单笔建单失败
type OrderFailure struct {
	InputAssetID  string
	OutputAssetID string
	Amount        string
	Err           error
}

// Batch 一次批量兑换
// 建单失败互相隔离：失败的记入 CreateFailures，成功的照常跟踪
type Batch struct {
	ID             string
	Orders         []*TrackedOrder
	CreateFailures []OrderFailure
}

// BatchResult 批次聚合结果
type BatchResult struct {
	Confirmed []*TrackedOrder
	Failed    []*TrackedOrder
	// CreateFailures 建单阶段就失败的（没有订单产生）
	CreateFailures []OrderFailure
	// PartiallyFailed 有任何失败即为 true；已完成的订单仍然有效，没有全局回滚
	PartiallyFailed bool
}

// Wait 等待批次内所有跟踪器到达终态并聚合
// ctx 取消时返回当前已知状态
func (b *Batch) Wait(ctx context.Context) *BatchResult {
	for _, o := range b.Orders {
		select {
		case <-o.Tracker.Done():
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}

	result := &BatchResult{CreateFailures: b.CreateFailures}
	for _, o := range b.Orders {
		if o.Tracker.State() == types.OrderStateConfirmed {
			result.Confirmed = append(result.Confirmed, o)
		} else {
			result.Failed = append(result.Failed, o)
		}
	}
	result.PartiallyFailed = len(result.Failed) > 0 || len(result.CreateFailures) > 0
	return result
}

// Teardown 拆除批次：停掉所有订单的轮询
// 已发出的请求只是不再消费结果，不存在飞行中取消
func (b *Batch) Teardown() {
	for _, o := range b.Orders {
		o.Tracker.Stop()
	}
}

// BatchSwapCoordinator 批量兑换协调器
// 两种分配模式：集中（多源 → 单目标）与分散（单源 → 多目标按百分比）
type BatchSwapCoordinator struct {
	svc      SwapExecutor
	ledger   LedgerClient
	interval time.Duration
}

// NewBatchSwapCoordinator 创建协调器
func NewBatchSwapCoordinator(svc SwapExecutor, ledger LedgerClient, pollInterval time.Duration) *BatchSwapCoordinator {
	return &BatchSwapCoordinator{
		svc:      svc,
		ledger:   ledger,
		interval: pollInterval,
	}
}

var hundred = decimal.NewFromInt(100)

// ValidateBulkPlan 集中模式前置校验（任何网络调用之前执行）
func ValidateBulkPlan(sources []BulkSource, percent decimal.Decimal, targetAssetID string) error {
	if len(sources) == 0 {
		return &types.ValidationError{Reason: "源资产列表为空"}
	}
	if targetAssetID == "" {
		return &types.ValidationError{Reason: "缺少目标资产"}
	}
	if percent.LessThanOrEqual(decimal.Zero) || percent.GreaterThan(hundred) {
		return &types.ValidationError{Reason: fmt.Sprintf("兑换比例必须在 (0, 100] 内: %s", percent)}
	}
	for _, src := range sources {
		if src.AssetID == targetAssetID {
			return &types.ValidationError{Reason: fmt.Sprintf("资产 %s 同时是源和目标", src.AssetID)}
		}
		amt, err := decimal.NewFromString(src.Amount)
		if err != nil || amt.LessThanOrEqual(decimal.Zero) {
			return &types.ValidationError{Reason: fmt.Sprintf("资产 %s 的数量非法: %q", src.AssetID, src.Amount)}
		}
	}
	return nil
}

// ValidateSplitPlan 分散模式前置校验：百分比之和必须恰好为 100
func ValidateSplitPlan(sourceAssetID, amount string, legs []SplitLeg) error {
	if len(legs) == 0 {
		return &types.ValidationError{Reason: "目标列表为空"}
	}
	amt, err := decimal.NewFromString(amount)
	if err != nil || amt.LessThanOrEqual(decimal.Zero) {
		return &types.ValidationError{Reason: fmt.Sprintf("源数量非法: %q", amount)}
	}
	sum := decimal.Zero
	for _, leg := range legs {
		if leg.AssetID == sourceAssetID {
			return &types.ValidationError{Reason: fmt.Sprintf("资产 %s 同时是源和目标", leg.AssetID)}
		}
		if leg.Percent.LessThanOrEqual(decimal.Zero) {
			return &types.ValidationError{Reason: fmt.Sprintf("资产 %s 的百分比必须为正: %s", leg.AssetID, leg.Percent)}
		}
		sum = sum.Add(leg.Percent)
	}
	if !sum.Equal(hundred) {
		return &types.ValidationError{Reason: fmt.Sprintf("百分比之和必须恰好为 100，当前 %s", sum)}
	}
	return nil
}

// ExecuteBulk 集中兑换：每个源资产按同一比例换成目标资产，各成一单
// 订单并发创建，单笔失败不阻塞其余
func (c *BatchSwapCoordinator) ExecuteBulk(ctx context.Context, sources []BulkSource, percent decimal.Decimal, targetAssetID string) (*Batch, error) {
	if err := ValidateBulkPlan(sources, percent, targetAssetID); err != nil {
		return nil, err
	}

	legs := make([]swapLeg, 0, len(sources))
	for _, src := range sources {
		amt, _ := decimal.NewFromString(src.Amount)
		legs = append(legs, swapLeg{
			input:  src.AssetID,
			output: targetAssetID,
			amount: allocate(amt, percent),
		})
	}
	return c.execute(ctx, legs), nil
}

// ExecuteSplit 分散兑换：单源按百分比拆给多个目标，各成一单
func (c *BatchSwapCoordinator) ExecuteSplit(ctx context.Context, sourceAssetID, amount string, legs []SplitLeg) (*Batch, error) {
	if err := ValidateSplitPlan(sourceAssetID, amount, legs); err != nil {
		return nil, err
	}

	amt, _ := decimal.NewFromString(amount)
	swapLegs := make([]swapLeg, 0, len(legs))
	for _, leg := range legs {
		swapLegs = append(swapLegs, swapLeg{
			input:  sourceAssetID,
			output: leg.AssetID,
			amount: allocate(amt, leg.Percent),
		})
	}
	return c.execute(ctx, swapLegs), nil
}

type swapLeg struct {
	input  string
	output string
	amount string
}

// allocate amount × percent / 100
// 十进制运算，结果截断到账本支持的 8 位小数，余量留在源资产里
func allocate(amount, percent decimal.Decimal) string {
	return amount.Mul(percent).Div(hundred).Truncate(8).String()
}

// execute 并发建单并为每笔成功的订单挂上跟踪器
func (c *BatchSwapCoordinator) execute(ctx context.Context, legs []swapLeg) *Batch {
	batch := &Batch{ID: uuid.NewString()}
	logger.Infof("批次 %s 开始，共 %d 单", batch.ID, len(legs))

	var mu sync.Mutex
	sg := syncgroup.NewSyncGroup()
	for _, leg := range legs {
		leg := leg
		sg.Add(func() {
			result, err := c.svc.ExecuteSwap(ctx, leg.input, leg.output, leg.amount)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// 单笔失败只记录，不影响其余订单
				logger.Errorf("批次 %s 建单失败 %s→%s (%s): %v", batch.ID, leg.input, leg.output, leg.amount, err)
				batch.CreateFailures = append(batch.CreateFailures, OrderFailure{
					InputAssetID:  leg.input,
					OutputAssetID: leg.output,
					Amount:        leg.amount,
					Err:           err,
				})
				return
			}

			tracker := NewOrderTracker(c.svc, c.ledger, result.OrderID, result.TraceID, c.interval)
			tracker.Start(ctx)
			batch.Orders = append(batch.Orders, &TrackedOrder{
				InputAssetID:  leg.input,
				OutputAssetID: leg.output,
				Amount:        leg.amount,
				Result:        result,
				Tracker:       tracker,
			})
		})
	}
	sg.Run()
	sg.Wait()

	logger.Infof("批次 %s 建单完成: 成功 %d, 失败 %d", batch.ID, len(batch.Orders), len(batch.CreateFailures))
	return batch
}
