package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/swapbot/goswap/route/types"
)

// ListTokens 获取可兑换资产列表（本地缓存 5 分钟）
func (c *Client) ListTokens(ctx context.Context) ([]types.TokenDescriptor, error) {
	if c.tokenCache != nil {
		if tokens, ok := c.tokenCache.Get(); ok {
			return tokens, nil
		}
	}

	query := url.Values{}
	query.Set("source", querySource)

	data, err := c.transport.request(ctx, "GET", EndpointListTokens, query, nil)
	if err != nil {
		return nil, fmt.Errorf("获取资产列表失败: %w", err)
	}

	var tokens []types.TokenDescriptor
	if err := unmarshalData(data, &tokens); err != nil {
		return nil, err
	}
	if c.tokenCache != nil {
		c.tokenCache.Set(tokens)
	}
	return tokens, nil
}

// GetQuote 获取报价
// 返回的 Payload 是建单凭证，调用方必须原样转发，不得解释或修改
func (c *Client) GetQuote(ctx context.Context, inputAssetID, outputAssetID, amount string) (*types.Quote, error) {
	query := url.Values{}
	query.Set("inputMint", inputAssetID)
	query.Set("outputMint", outputAssetID)
	query.Set("amount", amount)
	query.Set("source", querySource)

	data, err := c.transport.request(ctx, "GET", EndpointGetQuote, query, nil)
	if err != nil {
		return nil, fmt.Errorf("获取报价失败: %w", err)
	}

	var quote types.Quote
	if err := unmarshalData(data, &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

// CreateOrder 创建兑换订单
// payload 必须来自同一流程里的报价；referral 为空时使用客户端级配置
func (c *Client) CreateOrder(ctx context.Context, payer, inputAssetID, outputAssetID, amount, payload, referral string) (*types.CreateOrderResponse, error) {
	if referral == "" {
		referral = c.referral
	}
	body := &types.CreateOrderRequest{
		Payer:       payer,
		InputMint:   inputAssetID,
		OutputMint:  outputAssetID,
		InputAmount: amount,
		Payload:     payload,
		Referral:    referral,
	}

	data, err := c.transport.request(ctx, "POST", EndpointCreateSwap, nil, body)
	if err != nil {
		return nil, fmt.Errorf("创建订单失败: %w", err)
	}

	var resp types.CreateOrderResponse
	if err := unmarshalData(data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetOrder 查询订单
func (c *Client) GetOrder(ctx context.Context, orderID string) (*types.SwapOrder, error) {
	data, err := c.transport.request(ctx, "GET", EndpointGetOrder+url.PathEscape(orderID), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("查询订单失败: %w", err)
	}

	var order types.SwapOrder
	if err := unmarshalData(data, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// SwapResult 一次兑换的结果
type SwapResult struct {
	Quote *types.Quote
	Order *types.CreateOrderResponse
	// PaymentURI 即 Order.Tx，方便调用方直接使用
	PaymentURI string
	// OrderID 从支付 URI 的 memo 解析出的订单号
	OrderID string
	// TraceID 从支付 URI 解析出的账本追踪号
	TraceID string
}

// ExecuteSwap 便捷组合：报价 → 建单
// 建单失败时报价直接丢弃即可（报价不在服务端持久化，无需补偿）
func (c *Client) ExecuteSwap(ctx context.Context, inputAssetID, outputAssetID, amount string) (*SwapResult, error) {
	quote, err := c.GetQuote(ctx, inputAssetID, outputAssetID, amount)
	if err != nil {
		return nil, err
	}

	order, err := c.CreateOrder(ctx, c.payer, inputAssetID, outputAssetID, amount, quote.Payload, "")
	if err != nil {
		return nil, err
	}

	result := &SwapResult{
		Quote:      quote,
		Order:      order,
		PaymentURI: order.Tx,
	}
	if pay, err := ParsePaymentURI(order.Tx); err == nil {
		result.OrderID = pay.OrderID()
		result.TraceID = pay.TraceID
	}
	return result, nil
}
