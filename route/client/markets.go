package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/swapbot/goswap/route/types"
)

// GetMarket 获取行情快照（本地缓存 30 秒）
func (c *Client) GetMarket(ctx context.Context, assetID string) (*types.Market, error) {
	if c.marketCache != nil {
		if m, ok := c.marketCache.Get(assetID); ok {
			return m, nil
		}
	}

	data, err := c.transport.request(ctx, "GET", EndpointGetMarket+url.PathEscape(assetID), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("获取行情失败: %w", err)
	}

	var market types.Market
	if err := unmarshalData(data, &market); err != nil {
		return nil, err
	}
	if c.marketCache != nil {
		c.marketCache.Set(assetID, &market)
	}
	return &market, nil
}

// GetPriceHistory 获取价格走势
func (c *Client) GetPriceHistory(ctx context.Context, assetID string, rng types.PriceRange) (*types.PriceHistory, error) {
	if !rng.Valid() {
		return nil, &types.ValidationError{Reason: fmt.Sprintf("非法的走势区间 %q", rng)}
	}

	query := url.Values{}
	query.Set("type", string(rng))

	data, err := c.transport.request(ctx, "GET", EndpointGetMarket+url.PathEscape(assetID)+endpointPriceHistorySuffix, query, nil)
	if err != nil {
		return nil, fmt.Errorf("获取价格走势失败: %w", err)
	}

	var history types.PriceHistory
	if err := unmarshalData(data, &history); err != nil {
		return nil, err
	}
	return &history, nil
}
