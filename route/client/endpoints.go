package client

// API 端点常量（固定线上契约，不得更改）
const (
	// Swap
	EndpointListTokens = "/web3/tokens"
	EndpointGetQuote   = "/web3/quote"
	EndpointCreateSwap = "/web3/swap"
	EndpointGetOrder   = "/web3/swap/orders/" // + orderId

	// Markets
	EndpointGetMarket          = "/markets/" // + assetId
	endpointPriceHistorySuffix = "/price-history"
)

// querySource 所有行情/报价请求固定携带的来源参数
const querySource = "mixin"
