package types

// Quote 报价结果
// Payload 是服务端返回的不透明凭证，建单时必须原样转发，客户端不得解释
type Quote struct {
	InputMint  string `json:"inputMint"`
	InAmount   string `json:"inAmount"`
	OutputMint string `json:"outputMint"`
	OutAmount  string `json:"outAmount"`
	Payload    string `json:"payload"`
}

// OrderState 订单状态
type OrderState string

const (
	OrderStateCreated   OrderState = "created"
	OrderStatePending   OrderState = "pending"
	OrderStateConfirmed OrderState = "success"
	OrderStateFailed    OrderState = "failed"
)

// Terminal 是否为终态（终态不可逆）
func (s OrderState) Terminal() bool {
	return s == OrderStateConfirmed || s == OrderStateFailed
}

// SwapOrder 兑换订单
type SwapOrder struct {
	OrderID        string     `json:"orderId"`
	UserID         string     `json:"userId"`
	AssetID        string     `json:"assetId"`
	ReceiveAssetID string     `json:"receiveAssetId"`
	Amount         string     `json:"amount"`
	ReceiveAmount  string     `json:"receiveAmount"`
	PaymentTraceID string     `json:"paymentTraceId"`
	State          OrderState `json:"state"`
}

// CreateOrderRequest POST /web3/swap 请求体（固定线上契约）
type CreateOrderRequest struct {
	Payer       string `json:"payer"`
	InputMint   string `json:"inputMint"`
	OutputMint  string `json:"outputMint"`
	InputAmount string `json:"inputAmount"`
	Payload     string `json:"payload"`
	Referral    string `json:"referral,omitempty"`
}

// CreateOrderResponse POST /web3/swap 响应
// Tx 是支付 URI，其 memo 参数即订单号
type CreateOrderResponse struct {
	Tx    string `json:"tx"`
	Quote Quote  `json:"quote"`
}
