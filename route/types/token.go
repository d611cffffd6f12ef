package types

// ChainDescriptor 链信息（只读参考数据）
type ChainDescriptor struct {
	ChainID  string `json:"chainId"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Icon     string `json:"icon"`
	Decimals int    `json:"decimals"`
}

// TokenDescriptor 可交换资产信息（只读参考数据）
type TokenDescriptor struct {
	AssetID string          `json:"assetId"`
	Symbol  string          `json:"symbol"`
	Name    string          `json:"name"`
	Icon    string          `json:"icon"`
	Chain   ChainDescriptor `json:"chain"`
}
