package types

// PriceRange 价格走势区间
type PriceRange string

const (
	PriceRange1D  PriceRange = "1D"
	PriceRange1W  PriceRange = "1W"
	PriceRange1M  PriceRange = "1M"
	PriceRangeYTD PriceRange = "YTD"
	PriceRangeALL PriceRange = "ALL"
)

// Valid 校验区间取值
func (r PriceRange) Valid() bool {
	switch r {
	case PriceRange1D, PriceRange1W, PriceRange1M, PriceRangeYTD, PriceRangeALL:
		return true
	}
	return false
}

// Market 市场行情快照
type Market struct {
	AssetID        string `json:"assetId"`
	Symbol         string `json:"symbol"`
	Name           string `json:"name"`
	CurrentPrice   string `json:"currentPrice"`
	PriceChange24h string `json:"priceChangePercentage24h"`
	MarketCap      string `json:"marketCap"`
	TotalVolume    string `json:"totalVolume"`
	High24h        string `json:"high24h"`
	Low24h         string `json:"low24h"`
	UpdatedAt      string `json:"updatedAt"`
}

// PricePoint 价格走势中的一个点
type PricePoint struct {
	Price    string `json:"price"`
	UnixTime int64  `json:"unix"`
}

// PriceHistory 价格走势
type PriceHistory struct {
	AssetID string       `json:"assetId"`
	Type    PriceRange   `json:"type"`
	Data    []PricePoint `json:"data"`
}
