package model

// PriceRecord is a cached USD quote for one token symbol.
type PriceRecord struct {
	Symbol       string  `json:"symbol"`
	USDPrice     float64 `json:"usd_price"`
	Change24h    float64 `json:"change_24h"`
	MarketCapUSD float64 `json:"market_cap_usd"`
	Volume24hUSD float64 `json:"volume_24h_usd"`
	FetchedAt    int64   `json:"fetched_at"` // epoch millis
}

// PricePoint is one sample of a historical price series.
type PricePoint struct {
	Timestamp int64   `json:"timestamp"` // epoch millis
	USDPrice  float64 `json:"usd_price"`
}

// CacheStats reports cache introspection data.
type CacheStats struct {
	Size int      `json:"size"`
	Keys []string `json:"keys"`
}
