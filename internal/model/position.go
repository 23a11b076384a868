package model

// Position is one valued holding reported by a position provider.
type Position struct {
	Protocol     string  `json:"protocol"`
	Symbol       string  `json:"symbol"`
	TokenAddress string  `json:"token_address"`
	AmountRaw    string  `json:"amount_raw"`
	Amount       float64 `json:"amount"`
	PriceUSD     float64 `json:"price_usd"`
	ValueUSD     float64 `json:"value_usd"`
}

// Portfolio aggregates positions across providers for one owner.
type Portfolio struct {
	Owner         string     `json:"owner"`
	Positions     []Position `json:"positions"`
	TotalValueUSD float64    `json:"total_value_usd"`
	FetchedAt     int64      `json:"fetched_at"` // epoch millis
}
