package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"defigateway/internal/model"
)

// DefaultAPIURL is the CoinGecko v3 API base.
const DefaultAPIURL = "https://api.coingecko.com/api/v3"

// Quote is the per-identifier payload of the simple price endpoint.
type Quote struct {
	USD          float64 `json:"usd"`
	Change24h    float64 `json:"usd_24h_change"`
	MarketCapUSD float64 `json:"usd_market_cap"`
	Volume24hUSD float64 `json:"usd_24h_vol"`
}

// CoinGecko is an HTTP client for the CoinGecko price API.
type CoinGecko struct {
	baseURL string
	client  *http.Client
}

// NewCoinGecko creates a client for the given API base URL.
func NewCoinGecko(baseURL string) *CoinGecko {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	return &CoinGecko{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SimplePrices fetches current USD quotes for the given identifiers in one call.
// Identifiers unknown to the upstream are simply absent from the result.
func (g *CoinGecko) SimplePrices(ctx context.Context, ids []string) (map[string]Quote, error) {
	if len(ids) == 0 {
		return map[string]Quote{}, nil
	}

	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)

	params := url.Values{}
	params.Add("ids", strings.Join(sorted, ","))
	params.Add("vs_currencies", "usd")
	params.Add("include_24hr_change", "true")
	params.Add("include_market_cap", "true")
	params.Add("include_24hr_vol", "true")

	var quotes map[string]Quote
	if err := g.getJSON(ctx, "/simple/price", params, &quotes); err != nil {
		return nil, err
	}
	return quotes, nil
}

type marketChartResponse struct {
	Prices [][2]float64 `json:"prices"`
}

// MarketChart fetches the historical USD price series for an identifier over
// the last N days, ordered as the upstream returns it.
func (g *CoinGecko) MarketChart(ctx context.Context, id string, days int) ([]model.PricePoint, error) {
	params := url.Values{}
	params.Add("vs_currency", "usd")
	params.Add("days", fmt.Sprintf("%d", days))

	var chart marketChartResponse
	if err := g.getJSON(ctx, "/coins/"+url.PathEscape(id)+"/market_chart", params, &chart); err != nil {
		return nil, err
	}

	points := make([]model.PricePoint, 0, len(chart.Prices))
	for _, pair := range chart.Prices {
		points = append(points, model.PricePoint{
			Timestamp: int64(pair[0]),
			USDPrice:  pair[1],
		})
	}
	return points, nil
}

func (g *CoinGecko) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	fullURL := fmt.Sprintf("%s%s?%s", g.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
