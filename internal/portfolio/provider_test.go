package portfolio

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"defigateway/internal/model"
)

type stubProvider struct {
	protocol  string
	positions []model.Position
	err       error
}

func (p *stubProvider) Protocol() string { return p.protocol }

func (p *stubProvider) Positions(_ context.Context, _ string) ([]model.Position, error) {
	return p.positions, p.err
}

const testOwner = "0x1111111111111111111111111111111111111111"

func TestPortfolioAggregatesAcrossProviders(t *testing.T) {
	wallet := &stubProvider{
		protocol: "erc20",
		positions: []model.Position{
			{Protocol: "erc20", Symbol: "WETH", ValueUSD: 4000},
			{Protocol: "erc20", Symbol: "USDC", ValueUSD: 1500},
		},
	}
	lending := &stubProvider{
		protocol: "lending",
		positions: []model.Position{
			{Protocol: "lending", Symbol: "DAI", ValueUSD: 500},
		},
	}

	aggregator := NewAggregator(nil, wallet, lending)
	result, err := aggregator.Portfolio(context.Background(), testOwner)
	require.NoError(t, err)

	assert.Equal(t, testOwner, result.Owner)
	assert.Len(t, result.Positions, 3)
	assert.InDelta(t, 6000, result.TotalValueUSD, 1e-9)
	assert.NotZero(t, result.FetchedAt)
}

func TestPortfolioFailsOnAnyProviderError(t *testing.T) {
	healthy := &stubProvider{protocol: "erc20"}
	broken := &stubProvider{
		protocol: "lending",
		err:      errors.New("rpc down"),
	}

	aggregator := NewAggregator(nil, healthy, broken)
	_, err := aggregator.Portfolio(context.Background(), testOwner)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lending positions")
}

func TestPortfolioInvalidOwner(t *testing.T) {
	aggregator := NewAggregator(nil, &stubProvider{protocol: "erc20"})
	_, err := aggregator.Portfolio(context.Background(), "0xnope")
	assert.ErrorIs(t, err, model.ErrInvalidAddress)
}

func TestPortfolioNoProviders(t *testing.T) {
	aggregator := NewAggregator(nil)
	result, err := aggregator.Portfolio(context.Background(), testOwner)
	require.NoError(t, err)
	assert.Empty(t, result.Positions)
	assert.Zero(t, result.TotalValueUSD)
}

func TestParseTrackedTokens(t *testing.T) {
	tokens, err := ParseTrackedTokens([]string{
		"WETH=0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
		"USDC=0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
	})
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, "WETH", tokens[0].Symbol)
	assert.Equal(t, "USDC", tokens[1].Symbol)

	_, err = ParseTrackedTokens([]string{"missing-separator"})
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	_, err = ParseTrackedTokens([]string{"WETH=0x1234"})
	assert.ErrorIs(t, err, model.ErrInvalidAddress)
}
