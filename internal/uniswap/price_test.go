package uniswap

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"defigateway/internal/model"
)

func TestPriceFromSqrtPriceX96Unit(t *testing.T) {
	// sqrtPriceX96 = 2^96 encodes a 1:1 price at equal decimals
	sqrtPrice := new(big.Int).Lsh(big.NewInt(1), 96)

	price, err := PriceFromSqrtPriceX96(sqrtPrice, 18, 18)
	require.NoError(t, err)

	rat, ok := new(big.Rat).SetString(price)
	require.True(t, ok, "price %q is not decimal", price)
	assert.Zero(t, rat.Cmp(big.NewRat(1, 1)), "price %q != 1", price)
}

func TestPriceFromSqrtPriceX96Monotonic(t *testing.T) {
	base := new(big.Int).Lsh(big.NewInt(1), 96)

	previous := new(big.Rat)
	for i := 0; i < 5; i++ {
		sqrtPrice := new(big.Int).Add(base, new(big.Int).Mul(big.NewInt(int64(i)), big.NewInt(1e15)))
		price, err := PriceFromSqrtPriceX96(sqrtPrice, 18, 18)
		require.NoError(t, err)

		rat, ok := new(big.Rat).SetString(price)
		require.True(t, ok)
		assert.Equal(t, 1, rat.Cmp(previous), "price must increase with sqrtPriceX96")
		previous = rat
	}
}

func TestPriceFromSqrtPriceX96DecimalAdjustment(t *testing.T) {
	sqrtPrice := new(big.Int).Lsh(big.NewInt(1), 96)

	// 10^(dec0-dec1) scales the raw ratio: 6 vs 18 decimals shifts by 1e-12
	price, err := PriceFromSqrtPriceX96(sqrtPrice, 6, 18)
	require.NoError(t, err)

	rat, ok := new(big.Rat).SetString(price)
	require.True(t, ok)
	assert.Zero(t, rat.Cmp(big.NewRat(1, 1_000_000_000_000)), "price %q", price)
}

func TestPriceFromSqrtPriceX96LargeValueNoOverflow(t *testing.T) {
	// near the uint160 ceiling; the squared intermediate needs ~320 bits
	sqrtPrice := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 160), big.NewInt(1))

	price, err := PriceFromSqrtPriceX96(sqrtPrice, 18, 18)
	require.NoError(t, err)

	rat, ok := new(big.Rat).SetString(price)
	require.True(t, ok)
	assert.Equal(t, 1, rat.Cmp(big.NewRat(1, 1)))
}

func TestPriceFromSqrtPriceX96InvalidInput(t *testing.T) {
	_, err := PriceFromSqrtPriceX96(nil, 18, 18)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	_, err = PriceFromSqrtPriceX96(big.NewInt(-1), 18, 18)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	_, err = PriceFromSqrtPriceX96(big.NewInt(1), -1, 18)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}

func TestEstimateLiquidityAPYInRange(t *testing.T) {
	state := model.PoolState{
		Tick:      100,
		Liquidity: big.NewInt(1_000_000),
	}

	estimate := EstimateLiquidityAPY(state, -100, 200, 1_000_000, 3000)
	require.True(t, estimate.InRange)
	// fees24h = 1e6 * 3000/1e6 = 3000; apy = 3000 * 365 / 1e6 * 100
	assert.InDelta(t, 109.5, estimate.APY, 1e-9)
}

func TestEstimateLiquidityAPYOutOfRange(t *testing.T) {
	state := model.PoolState{
		Tick:      500,
		Liquidity: big.NewInt(1_000_000),
	}

	below := EstimateLiquidityAPY(state, 600, 700, 1e12, 3000)
	assert.False(t, below.InRange)
	assert.Zero(t, below.APY)

	above := EstimateLiquidityAPY(state, -700, -600, 1e12, 3000)
	assert.False(t, above.InRange)
	assert.Zero(t, above.APY)
}

func TestEstimateLiquidityAPYBoundaryTicks(t *testing.T) {
	state := model.PoolState{
		Tick:      100,
		Liquidity: big.NewInt(1_000_000),
	}

	atLower := EstimateLiquidityAPY(state, 100, 200, 1_000_000, 3000)
	assert.True(t, atLower.InRange)

	atUpper := EstimateLiquidityAPY(state, -100, 100, 1_000_000, 3000)
	assert.True(t, atUpper.InRange)
}
