package uniswap

import (
	"fmt"
	"math/big"

	"defigateway/internal/model"
)

// LiquidityAPY is the simplified fee-yield estimate for a tick range.
type LiquidityAPY struct {
	APY     float64 `json:"apy"`
	InRange bool    `json:"in_range"`
}

var q192 = new(big.Int).Lsh(big.NewInt(1), 192)

// PriceFromSqrtPriceX96 converts a pool's fixed-point sqrt price into a
// decimal token1-per-token0 price rendered with token1Decimals precision.
// price = sqrtPriceX96^2 / 2^192, adjusted by 10^(dec0-dec1). All
// intermediate arithmetic stays in big integers; sqrtPriceX96 squared does
// not fit in any native type.
func PriceFromSqrtPriceX96(sqrtPriceX96 *big.Int, token0Decimals, token1Decimals int) (string, error) {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() < 0 {
		return "", fmt.Errorf("%w: sqrtPriceX96 must be a non-negative integer", model.ErrInvalidArgument)
	}
	if token0Decimals < 0 || token1Decimals < 0 {
		return "", fmt.Errorf("%w: token decimals must be non-negative", model.ErrInvalidArgument)
	}
	return priceRat(sqrtPriceX96, token0Decimals, token1Decimals).FloatString(token1Decimals), nil
}

func priceRat(sqrtPriceX96 *big.Int, token0Decimals, token1Decimals int) *big.Rat {
	num := new(big.Int).Mul(sqrtPriceX96, sqrtPriceX96)
	num.Mul(num, pow10(token0Decimals))

	den := new(big.Int).Mul(q192, pow10(token1Decimals))

	return new(big.Rat).SetFrac(num, den)
}

func pow10(exp int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil)
}

// EstimateLiquidityAPY computes the simplified in-range fee APY:
// fees24h = volume * feePpm / 1e6, apy = fees24h * 365 / liquidity * 100.
// The formula knowingly divides a USD amount by raw liquidity units; consumers
// depend on this specific simplified number.
func EstimateLiquidityAPY(state model.PoolState, tickLower, tickUpper int32, volume24hUSD float64, feeTierPpm uint32) LiquidityAPY {
	if state.Tick < tickLower || state.Tick > tickUpper {
		return LiquidityAPY{APY: 0, InRange: false}
	}

	fees24h := volume24hUSD * float64(feeTierPpm) / 1_000_000

	liquidity := 0.0
	if state.Liquidity != nil {
		liquidity, _ = new(big.Float).SetInt(state.Liquidity).Float64()
	}

	return LiquidityAPY{
		APY:     fees24h * 365 / liquidity * 100,
		InRange: true,
	}
}
