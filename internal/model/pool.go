package model

import "math/big"

// PoolIdentity names a V3 pool by its token pair and fee tier. Token order is
// canonicalized (ascending) before address derivation.
type PoolIdentity struct {
	TokenA  string `json:"token_a"`
	TokenB  string `json:"token_b"`
	FeeTier uint32 `json:"fee_tier"`
}

// PoolState is a point-in-time snapshot of a V3 pool. Big values stay as
// big.Int; the HTTP layer renders them as decimal strings.
type PoolState struct {
	Address                string   `json:"address"`
	Token0                 string   `json:"token0"`
	Token1                 string   `json:"token1"`
	FeeTier                uint32   `json:"fee_tier"`
	SqrtPriceX96           *big.Int `json:"-"`
	Tick                   int32    `json:"tick"`
	Liquidity              *big.Int `json:"-"`
	ObservationIndex       uint16   `json:"observation_index"`
	ObservationCardinality uint16   `json:"observation_cardinality"`
}
