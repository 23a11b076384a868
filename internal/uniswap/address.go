package uniswap

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"defigateway/internal/model"
)

// FactoryAddress is the Uniswap V3 factory on Ethereum mainnet.
var FactoryAddress = common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984")

// poolInitCodeHash is the keccak256 of the V3 pool creation code. The CREATE2
// derivation below must match the factory byte for byte.
var poolInitCodeHash = common.HexToHash("0xe34f199b19b2b4f47f68442619d555527d244f78a3297ea89325f843f87b8b54")

// ComputePoolAddress derives the counterfactual V3 pool address for a token
// pair and fee tier. Token order is canonicalized ascending, so argument
// order does not matter.
func ComputePoolAddress(tokenA, tokenB string, feeTier uint32) (common.Address, error) {
	if !common.IsHexAddress(tokenA) {
		return common.Address{}, fmt.Errorf("%w: token %q", model.ErrInvalidAddress, tokenA)
	}
	if !common.IsHexAddress(tokenB) {
		return common.Address{}, fmt.Errorf("%w: token %q", model.ErrInvalidAddress, tokenB)
	}

	token0 := common.HexToAddress(tokenA)
	token1 := common.HexToAddress(tokenB)
	if bytes.Compare(token0.Bytes(), token1.Bytes()) > 0 {
		token0, token1 = token1, token0
	}

	// salt = keccak256(abi.encode(token0, token1, fee)): three 32-byte words.
	salt := crypto.Keccak256Hash(
		common.LeftPadBytes(token0.Bytes(), 32),
		common.LeftPadBytes(token1.Bytes(), 32),
		common.LeftPadBytes(new(big.Int).SetUint64(uint64(feeTier)).Bytes(), 32),
	)

	raw := crypto.Keccak256(
		[]byte{0xff},
		FactoryAddress.Bytes(),
		salt.Bytes(),
		poolInitCodeHash.Bytes(),
	)
	return common.BytesToAddress(raw[12:]), nil
}
