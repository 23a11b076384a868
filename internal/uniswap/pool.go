package uniswap

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"defigateway/internal/model"
)

// ContractCaller is the read-only chain surface the reader needs.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

// Reader fetches V3 pool state over a chain RPC collaborator. It performs no
// retries; retry policy belongs to the RPC layer.
type Reader struct {
	caller ContractCaller
	logger *zap.Logger
}

// NewReader builds a pool state reader.
func NewReader(caller ContractCaller, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{caller: caller, logger: logger}
}

// PoolState derives the pool address for an identity and snapshots its state.
// The four reads (slot0, liquidity, token0, token1) run concurrently and the
// snapshot is all-or-nothing.
func (r *Reader) PoolState(ctx context.Context, identity model.PoolIdentity) (model.PoolState, error) {
	pool, err := ComputePoolAddress(identity.TokenA, identity.TokenB, identity.FeeTier)
	if err != nil {
		return model.PoolState{}, err
	}

	code, err := r.caller.CodeAt(ctx, pool, nil)
	if err != nil {
		return model.PoolState{}, fmt.Errorf("%w: code at %s: %v", model.ErrRPCUnavailable, pool.Hex(), err)
	}
	if len(code) == 0 {
		return model.PoolState{}, fmt.Errorf("%w: no contract at %s", model.ErrPoolNotFound, pool.Hex())
	}

	poolABI, err := V3PoolABI()
	if err != nil {
		return model.PoolState{}, fmt.Errorf("parse pool abi: %w", err)
	}

	var slot0Values, liquidityValues, token0Values, token1Values []interface{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		slot0Values, err = r.callPool(gctx, pool, poolABI, "slot0")
		return err
	})
	g.Go(func() (err error) {
		liquidityValues, err = r.callPool(gctx, pool, poolABI, "liquidity")
		return err
	})
	g.Go(func() (err error) {
		token0Values, err = r.callPool(gctx, pool, poolABI, "token0")
		return err
	})
	g.Go(func() (err error) {
		token1Values, err = r.callPool(gctx, pool, poolABI, "token1")
		return err
	})
	if err := g.Wait(); err != nil {
		return model.PoolState{}, classifyCallError(pool, err)
	}

	if len(slot0Values) < 4 {
		return model.PoolState{}, fmt.Errorf("%w: slot0 returned %d values", model.ErrPoolNotFound, len(slot0Values))
	}

	sqrtPrice, err := asBigInt(slot0Values[0])
	if err != nil {
		return model.PoolState{}, fmt.Errorf("sqrtPriceX96: %w", err)
	}
	tickInt, err := asBigInt(slot0Values[1])
	if err != nil {
		return model.PoolState{}, fmt.Errorf("tick: %w", err)
	}
	tick, err := int24FromBig(tickInt)
	if err != nil {
		return model.PoolState{}, fmt.Errorf("tick: %w", err)
	}
	obsIndex, err := asUint16(slot0Values[2])
	if err != nil {
		return model.PoolState{}, fmt.Errorf("observation index: %w", err)
	}
	obsCardinality, err := asUint16(slot0Values[3])
	if err != nil {
		return model.PoolState{}, fmt.Errorf("observation cardinality: %w", err)
	}
	liquidity, err := asBigInt(liquidityValues[0])
	if err != nil {
		return model.PoolState{}, fmt.Errorf("liquidity: %w", err)
	}
	token0, err := asAddress(token0Values[0])
	if err != nil {
		return model.PoolState{}, fmt.Errorf("token0: %w", err)
	}
	token1, err := asAddress(token1Values[0])
	if err != nil {
		return model.PoolState{}, fmt.Errorf("token1: %w", err)
	}

	return model.PoolState{
		Address:                pool.Hex(),
		Token0:                 token0.Hex(),
		Token1:                 token1.Hex(),
		FeeTier:                identity.FeeTier,
		SqrtPriceX96:           sqrtPrice,
		Tick:                   tick,
		Liquidity:              liquidity,
		ObservationIndex:       obsIndex,
		ObservationCardinality: obsCardinality,
	}, nil
}

// TokenDecimals reads an ERC-20 token's decimals.
func (r *Reader) TokenDecimals(ctx context.Context, token string) (uint8, error) {
	if !common.IsHexAddress(token) {
		return 0, fmt.Errorf("%w: token %q", model.ErrInvalidAddress, token)
	}
	addr := common.HexToAddress(token)

	tokenABI, err := ERC20ABI()
	if err != nil {
		return 0, fmt.Errorf("parse erc20 abi: %w", err)
	}

	values, err := r.callPool(ctx, addr, tokenABI, "decimals")
	if err != nil {
		return 0, fmt.Errorf("%w: decimals %s: %v", model.ErrRPCUnavailable, addr.Hex(), err)
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return 0, fmt.Errorf("decimals: %w", err)
	}
	return decimals, nil
}

func (r *Reader) callPool(ctx context.Context, target common.Address, parsed abi.ABI, method string) ([]interface{}, error) {
	data, err := parsed.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &target, Data: data}
	resp, err := r.caller.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("call %s: empty result", method)
	}
	return values, nil
}

// classifyCallError maps a failed pool read to an error kind: reverts mean
// the address is not a pool, anything else is a transport failure.
func classifyCallError(pool common.Address, err error) error {
	if strings.Contains(strings.ToLower(err.Error()), "revert") {
		return fmt.Errorf("%w: %s: %v", model.ErrPoolNotFound, pool.Hex(), err)
	}
	return fmt.Errorf("%w: %s: %v", model.ErrRPCUnavailable, pool.Hex(), err)
}
