package uniswap

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"defigateway/internal/model"
)

type fakeCaller struct {
	mu        sync.Mutex
	code      []byte
	codeErr   error
	callErr   error
	responses map[string][]byte // keyed by hex selector
	calls     int
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.callErr != nil {
		return nil, f.callErr
	}
	resp, ok := f.responses[hex.EncodeToString(msg.Data[:4])]
	if !ok {
		return nil, errors.New("unexpected selector")
	}
	return resp, nil
}

func (f *fakeCaller) CodeAt(_ context.Context, _ common.Address, _ *big.Int) ([]byte, error) {
	if f.codeErr != nil {
		return nil, f.codeErr
	}
	return f.code, nil
}

func newPoolCaller(t *testing.T, sqrtPrice *big.Int, tick int64, liquidity *big.Int, token0, token1 common.Address) *fakeCaller {
	t.Helper()

	poolABI, err := V3PoolABI()
	require.NoError(t, err)

	slot0Resp, err := poolABI.Methods["slot0"].Outputs.Pack(
		sqrtPrice,
		big.NewInt(tick),
		uint16(3),
		uint16(100),
		uint16(100),
		uint8(0),
		true,
	)
	require.NoError(t, err)

	liquidityResp, err := poolABI.Methods["liquidity"].Outputs.Pack(liquidity)
	require.NoError(t, err)

	token0Resp, err := poolABI.Methods["token0"].Outputs.Pack(token0)
	require.NoError(t, err)

	token1Resp, err := poolABI.Methods["token1"].Outputs.Pack(token1)
	require.NoError(t, err)

	return &fakeCaller{
		code: []byte{0x60, 0x80},
		responses: map[string][]byte{
			hex.EncodeToString(poolABI.Methods["slot0"].ID):     slot0Resp,
			hex.EncodeToString(poolABI.Methods["liquidity"].ID): liquidityResp,
			hex.EncodeToString(poolABI.Methods["token0"].ID):    token0Resp,
			hex.EncodeToString(poolABI.Methods["token1"].ID):    token1Resp,
		},
	}
}

func TestPoolStateSnapshot(t *testing.T) {
	token0 := common.HexToAddress(usdcAddress)
	token1 := common.HexToAddress(wethAddress)
	sqrtPrice := new(big.Int).Lsh(big.NewInt(1), 96)
	liquidity := big.NewInt(987654321)

	caller := newPoolCaller(t, sqrtPrice, -12345, liquidity, token0, token1)
	reader := NewReader(caller, nil)

	state, err := reader.PoolState(context.Background(), model.PoolIdentity{
		TokenA:  wethAddress,
		TokenB:  usdcAddress,
		FeeTier: 3000,
	})
	require.NoError(t, err)

	assert.Equal(t, common.HexToAddress("0x8ad599c3A0ff1De082011EFDDc58f1908eb6e6D8").Hex(), state.Address)
	assert.Equal(t, token0.Hex(), state.Token0)
	assert.Equal(t, token1.Hex(), state.Token1)
	assert.Equal(t, uint32(3000), state.FeeTier)
	assert.Zero(t, state.SqrtPriceX96.Cmp(sqrtPrice))
	assert.Equal(t, int32(-12345), state.Tick)
	assert.Zero(t, state.Liquidity.Cmp(liquidity))
	assert.Equal(t, uint16(3), state.ObservationIndex)
	assert.Equal(t, uint16(100), state.ObservationCardinality)
	assert.Equal(t, 4, caller.calls)
}

func TestPoolStateNoDeployedCode(t *testing.T) {
	caller := &fakeCaller{code: nil}
	reader := NewReader(caller, nil)

	_, err := reader.PoolState(context.Background(), model.PoolIdentity{
		TokenA:  usdcAddress,
		TokenB:  wethAddress,
		FeeTier: 3000,
	})
	assert.ErrorIs(t, err, model.ErrPoolNotFound)
	assert.Zero(t, caller.calls)
}

func TestPoolStateCodeCheckTransportError(t *testing.T) {
	caller := &fakeCaller{codeErr: errors.New("dial tcp: connection refused")}
	reader := NewReader(caller, nil)

	_, err := reader.PoolState(context.Background(), model.PoolIdentity{
		TokenA:  usdcAddress,
		TokenB:  wethAddress,
		FeeTier: 3000,
	})
	assert.ErrorIs(t, err, model.ErrRPCUnavailable)
}

func TestPoolStateRevertMeansNotFound(t *testing.T) {
	caller := &fakeCaller{
		code:    []byte{0x60, 0x80},
		callErr: errors.New("execution reverted"),
	}
	reader := NewReader(caller, nil)

	_, err := reader.PoolState(context.Background(), model.PoolIdentity{
		TokenA:  usdcAddress,
		TokenB:  wethAddress,
		FeeTier: 3000,
	})
	assert.ErrorIs(t, err, model.ErrPoolNotFound)
}

func TestPoolStateCallTransportError(t *testing.T) {
	caller := &fakeCaller{
		code:    []byte{0x60, 0x80},
		callErr: errors.New("i/o timeout"),
	}
	reader := NewReader(caller, nil)

	_, err := reader.PoolState(context.Background(), model.PoolIdentity{
		TokenA:  usdcAddress,
		TokenB:  wethAddress,
		FeeTier: 3000,
	})
	assert.ErrorIs(t, err, model.ErrRPCUnavailable)
}

func TestPoolStateInvalidToken(t *testing.T) {
	reader := NewReader(&fakeCaller{}, nil)

	_, err := reader.PoolState(context.Background(), model.PoolIdentity{
		TokenA:  "bogus",
		TokenB:  wethAddress,
		FeeTier: 3000,
	})
	assert.ErrorIs(t, err, model.ErrInvalidAddress)
}

func TestTokenDecimals(t *testing.T) {
	erc20, err := ERC20ABI()
	require.NoError(t, err)

	decimalsResp, err := erc20.Methods["decimals"].Outputs.Pack(uint8(6))
	require.NoError(t, err)

	caller := &fakeCaller{
		responses: map[string][]byte{
			hex.EncodeToString(erc20.Methods["decimals"].ID): decimalsResp,
		},
	}
	reader := NewReader(caller, nil)

	decimals, err := reader.TokenDecimals(context.Background(), usdcAddress)
	require.NoError(t, err)
	assert.Equal(t, uint8(6), decimals)

	_, err = reader.TokenDecimals(context.Background(), "nope")
	assert.ErrorIs(t, err, model.ErrInvalidAddress)
}
