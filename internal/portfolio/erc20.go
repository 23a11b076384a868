package portfolio

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"defigateway/internal/model"
	"defigateway/internal/pricing"
	"defigateway/internal/uniswap"
)

// TrackedToken is one ERC-20 token the wallet provider looks at.
type TrackedToken struct {
	Symbol  string
	Address common.Address
}

// ParseTrackedTokens parses "SYMBOL=0xaddress" pairs from configuration.
func ParseTrackedTokens(entries []string) ([]TrackedToken, error) {
	tokens := make([]TrackedToken, 0, len(entries))
	for _, entry := range entries {
		parts := strings.SplitN(strings.TrimSpace(entry), "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("%w: token entry %q, want SYMBOL=0xaddress", model.ErrInvalidArgument, entry)
		}
		if !common.IsHexAddress(parts[1]) {
			return nil, fmt.Errorf("%w: token address %q", model.ErrInvalidAddress, parts[1])
		}
		tokens = append(tokens, TrackedToken{
			Symbol:  parts[0],
			Address: common.HexToAddress(parts[1]),
		})
	}
	return tokens, nil
}

// decimalsCache caches token decimals by address.
type decimalsCache struct {
	mu   sync.RWMutex
	data map[common.Address]uint8
}

func (c *decimalsCache) get(address common.Address) (uint8, bool) {
	c.mu.RLock()
	decimals, ok := c.data[address]
	c.mu.RUnlock()
	return decimals, ok
}

func (c *decimalsCache) set(address common.Address, decimals uint8) {
	c.mu.Lock()
	c.data[address] = decimals
	c.mu.Unlock()
}

// ERC20Provider values a wallet's tracked token balances via the price cache.
type ERC20Provider struct {
	caller   uniswap.ContractCaller
	prices   *pricing.Cache
	tokens   []TrackedToken
	logger   *zap.Logger
	decimals decimalsCache
}

// NewERC20Provider builds the wallet holdings provider.
func NewERC20Provider(caller uniswap.ContractCaller, prices *pricing.Cache, tokens []TrackedToken, logger *zap.Logger) *ERC20Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ERC20Provider{
		caller:   caller,
		prices:   prices,
		tokens:   tokens,
		logger:   logger,
		decimals: decimalsCache{data: make(map[common.Address]uint8)},
	}
}

// Protocol identifies the provider.
func (p *ERC20Provider) Protocol() string { return "erc20" }

// Positions reads token balances for the owner concurrently and values the
// non-zero ones in USD.
func (p *ERC20Provider) Positions(ctx context.Context, owner string) ([]model.Position, error) {
	if !common.IsHexAddress(owner) {
		return nil, fmt.Errorf("%w: owner %q", model.ErrInvalidAddress, owner)
	}
	ownerAddr := common.HexToAddress(owner)

	results := make([]*model.Position, len(p.tokens))

	g, gctx := errgroup.WithContext(ctx)
	for i, token := range p.tokens {
		i, token := i, token
		g.Go(func() error {
			position, err := p.tokenPosition(gctx, ownerAddr, token)
			if err != nil {
				return err
			}
			results[i] = position
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	positions := make([]model.Position, 0, len(p.tokens))
	for _, position := range results {
		if position != nil {
			positions = append(positions, *position)
		}
	}
	return positions, nil
}

// tokenPosition returns nil without error for a zero balance.
func (p *ERC20Provider) tokenPosition(ctx context.Context, owner common.Address, token TrackedToken) (*model.Position, error) {
	balance, err := p.balanceOf(ctx, token.Address, owner)
	if err != nil {
		return nil, fmt.Errorf("%w: balanceOf %s: %v", model.ErrRPCUnavailable, token.Address.Hex(), err)
	}
	if balance.Sign() == 0 {
		return nil, nil
	}

	decimals, err := p.tokenDecimals(ctx, token.Address)
	if err != nil {
		return nil, err
	}

	record, err := p.prices.Price(ctx, token.Symbol)
	if err != nil {
		return nil, err
	}

	amount := normalizeAmount(balance, decimals)
	return &model.Position{
		Protocol:     p.Protocol(),
		Symbol:       token.Symbol,
		TokenAddress: token.Address.Hex(),
		AmountRaw:    balance.String(),
		Amount:       amount,
		PriceUSD:     record.USDPrice,
		ValueUSD:     amount * record.USDPrice,
	}, nil
}

func (p *ERC20Provider) tokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	if decimals, ok := p.decimals.get(token); ok {
		return decimals, nil
	}

	erc20, err := uniswap.ERC20ABI()
	if err != nil {
		return 0, fmt.Errorf("parse erc20 abi: %w", err)
	}
	data, err := erc20.Pack("decimals")
	if err != nil {
		return 0, fmt.Errorf("pack decimals: %w", err)
	}
	msg := ethereum.CallMsg{To: &token, Data: data}
	resp, err := p.caller.CallContract(ctx, msg, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: decimals %s: %v", model.ErrRPCUnavailable, token.Hex(), err)
	}
	values, err := erc20.Unpack("decimals", resp)
	if err != nil || len(values) != 1 {
		return 0, fmt.Errorf("unpack decimals: %v", err)
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("decimals unexpected type %T", values[0])
	}

	p.decimals.set(token, decimals)
	return decimals, nil
}

func (p *ERC20Provider) balanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	erc20, err := uniswap.ERC20ABI()
	if err != nil {
		return nil, err
	}

	data, err := erc20.Pack("balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("pack balanceOf: %w", err)
	}

	msg := ethereum.CallMsg{To: &token, Data: data}
	resp, err := p.caller.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call balanceOf: %w", err)
	}

	values, err := erc20.Unpack("balanceOf", resp)
	if err != nil {
		return nil, fmt.Errorf("unpack balanceOf: %w", err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("balanceOf return size %d", len(values))
	}
	balance, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("balanceOf unexpected type %T", values[0])
	}
	return balance, nil
}

func normalizeAmount(raw *big.Int, decimals uint8) float64 {
	value := new(big.Float).SetInt(raw)
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	amount, _ := new(big.Float).Quo(value, scale).Float64()
	return amount
}
