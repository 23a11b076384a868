package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"defigateway/internal/model"
)

// PositionProvider discovers an owner's positions for one protocol. Variants
// are independently implementable; the aggregator fans out over all of them.
type PositionProvider interface {
	Protocol() string
	Positions(ctx context.Context, owner string) ([]model.Position, error)
}

// Aggregator joins positions from every registered provider into a portfolio.
type Aggregator struct {
	providers []PositionProvider
	logger    *zap.Logger
	now       func() time.Time
}

// NewAggregator builds an aggregator over the given providers.
func NewAggregator(logger *zap.Logger, providers ...PositionProvider) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		providers: providers,
		logger:    logger,
		now:       time.Now,
	}
}

// Portfolio fetches all providers concurrently and waits for all of them or
// the first failure. Provider fetches are independent; no partial result is
// returned on error.
func (a *Aggregator) Portfolio(ctx context.Context, owner string) (model.Portfolio, error) {
	if !common.IsHexAddress(owner) {
		return model.Portfolio{}, fmt.Errorf("%w: owner %q", model.ErrInvalidAddress, owner)
	}
	owner = common.HexToAddress(owner).Hex()

	results := make([][]model.Position, len(a.providers))

	g, gctx := errgroup.WithContext(ctx)
	for i, provider := range a.providers {
		i, provider := i, provider
		g.Go(func() error {
			positions, err := provider.Positions(gctx, owner)
			if err != nil {
				return fmt.Errorf("%s positions: %w", provider.Protocol(), err)
			}
			results[i] = positions
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.Portfolio{}, err
	}

	var positions []model.Position
	total := 0.0
	for _, batch := range results {
		for _, position := range batch {
			positions = append(positions, position)
			total += position.ValueUSD
		}
	}

	a.logger.Debug("portfolio aggregated",
		zap.String("owner", owner),
		zap.Int("positions", len(positions)),
		zap.Float64("total_usd", total),
	)

	return model.Portfolio{
		Owner:         owner,
		Positions:     positions,
		TotalValueUSD: total,
		FetchedAt:     a.now().UnixMilli(),
	}, nil
}
