package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"defigateway/internal/model"
	"defigateway/internal/uniswap"
)

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	record, err := s.prices.Price(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleBatchPrices(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("symbols")
	if raw == "" {
		s.writeError(w, fmt.Errorf("%w: symbols query parameter is required", model.ErrInvalidArgument))
		return
	}

	symbols := make([]string, 0)
	for _, symbol := range strings.Split(raw, ",") {
		if symbol = strings.TrimSpace(symbol); symbol != "" {
			symbols = append(symbols, symbol)
		}
	}

	records, err := s.prices.BatchPrices(r.Context(), symbols)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	days, err := strconv.Atoi(r.URL.Query().Get("days"))
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: days must be an integer", model.ErrInvalidArgument))
		return
	}

	points, err := s.prices.History(r.Context(), chi.URLParam(r, "symbol"), days)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

type poolResponse struct {
	Address                string `json:"address"`
	Token0                 string `json:"token0"`
	Token1                 string `json:"token1"`
	FeeTier                uint32 `json:"fee_tier"`
	SqrtPriceX96           string `json:"sqrt_price_x96"`
	Tick                   int32  `json:"tick"`
	Liquidity              string `json:"liquidity"`
	ObservationIndex       uint16 `json:"observation_index"`
	ObservationCardinality uint16 `json:"observation_cardinality"`
}

func (s *Server) handlePool(w http.ResponseWriter, r *http.Request) {
	state, err := s.poolState(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, poolResponse{
		Address:                state.Address,
		Token0:                 state.Token0,
		Token1:                 state.Token1,
		FeeTier:                state.FeeTier,
		SqrtPriceX96:           state.SqrtPriceX96.String(),
		Tick:                   state.Tick,
		Liquidity:              state.Liquidity.String(),
		ObservationIndex:       state.ObservationIndex,
		ObservationCardinality: state.ObservationCardinality,
	})
}

type poolPriceResponse struct {
	Address        string `json:"address"`
	Token0         string `json:"token0"`
	Token1         string `json:"token1"`
	Token0Decimals uint8  `json:"token0_decimals"`
	Token1Decimals uint8  `json:"token1_decimals"`
	Price          string `json:"price"` // token1 per token0
}

func (s *Server) handlePoolPrice(w http.ResponseWriter, r *http.Request) {
	state, err := s.poolState(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var decimals0, decimals1 uint8
	g, gctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		decimals0, err = s.pools.TokenDecimals(gctx, state.Token0)
		return err
	})
	g.Go(func() (err error) {
		decimals1, err = s.pools.TokenDecimals(gctx, state.Token1)
		return err
	})
	if err := g.Wait(); err != nil {
		s.writeError(w, err)
		return
	}

	price, err := uniswap.PriceFromSqrtPriceX96(state.SqrtPriceX96, int(decimals0), int(decimals1))
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, poolPriceResponse{
		Address:        state.Address,
		Token0:         state.Token0,
		Token1:         state.Token1,
		Token0Decimals: decimals0,
		Token1Decimals: decimals1,
		Price:          price,
	})
}

func (s *Server) handlePoolAPY(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	tickLower, err := strconv.ParseInt(query.Get("tick_lower"), 10, 32)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: tick_lower must be an integer", model.ErrInvalidArgument))
		return
	}
	tickUpper, err := strconv.ParseInt(query.Get("tick_upper"), 10, 32)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: tick_upper must be an integer", model.ErrInvalidArgument))
		return
	}
	volume, err := strconv.ParseFloat(query.Get("volume_24h_usd"), 64)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: volume_24h_usd must be a number", model.ErrInvalidArgument))
		return
	}

	state, err := s.poolState(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	estimate := uniswap.EstimateLiquidityAPY(state, int32(tickLower), int32(tickUpper), volume, state.FeeTier)
	writeJSON(w, http.StatusOK, estimate)
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	result, err := s.portfolio.Portfolio(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.prices.Stats())
}

func (s *Server) handleCacheClear(w http.ResponseWriter, _ *http.Request) {
	s.prices.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) poolState(r *http.Request) (model.PoolState, error) {
	fee, err := strconv.ParseUint(chi.URLParam(r, "fee"), 10, 32)
	if err != nil {
		return model.PoolState{}, fmt.Errorf("%w: fee tier must be an integer", model.ErrInvalidArgument)
	}

	return s.pools.PoolState(r.Context(), model.PoolIdentity{
		TokenA:  chi.URLParam(r, "tokenA"),
		TokenB:  chi.URLParam(r, "tokenB"),
		FeeTier: uint32(fee),
	})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
