package payouthttp

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"strconv"

	"payoutor/internal/config"
	"payoutor/internal/fx"
	"payoutor/internal/history"
	"payoutor/internal/logger"
	"payoutor/internal/payout"
	"payoutor/internal/treasury"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// Calculator runs payout calculations.
type Calculator interface {
	CalculateNative(ctx context.Context, req payout.NativeRequest) (*payout.Result, error)
	CalculateStable(ctx context.Context, req payout.StableRequest) (*payout.Result, error)
}

// RateSource yields the EUR/USD rate.
type RateSource interface {
	EURToUSD(ctx context.Context) (*fx.Rate, error)
}

// BalanceSource reads the treasury pot balances.
type BalanceSource interface {
	Fetch(ctx context.Context) (*treasury.Balances, error)
}

// HistoryStore persists and lists past calculations. May be nil when
// history is disabled.
type HistoryStore interface {
	Save(ctx context.Context, res *payout.Result) error
	ListRecent(ctx context.Context, limit int) ([]history.Record, error)
	Get(ctx context.Context, requestID string) (*history.Record, bool, error)
}

// Router holds the API handlers and their dependencies.
type Router struct {
	calc     Calculator
	rates    RateSource
	balances BalanceSource
	store    HistoryStore
	snapshot func() config.Config
}

func NewRouter(calc Calculator, rates RateSource, balances BalanceSource, store HistoryStore, snapshot func() config.Config) *Router {
	return &Router{calc: calc, rates: rates, balances: balances, store: store, snapshot: snapshot}
}

// Register mounts the API routes under the given group.
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.POST("/calculate", r.handleCalculate)
	group.POST("/calculate-usdc", r.handleCalculateUSDC)
	group.GET("/fx-rate", r.handleFXRate)
	group.GET("/treasury-balances", r.handleTreasuryBalances)
	group.GET("/history", r.handleHistoryList)
	group.GET("/history/:id", r.handleHistoryGet)
}

func (r *Router) handleCalculate(c *gin.Context) {
	var req CalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	cfg := r.snapshot()

	usd, fxInfo, ok := r.resolveUSD(c, req)
	if !ok {
		return
	}

	glmrRatio := req.GlmrRatio
	movrRatio := req.MovrRatio
	if glmrRatio == 0 && movrRatio == 0 {
		glmrRatio = cfg.Payout.GlmrRatio
		movrRatio = cfg.Payout.MovrRatio
	}
	threshold := req.CouncilThreshold
	if threshold == 0 {
		threshold = cfg.Payout.CouncilThreshold
	}
	lengthBound := req.CouncilLengthBound
	if lengthBound == 0 {
		lengthBound = cfg.Payout.CouncilLengthBound
	}
	moonbeamWs := req.MoonbeamWs
	if moonbeamWs == "" {
		moonbeamWs = cfg.Networks.Moonbeam.WS
	}
	moonriverWs := req.MoonriverWs
	if moonriverWs == "" {
		moonriverWs = cfg.Networks.Moonriver.WS
	}
	proxyAddress := req.ProxyAddress
	if req.Proxy && proxyAddress == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "proxyAddress is required when proxy is enabled"})
		return
	}

	result, err := r.calc.CalculateNative(c.Request.Context(), payout.NativeRequest{
		USDAmount: usd,
		Recipient: req.Recipient,
		Targets: []payout.NetworkTarget{
			{
				Name:     "moonbeam",
				Token:    cfg.Networks.Moonbeam.Token,
				Endpoint: moonbeamWs,
				Subscan:  cfg.Networks.Moonbeam.Subscan,
				Decimals: cfg.Networks.Moonbeam.Decimals,
				Ratio:    decimal.NewFromFloat(glmrRatio),
			},
			{
				Name:     "moonriver",
				Token:    cfg.Networks.Moonriver.Token,
				Endpoint: moonriverWs,
				Subscan:  cfg.Networks.Moonriver.Subscan,
				Decimals: cfg.Networks.Moonriver.Decimals,
				Ratio:    decimal.NewFromFloat(movrRatio),
			},
		},
		Threshold:    threshold,
		LengthBound:  lengthBound,
		ProxyAddress: proxyAddress,
		FX:           fxInfo,
	})
	if err != nil {
		writeCalcError(c, err)
		return
	}
	r.persist(c, result)
	c.JSON(http.StatusOK, result)
}

func (r *Router) handleCalculateUSDC(c *gin.Context) {
	var req CalculateUSDCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	cfg := r.snapshot()

	threshold := req.CouncilThreshold
	if threshold == 0 {
		threshold = cfg.Payout.CouncilThreshold
	}
	lengthBound := req.CouncilLengthBound
	if lengthBound == 0 {
		lengthBound = cfg.Payout.CouncilLengthBound
	}
	moonbeamWs := req.MoonbeamWs
	if moonbeamWs == "" {
		moonbeamWs = cfg.Networks.Moonbeam.WS
	}
	proxyAddress := req.ProxyAddress
	if req.Proxy && proxyAddress == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "proxyAddress is required when proxy is enabled"})
		return
	}

	assetID, ok := new(big.Int).SetString(cfg.Stable.AssetID, 10)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stable asset id misconfigured"})
		return
	}

	result, err := r.calc.CalculateStable(c.Request.Context(), payout.StableRequest{
		USDAmount: decimal.NewFromFloat(req.USDAmount),
		Recipient: req.Recipient,
		Target: payout.NetworkTarget{
			Name:     "moonbeam",
			Token:    cfg.Stable.Token,
			Endpoint: moonbeamWs,
			Subscan:  cfg.Networks.Moonbeam.Subscan,
			Decimals: cfg.Stable.Decimals,
		},
		AssetID:      assetID,
		Threshold:    threshold,
		LengthBound:  lengthBound,
		ProxyAddress: proxyAddress,
	})
	if err != nil {
		writeCalcError(c, err)
		return
	}
	r.persist(c, result)
	c.JSON(http.StatusOK, result)
}

// resolveUSD turns the request's amount fields into a USD total. A non-USD
// input amount is converted through the rate source and annotated on the
// result.
func (r *Router) resolveUSD(c *gin.Context, req CalculateRequest) (decimal.Decimal, *payout.FXInfo, bool) {
	if req.USDAmount > 0 {
		return decimal.NewFromFloat(req.USDAmount), nil, true
	}
	if req.InputAmount > 0 && req.InputCurrency == "EUR" {
		input := decimal.NewFromFloat(req.InputAmount)
		if req.FXRate > 0 {
			rate := decimal.NewFromFloat(req.FXRate)
			return input.Mul(rate), &payout.FXInfo{
				InputAmount: input,
				Currency:    "EUR",
				Rate:        rate,
				Date:        req.FXDate,
				Source:      "caller-supplied",
			}, true
		}
		if r.rates == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "EUR input is not supported: no rate source configured"})
			return decimal.Zero, nil, false
		}
		rate, err := r.rates.EURToUSD(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return decimal.Zero, nil, false
		}
		return input.Mul(rate.Rate), &payout.FXInfo{
			InputAmount: input,
			Currency:    "EUR",
			Rate:        rate.Rate,
			Date:        rate.AsOf,
			Source:      rate.Source,
		}, true
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "usdAmount or inputAmount with inputCurrency EUR is required"})
	return decimal.Zero, nil, false
}

func (r *Router) persist(c *gin.Context, result *payout.Result) {
	if r.store == nil {
		return
	}
	if err := r.store.Save(c.Request.Context(), result); err != nil {
		logger.Warnf("history save failed for %s: %v", result.RequestID, err)
	}
}

// writeCalcError maps the calculation error taxonomy onto HTTP statuses:
// caller mistakes are 400, upstream data problems are 502, everything
// else is 500.
func writeCalcError(c *gin.Context, err error) {
	var verr *payout.ValidationError
	var perr *payout.PriceUnavailableError
	var cerr *payout.ChainUnavailableError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &perr), errors.As(err, &cerr):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (r *Router) handleFXRate(c *gin.Context) {
	if r.rates == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no rate source configured"})
		return
	}
	rate, err := r.rates.EURToUSD(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rate)
}

func (r *Router) handleTreasuryBalances(c *gin.Context) {
	if r.balances == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no balance source configured"})
		return
	}
	balances, err := r.balances.Fetch(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch treasury balances"})
		return
	}
	c.JSON(http.StatusOK, balances)
}

func (r *Router) handleHistoryList(c *gin.Context) {
	if r.store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history is disabled"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	records, err := r.store.ListRecent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

func (r *Router) handleHistoryGet(c *gin.Context) {
	if r.store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history is disabled"})
		return
	}
	record, found, err := r.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "no record for " + c.Param("id")})
		return
	}
	c.JSON(http.StatusOK, record)
}
