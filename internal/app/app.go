package app

import (
	"context"
	"fmt"
	"time"

	"payoutor/internal/chain"
	"payoutor/internal/config"
	"payoutor/internal/fx"
	"payoutor/internal/history"
	"payoutor/internal/logger"
	"payoutor/internal/market"
	"payoutor/internal/payout"
	"payoutor/internal/treasury"
	payouthttp "payoutor/internal/transport/http"

	"golang.org/x/sync/errgroup"
)

// App wires the services together: config in, HTTP API out.
type App struct {
	cfg    *config.Store
	server *payouthttp.Server
	store  *history.Store
}

// New builds the application from a config store (does not start it).
func New(cfgStore *config.Store) (*App, error) {
	if cfgStore == nil {
		return nil, fmt.Errorf("nil config store")
	}
	cfg := cfgStore.Snapshot()

	subscans := map[string]string{
		"moonbeam":  cfg.Networks.Moonbeam.Subscan,
		"moonriver": cfg.Networks.Moonriver.Subscan,
	}
	marketSvc := market.NewService(
		cfg.Market.BlockLag,
		time.Duration(cfg.Market.TimeoutSeconds)*time.Second,
		subscans,
	)
	dial := func(ctx context.Context, endpoint string) (payout.ChainConn, error) {
		return chain.Dial(ctx, endpoint)
	}
	payoutSvc := payout.NewService(marketSvc, dial, payout.Options{
		Signature:    cfg.Payout.Signature,
		ChainTimeout: time.Duration(cfg.Chain.TimeoutSeconds) * time.Second,
	})
	fxSvc := fx.NewService(time.Duration(cfg.Market.TimeoutSeconds) * time.Second)
	treasurySvc := treasury.NewService(
		map[string]string{
			"moonbeam":  cfg.Treasury.MoonbeamAddress,
			"moonriver": cfg.Treasury.MoonriverAddress,
		},
		time.Duration(cfg.Market.TimeoutSeconds)*time.Second,
		subscans,
	)

	var histStore *history.Store
	var histDep payouthttp.HistoryStore
	if cfg.History.Enabled {
		store, err := history.NewStore(cfg.History.Path)
		if err != nil {
			return nil, fmt.Errorf("open history store: %w", err)
		}
		histStore = store
		histDep = store
		logger.Infof("history store open at %s", cfg.History.Path)
	}

	server, err := payouthttp.NewServer(payouthttp.ServerConfig{
		Addr:     cfg.App.HTTPAddr,
		Calc:     payoutSvc,
		Rates:    fxSvc,
		Balances: treasurySvc,
		Store:    histDep,
		Snapshot: func() config.Config { return *cfgStore.Snapshot() },
	})
	if err != nil {
		return nil, err
	}

	return &App{cfg: cfgStore, server: server, store: histStore}, nil
}

// Run serves until ctx is cancelled. Config file edits are picked up live.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.cfg.Watch()

	cfg := a.cfg.Snapshot()
	logger.InfoBlock(fmt.Sprintf(
		"payout assistant starting\n- http: %s\n- ratios: %.0f/%.0f\n- council threshold: %d\n- history: %v",
		a.server.Addr(), cfg.Payout.GlmrRatio*100, cfg.Payout.MovrRatio*100,
		cfg.Payout.CouncilThreshold, cfg.History.Enabled))

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Infof("payout API listening on %s", a.server.Addr())
		if err := a.server.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	err := group.Wait()
	if a.store != nil {
		if cerr := a.store.Close(); cerr != nil {
			logger.Warnf("history store close: %v", cerr)
		}
	}
	return err
}
