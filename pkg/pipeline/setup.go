package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/uhyunpark/squidroute/params"
	"github.com/uhyunpark/squidroute/pkg/crypto"
	"github.com/uhyunpark/squidroute/pkg/metrics"
	"github.com/uhyunpark/squidroute/pkg/squid"
	"github.com/uhyunpark/squidroute/pkg/storage"
	"github.com/uhyunpark/squidroute/pkg/userop"
)

// Assembly is a Pipeline together with the resources it owns.
type Assembly struct {
	*Pipeline
	Owner *crypto.Signer // nil unless a chain is configured

	closers []func() error
}

// Close releases the store and chain connections.
func (a *Assembly) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Setup wires a Pipeline from cfg. Route history uses pebble when
// RouteDBPath is set and memory otherwise. The builder is attached only
// when cfg passes ValidateChain.
func Setup(ctx context.Context, cfg params.Config, logger *zap.SugaredLogger, m *metrics.Metrics) (*Assembly, error) {
	if err := cfg.ValidateRouting(); err != nil {
		return nil, err
	}
	a := &Assembly{}

	var store storage.RouteStore
	if cfg.Storage.RouteDBPath != "" {
		ps, err := storage.NewPebbleStore(cfg.Storage.RouteDBPath)
		if err != nil {
			return nil, err
		}
		store = ps
		logger.Infow("route_store_opened", "backend", "pebble", "path", cfg.Storage.RouteDBPath)
	} else {
		store = storage.NewInMemoryRouteStore()
		logger.Infow("route_store_opened", "backend", "memory")
	}
	a.closers = append(a.closers, store.Close)

	client := squid.NewClient(squid.Config{
		APIURL:       cfg.Squid.APIURL,
		IntegratorID: cfg.Squid.IntegratorID,
		Timeout:      cfg.Squid.Timeout,
	}, squid.WithLogger(logger), squid.WithMetrics(m))

	opts := []Option{WithStore(store), WithLogger(logger), WithMetrics(m)}

	if err := cfg.ValidateChain(); err != nil {
		logger.Infow("userop_builder_disabled", "reason", err.Error())
	} else {
		owner, err := crypto.FromPrivateKeyHex(cfg.Account.OwnerKey)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("OWNER_PRIVATE_KEY: %w", err)
		}
		eth, err := userop.DialEthClient(ctx, cfg.Chain.RPCURL, cfg.Chain.BundlerURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() error { eth.Close(); return nil })

		builder := userop.NewBuilder(userop.Config{
			EntryPoint: cfg.Account.EntryPoint,
			Factory:    cfg.Account.Factory,
			ChainID:    cfg.Chain.ChainID,
			Salt:       cfg.Account.Salt,
		}, owner.Address(), eth, userop.WithLogger(logger), userop.WithMetrics(m))
		opts = append(opts, WithBuilder(builder))
		a.Owner = owner
		logger.Infow("userop_builder_enabled",
			"chain_id", cfg.Chain.ChainID.String(),
			"owner", owner.Address().Hex(),
			"entry_point", cfg.Account.EntryPoint.Hex())
	}

	a.Pipeline = New(client, opts...)
	return a, nil
}
