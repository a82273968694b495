// Package pipeline chains recipient derivation, route lookup, route history
// and user operation building.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/uhyunpark/squidroute/pkg/crypto"
	"github.com/uhyunpark/squidroute/pkg/metrics"
	"github.com/uhyunpark/squidroute/pkg/squid"
	"github.com/uhyunpark/squidroute/pkg/storage"
	"github.com/uhyunpark/squidroute/pkg/userop"
)

// ErrNoBuilder is returned by GenerateUserOp when no chain is configured.
var ErrNoBuilder = errors.New("user operation builder not configured")

// RouteFetcher fetches a route for validated params; *squid.Client implements it.
type RouteFetcher interface {
	GetRoute(ctx context.Context, p squid.Params) (*squid.Route, error)
}

// Pipeline is safe for concurrent use when its collaborators are.
type Pipeline struct {
	deriver *crypto.Deriver
	routes  RouteFetcher
	store   storage.RouteStore
	builder *userop.Builder
	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
}

type Option func(*Pipeline)

func WithDeriver(d *crypto.Deriver) Option {
	return func(p *Pipeline) { p.deriver = d }
}

// WithStore records every fetched route in s.
func WithStore(s storage.RouteStore) Option {
	return func(p *Pipeline) { p.store = s }
}

// WithBuilder enables GenerateUserOp.
func WithBuilder(b *userop.Builder) Option {
	return func(p *Pipeline) { p.builder = b }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(p *Pipeline) { p.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

func New(routes RouteFetcher, opts ...Option) *Pipeline {
	p := &Pipeline{
		deriver: crypto.NewDeriver(nil),
		routes:  routes,
		logger:  zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Builder returns the configured builder, or nil.
func (p *Pipeline) Builder() *userop.Builder { return p.builder }

// Store returns the configured route store, or nil.
func (p *Pipeline) Store() storage.RouteStore { return p.store }

// DeriveAddress derives and counts one recipient address.
func (p *Pipeline) DeriveAddress(publicKeyHex string) (string, error) {
	addr, err := p.deriver.DeriveAddress(publicKeyHex)
	p.metrics.AddressDerived(err)
	return addr, err
}

// FetchRoute sets the recipient of params to the address of publicKeyHex,
// fetches its route and records it. A failed save is logged, not returned.
func (p *Pipeline) FetchRoute(ctx context.Context, params squid.Params, publicKeyHex string) (squid.Params, *squid.Route, error) {
	params, err := squid.GenerateParamsWith(p.deriver, params, publicKeyHex)
	p.metrics.AddressDerived(err)
	if err != nil {
		return squid.Params{}, nil, err
	}

	route, err := p.routes.GetRoute(ctx, params)
	if err != nil {
		return squid.Params{}, nil, err
	}

	if p.store != nil {
		if err := p.store.SaveRoute(storage.NewRouteRecord(params, route)); err != nil {
			p.logger.Warnw("route_save_failed", "to_address", params.ToAddress, "err", err)
		}
	}
	return params, route, nil
}

// GenerateUserOp fetches a route for the recipient of publicKeyHex and wraps
// its transaction request in an unsigned user operation.
func (p *Pipeline) GenerateUserOp(ctx context.Context, params squid.Params, publicKeyHex string) (*userop.UserOperation, error) {
	if p.builder == nil {
		return nil, ErrNoBuilder
	}
	params, route, err := p.FetchRoute(ctx, params, publicKeyHex)
	if err != nil {
		return nil, err
	}

	value, err := route.ValueWei()
	if err != nil {
		return nil, err
	}
	op, err := p.builder.BuildFromTx(ctx, userop.Tx{
		From:  params.FromAddress,
		To:    common.HexToAddress(route.TransactionRequest.TargetAddress),
		Data:  route.CallData(),
		Value: value,
	})
	if err != nil {
		return nil, fmt.Errorf("build user operation: %w", err)
	}
	return op, nil
}
