package userop

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/uhyunpark/squidroute/pkg/crypto"
	"github.com/uhyunpark/squidroute/pkg/metrics"
)

// ChainReader is the chain and bundler access a Builder needs.
type ChainReader interface {
	// AccountAddress returns the counterfactual LightAccount address for owner.
	AccountAddress(ctx context.Context, factory, owner common.Address, salt *big.Int) (common.Address, error)
	IsDeployed(ctx context.Context, addr common.Address) (bool, error)
	Nonce(ctx context.Context, entryPoint, sender common.Address) (*big.Int, error)
	GasFees(ctx context.Context) (maxFee, maxPriorityFee *big.Int, err error)
	EstimateGas(ctx context.Context, op *UserOperation, entryPoint common.Address) (*GasEstimate, error)
}

// Config fixes the account and chain a Builder targets.
type Config struct {
	EntryPoint common.Address
	Factory    common.Address
	ChainID    *big.Int
	Salt       *big.Int
}

// Tx is a plain call to wrap in a user operation.
type Tx struct {
	From  string // sender as given by the caller, checksummed before use
	To    common.Address
	Data  []byte
	Value *big.Int
}

// Builder turns transactions into unsigned user operations for one owner.
type Builder struct {
	cfg     Config
	owner   common.Address
	chain   ChainReader
	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
}

type Option func(*Builder)

func WithLogger(l *zap.SugaredLogger) Option {
	return func(b *Builder) { b.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Builder) { b.metrics = m }
}

func NewBuilder(cfg Config, owner common.Address, chain ChainReader, opts ...Option) *Builder {
	b := &Builder{
		cfg:    cfg,
		owner:  owner,
		chain:  chain,
		logger: zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Owner returns the account owner address.
func (b *Builder) Owner() common.Address { return b.owner }

// BuildFromTx resolves sender, init code, nonce, fees and gas limits for tx.
// The returned operation carries DummySignature; see Sign.
func (b *Builder) BuildFromTx(ctx context.Context, tx Tx) (*UserOperation, error) {
	op, err := b.buildFromTx(ctx, tx)
	b.metrics.UserOpBuilt(err)
	if err != nil {
		b.logger.Warnw("userop_build_failed", "to", tx.To.Hex(), "err", err)
		return nil, err
	}
	b.logger.Infow("userop_built",
		"sender", op.Sender.Hex(),
		"nonce", op.Nonce.String(),
		"deploys_account", len(op.InitCode) > 0,
		"to", tx.To.Hex())
	return op, nil
}

func (b *Builder) buildFromTx(ctx context.Context, tx Tx) (*UserOperation, error) {
	if _, err := crypto.ToChecksumAddress(tx.From); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}

	sender, err := b.chain.AccountAddress(ctx, b.cfg.Factory, b.owner, b.cfg.Salt)
	if err != nil {
		return nil, fmt.Errorf("resolve account address: %w", err)
	}

	deployed, err := b.chain.IsDeployed(ctx, sender)
	if err != nil {
		return nil, fmt.Errorf("check account deployment: %w", err)
	}
	var initCode []byte
	if !deployed {
		if initCode, err = InitCode(b.cfg.Factory, b.owner, b.cfg.Salt); err != nil {
			return nil, err
		}
	}

	nonce, err := b.chain.Nonce(ctx, b.cfg.EntryPoint, sender)
	if err != nil {
		return nil, fmt.Errorf("fetch nonce: %w", err)
	}

	callData, err := EncodeExecute(tx.To, tx.Value, tx.Data)
	if err != nil {
		return nil, err
	}

	maxFee, maxPriorityFee, err := b.chain.GasFees(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch gas fees: %w", err)
	}

	op := &UserOperation{
		Sender:               sender,
		Nonce:                nonce,
		InitCode:             initCode,
		CallData:             callData,
		CallGasLimit:         new(big.Int),
		VerificationGasLimit: new(big.Int),
		PreVerificationGas:   new(big.Int),
		MaxFeePerGas:         maxFee,
		MaxPriorityFeePerGas: maxPriorityFee,
		PaymasterAndData:     []byte{},
		Signature:            DummySignature,
	}

	est, err := b.chain.EstimateGas(ctx, op, b.cfg.EntryPoint)
	if err != nil {
		return nil, fmt.Errorf("estimate gas: %w", err)
	}
	if est.CallGasLimit == nil || est.VerificationGasLimit == nil || est.PreVerificationGas == nil {
		return nil, fmt.Errorf("estimate gas: incomplete estimate")
	}
	op.CallGasLimit = est.CallGasLimit.ToInt()
	op.VerificationGasLimit = est.VerificationGasLimit.ToInt()
	op.PreVerificationGas = est.PreVerificationGas.ToInt()
	return op, nil
}

// Sign replaces op.Signature with the owner's EIP-191 signature over the
// user operation hash, the scheme LightAccount validates.
func Sign(op *UserOperation, entryPointAddr common.Address, chainID *big.Int, owner *crypto.Signer) error {
	hash, err := Hash(op, entryPointAddr, chainID)
	if err != nil {
		return err
	}
	sig, err := owner.SignPersonal(hash.Bytes())
	if err != nil {
		return fmt.Errorf("sign user operation: %w", err)
	}
	op.Signature = sig
	return nil
}

// Sign signs op for the builder's entry point and chain.
func (b *Builder) Sign(op *UserOperation, owner *crypto.Signer) error {
	if owner.Address() != b.owner {
		return fmt.Errorf("signer %s is not the account owner %s", owner.Address().Hex(), b.owner.Hex())
	}
	return Sign(op, b.cfg.EntryPoint, b.cfg.ChainID, owner)
}
