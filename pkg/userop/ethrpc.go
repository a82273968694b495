package userop

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// NodeBackend is the subset of ethclient.Client used by EthClient.
type NodeBackend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// BundlerBackend issues raw JSON-RPC calls; *rpc.Client implements it.
type BundlerBackend interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
}

// EthClient reads account state from a node and gas limits from a bundler.
type EthClient struct {
	node    NodeBackend
	bundler BundlerBackend
	closers []func()
}

// NewEthClient wraps existing backends.
func NewEthClient(node NodeBackend, bundler BundlerBackend) *EthClient {
	return &EthClient{node: node, bundler: bundler}
}

// DialEthClient connects to rpcURL for chain reads and bundlerURL for
// eth_estimateUserOperationGas. An empty bundlerURL reuses rpcURL.
func DialEthClient(ctx context.Context, rpcURL, bundlerURL string) (*EthClient, error) {
	nodeRPC, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc %s: %w", rpcURL, err)
	}
	c := &EthClient{
		node:    ethclient.NewClient(nodeRPC),
		bundler: nodeRPC,
		closers: []func(){nodeRPC.Close},
	}
	if bundlerURL != "" && bundlerURL != rpcURL {
		bundlerRPC, err := rpc.DialContext(ctx, bundlerURL)
		if err != nil {
			nodeRPC.Close()
			return nil, fmt.Errorf("dial bundler %s: %w", bundlerURL, err)
		}
		c.bundler = bundlerRPC
		c.closers = append(c.closers, bundlerRPC.Close)
	}
	return c, nil
}

// Close releases dialed connections.
func (c *EthClient) Close() {
	for _, closeFn := range c.closers {
		closeFn()
	}
}

func (c *EthClient) AccountAddress(ctx context.Context, factory, owner common.Address, salt *big.Int) (common.Address, error) {
	input, err := lightAccountFactory.Pack("getAddress", owner, bigOrZero(salt))
	if err != nil {
		return common.Address{}, err
	}
	out, err := c.node.CallContract(ctx, ethereum.CallMsg{To: &factory, Data: input}, nil)
	if err != nil {
		return common.Address{}, err
	}
	vals, err := lightAccountFactory.Unpack("getAddress", out)
	if err != nil {
		return common.Address{}, fmt.Errorf("decode getAddress: %w", err)
	}
	addr, ok := vals[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("decode getAddress: unexpected %T", vals[0])
	}
	return addr, nil
}

func (c *EthClient) IsDeployed(ctx context.Context, addr common.Address) (bool, error) {
	code, err := c.node.CodeAt(ctx, addr, nil)
	if err != nil {
		return false, err
	}
	return len(code) > 0, nil
}

func (c *EthClient) Nonce(ctx context.Context, entryPointAddr, sender common.Address) (*big.Int, error) {
	input, err := entryPoint.Pack("getNonce", sender, new(big.Int))
	if err != nil {
		return nil, err
	}
	out, err := c.node.CallContract(ctx, ethereum.CallMsg{To: &entryPointAddr, Data: input}, nil)
	if err != nil {
		return nil, err
	}
	vals, err := entryPoint.Unpack("getNonce", out)
	if err != nil {
		return nil, fmt.Errorf("decode getNonce: %w", err)
	}
	nonce, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("decode getNonce: unexpected %T", vals[0])
	}
	return nonce, nil
}

// GasFees returns baseFee + tip and the tip. Chains without a base fee get
// the legacy gas price for both.
func (c *EthClient) GasFees(ctx context.Context) (*big.Int, *big.Int, error) {
	head, err := c.node.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	if head.BaseFee == nil {
		price, err := c.node.SuggestGasPrice(ctx)
		if err != nil {
			return nil, nil, err
		}
		return price, new(big.Int).Set(price), nil
	}
	tip, err := c.node.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, nil, err
	}
	return new(big.Int).Add(head.BaseFee, tip), tip, nil
}

func (c *EthClient) EstimateGas(ctx context.Context, op *UserOperation, entryPointAddr common.Address) (*GasEstimate, error) {
	var est GasEstimate
	if err := c.bundler.CallContext(ctx, &est, "eth_estimateUserOperationGas", op, entryPointAddr); err != nil {
		return nil, err
	}
	return &est, nil
}

var _ ChainReader = (*EthClient)(nil)
