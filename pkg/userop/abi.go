package userop

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const lightAccountABI = `[
  {"type":"function","name":"execute","stateMutability":"nonpayable","inputs":[
    {"name":"dest","type":"address"},{"name":"value","type":"uint256"},{"name":"func","type":"bytes"}],"outputs":[]}
]`

const lightAccountFactoryABI = `[
  {"type":"function","name":"createAccount","stateMutability":"nonpayable","inputs":[
    {"name":"owner","type":"address"},{"name":"salt","type":"uint256"}],"outputs":[{"name":"ret","type":"address"}]},
  {"type":"function","name":"getAddress","stateMutability":"view","inputs":[
    {"name":"owner","type":"address"},{"name":"salt","type":"uint256"}],"outputs":[{"name":"","type":"address"}]}
]`

const entryPointABI = `[
  {"type":"function","name":"getNonce","stateMutability":"view","inputs":[
    {"name":"sender","type":"address"},{"name":"key","type":"uint192"}],"outputs":[{"name":"nonce","type":"uint256"}]}
]`

var (
	lightAccount        = mustParseABI(lightAccountABI)
	lightAccountFactory = mustParseABI(lightAccountFactoryABI)
	entryPoint          = mustParseABI(entryPointABI)

	addressTy = mustType("address")
	uint256Ty = mustType("uint256")
	bytes32Ty = mustType("bytes32")

	// abi.encode layout of a v0.6 user operation with its dynamic fields
	// replaced by their hashes.
	packedUserOpArgs = abi.Arguments{
		{Type: addressTy}, // sender
		{Type: uint256Ty}, // nonce
		{Type: bytes32Ty}, // keccak(initCode)
		{Type: bytes32Ty}, // keccak(callData)
		{Type: uint256Ty}, // callGasLimit
		{Type: uint256Ty}, // verificationGasLimit
		{Type: uint256Ty}, // preVerificationGas
		{Type: uint256Ty}, // maxFeePerGas
		{Type: uint256Ty}, // maxPriorityFeePerGas
		{Type: bytes32Ty}, // keccak(paymasterAndData)
	}
	userOpHashArgs = abi.Arguments{
		{Type: bytes32Ty}, // keccak(packed)
		{Type: addressTy}, // entry point
		{Type: uint256Ty}, // chain id
	}
)

// EncodeExecute encodes LightAccount.execute(dest, value, func).
func EncodeExecute(dest common.Address, value *big.Int, data []byte) ([]byte, error) {
	if data == nil {
		data = []byte{}
	}
	out, err := lightAccount.Pack("execute", dest, bigOrZero(value), data)
	if err != nil {
		return nil, fmt.Errorf("encode execute: %w", err)
	}
	return out, nil
}

// EncodeCreateAccount encodes LightAccountFactory.createAccount(owner, salt).
func EncodeCreateAccount(owner common.Address, salt *big.Int) ([]byte, error) {
	out, err := lightAccountFactory.Pack("createAccount", owner, bigOrZero(salt))
	if err != nil {
		return nil, fmt.Errorf("encode createAccount: %w", err)
	}
	return out, nil
}

// InitCode is the factory address followed by the createAccount call.
func InitCode(factory, owner common.Address, salt *big.Int) ([]byte, error) {
	call, err := EncodeCreateAccount(owner, salt)
	if err != nil {
		return nil, err
	}
	return append(factory.Bytes(), call...), nil
}

// Hash computes the v0.6 user operation hash for entryPoint on chainID,
// the value EntryPoint.getUserOpHash returns.
func Hash(op *UserOperation, entryPointAddr common.Address, chainID *big.Int) (common.Hash, error) {
	packed, err := packedUserOpArgs.Pack(
		op.Sender,
		bigOrZero(op.Nonce),
		crypto.Keccak256Hash(op.InitCode),
		crypto.Keccak256Hash(op.CallData),
		bigOrZero(op.CallGasLimit),
		bigOrZero(op.VerificationGasLimit),
		bigOrZero(op.PreVerificationGas),
		bigOrZero(op.MaxFeePerGas),
		bigOrZero(op.MaxPriorityFeePerGas),
		crypto.Keccak256Hash(op.PaymasterAndData),
	)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack user operation: %w", err)
	}
	enc, err := userOpHashArgs.Pack(crypto.Keccak256Hash(packed), entryPointAddr, bigOrZero(chainID))
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack user operation hash: %w", err)
	}
	return crypto.Keccak256Hash(enc), nil
}

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}

func mustType(t string) abi.Type {
	ty, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return ty
}
