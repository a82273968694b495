package crypto

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/sha3"
)

const (
	// CompressedPubKeyLength is 1 parity byte followed by the x coordinate.
	CompressedPubKeyLength = 33
	// UncompressedPubKeyLength is 0x04 || X || Y.
	UncompressedPubKeyLength = 65
)

// Backend supplies the two primitives address derivation needs.
type Backend interface {
	// Keccak256 returns the 32-byte legacy Keccak digest of the concatenated inputs.
	Keccak256(data ...[]byte) []byte
	// DecompressPubkey returns the 65-byte uncompressed form of a
	// secp256k1 public key given in compressed or uncompressed encoding.
	DecompressPubkey(pub []byte) ([]byte, error)
}

// GethBackend uses go-ethereum's crypto package.
type GethBackend struct{}

func (GethBackend) Keccak256(data ...[]byte) []byte { return ethcrypto.Keccak256(data...) }

func (GethBackend) DecompressPubkey(pub []byte) ([]byte, error) {
	switch len(pub) {
	case CompressedPubKeyLength:
		key, err := ethcrypto.DecompressPubkey(pub)
		if err != nil {
			return nil, err
		}
		return ethcrypto.FromECDSAPub(key), nil
	case UncompressedPubKeyLength:
		key, err := ethcrypto.UnmarshalPubkey(pub)
		if err != nil {
			return nil, err
		}
		return ethcrypto.FromECDSAPub(key), nil
	default:
		return nil, fmt.Errorf("unexpected public key length %d", len(pub))
	}
}

// DecredBackend uses dcrd's secp256k1 implementation with x/crypto Keccak.
type DecredBackend struct{}

func (DecredBackend) Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

func (DecredBackend) DecompressPubkey(pub []byte) ([]byte, error) {
	key, err := secp256k1.ParsePubKey(pub)
	if err != nil {
		return nil, err
	}
	return key.SerializeUncompressed(), nil
}

var (
	_ Backend = GethBackend{}
	_ Backend = DecredBackend{}
)
