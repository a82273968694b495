package crypto

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Deriver turns secp256k1 public keys into checksummed account addresses.
// It holds no per-call state and is safe for concurrent use.
type Deriver struct {
	backend Backend
}

// NewDeriver returns a Deriver over b. A nil backend selects GethBackend.
func NewDeriver(b Backend) *Deriver {
	if b == nil {
		b = GethBackend{}
	}
	return &Deriver{backend: b}
}

var defaultDeriver = NewDeriver(GethBackend{})

// DeriveAddress derives the checksummed address of a hex-encoded public key
// using the default backend.
func DeriveAddress(publicKeyHex string) (string, error) {
	return defaultDeriver.DeriveAddress(publicKeyHex)
}

// DeriveAddress decodes publicKeyHex (optional 0x prefix), decompresses it,
// and returns the EIP-55 form of the last 20 bytes of
// keccak256(X || Y).
func (d *Deriver) DeriveAddress(publicKeyHex string) (string, error) {
	raw := strings.TrimPrefix(strings.TrimPrefix(publicKeyHex, "0x"), "0X")
	pub, err := hex.DecodeString(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidHexEncoding, err)
	}
	return d.AddressFromPubkey(pub)
}

// AddressFromPubkey derives the checksummed address of a compressed (33
// byte) or uncompressed (65 byte) secp256k1 public key.
func (d *Deriver) AddressFromPubkey(pub []byte) (string, error) {
	if err := checkPubkeyShape(pub); err != nil {
		return "", err
	}
	uncompressed, err := d.backend.DecompressPubkey(pub)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	if len(uncompressed) != UncompressedPubKeyLength || uncompressed[0] != 0x04 {
		return "", fmt.Errorf("%w: backend returned %d byte key", ErrInvalidPublicKey, len(uncompressed))
	}
	return AddressFromUncompressedPub(d.backend, uncompressed)
}

// AddressFromUncompressedPub expects 65-byte uncompressed secp256k1 pubkey (0x04 || X || Y).
// Returns EIP-55 checksummed hex string like 0xABCD...
func AddressFromUncompressedPub(b Backend, pub []byte) (string, error) {
	if len(pub) != UncompressedPubKeyLength || pub[0] != 0x04 {
		return "", fmt.Errorf("%w: expected 65 byte uncompressed key", ErrInvalidPublicKey)
	}
	sum := b.Keccak256(pub[1:])
	return EIP55(sum[len(sum)-AddressLength:]) // last 20 bytes
}

// checkPubkeyShape rejects encodings other than 02/03 compressed and 04
// uncompressed before they reach a backend, so every backend sees the same
// inputs.
func checkPubkeyShape(pub []byte) error {
	switch {
	case len(pub) == CompressedPubKeyLength && (pub[0] == 0x02 || pub[0] == 0x03):
		return nil
	case len(pub) == UncompressedPubKeyLength && pub[0] == 0x04:
		return nil
	case len(pub) == 0:
		return fmt.Errorf("%w: empty key", ErrInvalidPublicKey)
	default:
		return fmt.Errorf("%w: %d bytes with prefix 0x%02x", ErrInvalidPublicKey, len(pub), pub[0])
	}
}
