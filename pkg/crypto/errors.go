package crypto

import "errors"

var (
	// ErrInvalidAddressFormat is returned when a string is not a 0x-prefixed
	// 40 character hex address, or carries a checksum that does not match.
	ErrInvalidAddressFormat = errors.New("invalid address format")

	// ErrInvalidAddressLength is returned when raw address bytes are not
	// exactly 20 bytes long.
	ErrInvalidAddressLength = errors.New("invalid address length")

	// ErrInvalidHexEncoding is returned when a public key is not valid hex.
	ErrInvalidHexEncoding = errors.New("invalid hex encoding")

	// ErrInvalidPublicKey is returned when a public key cannot be decoded to
	// a point on secp256k1.
	ErrInvalidPublicKey = errors.New("invalid public key")
)
