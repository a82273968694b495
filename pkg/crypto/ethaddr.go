// file: pkg/crypto/ethaddr.go
package crypto

import (
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

const (
	// AddressLength is the size of a raw account address in bytes.
	AddressLength = 20

	addressHexLen = 2 * AddressLength
)

// IsValidAddress reports whether s is a 0x-prefixed 40 digit hex address
// whose checksum, if it carries one, is correct.
// An all-lowercase address encodes no checksum and is always accepted.
func IsValidAddress(s string) bool {
	body, ok := addressBody(s)
	if !ok {
		return false
	}
	if !hasUpper(body) {
		return true
	}
	return checksumHex(toLower(body)) == body
}

// ToChecksumAddress returns the EIP-55 form of a 0x-prefixed hex address.
// The checksum is always recomputed from the lowercased body.
func ToChecksumAddress(s string) (string, error) {
	if !IsValidAddress(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddressFormat, s)
	}
	body, _ := addressBody(s)
	return "0x" + checksumHex(toLower(body)), nil
}

// EIP55 computes the checksummed hex address string from 20-byte raw address.
func EIP55(addr20 []byte) (string, error) {
	if len(addr20) != AddressLength {
		return "", fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidAddressLength, AddressLength, len(addr20))
	}
	return "0x" + checksumHex(hex.EncodeToString(addr20)), nil
}

// ChecksumAddress is EIP55 for a go-ethereum address value.
func ChecksumAddress(addr common.Address) string {
	return "0x" + checksumHex(hex.EncodeToString(addr[:]))
}

// checksumHex re-cases a lowercase 40 digit hex body.
func checksumHex(lower string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	hash := h.Sum(nil)

	out := []byte(lower)
	for i, c := range out {
		if c < 'a' || c > 'f' {
			continue
		}
		// each hex char maps to one nibble of the hash: i>>1 picks the byte,
		// even/odd picks high/low
		nibble := hash[i>>1] & 0x0f
		if i%2 == 0 {
			nibble = hash[i>>1] >> 4
		}
		if nibble > 7 {
			out[i] = c - ('a' - 'A')
		}
	}
	return string(out)
}

// addressBody strips the 0x prefix and checks the remaining 40 hex digits.
func addressBody(s string) (string, bool) {
	if len(s) != 2+addressHexLen || s[0] != '0' || s[1] != 'x' {
		return "", false
	}
	body := s[2:]
	for i := 0; i < len(body); i++ {
		c := body[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return "", false
		}
	}
	return body, true
}

func hasUpper(body string) bool {
	for i := 0; i < len(body); i++ {
		if body[i] >= 'A' && body[i] <= 'F' {
			return true
		}
	}
	return false
}

func toLower(body string) string {
	out := []byte(body)
	for i, c := range out {
		if c >= 'A' && c <= 'F' {
			out[i] = c + ('a' - 'A')
		}
	}
	return string(out)
}
