package crypto

import (
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"pgregory.net/rapid"
)

// Reference vectors from EIP-55.
var eip55Vectors = []string{
	// all caps
	"0x52908400098527886E0F7030069857D2E4169EE7",
	"0x8617E340B3D01FA5F11F306F4090FD50E238070D",
	// all lower
	"0xde709f2102306220921060314715629080e2fb77",
	"0x27b1fdb04752bbc536007a920d24acb045561c26",
	// normal
	"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
	"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
	"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
	"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
}

func TestToChecksumAddress_Vectors(t *testing.T) {
	for _, want := range eip55Vectors {
		got, err := ToChecksumAddress(strings.ToLower(want))
		if err != nil {
			t.Fatalf("ToChecksumAddress(%s): %v", want, err)
		}
		if got != want {
			t.Errorf("ToChecksumAddress(lower(%s)) = %s", want, got)
		}

		// already checksummed input is recomputed, not copied
		again, err := ToChecksumAddress(want)
		if err != nil || again != want {
			t.Errorf("ToChecksumAddress(%s) = %s, %v", want, again, err)
		}
	}
}

func TestEIP55_Vectors(t *testing.T) {
	for _, want := range eip55Vectors {
		raw := common.FromHex(want)
		got, err := EIP55(raw)
		if err != nil {
			t.Fatalf("EIP55(%x): %v", raw, err)
		}
		if got != want {
			t.Errorf("EIP55(%x) = %s, want %s", raw, got, want)
		}
		if addr := ChecksumAddress(common.BytesToAddress(raw)); addr != want {
			t.Errorf("ChecksumAddress = %s, want %s", addr, want)
		}
	}
}

func TestEIP55_Length(t *testing.T) {
	for _, n := range []int{0, 1, 19, 21, 32} {
		_, err := EIP55(make([]byte, n))
		if !errors.Is(err, ErrInvalidAddressLength) {
			t.Errorf("EIP55(%d bytes) err = %v, want ErrInvalidAddressLength", n, err)
		}
	}
}

func TestIsValidAddress(t *testing.T) {
	tests := []struct {
		name string
		addr string
		want bool
	}{
		{"checksummed", "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", true},
		{"all lowercase ignores checksum", "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", true},
		{"all digits", "0x1234567890123456789012345678901234567890", true},
		{"zero address", "0x0000000000000000000000000000000000000000", true},
		{"bad checksum", "0x5AAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", false},
		{"all caps of mixed vector", "0x5AAEB6053F3E94C9B9A09F33669435E7EF1BEAED", false},
		{"missing prefix", "5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", false},
		{"uppercase prefix", "0X5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", false},
		{"too short", "0x5aaeb6053f3e94c9b9a09f33669435e7ef1bea", false},
		{"too long", "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed00", false},
		{"non hex", "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaeg", false},
		{"empty", "", false},
		{"prefix only", "0x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidAddress(tt.addr); got != tt.want {
				t.Errorf("IsValidAddress(%q) = %v, want %v", tt.addr, got, tt.want)
			}
		})
	}
}

func TestToChecksumAddress_Invalid(t *testing.T) {
	for _, addr := range []string{
		"",
		"0x5AAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
		"0xzz",
	} {
		if _, err := ToChecksumAddress(addr); !errors.Is(err, ErrInvalidAddressFormat) {
			t.Errorf("ToChecksumAddress(%q) err = %v, want ErrInvalidAddressFormat", addr, err)
		}
	}
}

func TestIsValidAddress_SingleCaseFlip(t *testing.T) {
	for _, addr := range eip55Vectors {
		for i := 2; i < len(addr); i++ {
			flipped, ok := flipCase(addr, i)
			if !ok || !hasUpper(flipped[2:]) {
				continue
			}
			if IsValidAddress(flipped) {
				t.Errorf("IsValidAddress(%s) = true after flipping index %d of %s", flipped, i, addr)
			}
		}
	}
}

func TestChecksumProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		raw := rapid.SliceOfN(rapid.Byte(), AddressLength, AddressLength).Draw(t, "raw")

		sum, err := EIP55(raw)
		if err != nil {
			t.Fatalf("EIP55: %v", err)
		}
		if !IsValidAddress(sum) {
			t.Fatalf("IsValidAddress(%s) = false", sum)
		}
		if lower := strings.ToLower(sum); !IsValidAddress(lower) {
			t.Fatalf("lowercase %s rejected", lower)
		}

		again, err := ToChecksumAddress(strings.ToLower(sum))
		if err != nil || again != sum {
			t.Fatalf("ToChecksumAddress(lower(%s)) = %s, %v", sum, again, err)
		}

		// matches go-ethereum's own EIP-55 encoding
		if geth := common.BytesToAddress(raw).Hex(); geth != sum {
			t.Fatalf("EIP55 = %s, go-ethereum = %s", sum, geth)
		}

		i := rapid.IntRange(2, len(sum)-1).Draw(t, "index")
		if flipped, ok := flipCase(sum, i); ok && hasUpper(flipped[2:]) && IsValidAddress(flipped) {
			t.Fatalf("flipping index %d of %s still validates", i, sum)
		}
	})
}

func flipCase(s string, i int) (string, bool) {
	b := []byte(s)
	switch c := b[i]; {
	case c >= 'a' && c <= 'f':
		b[i] = c - ('a' - 'A')
	case c >= 'A' && c <= 'F':
		b[i] = c + ('a' - 'A')
	default:
		return "", false
	}
	return string(b), true
}
