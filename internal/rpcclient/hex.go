package rpcclient

import (
	"fmt"
	"math/big"
	"strings"
)

// ParseHexUint64 converts a "0x..." hex string to uint64.
func ParseHexUint64(s string) (uint64, error) {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return 0, nil
	}
	v := new(big.Int)
	if _, ok := v.SetString(s, 16); !ok {
		return 0, fmt.Errorf("invalid hex uint64: %q", s)
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("value overflows uint64: %q", s)
	}
	return v.Uint64(), nil
}

// ParseHexBigInt converts a "0x..." hex string to a *big.Int.
func ParseHexBigInt(s string) (*big.Int, error) {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return big.NewInt(0), nil
	}
	v := new(big.Int)
	if _, ok := v.SetString(s, 16); !ok {
		return nil, fmt.Errorf("invalid hex bigint: %q", s)
	}
	return v, nil
}

// Uint64ToHex formats n as a "0x"-prefixed hex string for use as an RPC
// parameter (e.g. the block-number argument to eth_getBlockByNumber).
func Uint64ToHex(n uint64) string {
	return fmt.Sprintf("0x%x", n)
}

// ParseHexU256 parses a "0x..." hex string (up to 32 bytes) into its
// canonical big-endian [32]byte representation.
func ParseHexU256(s string) ([32]byte, error) {
	v, err := ParseHexBigInt(s)
	if err != nil {
		return [32]byte{}, err
	}
	var out [32]byte
	b := v.Bytes()
	if len(b) > 32 {
		return out, fmt.Errorf("value wider than 256 bits: %q", s)
	}
	copy(out[32-len(b):], b)
	return out, nil
}
