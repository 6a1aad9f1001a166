// Package abiutil computes function selectors, event-signature topics, and
// ABI-encoded call arguments, generalized from the teacher's
// internal/rpc/abi.go (which hard-coded a single balanceOf(address) call).
// The datasets use it for address validation (the logs contract filter and
// the balances/codes/nonces/storages state reads, which call
// eth_getBalance/eth_getCode/eth_getTransactionCount/eth_getStorageAt) and
// for topic-filtered eth_getLogs requests (the logs dataset's topic and
// event-signature filters, spec.md §4.5 step 5). The selector and calldata
// encoders are not called by any dataset.
package abiutil

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/sha3"
)

// FunctionSelector computes the 4-byte function selector from a Solidity
// signature, e.g. "balanceOf(address)" -> 0x70a08231.
func FunctionSelector(signature string) []byte {
	return keccak256([]byte(signature))[:4]
}

// EventTopic computes the 32-byte topic0 hash of an event signature, e.g.
// "Transfer(address,address,uint256)" -> the Transfer topic.
func EventTopic(signature string) [32]byte {
	var out [32]byte
	copy(out[:], keccak256([]byte(signature)))
	return out
}

func keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}

// EncodeAddress left-pads a 20-byte Ethereum address to a 32-byte ABI word.
func EncodeAddress(addr string) ([]byte, error) {
	addr = strings.TrimPrefix(strings.ToLower(addr), "0x")
	if len(addr) != 40 {
		return nil, fmt.Errorf("invalid address length: expected 40 hex chars, got %d", len(addr))
	}
	raw, err := hex.DecodeString(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid address hex: %w", err)
	}
	padded := make([]byte, 32)
	copy(padded[12:], raw)
	return padded, nil
}

// EncodeUint256 encodes n as a left-padded 32-byte ABI word. n must be
// non-negative and fit in 256 bits; the caller (a dataset's query-filter
// validation) is expected to have already checked this.
func EncodeUint256(n *big.Int) ([]byte, error) {
	if n.Sign() < 0 {
		return nil, fmt.Errorf("negative value not representable as uint256: %s", n)
	}
	b := n.Bytes()
	if len(b) > 32 {
		return nil, fmt.Errorf("value wider than 256 bits: %s", n)
	}
	padded := make([]byte, 32)
	copy(padded[32-len(b):], b)
	return padded, nil
}

// EncodeCalldata builds "0x" + selector + concatenated 32-byte-padded args,
// the shape of an eth_call request's data field.
func EncodeCalldata(signature string, args ...[]byte) string {
	selector := FunctionSelector(signature)
	buf := make([]byte, 0, len(selector)+32*len(args))
	buf = append(buf, selector...)
	for _, a := range args {
		buf = append(buf, a...)
	}
	return "0x" + hex.EncodeToString(buf)
}

// ValidateAddress checks that s is a well-formed 20-byte hex address, with
// or without a "0x" prefix.
func ValidateAddress(s string) error {
	s = strings.TrimPrefix(s, "0x")
	if len(s) != 40 {
		return fmt.Errorf("invalid address length: expected 40 hex chars (with or without 0x prefix), got %d", len(s))
	}
	if _, err := hex.DecodeString(s); err != nil {
		return fmt.Errorf("invalid address: contains non-hex characters")
	}
	return nil
}

// NormalizeTopic pads a user-supplied topic filter (an address or a raw
// 32-byte value given in hex) out to the 32-byte, "0x"-prefixed form
// eth_getLogs expects in its topics array.
func NormalizeTopic(s string) (string, error) {
	s = strings.TrimPrefix(s, "0x")
	if len(s) > 64 {
		return "", fmt.Errorf("topic wider than 32 bytes: %q", s)
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", fmt.Errorf("invalid topic hex: %q", s)
	}
	return "0x" + strings.Repeat("0", 64-len(s)) + s, nil
}
