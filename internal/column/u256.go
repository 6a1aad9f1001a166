package column

import (
	"math"
	"math/big"
	"strings"
)

// U256Encoding names one of the physical encodings a logical u256 value can
// be projected into (spec.md §3, "U256-encoded column").
type U256Encoding int

const (
	EncodingBinary U256Encoding = iota // raw 32-byte big-endian
	EncodingString                     // base-10 decimal string, arbitrary precision
	EncodingU32
	EncodingU64
	EncodingF32
	EncodingF64
	EncodingD128 // 128-bit decimal, stored here as a fixed-point string scaled by 0 (i.e. same as string but width-checked to fit 128 bits of precision)
)

// Suffix returns the column-name suffix the projector appends, e.g.
// "value" + EncodingU64.Suffix() -> "value_binary", "value_u64", ...
func (e U256Encoding) Suffix() string {
	switch e {
	case EncodingBinary:
		return "binary"
	case EncodingString:
		return "string"
	case EncodingU32:
		return "u32"
	case EncodingU64:
		return "u64"
	case EncodingF32:
		return "f32"
	case EncodingF64:
		return "f64"
	case EncodingD128:
		return "d128"
	default:
		return "unknown"
	}
}

// ParseU256Encoding maps a query-facing name to a U256Encoding.
func ParseU256Encoding(s string) (U256Encoding, bool) {
	switch strings.ToLower(s) {
	case "binary":
		return EncodingBinary, true
	case "string":
		return EncodingString, true
	case "u32":
		return EncodingU32, true
	case "u64":
		return EncodingU64, true
	case "f32":
		return EncodingF32, true
	case "f64":
		return EncodingF64, true
	case "d128", "decimal128":
		return EncodingD128, true
	default:
		return 0, false
	}
}

// U256FromBig converts a non-negative big.Int into its canonical 32-byte
// big-endian representation. Values wider than 256 bits are truncated to
// their low 256 bits by big.Int.FillBytes's panic-on-overflow behavior being
// avoided here: callers in the decode layer are expected to only pass values
// that came off the wire as 32-byte (or narrower) EVM words.
func U256FromBig(v *big.Int) [32]byte {
	var out [32]byte
	if v == nil {
		return out
	}
	b := v.Bytes()
	if len(b) > 32 {
		b = b[len(b)-32:]
	}
	copy(out[32-len(b):], b)
	return out
}

// Big converts a canonical 32-byte big-endian value back into a *big.Int.
func Big(u [32]byte) *big.Int {
	return new(big.Int).SetBytes(u[:])
}

// ProjectNarrow converts a canonical u256 value into one of the narrower
// physical encodings. ok is false when the value does not fit in the target
// width; per spec.md §3 and §9, overflow is never silently truncated — the
// caller must store a null for this cell and mark it out-of-range, not
// substitute a modulo-truncated value.
func ProjectNarrow(u [32]byte, enc U256Encoding) (u32 uint32, u64 uint64, f32 float32, f64 float64, ok bool) {
	v := Big(u)
	switch enc {
	case EncodingU32:
		if !v.IsUint64() || v.Uint64() > 0xFFFFFFFF {
			return 0, 0, 0, 0, false
		}
		return uint32(v.Uint64()), 0, 0, 0, true
	case EncodingU64:
		if !v.IsUint64() {
			return 0, 0, 0, 0, false
		}
		return 0, v.Uint64(), 0, 0, true
	case EncodingF32:
		f, _ := new(big.Float).SetInt(v).Float32()
		if math.IsInf(float64(f), 0) {
			return 0, 0, 0, 0, false
		}
		return 0, 0, f, 0, true
	case EncodingF64:
		f, _ := new(big.Float).SetInt(v).Float64()
		if math.IsInf(f, 0) {
			return 0, 0, 0, 0, false
		}
		return 0, 0, 0, f, true
	default:
		return 0, 0, 0, 0, true
	}
}

// DecimalString renders the canonical value as a base-10 string, the
// representation used by both EncodingString and EncodingD128.
func DecimalString(u [32]byte) string {
	return Big(u).String()
}
