package column

import (
	"math/big"
	"testing"
)

func TestU256RoundTrip(t *testing.T) {
	v := new(big.Int)
	v.SetString("123456789012345678901234567890", 10)
	u := U256FromBig(v)
	got := Big(u)
	if got.Cmp(v) != 0 {
		t.Fatalf("round trip mismatch: got %s, want %s", got, v)
	}
}

func TestProjectNarrowOverflowIsNullNotTruncated(t *testing.T) {
	// 2^64, one past uint64's range.
	v := new(big.Int).Lsh(big.NewInt(1), 64)
	u := U256FromBig(v)

	_, _, _, _, ok := ProjectNarrow(u, EncodingU64)
	if ok {
		t.Fatalf("expected overflow to report ok=false, not a truncated value")
	}

	_, got, _, _, ok := ProjectNarrow(U256FromBig(big.NewInt(42)), EncodingU64)
	if !ok || got != 42 {
		t.Fatalf("in-range value should project cleanly: got=%d ok=%v", got, ok)
	}
}

func TestDecimalString(t *testing.T) {
	u := U256FromBig(big.NewInt(0))
	if DecimalString(u) != "0" {
		t.Fatalf("zero value should render as \"0\", got %q", DecimalString(u))
	}
}

func TestBufferEqualLengthInvariant(t *testing.T) {
	order := []string{"number", "hash"}
	kinds := map[string]Kind{"number": KindUint64, "hash": KindString}
	b := NewBuffer(order, kinds, 2)
	b.Col("number").AppendUint64(1)
	b.Col("hash").AppendString("0xabc")
	if err := b.CheckEqualLength(); err != nil {
		t.Fatalf("expected equal lengths, got %v", err)
	}

	b.Col("number").AppendUint64(2)
	if err := b.CheckEqualLength(); err == nil {
		t.Fatalf("expected mismatch error after unbalanced append")
	}
}
