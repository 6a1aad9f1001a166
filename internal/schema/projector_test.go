package schema

import (
	"testing"

	"github.com/ethcryo/cryo/internal/column"
)

func TestProjectDropsUnincludedColumns(t *testing.T) {
	buf := column.NewBuffer(
		[]string{"block_number", "miner"},
		map[string]column.Kind{"block_number": column.KindUint64, "miner": column.KindBytes},
		2,
	)
	buf.Col("block_number").AppendUint64(1)
	buf.Col("block_number").AppendUint64(2)
	buf.Col("miner").AppendBytes([]byte{0x01})
	buf.Col("miner").AppendBytes([]byte{0x02})

	p, err := Project(buf, []string{"block_number"}, nil, false)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if len(p.Names) != 1 || p.Names[0] != "block_number" {
		t.Fatalf("expected only block_number projected, got %v", p.Names)
	}
	if p.NumRows != 2 {
		t.Fatalf("expected 2 rows, got %d", p.NumRows)
	}
}

func TestProjectHexEncodesBytesWhenRequested(t *testing.T) {
	buf := column.NewBuffer([]string{"hash"}, map[string]column.Kind{"hash": column.KindBytes}, 1)
	buf.Col("hash").AppendBytes([]byte{0xde, 0xad})

	p, err := Project(buf, []string{"hash"}, nil, true)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	got, ok := p.Columns["hash"][0].(string)
	if !ok || got != "0xdead" {
		t.Fatalf("expected hex-encoded 0xdead, got %#v", p.Columns["hash"][0])
	}
}

func TestProjectU256ExpandsSiblingColumns(t *testing.T) {
	var val [32]byte
	val[31] = 42
	buf := column.NewBuffer([]string{"value"}, map[string]column.Kind{"value": column.KindU256}, 1)
	buf.Col("value").AppendU256(val)

	p, err := Project(buf, []string{"value"}, []column.U256Encoding{column.EncodingU64, column.EncodingString}, false)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if v, ok := p.Columns["value_u64"]; !ok || v[0].(uint64) != 42 {
		t.Fatalf("expected value_u64=42, got %#v (ok=%v)", p.Columns["value_u64"], ok)
	}
	if v, ok := p.Columns["value_string"]; !ok || v[0].(string) != "42" {
		t.Fatalf("expected value_string=\"42\", got %#v (ok=%v)", p.Columns["value_string"], ok)
	}
}

func TestProjectU256OverflowIsNullNotTruncated(t *testing.T) {
	var val [32]byte
	for i := range val {
		val[i] = 0xff // max u256, overflows u32
	}
	buf := column.NewBuffer([]string{"value"}, map[string]column.Kind{"value": column.KindU256}, 1)
	buf.Col("value").AppendU256(val)

	p, err := Project(buf, []string{"value"}, []column.U256Encoding{column.EncodingU32}, false)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if p.Columns["value_u32"][0] != nil {
		t.Fatalf("expected overflowed narrow projection to be null, got %#v", p.Columns["value_u32"][0])
	}
}

func TestProjectRejectsUnequalColumnLengths(t *testing.T) {
	buf := column.NewBuffer(
		[]string{"a", "b"},
		map[string]column.Kind{"a": column.KindUint64, "b": column.KindUint64},
		2,
	)
	buf.Col("a").AppendUint64(1)
	buf.Col("a").AppendUint64(2)
	buf.Col("b").AppendUint64(1)

	if _, err := Project(buf, []string{"a", "b"}, nil, false); err == nil {
		t.Fatal("expected error for mismatched column lengths")
	}
}

func TestSortOrdersRowsByColumnAscending(t *testing.T) {
	p := &Projected{
		Names: []string{"block_number", "address"},
		Columns: map[string][]interface{}{
			"block_number": {uint64(3), uint64(1), uint64(2)},
			"address":      {"c", "a", "b"},
		},
		NumRows: 3,
	}
	Sort(p, []string{"block_number"})

	want := []uint64{1, 2, 3}
	for i, w := range want {
		if got := p.Columns["block_number"][i].(uint64); got != w {
			t.Fatalf("row %d: block_number=%d, want %d", i, got, w)
		}
	}
	wantAddr := []string{"a", "b", "c"}
	for i, w := range wantAddr {
		if got := p.Columns["address"][i].(string); got != w {
			t.Fatalf("row %d: address=%q, want %q (sibling column not permuted in lockstep)", i, got, w)
		}
	}
}

func TestSortBreaksTiesByTrailingColumn(t *testing.T) {
	p := &Projected{
		Names: []string{"block_number", "log_index"},
		Columns: map[string][]interface{}{
			"block_number": {uint64(1), uint64(1), uint64(1)},
			"log_index":    {uint32(2), uint32(0), uint32(1)},
		},
		NumRows: 3,
	}
	Sort(p, []string{"block_number", "log_index"})

	want := []uint32{0, 1, 2}
	for i, w := range want {
		if got := p.Columns["log_index"][i].(uint32); got != w {
			t.Fatalf("row %d: log_index=%d, want %d", i, got, w)
		}
	}
}

func TestSortSkipsMissingColumns(t *testing.T) {
	p := &Projected{
		Names:   []string{"block_number"},
		Columns: map[string][]interface{}{"block_number": {uint64(2), uint64(1)}},
		NumRows: 2,
	}
	// "address" was projected out; Sort must fall back to the remaining
	// known sort column instead of erroring or no-op'ing entirely.
	Sort(p, []string{"address", "block_number"})
	if p.Columns["block_number"][0].(uint64) != 1 {
		t.Fatalf("expected sort by the one present column, got %#v", p.Columns["block_number"])
	}
}

func TestSortHandlesByteColumnsAndNulls(t *testing.T) {
	p := &Projected{
		Names: []string{"value"},
		Columns: map[string][]interface{}{
			"value": {[]byte{0x02}, nil, []byte{0x01}},
		},
		NumRows: 3,
	}
	Sort(p, []string{"value"})
	if p.Columns["value"][0] != nil {
		t.Fatalf("expected null to sort first, got %#v", p.Columns["value"][0])
	}
	if string(p.Columns["value"][1].([]byte)) != "\x01" {
		t.Fatalf("expected 0x01 before 0x02, got %#v", p.Columns["value"][1])
	}
}
