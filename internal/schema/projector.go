// Package schema is the schema projector (spec.md §4.7): it takes the
// over-complete Buffer a dataset's Fetch produces and narrows it to the
// query's requested column list, hex-encoding flag, and u256 encodings,
// expanding each KindU256 column into its configured sibling columns
// (spec.md §3, "U256-encoded column"; §9, "generate sibling columns during
// the projector stage").
package schema

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/ethcryo/cryo/internal/column"
)

// Projected is the final, write-ready column layout for one chunk: column
// names in output order plus per-column rendered values. Cell is one of
// string/uint32/uint64/int64/float64/bool/[]byte/nil (nil means a narrow
// u256 projection overflowed — spec.md §3's "cell is null" requirement).
type Projected struct {
	Names   []string
	Columns map[string][]interface{}
	NumRows int
}

// Project narrows buf to includeColumns (already resolved by
// Query.IncludedColumns), expands any KindU256 column into
// "{name}_{suffix}" siblings per encodings, and hex-encodes KindBytes
// columns as "0x..."-prefixed strings when hexFlag is set.
func Project(buf *column.Buffer, includeColumns []string, encodings []column.U256Encoding, hexFlag bool) (*Projected, error) {
	if err := buf.CheckEqualLength(); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	p := &Projected{Columns: map[string][]interface{}{}, NumRows: buf.NumRows()}

	include := make(map[string]bool, len(includeColumns))
	for _, c := range includeColumns {
		include[c] = true
	}

	for _, name := range buf.Names {
		if !include[name] {
			continue
		}
		col := buf.Columns[name]
		if col.Kind == column.KindU256 {
			projectU256(p, name, col, encodings)
			continue
		}
		p.Names = append(p.Names, name)
		p.Columns[name] = renderColumn(col, hexFlag)
	}
	return p, nil
}

func projectU256(p *Projected, name string, col *column.Column, encodings []column.U256Encoding) {
	for _, enc := range encodings {
		colName := name + "_" + enc.Suffix()
		p.Names = append(p.Names, colName)
		cells := make([]interface{}, len(col.U256))
		for i, u := range col.U256 {
			cells[i] = renderU256(u, enc)
		}
		p.Columns[colName] = cells
	}
}

func renderU256(u [32]byte, enc column.U256Encoding) interface{} {
	switch enc {
	case column.EncodingBinary:
		return u[:]
	case column.EncodingString:
		return column.DecimalString(u)
	case column.EncodingD128:
		if column.Big(u).BitLen() > 128 {
			return nil // overflow: null, never truncated (spec.md §3, §9)
		}
		return column.DecimalString(u)
	default:
		u32, u64, f32, f64, ok := column.ProjectNarrow(u, enc)
		if !ok {
			return nil // overflow: null, never truncated (spec.md §3, §9)
		}
		switch enc {
		case column.EncodingU32:
			return u32
		case column.EncodingU64:
			return u64
		case column.EncodingF32:
			return f32
		case column.EncodingF64:
			return f64
		}
		return nil
	}
}

// Sort reorders p's rows in place by sortColumns, ascending, stable on
// ties — the sort stage spec.md §4.5 requires before a chunk is written:
// "rows within a chunk file are sorted by the dataset's default sort (or
// the user-specified sort, or unsorted if sort=none)". This is what makes
// map-iterating fetchers (statediffs.go ranges over Go maps, whose order
// is randomized per run) produce byte-identical output across runs,
// per spec.md §8's idempotence property. Columns not present in p (e.g.
// because the query's projection excluded them) are skipped rather than
// treated as an error.
func Sort(p *Projected, sortColumns []string) {
	cols := make([]string, 0, len(sortColumns))
	for _, name := range sortColumns {
		if _, ok := p.Columns[name]; ok {
			cols = append(cols, name)
		}
	}
	if len(cols) == 0 || p.NumRows < 2 {
		return
	}

	perm := make([]int, p.NumRows)
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool {
		i, j := perm[a], perm[b]
		for _, name := range cols {
			c := compareCell(p.Columns[name][i], p.Columns[name][j])
			if c != 0 {
				return c < 0
			}
		}
		return false
	})

	for _, name := range p.Names {
		col := p.Columns[name]
		sorted := make([]interface{}, len(col))
		for newIdx, oldIdx := range perm {
			sorted[newIdx] = col[oldIdx]
		}
		p.Columns[name] = sorted
	}
}

// compareCell orders two projected cells of the same column (therefore the
// same dynamic type, modulo a nil from an overflowed narrow u256
// projection, which sorts first).
func compareCell(a, b interface{}) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	switch av := a.(type) {
	case uint32:
		bv := b.(uint32)
		return cmpUint64(uint64(av), uint64(bv))
	case uint64:
		bv := b.(uint64)
		return cmpUint64(av, bv)
	case int64:
		bv := b.(int64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case float64:
		bv := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case bool:
		bv := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		default:
			return 1
		}
	case string:
		bv := b.(string)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case []byte:
		return bytes.Compare(av, b.([]byte))
	default:
		return 0
	}
}

func cmpUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func renderColumn(col *column.Column, hexFlag bool) []interface{} {
	n := col.Len()
	out := make([]interface{}, n)
	switch col.Kind {
	case column.KindUint32:
		for i, v := range col.U32 {
			out[i] = v
		}
	case column.KindUint64:
		for i, v := range col.U64 {
			out[i] = v
		}
	case column.KindInt64:
		for i, v := range col.I64 {
			out[i] = v
		}
	case column.KindFloat64:
		for i, v := range col.F64 {
			out[i] = v
		}
	case column.KindString:
		for i, v := range col.Str {
			out[i] = v
		}
	case column.KindBool:
		for i, v := range col.Bool {
			out[i] = v
		}
	case column.KindBytes:
		for i, v := range col.Bytes {
			if hexFlag {
				out[i] = "0x" + hex.EncodeToString(v)
			} else {
				out[i] = v
			}
		}
	}
	return out
}
