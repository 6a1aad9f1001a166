// Package column implements the typed, append-only columnar buffers that
// fetch tasks fill in and the writer serializes. Every dataset declares a
// map of column name -> Kind; a Buffer is the in-memory realization of that
// map for one chunk.
package column

import "fmt"

// Kind is the physical encoding of one column's values.
type Kind int

const (
	KindUint32 Kind = iota
	KindUint64
	KindInt64
	KindFloat64
	KindString
	KindBytes
	KindBool
	// KindU256 holds the canonical 32-byte big-endian representation of a
	// logical u256 value. It is never written directly to a file; the
	// schema projector (internal/schema) expands it into sibling columns
	// per the query's configured encodings.
	KindU256
)

// Column is a single typed, append-only vector. Exactly one of the typed
// slices is populated, selected by Kind. Valid is non-nil only for columns
// that can hold nulls (narrow u256 projections that overflowed their width);
// Valid[i] == false means the cell at i is null.
type Column struct {
	Name  string
	Kind  Kind
	U32   []uint32
	U64   []uint64
	I64   []int64
	F64   []float64
	Str   []string
	Bytes [][]byte
	Bool  []bool
	U256  [][32]byte
	Valid []bool
}

// NewColumn allocates an empty Column of the given kind with capacity hint n.
func NewColumn(name string, kind Kind, n int) *Column {
	c := &Column{Name: name, Kind: kind}
	switch kind {
	case KindUint32:
		c.U32 = make([]uint32, 0, n)
	case KindUint64:
		c.U64 = make([]uint64, 0, n)
	case KindInt64:
		c.I64 = make([]int64, 0, n)
	case KindFloat64:
		c.F64 = make([]float64, 0, n)
	case KindString:
		c.Str = make([]string, 0, n)
	case KindBytes:
		c.Bytes = make([][]byte, 0, n)
	case KindBool:
		c.Bool = make([]bool, 0, n)
	case KindU256:
		c.U256 = make([][32]byte, 0, n)
	}
	return c
}

// Len returns the number of cells appended so far.
func (c *Column) Len() int {
	switch c.Kind {
	case KindUint32:
		return len(c.U32)
	case KindUint64:
		return len(c.U64)
	case KindInt64:
		return len(c.I64)
	case KindFloat64:
		return len(c.F64)
	case KindString:
		return len(c.Str)
	case KindBytes:
		return len(c.Bytes)
	case KindBool:
		return len(c.Bool)
	case KindU256:
		return len(c.U256)
	default:
		return 0
	}
}

func (c *Column) AppendUint32(v uint32)   { c.U32 = append(c.U32, v) }
func (c *Column) AppendUint64(v uint64)   { c.U64 = append(c.U64, v) }
func (c *Column) AppendInt64(v int64)     { c.I64 = append(c.I64, v) }
func (c *Column) AppendFloat64(v float64) { c.F64 = append(c.F64, v) }
func (c *Column) AppendString(v string)   { c.Str = append(c.Str, v) }
func (c *Column) AppendBytes(v []byte)    { c.Bytes = append(c.Bytes, v) }
func (c *Column) AppendBool(v bool)       { c.Bool = append(c.Bool, v) }
func (c *Column) AppendU256(v [32]byte)   { c.U256 = append(c.U256, v) }

// Buffer is the set of column vectors for one (dataset, chunk) fetch. Names
// preserves declaration order so writers emit columns deterministically.
type Buffer struct {
	Names   []string
	Columns map[string]*Column
}

// NewBuffer allocates a Buffer with one empty Column per (name, kind) pair,
// in the given order.
func NewBuffer(order []string, kinds map[string]Kind, cap int) *Buffer {
	b := &Buffer{Names: append([]string(nil), order...), Columns: make(map[string]*Column, len(order))}
	for _, name := range order {
		b.Columns[name] = NewColumn(name, kinds[name], cap)
	}
	return b
}

// Col fetches a column by name, panicking if it is not part of this buffer's
// schema — a programmer error in a decoder, not a runtime condition.
func (b *Buffer) Col(name string) *Column {
	c, ok := b.Columns[name]
	if !ok {
		panic(fmt.Sprintf("column %q not declared in buffer schema", name))
	}
	return c
}

// CheckEqualLength verifies the invariant from spec.md §3: after a fetch
// completes, every column in the buffer must have the same length.
func (b *Buffer) CheckEqualLength() error {
	if len(b.Names) == 0 {
		return nil
	}
	want := b.Columns[b.Names[0]].Len()
	for _, name := range b.Names {
		if got := b.Columns[name].Len(); got != want {
			return fmt.Errorf("column %q has length %d, want %d (column %q)", name, got, want, b.Names[0])
		}
	}
	return nil
}

// NumRows returns the common row count, or 0 for an empty buffer.
func (b *Buffer) NumRows() int {
	if len(b.Names) == 0 {
		return 0
	}
	return b.Columns[b.Names[0]].Len()
}
