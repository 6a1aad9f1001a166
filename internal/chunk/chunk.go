// Package chunk implements the chunker/partitioner (spec.md §4.2): grouping
// a resolved block list into Chunk work units.
package chunk

import "fmt"

// Chunk is a (usually contiguous) group of block numbers processed and
// written as one output file (spec.md §3).
type Chunk struct {
	MinBlock uint64
	MaxBlock uint64
	Blocks   []uint64 // ordered, ascending; may be non-contiguous
}

// Count returns the number of blocks in the chunk.
func (c Chunk) Count() int { return len(c.Blocks) }

// ID returns the stable identity string used for filenames: zero-padded
// min_to_max. width is the digit width of the largest block number across
// the whole chunk list, so all chunk filenames in one query sort correctly
// as strings.
func (c Chunk) ID(width int) string {
	return fmt.Sprintf("%0*d_to_%0*d", width, c.MinBlock, width, c.MaxBlock)
}

// PaddingWidth returns the digit width needed to print maxBlock across the
// whole query (spec.md §6, "zero-padded to a width that fits the maximum
// block in the query").
func PaddingWidth(maxBlock uint64) int {
	width := 1
	for n := maxBlock; n >= 10; n /= 10 {
		width++
	}
	return width
}
