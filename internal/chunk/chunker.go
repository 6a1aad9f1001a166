package chunk

import (
	"fmt"
	"sort"
)

// Options configures how a resolved block list is grouped into chunks
// (spec.md §4.2).
type Options struct {
	ChunkSize uint64 // size of each chunk, in blocks; 0 means unset
	NChunks   int    // number of chunks to produce; 0 means unset
	Align     bool   // snap chunk starts to multiples of ChunkSize
}

// Partition groups blocks into an ordered, stable Chunk list. When both
// ChunkSize and NChunks are set, NChunks wins (spec.md §4.2 tie-break).
// blocks need not be sorted or contiguous, but align boundaries are only
// meaningful when the caller passes an ascending list (the normal case for
// a resolved BlockSpec).
func Partition(blocks []uint64, opts Options) ([]Chunk, error) {
	if len(blocks) == 0 {
		return nil, nil
	}
	switch {
	case opts.NChunks > 0:
		return partitionByCount(blocks, opts.NChunks), nil
	case opts.ChunkSize > 0 && opts.Align:
		return partitionAligned(blocks, opts.ChunkSize), nil
	case opts.ChunkSize > 0:
		return partitionBySize(blocks, opts.ChunkSize), nil
	default:
		return nil, fmt.Errorf("chunk: one of chunk_size or n_chunks must be set")
	}
}

func minMax(blocks []uint64) (min, max uint64) {
	min, max = blocks[0], blocks[0]
	for _, b := range blocks[1:] {
		if b < min {
			min = b
		}
		if b > max {
			max = b
		}
	}
	return
}

func newChunk(blocks []uint64) Chunk {
	min, max := minMax(blocks)
	return Chunk{MinBlock: min, MaxBlock: max, Blocks: blocks}
}

// partitionBySize groups blocks into consecutive runs of size n (the last
// run may be short), without regard to the numeric gaps between them. This
// is the unaligned case and is well defined for non-contiguous lists too.
func partitionBySize(blocks []uint64, size uint64) []Chunk {
	var chunks []Chunk
	for i := uint64(0); i < uint64(len(blocks)); i += size {
		end := i + size
		if end > uint64(len(blocks)) {
			end = uint64(len(blocks))
		}
		chunks = append(chunks, newChunk(append([]uint64(nil), blocks[i:end]...)))
	}
	return chunks
}

// partitionAligned groups blocks by the chunk_size-sized window
// floor(block/size) they fall in, so chunk boundaries land on multiples of
// size regardless of where the block list starts or ends (spec.md §4.2).
// For a non-contiguous block list (e.g. resolved from a parquet column),
// this still buckets purely by block value, so two runs that land in the
// same window but are far apart in list position are merged into one
// chunk — §9 open question (a), resolved this way since the alternative
// (splitting on position too) would contradict "chunks start at multiples
// of chunk_size" for the common contiguous case.
func partitionAligned(blocks []uint64, size uint64) []Chunk {
	buckets := make(map[uint64][]uint64)
	var order []uint64
	for _, b := range blocks {
		key := (b / size) * size
		if _, ok := buckets[key]; !ok {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], b)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	chunks := make([]Chunk, 0, len(order))
	for _, key := range order {
		chunks = append(chunks, newChunk(buckets[key]))
	}
	return chunks
}

// partitionByCount splits blocks into n roughly-equal contiguous slices in
// list order; the first len(blocks)%n slices get one extra element.
func partitionByCount(blocks []uint64, n int) []Chunk {
	if n > len(blocks) {
		n = len(blocks)
	}
	base := len(blocks) / n
	rem := len(blocks) % n

	chunks := make([]Chunk, 0, n)
	idx := 0
	for i := 0; i < n; i++ {
		size := base
		if i < rem {
			size++
		}
		if size == 0 {
			continue
		}
		chunks = append(chunks, newChunk(append([]uint64(nil), blocks[idx:idx+size]...)))
		idx += size
	}
	return chunks
}
