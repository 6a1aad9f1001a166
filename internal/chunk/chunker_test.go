package chunk

import "testing"

func rangeBlocks(lo, hi uint64) []uint64 {
	out := make([]uint64, 0, hi-lo)
	for b := lo; b < hi; b++ {
		out = append(out, b)
	}
	return out
}

func TestPartitionBySizeScenario1(t *testing.T) {
	blocks := rangeBlocks(16000000, 16000010)
	chunks, err := Partition(blocks, Options{ChunkSize: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].MinBlock != 16000000 || chunks[0].MaxBlock != 16000004 || chunks[0].Count() != 5 {
		t.Fatalf("unexpected first chunk: %+v", chunks[0])
	}
	if chunks[1].MinBlock != 16000005 || chunks[1].MaxBlock != 16000009 || chunks[1].Count() != 5 {
		t.Fatalf("unexpected second chunk: %+v", chunks[1])
	}
}

func TestPartitionAlignedBoundaries(t *testing.T) {
	blocks := rangeBlocks(16000002, 16000023) // not starting on a chunk_size boundary
	chunks, err := Partition(blocks, Options{ChunkSize: 10, Align: true})
	if err != nil {
		t.Fatal(err)
	}
	for i, c := range chunks {
		first, last := i == 0, i == len(chunks)-1
		if !first && c.MinBlock%10 != 0 {
			t.Errorf("chunk %d min %d not aligned", i, c.MinBlock)
		}
		if !last && (c.MaxBlock+1)%10 != 0 {
			t.Errorf("chunk %d max %d not aligned", i, c.MaxBlock)
		}
	}
}

func TestPartitionNChunksTieBreak(t *testing.T) {
	blocks := rangeBlocks(0, 10)
	chunks, err := Partition(blocks, Options{ChunkSize: 3, NChunks: 4})
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 4 {
		t.Fatalf("n_chunks should win over chunk_size, got %d chunks", len(chunks))
	}
}

func TestPartitionEmpty(t *testing.T) {
	chunks, err := Partition(nil, Options{ChunkSize: 5})
	if err != nil || chunks != nil {
		t.Fatalf("expected nil, nil for empty input, got %v, %v", chunks, err)
	}
}
