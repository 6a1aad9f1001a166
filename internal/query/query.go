// Package query defines the Query value the engine is driven by (spec.md
// §3, "Query"). A Query is assembled once by the external CLI/parser
// collaborator (spec.md §1, out of scope here) and is immutable for the
// duration of a run — every fetch task reads it but none mutate it.
package query

import (
	"time"

	"github.com/ethcryo/cryo/internal/chunk"
	"github.com/ethcryo/cryo/internal/column"
)

// Filters holds the dataset-specific narrowing criteria spec.md §6 lists:
// "addresses, topics, slots, call data, function selector, event
// signature". Every field is optional; an empty Filters matches everything.
type Filters struct {
	Contracts       []string // address filter (logs.address, state-read target address)
	Topics          [4]string // eth_getLogs topics[0..3], "" means wildcard
	Slots           []string // storage_diffs / storages: 32-byte storage slot keys
	CallData        string   // pre-built "0x"-prefixed calldata; no current dataset reads it
	FunctionSig     string   // e.g. "balanceOf(address)"; no current dataset reads it
	EventSig        string   // e.g. "Transfer(address,address,uint256)", hashed to topic0
	TransactionHashes []string
}

// AcquisitionLimits is the concurrency/rate/retry knob set from spec.md §5
// and §4.4.
type AcquisitionLimits struct {
	MaxConcurrentChunks   int
	MaxConcurrentBlocks   int64
	MaxConcurrentRequests int64
	RequestsPerSecond     float64
	InnerRequestSize      int // eth_getLogs window size within a chunk
	MaxRetries            int
	InitialBackoff        time.Duration
	MaxBackoff            time.Duration
	ReorgBuffer           uint64
}

// OutputConfig controls where and how chunk files are written (spec.md
// §4.6, §6 "File layout").
type OutputConfig struct {
	Dir          string
	Subdir       string
	Suffix       string
	Format       string // "parquet" | "csv" | "json"
	Compression  string // parquet only: "lz4" (default) | "zstd" | "snappy" | "gzip" | "none"
	NoStats      bool
	RowGroupSize int64
	Overwrite    bool
	NoReport     bool
	ReportDir    string
	Hex          bool // hex-encode binary columns (CSV: always on regardless of this flag)
	Sort         string // "default" | "none" | explicit column name
}

// Query is the engine's single unit of work, constructed once and read by
// every component downstream of the parser (spec.md §1's external
// collaborator). Nothing in the engine mutates it after construction.
type Query struct {
	Datasets         []string
	Chunks           []chunk.Chunk
	ColumnProjection map[string][]string // dataset -> include list; nil/absent means DefaultColumns
	ExcludeColumns   map[string][]string
	U256Encodings    []column.U256Encoding
	Filters          Filters
	Limits           AcquisitionLimits
	Output           OutputConfig

	RPCURL      string
	NetworkName string // overrides the eth_chainId-derived name when set
	Dry         bool
}

// IncludedColumns resolves the final column list for one dataset: the
// query's explicit projection if given, otherwise defaultColumns, with
// ExcludeColumns always applied last (spec.md §4.7 "schema projector").
func (q *Query) IncludedColumns(dataset string, defaultColumns []string) []string {
	cols := defaultColumns
	if proj, ok := q.ColumnProjection[dataset]; ok && len(proj) > 0 {
		cols = proj
	}
	excl := map[string]bool{}
	for _, c := range q.ExcludeColumns[dataset] {
		excl[c] = true
	}
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if !excl[c] {
			out = append(out, c)
		}
	}
	return out
}
