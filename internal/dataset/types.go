// Package dataset is the dataset registry (spec.md §4.3): a table mapping
// dataset identifier to its schema, required RPC methods, fetch
// granularity, and decoder. It is grounded on the teacher's
// internal/provider package in spirit (a small typed table consulted by
// the coordinator) and, per spec.md §9's design note, implemented as a
// plain Go table of records rather than a macro or virtual-dispatch
// hierarchy: each entry holds a Fetch function value, not a subtype.
package dataset

import (
	"context"

	"go.uber.org/zap"

	"github.com/ethcryo/cryo/internal/chunk"
	"github.com/ethcryo/cryo/internal/column"
	"github.com/ethcryo/cryo/internal/query"
	"github.com/ethcryo/cryo/internal/rpcclient"
)

// Granularity is how many RPC subrequests a chunk's fetch issues per unit
// of work (spec.md §4.3).
type Granularity int

const (
	PerBlock Granularity = iota
	PerTransaction
	MultiPerBlock
)

func (g Granularity) String() string {
	switch g {
	case PerBlock:
		return "per_block"
	case PerTransaction:
		return "per_tx"
	case MultiPerBlock:
		return "multi_per_block"
	default:
		return "unknown"
	}
}

// FetchCtx bundles everything a dataset's Fetch function needs: the shared
// RPC client, the chunk it is filling, the query (for filters and
// encodings), and the chain id resolved once per run (spec.md §4.5 step 6).
type FetchCtx struct {
	Client  *rpcclient.Client
	Chunk   chunk.Chunk
	Query   *query.Query
	ChainID uint64
	Log     *zap.Logger
}

// Dataset is one row of the registry table.
type Dataset struct {
	Name             string
	Aliases          []string
	Group            string // non-empty for group members, e.g. "state_diffs"
	RequiredMethods  []string
	Granularity      Granularity
	ColumnOrder      []string // declaration order; also the available-columns list
	ColumnKinds      map[string]column.Kind
	DefaultColumns   []string
	DefaultSort      []string
	NeedsTrace       bool
	Fetch            func(ctx context.Context, fc *FetchCtx) (*column.Buffer, error)
}

// NewBuffer allocates an empty Buffer sized for this dataset's projected
// columns (spec.md §4.7, the schema projector stage narrows ColumnOrder
// down to q.IncludedColumns before writing; the fetch stage always
// populates the full ColumnOrder and lets the projector drop columns
// later, so buffers are over-complete by design until projection runs).
func (d *Dataset) NewBuffer(capHint int) *column.Buffer {
	return column.NewBuffer(d.ColumnOrder, d.ColumnKinds, capHint)
}
