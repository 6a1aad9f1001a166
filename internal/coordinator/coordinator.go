// Package coordinator is the engine's top-level control flow (spec.md
// §4.7): it turns a *query.Query into a bounded set of (dataset, chunk)
// fetch tasks, runs them under the three stacked concurrency limits from
// spec.md §5, commits each completed chunk through the writer, and
// aggregates outcomes into a report.Report. Grounded on the teacher's
// internal/provider.ExecuteAll (errgroup + per-item result collection
// under a mutex) generalized from "fan out one call across providers" to
// "fan out (dataset, chunk) work items across a bounded worker pool".
package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/ethcryo/cryo/internal/blockspec"
	"github.com/ethcryo/cryo/internal/chunk"
	"github.com/ethcryo/cryo/internal/cryoerr"
	"github.com/ethcryo/cryo/internal/dataset"
	"github.com/ethcryo/cryo/internal/query"
	"github.com/ethcryo/cryo/internal/report"
	"github.com/ethcryo/cryo/internal/rpcclient"
	"github.com/ethcryo/cryo/internal/schema"
	"github.com/ethcryo/cryo/internal/writer"
)

// Coordinator owns the RPC client and writer for one run (spec.md §3,
// "Ownership: ... the coordinator owns the RPC client and writer").
type Coordinator struct {
	registry *dataset.Registry
	client   *rpcclient.Client
	format   writer.Format
	log      *zap.Logger
}

// New constructs a Coordinator for q. The RPC client's semaphore and rate
// limiter are allocated here and live for the Coordinator's lifetime.
func New(q *query.Query, log *zap.Logger) (*Coordinator, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if q.RPCURL == "" {
		return nil, cryoerr.New(cryoerr.KindInvalidQuery, "", 0, 0, fmt.Errorf("coordinator: rpc_url is required"))
	}
	format, err := writer.ForFormat(q.Output.Format)
	if err != nil {
		return nil, cryoerr.New(cryoerr.KindInvalidQuery, "", 0, 0, err)
	}
	client := rpcclient.New(rpcclient.Config{
		URL:                   q.RPCURL,
		MaxConcurrentRequests: q.Limits.MaxConcurrentRequests,
		RequestsPerSecond:     q.Limits.RequestsPerSecond,
		MaxRetries:            q.Limits.MaxRetries,
		InitialBackoff:        q.Limits.InitialBackoff,
		MaxBackoff:            q.Limits.MaxBackoff,
	}, log)
	return &Coordinator{registry: dataset.NewRegistry(), client: client, format: format, log: log}, nil
}

// DatasetPlan is one dataset's entry in a dry-run Plan.
type DatasetPlan struct {
	Name            string
	Columns         []string
	RequiredMethods []string
	NeedsTrace      bool
}

// Plan is the coordinator's dry-mode output (spec.md §4.7): resolved
// schema and an estimated request count, with no network I/O beyond
// eth_chainId.
type Plan struct {
	ChainID           uint64
	ChunkCount        int
	EstimatedRequests int64
	Datasets          []DatasetPlan
}

// chainID fetches eth_chainId once; every run needs it for the chain_id
// column and (per spec.md §4.7) dry mode's own connectivity check.
func (c *Coordinator) chainID(ctx context.Context) (uint64, error) {
	raw, err := c.client.Call(ctx, "eth_chainId")
	if err != nil {
		return 0, cryoerr.New(cryoerr.KindNetworkUnavailable, "", 0, 0, err)
	}
	var hexID string
	if err := json.Unmarshal(raw, &hexID); err != nil {
		return 0, cryoerr.New(cryoerr.KindDecode, "", 0, 0, err)
	}
	id, err := rpcclient.ParseHexUint64(hexID)
	if err != nil {
		return 0, cryoerr.New(cryoerr.KindDecode, "", 0, 0, err)
	}
	return id, nil
}

// ResolveBlocks parses specs into a concrete, ordered block list via
// internal/blockspec, fetching the chain tip through eth_blockNumber on
// this Coordinator's own Client (spec.md §4.1). network scopes the tip
// cache for a single run.
func (c *Coordinator) ResolveBlocks(ctx context.Context, network string, specs []string, reorgBuffer uint64) ([]uint64, error) {
	resolver, err := blockspec.New(c.fetchTipBlockNumber, reorgBuffer)
	if err != nil {
		return nil, cryoerr.New(cryoerr.KindInvalidQuery, "", 0, 0, err)
	}
	blocks, err := resolver.Resolve(ctx, network, specs)
	if err != nil {
		return nil, cryoerr.New(cryoerr.KindInvalidQuery, "", 0, 0, err)
	}
	return blocks, nil
}

func (c *Coordinator) fetchTipBlockNumber(ctx context.Context) (uint64, error) {
	raw, err := c.client.Call(ctx, "eth_blockNumber")
	if err != nil {
		return 0, err
	}
	var hexNum string
	if err := json.Unmarshal(raw, &hexNum); err != nil {
		return 0, fmt.Errorf("decode eth_blockNumber: %w", err)
	}
	return rpcclient.ParseHexUint64(hexNum)
}

// Dry runs only the planning steps (spec.md §4.1–§4.3, §4.7): resolve the
// dataset list and chain id, estimate request volume, and return without
// fetching or writing anything.
func (c *Coordinator) Dry(ctx context.Context, q *query.Query) (*Plan, error) {
	datasets, err := c.registry.Expand(q.Datasets)
	if err != nil {
		return nil, cryoerr.New(cryoerr.KindInvalidQuery, "", 0, 0, err)
	}
	chainID, err := c.chainID(ctx)
	if err != nil {
		return nil, err
	}
	plan := &Plan{ChainID: chainID, ChunkCount: len(q.Chunks)}
	for _, ds := range datasets {
		cols := q.IncludedColumns(ds.Name, ds.DefaultColumns)
		plan.Datasets = append(plan.Datasets, DatasetPlan{
			Name:            ds.Name,
			Columns:         cols,
			RequiredMethods: ds.RequiredMethods,
			NeedsTrace:      ds.NeedsTrace,
		})
		for _, ch := range q.Chunks {
			plan.EstimatedRequests += estimateRequests(ds, ch, q)
		}
	}
	return plan, nil
}

// estimateRequests is a rough per-(dataset, chunk) request count for the
// dry-run summary, not a billing-accurate figure: per-block datasets issue
// roughly one subrequest per block, log-windowed datasets one per
// inner_request_size window, and everything else at least one.
func estimateRequests(ds *dataset.Dataset, ch chunk.Chunk, q *query.Query) int64 {
	switch ds.Granularity {
	case dataset.PerBlock, dataset.PerTransaction, dataset.MultiPerBlock:
		inner := q.Limits.InnerRequestSize
		if inner <= 0 {
			inner = 1000
		}
		if ds.Name == "logs" {
			span := int64(ch.MaxBlock-ch.MinBlock) + 1
			windows := span / int64(inner)
			if span%int64(inner) != 0 {
				windows++
			}
			return windows
		}
		return int64(ch.Count())
	default:
		return int64(ch.Count())
	}
}

// Run executes the full acquisition for q: every (dataset, chunk) pair is
// fetched, projected, and committed under the three stacked concurrency
// limits of spec.md §5, with chunk-level failures recorded in the
// returned Report rather than aborting sibling work (spec.md §7).
func (c *Coordinator) Run(ctx context.Context, q *query.Query) (*report.Report, error) {
	datasets, err := c.registry.Expand(q.Datasets)
	if err != nil {
		return nil, cryoerr.New(cryoerr.KindInvalidQuery, "", 0, 0, err)
	}
	chainID, err := c.chainID(ctx)
	if err != nil {
		return nil, err
	}

	rep := report.New()
	width := maxWidth(q.Chunks)
	network := q.NetworkName
	if network == "" {
		network = fmt.Sprintf("chain-%d", chainID)
	}

	sem := semaphore.NewWeighted(int64(maxInt(q.Limits.MaxConcurrentChunks, 1)))
	g, gctx := errgroup.WithContext(ctx)

	for _, ds := range datasets {
		ds := ds
		for _, ch := range q.Chunks {
			ch := ch
			if err := sem.Acquire(gctx, 1); err != nil {
				break
			}
			g.Go(func() error {
				defer sem.Release(1)
				c.runOne(gctx, q, ds, ch, chainID, network, width, rep)
				return nil
			})
		}
	}
	_ = g.Wait()

	if !q.Output.NoReport {
		reportDir := q.Output.ReportDir
		if reportDir == "" {
			reportDir = filepath.Join(q.Output.Dir, ".cryo", "reports")
		}
		if _, err := rep.WriteSidecar(reportDir, time.Now()); err != nil {
			c.log.Warn("failed to write report sidecar", zap.Error(err))
		}
	}
	return rep, nil
}

// runOne fetches, projects, and commits a single (dataset, chunk) work
// item, recording its outcome in rep. It never returns an error: a
// per-chunk failure is a Report entry, not a propagated error (spec.md §7).
func (c *Coordinator) runOne(ctx context.Context, q *query.Query, ds *dataset.Dataset, ch chunk.Chunk, chainID uint64, network string, width int, rep *report.Report) {
	started := time.Now()
	chunkID := ch.ID(width)
	ext := c.format.Extension()
	path := writer.TargetPath(q.Output, network, ds.Name, ch, width, ext)

	if !q.Output.Overwrite && writer.Exists(path) {
		rep.Add(ds.Name, chunkID, report.StatusSkipped, 0, 0, time.Since(started), nil)
		return
	}

	fc := &dataset.FetchCtx{Client: c.client, Chunk: ch, Query: q, ChainID: chainID, Log: c.log.With(zap.Namespace("chunk"), zap.String("dataset", ds.Name), zap.String("chunk_id", chunkID))}
	buf, err := ds.Fetch(ctx, fc)
	if err != nil {
		rep.Add(ds.Name, chunkID, report.StatusFailed, 0, 0, time.Since(started), err)
		return
	}

	cols := q.IncludedColumns(ds.Name, ds.DefaultColumns)
	projected, err := schema.Project(buf, cols, q.U256Encodings, q.Output.Hex)
	if err != nil {
		rep.Add(ds.Name, chunkID, report.StatusFailed, 0, 0, time.Since(started),
			cryoerr.New(cryoerr.KindDecode, ds.Name, ch.MinBlock, ch.MaxBlock, err))
		return
	}
	if sortCols := sortColumnsFor(q.Output.Sort, ds.DefaultSort); sortCols != nil {
		schema.Sort(projected, sortCols)
	}

	outcome, err := writer.Commit(c.format, path, projected, q.Output)
	if err != nil {
		rep.Add(ds.Name, chunkID, report.StatusFailed, 0, 0, time.Since(started),
			cryoerr.New(cryoerr.KindIO, ds.Name, ch.MinBlock, ch.MaxBlock, err))
		return
	}
	rep.Add(ds.Name, chunkID, report.StatusDone, outcome.RowCount, outcome.Bytes, time.Since(started), nil)
}

// sortColumnsFor resolves the sort stage of spec.md §4.5: "" and "default"
// mean the dataset's own DefaultSort, "none" disables sorting (returns
// nil), and anything else names a single explicit column to sort by.
func sortColumnsFor(outputSort string, defaultSort []string) []string {
	switch outputSort {
	case "", "default":
		return defaultSort
	case "none":
		return nil
	default:
		return []string{outputSort}
	}
}

func maxWidth(chunks []chunk.Chunk) int {
	var max uint64
	for _, c := range chunks {
		if c.MaxBlock > max {
			max = c.MaxBlock
		}
	}
	return chunk.PaddingWidth(max)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
