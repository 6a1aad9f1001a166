package dataset

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethcryo/cryo/internal/column"
	"github.com/ethcryo/cryo/internal/fetch"
	"github.com/ethcryo/cryo/internal/rpcclient"
)

// prestateTxResult (with prestateDiffResult and prestateAccountState) is
// the shape debug_traceBlockByNumber returns when tracer is
// "prestateTracer" with diffMode:true — one entry per transaction, each a
// pre/post map keyed by address. Only the fields the four diff datasets
// project are modeled.
type prestateAccountState struct {
	Balance string            `json:"balance"`
	Nonce   uint64            `json:"nonce"`
	Code    string            `json:"code"`
	Storage map[string]string `json:"storage"`
}

type prestateDiffResult struct {
	Pre  map[string]prestateAccountState `json:"pre"`
	Post map[string]prestateAccountState `json:"post"`
}

type prestateTxResult struct {
	TxHash string              `json:"txHash"`
	Result prestateDiffResult `json:"result"`
}

func fetchPrestateDiffs(ctx context.Context, fc *FetchCtx) ([]prestateTxResult, error) {
	perBlock, err := fetch.MapOrdered(ctx, fc.Chunk.Blocks, fc.Query.Limits.MaxConcurrentBlocks,
		func(ctx context.Context, b uint64) ([]prestateTxResult, error) {
			params := map[string]interface{}{
				"tracer": "prestateTracer",
				"tracerConfig": map[string]interface{}{
					"diffMode": true,
				},
			}
			raw, err := fc.Client.Call(ctx, "debug_traceBlockByNumber", rpcclient.Uint64ToHex(b), params)
			if err != nil {
				return nil, err
			}
			var results []prestateTxResult
			if err := json.Unmarshal(raw, &results); err != nil {
				return nil, fmt.Errorf("decode debug_traceBlockByNumber(%d): %w", b, err)
			}
			return results, nil
		})
	if err != nil {
		return nil, err
	}
	var flat []prestateTxResult
	for _, r := range perBlock {
		flat = append(flat, r...)
	}
	return flat, nil
}

var balanceDiffsColumnOrder = []string{"transaction_hash", "address", "balance_pre", "balance_post", "chain_id"}
var balanceDiffsColumnKinds = map[string]column.Kind{
	"transaction_hash": column.KindBytes,
	"address":          column.KindBytes,
	"balance_pre":       column.KindU256,
	"balance_post":      column.KindU256,
	"chain_id":          column.KindUint64,
}

func balanceDiffsDataset() *Dataset {
	return &Dataset{
		Name:            "balance_diffs",
		Group:           "state_diffs",
		RequiredMethods: []string{"debug_traceBlockByNumber"},
		Granularity:     MultiPerBlock,
		NeedsTrace:      true,
		ColumnOrder:     balanceDiffsColumnOrder,
		ColumnKinds:     balanceDiffsColumnKinds,
		DefaultColumns:  balanceDiffsColumnOrder,
		DefaultSort:     []string{"transaction_hash", "address"},
		Fetch: func(ctx context.Context, fc *FetchCtx) (*column.Buffer, error) {
			diffs, err := fetchPrestateDiffs(ctx, fc)
			if err != nil {
				return nil, err
			}
			buf := column.NewBuffer(balanceDiffsColumnOrder, balanceDiffsColumnKinds, len(diffs))
			for _, d := range diffs {
				for addr, pre := range d.Result.Pre {
					post := d.Result.Post[addr]
					if pre.Balance == post.Balance {
						continue
					}
					buf.Col("transaction_hash").AppendBytes(hexBytes(d.TxHash))
					buf.Col("address").AppendBytes(hexBytes(addr))
					buf.Col("balance_pre").AppendU256(mustU256(pre.Balance))
					buf.Col("balance_post").AppendU256(mustU256(post.Balance))
					buf.Col("chain_id").AppendUint64(fc.ChainID)
				}
			}
			return buf, nil
		},
	}
}

var codeDiffsColumnOrder = []string{"transaction_hash", "address", "code_pre", "code_post", "chain_id"}
var codeDiffsColumnKinds = map[string]column.Kind{
	"transaction_hash": column.KindBytes,
	"address":          column.KindBytes,
	"code_pre":          column.KindBytes,
	"code_post":         column.KindBytes,
	"chain_id":          column.KindUint64,
}

func codeDiffsDataset() *Dataset {
	return &Dataset{
		Name:            "code_diffs",
		Group:           "state_diffs",
		RequiredMethods: []string{"debug_traceBlockByNumber"},
		Granularity:     MultiPerBlock,
		NeedsTrace:      true,
		ColumnOrder:     codeDiffsColumnOrder,
		ColumnKinds:     codeDiffsColumnKinds,
		DefaultColumns:  codeDiffsColumnOrder,
		DefaultSort:     []string{"transaction_hash", "address"},
		Fetch: func(ctx context.Context, fc *FetchCtx) (*column.Buffer, error) {
			diffs, err := fetchPrestateDiffs(ctx, fc)
			if err != nil {
				return nil, err
			}
			buf := column.NewBuffer(codeDiffsColumnOrder, codeDiffsColumnKinds, len(diffs))
			for _, d := range diffs {
				for addr, pre := range d.Result.Pre {
					post := d.Result.Post[addr]
					if pre.Code == post.Code {
						continue
					}
					buf.Col("transaction_hash").AppendBytes(hexBytes(d.TxHash))
					buf.Col("address").AppendBytes(hexBytes(addr))
					buf.Col("code_pre").AppendBytes(hexBytes(pre.Code))
					buf.Col("code_post").AppendBytes(hexBytes(post.Code))
					buf.Col("chain_id").AppendUint64(fc.ChainID)
				}
			}
			return buf, nil
		},
	}
}

var nonceDiffsColumnOrder = []string{"transaction_hash", "address", "nonce_pre", "nonce_post", "chain_id"}
var nonceDiffsColumnKinds = map[string]column.Kind{
	"transaction_hash": column.KindBytes,
	"address":          column.KindBytes,
	"nonce_pre":         column.KindUint64,
	"nonce_post":        column.KindUint64,
	"chain_id":          column.KindUint64,
}

func nonceDiffsDataset() *Dataset {
	return &Dataset{
		Name:            "nonce_diffs",
		Group:           "state_diffs",
		RequiredMethods: []string{"debug_traceBlockByNumber"},
		Granularity:     MultiPerBlock,
		NeedsTrace:      true,
		ColumnOrder:     nonceDiffsColumnOrder,
		ColumnKinds:     nonceDiffsColumnKinds,
		DefaultColumns:  nonceDiffsColumnOrder,
		DefaultSort:     []string{"transaction_hash", "address"},
		Fetch: func(ctx context.Context, fc *FetchCtx) (*column.Buffer, error) {
			diffs, err := fetchPrestateDiffs(ctx, fc)
			if err != nil {
				return nil, err
			}
			buf := column.NewBuffer(nonceDiffsColumnOrder, nonceDiffsColumnKinds, len(diffs))
			for _, d := range diffs {
				for addr, pre := range d.Result.Pre {
					post := d.Result.Post[addr]
					if pre.Nonce == post.Nonce {
						continue
					}
					buf.Col("transaction_hash").AppendBytes(hexBytes(d.TxHash))
					buf.Col("address").AppendBytes(hexBytes(addr))
					buf.Col("nonce_pre").AppendUint64(pre.Nonce)
					buf.Col("nonce_post").AppendUint64(post.Nonce)
					buf.Col("chain_id").AppendUint64(fc.ChainID)
				}
			}
			return buf, nil
		},
	}
}

var storageDiffsColumnOrder = []string{"transaction_hash", "address", "slot", "value_pre", "value_post", "chain_id"}
var storageDiffsColumnKinds = map[string]column.Kind{
	"transaction_hash": column.KindBytes,
	"address":          column.KindBytes,
	"slot":              column.KindBytes,
	"value_pre":         column.KindU256,
	"value_post":        column.KindU256,
	"chain_id":          column.KindUint64,
}

func storageDiffsDataset() *Dataset {
	return &Dataset{
		Name:            "storage_diffs",
		Group:           "state_diffs",
		RequiredMethods: []string{"debug_traceBlockByNumber"},
		Granularity:     MultiPerBlock,
		NeedsTrace:      true,
		ColumnOrder:     storageDiffsColumnOrder,
		ColumnKinds:     storageDiffsColumnKinds,
		DefaultColumns:  storageDiffsColumnOrder,
		DefaultSort:     []string{"transaction_hash", "address", "slot"},
		Fetch: func(ctx context.Context, fc *FetchCtx) (*column.Buffer, error) {
			diffs, err := fetchPrestateDiffs(ctx, fc)
			if err != nil {
				return nil, err
			}
			buf := column.NewBuffer(storageDiffsColumnOrder, storageDiffsColumnKinds, len(diffs))
			for _, d := range diffs {
				for addr, pre := range d.Result.Pre {
					post := d.Result.Post[addr]
					for slot, preVal := range pre.Storage {
						postVal := post.Storage[slot]
						if preVal == postVal {
							continue
						}
						buf.Col("transaction_hash").AppendBytes(hexBytes(d.TxHash))
						buf.Col("address").AppendBytes(hexBytes(addr))
						buf.Col("slot").AppendBytes(hexBytes(slot))
						buf.Col("value_pre").AppendU256(mustU256(preVal))
						buf.Col("value_post").AppendU256(mustU256(postVal))
						buf.Col("chain_id").AppendUint64(fc.ChainID)
					}
				}
			}
			return buf, nil
		},
	}
}
