package dataset

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethcryo/cryo/internal/abiutil"
	"github.com/ethcryo/cryo/internal/column"
	"github.com/ethcryo/cryo/internal/fetch"
	"github.com/ethcryo/cryo/internal/rpcclient"
)

// stateReadPoint is one (address[, slot], block) probe for the four direct
// state-read datasets below.
type stateReadPoint struct {
	block   uint64
	address string
	slot    string
}

func statePoints(fc *FetchCtx, needSlots bool) ([]stateReadPoint, error) {
	if len(fc.Query.Filters.Contracts) == 0 {
		return nil, fmt.Errorf("%s: requires at least one contract/address filter", "state read")
	}
	for _, a := range fc.Query.Filters.Contracts {
		if err := abiutil.ValidateAddress(a); err != nil {
			return nil, err
		}
	}
	slots := fc.Query.Filters.Slots
	if needSlots && len(slots) == 0 {
		slots = []string{"0x0"}
	}

	var points []stateReadPoint
	for _, b := range fc.Chunk.Blocks {
		for _, a := range fc.Query.Filters.Contracts {
			if needSlots {
				for _, s := range slots {
					points = append(points, stateReadPoint{block: b, address: a, slot: s})
				}
			} else {
				points = append(points, stateReadPoint{block: b, address: a})
			}
		}
	}
	return points, nil
}

var balancesColumnOrder = []string{"block_number", "address", "balance", "chain_id"}
var balancesColumnKinds = map[string]column.Kind{
	"block_number": column.KindUint64,
	"address":      column.KindBytes,
	"balance":      column.KindU256,
	"chain_id":     column.KindUint64,
}

func balancesDataset() *Dataset {
	return &Dataset{
		Name:            "balances",
		RequiredMethods: []string{"eth_getBalance"},
		Granularity:     PerBlock,
		ColumnOrder:     balancesColumnOrder,
		ColumnKinds:     balancesColumnKinds,
		DefaultColumns:  balancesColumnOrder,
		DefaultSort:     []string{"block_number", "address"},
		Fetch:           fetchBalances,
	}
}

func fetchBalances(ctx context.Context, fc *FetchCtx) (*column.Buffer, error) {
	points, err := statePoints(fc, false)
	if err != nil {
		return nil, err
	}
	buf := column.NewBuffer(balancesColumnOrder, balancesColumnKinds, len(points))

	results, err := fetch.MapOrdered(ctx, points, fc.Query.Limits.MaxConcurrentBlocks,
		func(ctx context.Context, p stateReadPoint) (string, error) {
			raw, err := fc.Client.Call(ctx, "eth_getBalance", p.address, rpcclient.Uint64ToHex(p.block))
			if err != nil {
				return "", err
			}
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return "", fmt.Errorf("decode eth_getBalance: %w", err)
			}
			return s, nil
		})
	if err != nil {
		return nil, err
	}

	for i, p := range points {
		buf.Col("block_number").AppendUint64(p.block)
		buf.Col("address").AppendBytes(hexBytes(p.address))
		buf.Col("balance").AppendU256(mustU256(results[i]))
		buf.Col("chain_id").AppendUint64(fc.ChainID)
	}
	return buf, nil
}

var codesColumnOrder = []string{"block_number", "address", "code", "chain_id"}
var codesColumnKinds = map[string]column.Kind{
	"block_number": column.KindUint64,
	"address":      column.KindBytes,
	"code":         column.KindBytes,
	"chain_id":     column.KindUint64,
}

func codesDataset() *Dataset {
	return &Dataset{
		Name:            "codes",
		Aliases:         []string{"contract_code"},
		RequiredMethods: []string{"eth_getCode"},
		Granularity:     PerBlock,
		ColumnOrder:     codesColumnOrder,
		ColumnKinds:     codesColumnKinds,
		DefaultColumns:  codesColumnOrder,
		DefaultSort:     []string{"block_number", "address"},
		Fetch:           fetchCodes,
	}
}

func fetchCodes(ctx context.Context, fc *FetchCtx) (*column.Buffer, error) {
	points, err := statePoints(fc, false)
	if err != nil {
		return nil, err
	}
	buf := column.NewBuffer(codesColumnOrder, codesColumnKinds, len(points))

	results, err := fetch.MapOrdered(ctx, points, fc.Query.Limits.MaxConcurrentBlocks,
		func(ctx context.Context, p stateReadPoint) (string, error) {
			raw, err := fc.Client.Call(ctx, "eth_getCode", p.address, rpcclient.Uint64ToHex(p.block))
			if err != nil {
				return "", err
			}
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return "", fmt.Errorf("decode eth_getCode: %w", err)
			}
			return s, nil
		})
	if err != nil {
		return nil, err
	}

	for i, p := range points {
		buf.Col("block_number").AppendUint64(p.block)
		buf.Col("address").AppendBytes(hexBytes(p.address))
		buf.Col("code").AppendBytes(hexBytes(results[i]))
		buf.Col("chain_id").AppendUint64(fc.ChainID)
	}
	return buf, nil
}

var noncesColumnOrder = []string{"block_number", "address", "nonce", "chain_id"}
var noncesColumnKinds = map[string]column.Kind{
	"block_number": column.KindUint64,
	"address":      column.KindBytes,
	"nonce":        column.KindUint64,
	"chain_id":     column.KindUint64,
}

func noncesDataset() *Dataset {
	return &Dataset{
		Name:            "nonces",
		RequiredMethods: []string{"eth_getTransactionCount"},
		Granularity:     PerBlock,
		ColumnOrder:     noncesColumnOrder,
		ColumnKinds:     noncesColumnKinds,
		DefaultColumns:  noncesColumnOrder,
		DefaultSort:     []string{"block_number", "address"},
		Fetch:           fetchNonces,
	}
}

func fetchNonces(ctx context.Context, fc *FetchCtx) (*column.Buffer, error) {
	points, err := statePoints(fc, false)
	if err != nil {
		return nil, err
	}
	buf := column.NewBuffer(noncesColumnOrder, noncesColumnKinds, len(points))

	results, err := fetch.MapOrdered(ctx, points, fc.Query.Limits.MaxConcurrentBlocks,
		func(ctx context.Context, p stateReadPoint) (string, error) {
			raw, err := fc.Client.Call(ctx, "eth_getTransactionCount", p.address, rpcclient.Uint64ToHex(p.block))
			if err != nil {
				return "", err
			}
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return "", fmt.Errorf("decode eth_getTransactionCount: %w", err)
			}
			return s, nil
		})
	if err != nil {
		return nil, err
	}

	for i, p := range points {
		buf.Col("block_number").AppendUint64(p.block)
		buf.Col("address").AppendBytes(hexBytes(p.address))
		buf.Col("nonce").AppendUint64(mustUint64(results[i]))
		buf.Col("chain_id").AppendUint64(fc.ChainID)
	}
	return buf, nil
}

var storagesColumnOrder = []string{"block_number", "address", "slot", "value", "chain_id"}
var storagesColumnKinds = map[string]column.Kind{
	"block_number": column.KindUint64,
	"address":      column.KindBytes,
	"slot":         column.KindBytes,
	"value":        column.KindU256,
	"chain_id":     column.KindUint64,
}

func storagesDataset() *Dataset {
	return &Dataset{
		Name:            "storages",
		Aliases:         []string{"storage_reads"},
		RequiredMethods: []string{"eth_getStorageAt"},
		Granularity:     PerBlock,
		ColumnOrder:     storagesColumnOrder,
		ColumnKinds:     storagesColumnKinds,
		DefaultColumns:  storagesColumnOrder,
		DefaultSort:     []string{"block_number", "address", "slot"},
		Fetch:           fetchStorages,
	}
}

func fetchStorages(ctx context.Context, fc *FetchCtx) (*column.Buffer, error) {
	points, err := statePoints(fc, true)
	if err != nil {
		return nil, err
	}
	buf := column.NewBuffer(storagesColumnOrder, storagesColumnKinds, len(points))

	results, err := fetch.MapOrdered(ctx, points, fc.Query.Limits.MaxConcurrentBlocks,
		func(ctx context.Context, p stateReadPoint) (string, error) {
			raw, err := fc.Client.Call(ctx, "eth_getStorageAt", p.address, p.slot, rpcclient.Uint64ToHex(p.block))
			if err != nil {
				return "", err
			}
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return "", fmt.Errorf("decode eth_getStorageAt: %w", err)
			}
			return s, nil
		})
	if err != nil {
		return nil, err
	}

	for i, p := range points {
		buf.Col("block_number").AppendUint64(p.block)
		buf.Col("address").AppendBytes(hexBytes(p.address))
		buf.Col("slot").AppendBytes(hexBytes(p.slot))
		buf.Col("value").AppendU256(mustU256(results[i]))
		buf.Col("chain_id").AppendUint64(fc.ChainID)
	}
	return buf, nil
}
