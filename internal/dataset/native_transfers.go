package dataset

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethcryo/cryo/internal/column"
	"github.com/ethcryo/cryo/internal/fetch"
)

var nativeTransfersColumnOrder = []string{
	"block_number", "transaction_hash", "transfer_index", "from_address",
	"to_address", "value", "chain_id",
}

var nativeTransfersColumnKinds = map[string]column.Kind{
	"block_number":     column.KindUint64,
	"transaction_hash": column.KindBytes,
	"transfer_index":   column.KindUint32,
	"from_address":     column.KindBytes,
	"to_address":       column.KindBytes,
	"value":            column.KindU256,
	"chain_id":         column.KindUint64,
}

// nativeTransfersDataset derives ETH-value transfers from the trace tree —
// every call/create frame whose value is non-zero — rather than issuing a
// separate RPC method, since no JSON-RPC method reports native transfers
// directly (they are a projection of traces, same as cryo's own source).
func nativeTransfersDataset() *Dataset {
	return &Dataset{
		Name:            "native_transfers",
		Aliases:         []string{"eth_transfers"},
		RequiredMethods: []string{"trace_block"},
		Granularity:     MultiPerBlock,
		NeedsTrace:      true,
		ColumnOrder:     nativeTransfersColumnOrder,
		ColumnKinds:     nativeTransfersColumnKinds,
		DefaultColumns:  nativeTransfersColumnOrder,
		DefaultSort:     []string{"block_number", "transfer_index"},
		Fetch:           fetchNativeTransfers,
	}
}

func fetchNativeTransfers(ctx context.Context, fc *FetchCtx) (*column.Buffer, error) {
	buf := column.NewBuffer(nativeTransfersColumnOrder, nativeTransfersColumnKinds, fc.Chunk.Count())

	perBlock, err := fetch.MapOrdered(ctx, fc.Chunk.Blocks, fc.Query.Limits.MaxConcurrentBlocks,
		func(ctx context.Context, b uint64) ([]rpcTrace, error) {
			raw, err := fc.Client.Call(ctx, "trace_block", fmt.Sprintf("0x%x", b))
			if err != nil {
				return nil, err
			}
			var traces []rpcTrace
			if err := json.Unmarshal(raw, &traces); err != nil {
				return nil, fmt.Errorf("decode trace_block(%d): %w", b, err)
			}
			for i := range traces {
				traces[i].BlockNumber = b
			}
			return traces, nil
		})
	if err != nil {
		return nil, err
	}

	for _, traces := range perBlock {
		idx := uint32(0)
		for _, t := range traces {
			v := mustU256(t.Action.Value)
			if isZeroU256(v) {
				continue
			}
			buf.Col("block_number").AppendUint64(t.BlockNumber)
			buf.Col("transaction_hash").AppendBytes(hexBytes(t.TransactionHash))
			buf.Col("transfer_index").AppendUint32(idx)
			buf.Col("from_address").AppendBytes(hexBytes(t.Action.From))
			buf.Col("to_address").AppendBytes(hexBytes(t.Action.To))
			buf.Col("value").AppendU256(v)
			buf.Col("chain_id").AppendUint64(fc.ChainID)
			idx++
		}
	}
	return buf, nil
}

func isZeroU256(v [32]byte) bool {
	for _, b := range v {
		if b != 0 {
			return false
		}
	}
	return true
}
