package dataset

import (
	"context"

	"github.com/ethcryo/cryo/internal/column"
	"github.com/ethcryo/cryo/internal/fetch"
)

var blocksColumnOrder = []string{
	"block_number", "block_hash", "parent_hash", "timestamp", "author",
	"gas_limit", "gas_used", "base_fee_per_gas", "size", "extra_data",
	"transaction_count", "chain_id",
}

var blocksColumnKinds = map[string]column.Kind{
	"block_number":      column.KindUint64,
	"block_hash":        column.KindBytes,
	"parent_hash":       column.KindBytes,
	"timestamp":         column.KindUint64,
	"author":            column.KindBytes,
	"gas_limit":         column.KindUint64,
	"gas_used":          column.KindUint64,
	"base_fee_per_gas":  column.KindU256,
	"size":              column.KindUint64,
	"extra_data":        column.KindBytes,
	"transaction_count": column.KindUint32,
	"chain_id":          column.KindUint64,
}

func blocksDataset() *Dataset {
	return &Dataset{
		Name:            "blocks",
		Aliases:         []string{"block", "headers"},
		RequiredMethods: []string{"eth_getBlockByNumber"},
		Granularity:     PerBlock,
		ColumnOrder:     blocksColumnOrder,
		ColumnKinds:     blocksColumnKinds,
		DefaultColumns:  blocksColumnOrder,
		DefaultSort:     []string{"block_number"},
		Fetch:           fetchBlocks,
	}
}

func fetchBlocks(ctx context.Context, fc *FetchCtx) (*column.Buffer, error) {
	buf := column.NewBuffer(blocksColumnOrder, blocksColumnKinds, fc.Chunk.Count())

	blocks, err := fetch.MapOrdered(ctx, fc.Chunk.Blocks, fc.Query.Limits.MaxConcurrentBlocks,
		func(ctx context.Context, b uint64) (*rpcBlock, error) {
			return fetchBlockByNumber(ctx, fc.Client, b, false)
		})
	if err != nil {
		return nil, err
	}

	for _, b := range blocks {
		buf.Col("block_number").AppendUint64(mustUint64(b.Number))
		buf.Col("block_hash").AppendBytes(hexBytes(b.Hash))
		buf.Col("parent_hash").AppendBytes(hexBytes(b.ParentHash))
		buf.Col("timestamp").AppendUint64(mustUint64(b.Timestamp))
		buf.Col("author").AppendBytes(hexBytes(b.Miner))
		buf.Col("gas_limit").AppendUint64(mustUint64(b.GasLimit))
		buf.Col("gas_used").AppendUint64(mustUint64(b.GasUsed))
		buf.Col("base_fee_per_gas").AppendU256(mustU256(b.BaseFeePerGas))
		buf.Col("size").AppendUint64(mustUint64(b.Size))
		buf.Col("extra_data").AppendBytes(hexBytes(b.ExtraData))
		buf.Col("transaction_count").AppendUint32(uint32(len(b.Transactions)))
		buf.Col("chain_id").AppendUint64(fc.ChainID)
	}
	return buf, nil
}
