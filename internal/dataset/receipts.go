package dataset

import (
	"context"

	"github.com/ethcryo/cryo/internal/column"
	"github.com/ethcryo/cryo/internal/fetch"
)

var receiptsColumnOrder = []string{
	"block_number", "transaction_index", "transaction_hash", "status",
	"gas_used", "cumulative_gas_used", "effective_gas_price",
	"contract_address", "log_count", "chain_id",
}

var receiptsColumnKinds = map[string]column.Kind{
	"block_number":        column.KindUint64,
	"transaction_index":   column.KindUint32,
	"transaction_hash":    column.KindBytes,
	"status":              column.KindUint32,
	"gas_used":            column.KindUint64,
	"cumulative_gas_used": column.KindUint64,
	"effective_gas_price": column.KindU256,
	"contract_address":    column.KindBytes,
	"log_count":           column.KindUint32,
	"chain_id":            column.KindUint64,
}

func receiptsDataset() *Dataset {
	return &Dataset{
		Name:            "receipts",
		Aliases:         []string{"tx_receipts"},
		RequiredMethods: []string{"eth_getBlockReceipts"},
		Granularity:     MultiPerBlock,
		ColumnOrder:     receiptsColumnOrder,
		ColumnKinds:     receiptsColumnKinds,
		DefaultColumns:  receiptsColumnOrder,
		DefaultSort:     []string{"block_number", "transaction_index"},
		Fetch:           fetchReceipts,
	}
}

func fetchReceipts(ctx context.Context, fc *FetchCtx) (*column.Buffer, error) {
	buf := column.NewBuffer(receiptsColumnOrder, receiptsColumnKinds, fc.Chunk.Count()*2)

	perBlock, err := fetch.MapOrdered(ctx, fc.Chunk.Blocks, fc.Query.Limits.MaxConcurrentBlocks,
		func(ctx context.Context, b uint64) ([]rpcReceipt, error) {
			return fetchBlockReceipts(ctx, fc.Client, b)
		})
	if err != nil {
		return nil, err
	}

	for _, receipts := range perBlock {
		for _, r := range receipts {
			buf.Col("block_number").AppendUint64(mustUint64(r.BlockNumber))
			buf.Col("transaction_index").AppendUint32(uint32(mustUint64(r.TransactionIndex)))
			buf.Col("transaction_hash").AppendBytes(hexBytes(r.TransactionHash))
			buf.Col("status").AppendUint32(uint32(mustUint64(r.Status)))
			buf.Col("gas_used").AppendUint64(mustUint64(r.GasUsed))
			buf.Col("cumulative_gas_used").AppendUint64(mustUint64(r.CumulativeGasUsed))
			buf.Col("effective_gas_price").AppendU256(mustU256(r.EffectiveGasPrice))
			buf.Col("contract_address").AppendBytes(hexBytes(r.ContractAddress))
			buf.Col("log_count").AppendUint32(uint32(len(r.Logs)))
			buf.Col("chain_id").AppendUint64(fc.ChainID)
		}
	}
	return buf, nil
}
