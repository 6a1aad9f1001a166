package dataset

import (
	"context"

	"github.com/ethcryo/cryo/internal/column"
	"github.com/ethcryo/cryo/internal/fetch"
)

var transactionsColumnOrder = []string{
	"block_number", "transaction_index", "transaction_hash", "from_address",
	"to_address", "value", "gas_limit", "gas_price", "max_fee_per_gas",
	"max_priority_fee_per_gas", "nonce", "input", "transaction_type", "chain_id",
}

var transactionsColumnKinds = map[string]column.Kind{
	"block_number":             column.KindUint64,
	"transaction_index":        column.KindUint32,
	"transaction_hash":         column.KindBytes,
	"from_address":             column.KindBytes,
	"to_address":               column.KindBytes,
	"value":                    column.KindU256,
	"gas_limit":                column.KindUint64,
	"gas_price":                column.KindU256,
	"max_fee_per_gas":          column.KindU256,
	"max_priority_fee_per_gas": column.KindU256,
	"nonce":                    column.KindUint64,
	"input":                    column.KindBytes,
	"transaction_type":         column.KindUint32,
	"chain_id":                 column.KindUint64,
}

func transactionsDataset() *Dataset {
	return &Dataset{
		Name:            "transactions",
		Aliases:         []string{"txs", "tx"},
		RequiredMethods: []string{"eth_getBlockByNumber"},
		Granularity:     MultiPerBlock,
		ColumnOrder:     transactionsColumnOrder,
		ColumnKinds:     transactionsColumnKinds,
		DefaultColumns:  transactionsColumnOrder,
		DefaultSort:     []string{"block_number", "transaction_index"},
		Fetch:           fetchTransactions,
	}
}

func fetchTransactions(ctx context.Context, fc *FetchCtx) (*column.Buffer, error) {
	buf := column.NewBuffer(transactionsColumnOrder, transactionsColumnKinds, fc.Chunk.Count()*2)

	blocks, err := fetch.MapOrdered(ctx, fc.Chunk.Blocks, fc.Query.Limits.MaxConcurrentBlocks,
		func(ctx context.Context, b uint64) (*rpcBlock, error) {
			return fetchBlockByNumber(ctx, fc.Client, b, true)
		})
	if err != nil {
		return nil, err
	}

	for _, b := range blocks {
		for _, tx := range b.Transactions {
			if !matchesTxFilter(fc, tx.Hash) {
				continue
			}
			buf.Col("block_number").AppendUint64(mustUint64(tx.BlockNumber))
			buf.Col("transaction_index").AppendUint32(uint32(mustUint64(tx.TransactionIndex)))
			buf.Col("transaction_hash").AppendBytes(hexBytes(tx.Hash))
			buf.Col("from_address").AppendBytes(hexBytes(tx.From))
			buf.Col("to_address").AppendBytes(hexBytes(tx.To))
			buf.Col("value").AppendU256(mustU256(tx.Value))
			buf.Col("gas_limit").AppendUint64(mustUint64(tx.Gas))
			buf.Col("gas_price").AppendU256(mustU256(tx.GasPrice))
			buf.Col("max_fee_per_gas").AppendU256(mustU256(tx.MaxFeePerGas))
			buf.Col("max_priority_fee_per_gas").AppendU256(mustU256(tx.MaxPriorityFeePerGas))
			buf.Col("nonce").AppendUint64(mustUint64(tx.Nonce))
			buf.Col("input").AppendBytes(hexBytes(tx.Input))
			buf.Col("transaction_type").AppendUint32(uint32(mustUint64(tx.Type)))
			buf.Col("chain_id").AppendUint64(fc.ChainID)
		}
	}
	return buf, nil
}

// matchesTxFilter applies the query's transaction-hash allowlist, when set
// (spec.md §6, "tx-hash list"). An empty list matches everything.
func matchesTxFilter(fc *FetchCtx, hash string) bool {
	if len(fc.Query.Filters.TransactionHashes) == 0 {
		return true
	}
	for _, h := range fc.Query.Filters.TransactionHashes {
		if h == hash {
			return true
		}
	}
	return false
}
