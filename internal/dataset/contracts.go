package dataset

import (
	"context"

	"github.com/ethcryo/cryo/internal/column"
	"github.com/ethcryo/cryo/internal/fetch"
)

var contractsColumnOrder = []string{
	"block_number", "transaction_hash", "contract_address", "deployer", "chain_id",
}

var contractsColumnKinds = map[string]column.Kind{
	"block_number":     column.KindUint64,
	"transaction_hash": column.KindBytes,
	"contract_address": column.KindBytes,
	"deployer":         column.KindBytes,
	"chain_id":         column.KindUint64,
}

// contractsDataset is a projection of receipts: every receipt whose
// contractAddress field is set is a deployment (spec.md §2 component 3,
// "~40 datasets ... contract state reads, etc." — contracts is the
// creation-event subset of that family).
func contractsDataset() *Dataset {
	return &Dataset{
		Name:            "contracts",
		Aliases:         []string{"deployments"},
		RequiredMethods: []string{"eth_getBlockReceipts"},
		Granularity:     MultiPerBlock,
		ColumnOrder:     contractsColumnOrder,
		ColumnKinds:     contractsColumnKinds,
		DefaultColumns:  contractsColumnOrder,
		DefaultSort:     []string{"block_number"},
		Fetch:           fetchContracts,
	}
}

func fetchContracts(ctx context.Context, fc *FetchCtx) (*column.Buffer, error) {
	buf := column.NewBuffer(contractsColumnOrder, contractsColumnKinds, fc.Chunk.Count())

	perBlock, err := fetch.MapOrdered(ctx, fc.Chunk.Blocks, fc.Query.Limits.MaxConcurrentBlocks,
		func(ctx context.Context, b uint64) ([]rpcReceipt, error) {
			return fetchBlockReceipts(ctx, fc.Client, b)
		})
	if err != nil {
		return nil, err
	}

	for _, receipts := range perBlock {
		for _, r := range receipts {
			if r.ContractAddress == "" || r.ContractAddress == "0x" {
				continue
			}
			buf.Col("block_number").AppendUint64(mustUint64(r.BlockNumber))
			buf.Col("transaction_hash").AppendBytes(hexBytes(r.TransactionHash))
			buf.Col("contract_address").AppendBytes(hexBytes(r.ContractAddress))
			buf.Col("deployer").AppendBytes(nil) // not present on the receipt; left null, not guessed
			buf.Col("chain_id").AppendUint64(fc.ChainID)
		}
	}
	return buf, nil
}
