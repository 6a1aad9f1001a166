package dataset

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethcryo/cryo/internal/abiutil"
	"github.com/ethcryo/cryo/internal/chunk"
	"github.com/ethcryo/cryo/internal/column"
	"github.com/ethcryo/cryo/internal/fetch"
	"github.com/ethcryo/cryo/internal/rpcclient"
)

var logsColumnOrder = []string{
	"block_number", "transaction_index", "log_index", "transaction_hash",
	"address", "topic0", "topic1", "topic2", "topic3", "data", "removed", "chain_id",
}

var logsColumnKinds = map[string]column.Kind{
	"block_number":      column.KindUint64,
	"transaction_index": column.KindUint32,
	"log_index":         column.KindUint32,
	"transaction_hash":  column.KindBytes,
	"address":           column.KindBytes,
	"topic0":            column.KindBytes,
	"topic1":            column.KindBytes,
	"topic2":            column.KindBytes,
	"topic3":            column.KindBytes,
	"data":              column.KindBytes,
	"removed":           column.KindBool,
	"chain_id":          column.KindUint64,
}

func logsDataset() *Dataset {
	return &Dataset{
		Name:            "logs",
		Aliases:         []string{"events"},
		RequiredMethods: []string{"eth_getLogs"},
		Granularity:     MultiPerBlock,
		ColumnOrder:     logsColumnOrder,
		ColumnKinds:     logsColumnKinds,
		DefaultColumns:  logsColumnOrder,
		DefaultSort:     []string{"block_number", "log_index"},
		Fetch:           fetchLogs,
	}
}

// logWindows splits a chunk's block range into eth_getLogs windows of
// inner_request_size blocks each (spec.md §4.5 step 1, "grouped log-request
// windows"), since most nodes refuse an unbounded fromBlock/toBlock span.
func logWindows(c chunk.Chunk, innerSize int) [][2]uint64 {
	if innerSize <= 0 {
		innerSize = 1000
	}
	var windows [][2]uint64
	lo := c.MinBlock
	for lo <= c.MaxBlock {
		hi := lo + uint64(innerSize) - 1
		if hi > c.MaxBlock {
			hi = c.MaxBlock
		}
		windows = append(windows, [2]uint64{lo, hi})
		lo = hi + 1
	}
	return windows
}

func fetchLogs(ctx context.Context, fc *FetchCtx) (*column.Buffer, error) {
	buf := column.NewBuffer(logsColumnOrder, logsColumnKinds, fc.Chunk.Count())

	filterParams, err := logsFilterParams(fc)
	if err != nil {
		return nil, err
	}

	windows := logWindows(fc.Chunk, fc.Query.Limits.InnerRequestSize)
	results, err := fetch.MapOrdered(ctx, windows, fc.Query.Limits.MaxConcurrentBlocks,
		func(ctx context.Context, w [2]uint64) ([]rpcLog, error) {
			params := map[string]interface{}{
				"fromBlock": rpcclient.Uint64ToHex(w[0]),
				"toBlock":   rpcclient.Uint64ToHex(w[1]),
			}
			for k, v := range filterParams {
				params[k] = v
			}
			raw, err := fc.Client.Call(ctx, "eth_getLogs", params)
			if err != nil {
				return nil, err
			}
			var logs []rpcLog
			if err := json.Unmarshal(raw, &logs); err != nil {
				return nil, fmt.Errorf("decode eth_getLogs(%d:%d): %w", w[0], w[1], err)
			}
			return logs, nil
		})
	if err != nil {
		return nil, err
	}

	for _, logs := range results {
		for _, lg := range logs {
			topics := [4]string{}
			for i := 0; i < 4 && i < len(lg.Topics); i++ {
				topics[i] = lg.Topics[i]
			}
			buf.Col("block_number").AppendUint64(mustUint64(lg.BlockNumber))
			buf.Col("transaction_index").AppendUint32(uint32(mustUint64(lg.TransactionIndex)))
			buf.Col("log_index").AppendUint32(uint32(mustUint64(lg.LogIndex)))
			buf.Col("transaction_hash").AppendBytes(hexBytes(lg.TransactionHash))
			buf.Col("address").AppendBytes(hexBytes(lg.Address))
			buf.Col("topic0").AppendBytes(hexBytes(topics[0]))
			buf.Col("topic1").AppendBytes(hexBytes(topics[1]))
			buf.Col("topic2").AppendBytes(hexBytes(topics[2]))
			buf.Col("topic3").AppendBytes(hexBytes(topics[3]))
			buf.Col("data").AppendBytes(hexBytes(lg.Data))
			buf.Col("removed").AppendBool(lg.Removed)
			buf.Col("chain_id").AppendUint64(fc.ChainID)
		}
	}
	return buf, nil
}

// logsFilterParams builds the address/topics arguments eth_getLogs accepts
// directly, delegating filtering to the node rather than post-filtering
// decoded rows (spec.md §4.5 step 5, the RPC-delegated branch).
func logsFilterParams(fc *FetchCtx) (map[string]interface{}, error) {
	params := map[string]interface{}{}
	f := fc.Query.Filters

	if len(f.Contracts) > 0 {
		for _, c := range f.Contracts {
			if err := abiutil.ValidateAddress(c); err != nil {
				return nil, fmt.Errorf("logs: invalid contract filter: %w", err)
			}
		}
		if len(f.Contracts) == 1 {
			params["address"] = f.Contracts[0]
		} else {
			params["address"] = f.Contracts
		}
	}

	var topics []interface{}
	haveTopics := false
	for _, t := range f.Topics {
		if t == "" {
			topics = append(topics, nil)
			continue
		}
		haveTopics = true
		norm, err := abiutil.NormalizeTopic(t)
		if err != nil {
			return nil, fmt.Errorf("logs: invalid topic filter: %w", err)
		}
		topics = append(topics, norm)
	}
	if f.EventSig != "" {
		topic0 := abiutil.EventTopic(f.EventSig)
		topics[0] = fmt.Sprintf("0x%x", topic0)
		haveTopics = true
	}
	if haveTopics {
		// Trim trailing wildcards: eth_getLogs treats a shorter topics
		// array as "don't care" for the remaining positions.
		for len(topics) > 0 && topics[len(topics)-1] == nil {
			topics = topics[:len(topics)-1]
		}
		params["topics"] = topics
	}
	return params, nil
}
