package dataset

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethcryo/cryo/internal/column"
	"github.com/ethcryo/cryo/internal/fetch"
)

var tracesColumnOrder = []string{
	"block_number", "transaction_hash", "trace_address", "call_type",
	"from_address", "to_address", "value", "gas", "gas_used", "input",
	"output", "error", "chain_id",
}

var tracesColumnKinds = map[string]column.Kind{
	"block_number":     column.KindUint64,
	"transaction_hash": column.KindBytes,
	"trace_address":    column.KindString,
	"call_type":        column.KindString,
	"from_address":     column.KindBytes,
	"to_address":       column.KindBytes,
	"value":            column.KindU256,
	"gas":              column.KindUint64,
	"gas_used":         column.KindUint64,
	"input":            column.KindBytes,
	"output":           column.KindBytes,
	"error":            column.KindString,
	"chain_id":         column.KindUint64,
}

type traceAction struct {
	CallType string `json:"callType"`
	From     string `json:"from"`
	To       string `json:"to"`
	Value    string `json:"value"`
	Gas      string `json:"gas"`
	Input    string `json:"input"`
}

type traceResultObj struct {
	GasUsed string `json:"gasUsed"`
	Output  string `json:"output"`
}

type rpcTrace struct {
	Action            traceAction     `json:"action"`
	Result            *traceResultObj `json:"result"`
	Error             string          `json:"error"`
	TraceAddress      []int           `json:"traceAddress"`
	TransactionHash   string          `json:"transactionHash"`
	BlockNumber       uint64          `json:"blockNumber"`
}

func tracesDataset() *Dataset {
	return &Dataset{
		Name:            "traces",
		Aliases:         []string{"call_traces"},
		RequiredMethods: []string{"trace_block"},
		Granularity:     MultiPerBlock,
		NeedsTrace:      true,
		ColumnOrder:     tracesColumnOrder,
		ColumnKinds:     tracesColumnKinds,
		DefaultColumns:  tracesColumnOrder,
		DefaultSort:     []string{"block_number", "trace_address"},
		Fetch:           fetchTraces,
	}
}

func fetchTraces(ctx context.Context, fc *FetchCtx) (*column.Buffer, error) {
	buf := column.NewBuffer(tracesColumnOrder, tracesColumnKinds, fc.Chunk.Count())

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
		for _, t := range traces {
			gasUsed := uint64(0)
			output := ""
			if t.Result != nil {
				gasUsed = mustUint64(t.Result.GasUsed)
				output = t.Result.Output
			}
			buf.Col("block_number").AppendUint64(t.BlockNumber)
			buf.Col("transaction_hash").AppendBytes(hexBytes(t.TransactionHash))
			buf.Col("trace_address").AppendString(fmt.Sprint(t.TraceAddress))
			buf.Col("call_type").AppendString(t.Action.CallType)
			buf.Col("from_address").AppendBytes(hexBytes(t.Action.From))
			buf.Col("to_address").AppendBytes(hexBytes(t.Action.To))
			buf.Col("value").AppendU256(mustU256(t.Action.Value))
			buf.Col("gas").AppendUint64(mustUint64(t.Action.Gas))
			buf.Col("gas_used").AppendUint64(gasUsed)
			buf.Col("input").AppendBytes(hexBytes(t.Action.Input))
			buf.Col("output").AppendBytes(hexBytes(output))
			buf.Col("error").AppendString(t.Error)
			buf.Col("chain_id").AppendUint64(fc.ChainID)
		}
	}
	return buf, nil
}
