package dataset

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/ethcryo/cryo/internal/chunk"
	"github.com/ethcryo/cryo/internal/query"
	"github.com/ethcryo/cryo/internal/rpcclient"
)

type blockRPCRequest struct {
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
	ID     int           `json:"id"`
}

func TestFetchBlocksPopulatesAllColumns(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req blockRPCRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Method != "eth_getBlockByNumber" {
			t.Fatalf("unexpected method %q", req.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":` + strconv.Itoa(req.ID) + `,"result":{
			"number":"0x2a",
			"hash":"0x1111111111111111111111111111111111111111111111111111111111111111",
			"parentHash":"0x2222222222222222222222222222222222222222222222222222222222222222",
			"timestamp":"0x5f5e100",
			"miner":"0x1111111111111111111111111111111111111111",
			"gasLimit":"0x1c9c380",
			"gasUsed":"0xc350",
			"baseFeePerGas":"0x3b9aca00",
			"size":"0x220",
			"extraData":"0xdeadbeef",
			"transactions":[{"hash":"0x01"}]
		}}`))
	}))
	defer srv.Close()

	client := rpcclient.New(rpcclient.Config{URL: srv.URL}, nil)
	ch := chunk.Chunk{MinBlock: 42, MaxBlock: 42, Blocks: []uint64{42}}
	fc := &FetchCtx{Client: client, Chunk: ch, Query: &query.Query{Limits: query.AcquisitionLimits{MaxConcurrentBlocks: 1}}, ChainID: 1}

	buf, err := fetchBlocks(t.Context(), fc)
	if err != nil {
		t.Fatalf("fetchBlocks: %v", err)
	}
	if buf.NumRows() != 1 {
		t.Fatalf("expected 1 row, got %d", buf.NumRows())
	}
	if got := buf.Col("block_number").U64[0]; got != 42 {
		t.Fatalf("expected block_number=42, got %d", got)
	}
	if got := buf.Col("transaction_count").U32[0]; got != 1 {
		t.Fatalf("expected transaction_count=1, got %d", got)
	}
	if got := buf.Col("chain_id").U64[0]; got != 1 {
		t.Fatalf("expected chain_id=1, got %d", got)
	}
	if err := buf.CheckEqualLength(); err != nil {
		t.Fatalf("CheckEqualLength: %v", err)
	}
}
