package coordinator

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/ethcryo/cryo/internal/chunk"
	"github.com/ethcryo/cryo/internal/query"
)

type rpcReq struct {
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
	ID     int           `json:"id"`
}

func TestRunWritesOneFileAndReportsDone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcReq
		json.NewDecoder(r.Body).Decode(&req)
		switch req.Method {
		case "eth_chainId":
			writeResult(w, req.ID, `"0x1"`)
		case "eth_getBlockByNumber":
			block := req.Params[0].(string)
			writeResult(w, req.ID, `{
				"number": "`+block+`",
				"hash": "0xaaaa",
				"parentHash": "0xbbbb",
				"timestamp": "0x5",
				"miner": "0x1111111111111111111111111111111111111111",
				"gasUsed": "0x10",
				"gasLimit": "0x20",
				"baseFeePerGas": "0x1",
				"size": "0x100",
				"transactions": []
			}`)
		default:
			writeResult(w, req.ID, `null`)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	q := &query.Query{
		Datasets: []string{"blocks"},
		Chunks:   []chunk.Chunk{{MinBlock: 1, MaxBlock: 1, Blocks: []uint64{1}}},
		Limits: query.AcquisitionLimits{
			MaxConcurrentChunks:   2,
			MaxConcurrentBlocks:   2,
			MaxConcurrentRequests: 2,
			MaxRetries:            1,
			InitialBackoff:        time.Millisecond,
			MaxBackoff:            5 * time.Millisecond,
		},
		Output: query.OutputConfig{Dir: dir, Format: "json", NoReport: true},
		RPCURL: srv.URL,
	}

	c, err := New(q, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rep, err := c.Run(t.Context(), q)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	done, skipped, failed := rep.Counts()
	if done != 1 || skipped != 0 || failed != 0 {
		t.Fatalf("got done=%d skipped=%d failed=%d, want 1/0/0", done, skipped, failed)
	}

	want := filepath.Join(dir, "chain-1__blocks__1_to_1.json")
	if _, err := os.Stat(want); err != nil {
		t.Errorf("expected output file %s: %v", want, err)
	}
}

func TestRunSkipsExistingFileWhenNotOverwriting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcReq
		json.NewDecoder(r.Body).Decode(&req)
		if req.Method == "eth_chainId" {
			writeResult(w, req.ID, `"0x1"`)
			return
		}
		t.Errorf("unexpected RPC call %q for a skipped chunk", req.Method)
		writeResult(w, req.ID, `null`)
	}))
	defer srv.Close()

	dir := t.TempDir()
	existing := filepath.Join(dir, "chain-1__blocks__1_to_1.json")
	if err := os.WriteFile(existing, []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	q := &query.Query{
		Datasets: []string{"blocks"},
		Chunks:   []chunk.Chunk{{MinBlock: 1, MaxBlock: 1, Blocks: []uint64{1}}},
		Limits: query.AcquisitionLimits{
			MaxConcurrentChunks:   1,
			MaxConcurrentBlocks:   1,
			MaxConcurrentRequests: 1,
			MaxRetries:            1,
			InitialBackoff:        time.Millisecond,
			MaxBackoff:            5 * time.Millisecond,
		},
		Output: query.OutputConfig{Dir: dir, Format: "json", NoReport: true},
		RPCURL: srv.URL,
	}

	c, err := New(q, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rep, err := c.Run(t.Context(), q)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	done, skipped, failed := rep.Counts()
	if skipped != 1 || done != 0 || failed != 0 {
		t.Fatalf("got done=%d skipped=%d failed=%d, want 0/1/0", done, skipped, failed)
	}
}

func writeResult(w http.ResponseWriter, id int, resultJSON string) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"jsonrpc":"2.0","id":` + strconv.Itoa(id) + `,"result":` + resultJSON + `}`))
}

func TestSortColumnsFor(t *testing.T) {
	defaultSort := []string{"block_number", "log_index"}

	cases := []struct {
		outputSort string
		want       []string
	}{
		{"", defaultSort},
		{"default", defaultSort},
		{"none", nil},
		{"transaction_hash", []string{"transaction_hash"}},
	}
	for _, c := range cases {
		got := sortColumnsFor(c.outputSort, defaultSort)
		if len(got) != len(c.want) {
			t.Fatalf("sortColumnsFor(%q): got %v, want %v", c.outputSort, got, c.want)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Fatalf("sortColumnsFor(%q): got %v, want %v", c.outputSort, got, c.want)
			}
		}
	}
}
