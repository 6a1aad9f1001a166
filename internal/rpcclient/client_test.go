package rpcclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethcryo/cryo/internal/cryoerr"
)

func testConfig(url string) Config {
	return Config{
		URL:                   url,
		Timeout:               2 * time.Second,
		MaxConcurrentRequests: 4,
		MaxRetries:            3,
		InitialBackoff:        time.Millisecond,
		MaxBackoff:            5 * time.Millisecond,
	}
}

func TestCallFatalJSONRPCErrorNoRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		json.NewEncoder(w).Encode(Response{
			JSONRPC: "2.0",
			ID:      1,
			Error:   &RPCError{Code: codeMethodNotFound, Message: "method not found"},
		})
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL), nil)
	_, err := c.Call(t.Context(), "eth_bogus")
	if err == nil {
		t.Fatal("expected error")
	}
	if cryoerr.KindOf(err) != cryoerr.KindRpcFatal {
		t.Errorf("expected KindRpcFatal, got %v", cryoerr.KindOf(err))
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("expected exactly 1 call for a fatal error, got %d", n)
	}
}

func TestCallExhaustsRetriesOn500(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.MaxRetries = 2
	c := New(cfg, nil)
	_, err := c.Call(t.Context(), "eth_chainId")
	if err == nil {
		t.Fatal("expected error")
	}
	if cryoerr.KindOf(err) != cryoerr.KindRpcExhausted {
		t.Errorf("expected KindRpcExhausted, got %v", cryoerr.KindOf(err))
	}
	// one initial attempt plus MaxRetries retries
	if n := atomic.LoadInt32(&calls); n != int32(cfg.MaxRetries)+1 {
		t.Errorf("expected %d calls, got %d", cfg.MaxRetries+1, n)
	}
}

func TestCallSucceedsAfterTransientFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(Response{JSONRPC: "2.0", ID: 1, Result: json.RawMessage(`"0x1"`)})
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL), nil)
	result, err := c.Call(t.Context(), "eth_chainId")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result) != `"0x1"` {
		t.Errorf("got %s, want \"0x1\"", result)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("expected 2 calls, got %d", n)
	}
}
