package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadExpandsEnvAndFillsDefaults(t *testing.T) {
	t.Setenv("TEST_CRYO_RPC_URL", "https://rpc.example.test")

	dir := t.TempDir()
	path := filepath.Join(dir, "cryo.yaml")
	body := `
rpc_url: ${TEST_CRYO_RPC_URL}
concurrency:
  max_concurrent_chunks: 2
chunking:
  chunk_size: 500
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RPCURL != "https://rpc.example.test" {
		t.Fatalf("rpc_url not expanded, got %q", cfg.RPCURL)
	}
	if cfg.Concurrency.MaxConcurrentChunks != 2 {
		t.Fatalf("expected explicit value preserved, got %d", cfg.Concurrency.MaxConcurrentChunks)
	}
	if cfg.Concurrency.MaxConcurrentBlocks != 4 {
		t.Fatalf("expected default MaxConcurrentBlocks=4, got %d", cfg.Concurrency.MaxConcurrentBlocks)
	}
	if cfg.Chunking.ChunkSize != 500 {
		t.Fatalf("expected explicit chunk_size preserved, got %d", cfg.Chunking.ChunkSize)
	}
	if cfg.Backoff.InitialBackoff != 250*time.Millisecond {
		t.Fatalf("expected default initial backoff, got %v", cfg.Backoff.InitialBackoff)
	}
	if cfg.Output.Format != "parquet" {
		t.Fatalf("expected default format parquet, got %q", cfg.Output.Format)
	}
}

func TestDefaultFallsBackToEnvRPCURL(t *testing.T) {
	t.Setenv("ETH_RPC_URL", "https://default.example.test")
	cfg := Default()
	if cfg.RPCURL != "https://default.example.test" {
		t.Fatalf("expected RPCURL from ETH_RPC_URL, got %q", cfg.RPCURL)
	}
	if cfg.Chunking.ChunkSize != 1000 {
		t.Fatalf("expected default chunk size 1000, got %d", cfg.Chunking.ChunkSize)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
