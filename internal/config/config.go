// Package config loads the engine's static defaults: concurrency/backoff
// limits, chunk sizing, and output options (spec.md §5/§6). Adapted from
// the teacher's internal/config.Load — same read/expand/parse pipeline
// (gopkg.in/yaml.v3, os.ExpandEnv for ${VAR} references), generalized from
// "a list of RPC providers to health-check" to "the one RPC endpoint and
// acquisition limits a Query is built from".
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk form of query.AcquisitionLimits and
// query.OutputConfig, before a CLI invocation overrides individual fields
// with flags.
type Config struct {
	RPCURL string `yaml:"rpc_url"` // env vars expanded, e.g. ${ETH_RPC_URL}

	Concurrency Concurrency `yaml:"concurrency"`
	Backoff     Backoff     `yaml:"backoff"`
	Chunking    Chunking    `yaml:"chunking"`
	Output      Output      `yaml:"output"`
}

// Concurrency maps onto spec.md §5's three stacked limits: chunks in
// flight, blocks in flight within a chunk, and RPC requests in flight
// across the whole run, plus the token-bucket rate and the eth_getLogs
// window size.
type Concurrency struct {
	MaxConcurrentChunks   int     `yaml:"max_concurrent_chunks"`
	MaxConcurrentBlocks   int64   `yaml:"max_concurrent_blocks"`
	MaxConcurrentRequests int64   `yaml:"max_concurrent_requests"`
	RequestsPerSecond     float64 `yaml:"requests_per_second"`
	InnerRequestSize      int     `yaml:"inner_request_size"`
}

// Backoff configures the RPC client's retry loop (spec.md §4.4).
type Backoff struct {
	MaxRetries     int           `yaml:"max_retries"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

// Chunking sets the chunker's defaults (spec.md §4.2). A --chunk-size or
// --n-chunks flag on an individual run overrides these.
type Chunking struct {
	ChunkSize   uint64 `yaml:"chunk_size"`
	NChunks     int    `yaml:"n_chunks"`
	Align       bool   `yaml:"align"`
	ReorgBuffer uint64 `yaml:"reorg_buffer"`
}

// Output sets the writer's defaults (spec.md §4.6).
type Output struct {
	Dir          string `yaml:"dir"`
	Format       string `yaml:"format"`
	Compression  string `yaml:"compression"`
	NoStats      bool   `yaml:"no_stats"`
	RowGroupSize int64  `yaml:"row_group_size"`
	Overwrite    bool   `yaml:"overwrite"`
	NoReport     bool   `yaml:"no_report"`
}

// withDefaults fills in any field left unset in the YAML file, the same
// zero-value-means-unset convention the teacher uses for per-provider
// Timeout in internal/config.Load.
func withDefaults(cfg Config) Config {
	if cfg.Concurrency.MaxConcurrentChunks == 0 {
		cfg.Concurrency.MaxConcurrentChunks = 4
	}
	if cfg.Concurrency.MaxConcurrentBlocks == 0 {
		cfg.Concurrency.MaxConcurrentBlocks = 4
	}
	if cfg.Concurrency.MaxConcurrentRequests == 0 {
		cfg.Concurrency.MaxConcurrentRequests = 8
	}
	if cfg.Concurrency.InnerRequestSize == 0 {
		cfg.Concurrency.InnerRequestSize = 1000
	}
	if cfg.Backoff.MaxRetries == 0 {
		cfg.Backoff.MaxRetries = 5
	}
	if cfg.Backoff.InitialBackoff == 0 {
		cfg.Backoff.InitialBackoff = 250 * time.Millisecond
	}
	if cfg.Backoff.MaxBackoff == 0 {
		cfg.Backoff.MaxBackoff = 10 * time.Second
	}
	if cfg.Chunking.ChunkSize == 0 && cfg.Chunking.NChunks == 0 {
		cfg.Chunking.ChunkSize = 1000
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "."
	}
	if cfg.Output.Format == "" {
		cfg.Output.Format = "parquet"
	}
	if cfg.Output.Compression == "" {
		cfg.Output.Compression = "lz4"
	}
	return cfg
}

// Load reads a YAML config file, expanding ${VAR}-style references (e.g.
// rpc_url: ${ETH_RPC_URL}) the same way the teacher's Load expands
// provider URLs, then fills in any field left unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, err
	}

	cfg = withDefaults(cfg)
	if cfg.RPCURL == "" {
		cfg.RPCURL = os.Getenv("ETH_RPC_URL")
	}
	return &cfg, nil
}

// Default returns the all-defaults Config for runs with no --config flag;
// CLI flags and ETH_RPC_URL fully specify the run in that case.
func Default() *Config {
	cfg := withDefaults(Config{})
	cfg.RPCURL = os.Getenv("ETH_RPC_URL")
	return &cfg
}
