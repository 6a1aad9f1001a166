package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ethcryo/cryo/internal/chunk"
	"github.com/ethcryo/cryo/internal/cliutil"
	"github.com/ethcryo/cryo/internal/column"
	cfgpkg "github.com/ethcryo/cryo/internal/config"
	"github.com/ethcryo/cryo/internal/coordinator"
	"github.com/ethcryo/cryo/internal/logx"
	"github.com/ethcryo/cryo/internal/query"
)

// collectCmd is cryo's main verb: resolve blocks, partition into chunks,
// fetch every requested dataset, and write the result (spec.md §2's data
// flow, end to end).
func collectCmd() *cobra.Command {
	var (
		blocksSpecs  []string
		txHashes     []string
		chunkSize    uint64
		nChunks      int
		align        bool
		networkName  string
		dryRun       bool
		outputDir    string
		subdir       string
		suffix       string
		format       string
		compression  string
		noStats      bool
		rowGroupSize int64
		overwrite    bool
		noReport     bool
		reportDir    string
		hexFlag      bool
		sortCol      string
		includeCols  []string
		excludeCols  []string
		u256Enc      []string
		contracts    []string
		topics       []string
		slots        []string
		callData     string
		functionSig  string
		eventSig     string

		maxConcurrentChunks   int
		maxConcurrentBlocks   int64
		maxConcurrentRequests int64
		requestsPerSecond     float64
		innerRequestSize      int
		maxRetries            int
		reorgBuffer           uint64
	)

	cmd := &cobra.Command{
		Use:   "collect <dataset...>",
		Short: "Extract one or more datasets over a block range",
		Long: `Fetch the given datasets (or group names, e.g. state_diffs) over the
block range named by --blocks, partition the range into chunks, and write
one file per (dataset, chunk) to --output-dir.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			rpcURL, _ := cmd.Flags().GetString("rpc-url")
			verbose, _ := cmd.Flags().GetBool("verbose")
			jsonLogs, _ := cmd.Flags().GetBool("json-logs")

			cfg := cfgpkg.Default()
			if cfgPath != "" {
				loaded, err := cfgpkg.Load(cfgPath)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				cfg = loaded
			}
			if rpcURL != "" {
				cfg.RPCURL = rpcURL
			}

			log, err := logx.New(logx.Options{Verbose: verbose, JSON: jsonLogs})
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			defer log.Sync()

			encodings, err := parseU256Encodings(u256Enc)
			if err != nil {
				return err
			}

			q := &query.Query{
				Datasets:    args,
				RPCURL:      cfg.RPCURL,
				NetworkName: networkName,
				Dry:         dryRun,
				Filters: query.Filters{
					Contracts:         contracts,
					Topics:            topicArray(topics),
					Slots:             slots,
					CallData:          callData,
					FunctionSig:       functionSig,
					EventSig:          eventSig,
					TransactionHashes: txHashes,
				},
				U256Encodings: encodings,
				Limits: query.AcquisitionLimits{
					MaxConcurrentChunks:   coalesceInt(maxConcurrentChunks, cfg.Concurrency.MaxConcurrentChunks),
					MaxConcurrentBlocks:   coalesceInt64(maxConcurrentBlocks, cfg.Concurrency.MaxConcurrentBlocks),
					MaxConcurrentRequests: coalesceInt64(maxConcurrentRequests, cfg.Concurrency.MaxConcurrentRequests),
					RequestsPerSecond:     coalesceFloat(requestsPerSecond, cfg.Concurrency.RequestsPerSecond),
					InnerRequestSize:      coalesceInt(innerRequestSize, cfg.Concurrency.InnerRequestSize),
					MaxRetries:            coalesceInt(maxRetries, cfg.Backoff.MaxRetries),
					InitialBackoff:        cfg.Backoff.InitialBackoff,
					MaxBackoff:            cfg.Backoff.MaxBackoff,
					ReorgBuffer:           coalesceUint64(reorgBuffer, cfg.Chunking.ReorgBuffer),
				},
				Output: query.OutputConfig{
					Dir:          coalesceStr(outputDir, cfg.Output.Dir),
					Subdir:       subdir,
					Suffix:       suffix,
					Format:       coalesceStr(format, cfg.Output.Format),
					Compression:  coalesceStr(compression, cfg.Output.Compression),
					NoStats:      noStats || cfg.Output.NoStats,
					RowGroupSize: coalesceInt64(rowGroupSize, cfg.Output.RowGroupSize),
					Overwrite:    overwrite || cfg.Output.Overwrite,
					NoReport:     noReport || cfg.Output.NoReport,
					ReportDir:    reportDir,
					Hex:          hexFlag,
					Sort:         sortCol,
				},
			}
			if len(includeCols) > 0 {
				q.ColumnProjection = map[string][]string{}
				for _, ds := range args {
					q.ColumnProjection[ds] = includeCols
				}
			}
			if len(excludeCols) > 0 {
				q.ExcludeColumns = map[string][]string{}
				for _, ds := range args {
					q.ExcludeColumns[ds] = excludeCols
				}
			}

			coord, err := coordinator.New(q, log)
			if err != nil {
				return err
			}

			effectiveChunkSize := chunkSize
			effectiveNChunks := nChunks
			if effectiveChunkSize == 0 && effectiveNChunks == 0 {
				effectiveChunkSize = cfg.Chunking.ChunkSize
				effectiveNChunks = cfg.Chunking.NChunks
			}

			ctx := cmd.Context()
			blocks, err := coord.ResolveBlocks(ctx, networkName, blocksSpecs, q.Limits.ReorgBuffer)
			if err != nil {
				return err
			}
			chunks, err := chunk.Partition(blocks, chunk.Options{ChunkSize: effectiveChunkSize, NChunks: effectiveNChunks, Align: align || cfg.Chunking.Align})
			if err != nil {
				return fmt.Errorf("partition blocks: %w", err)
			}
			q.Chunks = chunks

			if dryRun {
				plan, err := coord.Dry(ctx, q)
				if err != nil {
					return err
				}
				cliutil.PrintPlan(plan)
				return nil
			}

			rep, err := coord.Run(ctx, q)
			if err != nil {
				return err
			}
			cliutil.PrintSummary(rep)
			if _, _, failed := rep.Counts(); failed > 0 {
				// Non-zero chunk failures are still reported, not a process
				// failure (spec.md §6, "0 success even with per-chunk
				// failures recorded in report").
				_ = failed
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&blocksSpecs, "blocks", nil, "block spec(s), e.g. 1000:2000, latest, 16M:+1000")
	cmd.Flags().StringSliceVar(&txHashes, "tx-hashes", nil, "transaction hash filter")
	cmd.Flags().Uint64Var(&chunkSize, "chunk-size", 0, "blocks per output chunk")
	cmd.Flags().IntVar(&nChunks, "n-chunks", 0, "number of chunks (overrides chunk-size)")
	cmd.Flags().BoolVar(&align, "align", false, "align chunk boundaries to multiples of chunk-size")
	cmd.Flags().StringVar(&networkName, "network-name", "", "override the chain_id-derived network name")
	cmd.Flags().BoolVar(&dryRun, "dry", false, "resolve schema and estimate request count without fetching")

	cmd.Flags().StringVar(&outputDir, "output-dir", "", "output directory")
	cmd.Flags().StringVar(&subdir, "subdir", "", "output subdirectory")
	cmd.Flags().StringVar(&suffix, "suffix", "", "filename suffix")
	cmd.Flags().StringVar(&format, "format", "", "parquet|csv|json")
	cmd.Flags().StringVar(&compression, "compression", "", "parquet compression: lz4|zstd|snappy|gzip|none")
	cmd.Flags().BoolVar(&noStats, "no-stats", false, "disable parquet column statistics")
	cmd.Flags().Int64Var(&rowGroupSize, "row-group-size", 0, "parquet row group size")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "re-fetch and overwrite existing chunk files")
	cmd.Flags().BoolVar(&noReport, "no-report", false, "skip writing the sidecar report")
	cmd.Flags().StringVar(&reportDir, "report-dir", "", "sidecar report directory")
	cmd.Flags().BoolVar(&hexFlag, "hex", false, "hex-encode binary columns")
	cmd.Flags().StringVar(&sortCol, "sort", "", "default|none|column name")
	cmd.Flags().StringSliceVar(&includeCols, "include-columns", nil, "column projection, applied to every requested dataset")
	cmd.Flags().StringSliceVar(&excludeCols, "exclude-columns", nil, "columns to drop from the projection")
	cmd.Flags().StringSliceVar(&u256Enc, "u256-types", []string{"binary"}, "u256 sibling-column encodings: binary,string,u32,u64,f32,f64,d128")

	cmd.Flags().StringSliceVar(&contracts, "contracts", nil, "address filter")
	cmd.Flags().StringSliceVar(&topics, "topics", nil, "up to 4 eth_getLogs topics, \"\" for wildcard")
	cmd.Flags().StringSliceVar(&slots, "slots", nil, "storage slot filter (storages/storage_diffs)")
	cmd.Flags().StringVar(&callData, "call-data", "", "pre-built \"0x\"-prefixed calldata")
	cmd.Flags().StringVar(&functionSig, "function", "", "function signature, e.g. balanceOf(address)")
	cmd.Flags().StringVar(&eventSig, "event", "", "event signature, e.g. Transfer(address,address,uint256)")

	cmd.Flags().IntVar(&maxConcurrentChunks, "max-concurrent-chunks", 0, "chunks in flight")
	cmd.Flags().Int64Var(&maxConcurrentBlocks, "max-concurrent-blocks", 0, "subrequests in flight per chunk")
	cmd.Flags().Int64Var(&maxConcurrentRequests, "max-concurrent-requests", 0, "global RPC requests in flight")
	cmd.Flags().Float64Var(&requestsPerSecond, "requests-per-second", 0, "token-bucket rate, 0 disables it")
	cmd.Flags().IntVar(&innerRequestSize, "inner-request-size", 0, "eth_getLogs window size in blocks")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 0, "RPC retry budget")
	cmd.Flags().Uint64Var(&reorgBuffer, "reorg-buffer", 0, "blocks subtracted from the resolved chain tip")

	return cmd
}

func parseU256Encodings(names []string) ([]column.U256Encoding, error) {
	out := make([]column.U256Encoding, 0, len(names))
	for _, n := range names {
		enc, ok := column.ParseU256Encoding(n)
		if !ok {
			return nil, fmt.Errorf("unknown u256 encoding: %q", n)
		}
		out = append(out, enc)
	}
	return out, nil
}

// topicArray maps a flat --topics list onto eth_getLogs's positional
// [4]string topic slots; shorter lists leave trailing topics as wildcards.
func topicArray(topics []string) [4]string {
	var out [4]string
	for i := 0; i < len(topics) && i < 4; i++ {
		out[i] = strings.TrimSpace(topics[i])
	}
	return out
}

func coalesceInt(v, fallback int) int {
	if v != 0 {
		return v
	}
	return fallback
}

func coalesceInt64(v, fallback int64) int64 {
	if v != 0 {
		return v
	}
	return fallback
}

func coalesceUint64(v, fallback uint64) uint64 {
	if v != 0 {
		return v
	}
	return fallback
}

func coalesceFloat(v, fallback float64) float64 {
	if v != 0 {
		return v
	}
	return fallback
}

func coalesceStr(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
