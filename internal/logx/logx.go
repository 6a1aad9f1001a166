// Package logx constructs the process-wide zap logger used by the
// coordinator and everything it calls. A single *zap.Logger is built once at
// startup and threaded down by reference, the way the teacher threads
// *config.Config through cmd/* — there is no package-level singleton.
package logx

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls the logger's verbosity and encoding.
type Options struct {
	Verbose bool // debug-level logging when true, info otherwise
	JSON    bool // JSON encoding for log aggregation; console encoding otherwise
}

// New builds a *zap.Logger for the given options.
func New(opts Options) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if !opts.JSON {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if opts.Verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.DisableStacktrace = true
	return cfg.Build()
}

// Chunk returns the fields a chunk-scoped log line should carry.
func Chunk(dataset, chunkID string) []zap.Field {
	return []zap.Field{zap.String("dataset", dataset), zap.String("chunk_id", chunkID)}
}
