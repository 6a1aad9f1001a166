// Package writer is the writer/chunk committer (spec.md §4.6): it turns a
// schema.Projected column set into a file on disk, atomically. The writer
// is the only component in the engine that touches the filesystem under
// output_dir.
package writer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethcryo/cryo/internal/chunk"
	"github.com/ethcryo/cryo/internal/query"
	"github.com/ethcryo/cryo/internal/schema"
)

// Format serializes a Projected column set to an io.Writer-backed file.
type Format interface {
	Extension() string
	Write(path string, p *schema.Projected, out query.OutputConfig) error
}

// Outcome mirrors one ChunkOutput entry (spec.md §3).
type Outcome struct {
	Path     string
	RowCount int
	Bytes    int64
	Skipped  bool
}

// TargetPath computes the file path for one (network, dataset, chunk)
// triple (spec.md §6, "File layout").
func TargetPath(out query.OutputConfig, network, dataset string, c chunk.Chunk, width int, ext string) string {
	name := fmt.Sprintf("%s__%s__%s", network, dataset, c.ID(width))
	if out.Suffix != "" {
		name += "_" + out.Suffix
	}
	name += "." + ext
	dir := out.Dir
	if out.Subdir != "" {
		dir = filepath.Join(dir, out.Subdir)
	}
	return filepath.Join(dir, name)
}

// Exists reports whether the target file is already present, for the
// resumability check in spec.md §4.6 / §8 property 4: "if overwrite=false
// and a target file exists, no RPC calls are issued for that chunk" — the
// caller is expected to call this BEFORE fetching, not just before writing.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Commit writes p to path via a temp file plus atomic rename, removing the
// temp file on any failure (spec.md §4.6).
func Commit(f Format, path string, p *schema.Projected, out query.OutputConfig) (Outcome, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Outcome{}, fmt.Errorf("writer: mkdir: %w", err)
	}
	tmp := path + ".tmp"
	if err := f.Write(tmp, p, out); err != nil {
		os.Remove(tmp)
		return Outcome{}, fmt.Errorf("writer: %w", err)
	}
	info, err := os.Stat(tmp)
	if err != nil {
		os.Remove(tmp)
		return Outcome{}, fmt.Errorf("writer: stat temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return Outcome{}, fmt.Errorf("writer: rename: %w", err)
	}
	return Outcome{Path: path, RowCount: p.NumRows, Bytes: info.Size()}, nil
}

// ForFormat resolves the query's configured output format to a Format
// implementation.
func ForFormat(name string) (Format, error) {
	switch name {
	case "", "parquet":
		return ParquetFormat{}, nil
	case "csv":
		return CSVFormat{}, nil
	case "json":
		return JSONFormat{}, nil
	default:
		return nil, fmt.Errorf("writer: unknown output format %q", name)
	}
}
