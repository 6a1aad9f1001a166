package blockspec

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/parquet/file"
)

// ParseColumnSpec splits a filesystem path spec ("snapshot.parquet:number")
// into its file path and the selected column name. A bare path without a
// ":column" suffix selects "block_number".
func ParseColumnSpec(tok string) (path, column string) {
	if idx := strings.LastIndex(tok, ":"); idx > 0 {
		return tok[:idx], tok[idx+1:]
	}
	return tok, "block_number"
}

// LooksLikePath reports whether tok is a parquet-column block spec rather
// than a numeric range token: it contains a path separator or a known
// parquet extension before any ':' column selector.
func LooksLikePath(tok string) bool {
	path, _ := ParseColumnSpec(tok)
	return strings.HasSuffix(path, ".parquet") || strings.ContainsAny(path, "/\\")
}

// ResolveFromParquetColumn reads every value of an integer column out of a
// parquet file and returns it as a block number list, preserving the file's
// row order (spec.md §4.1: "reference to an external parquet column").
func ResolveFromParquetColumn(path, column string) ([]uint64, error) {
	rdr, err := file.OpenParquetFile(path, true)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer rdr.Close()

	colIdx, err := findColumnIndex(rdr, column)
	if err != nil {
		return nil, err
	}

	var out []uint64
	for rg := 0; rg < rdr.NumRowGroups(); rg++ {
		group := rdr.RowGroup(rg)
		col, err := group.Column(colIdx)
		if err != nil {
			return nil, fmt.Errorf("read column %s: %w", column, err)
		}
		vals, err := readInt64Column(col)
		if err != nil {
			return nil, fmt.Errorf("decode column %s: %w", column, err)
		}
		out = append(out, vals...)
	}
	return out, nil
}

func findColumnIndex(rdr *file.Reader, column string) (int, error) {
	sc := rdr.MetaData().Schema
	for i := 0; i < sc.NumColumns(); i++ {
		if sc.Column(i).Name() == column {
			return i, nil
		}
	}
	return -1, fmt.Errorf("column %q not found in parquet schema", column)
}

// readInt64Column reads every value of an int32 or int64 parquet column,
// widening int32 values to uint64 block numbers.
func readInt64Column(cr file.ColumnChunkReader) ([]uint64, error) {
	switch typed := cr.(type) {
	case *file.Int64ColumnChunkReader:
		return drainInt64(typed)
	case *file.Int32ColumnChunkReader:
		return drainInt32(typed)
	default:
		return nil, fmt.Errorf("unsupported parquet physical type for block column: %v", cr.Type())
	}
}

func drainInt64(r *file.Int64ColumnChunkReader) ([]uint64, error) {
	var out []uint64
	buf := make([]int64, 4096)
	for {
		n, _, err := r.ReadBatch(int64(len(buf)), buf, nil, nil)
		if err != nil {
			return nil, err
		}
		for _, v := range buf[:n] {
			out = append(out, uint64(v))
		}
		if n == 0 {
			break
		}
	}
	return out, nil
}

func drainInt32(r *file.Int32ColumnChunkReader) ([]uint64, error) {
	var out []uint64
	buf := make([]int32, 4096)
	for {
		n, _, err := r.ReadBatch(int64(len(buf)), buf, nil, nil)
		if err != nil {
			return nil, err
		}
		for _, v := range buf[:n] {
			out = append(out, uint64(v))
		}
		if n == 0 {
			break
		}
	}
	return out, nil
}
