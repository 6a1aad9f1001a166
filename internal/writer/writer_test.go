package writer

import (
	"bufio"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethcryo/cryo/internal/chunk"
	"github.com/ethcryo/cryo/internal/query"
	"github.com/ethcryo/cryo/internal/schema"
)

func sampleProjected() *schema.Projected {
	return &schema.Projected{
		Names: []string{"block_number", "miner"},
		Columns: map[string][]interface{}{
			"block_number": {uint64(1), uint64(2)},
			"miner":        {[]byte{0xde, 0xad}, []byte(nil)},
		},
		NumRows: 2,
	}
}

func TestCommitWritesCSVAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")

	outcome, err := Commit(CSVFormat{}, path, sampleProjected(), query.OutputConfig{})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if outcome.RowCount != 2 {
		t.Fatalf("expected 2 rows, got %d", outcome.RowCount)
	}
	if !Exists(path) {
		t.Fatal("expected committed file to exist")
	}
	if Exists(path + ".tmp") {
		t.Fatal("expected temp file to be removed after rename")
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 3 { // header + 2 rows
		t.Fatalf("expected 3 csv lines, got %d", len(rows))
	}
	if rows[1][1] != "0xdead" {
		t.Fatalf("expected hex-encoded miner column, got %q", rows[1][1])
	}
}

func TestCommitWritesJSONLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")

	if _, err := Commit(JSONFormat{}, path, sampleProjected(), query.OutputConfig{}); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	lines := 0
	for scanner.Scan() {
		lines++
	}
	if lines != 2 {
		t.Fatalf("expected 2 json lines, got %d", lines)
	}
}

func TestTargetPathIncludesSuffixAndSubdir(t *testing.T) {
	out := query.OutputConfig{Dir: "/tmp/out", Subdir: "blocks", Suffix: "v2"}
	c := chunk.Chunk{MinBlock: 100, MaxBlock: 199}
	path := TargetPath(out, "mainnet", "blocks", c, 8, "parquet")
	want := filepath.Join("/tmp/out", "blocks", "mainnet__blocks__"+c.ID(8)+"_v2.parquet")
	if path != want {
		t.Fatalf("got %q, want %q", path, want)
	}
}

func TestExistsAndForFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "present.csv")
	if Exists(path) {
		t.Fatal("expected Exists to be false before creation")
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !Exists(path) {
		t.Fatal("expected Exists to be true after creation")
	}

	if f, err := ForFormat(""); err != nil {
		t.Fatalf("ForFormat(\"\"): %v", err)
	} else if _, ok := f.(ParquetFormat); !ok {
		t.Fatalf("expected default format to be parquet, got %T", f)
	}
	if _, err := ForFormat("bogus"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
