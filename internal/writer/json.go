package writer

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"os"

	"github.com/ethcryo/cryo/internal/query"
	"github.com/ethcryo/cryo/internal/schema"
)

// JSONFormat writes one JSON object per line, keyed by column name
// (spec.md §4.6).
type JSONFormat struct{}

func (JSONFormat) Extension() string { return "json" }

func (JSONFormat) Write(path string, p *schema.Projected, _ query.OutputConfig) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for i := 0; i < p.NumRows; i++ {
		row := make(map[string]interface{}, len(p.Names))
		for _, name := range p.Names {
			row[name] = jsonCell(p.Columns[name][i])
		}
		if err := enc.Encode(row); err != nil {
			return err
		}
	}
	return w.Flush()
}

func jsonCell(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return "0x" + hex.EncodeToString(b)
	}
	return v
}
