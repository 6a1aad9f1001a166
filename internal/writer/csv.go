package writer

import (
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/ethcryo/cryo/internal/query"
	"github.com/ethcryo/cryo/internal/schema"
)

// CSVFormat writes a header row plus one row per record, via stdlib
// encoding/csv. Binary columns are always hex-encoded in CSV output
// regardless of the query's hex flag (spec.md §4.6: "hex-encoded binary
// columns if hex is set or always for CSV (implementer choice)") — CSV has
// no native byte-string type, so there is no non-hex representation to fall
// back to.
type CSVFormat struct{}

func (CSVFormat) Extension() string { return "csv" }

func (CSVFormat) Write(path string, p *schema.Projected, _ query.OutputConfig) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(p.Names); err != nil {
		return err
	}
	row := make([]string, len(p.Names))
	for i := 0; i < p.NumRows; i++ {
		for j, name := range p.Names {
			row[j] = csvCell(p.Columns[name][i])
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func csvCell(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []byte:
		return "0x" + hex.EncodeToString(t)
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
