package dataset

import "fmt"

// Registry is the immutable, built-once table from spec.md §4.3: "A table
// mapping dataset identifier -> (schema, required RPC methods, per-block/
// per-chunk fetch strategy, decoder)."
type Registry struct {
	byName  map[string]*Dataset
	byAlias map[string]*Dataset
	groups  map[string][]string // group name -> constituent dataset names, declared order
}

// NewRegistry builds the static registry. Called once at engine
// construction (spec.md §3, Dataset lifecycle: "static; built once").
func NewRegistry() *Registry {
	r := &Registry{
		byName:  make(map[string]*Dataset),
		byAlias: make(map[string]*Dataset),
		groups:  make(map[string][]string),
	}
	for _, ds := range allDatasets() {
		ds := ds
		r.byName[ds.Name] = ds
		for _, a := range ds.Aliases {
			r.byAlias[a] = ds
		}
	}
	r.groups["state_diffs"] = []string{"balance_diffs", "code_diffs", "nonce_diffs", "storage_diffs"}
	return r
}

// Lookup resolves a single name or alias to its Dataset, not expanding
// groups. Use Expand for a user-facing dataset-list argument.
func (r *Registry) Lookup(name string) (*Dataset, bool) {
	if ds, ok := r.byName[name]; ok {
		return ds, true
	}
	ds, ok := r.byAlias[name]
	return ds, ok
}

// Expand resolves a list of dataset names and group names into a flat,
// deduplicated dataset list, preserving first occurrence (spec.md §4.3:
// "group names expand deterministically into their constituents with
// duplicates removed preserving first occurrence").
func (r *Registry) Expand(names []string) ([]*Dataset, error) {
	var out []*Dataset
	seen := make(map[string]bool)

	add := func(ds *Dataset) {
		if !seen[ds.Name] {
			seen[ds.Name] = true
			out = append(out, ds)
		}
	}

	for _, n := range names {
		if members, ok := r.groups[n]; ok {
			for _, m := range members {
				ds, ok := r.Lookup(m)
				if !ok {
					return nil, fmt.Errorf("dataset registry: group %q references unknown dataset %q", n, m)
				}
				add(ds)
			}
			continue
		}
		ds, ok := r.Lookup(n)
		if !ok {
			return nil, fmt.Errorf("unknown dataset or group: %q", n)
		}
		add(ds)
	}
	return out, nil
}

// All returns every registered dataset, for `cryo ls` (SPEC_FULL.md §4
// item 2).
func (r *Registry) All() []*Dataset {
	out := make([]*Dataset, 0, len(r.byName))
	for _, ds := range r.byName {
		out = append(out, ds)
	}
	return out
}

func allDatasets() []*Dataset {
	return []*Dataset{
		blocksDataset(),
		transactionsDataset(),
		logsDataset(),
		receiptsDataset(),
		tracesDataset(),
		balancesDataset(),
		codesDataset(),
		noncesDataset(),
		storagesDataset(),
		balanceDiffsDataset(),
		codeDiffsDataset(),
		nonceDiffsDataset(),
		storageDiffsDataset(),
		nativeTransfersDataset(),
		contractsDataset(),
	}
}
