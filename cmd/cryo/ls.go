package main

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/ethcryo/cryo/internal/cliutil"
	"github.com/ethcryo/cryo/internal/dataset"
)

// lsCmd lists every dataset the registry knows about (SPEC_FULL.md §4
// item 2), with no RPC URL or network access required. Group names such
// as state_diffs are not listed.
func lsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List available datasets",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := dataset.NewRegistry()
			all := reg.All()
			sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
			cliutil.PrintDatasets(all)
			return nil
		},
	}
}
