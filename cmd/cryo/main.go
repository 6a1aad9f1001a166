// Command cryo is the CLI entry point for the acquisition engine (spec.md
// §1's external parser/CLI collaborator). It assembles a query.Query from
// flags and a config file and hands it to internal/coordinator. Structured
// the way the teacher's cmd/monitor wires cobra subcommands (call.go,
// status.go, etc.) under one root command, generalized from "one binary
// per provider-monitoring tool" to "one binary, subcommands for collect
// and ls".
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ethcryo/cryo/internal/env"
)

func main() {
	env.Load()

	root := &cobra.Command{
		Use:   "cryo",
		Short: "Extract EVM blockchain data into columnar files",
	}
	root.PersistentFlags().String("config", "", "YAML config file path (optional; flags override it, ETH_RPC_URL fills an unset rpc_url)")
	root.PersistentFlags().String("rpc-url", "", "JSON-RPC endpoint (defaults to $ETH_RPC_URL)")
	root.PersistentFlags().Bool("verbose", false, "debug-level logging")
	root.PersistentFlags().Bool("json-logs", false, "JSON log encoding instead of console")

	root.AddCommand(collectCmd())
	root.AddCommand(lsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
