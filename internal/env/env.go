// Package env loads a .env file into the process environment, so
// ETH_RPC_URL and CRYO_ROOT (spec.md §6) can be kept out of shell profiles
// during local development. Adapted from the teacher's internal/env.Load.
package env

import (
	"os"
	"strings"
)

// Load reads environment variables from a .env file in the current working
// directory and sets them using os.Setenv, before internal/config reads
// ETH_RPC_URL or expands ${VAR} references. Nothing in cryo reads CRYO_ROOT.
//
// File format:
//   - Each line contains KEY=VALUE
//   - Empty lines are ignored
//   - Lines starting with # are treated as comments
//   - Values can be quoted with single or double quotes (quotes are stripped)
//
// If .env doesn't exist, Load silently returns; the engine falls back to
// whatever is already in the process environment.
func Load() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)
		os.Setenv(key, value)
	}
}
