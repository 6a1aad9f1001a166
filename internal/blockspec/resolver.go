// Package blockspec resolves the textual block specifications a query
// carries (spec.md §4.1) into concrete, ordered block number lists.
//
// Grammar, one token per comma-separated spec element:
//
//	N        single block
//	latest   the single block at tip - reorg_buffer
//	N:M      half-open range [N, M)
//	N:       open range [N, tip]
//	:M       open range [0, M)
//	-K:M     half-open range [M-K, M)
//	N:+K     half-open range [N, N+K)
//	N:M:S    range [N, M) stepped by S
//	N:M/K    K samples evenly spaced across [N, M)
//
// Numbers accept `_` and `.` as digit-group separators and a trailing
// K/M/B magnitude suffix (16_000_000, 16.000.000, 16M are all 16000000).
package blockspec

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrInvalidSpec is wrapped by every parse failure.
var ErrInvalidSpec = fmt.Errorf("invalid block spec")

// ErrBounds is wrapped when a resolved range ends before it starts, or when
// its upper bound exceeds tip - reorg_buffer.
var ErrBounds = fmt.Errorf("block spec bounds error")

// TipFetcher retrieves the chain's current head block number, normally via
// eth_chainId/eth_blockNumber on the RPC client.
type TipFetcher func(ctx context.Context) (uint64, error)

// Resolver turns textual specs into block number lists. It caches the tip
// per network for the Resolver's lifetime (SPEC_FULL.md §4 item 5 / spec.md
// §9 open question (c)). Every token is bounds-checked against the tip, so
// resolving any spec, in a dry run or not, fetches the tip once.
type Resolver struct {
	fetchTip    TipFetcher
	reorgBuffer uint64
	tipCache    *lru.Cache[string, uint64]
}

// New constructs a Resolver. network is the cache key ("" is a valid key for
// a single-network run).
func New(fetchTip TipFetcher, reorgBuffer uint64) (*Resolver, error) {
	cache, err := lru.New[string, uint64](8)
	if err != nil {
		return nil, err
	}
	return &Resolver{fetchTip: fetchTip, reorgBuffer: reorgBuffer, tipCache: cache}, nil
}

// Tip returns tip - reorg_buffer for the given network, fetching and
// caching the raw tip on first use.
func (r *Resolver) Tip(ctx context.Context, network string) (uint64, error) {
	if tip, ok := r.tipCache.Get(network); ok {
		return saturatingSub(tip, r.reorgBuffer), nil
	}
	tip, err := r.fetchTip(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch chain tip: %w", err)
	}
	r.tipCache.Add(network, tip)
	return saturatingSub(tip, r.reorgBuffer), nil
}

func saturatingSub(a, b uint64) uint64 {
	if b >= a {
		return 0
	}
	return a - b
}

// Resolve parses every comma-separated token across specs (each element of
// specs may itself contain commas) against the given network's tip, and
// returns the concatenation of each token's block list in order. Duplicates
// are forbidden within one token but preserved across tokens, per spec.md §3.
func (r *Resolver) Resolve(ctx context.Context, network string, specs []string) ([]uint64, error) {
	var all []uint64
	for _, spec := range specs {
		for _, tok := range strings.Split(spec, ",") {
			tok = strings.TrimSpace(tok)
			if tok == "" {
				continue
			}
			nums, err := r.resolveToken(ctx, network, tok)
			if err != nil {
				return nil, err
			}
			all = append(all, nums...)
		}
	}
	return all, nil
}

func (r *Resolver) resolveToken(ctx context.Context, network, tok string) ([]uint64, error) {
	upperLimit, err := r.Tip(ctx, network)
	if err != nil {
		return nil, err
	}

	switch {
	case strings.Contains(tok, "/"):
		return r.resolveSampled(tok, upperLimit)
	case strings.Contains(tok, ":"):
		return r.resolveRangeToken(tok, upperLimit)
	case tok == "latest":
		return []uint64{upperLimit}, nil
	default:
		n, err := parseNumber(tok)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidSpec, tok, err)
		}
		if n > upperLimit {
			return nil, fmt.Errorf("%w: block %d exceeds tip-reorg_buffer %d", ErrBounds, n, upperLimit)
		}
		return []uint64{n}, nil
	}
}

func (r *Resolver) resolveSampled(tok string, upperLimit uint64) ([]uint64, error) {
	parts := strings.SplitN(tok, "/", 2)
	lo, hi, err := parseRangeBounds(parts[0], upperLimit)
	if err != nil {
		return nil, err
	}
	k, err := strconv.Atoi(parts[1])
	if err != nil || k <= 0 {
		return nil, fmt.Errorf("%w: invalid sample count in %q", ErrInvalidSpec, tok)
	}
	if hi <= lo {
		return nil, fmt.Errorf("%w: %q resolves to empty range", ErrBounds, tok)
	}
	if err := checkUpper(hi, upperLimit); err != nil {
		return nil, err
	}
	span := hi - lo
	out := make([]uint64, 0, k)
	for i := 0; i < k; i++ {
		// Evenly spaced samples across [lo, hi), nearest-rank style so the
		// last sample never reaches hi (the range is half-open).
		offset := uint64(i) * span / uint64(k)
		out = append(out, lo+offset)
	}
	return dedupPreserveOrder(out), nil
}

func (r *Resolver) resolveRangeToken(tok string, upperLimit uint64) ([]uint64, error) {
	// N:M:S step form. Splitting on ':' first to distinguish from N:M/K
	// (samples), which is handled before this is called.
	fields := strings.Split(tok, ":")
	switch len(fields) {
	case 2:
		lo, hi, err := parseRangeBounds(tok, upperLimit)
		if err != nil {
			return nil, err
		}
		if hi <= lo {
			return nil, fmt.Errorf("%w: %q resolves to empty range", ErrBounds, tok)
		}
		if err := checkUpper(hi, upperLimit); err != nil {
			return nil, err
		}
		return rangeList(lo, hi, 1), nil
	case 3:
		lo, hi, err := parseRangeBounds(fields[0]+":"+fields[1], upperLimit)
		if err != nil {
			return nil, err
		}
		if hi <= lo {
			return nil, fmt.Errorf("%w: %q resolves to empty range", ErrBounds, tok)
		}
		step, err := parseNumber(fields[2])
		if err != nil || step == 0 {
			return nil, fmt.Errorf("%w: invalid step in %q", ErrInvalidSpec, tok)
		}
		if err := checkUpper(hi, upperLimit); err != nil {
			return nil, err
		}
		return rangeList(lo, hi, step), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidSpec, tok)
	}
}

// parseRangeBounds handles the N:M, N:, :M, -K:M and N:+K forms, returning a
// half-open [lo, hi) range. hi is not yet bounds-checked against upperLimit.
func parseRangeBounds(tok string, upperLimit uint64) (lo, hi uint64, err error) {
	idx := strings.Index(tok, ":")
	if idx < 0 {
		return 0, 0, fmt.Errorf("%w: %q is not a range", ErrInvalidSpec, tok)
	}
	left, right := tok[:idx], tok[idx+1:]

	switch {
	case left == "" && right == "":
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidSpec, tok)
	case left == "":
		// :M -> [0, M)
		m, err := parseNumber(right)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: %q: %v", ErrInvalidSpec, tok, err)
		}
		return 0, m, nil
	case right == "":
		// N: -> [N, tip]
		n, err := parseNumber(left)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: %q: %v", ErrInvalidSpec, tok, err)
		}
		return n, upperLimit + 1, nil
	case strings.HasPrefix(left, "-"):
		// -K:M -> [M-K, M)
		k, err := parseNumber(strings.TrimPrefix(left, "-"))
		if err != nil {
			return 0, 0, fmt.Errorf("%w: %q: %v", ErrInvalidSpec, tok, err)
		}
		m, err := parseNumber(right)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: %q: %v", ErrInvalidSpec, tok, err)
		}
		return saturatingSub(m, k), m, nil
	case strings.HasPrefix(right, "+"):
		// N:+K -> [N, N+K)
		n, err := parseNumber(left)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: %q: %v", ErrInvalidSpec, tok, err)
		}
		k, err := parseNumber(strings.TrimPrefix(right, "+"))
		if err != nil {
			return 0, 0, fmt.Errorf("%w: %q: %v", ErrInvalidSpec, tok, err)
		}
		return n, n + k, nil
	default:
		n, err := parseNumber(left)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: %q: %v", ErrInvalidSpec, tok, err)
		}
		m, err := parseNumber(right)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: %q: %v", ErrInvalidSpec, tok, err)
		}
		return n, m, nil
	}
}

func checkUpper(hi, upperLimit uint64) error {
	if hi == 0 {
		return nil
	}
	if hi-1 > upperLimit {
		return fmt.Errorf("%w: range end %d exceeds tip-reorg_buffer %d", ErrBounds, hi-1, upperLimit)
	}
	return nil
}

func rangeList(lo, hi, step uint64) []uint64 {
	if hi <= lo {
		return nil
	}
	out := make([]uint64, 0, (hi-lo)/step+1)
	for n := lo; n < hi; n += step {
		out = append(out, n)
	}
	return out
}

func dedupPreserveOrder(in []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(in))
	out := make([]uint64, 0, len(in))
	for _, n := range in {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// parseNumber parses a block number literal that may use `_` or `.` as
// digit-group separators and a trailing K/M/B magnitude suffix.
func parseNumber(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty number")
	}
	mult := uint64(1)
	last := s[len(s)-1]
	switch last {
	case 'k', 'K':
		mult, s = 1_000, s[:len(s)-1]
	case 'm', 'M':
		mult, s = 1_000_000, s[:len(s)-1]
	case 'b', 'B':
		mult, s = 1_000_000_000, s[:len(s)-1]
	}
	s = strings.NewReplacer("_", "", ".", "").Replace(s)
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return n * mult, nil
}
