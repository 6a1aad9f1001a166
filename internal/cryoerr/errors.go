// Package cryoerr defines the error taxonomy the acquisition engine reports
// through: each error raised by the engine carries a Kind so the coordinator
// and report layer can decide whether to abort the run or record a per-chunk
// failure and continue.
package cryoerr

import "errors"

// Kind classifies an error for propagation-policy decisions.
type Kind int

const (
	// KindUnknown is the zero value; treated like KindRpcFatal by callers
	// that switch on Kind, since an unclassified error should not be retried.
	KindUnknown Kind = iota
	// KindInvalidQuery marks malformed block specs, unknown datasets, or
	// conflicting flags. Fatal at construction; the coordinator never starts.
	KindInvalidQuery
	// KindNetworkUnavailable marks a failed initial connectivity check
	// (eth_chainId). Fatal: no chunk work is attempted.
	KindNetworkUnavailable
	// KindRpcExhausted marks an RPC call that ran out of retries. Surfaces
	// as a chunk failure; sibling chunks continue.
	KindRpcExhausted
	// KindRpcFatal marks a non-retryable RPC error (bad request, method
	// missing, auth failure). Surfaces as a chunk failure.
	KindRpcFatal
	// KindDecode marks a response that didn't match the expected schema.
	KindDecode
	// KindIO marks a writer/filesystem failure for one chunk.
	KindIO
	// KindCancelled marks cooperative cancellation observed at a
	// suspension point.
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindInvalidQuery:
		return "InvalidQuery"
	case KindNetworkUnavailable:
		return "NetworkUnavailable"
	case KindRpcExhausted:
		return "RpcExhausted"
	case KindRpcFatal:
		return "RpcFatal"
	case KindDecode:
		return "DecodeError"
	case KindIO:
		return "IoError"
	case KindCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Error wraps an underlying cause with a Kind, a dataset name and a block
// range, so a failed chunk can be reported with enough context to act on
// without re-running the query.
type Error struct {
	Kind    Kind
	Dataset string
	MinBlk  uint64
	MaxBlk  uint64
	Cause   error
}

func (e *Error) Error() string {
	if e.Dataset == "" {
		return e.Kind.String() + ": " + e.Cause.Error()
	}
	return e.Kind.String() + " [" + e.Dataset + "]: " + e.Cause.Error()
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a classified Error.
func New(kind Kind, dataset string, minBlk, maxBlk uint64, cause error) *Error {
	return &Error{Kind: kind, Dataset: dataset, MinBlk: minBlk, MaxBlk: maxBlk, Cause: cause}
}

// KindOf extracts the Kind from err if it is (or wraps) a *Error, and
// KindUnknown otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Fatal reports whether err should abort the whole run rather than just the
// chunk that raised it, per spec.md §7's propagation policy.
func Fatal(err error) bool {
	switch KindOf(err) {
	case KindInvalidQuery, KindNetworkUnavailable:
		return true
	default:
		return false
	}
}
