// Package rpcclient is the acquisition engine's only point of contact with
// the node: a JSON-RPC transport that enforces the global admission
// controls from spec.md §5 (a weighted semaphore and an optional token
// bucket) and retries transient failures with full-jitter exponential
// backoff before surfacing a classified error.
//
// The semaphore and rate limiter are constructed once per Query and owned
// by this Client for its whole lifetime (spec.md §9, "treat it as a
// constructed, owned object with a clear lifetime, not a singleton") —
// every fetch task across every chunk shares the same *Client and therefore
// the same admission controls.
package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/ethcryo/cryo/internal/cryoerr"
)

// Config configures one Client. It is read once at construction; nothing
// here is mutated afterwards.
type Config struct {
	URL                   string
	Timeout               time.Duration
	MaxConcurrentRequests int64         // spec.md §5.3, global RPC in flight
	RequestsPerSecond     float64       // 0 disables the token bucket
	MaxRetries            int           // spec.md §4.4
	InitialBackoff        time.Duration // spec.md §4.4
	MaxBackoff            time.Duration
}

func (c Config) withDefaults() Config {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxConcurrentRequests == 0 {
		c.MaxConcurrentRequests = 4
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 5
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = 250 * time.Millisecond
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = 10 * time.Second
	}
	return c
}

// Client is a shared, thread-safe JSON-RPC client for one node endpoint.
type Client struct {
	url        string
	httpClient *http.Client
	sem        *semaphore.Weighted
	limiter    *rate.Limiter // nil when RequestsPerSecond is unset
	cfg        Config
	log        *zap.Logger
}

// New constructs a Client. The semaphore and (optional) rate limiter are
// allocated here and held for the Client's entire lifetime.
func New(cfg Config, log *zap.Logger) *Client {
	cfg = cfg.withDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{
		url:        cfg.URL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		sem:        semaphore.NewWeighted(cfg.MaxConcurrentRequests),
		cfg:        cfg,
		log:        log,
	}
	if cfg.RequestsPerSecond > 0 {
		// Burst of 1: acquisition of a token precedes acquisition of a
		// semaphore slot (spec.md §4.4), so a burst just lets one call
		// start immediately without waiting for the first refill tick.
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return c
}

// Call issues one JSON-RPC method call, retrying retryable failures with
// full-jitter exponential backoff up to MaxRetries times. Admission control
// (rate limiter, then semaphore) is re-acquired on every attempt; backoff
// sleeps hold neither (spec.md §4.4, §5).
func (c *Client) Call(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	if params == nil {
		params = []interface{}{}
	}
	body, err := json.Marshal(Request{JSONRPC: "2.0", Method: method, Params: params, ID: 1})
	if err != nil {
		return nil, cryoerr.New(cryoerr.KindRpcFatal, "", 0, 0, fmt.Errorf("marshal request: %w", err))
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialBackoff
	bo.MaxInterval = c.cfg.MaxBackoff
	bo.Multiplier = 2
	bo.RandomizationFactor = 1 // widest jitter cenkalti/backoff supports: actual sleep in [0, 2x computed interval)
	bo.MaxElapsedTime = 0      // bounded by MaxRetries below, not wall-clock

	retryable := backoff.WithMaxRetries(bo, uint64(c.cfg.MaxRetries))
	withCtx := backoff.WithContext(retryable, ctx)

	var result json.RawMessage
	attempt := 0
	opErr := backoff.Retry(func() error {
		attempt++
		res, err := c.attempt(ctx, method, body)
		if err != nil {
			return err
		}
		result = res
		return nil
	}, withCtx)

	if opErr == nil {
		return result, nil
	}
	if ctx.Err() != nil {
		return nil, cryoerr.New(cryoerr.KindCancelled, "", 0, 0, ctx.Err())
	}
	var perm *backoff.PermanentError
	if asPermanent(opErr, &perm) {
		return nil, perm.Err
	}
	// backoff.Retry returns a Permanent error's inner error, so a fatal
	// failure from attempt arrives here already classified.
	if cryoerr.KindOf(opErr) != cryoerr.KindUnknown {
		return nil, opErr
	}
	// Retries exhausted on a retryable error.
	return nil, cryoerr.New(cryoerr.KindRpcExhausted, "", 0, 0,
		fmt.Errorf("%s: exhausted retries after %d attempts: %w", method, attempt, opErr))
}

func asPermanent(err error, out **backoff.PermanentError) bool {
	pe, ok := err.(*backoff.PermanentError)
	if ok {
		*out = pe
	}
	return ok
}

// attempt performs exactly one HTTP round trip, having already acquired the
// rate limiter and semaphore. A retryable failure is returned as a plain
// error so backoff.Retry loops; a fatal one is wrapped in
// backoff.Permanent so it stops immediately.
func (c *Client) attempt(ctx context.Context, method string, body []byte) (json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(cryoerr.New(cryoerr.KindCancelled, "", 0, 0, err))
		}
	}
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, backoff.Permanent(cryoerr.New(cryoerr.KindCancelled, "", 0, 0, err))
	}
	defer c.sem.Release(1)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(cryoerr.New(cryoerr.KindRpcFatal, "", 0, 0, err))
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(cryoerr.New(cryoerr.KindCancelled, "", 0, 0, ctx.Err()))
		}
		// Transport-level failure: connection refused, DNS, timeout. Retryable.
		c.log.Debug("rpc transport error, retrying", zap.String("method", method), zap.Error(err))
		return nil, fmt.Errorf("transport: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if httpResp.StatusCode >= 500 || httpResp.StatusCode == 429 {
		// Server error or rate-limited: retryable.
		return nil, fmt.Errorf("http %d from node", httpResp.StatusCode)
	}
	if httpResp.StatusCode >= 400 {
		return nil, backoff.Permanent(cryoerr.New(cryoerr.KindRpcFatal, "", 0, 0,
			fmt.Errorf("http %d: %s", httpResp.StatusCode, truncate(respBody, 200))))
	}

	var rpcResp Response
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		// Malformed body is fatal, not retryable (spec.md §4.4).
		return nil, backoff.Permanent(cryoerr.New(cryoerr.KindRpcFatal, "", 0, 0,
			fmt.Errorf("malformed json-rpc body: %w", err)))
	}
	if rpcResp.Error != nil {
		if fatalCode(rpcResp.Error.Code) {
			return nil, backoff.Permanent(cryoerr.New(cryoerr.KindRpcFatal, "", 0, 0, rpcResp.Error))
		}
		return nil, fmt.Errorf("rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	return rpcResp.Result, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
