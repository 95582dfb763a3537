// Package api – HTTP client core.
//
// This file implements the authenticated JSON transport shared by every
// endpoint wrapper in this package. It owns bearer-credential injection,
// request correlation IDs, outbound rate limiting, Prometheus instrumentation,
// and the mapping from HTTP outcomes onto the package error taxonomy.
//
// The client is deliberately stateless about users and conversations; all the
// consistency logic (optimistic inserts, reconciliation, sagas) lives in the
// service layer on top of it.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	headerRequestID      = "X-Request-ID"
	headerIdempotencyKey = "Idempotency-Key"

	// maxErrorBodyBytes caps how much of an error response body is read when
	// extracting the backend's message.
	maxErrorBodyBytes = 64 << 10
)

// CredentialSource supplies and invalidates the bearer credential. The
// SQLite-backed store in internal/store implements it.
type CredentialSource interface {
	// Token returns the cached bearer credential, or "" when none is stored.
	Token(ctx context.Context) (string, error)

	// Clear removes the cached credential (called after a 401).
	Clear(ctx context.Context) error
}

// Client is the remote collaborator boundary. All methods re-fetch; nothing
// is cached here.
type Client struct {
	base    string
	http    *http.Client
	creds   CredentialSource
	limiter *rate.Limiter
}

// Options tunes the client. Zero values fall back to sane defaults.
type Options struct {
	// Timeout bounds each request end to end. Defaults to 15s.
	Timeout time.Duration
	// RPS and Burst configure the outbound politeness limiter; RPS <= 0
	// disables limiting.
	RPS   float64
	Burst int
	// HTTPClient overrides the underlying client (tests).
	HTTPClient *http.Client
}

// New constructs a Client for the given base URL and credential source.
func New(baseURL string, creds CredentialSource, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	var lim *rate.Limiter
	if opts.RPS > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}
	return &Client{
		base:    strings.TrimRight(baseURL, "/"),
		http:    hc,
		creds:   creds,
		limiter: lim,
	}
}

// remoteEnvelope is the loose failure shape the backend uses across
// endpoints. Success payloads are decoded per endpoint.
type remoteEnvelope struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// do executes one authenticated JSON request and decodes the response into
// out (which may be nil for empty bodies).
//
// op is a bounded-cardinality label for metrics and log lines; idemKey, when
// non-empty, is sent as the Idempotency-Key header so server-side retries of
// unsafe operations stay deduplicated.
func (c *Client) do(ctx context.Context, op, method, path, idemKey string, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	token, err := c.creds.Token(ctx)
	if err != nil {
		return fmt.Errorf("%s: read credential: %w", op, err)
	}
	if token == "" {
		return fmt.Errorf("%s: %w", op, ErrNoCredential)
	}

	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		rdr = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rdr)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(headerRequestID, uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idemKey != "" {
		req.Header.Set(headerIdempotencyKey, idemKey)
	}

	start := time.Now()
	requestsInflight.Inc()
	resp, err := c.http.Do(req)
	requestsInflight.Dec()
	if err != nil {
		requestsTotal.WithLabelValues(method, op, "transport_error").Inc()
		return fmt.Errorf("%s %s: %w: %w", method, op, ErrNetwork, err)
	}
	defer resp.Body.Close()

	requestDuration.WithLabelValues(method, op).Observe(time.Since(start).Seconds())
	requestsTotal.WithLabelValues(method, op, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode == http.StatusUnauthorized {
		// Expired or rejected credential: drop it so the next screen sends
		// the user back through login instead of hammering the backend.
		if cerr := c.creds.Clear(ctx); cerr != nil {
			log.Warn().Err(cerr).Str("op", op).Msg("clear credential after 401")
		}
		return fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		if err != nil {
			return fmt.Errorf("%s %s: %w: %w", method, op, ErrNetwork, err)
		}
		return remoteErrorFrom(resp.StatusCode, raw)
	}

	// Success payloads are read whole; a conversation history or appointment
	// list is only useful complete.
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %w", method, op, ErrNetwork, err)
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%s: decode response: %w", op, err)
		}
	}
	return nil
}

// remoteErrorFrom builds a RemoteError out of a non-2xx response, keeping the
// backend's message verbatim when one can be extracted.
func remoteErrorFrom(status int, raw []byte) error {
	var env remoteEnvelope
	_ = json.Unmarshal(raw, &env)
	msg := env.Message
	if msg == "" {
		msg = env.Error
	}
	return &RemoteError{Status: status, Code: env.Code, Message: msg}
}
