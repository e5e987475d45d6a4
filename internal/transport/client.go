// Package transport is the HTTP client for the message-auth service.
//
// A Client allows one outstanding request: issuing a call cancels the call
// still in flight on the same client. Supersession is decided when the body
// has been read: a call replaced before that point never delivers its
// response, one replaced after it still does.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/nextlevelbuilder/msgauth/internal/autherr"
	"github.com/nextlevelbuilder/msgauth/internal/environment"
	"github.com/nextlevelbuilder/msgauth/pkg/protocol"
)

// DefaultTimeout bounds a single HTTP call.
const DefaultTimeout = 30 * time.Second

// maxBodyBytes caps how much of a response body is read (1MB).
const maxBodyBytes = 1 << 20

const tracerName = "github.com/nextlevelbuilder/msgauth/internal/transport"

// ErrSuperseded is the cause attached to a call that was cancelled because a
// newer call was issued on the same client.
var ErrSuperseded = errors.New("request superseded by a newer request")

// Config configures a Client.
type Config struct {
	BaseURL   string
	AuthKey   string
	SecretKey string
	Env       environment.Context

	Timeout              time.Duration // per call, default 30s
	MaxRequestsPerSecond float64       // 0 disables client-side rate limiting
	HTTPClient           *http.Client  // optional; Timeout is applied when its own is zero
}

// Client talks to the three auth endpoints.
type Client struct {
	baseURL   *url.URL
	authKey   string
	secretKey string
	env       environment.Context
	http      *http.Client
	limiter   *rate.Limiter
	tracer    trace.Tracer

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	base := cfg.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base URL must be http or https, got %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	} else if hc.Timeout == 0 {
		copied := *hc
		copied.Timeout = timeout
		hc = &copied
	}

	c := &Client{
		baseURL:   u,
		authKey:   cfg.AuthKey,
		secretKey: cfg.SecretKey,
		env:       cfg.Env,
		http:      hc,
		tracer:    otel.Tracer(tracerName),
	}
	if cfg.MaxRequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.MaxRequestsPerSecond), 1)
	}
	return c, nil
}

// InitAuth starts a new auth request.
func (c *Client) InitAuth(ctx context.Context) (*protocol.InitAuthResponse, error) {
	var out protocol.InitAuthResponse
	if err := c.do(ctx, initAuthRoute(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckAuth fetches the status of a previously initiated request.
func (c *Client) CheckAuth(ctx context.Context, requestID string) (*protocol.CheckAuthResponse, error) {
	if requestID == "" {
		return nil, autherr.New(autherr.KindInvalidRequestID)
	}
	var out protocol.CheckAuthResponse
	if err := c.do(ctx, checkAuthRoute(requestID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidateSession asks the service about a session token. The wire call
// succeeding says nothing about validity; inspect Valid on the result.
func (c *Client) ValidateSession(ctx context.Context, token string) (*protocol.TokenValidationResponse, error) {
	if token == "" {
		return nil, autherr.New(autherr.KindInvalidAuthToken)
	}
	var out protocol.TokenValidationResponse
	if err := c.do(ctx, validateSessionRoute(token), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Cancel aborts the call in flight, if any.
func (c *Client) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.seq++
}

func (c *Client) do(ctx context.Context, r route, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "msgauth.transport/"+r.name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("msgauth.route", r.name),
			attribute.String("http.request.method", r.method),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, autherr.KindOf(err).String())
		}
		span.End()
	}()

	callCtx, seq, cancel := c.begin(ctx)
	defer cancel()
	defer c.end(seq)

	if c.limiter != nil {
		if werr := c.limiter.Wait(callCtx); werr != nil {
			return c.failure(seq, werr)
		}
	}

	req, err := r.request(callCtx, c.baseURL, c.authKey, c.secretKey, c.env)
	if err != nil {
		return autherr.Wrap(autherr.KindUnableToHandleResponse, err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		slog.Debug("transport request failed", "route", r.name, "error", err)
		return c.failure(seq, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return c.failure(seq, fmt.Errorf("read body: %w", err))
	}
	// Last check. A call superseded from here on has its body in hand and is
	// delivered; it was the latest call when the response was read.
	if c.stale(seq) {
		return autherr.Wrap(autherr.KindUnableToHandleResponse, ErrSuperseded)
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	slog.Debug("transport response",
		"route", r.name,
		"status", resp.StatusCode,
		"elapsed", time.Since(start).Truncate(time.Millisecond),
	)

	return interpret(resp.StatusCode, body, out)
}

// begin registers a new call, cancelling the previous one.
func (c *Client) begin(ctx context.Context) (context.Context, uint64, context.CancelFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	callCtx, cancel := context.WithCancel(ctx)
	c.seq++
	c.cancel = cancel
	return callCtx, c.seq, cancel
}

func (c *Client) end(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seq == seq {
		c.cancel = nil
	}
}

func (c *Client) stale(seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq != seq
}

// failure classifies a network-level error, reporting supersession instead
// of the raw cancellation when a newer call caused it.
func (c *Client) failure(seq uint64, err error) error {
	if c.stale(seq) {
		return autherr.Wrap(autherr.KindUnableToHandleResponse, ErrSuperseded)
	}
	return autherr.Wrap(autherr.KindUnableToHandleResponse, err)
}

// interpret maps a completed HTTP exchange onto out or the error taxonomy.
func interpret(status int, body []byte, out any) error {
	switch status {
	case http.StatusOK:
		if len(body) == 0 {
			return autherr.Wrap(autherr.KindUnableToHandleResponse, errors.New("empty response body"))
		}
		if err := json.Unmarshal(body, out); err != nil {
			return autherr.Wrap(autherr.KindUnableToHandleResponse, fmt.Errorf("decode response: %w", err))
		}
		return nil
	case http.StatusBadRequest:
		var env protocol.ErrorEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			return autherr.Wrap(autherr.KindBadRequest, fmt.Errorf("decode error envelope: %w", err))
		}
		return autherr.New(autherr.FromServiceCode(env.Code))
	}
	if kind, ok := autherr.FromStatus(status); ok {
		return autherr.New(kind)
	}
	return autherr.Wrap(autherr.KindUnableToHandleResponse, fmt.Errorf("unexpected HTTP status %d", status))
}
