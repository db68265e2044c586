// Package gateway is the single path every backend call takes. It decorates
// requests with the session's bearer token, normalizes the backend's
// response envelopes, and turns failures into one user-facing message.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"evera/internal/notify"
	"evera/internal/platform/logger"
	"evera/internal/platform/metrics"
	"evera/internal/session/models"
	"evera/pkg/requestcontext"
)

const (
	DefaultTimeout  = 50 * time.Second
	ContentType     = "application/json;charset=utf-8"
	RequestIDHeader = "X-Request-ID"

	maxBodyBytes = 4 << 20
)

// Session is the slice of the session store the gateway needs: it reads the
// credential on every call and clears the session on a 401.
type Session interface {
	Credential() models.Credential
	Clear()
}

// Client issues backend requests. It is safe for concurrent use.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	timeout       time.Duration
	successStatus any
	session       Session
	notifier      notify.Notifier
	logger        *slog.Logger
	metrics       *metrics.Metrics
	tracer        trace.Tracer
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the default per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithSuccessStatus sets the discriminator value that marks success, as raw
// JSON (`0`, `"success"`, `true`).
func WithSuccessStatus(raw string) Option {
	return func(c *Client) {
		c.successStatus = parseSuccessValue(raw)
	}
}

func WithNotifier(n notify.Notifier) Option {
	return func(c *Client) {
		c.notifier = n
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		c.tracer = t
	}
}

// New builds a gateway against baseURL. session must not be nil.
func New(baseURL string, session Session, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if session == nil {
		return nil, errors.New("session is required")
	}

	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		httpClient:    &http.Client{},
		timeout:       DefaultTimeout,
		successStatus: float64(0),
		session:       session,
		notifier:      notify.Discard,
		logger:        logger.Discard(),
		tracer:        otel.Tracer("evera/gateway"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// RequestOption adjusts one call.
type RequestOption func(*requestOptions)

type requestOptions struct {
	headers http.Header
	query   url.Values
	timeout time.Duration
}

// WithHeader sets a header on this call only.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) {
		o.headers.Set(key, value)
	}
}

// WithQuery adds a query parameter.
func WithQuery(key, value string) RequestOption {
	return func(o *requestOptions) {
		o.query.Add(key, value)
	}
}

// WithRequestTimeout overrides the client timeout for this call.
func WithRequestTimeout(d time.Duration) RequestOption {
	return func(o *requestOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodGet, path, nil, opts...)
}

func (c *Client) Post(ctx context.Context, path string, body any, opts ...RequestOption) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodPost, path, body, opts...)
}

func (c *Client) Put(ctx context.Context, path string, body any, opts ...RequestOption) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodPut, path, body, opts...)
}

func (c *Client) Delete(ctx context.Context, path string, body any, opts ...RequestOption) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodDelete, path, body, opts...)
}

// Do sends one request and resolves it to the unwrapped success payload or a
// *Error. Every *Error has already been shown through the notifier, and a 401
// has already cleared the session, by the time Do returns.
func (c *Client) Do(ctx context.Context, method, path string, body any, opts ...RequestOption) (json.RawMessage, error) {
	ro := requestOptions{
		headers: http.Header{},
		query:   url.Values{},
		timeout: c.timeout,
	}
	for _, opt := range opts {
		opt(&ro)
	}

	ctx, cancel := context.WithTimeout(ctx, ro.timeout)
	defer cancel()

	ctx, span := c.tracer.Start(ctx, "gateway "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
	defer span.End()

	start := time.Now()

	req, err := c.newRequest(ctx, method, path, body, ro)
	if err != nil {
		return nil, c.reject(ctx, span, method, path, start, &Error{Kind: KindTransport, Message: MsgGeneric, Err: err})
	}

	c.logger.DebugContext(ctx, "api request",
		"method", method,
		"path", path,
		"request_id", req.Header.Get(RequestIDHeader),
		"authenticated", req.Header.Get("Authorization") != "",
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.reject(ctx, span, method, path, start, &Error{Kind: KindTransport, Message: MsgGeneric, Err: err})
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, c.reject(ctx, span, method, path, start, &Error{
			Kind: KindTransport, Status: resp.StatusCode, Message: MsgGeneric, Err: err,
		})
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		kind := KindBusiness
		if resp.StatusCode == http.StatusUnauthorized {
			kind = KindUnauthorized
		}
		transportMsg := fmt.Sprintf("Request failed with status code %d", resp.StatusCode)
		return nil, c.reject(ctx, span, method, path, start, &Error{
			Kind:    kind,
			Status:  resp.StatusCode,
			Message: TranslateError(resp.StatusCode, raw, transportMsg),
			Err:     fmt.Errorf("%s %s: %s", method, path, resp.Status),
		})
	}

	payload, rejection := normalize(raw, c.successStatus, resp.StatusCode)
	if rejection != nil {
		return nil, c.reject(ctx, span, method, path, start, rejection)
	}

	elapsed := time.Since(start)
	c.metrics.ObserveRequest(method, metrics.OutcomeSuccess, elapsed)
	c.logger.DebugContext(ctx, "api response",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", elapsed.Milliseconds(),
	)
	return payload, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any, ro requestOptions) (*http.Request, error) {
	target, err := url.Parse(c.baseURL + "/" + strings.TrimLeft(path, "/"))
	if err != nil {
		return nil, fmt.Errorf("build url: %w", err)
	}
	if len(ro.query) > 0 {
		q := target.Query()
		for k, vs := range ro.query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		target.RawQuery = q.Encode()
	}

	reader, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", ContentType)
	req.Header.Set("Accept", "application/json")
	requestID := requestcontext.RequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set(RequestIDHeader, requestID)

	// Read on every call so a just-set or just-cleared token is honoured.
	if cred := c.session.Credential(); cred.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	}

	for k, vs := range ro.headers {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return req, nil
}

func encodeBody(body any) (io.Reader, error) {
	switch b := body.(type) {
	case nil:
		return http.NoBody, nil
	case json.RawMessage:
		return bytes.NewReader(b), nil
	case []byte:
		return bytes.NewReader(b), nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		return bytes.NewReader(data), nil
	}
}

// reject runs the side effects every rejection shares: notify first, then on
// a 401 clear the session, so the caller never sees the error while a stale
// token is still stored.
func (c *Client) reject(ctx context.Context, span trace.Span, method, path string, start time.Time, e *Error) *Error {
	span.SetStatus(codes.Error, string(e.Kind))
	if e.Err != nil {
		span.RecordError(e.Err)
	}

	c.logger.WarnContext(ctx, "api request rejected",
		"method", method,
		"path", path,
		"kind", string(e.Kind),
		"status", e.Status,
		"error", e.Detail(),
	)

	c.notifier.Notify(ctx, notify.Error(e.Message))

	outcome := metrics.OutcomeRejected
	switch {
	case e.Kind == KindTransport:
		outcome = metrics.OutcomeTransport
	case e.Status == http.StatusUnauthorized:
		outcome = metrics.OutcomeUnauthorized
		c.session.Clear()
		c.metrics.IncrementSessionInvalidations(metrics.ReasonUnauthorized)
		c.logger.InfoContext(ctx, "session cleared after authentication failure", "path", path)
	}
	c.metrics.ObserveRequest(method, outcome, time.Since(start))
	return e
}

// Decode unmarshals a normalized payload. A payload of the wrong shape is a
// response error, not a rejection, and is not shown to the user.
func Decode[T any](payload json.RawMessage) (T, error) {
	var out T
	if len(payload) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return out, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}
