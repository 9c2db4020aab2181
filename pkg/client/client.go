// Package client talks to the single-entry API gateway
// ({base}/api-gateway.php?api=<operation>). Every call is signed, carries the
// stored session token and resolves to a gateway envelope or an *APIError.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/tramontosereno/sereno/pkg/domain"
	"github.com/tramontosereno/sereno/pkg/signer"
)

// HeaderRequestID carries the per-call id that also tags log lines and
// APIError.RequestID.
const HeaderRequestID = "X-Request-Id"

const (
	gatewayPath      = "/api-gateway.php"
	defaultTimeout   = 30 * time.Second
	maxResponseBytes = 1 << 20 // 1 MB max body
)

// TokenSource yields the current session token, or "" when there is none.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource returning a fixed token.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// Client is the gateway client.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	signer     *signer.Signer
	notifier   Notifier
	log        logrus.FieldLogger
	breaker    *gobreaker.CircuitBreaker
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithSigner replaces the request signer.
func WithSigner(s *signer.Signer) Option {
	return func(c *Client) { c.signer = s }
}

// WithNotifier sets where non-manual failures are reported.
func WithNotifier(n Notifier) Option {
	return func(c *Client) { c.notifier = n }
}

// WithLogger sets the request logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) { c.log = l }
}

// WithCircuitBreaker routes every round trip through cb. While the breaker
// is open requests fail immediately as connection errors.
func WithCircuitBreaker(cb *gobreaker.CircuitBreaker) Option {
	return func(c *Client) { c.breaker = cb }
}

// NewBreaker returns a breaker that opens after five consecutive transport
// or 5xx failures and lets a trial request through after 30 seconds.
func NewBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
}

// New creates a gateway client for baseURL (scheme and host, no trailing slash).
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	if tokens == nil {
		tokens = StaticToken("")
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		signer: signer.New(),
		log:    logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.notifier == nil {
		c.notifier = logNotifier{log: c.log}
	}
	return c
}

// RequestOptions tune a single call.
type RequestOptions struct {
	Query   url.Values
	Headers map[string]string
	// JSONBody sends the body as application/json instead of multipart form.
	JSONBody bool
	// ManualErrors suppresses the notifier; the error is still returned.
	ManualErrors bool
	// SkipToken sends neither the token header value nor the token field.
	SkipToken bool
}

// Get calls operation with GET.
func (c *Client) Get(ctx context.Context, operation string, opts *RequestOptions) (*domain.RawEnvelope, error) {
	return c.Do(ctx, http.MethodGet, operation, nil, opts)
}

// Post calls operation with POST and body.
func (c *Client) Post(ctx context.Context, operation string, body map[string]any, opts *RequestOptions) (*domain.RawEnvelope, error) {
	return c.Do(ctx, http.MethodPost, operation, body, opts)
}

// Put calls operation with PUT and body.
func (c *Client) Put(ctx context.Context, operation string, body map[string]any, opts *RequestOptions) (*domain.RawEnvelope, error) {
	return c.Do(ctx, http.MethodPut, operation, body, opts)
}

// Delete calls operation with DELETE.
func (c *Client) Delete(ctx context.Context, operation string, opts *RequestOptions) (*domain.RawEnvelope, error) {
	return c.Do(ctx, http.MethodDelete, operation, nil, opts)
}

// URL returns the gateway URL for operation with extra query parameters.
func (c *Client) URL(operation string, query url.Values) string {
	u := c.baseURL + gatewayPath + "?api=" + url.QueryEscape(operation)
	if len(query) > 0 {
		u += "&" + query.Encode()
	}
	return u
}

// Do performs one gateway call. Any failure is returned as *APIError and,
// unless opts.ManualErrors is set, reported to the notifier first.
func (c *Client) Do(ctx context.Context, method, operation string, body map[string]any, opts *RequestOptions) (*domain.RawEnvelope, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}
	reqURL := c.URL(operation, opts.Query)
	reqID := uuid.NewString()
	log := c.log.WithFields(logrus.Fields{
		"req_id":   reqID,
		"method":   method,
		"endpoint": operation,
	})

	env, apiErr := c.roundTrip(ctx, log, method, reqURL, reqID, body, opts)
	if apiErr != nil {
		apiErr.RequestID = reqID
		if !opts.ManualErrors {
			c.notifier.NotifyError(method, operation, apiErr)
		}
		return nil, apiErr
	}
	return env, nil
}

func (c *Client) roundTrip(ctx context.Context, log logrus.FieldLogger, method, reqURL, reqID string, body map[string]any, opts *RequestOptions) (*domain.RawEnvelope, *APIError) {
	var token string
	if !opts.SkipToken {
		var err error
		token, err = c.tokens.Token(ctx)
		if err != nil {
			log.WithError(err).Warn("read session token")
			token = ""
		}
	}

	req, err := c.newRequest(ctx, method, reqURL, token, body, opts)
	if err != nil {
		return nil, &APIError{Message: err.Error(), URL: reqURL, Err: err}
	}
	req.Header.Set(HeaderRequestID, reqID)

	start := time.Now()
	status, respBody, err := c.send(req)
	log = log.WithField("duration", time.Since(start).String())
	if err != nil {
		log.WithError(err).Warn("request failed")
		return nil, connectionError(reqURL, err)
	}
	log = log.WithField("http_status", status)

	data := parseBody(respBody)
	if status < 200 || status > 299 {
		log.Warn("request rejected")
		return nil, httpError(reqURL, status, data)
	}

	var env domain.RawEnvelope
	if err := json.Unmarshal(respBody, &env); err != nil || env.Result == "" {
		if err == nil {
			err = errors.New("missing result")
		}
		log.WithError(err).Warn("unexpected response")
		return nil, &APIError{
			Message:      ErrInvalidEnvelope.Error(),
			Status:       status,
			StatusText:   http.StatusText(status),
			URL:          reqURL,
			ResponseData: data,
			Err:          fmt.Errorf("%w: %w", ErrInvalidEnvelope, err),
		}
	}
	if env.Result == domain.ResultError {
		msg := env.ErrorText()
		if msg == "" {
			msg = "API returned an error"
		}
		log.WithField("api_status", int(env.Status)).Info(msg)
		return nil, &APIError{
			Message:      msg,
			Status:       int(env.Status),
			StatusText:   msg,
			URL:          reqURL,
			ResponseData: &env,
		}
	}
	log.Debug("request ok")
	return &env, nil
}

func (c *Client) newRequest(ctx context.Context, method, reqURL, token string, body map[string]any, opts *RequestOptions) (*http.Request, error) {
	var (
		reqBody     io.Reader
		contentType string
	)
	if body != nil && method != http.MethodGet && method != http.MethodDelete {
		var err error
		if opts.JSONBody {
			reqBody, err = jsonBody(body, token)
			contentType = "application/json"
		} else {
			reqBody, contentType, err = formBody(body, token)
		}
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
	} else if method == http.MethodGet || method == http.MethodDelete {
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header = c.signer.Headers(token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// send executes req, through the breaker when one is configured, and returns
// the status and body. 5xx responses count as breaker failures but are still
// returned to the caller as responses.
func (c *Client) send(req *http.Request) (int, []byte, error) {
	type result struct {
		status int
		body   []byte
	}
	do := func() (result, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return result{}, err
		}
		defer resp.Body.Close() //nolint:errcheck // best-effort close

		b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return result{}, fmt.Errorf("read body: %w", err)
		}
		return result{status: resp.StatusCode, body: b}, nil
	}

	if c.breaker == nil {
		r, err := do()
		return r.status, r.body, err
	}

	var served *result
	_, err := c.breaker.Execute(func() (interface{}, error) {
		r, err := do()
		if err != nil {
			return nil, err
		}
		served = &r
		if r.status >= 500 {
			return nil, fmt.Errorf("server error %d", r.status)
		}
		return nil, nil
	})
	if served != nil {
		return served.status, served.body, nil
	}
	return 0, nil, err
}

// formBody builds a multipart form with one field per key in key order. The
// token field comes first when a token is present and the caller did not
// supply one.
func formBody(body map[string]any, token string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if _, ok := body["token"]; !ok && token != "" {
		if err := w.WriteField("token", token); err != nil {
			return nil, "", err
		}
	}
	keys := make([]string, 0, len(body))
	for k := range body {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := body[k]
		if v == nil {
			continue
		}
		if err := w.WriteField(k, fmt.Sprint(v)); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func jsonBody(body map[string]any, token string) (io.Reader, error) {
	if _, ok := body["token"]; !ok && token != "" {
		merged := make(map[string]any, len(body)+1)
		for k, v := range body {
			merged[k] = v
		}
		merged["token"] = token
		body = merged
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

// parseBody decodes JSON when possible and falls back to the raw text.
func parseBody(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	var v any
	if json.Unmarshal(b, &v) == nil {
		return v
	}
	return string(b)
}

// Decode unmarshals the data field of env into T.
func Decode[T any](env *domain.RawEnvelope) (T, error) {
	var out T
	if env == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return out, fmt.Errorf("decode data: %w", err)
	}
	return out, nil
}
