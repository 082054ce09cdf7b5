// Package httpclient is the single outbound path to the gate-pass API. It
// attaches the bearer token, maps failures onto the application error
// taxonomy and transparently refreshes an expired access token once.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"

	errors "github.com/frahmantamala/gatepass/internal"
	"github.com/frahmantamala/gatepass/internal/session"
	"github.com/frahmantamala/gatepass/pkg/logger"
)

const maxErrorBody = 64 << 10

// TokenStore is the slice of the session store the client needs.
type TokenStore interface {
	Get(ctx context.Context) (session.Session, error)
	SetAccessToken(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// Refresher exchanges a refresh token for a new access token.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

type Config struct {
	BaseURL string
	// Timeout bounds the whole exchange including reading the body. Zero means none.
	Timeout time.Duration
	// Transport defaults to an otelhttp-wrapped http.DefaultTransport.
	Transport http.RoundTripper
}

// Request describes one API call. Body, when set, is JSON encoded once and
// replayed unchanged if the call is retried after a refresh.
type Request struct {
	Method string
	Path   string
	Body   any
	Accept string

	// SkipRefresh returns a 401 as-is instead of attempting a refresh.
	SkipRefresh bool
	// Anonymous sends no Authorization header.
	Anonymous bool
}

type Client struct {
	baseURL   string
	http      *http.Client
	store     TokenStore
	refresher Refresher
	onExpired func(ctx context.Context)
	refreshes singleflight.Group
	timeout   time.Duration
	logger    *slog.Logger
}

func New(cfg Config, store TokenStore, lg *slog.Logger) *Client {
	if lg == nil {
		lg = logger.LoggerWrapper()
	}
	transport := cfg.Transport
	if transport == nil {
		transport = otelhttp.NewTransport(http.DefaultTransport)
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		store:   store,
		timeout: cfg.Timeout,
		logger:  lg,
	}
}

// SetRefresher wires the auth service in after construction; the auth
// service itself sends through this client.
func (c *Client) SetRefresher(r Refresher) {
	c.refresher = r
}

// OnSessionExpired registers the hook fired once a refresh has failed and
// the store has been cleared.
func (c *Client) OnSessionExpired(fn func(ctx context.Context)) {
	c.onExpired = fn
}

// Do sends req and returns the response for any 2xx status. The caller owns
// the response body. Every other outcome is returned as an *errors.AppError.
func (c *Client) Do(ctx context.Context, req *Request) (*http.Response, error) {
	payload, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, req, payload, "", false)
}

// DoJSON is Do followed by decoding the body into out. A nil out discards it.
func (c *Client) DoJSON(ctx context.Context, req *Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.NewDecodeError("unexpected response body", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, req *Request, payload []byte, token string, retried bool) (*http.Response, error) {
	if token == "" && !req.Anonymous {
		// read at attach time; a refresh racing this request may replace it
		sess, err := c.store.Get(ctx)
		if err != nil {
			return nil, errors.NewInternalError("read session", err)
		}
		token = sess.AccessToken
	}

	resp, err := c.send(ctx, req, payload, token)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized {
		return checkStatus(resp)
	}

	failure := authFailure(resp)
	if retried || req.SkipRefresh || c.refresher == nil {
		return nil, failure
	}

	sess, err := c.store.Get(ctx)
	if err != nil {
		return nil, errors.NewInternalError("read session", err)
	}
	if !sess.CanRefresh() {
		return nil, failure
	}

	// another request already refreshed while this one was in flight
	if sess.AccessToken != "" && sess.AccessToken != token {
		return c.do(ctx, req, payload, sess.AccessToken, true)
	}

	access, err := c.refresh(ctx, sess.RefreshToken, token)
	if err != nil {
		return nil, failure.WithCause(err)
	}

	return c.do(ctx, req, payload, access, true)
}

// refresh coalesces concurrent refreshes of the same refresh token so a burst
// of 401s costs one round trip. The flight is detached from every caller's
// cancellation; a caller whose ctx ends stops waiting and leaves the session
// alone.
func (c *Client) refresh(ctx context.Context, refreshToken, sent string) (string, error) {
	ch := c.refreshes.DoChan(refreshToken, func() (interface{}, error) {
		flightCtx, cancel := errors.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.runRefresh(flightCtx, refreshToken, sent)
	})

	select {
	case <-ctx.Done():
		c.logger.Debug("stopped waiting for token refresh", "error", ctx.Err())
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		if res.Shared {
			c.logger.Debug("joined in-flight token refresh")
		}
		return res.Val.(string), nil
	}
}

// runRefresh tears the session down once when the server refuses the refresh
// token. A refresh that was cut short by its deadline proves nothing about the
// token, so the session is kept.
func (c *Client) runRefresh(ctx context.Context, refreshToken, sent string) (string, error) {
	// a flight that just finished may already have settled the outcome
	sess, err := c.store.Get(ctx)
	if err != nil {
		return "", errors.NewInternalError("read session", err)
	}
	if sess.RefreshToken != refreshToken {
		return "", errors.NewAuthError("session ended", errors.ErrCodeSessionExpired)
	}
	if sess.AccessToken != "" && sess.AccessToken != sent {
		return sess.AccessToken, nil
	}

	access, err := c.refresher.Refresh(ctx, refreshToken)
	if err != nil {
		if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
			c.logger.Warn("token refresh did not complete", "error", err)
			return "", err
		}
		c.logger.Warn("token refresh failed, ending session", "error", err)
		if clearErr := c.store.Clear(ctx); clearErr != nil {
			c.logger.Error("failed to clear session", "error", clearErr)
		}
		if c.onExpired != nil {
			c.onExpired(ctx)
		}
		return "", err
	}
	if err := c.store.SetAccessToken(ctx, access); err != nil {
		return "", errors.NewInternalError("store refreshed token", err)
	}
	return access, nil
}

func (c *Client) send(ctx context.Context, req *Request, payload []byte, token string) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+req.Path, body)
	if err != nil {
		return nil, errors.NewInternalError("build request", err)
	}

	accept := req.Accept
	if accept == "" {
		accept = "application/json"
	}
	httpReq.Header.Set("Accept", accept)
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	requestID := errors.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	httpReq.Header.Set("X-Request-ID", requestID)

	if !req.Anonymous && token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Debug("request failed",
			"request_id", requestID,
			"method", req.Method,
			"path", req.Path,
			"error", err)
		return nil, errors.NewNetworkError("could not reach the server", err)
	}

	c.logger.Debug("request completed",
		"request_id", requestID,
		"method", req.Method,
		"path", req.Path,
		"status_code", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	return resp, nil
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.NewInternalError("encode request body", err)
	}
	return payload, nil
}

func checkStatus(resp *http.Response) (*http.Response, error) {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	message := drainMessage(resp)
	return nil, errors.NewAPIError(resp.StatusCode, message)
}

func authFailure(resp *http.Response) *errors.AppError {
	message := drainMessage(resp)
	if message == "" {
		message = "authentication required"
	}
	return errors.NewAuthError(message, errors.ErrCodeUnauthorized)
}

// drainMessage reads and closes the body, returning the server's message if
// it sent one under any of the keys the API uses.
func drainMessage(resp *http.Response) string {
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	for _, key := range []string{"detail", "message", "error"} {
		if v, ok := payload[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
			return fmt.Sprint(v)
		}
	}
	return ""
}
