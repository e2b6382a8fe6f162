package gateway

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-onboarding/core"
)

const defaultClientTimeout = 30 * time.Second
const defaultResponseBodyLimit int64 = 10 << 20 // 10 MiB

const refreshKey = "refresh"

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RefreshFunc performs the credential refresh exchange against the backend.
// It runs outside the gateway pipeline so a refresh can never trigger itself.
type RefreshFunc func(ctx context.Context) (core.AccessCredential, error)

// Client is the resilient HTTP surface every backend call goes through. It
// attaches the bearer credential, coordinates a single refresh when the
// backend answers 401, replays the original call once with the refreshed
// credential, retries transport failures a fixed number of times, and
// normalizes every failure into the shared error envelope.
type Client struct {
	client               HTTPDoer
	holder               core.CredentialHolder
	refresh              RefreshFunc
	logger               core.Logger
	maxAttempts          int
	retryDelay           time.Duration
	maxResponseBodyBytes int64

	refreshGroup singleflight.Group
	sleep        func(time.Duration)
}

type Option func(*Client)

func WithLogger(logger core.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithMaxResponseBodyBytes(limit int64) Option {
	return func(c *Client) {
		if limit > 0 {
			c.maxResponseBodyBytes = limit
		}
	}
}

func New(client HTTPDoer, holder core.CredentialHolder, refresh RefreshFunc, cfg core.GatewayConfig, opts ...Option) *Client {
	if client == nil {
		client = &http.Client{Timeout: defaultClientTimeout}
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = time.Second
	}

	gw := &Client{
		client:               client,
		holder:               holder,
		refresh:              refresh,
		logger:               glog.Ensure(nil),
		maxAttempts:          maxAttempts,
		retryDelay:           retryDelay,
		maxResponseBodyBytes: defaultResponseBodyLimit,
		sleep:                time.Sleep,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(gw)
	}
	return gw
}

func (c *Client) Do(ctx context.Context, req core.GatewayRequest) (core.GatewayResponse, error) {
	if c == nil || c.client == nil {
		return core.GatewayResponse{}, gatewayError(
			"gateway: http client is required",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			nil,
		)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	res, err := c.execute(ctx, req, c.currentToken())
	if err != nil {
		return core.GatewayResponse{}, err
	}

	switch res.StatusCode {
	case http.StatusUnauthorized:
		return c.refreshAndReplay(ctx, req)
	case http.StatusForbidden:
		return core.GatewayResponse{}, forbiddenError(req)
	}
	return res, nil
}

// refreshAndReplay coordinates the shared refresh exchange and replays the
// original request once with the refreshed credential. Concurrent callers
// blocked on the same 401 share one refresh outcome. A 401 on the replayed
// request means the session is gone; it never triggers a second refresh.
func (c *Client) refreshAndReplay(ctx context.Context, req core.GatewayRequest) (core.GatewayResponse, error) {
	token, err := c.sharedRefresh(ctx)
	if err != nil {
		if c.holder != nil {
			c.holder.Clear()
		}
		return core.GatewayResponse{}, sessionExpiredError(err)
	}

	res, err := c.execute(ctx, req, token)
	if err != nil {
		return core.GatewayResponse{}, err
	}
	switch res.StatusCode {
	case http.StatusUnauthorized:
		if c.holder != nil {
			c.holder.Clear()
		}
		return core.GatewayResponse{}, sessionExpiredError(nil)
	case http.StatusForbidden:
		return core.GatewayResponse{}, forbiddenError(req)
	}
	return res, nil
}

// sharedRefresh deduplicates concurrent refresh attempts through a
// singleflight group: exactly one exchange runs, every waiter shares its
// outcome. The refreshed credential replaces the held one wholesale before
// any waiter resumes.
func (c *Client) sharedRefresh(ctx context.Context) (string, error) {
	if c.refresh == nil {
		return "", goerrors.New("gateway: refresh is not configured", goerrors.CategoryAuth)
	}

	result, err, _ := c.refreshGroup.Do(refreshKey, func() (any, error) {
		cred, refreshErr := c.refresh(ctx)
		if refreshErr != nil {
			return nil, refreshErr
		}
		if cred.Empty() {
			return nil, goerrors.New("gateway: refresh returned no credential", goerrors.CategoryAuth)
		}
		if c.holder != nil {
			c.holder.Set(cred)
		}
		return cred.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	token, _ := result.(string)
	return token, nil
}

// execute performs one HTTP exchange, retrying transport failures with a
// fixed delay up to the attempt budget. HTTP responses of any status are
// successes at this layer; only a missing response counts as failure.
func (c *Client) execute(ctx context.Context, req core.GatewayRequest, token string) (core.GatewayResponse, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return core.GatewayResponse{}, networkError(ctx.Err(), req, attempt-1)
			default:
			}
			c.sleep(c.retryDelay)
		}

		res, doErr := c.doAttempt(ctx, req, token)
		if doErr == nil {
			return res, nil
		}
		if _, ok := doErr.(transportFailure); !ok {
			return core.GatewayResponse{}, doErr
		}
		lastErr = doErr
		c.logger.Warn("gateway request failed",
			"method", req.Method,
			"url", req.URL,
			"attempt", attempt,
			"error", doErr.Error(),
		)
	}

	return core.GatewayResponse{}, networkError(lastErr, req, c.maxAttempts)
}

// transportFailure marks errors eligible for the retry budget. HTTP
// responses of any status never wear it.
type transportFailure struct {
	err error
}

func (t transportFailure) Error() string { return t.err.Error() }
func (t transportFailure) Unwrap() error { return t.err }

func (c *Client) doAttempt(ctx context.Context, req core.GatewayRequest, token string) (core.GatewayResponse, error) {
	attemptCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	httpReq, err := c.buildRequest(attemptCtx, req, token)
	if err != nil {
		return core.GatewayResponse{}, err
	}
	httpRes, err := c.client.Do(httpReq)
	if err != nil {
		return core.GatewayResponse{}, transportFailure{err: err}
	}
	return c.readResponse(httpRes)
}

func (c *Client) buildRequest(ctx context.Context, req core.GatewayRequest, token string) (*http.Request, error) {
	method := strings.TrimSpace(strings.ToUpper(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	parsedURL, err := url.Parse(strings.TrimSpace(req.URL))
	if err != nil {
		return nil, gatewayWrapError(
			err,
			goerrors.CategoryBadInput,
			"gateway: invalid request url",
			http.StatusBadRequest,
			map[string]any{"url": strings.TrimSpace(req.URL)},
		)
	}
	if parsedURL.String() == "" {
		return nil, gatewayError(
			"gateway: request url is required",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			nil,
		)
	}

	query := parsedURL.Query()
	for key, value := range req.Query {
		if strings.TrimSpace(key) == "" {
			continue
		}
		query.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	parsedURL.RawQuery = query.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, method, parsedURL.String(), bytes.NewReader(req.Body))
	if err != nil {
		return nil, gatewayWrapError(
			err,
			goerrors.CategoryBadInput,
			"gateway: create http request",
			http.StatusBadRequest,
			map[string]any{"method": method, "url": parsedURL.String()},
		)
	}
	for key, value := range req.Headers {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	if token = strings.TrimSpace(token); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	return httpReq, nil
}

func (c *Client) readResponse(httpRes *http.Response) (core.GatewayResponse, error) {
	defer httpRes.Body.Close()

	limit := c.maxResponseBodyBytes
	if limit <= 0 {
		limit = defaultResponseBodyLimit
	}
	body, err := io.ReadAll(io.LimitReader(httpRes.Body, limit+1))
	if err != nil {
		return core.GatewayResponse{}, gatewayWrapError(
			err,
			goerrors.CategoryExternal,
			"gateway: read response body",
			http.StatusBadGateway,
			map[string]any{"status_code": httpRes.StatusCode},
		)
	}
	if int64(len(body)) > limit {
		return core.GatewayResponse{}, gatewayError(
			"gateway: response body exceeds limit",
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{"status_code": httpRes.StatusCode, "response_limit_b": limit},
		)
	}

	return core.GatewayResponse{
		StatusCode: httpRes.StatusCode,
		Headers:    flattenHeaders(httpRes.Header),
		Body:       body,
	}, nil
}

func (c *Client) currentToken() string {
	if c == nil || c.holder == nil {
		return ""
	}
	cred, ok := c.holder.Get()
	if !ok {
		return ""
	}
	return cred.AccessToken
}

func flattenHeaders(headers http.Header) map[string]string {
	if len(headers) == 0 {
		return map[string]string{}
	}
	flat := make(map[string]string, len(headers))
	for key, values := range headers {
		if len(values) == 0 {
			flat[key] = ""
			continue
		}
		flat[key] = strings.Join(values, ",")
	}
	return flat
}

var _ core.Gateway = (*Client)(nil)
