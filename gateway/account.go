package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-onboarding/core"
)

// AccountClient drives the mailbox provider backend over a Gateway. The
// refresh exchange deliberately bypasses the gateway; it talks to the raw
// HTTP client so a refresh can never recurse into another refresh.
type AccountClient struct {
	gateway core.Gateway
	client  HTTPDoer
	baseURL string
}

func NewAccountClient(gw core.Gateway, client HTTPDoer, baseURL string) *AccountClient {
	if client == nil {
		client = &http.Client{Timeout: defaultClientTimeout}
	}
	return &AccountClient{
		gateway: gw,
		client:  client,
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
	}
}

type authorizationURLPayload struct {
	AuthorizationURL string `json:"authorization_url"`
	State            string `json:"state"`
}

type credentialPayload struct {
	TokenType    string `json:"token_type"`
	AccessToken  string `json:"access_token"`
	ExpiresIn    int64  `json:"expires_in"`
	AccountEmail string `json:"account_email"`
}

type sessionPayload struct {
	Valid bool `json:"valid"`
}

func (c *AccountClient) FetchAuthorizationURL(ctx context.Context) (core.BeginConnectResponse, error) {
	res, err := c.gateway.Do(ctx, core.GatewayRequest{
		Method: http.MethodGet,
		URL:    c.baseURL + "/auth/connect",
	})
	if err != nil {
		return core.BeginConnectResponse{}, err
	}
	if err := expectStatus(res, http.StatusOK, "account: fetch authorization url"); err != nil {
		return core.BeginConnectResponse{}, err
	}

	var payload authorizationURLPayload
	if err := decodePayload(res.Body, &payload, "account: fetch authorization url"); err != nil {
		return core.BeginConnectResponse{}, err
	}
	if strings.TrimSpace(payload.AuthorizationURL) == "" {
		return core.BeginConnectResponse{}, gatewayError(
			"account: authorization url missing from response",
			goerrors.CategoryOperation,
			http.StatusBadGateway,
			nil,
		)
	}
	return core.BeginConnectResponse{
		URL:   payload.AuthorizationURL,
		State: payload.State,
	}, nil
}

func (c *AccountClient) ExchangeCode(ctx context.Context, code, state string) (core.ExchangeResult, error) {
	body, err := json.Marshal(map[string]string{
		"code":  strings.TrimSpace(code),
		"state": strings.TrimSpace(state),
	})
	if err != nil {
		return core.ExchangeResult{}, gatewayWrapError(
			err,
			goerrors.CategoryInternal,
			"account: encode exchange payload",
			http.StatusInternalServerError,
			nil,
		)
	}

	res, err := c.gateway.Do(ctx, core.GatewayRequest{
		Method:  http.MethodPost,
		URL:     c.baseURL + "/auth/callback",
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
	})
	if err != nil {
		return core.ExchangeResult{}, err
	}
	if err := expectStatus(res, http.StatusOK, "account: exchange authorization code"); err != nil {
		return core.ExchangeResult{}, err
	}

	var payload credentialPayload
	if err := decodePayload(res.Body, &payload, "account: exchange authorization code"); err != nil {
		return core.ExchangeResult{}, err
	}
	return core.ExchangeResult{
		Credential:      payload.credential(time.Now()),
		AccountIdentity: payload.AccountEmail,
	}, nil
}

func (c *AccountClient) ValidateCredential(ctx context.Context) (bool, error) {
	res, err := c.gateway.Do(ctx, core.GatewayRequest{
		Method: http.MethodGet,
		URL:    c.baseURL + "/auth/session",
	})
	if err != nil {
		var typed *goerrors.Error
		if goerrors.As(err, &typed) && typed.Category == goerrors.CategoryAuth {
			return false, nil
		}
		return false, err
	}
	if res.StatusCode != http.StatusOK {
		return false, nil
	}

	var payload sessionPayload
	if err := decodePayload(res.Body, &payload, "account: validate credential"); err != nil {
		return false, err
	}
	return payload.Valid, nil
}

func (c *AccountClient) NotifyCompleted(ctx context.Context, profileID string) error {
	body, err := json.Marshal(map[string]string{"profile_id": strings.TrimSpace(profileID)})
	if err != nil {
		return gatewayWrapError(
			err,
			goerrors.CategoryInternal,
			"account: encode completion payload",
			http.StatusInternalServerError,
			nil,
		)
	}

	res, err := c.gateway.Do(ctx, core.GatewayRequest{
		Method:  http.MethodPost,
		URL:     c.baseURL + "/onboarding/complete",
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
	})
	if err != nil {
		return err
	}
	return expectStatus(res, http.StatusOK, "account: notify completion")
}

// RefreshFunc returns the refresh exchange used by the gateway itself. The
// refresh grant lives server-side behind an HTTP-only artifact, so the call
// carries no body and no bearer header.
func (c *AccountClient) RefreshFunc() RefreshFunc {
	return func(ctx context.Context) (core.AccessCredential, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/refresh", nil)
		if err != nil {
			return core.AccessCredential{}, gatewayWrapError(
				err,
				goerrors.CategoryInternal,
				"account: create refresh request",
				http.StatusInternalServerError,
				nil,
			)
		}
		res, err := c.client.Do(req)
		if err != nil {
			return core.AccessCredential{}, gatewayWrapError(
				err,
				goerrors.CategoryAuth,
				"account: refresh exchange failed",
				http.StatusUnauthorized,
				nil,
			)
		}
		defer res.Body.Close()

		if res.StatusCode != http.StatusOK {
			return core.AccessCredential{}, gatewayError(
				"account: refresh exchange rejected",
				goerrors.CategoryAuth,
				http.StatusUnauthorized,
				map[string]any{"status_code": res.StatusCode},
			)
		}

		var payload credentialPayload
		if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
			return core.AccessCredential{}, gatewayWrapError(
				err,
				goerrors.CategoryAuth,
				"account: decode refresh payload",
				http.StatusUnauthorized,
				nil,
			)
		}
		cred := payload.credential(time.Now())
		if cred.Empty() {
			return core.AccessCredential{}, gatewayError(
				"account: refresh returned no credential",
				goerrors.CategoryAuth,
				http.StatusUnauthorized,
				nil,
			)
		}
		return cred, nil
	}
}

func (p credentialPayload) credential(now time.Time) core.AccessCredential {
	cred := core.AccessCredential{
		TokenType:   p.TokenType,
		AccessToken: p.AccessToken,
	}
	if cred.TokenType == "" {
		cred.TokenType = "Bearer"
	}
	if p.ExpiresIn > 0 {
		cred.ExpiresAt = now.UTC().Add(time.Duration(p.ExpiresIn) * time.Second)
	}
	return cred
}

func expectStatus(res core.GatewayResponse, want int, operation string) error {
	if res.StatusCode == want {
		return nil
	}
	category := goerrors.CategoryOperation
	if res.StatusCode >= http.StatusInternalServerError {
		category = goerrors.CategoryExternal
	}
	return gatewayError(
		operation+" returned unexpected status",
		category,
		res.StatusCode,
		map[string]any{"status_code": res.StatusCode},
	)
}

func decodePayload(body []byte, target any, operation string) error {
	if err := json.Unmarshal(body, target); err != nil {
		return gatewayWrapError(
			err,
			goerrors.CategoryOperation,
			operation+": decode response",
			http.StatusBadGateway,
			nil,
		)
	}
	return nil
}

var (
	_ core.AccountGateway     = (*AccountClient)(nil)
	_ core.CompletionNotifier = (*AccountClient)(nil)
)
