package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-onboarding/core"
)

// MessagingClient drives the messenger bot backend: linking code issuance
// and verification polling.
type MessagingClient struct {
	gateway     core.Gateway
	baseURL     string
	deepLinkURL string
}

type MessagingOption func(*MessagingClient)

// WithDeepLinkURL overrides the messenger deep-link template. The linking
// code is appended as the "code" query parameter.
func WithDeepLinkURL(deepLinkURL string) MessagingOption {
	return func(c *MessagingClient) {
		if strings.TrimSpace(deepLinkURL) != "" {
			c.deepLinkURL = strings.TrimSpace(deepLinkURL)
		}
	}
}

func NewMessagingClient(gw core.Gateway, baseURL string, opts ...MessagingOption) *MessagingClient {
	client := &MessagingClient{
		gateway: gw,
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
	}
	client.deepLinkURL = client.baseURL + "/link/open"
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(client)
	}
	return client
}

type linkingCodePayload struct {
	Code      string `json:"code"`
	ExpiresIn int64  `json:"expires_in"`
}

type linkingStatusPayload struct {
	Verified bool   `json:"verified"`
	Identity string `json:"identity"`
}

func (c *MessagingClient) IssueLinkingCode(ctx context.Context) (core.LinkingCode, error) {
	res, err := c.gateway.Do(ctx, core.GatewayRequest{
		Method: http.MethodPost,
		URL:    c.baseURL + "/link/code",
	})
	if err != nil {
		return core.LinkingCode{}, err
	}
	if err := expectStatus(res, http.StatusOK, "messaging: issue linking code"); err != nil {
		return core.LinkingCode{}, err
	}

	var payload linkingCodePayload
	if err := decodePayload(res.Body, &payload, "messaging: issue linking code"); err != nil {
		return core.LinkingCode{}, err
	}
	if strings.TrimSpace(payload.Code) == "" {
		return core.LinkingCode{}, gatewayError(
			"messaging: linking code missing from response",
			goerrors.CategoryOperation,
			http.StatusBadGateway,
			nil,
		)
	}

	code := core.LinkingCode{Code: strings.TrimSpace(payload.Code)}
	if payload.ExpiresIn > 0 {
		code.ExpiresAt = time.Now().UTC().Add(time.Duration(payload.ExpiresIn) * time.Second)
	}
	return code, nil
}

func (c *MessagingClient) CheckLinkingStatus(ctx context.Context, code string) (core.LinkingStatus, error) {
	res, err := c.gateway.Do(ctx, core.GatewayRequest{
		Method: http.MethodGet,
		URL:    c.baseURL + "/link/status",
		Query:  map[string]string{"code": strings.TrimSpace(code)},
	})
	if err != nil {
		return core.LinkingStatus{}, err
	}
	if res.StatusCode == http.StatusGone {
		return core.LinkingStatus{}, gatewayWrapError(
			core.ErrNoActiveLinkingCode,
			goerrors.CategoryOperation,
			"messaging: linking code expired upstream",
			http.StatusGone,
			map[string]any{"code": strings.TrimSpace(code)},
		)
	}
	if err := expectStatus(res, http.StatusOK, "messaging: check linking status"); err != nil {
		return core.LinkingStatus{}, err
	}

	var payload linkingStatusPayload
	if err := decodePayload(res.Body, &payload, "messaging: check linking status"); err != nil {
		return core.LinkingStatus{}, err
	}
	return core.LinkingStatus{
		Verified: payload.Verified,
		Identity: payload.Identity,
	}, nil
}

func (c *MessagingClient) DeepLinkURI(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	return c.deepLinkURL + "?code=" + url.QueryEscape(code)
}

var _ core.MessagingGateway = (*MessagingClient)(nil)
