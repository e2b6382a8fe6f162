package onboarding

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-onboarding/core"
	"github.com/goliatone/go-onboarding/gateway"
)

// AccountBackendConfig wires the mailbox provider backend: the retrying
// bearer gateway plus the account endpoints that ride on it.
type AccountBackendConfig struct {
	BaseURL    string
	HTTPClient gateway.HTTPDoer
	Holder     core.CredentialHolder
	Gateway    core.GatewayConfig
	Logger     core.Logger
}

// AccountBackend bundles the wired gateway client with the account-facing
// endpoints. Account doubles as the completion notifier.
type AccountBackend struct {
	Client  *gateway.Client
	Account *gateway.AccountClient
}

func NewAccountBackend(cfg AccountBackendConfig) (*AccountBackend, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("onboarding: account backend base url is required")
	}
	if cfg.Holder == nil {
		cfg.Holder = core.NewMemoryCredentialHolder()
	}

	// The refresh exchange goes through the raw HTTP client, never through
	// the gateway, so the account client is bound to the gateway after the
	// gateway captures its refresh closure.
	var account *gateway.AccountClient
	refresh := func(ctx context.Context) (core.AccessCredential, error) {
		return account.RefreshFunc()(ctx)
	}

	var opts []gateway.Option
	if cfg.Logger != nil {
		opts = append(opts, gateway.WithLogger(cfg.Logger))
	}

	client := gateway.New(cfg.HTTPClient, cfg.Holder, refresh, cfg.Gateway, opts...)
	account = gateway.NewAccountClient(client, cfg.HTTPClient, cfg.BaseURL)

	return &AccountBackend{Client: client, Account: account}, nil
}

// MessagingBackendConfig wires the messenger linking backend over an
// already-built gateway.
type MessagingBackendConfig struct {
	BaseURL     string
	DeepLinkURL string
	Gateway     core.Gateway
}

func NewMessagingBackend(cfg MessagingBackendConfig) (*gateway.MessagingClient, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("onboarding: messaging backend base url is required")
	}
	if cfg.Gateway == nil {
		return nil, fmt.Errorf("onboarding: messaging backend gateway is required")
	}

	var opts []gateway.MessagingOption
	if strings.TrimSpace(cfg.DeepLinkURL) != "" {
		opts = append(opts, gateway.WithDeepLinkURL(cfg.DeepLinkURL))
	}
	return gateway.NewMessagingClient(cfg.Gateway, cfg.BaseURL, opts...), nil
}
