package onboarding

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/goliatone/go-onboarding/core"
)

type factoryGateway struct{}

func (factoryGateway) Do(context.Context, core.GatewayRequest) (core.GatewayResponse, error) {
	return core.GatewayResponse{StatusCode: http.StatusOK}, nil
}

func TestNewAccountBackendWiresGatewayAndClient(t *testing.T) {
	backend, err := NewAccountBackend(AccountBackendConfig{
		BaseURL:    "https://accounts.example.com",
		HTTPClient: http.DefaultClient,
	})
	if err != nil {
		t.Fatalf("factory error: %v", err)
	}
	if backend.Client == nil {
		t.Fatal("expected gateway client")
	}
	if backend.Account == nil {
		t.Fatal("expected account client")
	}
}

func TestNewAccountBackendRequiresBaseURL(t *testing.T) {
	if _, err := NewAccountBackend(AccountBackendConfig{HTTPClient: http.DefaultClient}); err == nil {
		t.Fatal("expected base url error")
	}
}

func TestNewMessagingBackendAppliesDeepLink(t *testing.T) {
	client, err := NewMessagingBackend(MessagingBackendConfig{
		BaseURL:     "https://messaging.example.com",
		DeepLinkURL: "myapp://link",
		Gateway:     factoryGateway{},
	})
	if err != nil {
		t.Fatalf("factory error: %v", err)
	}
	uri := client.DeepLinkURI("216EU3")
	if !strings.HasPrefix(uri, "myapp://link?code=") {
		t.Fatalf("expected deep link override, got %q", uri)
	}
}

func TestNewMessagingBackendRequiresGateway(t *testing.T) {
	if _, err := NewMessagingBackend(MessagingBackendConfig{BaseURL: "https://messaging.example.com"}); err == nil {
		t.Fatal("expected gateway error")
	}
}
