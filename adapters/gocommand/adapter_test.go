package gocommand

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-command"

	onboarding "github.com/goliatone/go-onboarding"
	onboardingcommand "github.com/goliatone/go-onboarding/command"
	"github.com/goliatone/go-onboarding/core"
	onboardingquery "github.com/goliatone/go-onboarding/query"
)

type okMessage struct{}

func (okMessage) Type() string { return "onboarding.command.ok" }

type invalidMessage struct{}

func (invalidMessage) Type() string { return "" }

type failingMessage struct{}

func (failingMessage) Type() string { return "onboarding.command.fail" }

func (failingMessage) Validate() error { return errors.New("invalid payload") }

type dispatchMessage struct {
	ID string
}

func (dispatchMessage) Type() string { return "onboarding.command.test" }

func TestValidateMessageContract(t *testing.T) {
	if err := ValidateMessageContract(okMessage{}); err != nil {
		t.Fatalf("expected valid message, got %v", err)
	}
	if err := ValidateMessageContract(invalidMessage{}); err == nil {
		t.Fatalf("expected empty type to fail contract validation")
	}
	if err := ValidateMessageContract(failingMessage{}); err == nil {
		t.Fatalf("expected Validate() failure to bubble")
	}
}

func TestRegistryAndDispatchWiring(t *testing.T) {
	adapter := NewRegistryAdapter(command.NewRegistry())
	executed := 0
	customResolverCalled := 0

	cmd := command.CommandFunc[dispatchMessage](func(context.Context, dispatchMessage) error {
		executed++
		return nil
	})

	if _, err := RegisterAndSubscribe(adapter, cmd); err != nil {
		t.Fatalf("register and subscribe: %v", err)
	}
	if err := adapter.AddResolver("custom", func(any, command.CommandMeta, *command.Registry) error {
		customResolverCalled++
		return nil
	}); err != nil {
		t.Fatalf("add resolver: %v", err)
	}
	if !adapter.HasResolver("custom") {
		t.Fatalf("expected custom resolver to be registered")
	}
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}
	if customResolverCalled == 0 {
		t.Fatalf("expected resolver hook to run during initialization")
	}

	if err := Dispatch(context.Background(), dispatchMessage{ID: "m1"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if executed != 1 {
		t.Fatalf("expected command execution through dispatcher, got %d", executed)
	}
}

func TestSubscribeFacade_RoutesDispatchedMessages(t *testing.T) {
	svc := &facadeProbeService{}
	facade, err := onboarding.NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	adapter := NewRegistryAdapter(command.NewRegistry())
	cancel, err := SubscribeFacade(adapter, facade)
	if err != nil {
		t.Fatalf("subscribe facade: %v", err)
	}
	defer cancel()

	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}

	if err := Dispatch(context.Background(), onboardingcommand.AdvanceStepMessage{ProfileID: "p1"}); err != nil {
		t.Fatalf("dispatch advance: %v", err)
	}
	if svc.advanced != 1 {
		t.Fatalf("expected advance to reach the service, got %d", svc.advanced)
	}

	view, err := Query[onboardingquery.GetProgressMessage, onboardingquery.ProgressView](
		context.Background(),
		onboardingquery.GetProgressMessage{ProfileID: "p1"},
	)
	if err != nil {
		t.Fatalf("query progress: %v", err)
	}
	if view.Outcome != core.LoadOutcomeResumed {
		t.Fatalf("unexpected progress view: %#v", view)
	}
}

func TestSubscribeFacade_RequiresFacade(t *testing.T) {
	adapter := NewRegistryAdapter(command.NewRegistry())
	if _, err := SubscribeFacade(adapter, nil); err == nil {
		t.Fatalf("expected nil facade rejection")
	}
}

type facadeProbeService struct {
	advanced int
}

func (s *facadeProbeService) BeginConnect(context.Context, string) (core.BeginConnectResponse, error) {
	return core.BeginConnectResponse{URL: "https://provider.example/authorize", State: "state"}, nil
}

func (s *facadeProbeService) CompleteConnectCallback(context.Context, core.CallbackRequest) error {
	return nil
}

func (s *facadeProbeService) RequestLinkingCode(context.Context, string) (core.LinkingCode, error) {
	return core.LinkingCode{Code: "A1"}, nil
}

func (s *facadeProbeService) StartLinkPolling(context.Context) error { return nil }

func (s *facadeProbeService) StopLinkPolling(context.Context) {}

func (s *facadeProbeService) Advance(_ context.Context, profileID string) (core.WizardProgress, error) {
	s.advanced++
	return core.NewWizardProgress(profileID, time.Now()), nil
}

func (s *facadeProbeService) Retreat(_ context.Context, profileID string) (core.WizardProgress, error) {
	return core.NewWizardProgress(profileID, time.Now()), nil
}

func (s *facadeProbeService) RecordCompletion(_ context.Context, profileID string, _ core.PartialProgress) (core.WizardProgress, error) {
	return core.NewWizardProgress(profileID, time.Now()), nil
}

func (s *facadeProbeService) Complete(context.Context, string) error { return nil }

func (s *facadeProbeService) LoadOrReset(_ context.Context, profileID string) (core.WizardProgress, core.LoadOutcome, error) {
	return core.NewWizardProgress(profileID, time.Now()), core.LoadOutcomeResumed, nil
}

func (s *facadeProbeService) Status(_ context.Context, profileID string) (core.FlowStatus, error) {
	return core.FlowStatus{ProfileID: profileID}, nil
}

func (s *facadeProbeService) LinkingPhase() core.LinkPhase     { return core.LinkPhaseIdle }
func (s *facadeProbeService) LinkingFailure() core.FailureKind { return core.FailureKindNone }
func (s *facadeProbeService) LinkingRemaining() time.Duration  { return 0 }
func (s *facadeProbeService) LinkedIdentity() string           { return "" }
func (s *facadeProbeService) LinkDeepLink() string             { return "" }
