package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-onboarding/core"
)

type stubProgressReader struct {
	loadFn func(ctx context.Context, profileID string) (core.WizardProgress, core.LoadOutcome, error)
}

func (s stubProgressReader) LoadOrReset(ctx context.Context, profileID string) (core.WizardProgress, core.LoadOutcome, error) {
	return s.loadFn(ctx, profileID)
}

type stubStatusReader struct {
	statusFn func(ctx context.Context, profileID string) (core.FlowStatus, error)
}

func (s stubStatusReader) Status(ctx context.Context, profileID string) (core.FlowStatus, error) {
	return s.statusFn(ctx, profileID)
}

type stubLinkStateReader struct {
	phase     core.LinkPhase
	failure   core.FailureKind
	remaining time.Duration
	identity  string
	deepLink  string
}

func (s stubLinkStateReader) LinkingPhase() core.LinkPhase     { return s.phase }
func (s stubLinkStateReader) LinkingFailure() core.FailureKind { return s.failure }
func (s stubLinkStateReader) LinkingRemaining() time.Duration  { return s.remaining }
func (s stubLinkStateReader) LinkedIdentity() string           { return s.identity }
func (s stubLinkStateReader) LinkDeepLink() string             { return s.deepLink }

func TestGetProgressQuery_QueryDelegates(t *testing.T) {
	expected := core.NewWizardProgress("p1", time.Now())
	expected.CurrentStep = core.StepMailbox
	called := false

	reader := stubProgressReader{
		loadFn: func(_ context.Context, profileID string) (core.WizardProgress, core.LoadOutcome, error) {
			called = true
			if profileID != "p1" {
				t.Fatalf("unexpected profile: %q", profileID)
			}
			return expected, core.LoadOutcomeResumed, nil
		},
	}

	qry := NewGetProgressQuery(reader)
	view, err := qry.Query(context.Background(), GetProgressMessage{ProfileID: "p1"})
	if err != nil {
		t.Fatalf("query progress: %v", err)
	}
	if !called {
		t.Fatalf("expected progress reader invocation")
	}
	if view.Progress.CurrentStep != core.StepMailbox {
		t.Fatalf("unexpected progress view: %#v", view.Progress)
	}
	if view.Outcome != core.LoadOutcomeResumed {
		t.Fatalf("expected resumed outcome, got %q", view.Outcome)
	}
}

func TestGetProgressQuery_ReaderErrorPassesThrough(t *testing.T) {
	boom := errors.New("store unavailable")
	reader := stubProgressReader{
		loadFn: func(context.Context, string) (core.WizardProgress, core.LoadOutcome, error) {
			return core.WizardProgress{}, "", boom
		},
	}

	qry := NewGetProgressQuery(reader)
	if _, err := qry.Query(context.Background(), GetProgressMessage{ProfileID: "p1"}); !errors.Is(err, boom) {
		t.Fatalf("expected reader error passthrough, got %v", err)
	}
}

func TestGetFlowStatusQuery_QueryDelegates(t *testing.T) {
	expected := core.FlowStatus{
		ProfileID:   "p1",
		CurrentStep: core.StepFinish,
		Complete:    true,
	}

	reader := stubStatusReader{
		statusFn: func(_ context.Context, profileID string) (core.FlowStatus, error) {
			if profileID != "p1" {
				t.Fatalf("unexpected profile: %q", profileID)
			}
			return expected, nil
		},
	}

	qry := NewGetFlowStatusQuery(reader)
	status, err := qry.Query(context.Background(), GetFlowStatusMessage{ProfileID: "p1"})
	if err != nil {
		t.Fatalf("query flow status: %v", err)
	}
	if !status.Complete || status.CurrentStep != core.StepFinish {
		t.Fatalf("unexpected status: %#v", status)
	}
}

func TestGetLinkStateQuery_SnapshotsReader(t *testing.T) {
	reader := stubLinkStateReader{
		phase:     core.LinkPhaseCodeActive,
		failure:   core.FailureKindNone,
		remaining: 7 * time.Minute,
		identity:  "",
		deepLink:  "https://messenger.example/link/open?code=216EU3",
	}

	qry := NewGetLinkStateQuery(reader)
	view, err := qry.Query(context.Background(), GetLinkStateMessage{})
	if err != nil {
		t.Fatalf("query link state: %v", err)
	}
	if view.Phase != core.LinkPhaseCodeActive {
		t.Fatalf("unexpected phase: %q", view.Phase)
	}
	if view.Remaining != 7*time.Minute {
		t.Fatalf("unexpected remaining: %v", view.Remaining)
	}
	if view.DeepLink != reader.deepLink {
		t.Fatalf("unexpected deep link: %q", view.DeepLink)
	}
}
