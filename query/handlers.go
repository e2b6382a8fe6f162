package query

import (
	"context"
	"time"

	"github.com/goliatone/go-onboarding/core"
)

type ProgressReader interface {
	LoadOrReset(ctx context.Context, profileID string) (core.WizardProgress, core.LoadOutcome, error)
}

type StatusReader interface {
	Status(ctx context.Context, profileID string) (core.FlowStatus, error)
}

// LinkStateReader exposes the in-memory linking snapshot the UI polls
// between ticks.
type LinkStateReader interface {
	LinkingPhase() core.LinkPhase
	LinkingFailure() core.FailureKind
	LinkingRemaining() time.Duration
	LinkedIdentity() string
	LinkDeepLink() string
}

// ProgressView pairs the loaded progress with how the load resolved, so
// callers can tell a resumed session from a stale or invalid reset.
type ProgressView struct {
	Progress core.WizardProgress
	Outcome  core.LoadOutcome
}

// LinkStateView is a point-in-time copy of the linking session state.
type LinkStateView struct {
	Phase     core.LinkPhase
	Failure   core.FailureKind
	Remaining time.Duration
	Identity  string
	DeepLink  string
}

type GetProgressQuery struct {
	reader ProgressReader
}

func NewGetProgressQuery(reader ProgressReader) *GetProgressQuery {
	return &GetProgressQuery{reader: reader}
}

func (q *GetProgressQuery) Query(ctx context.Context, msg GetProgressMessage) (ProgressView, error) {
	if q == nil || q.reader == nil {
		return ProgressView{}, queryDependencyError("query: progress reader is required")
	}
	progress, outcome, err := q.reader.LoadOrReset(ctx, msg.ProfileID)
	if err != nil {
		return ProgressView{}, err
	}
	return ProgressView{Progress: progress, Outcome: outcome}, nil
}

type GetFlowStatusQuery struct {
	reader StatusReader
}

func NewGetFlowStatusQuery(reader StatusReader) *GetFlowStatusQuery {
	return &GetFlowStatusQuery{reader: reader}
}

func (q *GetFlowStatusQuery) Query(ctx context.Context, msg GetFlowStatusMessage) (core.FlowStatus, error) {
	if q == nil || q.reader == nil {
		return core.FlowStatus{}, queryDependencyError("query: status reader is required")
	}
	return q.reader.Status(ctx, msg.ProfileID)
}

type GetLinkStateQuery struct {
	reader LinkStateReader
}

func NewGetLinkStateQuery(reader LinkStateReader) *GetLinkStateQuery {
	return &GetLinkStateQuery{reader: reader}
}

func (q *GetLinkStateQuery) Query(_ context.Context, _ GetLinkStateMessage) (LinkStateView, error) {
	if q == nil || q.reader == nil {
		return LinkStateView{}, queryDependencyError("query: link state reader is required")
	}
	return LinkStateView{
		Phase:     q.reader.LinkingPhase(),
		Failure:   q.reader.LinkingFailure(),
		Remaining: q.reader.LinkingRemaining(),
		Identity:  q.reader.LinkedIdentity(),
		DeepLink:  q.reader.LinkDeepLink(),
	}, nil
}
