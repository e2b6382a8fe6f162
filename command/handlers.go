package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-onboarding/core"
)

type MutatingService interface {
	BeginConnect(ctx context.Context, profileID string) (core.BeginConnectResponse, error)
	CompleteConnectCallback(ctx context.Context, req core.CallbackRequest) error
	RequestLinkingCode(ctx context.Context, profileID string) (core.LinkingCode, error)
	StartLinkPolling(ctx context.Context) error
	StopLinkPolling(ctx context.Context)
	Advance(ctx context.Context, profileID string) (core.WizardProgress, error)
	Retreat(ctx context.Context, profileID string) (core.WizardProgress, error)
	RecordCompletion(ctx context.Context, profileID string, partial core.PartialProgress) (core.WizardProgress, error)
	Complete(ctx context.Context, profileID string) error
}

type BeginConnectCommand struct {
	service MutatingService
}

func NewBeginConnectCommand(service MutatingService) *BeginConnectCommand {
	return &BeginConnectCommand{service: service}
}

func (c *BeginConnectCommand) Execute(ctx context.Context, msg BeginConnectMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: connect service is required")
	}
	out, err := c.service.BeginConnect(ctx, msg.ProfileID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type CompleteCallbackCommand struct {
	service MutatingService
}

func NewCompleteCallbackCommand(service MutatingService) *CompleteCallbackCommand {
	return &CompleteCallbackCommand{service: service}
}

func (c *CompleteCallbackCommand) Execute(ctx context.Context, msg CompleteCallbackMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: callback service is required")
	}
	return c.service.CompleteConnectCallback(ctx, msg.Request)
}

// RequestLinkingCodeCommand issues a fresh linking code and starts the
// countdown and verification polling for it.
type RequestLinkingCodeCommand struct {
	service MutatingService
}

func NewRequestLinkingCodeCommand(service MutatingService) *RequestLinkingCodeCommand {
	return &RequestLinkingCodeCommand{service: service}
}

func (c *RequestLinkingCodeCommand) Execute(ctx context.Context, msg RequestLinkingCodeMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: linking service is required")
	}
	code, err := c.service.RequestLinkingCode(ctx, msg.ProfileID)
	if err != nil {
		return err
	}
	if err := c.service.StartLinkPolling(ctx); err != nil {
		return err
	}
	storeResult(ctx, code)
	return nil
}

type StopLinkingCommand struct {
	service MutatingService
}

func NewStopLinkingCommand(service MutatingService) *StopLinkingCommand {
	return &StopLinkingCommand{service: service}
}

func (c *StopLinkingCommand) Execute(ctx context.Context, msg StopLinkingMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: linking service is required")
	}
	c.service.StopLinkPolling(ctx)
	return nil
}

type AdvanceStepCommand struct {
	service MutatingService
}

func NewAdvanceStepCommand(service MutatingService) *AdvanceStepCommand {
	return &AdvanceStepCommand{service: service}
}

func (c *AdvanceStepCommand) Execute(ctx context.Context, msg AdvanceStepMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: sequencer service is required")
	}
	out, err := c.service.Advance(ctx, msg.ProfileID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RetreatStepCommand struct {
	service MutatingService
}

func NewRetreatStepCommand(service MutatingService) *RetreatStepCommand {
	return &RetreatStepCommand{service: service}
}

func (c *RetreatStepCommand) Execute(ctx context.Context, msg RetreatStepMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: sequencer service is required")
	}
	out, err := c.service.Retreat(ctx, msg.ProfileID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RecordCompletionCommand struct {
	service MutatingService
}

func NewRecordCompletionCommand(service MutatingService) *RecordCompletionCommand {
	return &RecordCompletionCommand{service: service}
}

func (c *RecordCompletionCommand) Execute(ctx context.Context, msg RecordCompletionMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: sequencer service is required")
	}
	out, err := c.service.RecordCompletion(ctx, msg.ProfileID, msg.Partial)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type CompleteFlowCommand struct {
	service MutatingService
}

func NewCompleteFlowCommand(service MutatingService) *CompleteFlowCommand {
	return &CompleteFlowCommand{service: service}
}

func (c *CompleteFlowCommand) Execute(ctx context.Context, msg CompleteFlowMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: sequencer service is required")
	}
	return c.service.Complete(ctx, msg.ProfileID)
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
