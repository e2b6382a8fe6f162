package command

import (
	"strings"

	"github.com/goliatone/go-onboarding/core"
)

const (
	TypeBeginConnect       = "onboarding.command.connect.begin"
	TypeCompleteCallback   = "onboarding.command.connect.complete_callback"
	TypeRequestLinkingCode = "onboarding.command.linking.request_code"
	TypeStopLinking        = "onboarding.command.linking.stop"
	TypeAdvanceStep        = "onboarding.command.step.advance"
	TypeRetreatStep        = "onboarding.command.step.retreat"
	TypeRecordCompletion   = "onboarding.command.progress.record"
	TypeCompleteFlow       = "onboarding.command.flow.complete"
)

type BeginConnectMessage struct {
	ProfileID string
}

func (BeginConnectMessage) Type() string { return TypeBeginConnect }

func (m BeginConnectMessage) Validate() error {
	return validateProfileID(m.ProfileID)
}

// CompleteCallbackMessage carries the provider redirect parameters. Code may
// be empty when the provider reported a denial; State is always required so
// the stashed CSRF binding can be consumed.
type CompleteCallbackMessage struct {
	Request core.CallbackRequest
}

func (CompleteCallbackMessage) Type() string { return TypeCompleteCallback }

func (m CompleteCallbackMessage) Validate() error {
	if strings.TrimSpace(m.Request.State) == "" {
		return commandValidationError("state", "callback state is required")
	}
	return nil
}

type RequestLinkingCodeMessage struct {
	ProfileID string
}

func (RequestLinkingCodeMessage) Type() string { return TypeRequestLinkingCode }

func (m RequestLinkingCodeMessage) Validate() error {
	return validateProfileID(m.ProfileID)
}

type StopLinkingMessage struct{}

func (StopLinkingMessage) Type() string { return TypeStopLinking }

func (StopLinkingMessage) Validate() error { return nil }

type AdvanceStepMessage struct {
	ProfileID string
}

func (AdvanceStepMessage) Type() string { return TypeAdvanceStep }

func (m AdvanceStepMessage) Validate() error {
	return validateProfileID(m.ProfileID)
}

type RetreatStepMessage struct {
	ProfileID string
}

func (RetreatStepMessage) Type() string { return TypeRetreatStep }

func (m RetreatStepMessage) Validate() error {
	return validateProfileID(m.ProfileID)
}

type RecordCompletionMessage struct {
	ProfileID string
	Partial   core.PartialProgress
}

func (RecordCompletionMessage) Type() string { return TypeRecordCompletion }

func (m RecordCompletionMessage) Validate() error {
	if err := validateProfileID(m.ProfileID); err != nil {
		return err
	}
	if m.Partial.Step != nil && !m.Partial.Step.Valid() {
		return commandValidationError("step", "step is out of range")
	}
	for _, item := range m.Partial.AppendItems {
		if err := item.Validate(); err != nil {
			return commandWrapValidation(err, "command: invalid collected item")
		}
	}
	return nil
}

type CompleteFlowMessage struct {
	ProfileID string
}

func (CompleteFlowMessage) Type() string { return TypeCompleteFlow }

func (m CompleteFlowMessage) Validate() error {
	return validateProfileID(m.ProfileID)
}

func validateProfileID(profileID string) error {
	if strings.TrimSpace(profileID) == "" {
		return commandValidationError("profile_id", "profile id is required")
	}
	return nil
}
