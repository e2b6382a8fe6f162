package onboarding

import (
	"fmt"

	onboardingcommand "github.com/goliatone/go-onboarding/command"
	onboardingquery "github.com/goliatone/go-onboarding/query"
)

// CommandQueryService is the surface the facade wires commands and queries
// against. *core.Service satisfies it.
type CommandQueryService interface {
	onboardingcommand.MutatingService
	onboardingquery.ProgressReader
	onboardingquery.StatusReader
	onboardingquery.LinkStateReader
}

type Commands struct {
	BeginConnect       *onboardingcommand.BeginConnectCommand
	CompleteCallback   *onboardingcommand.CompleteCallbackCommand
	RequestLinkingCode *onboardingcommand.RequestLinkingCodeCommand
	StopLinking        *onboardingcommand.StopLinkingCommand
	AdvanceStep        *onboardingcommand.AdvanceStepCommand
	RetreatStep        *onboardingcommand.RetreatStepCommand
	RecordCompletion   *onboardingcommand.RecordCompletionCommand
	CompleteFlow       *onboardingcommand.CompleteFlowCommand
}

type Queries struct {
	GetProgress   *onboardingquery.GetProgressQuery
	GetFlowStatus *onboardingquery.GetFlowStatusQuery
	GetLinkState  *onboardingquery.GetLinkStateQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	progressReader onboardingquery.ProgressReader
	statusReader   onboardingquery.StatusReader
}

// WithProgressReader routes progress reads through a different reader than
// the mutating service, e.g. a cache-backed one.
func WithProgressReader(reader onboardingquery.ProgressReader) FacadeOption {
	return func(options *facadeOptions) {
		options.progressReader = reader
	}
}

func WithStatusReader(reader onboardingquery.StatusReader) FacadeOption {
	return func(options *facadeOptions) {
		options.statusReader = reader
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("onboarding: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	progressReader := cfg.progressReader
	if progressReader == nil {
		progressReader = service
	}
	statusReader := cfg.statusReader
	if statusReader == nil {
		statusReader = service
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		BeginConnect:       onboardingcommand.NewBeginConnectCommand(service),
		CompleteCallback:   onboardingcommand.NewCompleteCallbackCommand(service),
		RequestLinkingCode: onboardingcommand.NewRequestLinkingCodeCommand(service),
		StopLinking:        onboardingcommand.NewStopLinkingCommand(service),
		AdvanceStep:        onboardingcommand.NewAdvanceStepCommand(service),
		RetreatStep:        onboardingcommand.NewRetreatStepCommand(service),
		RecordCompletion:   onboardingcommand.NewRecordCompletionCommand(service),
		CompleteFlow:       onboardingcommand.NewCompleteFlowCommand(service),
	}
	facade.queries = Queries{
		GetProgress:   onboardingquery.NewGetProgressQuery(progressReader),
		GetFlowStatus: onboardingquery.NewGetFlowStatusQuery(statusReader),
		GetLinkState:  onboardingquery.NewGetLinkStateQuery(service),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}
