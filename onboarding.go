package onboarding

import "github.com/goliatone/go-onboarding/core"

type Config = core.Config

type WizardConfig = core.WizardConfig
type LinkingConfig = core.LinkingConfig
type GatewayConfig = core.GatewayConfig

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies
type ProgressStore = core.ProgressStore
type CredentialHolder = core.CredentialHolder
type AuthSessionStore = core.AuthSessionStore
type AccountGateway = core.AccountGateway
type MessagingGateway = core.MessagingGateway
type CompletionNotifier = core.CompletionNotifier
type CompletionQueue = core.CompletionQueue
type FlowHook = core.FlowHook
type MetricsRecorder = core.MetricsRecorder

type Step = core.Step
type WizardProgress = core.WizardProgress
type PartialProgress = core.PartialProgress
type CollectedItem = core.CollectedItem
type AccessCredential = core.AccessCredential
type LinkingCode = core.LinkingCode
type FlowStatus = core.FlowStatus
type LoadOutcome = core.LoadOutcome

type BeginConnectResponse = core.BeginConnectResponse
type CallbackRequest = core.CallbackRequest

var (
	WithLogger             = core.WithLogger
	WithLoggerProvider     = core.WithLoggerProvider
	WithMetricsRecorder    = core.WithMetricsRecorder
	WithErrorFactory       = core.WithErrorFactory
	WithErrorMapper        = core.WithErrorMapper
	WithPersistenceClient  = core.WithPersistenceClient
	WithRepositoryFactory  = core.WithRepositoryFactory
	WithConfigProvider     = core.WithConfigProvider
	WithOptionsResolver    = core.WithOptionsResolver
	WithProgressStore      = core.WithProgressStore
	WithCredentialHolder   = core.WithCredentialHolder
	WithAuthSessionStore   = core.WithAuthSessionStore
	WithAccountGateway     = core.WithAccountGateway
	WithMessagingGateway   = core.WithMessagingGateway
	WithCompletionNotifier = core.WithCompletionNotifier
	WithCompletionQueue    = core.WithCompletionQueue
	WithFlowHook           = core.WithFlowHook
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}
