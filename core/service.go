package core

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// Service owns the guided connection flow: the step sequencer, the mailbox
// authorization round trip, the messenger linking handshake, and the
// collaborator-facing status surface.
type Service struct {
	config             Config
	logger             Logger
	loggerProvider     LoggerProvider
	metricsRecorder    MetricsRecorder
	errorFactory       ErrorFactory
	errorMapper        ErrorMapper
	persistenceClient  any
	repositoryFactory  any
	configProvider     ConfigProvider
	optionsResolver    OptionsResolver
	progressStore      ProgressStore
	credentialHolder   CredentialHolder
	authSessionStore   AuthSessionStore
	accountGateway     AccountGateway
	messagingGateway   MessagingGateway
	completionNotifier CompletionNotifier
	completionQueue    CompletionQueue
	flowHooks          []FlowHook

	now func() time.Time

	connectMu        sync.Mutex
	connectPhase     ConnectPhase
	connectFailure   FailureKind
	connectProfileID string

	linkMu         sync.Mutex
	linkPhase      LinkPhase
	linkCode       LinkingCode
	linkProfileID  string
	linkIdentity   string
	linkGeneration uint64
	linkCancel     chan struct{}
	linkFailure    FailureKind
}

type ServiceDependencies struct {
	Logger             Logger
	LoggerProvider     LoggerProvider
	MetricsRecorder    MetricsRecorder
	ErrorFactory       ErrorFactory
	ErrorMapper        ErrorMapper
	PersistenceClient  any
	RepositoryFactory  any
	ConfigProvider     ConfigProvider
	OptionsResolver    OptionsResolver
	ProgressStore      ProgressStore
	CredentialHolder   CredentialHolder
	AuthSessionStore   AuthSessionStore
	AccountGateway     AccountGateway
	MessagingGateway   MessagingGateway
	CompletionNotifier CompletionNotifier
	CompletionQueue    CompletionQueue
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("onboarding", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("onboarding"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.credentialHolder == nil {
		builder.credentialHolder = NewMemoryCredentialHolder()
	}
	if builder.authSessionStore == nil {
		builder.authSessionStore = NewMemoryAuthSessionStore(DefaultAuthSessionTTL)
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.progressStore == nil && builder.repositoryFactory != nil {
		if storeFactory, ok := builder.repositoryFactory.(RepositoryStoreFactory); ok {
			provider, buildErr := storeFactory.BuildStores(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			if provider != nil {
				builder.progressStore = provider.ProgressStore()
			}
		} else if provider, ok := builder.repositoryFactory.(StoreProvider); ok {
			builder.progressStore = provider.ProgressStore()
		}
	}

	return &Service{
		config:             finalConfig,
		logger:             logger,
		loggerProvider:     provider,
		metricsRecorder:    builder.metricsRecorder,
		errorFactory:       builder.errorFactory,
		errorMapper:        builder.errorMapper,
		persistenceClient:  builder.persistenceClient,
		repositoryFactory:  builder.repositoryFactory,
		configProvider:     builder.configProvider,
		optionsResolver:    builder.optionsResolver,
		progressStore:      builder.progressStore,
		credentialHolder:   builder.credentialHolder,
		authSessionStore:   builder.authSessionStore,
		accountGateway:     builder.accountGateway,
		messagingGateway:   builder.messagingGateway,
		completionNotifier: builder.completionNotifier,
		completionQueue:    builder.completionQueue,
		flowHooks:          append([]FlowHook(nil), builder.flowHooks...),
		now:                time.Now,
		connectPhase:       ConnectPhaseIdle,
		linkPhase:          LinkPhaseIdle,
	}, nil
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return NewService(cfg, opts...)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:             s.logger,
		LoggerProvider:     s.loggerProvider,
		MetricsRecorder:    s.metricsRecorder,
		ErrorFactory:       s.errorFactory,
		ErrorMapper:        s.errorMapper,
		PersistenceClient:  s.persistenceClient,
		RepositoryFactory:  s.repositoryFactory,
		ConfigProvider:     s.configProvider,
		OptionsResolver:    s.optionsResolver,
		ProgressStore:      s.progressStore,
		CredentialHolder:   s.credentialHolder,
		AuthSessionStore:   s.authSessionStore,
		AccountGateway:     s.accountGateway,
		MessagingGateway:   s.messagingGateway,
		CompletionNotifier: s.completionNotifier,
		CompletionQueue:    s.completionQueue,
	}
}

func (s *Service) clock() time.Time {
	if s == nil || s.now == nil {
		return time.Now()
	}
	return s.now()
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}
