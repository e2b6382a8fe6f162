package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
)

type ErrorFactory func(message string, category ...goerrors.Category) *goerrors.Error

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type serviceBuilder struct {
	runtimeConfig      Config
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
}

type Option func(*serviceBuilder)

func WithLogger(logger Logger) Option {
	return func(b *serviceBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *serviceBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *serviceBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorFactory(factory ErrorFactory) Option {
	return func(b *serviceBuilder) {
		b.errorFactory = factory
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *serviceBuilder) {
		b.errorMapper = mapper
	}
}

func WithPersistenceClient(client any) Option {
	return func(b *serviceBuilder) {
		b.persistenceClient = client
	}
}

func WithRepositoryFactory(factory any) Option {
	return func(b *serviceBuilder) {
		b.repositoryFactory = factory
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *serviceBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *serviceBuilder) {
		b.optionsResolver = resolver
	}
}

func WithProgressStore(store ProgressStore) Option {
	return func(b *serviceBuilder) {
		b.progressStore = store
	}
}

func WithCredentialHolder(holder CredentialHolder) Option {
	return func(b *serviceBuilder) {
		b.credentialHolder = holder
	}
}

func WithAuthSessionStore(store AuthSessionStore) Option {
	return func(b *serviceBuilder) {
		b.authSessionStore = store
	}
}

func WithAccountGateway(gateway AccountGateway) Option {
	return func(b *serviceBuilder) {
		b.accountGateway = gateway
	}
}

func WithMessagingGateway(gateway MessagingGateway) Option {
	return func(b *serviceBuilder) {
		b.messagingGateway = gateway
	}
}

func WithCompletionNotifier(notifier CompletionNotifier) Option {
	return func(b *serviceBuilder) {
		b.completionNotifier = notifier
	}
}

func WithCompletionQueue(queue CompletionQueue) Option {
	return func(b *serviceBuilder) {
		b.completionQueue = queue
	}
}

func WithFlowHook(hook FlowHook) Option {
	return func(b *serviceBuilder) {
		if hook != nil {
			b.flowHooks = append(b.flowHooks, hook)
		}
	}
}

func defaultServiceBuilder(runtime Config) serviceBuilder {
	loggerProvider, logger := glog.Resolve("onboarding", nil, nil)
	return serviceBuilder{
		runtimeConfig:   runtime,
		loggerProvider:  loggerProvider,
		logger:          logger,
		metricsRecorder: NopMetricsRecorder{},
		errorFactory:    goerrors.New,
		errorMapper:     defaultErrorMapper,
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
	}
}

func defaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	return onboardingErrorMapper(err)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}

	wizard := map[string]any{}
	if includeZero || cfg.Wizard.StaleAfter > 0 {
		wizard["stale_after"] = cfg.Wizard.StaleAfter
	}
	if len(wizard) > 0 {
		layer["wizard"] = wizard
	}

	linking := map[string]any{}
	if includeZero || cfg.Linking.CodeTTL > 0 {
		linking["code_ttl"] = cfg.Linking.CodeTTL
	}
	if includeZero || cfg.Linking.PollInterval > 0 {
		linking["poll_interval"] = cfg.Linking.PollInterval
	}
	if includeZero || cfg.Linking.CountdownTick > 0 {
		linking["countdown_tick"] = cfg.Linking.CountdownTick
	}
	if len(linking) > 0 {
		layer["linking"] = linking
	}

	gateway := map[string]any{}
	if includeZero || cfg.Gateway.MaxAttempts > 0 {
		gateway["max_attempts"] = cfg.Gateway.MaxAttempts
	}
	if includeZero || cfg.Gateway.RetryDelay > 0 {
		gateway["retry_delay"] = cfg.Gateway.RetryDelay
	}
	if len(gateway) > 0 {
		layer["gateway"] = gateway
	}

	return layer
}
