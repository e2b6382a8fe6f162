package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// BeginConnectResponse carries the provider authorization URL plus the CSRF
// state embedded in it by the server. The state is held tab-scoped until the
// callback returns.
type BeginConnectResponse struct {
	URL              string
	State            string
	AlreadyConnected bool
}

// CallbackRequest is the query-parameter payload the browser brings back
// from the provider redirect. ProviderError carries the provider's explicit
// denial signal (e.g. "access_denied") when the user refused consent.
type CallbackRequest struct {
	Code          string
	State         string
	ProviderError string
}

// ExchangeResult is the outcome of trading the authorization code for a
// credential.
type ExchangeResult struct {
	Credential      AccessCredential
	AccountIdentity string
}

// LinkingStatus is a single poll observation against the verification
// endpoint.
type LinkingStatus struct {
	Verified bool
	Identity string
}

// GatewayRequest is the transport-neutral outbound call shape. The gateway
// attaches the bearer credential; callers never set Authorization themselves.
type GatewayRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Query   map[string]string
	Body    []byte
	Timeout time.Duration
}

type GatewayResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// Gateway is the resilient HTTP surface every backend call goes through:
// bearer attachment, coordinated refresh on 401, bounded retry of transport
// failures, and typed error normalization.
type Gateway interface {
	Do(ctx context.Context, req GatewayRequest) (GatewayResponse, error)
}

// AccountGateway drives the mailbox provider backend: authorization URL
// issuance, code exchange, and credential validation for resume.
type AccountGateway interface {
	FetchAuthorizationURL(ctx context.Context) (BeginConnectResponse, error)
	ExchangeCode(ctx context.Context, code, state string) (ExchangeResult, error)
	ValidateCredential(ctx context.Context) (bool, error)
}

// MessagingGateway drives the messenger bot backend: linking code issuance
// and verification polling. Issuing a code invalidates any prior code for
// the session.
type MessagingGateway interface {
	IssueLinkingCode(ctx context.Context) (LinkingCode, error)
	CheckLinkingStatus(ctx context.Context, code string) (LinkingStatus, error)
	DeepLinkURI(code string) string
}

// CompletionNotifier tells the backend the flow finished. The call is
// advisory: local completion never blocks on it.
type CompletionNotifier interface {
	NotifyCompleted(ctx context.Context, profileID string) error
}

// CompletionQueue accepts a retryable completion acknowledgment when the
// synchronous notify fails. Implementations are expected to be durable
// enough to retry out of band; a nil queue is tolerated.
type CompletionQueue interface {
	EnqueueCompletionAck(ctx context.Context, profileID string) error
}

// ProgressStore persists the wizard snapshot. Save overwrites wholesale and
// is atomic from the caller's perspective.
type ProgressStore interface {
	Save(ctx context.Context, progress WizardProgress) error
	Load(ctx context.Context, profileID string) (WizardProgress, bool, error)
	Delete(ctx context.Context, profileID string) error
	PurgeStale(ctx context.Context, olderThan time.Time) (int, error)
}

// CredentialHolder is the process-wide home of the access credential.
// Mutation is always a full replace.
type CredentialHolder interface {
	Set(cred AccessCredential)
	Get() (AccessCredential, bool)
	Clear()
}

// AuthSessionRecord is the ephemeral, single-use CSRF binding for one
// authorization round trip. It never reaches durable storage.
type AuthSessionRecord struct {
	State     string
	ProfileID string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// AuthSessionStore holds the record between Begin and the callback, one
// active record per profile. Save overwrites any earlier record for the
// same profile. Consume removes the profile's record before the caller
// compares the presented state against it, so the stashed state is burned
// by every callback whatever its outcome and can never be replayed.
type AuthSessionStore interface {
	Save(ctx context.Context, record AuthSessionRecord) error
	Consume(ctx context.Context, profileID string) (AuthSessionRecord, error)
}

// FlowHook observes sequencer milestones. Hooks run inline and must be
// cheap; failures are logged and ignored.
type FlowHook interface {
	OnStepChanged(ctx context.Context, status FlowStatus)
	OnFlowComplete(ctx context.Context, profileID string)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// StoreProvider exposes the persistence-backed stores a repository factory
// builds.
type StoreProvider interface {
	ProgressStore() ProgressStore
}

// RepositoryStoreFactory builds stores from a persistence client
// (*persistence.Client, *bun.DB, or anything exposing DB() *bun.DB).
type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}
