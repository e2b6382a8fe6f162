package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

type memoryProgressStore struct {
	mu        sync.Mutex
	snapshots map[string]WizardProgress
	saves     int
}

func newMemoryProgressStore() *memoryProgressStore {
	return &memoryProgressStore{snapshots: map[string]WizardProgress{}}
}

func (s *memoryProgressStore) Save(_ context.Context, progress WizardProgress) error {
	if err := progress.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[progress.ProfileID] = progress.Clone()
	s.saves++
	return nil
}

func (s *memoryProgressStore) Load(_ context.Context, profileID string) (WizardProgress, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	progress, ok := s.snapshots[strings.TrimSpace(profileID)]
	if !ok {
		return WizardProgress{}, false, nil
	}
	return progress.Clone(), true, nil
}

func (s *memoryProgressStore) Delete(_ context.Context, profileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, strings.TrimSpace(profileID))
	return nil
}

func (s *memoryProgressStore) PurgeStale(_ context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	purged := 0
	for id, progress := range s.snapshots {
		if progress.LastUpdated.Before(olderThan) {
			delete(s.snapshots, id)
			purged++
		}
	}
	return purged, nil
}

type fakeAccountGateway struct {
	mu            sync.Mutex
	authURL       string
	authState     string
	fetchErr      error
	exchangeErr   error
	exchangeCred  AccessCredential
	exchangeCalls int
	valid         bool
	validateErr   error
	validateCalls int
}

func (g *fakeAccountGateway) FetchAuthorizationURL(context.Context) (BeginConnectResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fetchErr != nil {
		return BeginConnectResponse{}, g.fetchErr
	}
	url := g.authURL
	if url == "" {
		url = "https://provider.example/authorize"
	}
	return BeginConnectResponse{URL: url, State: g.authState}, nil
}

func (g *fakeAccountGateway) ExchangeCode(_ context.Context, code, state string) (ExchangeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.exchangeCalls++
	if g.exchangeErr != nil {
		return ExchangeResult{}, g.exchangeErr
	}
	cred := g.exchangeCred
	if cred.Empty() {
		cred = AccessCredential{TokenType: "bearer", AccessToken: "tok-" + code}
	}
	return ExchangeResult{Credential: cred, AccountIdentity: "acct@example.com"}, nil
}

func (g *fakeAccountGateway) ValidateCredential(context.Context) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.validateCalls++
	if g.validateErr != nil {
		return false, g.validateErr
	}
	return g.valid, nil
}

type fakeMessagingGateway struct {
	mu          sync.Mutex
	code        LinkingCode
	issueErr    error
	issueCalls  int
	statuses    []LinkingStatus
	statusErrs  []error
	checkCalls  int
	checkedCode []string
}

func (g *fakeMessagingGateway) IssueLinkingCode(context.Context) (LinkingCode, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.issueCalls++
	if g.issueErr != nil {
		return LinkingCode{}, g.issueErr
	}
	code := g.code
	if code.Code == "" {
		code.Code = fmt.Sprintf("CODE%d", g.issueCalls)
	}
	return code, nil
}

func (g *fakeMessagingGateway) CheckLinkingStatus(_ context.Context, code string) (LinkingStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	call := g.checkCalls
	g.checkCalls++
	g.checkedCode = append(g.checkedCode, code)
	if call < len(g.statusErrs) && g.statusErrs[call] != nil {
		return LinkingStatus{}, g.statusErrs[call]
	}
	if call < len(g.statuses) {
		return g.statuses[call], nil
	}
	return LinkingStatus{}, nil
}

func (g *fakeMessagingGateway) DeepLinkURI(code string) string {
	return "https://m.example/link?code=" + code
}

func (g *fakeMessagingGateway) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.checkCalls
}

func (g *fakeMessagingGateway) issues() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.issueCalls
}

type recordingNotifier struct {
	mu       sync.Mutex
	err      error
	profiles []string
}

func (n *recordingNotifier) NotifyCompleted(_ context.Context, profileID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.profiles = append(n.profiles, profileID)
	return n.err
}

type recordingQueue struct {
	mu       sync.Mutex
	err      error
	enqueued []string
}

func (q *recordingQueue) EnqueueCompletionAck(_ context.Context, profileID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.enqueued = append(q.enqueued, profileID)
	return q.err
}

type recordingHook struct {
	mu        sync.Mutex
	steps     []Step
	completed []string
}

func (h *recordingHook) OnStepChanged(_ context.Context, status FlowStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.steps = append(h.steps, status.CurrentStep)
}

func (h *recordingHook) OnFlowComplete(_ context.Context, profileID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.completed = append(h.completed, profileID)
}

type stubLogger struct{}

func (stubLogger) Trace(string, ...any) {}
func (stubLogger) Debug(string, ...any) {}
func (stubLogger) Info(string, ...any)  {}
func (stubLogger) Warn(string, ...any)  {}
func (stubLogger) Error(string, ...any) {}
func (stubLogger) Fatal(string, ...any) {}
func (s stubLogger) WithContext(context.Context) Logger {
	return s
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

type mapRawLoader struct {
	values map[string]any
}

func (l mapRawLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.values))
	for key, value := range l.values {
		out[key] = value
	}
	return out, nil
}

var errBoom = errors.New("boom")
