package sqlstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/goliatone/go-onboarding/core"
)

type stubProgressStore struct {
	mu          sync.Mutex
	progress    map[string]core.WizardProgress
	loadCalls   int
	saveCalls   int
	deleteCalls int
	loadErr     error
	saveErr     error
}

func newStubProgressStore() *stubProgressStore {
	return &stubProgressStore{progress: map[string]core.WizardProgress{}}
}

func (s *stubProgressStore) Save(_ context.Context, progress core.WizardProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveCalls++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.progress[progress.ProfileID] = progress.Clone()
	return nil
}

func (s *stubProgressStore) Load(_ context.Context, profileID string) (core.WizardProgress, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadCalls++
	if s.loadErr != nil {
		return core.WizardProgress{}, false, s.loadErr
	}
	stored, ok := s.progress[profileID]
	if !ok {
		return core.WizardProgress{}, false, nil
	}
	return stored.Clone(), true, nil
}

func (s *stubProgressStore) Delete(_ context.Context, profileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteCalls++
	delete(s.progress, profileID)
	return nil
}

func (s *stubProgressStore) PurgeStale(_ context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	purged := 0
	for key, stored := range s.progress {
		if stored.LastUpdated.Before(olderThan) {
			delete(s.progress, key)
			purged++
		}
	}
	return purged, nil
}

func newTestProgressCacheService(t *testing.T) repositorycache.CacheService {
	t.Helper()
	config := repositorycache.DefaultConfig()
	config.TTL = time.Minute
	service, err := repositorycache.NewCacheService(config)
	if err != nil {
		t.Fatalf("new cache service: %v", err)
	}
	return service
}

func seedProgress(profileID string) core.WizardProgress {
	progress := core.NewWizardProgress(profileID, time.Now())
	progress.CurrentStep = core.StepMessenger
	progress.StepFlags[core.FlagMailboxConnected] = true
	return progress
}

func TestCachedProgressStore_Load_MissFetchThenHit(t *testing.T) {
	base := newStubProgressStore()
	base.progress["p1"] = seedProgress("p1")

	store, err := NewCachedProgressStore(base, newTestProgressCacheService(t))
	if err != nil {
		t.Fatalf("new cached progress store: %v", err)
	}

	loaded, found, err := store.Load(context.Background(), "p1")
	if err != nil || !found {
		t.Fatalf("first load: found=%v err=%v", found, err)
	}
	if loaded.CurrentStep != core.StepMessenger {
		t.Fatalf("expected cached snapshot step, got %v", loaded.CurrentStep)
	}
	if base.loadCalls != 1 {
		t.Fatalf("expected one base load, got %d", base.loadCalls)
	}

	if _, _, err := store.Load(context.Background(), "p1"); err != nil {
		t.Fatalf("second load: %v", err)
	}
	if base.loadCalls != 1 {
		t.Fatalf("expected cache hit on second load, base calls=%d", base.loadCalls)
	}
}

func TestCachedProgressStore_SaveInvalidatesCacheEntry(t *testing.T) {
	base := newStubProgressStore()
	base.progress["p1"] = seedProgress("p1")

	store, err := NewCachedProgressStore(base, newTestProgressCacheService(t))
	if err != nil {
		t.Fatalf("new cached progress store: %v", err)
	}

	if _, _, err := store.Load(context.Background(), "p1"); err != nil {
		t.Fatalf("prime cache: %v", err)
	}

	updated := seedProgress("p1")
	updated.CurrentStep = core.StepCategories
	updated.StepFlags[core.FlagMessengerLinked] = true
	if err := store.Save(context.Background(), updated); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, found, err := store.Load(context.Background(), "p1")
	if err != nil || !found {
		t.Fatalf("load after save: found=%v err=%v", found, err)
	}
	if loaded.CurrentStep != core.StepCategories {
		t.Fatalf("expected fresh snapshot after invalidation, got step %v", loaded.CurrentStep)
	}
	if base.loadCalls != 2 {
		t.Fatalf("expected base reload after invalidation, got %d calls", base.loadCalls)
	}
}

func TestCachedProgressStore_DeleteInvalidatesCacheEntry(t *testing.T) {
	base := newStubProgressStore()
	base.progress["p1"] = seedProgress("p1")

	store, err := NewCachedProgressStore(base, newTestProgressCacheService(t))
	if err != nil {
		t.Fatalf("new cached progress store: %v", err)
	}

	if _, _, err := store.Load(context.Background(), "p1"); err != nil {
		t.Fatalf("prime cache: %v", err)
	}
	if err := store.Delete(context.Background(), "p1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	_, found, err := store.Load(context.Background(), "p1")
	if err != nil {
		t.Fatalf("load after delete: %v", err)
	}
	if found {
		t.Fatalf("expected snapshot gone after delete")
	}
}

func TestCachedProgressStore_BaseErrorNotCached(t *testing.T) {
	base := newStubProgressStore()
	base.loadErr = errors.New("db offline")

	store, err := NewCachedProgressStore(base, newTestProgressCacheService(t))
	if err != nil {
		t.Fatalf("new cached progress store: %v", err)
	}

	if _, _, err := store.Load(context.Background(), "p1"); err == nil {
		t.Fatalf("expected base error to surface")
	}

	base.mu.Lock()
	base.loadErr = nil
	base.progress["p1"] = seedProgress("p1")
	base.mu.Unlock()

	_, found, err := store.Load(context.Background(), "p1")
	if err != nil || !found {
		t.Fatalf("expected recovery after base error, found=%v err=%v", found, err)
	}
}

func TestProgressCacheKey_EscapesProfileSegment(t *testing.T) {
	key, err := ProgressCacheKey("profiles/p 1")
	if err != nil {
		t.Fatalf("cache key: %v", err)
	}
	if key != "go-onboarding::wizard_progress::v1::profiles%2Fp%201" {
		t.Fatalf("unexpected cache key %q", key)
	}

	if _, err := ProgressCacheKey("  "); err == nil {
		t.Fatalf("expected error for blank profile id")
	}
}
