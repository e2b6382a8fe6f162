package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/goliatone/go-onboarding/core"
)

const progressCacheKeyPrefix = "go-onboarding::wizard_progress::v1"

// CachedProgressStore layers a read cache over a ProgressStore. Writes go
// through to the base store and invalidate the profile's cache entry.
// PurgeStale cannot enumerate cache keys; purged entries age out on the
// cache's own TTL.
type CachedProgressStore struct {
	base  core.ProgressStore
	cache repositorycache.CacheService
}

func NewCachedProgressStore(
	base core.ProgressStore,
	cacheService repositorycache.CacheService,
) (*CachedProgressStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base progress store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: progress cache service is required")
	}
	return &CachedProgressStore{base: base, cache: cacheService}, nil
}

// ProgressCacheKey returns the deterministic cache key contract for
// progress reads: go-onboarding::wizard_progress::v1::<profile_id> with the
// profile segment URL-path escaped.
func ProgressCacheKey(profileID string) (string, error) {
	profileID = strings.TrimSpace(profileID)
	if profileID == "" {
		return "", core.ErrProgressProfileRequired
	}
	return progressCacheKeyPrefix + "::" + url.PathEscape(profileID), nil
}

type cachedProgress struct {
	Progress core.WizardProgress
	Found    bool
}

func (s *CachedProgressStore) Load(ctx context.Context, profileID string) (core.WizardProgress, bool, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.WizardProgress{}, false, fmt.Errorf("sqlstore: cached progress store is not configured")
	}
	cacheKey, err := ProgressCacheKey(profileID)
	if err != nil {
		return core.WizardProgress{}, false, err
	}

	entry, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (cachedProgress, error) {
		progress, found, fetchErr := s.base.Load(ctx, profileID)
		if fetchErr != nil {
			return cachedProgress{}, fetchErr
		}
		return cachedProgress{Progress: progress.Clone(), Found: found}, nil
	})
	if err != nil {
		return core.WizardProgress{}, false, err
	}
	return entry.Progress.Clone(), entry.Found, nil
}

func (s *CachedProgressStore) Save(ctx context.Context, progress core.WizardProgress) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached progress store is not configured")
	}
	if err := s.base.Save(ctx, progress); err != nil {
		return err
	}
	cacheKey, err := ProgressCacheKey(progress.ProfileID)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}

func (s *CachedProgressStore) Delete(ctx context.Context, profileID string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached progress store is not configured")
	}
	if err := s.base.Delete(ctx, profileID); err != nil {
		return err
	}
	cacheKey, err := ProgressCacheKey(profileID)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}

func (s *CachedProgressStore) PurgeStale(ctx context.Context, olderThan time.Time) (int, error) {
	if s == nil || s.base == nil {
		return 0, fmt.Errorf("sqlstore: cached progress store is not configured")
	}
	return s.base.PurgeStale(ctx, olderThan)
}

var _ core.ProgressStore = (*CachedProgressStore)(nil)
