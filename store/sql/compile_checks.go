package sqlstore

import "github.com/goliatone/go-onboarding/core"

var (
	_ core.ProgressStore          = (*ProgressStore)(nil)
	_ core.ProgressStore          = (*CachedProgressStore)(nil)
	_ core.StoreProvider          = (*RepositoryFactory)(nil)
	_ core.RepositoryStoreFactory = (*RepositoryFactory)(nil)
)
