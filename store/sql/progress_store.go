package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-onboarding/core"
)

// ProgressStore persists one wizard snapshot per profile. Save is a
// wholesale overwrite inside a transaction, so concurrent writers never
// merge rows.
type ProgressStore struct {
	db   *bun.DB
	repo repository.Repository[*progressRecord]
}

func NewProgressStore(db *bun.DB) (*ProgressStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*progressRecord](db, progressHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid progress repository wiring: %w", err)
		}
	}
	return &ProgressStore{
		db:   db,
		repo: repo,
	}, nil
}

func (s *ProgressStore) Save(ctx context.Context, progress core.WizardProgress) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: progress store is not configured")
	}
	if err := progress.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	if progress.LastUpdated.IsZero() {
		progress.LastUpdated = now
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := findProgressTx(ctx, tx, progress.ProfileID)
		if err != nil {
			return err
		}

		record := newProgressRecord(progress, now)
		if existing == nil {
			record.ID = uuid.NewString()
			_, insertErr := tx.NewInsert().Model(record).Exec(ctx)
			return insertErr
		}

		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
		_, updateErr := tx.NewUpdate().
			Model(record).
			Where("id = ?", record.ID).
			Exec(ctx)
		return updateErr
	})
}

func (s *ProgressStore) Load(ctx context.Context, profileID string) (core.WizardProgress, bool, error) {
	if s == nil || s.db == nil {
		return core.WizardProgress{}, false, fmt.Errorf("sqlstore: progress store is not configured")
	}
	profileID = strings.TrimSpace(profileID)
	if profileID == "" {
		return core.WizardProgress{}, false, core.ErrProgressProfileRequired
	}

	record := &progressRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.profile_id = ?", profileID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.WizardProgress{}, false, nil
		}
		return core.WizardProgress{}, false, err
	}
	return record.toDomain(), true, nil
}

func (s *ProgressStore) Delete(ctx context.Context, profileID string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: progress store is not configured")
	}
	profileID = strings.TrimSpace(profileID)
	if profileID == "" {
		return core.ErrProgressProfileRequired
	}

	_, err := s.db.NewDelete().
		Model((*progressRecord)(nil)).
		Where("profile_id = ?", profileID).
		Exec(ctx)
	return err
}

func (s *ProgressStore) PurgeStale(ctx context.Context, olderThan time.Time) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: progress store is not configured")
	}

	res, err := s.db.NewDelete().
		Model((*progressRecord)(nil)).
		Where("last_updated < ?", olderThan.UTC()).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func findProgressTx(ctx context.Context, tx bun.Tx, profileID string) (*progressRecord, error) {
	record := &progressRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.profile_id = ?", profileID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

var _ core.ProgressStore = (*ProgressStore)(nil)
