package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type progressRecord struct {
	bun.BaseModel `bun:"table:onboarding_progress,alias:op"`

	ID             string                `bun:"id,pk"`
	ProfileID      string                `bun:"profile_id,notnull,unique"`
	CurrentStep    int                   `bun:"current_step,notnull"`
	StepFlags      map[string]bool       `bun:"step_flags,type:jsonb,notnull"`
	CollectedItems []collectedItemRecord `bun:"collected_items,type:jsonb,notnull"`
	LastUpdated    time.Time             `bun:"last_updated,nullzero,notnull"`
	CreatedAt      time.Time             `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt      time.Time             `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type collectedItemRecord struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Label    string `json:"label"`
	Position int    `json:"position"`
}
