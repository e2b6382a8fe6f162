package sqlstore

import (
	"time"

	"github.com/goliatone/go-onboarding/core"
)

func newProgressRecord(progress core.WizardProgress, now time.Time) *progressRecord {
	return &progressRecord{
		ProfileID:      progress.ProfileID,
		CurrentStep:    int(progress.CurrentStep),
		StepFlags:      copyFlagMap(progress.StepFlags),
		CollectedItems: toItemRecords(progress.CollectedItems),
		LastUpdated:    progress.LastUpdated.UTC(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (r *progressRecord) toDomain() core.WizardProgress {
	if r == nil {
		return core.WizardProgress{}
	}
	return core.WizardProgress{
		ProfileID:      r.ProfileID,
		CurrentStep:    core.Step(r.CurrentStep),
		StepFlags:      copyFlagMap(r.StepFlags),
		CollectedItems: fromItemRecords(r.CollectedItems),
		LastUpdated:    r.LastUpdated,
	}
}

func toItemRecords(items []core.CollectedItem) []collectedItemRecord {
	out := make([]collectedItemRecord, 0, len(items))
	for _, item := range items {
		out = append(out, collectedItemRecord{
			ID:       item.ID,
			Kind:     item.Kind,
			Label:    item.Label,
			Position: item.Position,
		})
	}
	return out
}

func fromItemRecords(records []collectedItemRecord) []core.CollectedItem {
	out := make([]core.CollectedItem, 0, len(records))
	for _, record := range records {
		out = append(out, core.CollectedItem{
			ID:       record.ID,
			Kind:     record.Kind,
			Label:    record.Label,
			Position: record.Position,
		})
	}
	return out
}

func copyFlagMap(input map[string]bool) map[string]bool {
	out := make(map[string]bool, len(input))
	for key, value := range input {
		out[key] = value
	}
	return out
}
