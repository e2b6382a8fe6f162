package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

func progressHandlers() repository.ModelHandlers[*progressRecord] {
	return repository.ModelHandlers[*progressRecord]{
		NewRecord: func() *progressRecord {
			return &progressRecord{}
		},
		GetID: func(record *progressRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *progressRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "profile_id"
		},
		GetIdentifierValue: func(record *progressRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ProfileID)
		},
	}
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
