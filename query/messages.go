package query

import (
	"strings"
)

const (
	TypeGetProgress   = "onboarding.query.progress.get"
	TypeGetFlowStatus = "onboarding.query.flow.status"
	TypeGetLinkState  = "onboarding.query.linking.state"
)

type GetProgressMessage struct {
	ProfileID string
}

func (GetProgressMessage) Type() string { return TypeGetProgress }

func (m GetProgressMessage) Validate() error {
	return validateProfileID(m.ProfileID)
}

type GetFlowStatusMessage struct {
	ProfileID string
}

func (GetFlowStatusMessage) Type() string { return TypeGetFlowStatus }

func (m GetFlowStatusMessage) Validate() error {
	return validateProfileID(m.ProfileID)
}

// GetLinkStateMessage reads the in-memory linking snapshot. It carries no
// parameters because the link session is scoped to the running service.
type GetLinkStateMessage struct{}

func (GetLinkStateMessage) Type() string { return TypeGetLinkState }

func (GetLinkStateMessage) Validate() error { return nil }

func validateProfileID(profileID string) error {
	if strings.TrimSpace(profileID) == "" {
		return queryValidationError("profile_id", "profile id is required")
	}
	return nil
}
