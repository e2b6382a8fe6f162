package query

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-onboarding/core"
)

var (
	_ gocmd.Querier[GetProgressMessage, ProgressView]      = (*GetProgressQuery)(nil)
	_ gocmd.Querier[GetFlowStatusMessage, core.FlowStatus] = (*GetFlowStatusQuery)(nil)
	_ gocmd.Querier[GetLinkStateMessage, LinkStateView]    = (*GetLinkStateQuery)(nil)
)
