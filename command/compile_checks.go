package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[BeginConnectMessage]       = (*BeginConnectCommand)(nil)
	_ gocmd.Commander[CompleteCallbackMessage]   = (*CompleteCallbackCommand)(nil)
	_ gocmd.Commander[RequestLinkingCodeMessage] = (*RequestLinkingCodeCommand)(nil)
	_ gocmd.Commander[StopLinkingMessage]        = (*StopLinkingCommand)(nil)
	_ gocmd.Commander[AdvanceStepMessage]        = (*AdvanceStepCommand)(nil)
	_ gocmd.Commander[RetreatStepMessage]        = (*RetreatStepCommand)(nil)
	_ gocmd.Commander[RecordCompletionMessage]   = (*RecordCompletionCommand)(nil)
	_ gocmd.Commander[CompleteFlowMessage]       = (*CompleteFlowCommand)(nil)
)
