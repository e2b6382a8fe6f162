package gologger

import (
	"strings"

	job "github.com/goliatone/go-job"
	glog "github.com/goliatone/go-logger/glog"
)

// DefaultScope names the logger scope used by onboarding workers when the
// caller does not supply one.
const DefaultScope = "onboarding"

// Resolve picks a logger with provider > logger > nop precedence and
// returns a provider alongside it so callers can mint scoped loggers for
// the completion-ack worker and its queue.
func Resolve(scope string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	if strings.TrimSpace(scope) == "" {
		scope = DefaultScope
	}
	return glog.Resolve(scope, provider, logger)
}

// ResolveForJob resolves the glog pair and bridges it onto the go-job
// logger contracts in one step, so job queue wiring never handles raw
// glog values.
func ResolveForJob(
	scope string,
	provider glog.LoggerProvider,
	logger glog.Logger,
) (glog.LoggerProvider, glog.Logger, job.LoggerProvider, job.Logger) {
	resolvedProvider, resolvedLogger := Resolve(scope, provider, logger)

	var jobProvider job.LoggerProvider
	if resolvedProvider != nil {
		jobProvider = job.GoLoggerProvider(resolvedProvider)
	}
	var jobLogger job.Logger
	if resolvedLogger != nil {
		jobLogger = job.GoLogger(resolvedLogger)
	}
	return resolvedProvider, resolvedLogger, jobProvider, jobLogger
}
