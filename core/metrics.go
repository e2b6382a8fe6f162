package core

import "context"

// MetricNamespace prefixes every counter and histogram the service emits.
const MetricNamespace = "onboarding"

// NopMetricsRecorder drops every measurement. It is the default recorder so
// instrumented paths never have to nil-check.
type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

var _ MetricsRecorder = NopMetricsRecorder{}

func metricName(operation string, suffix string) string {
	return MetricNamespace + "." + operation + "." + suffix
}

func cloneTags(tags map[string]string) map[string]string {
	copied := make(map[string]string, len(tags))
	for key, value := range tags {
		copied[key] = value
	}
	return copied
}
