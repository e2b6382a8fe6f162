package core

import "strings"

const RedactedValue = "[REDACTED]"

// sensitiveKeyTokens marks a field as credential-bearing when any token
// appears in its lowercased name.
var sensitiveKeyTokens = []string{
	"password",
	"secret",
	"token",
	"authorization",
	"api_key",
	"apikey",
	"access_key",
	"refresh",
	"credential",
	"signature",
}

// traceabilityKeys are never redacted even when a sensitive token matches,
// so operational fields like idempotency_key survive in logs.
var traceabilityKeys = map[string]struct{}{
	"profile_id":      {},
	"step":            {},
	"phase":           {},
	"outcome":         {},
	"event_type":      {},
	"status":          {},
	"idempotency_key": {},
	"trace_id":        {},
	"request_id":      {},
}

// RedactSensitiveMap returns a copy of fields with credential-bearing
// values masked. Nested maps and slices are walked; the input is never
// mutated.
func RedactSensitiveMap(fields map[string]any) map[string]any {
	redacted := make(map[string]any, len(fields))
	for key, value := range fields {
		if redactableKey(key) {
			redacted[key] = RedactedValue
			continue
		}
		redacted[key] = redactValue(value)
	}
	return redacted
}

func redactValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return RedactSensitiveMap(typed)
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = redactValue(item)
		}
		return out
	default:
		return value
	}
}

func redactableKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return false
	}
	if _, traceable := traceabilityKeys[key]; traceable {
		return false
	}
	for _, token := range sensitiveKeyTokens {
		if strings.Contains(key, token) {
			return true
		}
	}
	return false
}
