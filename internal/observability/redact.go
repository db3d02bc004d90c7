package observability

import (
	"encoding/json"
	"strings"
)

// sensitiveKeys covers this project's actual secret-shaped fields: the
// provider credentials config.Load reads from OPENAI_API_KEY,
// ANTHROPIC_API_KEY, and GOOGLE_API_KEY, plus the Postgres/Qdrant/
// ClickHouse DSNs and the Redis address, any of which can embed
// credentials in their connection string.
var sensitiveKeys = []string{
	"api_key", "apikey", "openai_api_key", "anthropic_api_key", "google_api_key",
	"x-api-key", "authorization", "auth", "token", "access_token", "refresh_token",
	"password", "secret", "bearer", "dsn", "redis_addr",
}

// RedactJSON takes a JSON payload and redacts sensitive values based on
// common key names. Used before logging a raw LLM reply or conversation
// evidence snippet that failed to parse, so a stray pasted credential in
// conversation text never lands in log output unredacted.
func RedactJSON(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return raw
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return raw
	}
	redacted := redactValue(v)
	b, err := json.Marshal(redacted)
	if err != nil {
		return raw
	}
	return b
}

func redactValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, vv := range val {
			if isSensitiveKey(k) {
				val[k] = "[REDACTED]"
			} else {
				val[k] = redactValue(vv)
			}
		}
		return val
	case []any:
		for i := range val {
			val[i] = redactValue(val[i])
		}
		return val
	default:
		return v
	}
}

func isSensitiveKey(k string) bool {
	low := strings.ToLower(k)
	for _, s := range sensitiveKeys {
		if low == s || strings.Contains(low, s) {
			return true
		}
	}
	return false
}
