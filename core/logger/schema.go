package logger

import (
	"cmp"
	"slices"
	"strings"
)

// levelNames maps accepted level spellings to the printed name.
var levelNames = map[string]string{
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
	"fatal":   "FATAL",
}

// enumField lists the canonical values of an enumerated log field.
// Unknown values are dropped unless keepUnknown is set.
type enumField struct {
	values      []string
	keepUnknown bool
}

var enumFields = map[string]enumField{
	"status":  {values: []string{"ok", "fail", "skip", "retry", "rate_limited", "cancelled"}, keepUnknown: true},
	"outcome": {values: []string{"ok", "fail", "cancelled", "rate_limited"}},
	"kind":    {values: []string{"command", "regexp", "action", "none"}},
}

func (f enumField) normalize(v string) (string, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return "", false
	}
	return v, f.keepUnknown || slices.Contains(f.values, v)
}

func normalizeLevel(level string) string {
	if mapped, ok := levelNames[strings.ToLower(level)]; ok {
		return mapped
	}
	return cmp.Or(strings.ToUpper(level), "INFO")
}

// defaultKeyOrder puts correlation fields first, then the handler and how
// it went, then details. Unlisted keys follow alphabetically.
var defaultKeyOrder = []string{
	// record
	"ts", "level", "component", "event", "status",
	// correlation
	"rid", "rid_full", "ts_unix_nano", "update_id", "user_id", "chat_id", "chat_type", "update",
	// routing
	"handler", "kind", "schema", "matcher", "cb_key", "state", "expected",
	"outcome", "duration_ms", "messages", "kb", "reason",
	// recovery
	"policy", "policies",
	// delivery
	"action", "method", "job_id", "attempt", "attempts", "delay_ms", "elapsed_ms", "retryable",
	// startup
	"mode", "listen", "public_url", "endpoint", "driver", "db", "host", "port",
	"count", "routes", "commands", "payload",
	// failure
	"err", "err_code", "error_kind", "cause", "stack",
}
