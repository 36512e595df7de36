package logging

import (
	"log/slog"
	"sort"
	"strings"
)

// RedactedValue replaces sensitive values in log output.
const RedactedValue = "[REDACTED]"

// Keys the engine and daemon log in the clear.
var redactionAllowlist = map[string]struct{}{
	"service":    {},
	"env":        {},
	"message":    {},
	"severity":   {},
	"timestamp":  {},
	"error":      {},
	"operation":  {},
	"outcome":    {},
	"height":     {},
	"digest":     {},
	"effects":    {},
	"run_id":     {},
	"request_id": {},
	"method":     {},
	"route":      {},
	"status":     {},
	"address":    {},
	"data_dir":   {},
}

// Keys masked by the handler whatever the caller passes.
var alwaysRedacted = map[string]struct{}{
	"authorization": {},
	"headers":       {},
	"token":         {},
	"password":      {},
}

// IsAllowlisted reports whether key may be logged without masking.
func IsAllowlisted(key string) bool {
	_, ok := redactionAllowlist[normalizeKey(key)]
	return ok
}

// RedactionAllowlist returns the allowlisted keys, sorted.
func RedactionAllowlist() []string {
	keys := make([]string, 0, len(redactionAllowlist))
	for key := range redactionAllowlist {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// MaskField returns an attribute that carries value only when key is
// allowlisted. Empty values pass through.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || IsAllowlisted(key) {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}

// ShortAddress keeps the human-readable prefix and the edges of an account
// address so log lines stay correlatable without carrying full addresses.
func ShortAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	const keep = 4
	sep := strings.LastIndexByte(addr, '1')
	body := addr[sep+1:]
	if len(body) <= 2*keep+3 {
		return addr
	}
	return addr[:sep+1] + body[:keep] + "..." + body[len(body)-keep:]
}

func redactAttr(attr slog.Attr) slog.Attr {
	if _, ok := alwaysRedacted[normalizeKey(attr.Key)]; ok && attr.Value.String() != "" {
		return slog.String(attr.Key, RedactedValue)
	}
	return attr
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
