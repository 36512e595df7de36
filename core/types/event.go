package types

import "strings"

// Event is the flattened form of an engine event returned with operation
// results. Type is "<module>.<action>", e.g. "escrow.locked".
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Module returns the part of Type before the first dot.
func (e *Event) Module() string {
	if e == nil {
		return ""
	}
	module, _, _ := strings.Cut(e.Type, ".")
	return module
}

// Attr returns the attribute stored under key, or "".
func (e *Event) Attr(key string) string {
	if e == nil {
		return ""
	}
	return e.Attributes[key]
}
