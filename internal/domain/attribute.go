package domain

import "fmt"

// AttributeScope partitions attributes by where their value originates.
type AttributeScope string

const (
	ServerScope AttributeScope = "SERVER_SCOPE"
	ClientScope AttributeScope = "CLIENT_SCOPE"
	SharedScope AttributeScope = "SHARED_SCOPE"
)

// AttributeScopes lists every scope in a stable order.
var AttributeScopes = []AttributeScope{ServerScope, ClientScope, SharedScope}

// ParseAttributeScope validates a scope name.
func ParseAttributeScope(s string) (AttributeScope, error) {
	switch AttributeScope(s) {
	case ServerScope, ClientScope, SharedScope:
		return AttributeScope(s), nil
	}
	return "", fmt.Errorf("unknown attribute scope %q", s)
}

// Attribute is a single key/value pair attached to an entity.
type Attribute struct {
	Key          string `json:"key"`
	Value        any    `json:"value"`
	LastUpdateTs int64  `json:"lastUpdateTs"`
}

// AttributeMap indexes attributes by key. Later duplicates win.
func AttributeMap(attrs []Attribute) map[string]any {
	m := make(map[string]any, len(attrs))
	for _, a := range attrs {
		m[a.Key] = a.Value
	}
	return m
}

// TextAttribute returns the value of key formatted as text. Empty strings,
// false, zero numbers and null count as unset and report false.
func TextAttribute(attrs []Attribute, key string) (string, bool) {
	for _, a := range attrs {
		if a.Key != key {
			continue
		}
		switch v := a.Value.(type) {
		case nil:
			return "", false
		case string:
			return v, v != ""
		case bool:
			if !v {
				return "", false
			}
		case float64:
			if v == 0 {
				return "", false
			}
		case int:
			if v == 0 {
				return "", false
			}
		case int64:
			if v == 0 {
				return "", false
			}
		}
		return fmt.Sprint(a.Value), true
	}
	return "", false
}
