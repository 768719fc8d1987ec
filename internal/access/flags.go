package access

import "encoding/json"

// NormalizeFlag converts the backend's mixed boolean encodings to a
// strict bool. Only true, 1, "1", and "true" count as enabled; every
// other value, including truthy strings like "yes", is disabled.
func NormalizeFlag(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t == 1
	case int:
		return t == 1
	case string:
		return t == "1" || t == "true"
	case json.Number:
		return t.String() == "1"
	default:
		return false
	}
}
