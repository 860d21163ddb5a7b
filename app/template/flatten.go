package template

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Flatten parses a JSON document and returns a flat map from lower-cased
// dotted-path key to string value. Object members recurse with a "."
// joined path.
//
// Array elements flatten to the same path as their parent key with no
// index qualifier, so later elements overwrite earlier ones. This loses
// positional information for arrays of scalars and collides sibling keys
// for arrays of objects; it is kept for compatibility with templates
// authored against the previous behavior.
func Flatten(payload string) (map[string]string, error) {
	// A template-only event carries no content; that is an empty model,
	// not malformed JSON.
	if strings.TrimSpace(payload) == "" {
		return map[string]string{}, nil
	}

	var root any
	if err := json.Unmarshal([]byte(payload), &root); err != nil {
		return nil, fmt.Errorf("flatten content model: %w", err)
	}

	model := make(map[string]string)
	flattenValue(root, "", model)
	return model, nil
}

func flattenValue(value any, prefix string, model map[string]string) {
	switch v := value.(type) {
	case map[string]any:
		for key, child := range v {
			path := strings.ToLower(key)
			if prefix != "" {
				path = prefix + "." + path
			}
			flattenValue(child, path, model)
		}
	case []any:
		for _, child := range v {
			flattenValue(child, prefix, model)
		}
	case nil:
		model[prefix] = ""
	case bool:
		model[prefix] = fmt.Sprintf("%t", v)
	case string:
		model[prefix] = v
	case float64:
		model[prefix] = formatNumber(v)
	default:
		model[prefix] = fmt.Sprintf("%v", v)
	}
}

// formatNumber renders whole numbers without a decimal point.
func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
