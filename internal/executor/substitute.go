package executor

import "github.com/seventech-gov/browser-use/pkg/schema"

// substituteParams resolves every placeholder reference in a step's params
// against the caller-supplied values. Non-string values pass through; a
// reference with no matching value is left intact, which upstream validation
// makes unreachable for well-formed plans.
func substituteParams(params map[string]any, values map[string]string) map[string]any {
	if len(params) == 0 {
		return nil
	}
	out := make(map[string]any, len(params))
	for key, value := range params {
		if s, ok := value.(string); ok {
			out[key] = schema.SubstitutePlaceholders(s, values)
		} else {
			out[key] = value
		}
	}
	return out
}

// missingParams returns the names in required that values does not cover,
// preserving required order.
func missingParams(required []string, values map[string]string) []string {
	var missing []string
	for _, name := range required {
		if _, ok := values[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
