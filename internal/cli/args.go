package cli

import (
	"encoding/json"
	"fmt"
	"strings"
)

// buildArgs merges an optional JSON object with key=value pairs. Pair values
// that parse as JSON keep their JSON type (limit=3 is a number); anything
// else is a string. Pairs override keys from the JSON object.
func buildArgs(jsonArgs string, pairs []string) (map[string]any, error) {
	args := map[string]any{}
	if strings.TrimSpace(jsonArgs) != "" {
		if err := json.Unmarshal([]byte(jsonArgs), &args); err != nil {
			return nil, fmt.Errorf("--args must be a JSON object: %w", err)
		}
		if args == nil {
			args = map[string]any{}
		}
	}

	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("argument %q is not key=value", pair)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		args[key] = v
	}
	return args, nil
}
