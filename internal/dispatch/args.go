package dispatch

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/raphaelgruber/dreams-mcp/internal/registry"
	"github.com/raphaelgruber/dreams-mcp/internal/result"
	"github.com/raphaelgruber/dreams-mcp/internal/script"
)

// undefinedArg is what a missing argument becomes in lenient mode. Legacy
// cores received this literal text and searched or embedded it as-is.
const undefinedArg = "undefined"

// extractArgs validates the argument bag for tool.
func extractArgs(tool string, bag map[string]any, strict bool) (script.Args, *result.Failure) {
	var (
		a   script.Args
		err error
	)

	switch tool {
	case registry.SearchMemory:
		if a.Query, err = stringArg(bag, "query", strict); err != nil {
			break
		}
		a.Limit, err = limitArg(bag, strict)
	case registry.GetFileStructure:
		a.FilePath, err = stringArg(bag, "file_path", strict)
	case registry.GenerateEmbedding:
		a.Text, err = stringArg(bag, "text", strict)
	default:
		return a, &result.Failure{Kind: result.KindUnknownTool, Message: "unknown tool: " + tool}
	}

	if err != nil {
		return a, &result.Failure{Kind: result.KindInvalidArguments, Message: err.Error()}
	}
	return a, nil
}

func stringArg(bag map[string]any, key string, strict bool) (string, error) {
	v, ok := bag[key]
	if strict && (!ok || v == nil) {
		return "", fmt.Errorf("missing required argument: %s", key)
	}
	if !ok {
		return undefinedArg, nil
	}
	return coerceString(v), nil
}

// coerceString renders any decoded JSON value as text. Composite values
// become compact JSON.
func coerceString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case nil:
		return "null"
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

// limitArg returns the search limit. Absent or falsy values mean the default.
func limitArg(bag map[string]any, strict bool) (int, error) {
	v, ok := bag["limit"]
	if !ok || falsy(v) {
		return registry.DefaultSearchLimit, nil
	}

	if n, ok := positiveInt(v); ok {
		return n, nil
	}
	if strict {
		return 0, fmt.Errorf("limit must be a positive integer, got %s", coerceString(v))
	}
	return registry.DefaultSearchLimit, nil
}

func falsy(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case bool:
		return !x
	case string:
		return x == ""
	case float64:
		return x == 0 || math.IsNaN(x)
	case int:
		return x == 0
	case json.Number:
		f, err := x.Float64()
		return err == nil && f == 0
	}
	return false
}

func positiveInt(v any) (int, bool) {
	switch x := v.(type) {
	case float64:
		if x >= 1 && x <= math.MaxInt32 && x == math.Trunc(x) {
			return int(x), true
		}
	case int:
		if x >= 1 {
			return x, true
		}
	case json.Number:
		if n, err := x.Int64(); err == nil && n >= 1 && n <= math.MaxInt32 {
			return int(n), true
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(x)); err == nil && n >= 1 {
			return n, true
		}
	}
	return 0, false
}
