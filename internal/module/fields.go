package module

import "cogniflow/internal/types"

// Field helpers for mapping parsed JSON objects into typed results.
// Numeric score fields are clamped to [0,1]; enum fields default to a
// provider-specific sentinel when the parsed string is not a known
// variant.

// Clamp01 clamps v to the [0,1] range.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ScoreField reads a numeric field and clamps it to [0,1], returning def
// when absent or non-numeric.
func ScoreField(m map[string]any, key string, def float64) float64 {
	if v, ok := types.ToFloat(m[key]); ok {
		return Clamp01(v)
	}
	return def
}

// StringField reads a string field, returning def when absent or empty.
func StringField(m map[string]any, key, def string) string {
	if v, ok := m[key].(string); ok && v != "" {
		return v
	}
	return def
}

// EnumField reads a string field constrained to allowed variants,
// returning sentinel for anything else.
func EnumField(m map[string]any, key string, allowed []string, sentinel string) string {
	v, ok := m[key].(string)
	if !ok {
		return sentinel
	}
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	return sentinel
}

// StringsField reads a list-of-strings field, tolerating []any.
func StringsField(m map[string]any, key string) []string {
	return types.ToStrings(m[key])
}

// ScoresField reads a list of numeric scores, clamping each to [0,1].
func ScoresField(m map[string]any, key string) []float64 {
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]float64, 0, len(raw))
	for _, e := range raw {
		if v, ok := types.ToFloat(e); ok {
			out = append(out, Clamp01(v))
		}
	}
	return out
}

// ChainsField reads a list of string lists, tolerating []any nesting.
func ChainsField(m map[string]any, key string) [][]string {
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([][]string, 0, len(raw))
	for _, e := range raw {
		if chain := types.ToStrings(e); chain != nil {
			out = append(out, chain)
		}
	}
	return out
}

// ObjectsField reads a list of JSON objects.
func ObjectsField(m map[string]any, key string) []map[string]any {
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, e := range raw {
		if obj, ok := e.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

// LevelToScore maps low/medium/high level strings onto a numeric scale.
// Numeric inputs pass through clamped.
func LevelToScore(v any, def float64) float64 {
	switch s := v.(type) {
	case string:
		switch s {
		case "low":
			return 0.2
		case "medium":
			return 0.5
		case "high":
			return 0.8
		}
	default:
		if f, ok := types.ToFloat(v); ok {
			return Clamp01(f)
		}
	}
	return def
}
