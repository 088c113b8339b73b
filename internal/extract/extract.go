// Package extract turns free-text model output into structured JSON.
// Parse failures are recovered and surfaced as data so callers can fall
// back to heuristic extraction instead of failing the request.
package extract

import (
	"encoding/json"
	"strings"
)

const rawContentLimit = 500

// ParseFailure describes a recovered extraction failure. Error is one of
// "empty_response" or "json_parse_failed".
type ParseFailure struct {
	Error      string `json:"error"`
	RawContent string `json:"raw_content"`
	ParseError string `json:"parse_error,omitempty"`
}

// JSON strips whitespace and surrounding markdown code fences from raw
// model output, then parses it as a JSON object. It never returns a Go
// error: on failure the second return value carries a tagged ParseFailure
// and the first is nil. Calling it twice on the same input yields the
// same result.
func JSON(raw string) (map[string]any, *ParseFailure) {
	cleaned := StripFences(raw)
	if cleaned == "" {
		return nil, &ParseFailure{Error: "empty_response", RawContent: raw}
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, &ParseFailure{
			Error:      "json_parse_failed",
			RawContent: truncate(cleaned, rawContentLimit),
			ParseError: err.Error(),
		}
	}
	return parsed, nil
}

// StripFences removes surrounding whitespace and ```json / ``` markers.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// FirstObject scans for the first '{' in the text and decodes one JSON
// object from there, tolerating trailing prose after the object. Used as
// a secondary attempt when the model wraps JSON in commentary.
func FirstObject(raw string) (map[string]any, bool) {
	start := strings.Index(raw, "{")
	if start == -1 {
		return nil, false
	}
	dec := json.NewDecoder(strings.NewReader(raw[start:]))
	var parsed map[string]any
	if err := dec.Decode(&parsed); err != nil {
		return nil, false
	}
	return parsed, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
