package advisor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"

	"stockpilot/internal/types"
)

const recommendationSchema = `{
  "type": "object",
  "required": ["action", "confidence"],
  "properties": {
    "action": {"type": "string", "enum": ["buy", "hold", "sell"]},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1},
    "reasoning": {"type": "string"}
  }
}`

var compiledSchema = jsonschema.MustCompileString("recommendation.json", recommendationSchema)

// ParseRecommendation extracts and validates the advisor's JSON verdict from
// raw model output, tolerating surrounding prose and code fences.
func ParseRecommendation(raw string) (types.AIRecommendation, error) {
	obj, found := extractJSONObject(raw)
	if !found {
		return types.AIRecommendation{}, fmt.Errorf("no JSON object in output")
	}
	if !gjson.Valid(obj) {
		return types.AIRecommendation{}, fmt.Errorf("malformed JSON object")
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(obj), &decoded); err != nil {
		return types.AIRecommendation{}, fmt.Errorf("decoding JSON failed: %w", err)
	}
	parsed := gjson.Parse(obj)
	rec := types.AIRecommendation{
		Action:     strings.ToLower(strings.TrimSpace(parsed.Get("action").String())),
		Confidence: parsed.Get("confidence").Float(),
		Reasoning:  strings.TrimSpace(parsed.Get("reasoning").String()),
	}
	// Validate the normalized document so case-variant actions still pass.
	decoded["action"] = rec.Action
	if err := compiledSchema.Validate(any(decoded)); err != nil {
		return types.AIRecommendation{}, fmt.Errorf("schema validation failed: %w", err)
	}
	return rec, nil
}

// extractJSONObject returns the first balanced top-level JSON object in s.
func extractJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	if start == -1 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[start : i+1]), true
			}
		}
	}
	return "", false
}
