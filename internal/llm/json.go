package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSONObject is returned when a model reply contains no JSON object.
var ErrNoJSONObject = errors.New("no JSON object in model output")

// CleanModelJSON strips Markdown fences and surrounding chatter from a reply
// that was asked to be a single JSON object.
func CleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			s = strings.TrimPrefix(s, "```json")
			s = strings.TrimPrefix(s, "```")
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	// Keep only the first '{' to the last '}'.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}

// DecodeJSONObject cleans raw and unmarshals it into v.
func DecodeJSONObject(raw string, v any) error {
	clean := CleanModelJSON(raw)
	if !strings.HasPrefix(clean, "{") {
		return ErrNoJSONObject
	}
	if err := json.Unmarshal([]byte(clean), v); err != nil {
		return fmt.Errorf("DecodeJSONObject: unmarshal: %w", err)
	}
	return nil
}
