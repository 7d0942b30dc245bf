package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON pulls the JSON object out of a model response, tolerating
// markdown code fences and prose around the object, and unmarshals it into v.
func ExtractJSON(text string, v any) error {
	text = strings.TrimSpace(text)

	// Strip markdown code fences.
	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		if len(lines) >= 2 && strings.HasPrefix(lines[len(lines)-1], "```") {
			text = strings.TrimSpace(strings.Join(lines[1:len(lines)-1], "\n"))
		}
	}

	// Slice down to the outermost {...} region.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return fmt.Errorf("no JSON object in response")
	}

	if err := json.Unmarshal([]byte(text[start:end+1]), v); err != nil {
		return fmt.Errorf("parse model JSON: %w", err)
	}
	return nil
}
