package gemini

import (
	"encoding/json"
	"fmt"
	"strings"

	"mmm/internal/scan"
)

// parseScanResult decodes the model's JSON reply. Markdown code fences
// are stripped first: some models wrap JSON in them despite the mime
// type hint.
func parseScanResult(text string) (scan.Result, error) {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var result scan.Result
	if err := json.Unmarshal([]byte(trimmed), &result); err != nil {
		return scan.Result{}, fmt.Errorf("parse scan reply: %w", err)
	}

	return result, nil
}
