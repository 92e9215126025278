package fileutils

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// ExtractJSONObject returns the span of outputText from the first '{' to the last '}'
// inclusive. Models routinely wrap the object in prose ("here you go: {...} thanks"),
// so anything outside that span is ignored. The span itself is not validated.
func ExtractJSONObject(outputText string) (string, error) {
	s := strings.TrimSpace(outputText)
	if s == "" {
		return "", io.ErrUnexpectedEOF
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("no JSON object found in model output (len=%d)", len(s))
	}
	return s[start : end+1], nil
}

// DecodeModelJSON unmarshals JSON from a model response, with a small amount of robustness
// for cases where the model wraps the JSON in extra text or returns leading/trailing whitespace.
func DecodeModelJSON(outputText string, v any) error {
	s := strings.TrimSpace(outputText)
	if s == "" {
		return io.ErrUnexpectedEOF
	}

	// Fast path: valid JSON as-is.
	if err := json.Unmarshal([]byte(s), v); err == nil {
		return nil
	}

	sub, err := ExtractJSONObject(s)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(sub), v); err != nil {
		return fmt.Errorf("failed to unmarshal extracted JSON (len=%d): %w", len(sub), err)
	}
	return nil
}
