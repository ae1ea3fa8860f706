package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// CleanJSON strips Markdown code fences and surrounding prose from a model
// reply and checks that what remains is a single JSON object.
func CleanJSON(raw string) (json.RawMessage, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, ErrEmptyResponse
	}
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			// drop the language tag line, e.g. ```json
			s = s[nl+1:]
		}
		if end := strings.LastIndex(s, "```"); end >= 0 {
			s = s[:end]
		}
		s = strings.TrimSpace(s)
	}
	if !strings.HasPrefix(s, "{") {
		start := strings.IndexByte(s, '{')
		end := strings.LastIndexByte(s, '}')
		if start < 0 || end <= start {
			return nil, fmt.Errorf("%w: no object found", ErrMalformedOutput)
		}
		s = s[start : end+1]
	}

	b := []byte(s)
	if !json.Valid(b) {
		return nil, fmt.Errorf("%w: invalid json", ErrMalformedOutput)
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(b, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return compact.Bytes(), nil
}
