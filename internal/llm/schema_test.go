package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONSchema(t *testing.T) {
	s := Object(
		Field("atsScore", Integer("score", 0, 100)),
		Field("tips", ArrayOf("tips", String("tip"))),
	)

	raw, err := json.Marshal(s.JSONSchema(true))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "object",
		"additionalProperties": false,
		"required": ["atsScore", "tips"],
		"properties": {
			"atsScore": {"type": "integer", "description": "score", "minimum": 0, "maximum": 100},
			"tips": {"type": "array", "description": "tips", "items": {"type": "string", "description": "tip"}}
		}
	}`, string(raw))

	unbounded := s.JSONSchema(false)
	score := unbounded["properties"].(map[string]any)["atsScore"].(map[string]any)
	_, hasMin := score["minimum"]
	assert.False(t, hasMin)
}
