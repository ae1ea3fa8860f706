package gemini

import (
	"google.golang.org/genai"

	"buildmycv-backend/internal/llm"
	"buildmycv-backend/internal/shared/telemetry"
)

var schemaTypes = map[llm.Type]genai.Type{
	llm.TypeObject:  genai.TypeObject,
	llm.TypeArray:   genai.TypeArray,
	llm.TypeString:  genai.TypeString,
	llm.TypeInteger: genai.TypeInteger,
	llm.TypeNumber:  genai.TypeNumber,
	llm.TypeBoolean: genai.TypeBoolean,
}

func toSchema(s *llm.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        schemaTypes[s.Type],
		Description: s.Description,
		Required:    s.Required,
		Minimum:     s.Minimum,
		Maximum:     s.Maximum,
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for _, name := range s.Order {
			out.Properties[name] = toSchema(s.Properties[name])
		}
		out.PropertyOrdering = s.Order
	}
	if s.Items != nil {
		out.Items = toSchema(s.Items)
	}
	return out
}

var harmCategories = map[llm.HarmCategory]genai.HarmCategory{
	llm.HarmHateSpeech:       genai.HarmCategoryHateSpeech,
	llm.HarmDangerousContent: genai.HarmCategoryDangerousContent,
	llm.HarmHarassment:       genai.HarmCategoryHarassment,
	llm.HarmSexuallyExplicit: genai.HarmCategorySexuallyExplicit,
}

var blockThresholds = map[llm.BlockThreshold]genai.HarmBlockThreshold{
	llm.BlockNone:           genai.HarmBlockThresholdBlockNone,
	llm.BlockOnlyHigh:       genai.HarmBlockThresholdBlockOnlyHigh,
	llm.BlockMediumAndAbove: genai.HarmBlockThresholdBlockMediumAndAbove,
	llm.BlockLowAndAbove:    genai.HarmBlockThresholdBlockLowAndAbove,
}

func toSafety(settings []llm.SafetySetting) []*genai.SafetySetting {
	if len(settings) == 0 {
		return nil
	}
	out := make([]*genai.SafetySetting, 0, len(settings))
	for _, s := range settings {
		category, okC := harmCategories[s.Category]
		threshold, okT := blockThresholds[s.Threshold]
		if !okC || !okT {
			telemetry.Warn("llm.safety.unmapped", map[string]any{
				"provider":  providerName,
				"category":  string(s.Category),
				"threshold": string(s.Threshold),
			})
			continue
		}
		out = append(out, &genai.SafetySetting{Category: category, Threshold: threshold})
	}
	return out
}
