package llm

// HarmCategory names a class of content a provider may filter.
type HarmCategory string

const (
	HarmHateSpeech       HarmCategory = "hate_speech"
	HarmDangerousContent HarmCategory = "dangerous_content"
	HarmHarassment       HarmCategory = "harassment"
	HarmSexuallyExplicit HarmCategory = "sexually_explicit"
)

// BlockThreshold is the probability at which content is blocked.
type BlockThreshold string

const (
	BlockNone           BlockThreshold = "none"
	BlockOnlyHigh       BlockThreshold = "only_high"
	BlockMediumAndAbove BlockThreshold = "medium_and_above"
	BlockLowAndAbove    BlockThreshold = "low_and_above"
)

// SafetySetting is passed through to providers that support content filters.
type SafetySetting struct {
	Category  HarmCategory
	Threshold BlockThreshold
}
