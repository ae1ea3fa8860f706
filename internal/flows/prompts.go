package flows

import (
	_ "embed"

	"buildmycv-backend/internal/history"
	"buildmycv-backend/internal/llm"
)

var (
	//go:embed prompts/analyze_resume.txt
	analyzeResumeTemplate string
	//go:embed prompts/match_jobs.txt
	matchJobsTemplate string
	//go:embed prompts/generate_updated_resume.txt
	generateUpdatedResumeTemplate string
)

var (
	analyzeResumePrompt         = llm.MustPrompt(history.FlowAnalyzeResume, analyzeResumeTemplate)
	matchJobsPrompt             = llm.MustPrompt(history.FlowMatchJobs, matchJobsTemplate)
	generateUpdatedResumePrompt = llm.MustPrompt(history.FlowGenerateUpdatedResume, generateUpdatedResumeTemplate)
)

var (
	analyzeResumeSchema = llm.Object(
		llm.Field("analysisReport", llm.String("A report on the resume highlighting areas for improvement, formatted in Markdown.")),
	)
	matchJobsSchema = llm.Object(
		llm.Field("suggestions", llm.ArrayOf("Specific, actionable suggestions to improve the resume.", llm.String("One suggestion."))),
		llm.Field("updatedResume", llm.String("The full rewritten resume tailored to the job description.")),
	)
	generateUpdatedResumeSchema = llm.Object(
		llm.Field("atsScore", llm.Integer("The calculated Applicant Tracking System (ATS) score from 0 to 100.", 0, 100)),
		llm.Field("analysisReport", llm.String("A detailed analysis report in Markdown highlighting strengths and areas for improvement.")),
		llm.Field("updatedResume", llm.String("The full text of the optimized resume.")),
	)
)

// resumeSafety is applied to the job-targeted flows.
var resumeSafety = []llm.SafetySetting{
	{Category: llm.HarmHateSpeech, Threshold: llm.BlockOnlyHigh},
	{Category: llm.HarmDangerousContent, Threshold: llm.BlockNone},
	{Category: llm.HarmHarassment, Threshold: llm.BlockMediumAndAbove},
	{Category: llm.HarmSexuallyExplicit, Threshold: llm.BlockLowAndAbove},
}
