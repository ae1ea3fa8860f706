package flows

// AnalyzeResumeInput is the input to AnalyzeResume.
type AnalyzeResumeInput struct {
	// ResumeDataURI is data:<mimetype>;base64,<data>.
	ResumeDataURI string `json:"resumeDataUri" validate:"required,datauri"`
}

// AnalyzeResumeOutput is the model's report.
type AnalyzeResumeOutput struct {
	AnalysisReport string `json:"analysisReport"`
}

// MatchJobsInput is the input to MatchJobs.
type MatchJobsInput struct {
	JobDescription string `json:"jobDescription" validate:"required"`
	ResumeText     string `json:"resumeText" validate:"required"`
}

// MatchJobsOutput carries the suggestions exactly as the model returned them.
type MatchJobsOutput struct {
	Suggestions   []string `json:"suggestions"`
	UpdatedResume string   `json:"updatedResume"`
}

// GenerateUpdatedResumeInput is the input to GenerateUpdatedResume.
type GenerateUpdatedResumeInput struct {
	ResumeDataURI  string `json:"resumeDataUri" validate:"required,datauri"`
	JobDescription string `json:"jobDescription" validate:"required"`
}

// GenerateUpdatedResumeOutput is the scored rewrite.
type GenerateUpdatedResumeOutput struct {
	ATSScore       int    `json:"atsScore"`
	AnalysisReport string `json:"analysisReport"`
	UpdatedResume  string `json:"updatedResume"`
}

// Wire shapes of model output. Pointers tell a missing key from a zero value;
// required alone accepts a non-nil pointer to "".

type analyzeResumeWire struct {
	AnalysisReport *string `json:"analysisReport" validate:"required,min=1"`
}

type matchJobsWire struct {
	Suggestions   []string `json:"suggestions" validate:"required"`
	UpdatedResume *string  `json:"updatedResume" validate:"required"`
}

type generateUpdatedResumeWire struct {
	ATSScore       *float64 `json:"atsScore" validate:"required,whole,min=0,max=100"`
	AnalysisReport *string  `json:"analysisReport" validate:"required,min=1"`
	UpdatedResume  *string  `json:"updatedResume" validate:"required"`
}
