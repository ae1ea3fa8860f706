package flows

const (
	minResumeTextLen     = 100
	minJobDescriptionLen = 50
)

type analyzeRequest struct {
	ResumeDataURI string `json:"resumeDataUri"`
}

type matchRequest struct {
	ResumeText     string `json:"resumeText" validate:"required,min=100"`
	JobDescription string `json:"jobDescription" validate:"required,min=50"`
}

type optimizeRequest struct {
	ResumeDataURI  string `json:"resumeDataUri"`
	JobDescription string `json:"jobDescription" validate:"required,min=50"`
}

// failure messages shown to end users; details stay in logs
var failureMessages = map[string]string{
	"analyze":  "An error occurred during analysis. Please try again.",
	"match":    "An error occurred while generating suggestions. Please try again.",
	"optimize": "An error occurred while optimizing your resume. Please try again.",
}
