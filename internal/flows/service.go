package flows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"buildmycv-backend/internal/datauri"
	"buildmycv-backend/internal/history"
	"buildmycv-backend/internal/llm"
	"buildmycv-backend/internal/shared/metrics"
	"buildmycv-backend/internal/shared/telemetry"
)

// Service runs the three resume flows. Each flow validates its input,
// renders its prompt, calls the model exactly once and validates the reply.
type Service struct {
	Model       llm.Model
	Temperature *float32
	Metrics     *metrics.Registry

	validate *validator.Validate
}

// NewService constructs a Service.
func NewService(model llm.Model, temperature *float32, reg *metrics.Registry) *Service {
	return &Service{
		Model:       model,
		Temperature: temperature,
		Metrics:     reg,
		validate:    NewValidator(),
	}
}

// AnalyzeResume returns a Markdown improvement report for the resume.
func (s *Service) AnalyzeResume(ctx context.Context, in AnalyzeResumeInput) (AnalyzeResumeOutput, error) {
	start := time.Now()
	out, err := s.analyzeResume(ctx, in)
	s.observe(history.FlowAnalyzeResume, start, err)
	return out, err
}

func (s *Service) analyzeResume(ctx context.Context, in AnalyzeResumeInput) (AnalyzeResumeOutput, error) {
	if err := s.validator().Struct(in); err != nil {
		return AnalyzeResumeOutput{}, invalid(history.FlowAnalyzeResume, err)
	}
	doc, err := datauri.Parse(in.ResumeDataURI)
	if err != nil {
		return AnalyzeResumeOutput{}, invalid(history.FlowAnalyzeResume, err)
	}

	var wire analyzeResumeWire
	err = s.invoke(ctx, analyzeResumePrompt, analyzeResumeSchema, nil, llm.Vars{
		Media: map[string]llm.Media{"resume": mediaFrom(doc)},
	}, &wire)
	if err != nil {
		return AnalyzeResumeOutput{}, err
	}
	return AnalyzeResumeOutput{AnalysisReport: *wire.AnalysisReport}, nil
}

// MatchJobs returns improvement suggestions and a tailored rewrite.
func (s *Service) MatchJobs(ctx context.Context, in MatchJobsInput) (MatchJobsOutput, error) {
	start := time.Now()
	out, err := s.matchJobs(ctx, in)
	s.observe(history.FlowMatchJobs, start, err)
	return out, err
}

func (s *Service) matchJobs(ctx context.Context, in MatchJobsInput) (MatchJobsOutput, error) {
	if err := s.validator().Struct(in); err != nil {
		return MatchJobsOutput{}, invalid(history.FlowMatchJobs, err)
	}

	var wire matchJobsWire
	err := s.invoke(ctx, matchJobsPrompt, matchJobsSchema, resumeSafety, llm.Vars{
		Text: map[string]string{
			"jobDescription": in.JobDescription,
			"resumeText":     in.ResumeText,
		},
	}, &wire)
	if err != nil {
		return MatchJobsOutput{}, err
	}
	return MatchJobsOutput{Suggestions: wire.Suggestions, UpdatedResume: *wire.UpdatedResume}, nil
}

// GenerateUpdatedResume scores the resume against the job description and
// rewrites it.
func (s *Service) GenerateUpdatedResume(ctx context.Context, in GenerateUpdatedResumeInput) (GenerateUpdatedResumeOutput, error) {
	start := time.Now()
	out, err := s.generateUpdatedResume(ctx, in)
	s.observe(history.FlowGenerateUpdatedResume, start, err)
	return out, err
}

func (s *Service) generateUpdatedResume(ctx context.Context, in GenerateUpdatedResumeInput) (GenerateUpdatedResumeOutput, error) {
	if err := s.validator().Struct(in); err != nil {
		return GenerateUpdatedResumeOutput{}, invalid(history.FlowGenerateUpdatedResume, err)
	}
	doc, err := datauri.Parse(in.ResumeDataURI)
	if err != nil {
		return GenerateUpdatedResumeOutput{}, invalid(history.FlowGenerateUpdatedResume, err)
	}

	var wire generateUpdatedResumeWire
	err = s.invoke(ctx, generateUpdatedResumePrompt, generateUpdatedResumeSchema, resumeSafety, llm.Vars{
		Text:  map[string]string{"jobDescription": in.JobDescription},
		Media: map[string]llm.Media{"resume": mediaFrom(doc)},
	}, &wire)
	if err != nil {
		return GenerateUpdatedResumeOutput{}, err
	}
	return GenerateUpdatedResumeOutput{
		ATSScore:       int(*wire.ATSScore),
		AnalysisReport: *wire.AnalysisReport,
		UpdatedResume:  *wire.UpdatedResume,
	}, nil
}

// invoke renders prompt, calls the model once and decodes the reply into out,
// which must be a pointer to a wire struct with validate tags.
func (s *Service) invoke(ctx context.Context, prompt llm.Prompt, schema *llm.Schema, safety []llm.SafetySetting, vars llm.Vars, out any) error {
	if s.Model == nil {
		return fmt.Errorf("%s: %w", prompt.Name, llm.ErrNotConfigured)
	}
	parts, err := prompt.Render(vars)
	if err != nil {
		return fmt.Errorf("%s: %w", prompt.Name, err)
	}

	raw, err := s.Model.Generate(ctx, llm.Request{
		Name:        prompt.Name,
		Parts:       parts,
		Schema:      schema,
		Safety:      safety,
		Temperature: s.Temperature,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", prompt.Name, classifyModelError(err))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: %w: %v", prompt.Name, ErrSchemaMismatch, err)
	}
	if err := s.validator().Struct(out); err != nil {
		return fmt.Errorf("%s: %w: %v", prompt.Name, ErrSchemaMismatch, err)
	}
	return nil
}

func (s *Service) observe(flow string, start time.Time, err error) {
	elapsed := time.Since(start)
	provider, model := llm.Describe(s.Model)
	fields := map[string]any{
		"flow":        flow,
		"provider":    provider,
		"model":       model,
		"duration_ms": float64(elapsed.Microseconds()) / 1000.0,
	}
	status := history.StatusCompleted
	if err != nil {
		status = history.StatusFailed
		fields["error_code"] = ErrorCode(err)
		fields["error"] = err.Error()
		if errors.Is(err, ErrInvalidInput) {
			telemetry.Warn("flow.failed", fields)
		} else {
			telemetry.Error("flow.failed", fields)
		}
	} else {
		telemetry.Info("flow.complete", fields)
	}
	s.Metrics.ObserveFlow(flow, status, elapsed)
}

var defaultValidator = NewValidator()

func (s *Service) validator() *validator.Validate {
	if s.validate != nil {
		return s.validate
	}
	return defaultValidator
}

func invalid(flow string, err error) error {
	return fmt.Errorf("%s: %w: %w", flow, ErrInvalidInput, err)
}

func mediaFrom(doc datauri.Document) llm.Media {
	return llm.Media{MimeType: doc.MediaType, Data: doc.Data}
}
