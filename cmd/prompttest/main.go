package main

// Run one flow against the configured model from the command line:
//   go run ./cmd/prompttest -flow optimize -resume cv.pdf -jd jd.txt

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"buildmycv-backend/internal/bootstrap"
	"buildmycv-backend/internal/datauri"
	"buildmycv-backend/internal/extract"
	"buildmycv-backend/internal/flows"
	"buildmycv-backend/internal/shared/config"
	"buildmycv-backend/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()

	flow := flag.String("flow", "analyze", "Flow to run: analyze, match or optimize")
	resumePath := flag.String("resume", "", "Path to resume file (pdf, doc, docx or txt)")
	jdPath := flag.String("jd", "", "Path to job description file (match and optimize)")
	outPath := flag.String("out", "", "Path to write JSON output (optional)")
	provider := flag.String("provider", cfg.LLMProvider, "LLM provider")
	model := flag.String("model", cfg.LLMModel, "LLM model (LLM_MODEL, or the provider default when -provider changes)")
	flag.Parse()
	modelSet := false
	flag.Visit(func(f *flag.Flag) { modelSet = modelSet || f.Name == "model" })

	telemetry.Configure(os.Stderr, cfg.LogLevel)

	if strings.TrimSpace(*resumePath) == "" {
		exitErr("resume path is required")
	}
	cfg = withModel(cfg, *provider, *model, modelSet)
	// history is not needed for one-off runs
	cfg.DatabaseURL = ""

	ctx := context.Background()
	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		exitErr(fmt.Sprintf("bootstrap: %v", err))
	}

	resumeBytes, err := os.ReadFile(*resumePath)
	if err != nil {
		exitErr(fmt.Sprintf("read resume: %v", err))
	}
	fileName := filepath.Base(*resumePath)
	mimeType := extract.NormalizeMimeType("", fileName, resumeBytes)

	jobDescription := ""
	if strings.TrimSpace(*jdPath) != "" {
		jdBytes, err := os.ReadFile(*jdPath)
		if err != nil {
			exitErr(fmt.Sprintf("read job description: %v", err))
		}
		jobDescription = string(jdBytes)
	}

	var result any
	switch strings.ToLower(strings.TrimSpace(*flow)) {
	case "analyze":
		result, err = app.FlowService.AnalyzeResume(ctx, flows.AnalyzeResumeInput{
			ResumeDataURI: datauri.Encode(datauri.FromBytes(resumeBytes, mimeType)),
		})
	case "match":
		resumeText, xerr := extract.Text(ctx, resumeBytes, mimeType, fileName)
		if xerr != nil {
			exitErr(fmt.Sprintf("extract resume text: %v", xerr))
		}
		result, err = app.FlowService.MatchJobs(ctx, flows.MatchJobsInput{
			JobDescription: jobDescription,
			ResumeText:     resumeText,
		})
	case "optimize":
		result, err = app.FlowService.GenerateUpdatedResume(ctx, flows.GenerateUpdatedResumeInput{
			ResumeDataURI:  datauri.Encode(datauri.FromBytes(resumeBytes, mimeType)),
			JobDescription: jobDescription,
		})
	default:
		exitErr(fmt.Sprintf("unsupported flow: %s", *flow))
	}
	if err != nil {
		exitErr(fmt.Sprintf("%s [%s]: %v", *flow, flows.ErrorCode(err), err))
	}

	pretty, err := prettyJSON(result)
	if err != nil {
		exitErr(fmt.Sprintf("format json: %v", err))
	}

	if *outPath != "" {
		if err := os.WriteFile(*outPath, pretty, 0o644); err != nil {
			exitErr(fmt.Sprintf("write output: %v", err))
		}
	}
	if _, err := os.Stdout.Write(pretty); err != nil {
		exitErr(fmt.Sprintf("write stdout: %v", err))
	}
}

// withModel applies the -provider and -model flags. An explicit -model always
// wins; otherwise the configured model is kept unless the provider changed.
func withModel(cfg config.Config, provider, model string, modelSet bool) config.Config {
	normalized := config.NormalizeProvider(provider)
	switch {
	case modelSet && strings.TrimSpace(model) != "":
		cfg.LLMModel = strings.TrimSpace(model)
	case normalized != cfg.LLMProvider || cfg.LLMModel == "":
		cfg.LLMModel = config.DefaultModel(normalized)
	}
	cfg.LLMProvider = normalized
	return cfg
}

func prettyJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
