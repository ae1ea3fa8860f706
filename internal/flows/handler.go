package flows

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"buildmycv-backend/internal/datauri"
	"buildmycv-backend/internal/extract"
	"buildmycv-backend/internal/history"
	"buildmycv-backend/internal/llm"
	"buildmycv-backend/internal/shared/server/middleware"
	"buildmycv-backend/internal/shared/server/respond"
	"buildmycv-backend/internal/shared/telemetry"
	"buildmycv-backend/internal/shared/util"
)

const (
	defaultMaxUpload = 5 << 20
	multipartMemory  = 32 << 20
	formErrKey       = "flows.formErr"
)

var allowedResumeTypes = map[string]bool{
	extract.MimePDF:  true,
	extract.MimeDOC:  true,
	extract.MimeDOCX: true,
}

// Handler wires HTTP handlers to the flows service.
type Handler struct {
	Svc            *Service
	History        *history.Service
	MaxUploadBytes int64
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, hist *history.Service, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUpload
	}
	return &Handler{Svc: svc, History: hist, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches flow routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/resume/analyze", h.analyze)
	rg.POST("/jobs/match", h.match)
	rg.POST("/resume/optimize", h.optimize)
	rg.GET("/dashboard", h.dashboard)
}

func (h *Handler) analyze(c *gin.Context) {
	c.Set(middleware.FlowKey, history.FlowAnalyzeResume)

	var dataURI string
	if h.isMultipart(c) {
		doc, issues := h.readResumeUpload(c)
		if len(issues) > 0 {
			validationError(c, issues)
			return
		}
		dataURI = datauri.Encode(doc)
	} else {
		var req analyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
			return
		}
		if issues := h.checkDataURI(req.ResumeDataURI); len(issues) > 0 {
			validationError(c, issues)
			return
		}
		dataURI = req.ResumeDataURI
	}

	start := time.Now()
	out, err := h.Svc.AnalyzeResume(c.Request.Context(), AnalyzeResumeInput{ResumeDataURI: dataURI})
	h.record(c, history.Run{Flow: history.FlowAnalyzeResume}, start, err)
	if err != nil {
		flowError(c, "analyze", err)
		return
	}
	respond.OK(c, out)
}

func (h *Handler) match(c *gin.Context) {
	c.Set(middleware.FlowKey, history.FlowMatchJobs)

	var req matchRequest
	if h.isMultipart(c) {
		req.JobDescription = c.PostForm("jobDescription")
		req.ResumeText = c.PostForm("resumeText")
		if strings.TrimSpace(req.ResumeText) == "" {
			doc, issues := h.readResumeUpload(c)
			if len(issues) > 0 {
				validationError(c, issues)
				return
			}
			text, err := extract.Text(c.Request.Context(), doc.Data, doc.MediaType, "")
			if err != nil {
				validationError(c, []respond.FieldIssue{{Field: "file", Issue: "could not read text from the resume file"}})
				return
			}
			req.ResumeText = text
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}
	if err := defaultValidator.Struct(req); err != nil {
		validationError(c, FieldIssues(err))
		return
	}

	start := time.Now()
	out, err := h.Svc.MatchJobs(c.Request.Context(), MatchJobsInput{
		JobDescription: req.JobDescription,
		ResumeText:     req.ResumeText,
	})
	run := history.Run{Flow: history.FlowMatchJobs}
	if err == nil {
		n := len(out.Suggestions)
		run.SuggestionCount = &n
	}
	h.record(c, run, start, err)
	if err != nil {
		flowError(c, "match", err)
		return
	}
	respond.OK(c, out)
}

func (h *Handler) optimize(c *gin.Context) {
	c.Set(middleware.FlowKey, history.FlowGenerateUpdatedResume)

	var req optimizeRequest
	var issues []respond.FieldIssue
	if h.isMultipart(c) {
		req.JobDescription = c.PostForm("jobDescription")
		doc, fileIssues := h.readResumeUpload(c)
		issues = append(issues, fileIssues...)
		if len(fileIssues) == 0 {
			req.ResumeDataURI = datauri.Encode(doc)
		}
	} else {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
			return
		}
		issues = append(issues, h.checkDataURI(req.ResumeDataURI)...)
	}
	if err := defaultValidator.Struct(req); err != nil {
		issues = append(issues, FieldIssues(err)...)
	}
	if len(issues) > 0 {
		validationError(c, issues)
		return
	}

	start := time.Now()
	out, err := h.Svc.GenerateUpdatedResume(c.Request.Context(), GenerateUpdatedResumeInput{
		ResumeDataURI:  req.ResumeDataURI,
		JobDescription: req.JobDescription,
	})
	run := history.Run{Flow: history.FlowGenerateUpdatedResume}
	if err == nil {
		score := out.ATSScore
		run.ATSScore = &score
	}
	h.record(c, run, start, err)
	if err != nil {
		flowError(c, "optimize", err)
		return
	}
	respond.OK(c, out)
}

func (h *Handler) dashboard(c *gin.Context) {
	if middleware.IsAnonymous(c) || h.History == nil {
		respond.Error(c, http.StatusUnauthorized, "guest_id_required", "X-Guest-Id header is required", nil)
		return
	}
	summary, err := h.History.Summary(c.Request.Context(), middleware.ClientIDFromContext(c))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal", "failed to load dashboard", nil)
		return
	}
	respond.OK(c, summary)
}

// readResumeUpload reads the multipart "file" field and enforces size and type.
func (h *Handler) readResumeUpload(c *gin.Context) (datauri.Document, []respond.FieldIssue) {
	if v, ok := c.Get(formErrKey); ok {
		if err, _ := v.(error); err != nil && isTooLarge(err) {
			return datauri.Document{}, []respond.FieldIssue{{Field: "file", Issue: sizeIssue(h.MaxUploadBytes)}}
		}
		return datauri.Document{}, []respond.FieldIssue{{Field: "file", Issue: "could not parse the upload"}}
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return datauri.Document{}, []respond.FieldIssue{{Field: "file", Issue: "is required"}}
	}
	if fileHeader.Size > h.MaxUploadBytes {
		return datauri.Document{}, []respond.FieldIssue{{Field: "file", Issue: sizeIssue(h.MaxUploadBytes)}}
	}

	file, err := fileHeader.Open()
	if err != nil {
		return datauri.Document{}, []respond.FieldIssue{{Field: "file", Issue: "unable to read file"}}
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.MaxUploadBytes+1))
	if err != nil {
		return datauri.Document{}, []respond.FieldIssue{{Field: "file", Issue: "unable to read file"}}
	}
	if int64(len(data)) > h.MaxUploadBytes {
		return datauri.Document{}, []respond.FieldIssue{{Field: "file", Issue: sizeIssue(h.MaxUploadBytes)}}
	}
	if len(data) == 0 {
		return datauri.Document{}, []respond.FieldIssue{{Field: "file", Issue: "is empty"}}
	}

	mimeType := extract.NormalizeMimeType(fileHeader.Header.Get("Content-Type"), fileHeader.Filename, data)
	telemetry.Debug("upload.received", map[string]any{
		"request_id": middleware.RequestIDFromContext(c),
		"file_name":  util.SafeFileName(fileHeader.Filename),
		"mime_type":  mimeType,
		"size":       len(data),
	})
	if !allowedResumeTypes[mimeType] {
		return datauri.Document{}, []respond.FieldIssue{{Field: "file", Issue: "must be a PDF, DOC or DOCX file"}}
	}
	return datauri.FromBytes(data, mimeType), nil
}

func (h *Handler) checkDataURI(raw string) []respond.FieldIssue {
	if strings.TrimSpace(raw) == "" {
		return []respond.FieldIssue{{Field: "resumeDataUri", Issue: "is required"}}
	}
	doc, err := datauri.Parse(raw)
	if err != nil {
		return []respond.FieldIssue{{Field: "resumeDataUri", Issue: "must be a base64 data URI"}}
	}
	if int64(len(doc.Data)) > h.MaxUploadBytes {
		return []respond.FieldIssue{{Field: "resumeDataUri", Issue: sizeIssue(h.MaxUploadBytes)}}
	}
	if !allowedResumeTypes[doc.MediaType] {
		return []respond.FieldIssue{{Field: "resumeDataUri", Issue: "must be a PDF, DOC or DOCX file"}}
	}
	return nil
}

func (h *Handler) record(c *gin.Context, run history.Run, start time.Time, err error) {
	if h.History == nil || middleware.IsAnonymous(c) {
		return
	}
	run.ClientID = middleware.ClientIDFromContext(c)
	run.Duration = time.Since(start)
	run.Provider, run.Model = llm.Describe(h.Svc.Model)
	run.Status = history.StatusCompleted
	if err != nil {
		run.Status = history.StatusFailed
		run.ErrorCode = ErrorCode(err)
	}
	// the request context may already be cancelled; history must still be written
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), 5*time.Second)
	defer cancel()
	// Record logs its own failures; the response never depends on history
	_ = h.History.Record(ctx, run)
}

func flowError(c *gin.Context, kind string, err error) {
	code := ErrorCode(err)
	switch code {
	case CodeValidation:
		respond.Error(c, http.StatusBadRequest, code, "The resume could not be processed. Check the file and try again.", nil)
	case CodeInternal:
		respond.Error(c, http.StatusInternalServerError, code, failureMessages[kind], nil)
	default:
		respond.Error(c, http.StatusBadGateway, code, failureMessages[kind], nil)
	}
}

func validationError(c *gin.Context, issues []respond.FieldIssue) {
	respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request", issues)
}

// isMultipart parses a multipart body once, capped so form parsing cannot
// read past the upload limit. A parse failure is reported by readResumeUpload.
func (h *Handler) isMultipart(c *gin.Context) bool {
	if !strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		return false
	}
	if c.Request.MultipartForm == nil {
		// room for the other form fields around the file
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes+(1<<20))
		if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
			c.Set(formErrKey, err)
		}
	}
	return true
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large")
}

func sizeIssue(limit int64) string {
	switch {
	case limit >= 1<<20:
		return fmt.Sprintf("must be at most %dMB", limit>>20)
	case limit >= 1<<10:
		return fmt.Sprintf("must be at most %dKB", limit>>10)
	default:
		return fmt.Sprintf("must be at most %d bytes", limit)
	}
}
