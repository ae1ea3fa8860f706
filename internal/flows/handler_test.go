package flows

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"buildmycv-backend/internal/history"
	"buildmycv-backend/internal/llm"
	"buildmycv-backend/internal/llm/mocks"
	"buildmycv-backend/internal/shared/server/middleware"
	"buildmycv-backend/internal/shared/server/respond"
)

type testAPI struct {
	router *gin.Engine
	model  *mocks.MockModel
	repo   *history.MemoryRepo
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)
	model := mocks.NewMockModel(ctrl)
	repo := history.NewMemoryRepo(0)

	h := NewHandler(NewService(model, nil, nil), history.NewService(repo), 0)
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Identity())
	h.RegisterRoutes(router.Group("/api/v1"))
	return &testAPI{router: router, model: model, repo: repo}
}

func (a *testAPI) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

type formFile struct {
	name        string
	contentType string
	data        []byte
}

func multipartRequest(t *testing.T, path string, fields map[string]string, file *formFile) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="file"; filename="`+file.name+`"`)
		header.Set("Content-Type", file.contentType)
		part, err := mw.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(file.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(t *testing.T, path string, payload any) *http.Request {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) respond.ErrorBody {
	t.Helper()
	var body struct {
		Error struct {
			Code    string              `json:"code"`
			Message string              `json:"message"`
			Details []respond.FieldIssue `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return respond.ErrorBody{Code: body.Error.Code, Message: body.Error.Message, Details: body.Error.Details}
}

func issueFields(details any) []string {
	issues, _ := details.([]respond.FieldIssue)
	fields := make([]string, 0, len(issues))
	for _, is := range issues {
		fields = append(fields, is.Field)
	}
	return fields
}

var pdfBytes = []byte("%PDF-1.4\n%test\n")

func TestAnalyzeMultipartUpload(t *testing.T) {
	api := newTestAPI(t)
	api.model.EXPECT().Generate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req llm.Request) (json.RawMessage, error) {
			require.True(t, req.Parts[1].IsMedia())
			assert.Equal(t, "application/pdf", req.Parts[1].Media.MimeType)
			assert.Equal(t, pdfBytes, req.Parts[1].Media.Data)
			return json.RawMessage(`{"analysisReport":"## Fine"}`), nil
		})

	req := multipartRequest(t, "/api/v1/resume/analyze", nil, &formFile{name: "cv.pdf", contentType: "application/pdf", data: pdfBytes})
	req.Header.Set("X-Guest-Id", "g-1")
	w := api.do(req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"analysisReport":"## Fine"}`, w.Body.String())

	runs, err := api.repo.ListByClient(context.Background(), "guest:g-1", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, history.FlowAnalyzeResume, runs[0].Flow)
	assert.Equal(t, history.StatusCompleted, runs[0].Status)
}

func TestAnalyzeRejectsBadUploads(t *testing.T) {
	cases := []struct {
		name  string
		file  *formFile
		issue string
	}{
		{name: "missing file", issue: "is required"},
		{name: "wrong type", file: &formFile{name: "cv.png", contentType: "image/png", data: []byte("\x89PNG\r\n\x1a\n0000")}, issue: "must be a PDF, DOC or DOCX file"},
		{name: "too large", file: &formFile{name: "cv.pdf", contentType: "application/pdf", data: append(append([]byte{}, pdfBytes...), make([]byte, 5<<20)...)}, issue: "must be at most 5MB"},
		{name: "empty", file: &formFile{name: "cv.pdf", contentType: "application/pdf"}, issue: "is empty"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := newTestAPI(t)
			w := api.do(multipartRequest(t, "/api/v1/resume/analyze", nil, tc.file))

			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			body := decodeError(t, w)
			assert.Equal(t, "validation_error", body.Code)
			issues := body.Details.([]respond.FieldIssue)
			require.Len(t, issues, 1)
			assert.Equal(t, "file", issues[0].Field)
			assert.Equal(t, tc.issue, issues[0].Issue)
		})
	}
}

func TestAnalyzeJSONDataURI(t *testing.T) {
	api := newTestAPI(t)
	api.model.EXPECT().Generate(gomock.Any(), gomock.Any()).Return(json.RawMessage(`{"analysisReport":"ok"}`), nil)

	w := api.do(jsonRequest(t, "/api/v1/resume/analyze", map[string]string{"resumeDataUri": pdfDataURI}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(jsonRequest(t, "/api/v1/resume/analyze", map[string]string{"resumeDataUri": "hello"}))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"resumeDataUri"}, issueFields(decodeError(t, w).Details))
}

func TestAnalyzeAnonymousIsNotRecorded(t *testing.T) {
	api := newTestAPI(t)
	api.model.EXPECT().Generate(gomock.Any(), gomock.Any()).Return(json.RawMessage(`{"analysisReport":"ok"}`), nil)

	w := api.do(jsonRequest(t, "/api/v1/resume/analyze", map[string]string{"resumeDataUri": pdfDataURI}))
	require.Equal(t, http.StatusOK, w.Code)

	runs, err := api.repo.ListByClient(context.Background(), middleware.AnonymousClientID, 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestMatchValidatesLengths(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(multipartRequest(t, "/api/v1/jobs/match", map[string]string{
		"resumeText":     "too short",
		"jobDescription": "also short",
	}, nil))

	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	body := decodeError(t, w)
	assert.ElementsMatch(t, []string{"resumeText", "jobDescription"}, issueFields(body.Details))
	issues := body.Details.([]respond.FieldIssue)
	for _, is := range issues {
		if is.Field == "resumeText" {
			assert.Equal(t, "must be at least 100 characters", is.Issue)
		}
	}
}

func TestMatchReturnsSuggestions(t *testing.T) {
	api := newTestAPI(t)
	resume := strings.Repeat("Go engineer with Postgres and Kubernetes experience. ", 3)
	jd := strings.Repeat("Senior backend role. ", 3)
	api.model.EXPECT().Generate(gomock.Any(), gomock.Any()).
		Return(json.RawMessage(`{"suggestions":["a","b","c"],"updatedResume":"new"}`), nil).Times(1)

	req := jsonRequest(t, "/api/v1/jobs/match", map[string]string{"resumeText": resume, "jobDescription": jd})
	req.Header.Set("X-Guest-Id", "g-2")
	w := api.do(req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"suggestions":["a","b","c"],"updatedResume":"new"}`, w.Body.String())

	runs, err := api.repo.ListByClient(context.Background(), "guest:g-2", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.NotNil(t, runs[0].SuggestionCount)
	assert.Equal(t, 3, *runs[0].SuggestionCount)
}

func TestOptimizeModelFailureIsGeneric(t *testing.T) {
	api := newTestAPI(t)
	api.model.EXPECT().Generate(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("upstream said: quota exceeded for key sk-123")).Times(1)

	req := multipartRequest(t, "/api/v1/resume/optimize",
		map[string]string{"jobDescription": strings.Repeat("Backend engineer role. ", 4)},
		&formFile{name: "cv.pdf", contentType: "application/pdf", data: pdfBytes})
	req.Header.Set("X-Guest-Id", "g-3")
	w := api.do(req)

	require.Equal(t, http.StatusBadGateway, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, CodeLLM, body.Code)
	assert.Equal(t, failureMessages["optimize"], body.Message)
	assert.NotContains(t, w.Body.String(), "sk-123")

	runs, err := api.repo.ListByClient(context.Background(), "guest:g-3", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, history.StatusFailed, runs[0].Status)
	assert.Equal(t, CodeLLM, runs[0].ErrorCode)
}

func TestOptimizeCollectsAllIssues(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(multipartRequest(t, "/api/v1/resume/optimize", map[string]string{"jobDescription": "short"}, nil))

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.ElementsMatch(t, []string{"file", "jobDescription"}, issueFields(decodeError(t, w).Details))
}

func TestOptimizeRecordsScoreAndDashboard(t *testing.T) {
	api := newTestAPI(t)
	api.model.EXPECT().Generate(gomock.Any(), gomock.Any()).
		Return(json.RawMessage(`{"atsScore":81,"analysisReport":"r","updatedResume":"u"}`), nil)

	req := jsonRequest(t, "/api/v1/resume/optimize", map[string]string{
		"resumeDataUri":  pdfDataURI,
		"jobDescription": strings.Repeat("Backend engineer role. ", 4),
	})
	req.Header.Set("X-Guest-Id", "g-4")
	w := api.do(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"atsScore":81,"analysisReport":"r","updatedResume":"u"}`, w.Body.String())

	dash := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil)
	dash.Header.Set("X-Guest-Id", "g-4")
	w = api.do(dash)
	require.Equal(t, http.StatusOK, w.Code)

	var summary history.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	require.NotNil(t, summary.LatestATSScore)
	assert.Equal(t, 81, *summary.LatestATSScore)
	assert.Equal(t, 1, summary.Optimizations)
	require.Len(t, summary.ScoreHistory, 1)
}

func TestOptimizeSchemaMismatchIsBadGateway(t *testing.T) {
	api := newTestAPI(t)
	api.model.EXPECT().Generate(gomock.Any(), gomock.Any()).
		Return(json.RawMessage(`{"atsScore":140,"analysisReport":"r","updatedResume":"u"}`), nil)

	w := api.do(jsonRequest(t, "/api/v1/resume/optimize", map[string]string{
		"resumeDataUri":  pdfDataURI,
		"jobDescription": strings.Repeat("Backend engineer role. ", 4),
	}))
	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, CodeSchemaMismatch, decodeError(t, w).Code)
}

func TestDashboardRequiresGuestID(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil))

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "guest_id_required", decodeError(t, w).Code)
}

func TestSizeIssueUnits(t *testing.T) {
	assert.Equal(t, "must be at most 5MB", sizeIssue(5<<20))
	assert.Equal(t, "must be at most 512KB", sizeIssue(512<<10))
	assert.Equal(t, "must be at most 900 bytes", sizeIssue(900))
}

func TestAnalyzeSmallUploadLimitMessage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(NewService(llm.PlaceholderModel{}, nil, nil), nil, 256<<10)
	router := gin.New()
	router.Use(middleware.Identity())
	h.RegisterRoutes(router.Group("/api/v1"))

	data := append(append([]byte{}, pdfBytes...), make([]byte, 300<<10)...)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, multipartRequest(t, "/api/v1/resume/analyze", nil, &formFile{name: "cv.pdf", contentType: "application/pdf", data: data}))

	require.Equal(t, http.StatusBadRequest, w.Code)
	issues := decodeError(t, w).Details.([]respond.FieldIssue)
	require.Len(t, issues, 1)
	assert.Equal(t, "must be at most 256KB", issues[0].Issue)
}

func TestMatchCorruptPDFUploadIsBadRequest(t *testing.T) {
	api := newTestAPI(t)
	req := multipartRequest(t, "/api/v1/jobs/match",
		map[string]string{"jobDescription": strings.Repeat("Backend engineer role. ", 4)},
		&formFile{name: "cv.pdf", contentType: "application/pdf", data: []byte("%PDF-1.4 truncated")})
	w := api.do(req)

	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Equal(t, []string{"file"}, issueFields(decodeError(t, w).Details))
}
