package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cv-processor/internal/apperr"
	"cv-processor/internal/cv"
	"cv-processor/internal/matching"
	"cv-processor/internal/service"
	"cv-processor/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "s3cret"

type textExtractor struct{}

func (textExtractor) Extract(data []byte, _ cv.Format) (string, error) {
	text := strings.TrimSpace(strings.TrimPrefix(string(data), "%PDF"))
	if text == "" {
		return "", &apperr.ExtractionError{Format: "PDF", Err: apperr.ErrNoText}
	}
	return text, nil
}

// keywordEmbedder sets one dimension per known keyword found in the text.
type keywordEmbedder struct{}

var keywords = []string{"Python", "SQL", "Go", "Kubernetes"}

func (keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, 384)
	for i, kw := range keywords {
		if strings.Contains(text, kw) {
			vec[i] = 1
		}
	}
	return vec, nil
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, &apperr.EmbeddingError{Err: errors.New("model offline")}
}

type recordingNotifier struct {
	to, subject string
	err         error
}

func (n *recordingNotifier) Send(_ context.Context, to, subject, _ string) error {
	n.to, n.subject = to, subject
	return n.err
}

type testEnv struct {
	handler  http.Handler
	store    storage.Store
	notifier *recordingNotifier
}

func newTestEnv(t *testing.T, secret string, embedder service.Embedder) *testEnv {
	t.Helper()
	store, err := storage.NewSQLiteStore(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate(context.Background()))

	blobs, err := storage.NewLocalBlobStore(t.TempDir())
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	cvs := service.NewCVService(store, blobs,
		cv.NewCVParserWithExtractor(textExtractor{}),
		cv.NewExtractor(nil, cv.DefaultThresholds),
		embedder, nil)
	jobs := service.NewJobService(store, embedder, nil)
	contacts := service.NewContactService(store, notifier, nil)
	ranker := matching.NewRanker(store, nil)

	a := NewAPI(Options{AppName: "CV Processor", AppVersion: "1.0.0", SecretKey: secret, MaxUploadBytes: 1 << 10},
		cvs, jobs, contacts, ranker, nil)
	return &testEnv{handler: NewRouter(a), store: store, notifier: notifier}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	if req.Header.Get(secretKeyHeader) == "" {
		req.Header.Set(secretKeyHeader, testSecret)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) postJSON(t *testing.T, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return e.do(t, req)
}

func (e *testEnv) upload(t *testing.T, text string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/cv/upload", strings.NewReader("%PDF"+text))
	req.Header.Set("Content-Type", "application/pdf")
	req.Header.Set("Content-Disposition", `attachment; filename="resume.pdf"`)
	return e.do(t, req)
}

func detail(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Detail
}

const (
	johnCV = "John Smith\nEmail: john@example.com\nSkills: Python, SQL"
	janeCV = "Jane Doe\nEmail: jane@example.com\nSkills: Go, Kubernetes"
)

func TestSecretKey(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		env := newTestEnv(t, "", keywordEmbedder{})
		rr := env.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, "SECRET_KEY not configured on server", detail(t, rr))
	})

	t.Run("wrong key", func(t *testing.T) {
		env := newTestEnv(t, testSecret, keywordEmbedder{})
		req := httptest.NewRequest(http.MethodGet, "/api/cv/list", nil)
		req.Header.Set(secretKeyHeader, "nope")
		rr := env.do(t, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "Invalid SECRET_KEY", detail(t, rr))
	})

	t.Run("swagger is open", func(t *testing.T) {
		env := newTestEnv(t, testSecret, keywordEmbedder{})
		rr := httptest.NewRecorder()
		env.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
		assert.NotEqual(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, testSecret, keywordEmbedder{})
	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, HealthResponse{Status: "healthy", Service: "CV Processor", Version: "1.0.0"}, body)
}

func TestCVUpload(t *testing.T) {
	env := newTestEnv(t, testSecret, keywordEmbedder{})

	rr := env.upload(t, johnCV)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var rec storage.CVRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "John Smith", rec.CandidateName)
	assert.Equal(t, "john@example.com", rec.Email)
	assert.Equal(t, []string{"Python", "SQL"}, rec.Skills)
	assert.Equal(t, "resume.pdf", *rec.FileName)
	assert.True(t, rec.EmbeddingGenerated)
	assert.NotContains(t, rr.Body.String(), `"embedding"`)

	rr = env.upload(t, johnCV)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "CV with email john@example.com already exists", detail(t, rr))
}

func TestCVUploadRejections(t *testing.T) {
	env := newTestEnv(t, testSecret, keywordEmbedder{})

	tests := []struct {
		name        string
		body        string
		contentType string
		wantStatus  int
		wantDetail  string
	}{
		{name: "empty", contentType: "application/pdf", wantStatus: http.StatusBadRequest, wantDetail: "No file content provided"},
		{name: "unsupported", body: "hello", contentType: "text/plain", wantStatus: http.StatusBadRequest, wantDetail: "Unsupported content type: text/plain"},
		{name: "no email", body: "%PDFJohn Smith\nSkills: Go", contentType: "application/pdf", wantStatus: http.StatusBadRequest, wantDetail: "Could not extract email from CV. Please ensure CV contains email address."},
		{name: "too large", body: "%PDF" + strings.Repeat("x", 2<<10), contentType: "application/pdf", wantStatus: http.StatusRequestEntityTooLarge, wantDetail: "File too large (max 1024 bytes)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/cv/upload", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rr := env.do(t, req)
			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantDetail, detail(t, rr))
		})
	}
}

func TestCVUploadMultipart(t *testing.T) {
	env := newTestEnv(t, testSecret, keywordEmbedder{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "jane.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF" + janeCV))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/cv/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := env.do(t, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var rec storage.CVRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	assert.Equal(t, "jane@example.com", rec.Email)
	assert.Equal(t, "jane.pdf", *rec.FileName)
	assert.Equal(t, "pdf", *rec.FileType)
}

func TestCVList(t *testing.T) {
	env := newTestEnv(t, testSecret, keywordEmbedder{})
	require.Equal(t, http.StatusOK, env.upload(t, johnCV).Code)
	require.Equal(t, http.StatusOK, env.upload(t, janeCV).Code)

	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/api/cv/list?search=jane", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var cvs []storage.CVRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &cvs))
	require.Len(t, cvs, 1)
	assert.Equal(t, "Jane Doe", cvs[0].CandidateName)

	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/api/cv/list?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "limit must be a positive integer", detail(t, rr))
}

func createJD(t *testing.T, env *testEnv, in service.JobPostingInput) storage.JobPosting {
	t.Helper()
	rr := env.postJSON(t, "/api/jd/create", in)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var jp storage.JobPosting
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &jp))
	return jp
}

func TestJDCreateAndList(t *testing.T) {
	env := newTestEnv(t, testSecret, keywordEmbedder{})

	jp := createJD(t, env, service.JobPostingInput{Title: "Data Engineer", Requirements: "Python and SQL"})
	assert.Equal(t, "Python and SQL", jp.Description)
	assert.True(t, jp.IsActive)
	assert.True(t, jp.EmbeddingGenerated)

	inactive := false
	createJD(t, env, service.JobPostingInput{Title: "Old Role", Requirements: "Go", IsActive: &inactive})

	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/api/jd/list", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var postings []storage.JobPosting
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &postings))
	require.Len(t, postings, 1)
	assert.Equal(t, "Data Engineer", postings[0].Title)

	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/api/jd/list?active_only=false", nil))
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &postings))
	assert.Len(t, postings, 2)

	rr = env.postJSON(t, "/api/jd/create", map[string]string{"title": "No requirements"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "requirements is required", detail(t, rr))

	req := httptest.NewRequest(http.MethodPost, "/api/jd/create", strings.NewReader("{"))
	rr = env.do(t, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestFindBestCVs(t *testing.T) {
	env := newTestEnv(t, testSecret, keywordEmbedder{})
	require.Equal(t, http.StatusOK, env.upload(t, johnCV).Code)
	require.Equal(t, http.StatusOK, env.upload(t, janeCV).Code)
	jp := createJD(t, env, service.JobPostingInput{Title: "Data Engineer", Requirements: "Python and SQL"})

	rr := env.postJSON(t, "/api/jd/find-best-cvs", map[string]interface{}{"jd_id": jp.ID})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var matches []storage.MatchResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &matches))
	require.Len(t, matches, 2)
	assert.Equal(t, "John Smith", matches[0].CV.CandidateName)
	assert.InDelta(t, 1.0, matches[0].SimilarityScore, 1e-6)
	assert.InDelta(t, 0.0, matches[1].SimilarityScore, 1e-6)

	rr = env.postJSON(t, "/api/jd/find-best-cvs", map[string]interface{}{"jd_id": jp.ID, "top_k": 1})
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &matches))
	assert.Len(t, matches, 1)

	tests := []struct {
		name       string
		body       map[string]interface{}
		wantStatus int
		wantDetail string
	}{
		{name: "missing id", body: map[string]interface{}{}, wantStatus: http.StatusBadRequest, wantDetail: "jd_id is required"},
		{name: "unknown jd", body: map[string]interface{}{"jd_id": "missing"}, wantStatus: http.StatusNotFound, wantDetail: "Job description not found"},
		{name: "zero top_k", body: map[string]interface{}{"jd_id": jp.ID, "top_k": 0}, wantStatus: http.StatusBadRequest, wantDetail: "top_k must be at least 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.postJSON(t, "/api/jd/find-best-cvs", tt.body)
			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantDetail, detail(t, rr))
		})
	}
}

func TestFindBestCVsWithoutEmbedding(t *testing.T) {
	env := newTestEnv(t, testSecret, failingEmbedder{})
	jp := createJD(t, env, service.JobPostingInput{Title: "Data Engineer", Requirements: "Python"})
	assert.False(t, jp.EmbeddingGenerated)

	rr := env.postJSON(t, "/api/jd/find-best-cvs", map[string]interface{}{"jd_id": jp.ID})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "JD embedding not available", detail(t, rr))
}

func TestContactCandidate(t *testing.T) {
	env := newTestEnv(t, testSecret, keywordEmbedder{})
	rr := env.upload(t, johnCV)
	require.Equal(t, http.StatusOK, rr.Code)
	var rec storage.CVRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	jp := createJD(t, env, service.JobPostingInput{Title: "Data Engineer", Requirements: "Python"})

	rr = env.postJSON(t, "/api/jd/contact-candidate", ContactCandidateRequest{CVID: rec.ID, JDID: jp.ID})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var res service.ContactResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, "john@example.com", res.CandidateEmail)
	assert.Equal(t, "Data Engineer", res.JobTitle)
	assert.Equal(t, "john@example.com", env.notifier.to)
	assert.Equal(t, "Accepted", env.notifier.subject)

	rr = env.postJSON(t, "/api/jd/contact-candidate", ContactCandidateRequest{CVID: "missing", JDID: jp.ID})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "CV not found", detail(t, rr))

	rr = env.postJSON(t, "/api/jd/contact-candidate", ContactCandidateRequest{CVID: rec.ID, JDID: "missing"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "JD not found", detail(t, rr))

	env.notifier.err = errors.New("smtp down")
	rr = env.postJSON(t, "/api/jd/contact-candidate", ContactCandidateRequest{CVID: rec.ID, JDID: jp.ID})
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Failed to send email", detail(t, rr))
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t, testSecret, keywordEmbedder{})
	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/api/cv/upload", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
