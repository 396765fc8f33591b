package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"document-qa/internal/config"
	"document-qa/internal/models"
)

type fakeService struct {
	ingested   map[string]string
	lastQuery  string
	queryErr   error
	ingestErr  error
	documents  []models.DocumentInfo
	answerText string
}

func (f *fakeService) Ingest(_ context.Context, filename string, body io.Reader) (*models.IngestResult, error) {
	if f.ingestErr != nil {
		return nil, f.ingestErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if f.ingested == nil {
		f.ingested = map[string]string{}
	}
	f.ingested[filename] = string(data)
	return &models.IngestResult{
		Message:       fmt.Sprintf("File '%s' uploaded, parsed, chunked and indexed successfully!", filename),
		Filename:      filename,
		PreviewText:   string(data),
		NumChunks:     1,
		NumEmbeddings: 1,
	}, nil
}

func (f *fakeService) Query(_ context.Context, filename, question string) (*models.QueryResult, error) {
	f.lastQuery = filename + "|" + question
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return &models.QueryResult{Query: question, Results: []string{"chunk one"}, Answer: f.answerText}, nil
}

func (f *fakeService) Documents(context.Context) ([]models.DocumentInfo, error) {
	return f.documents, nil
}

func newTestServer(svc Service) *Server {
	return New(config.ServerConfig{
		Mode:           gin.TestMode,
		CORSOrigins:    []string{"http://localhost:8501"},
		MaxUploadBytes: 1 << 10,
	}, svc)
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

func do(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestHealth(t *testing.T) {
	rec := do(newTestServer(&fakeService{}), httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Fatal("missing request id header")
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := do(newTestServer(&fakeService{}), req)
	if got := rec.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Fatalf("request id = %q", got)
	}
}

func TestUpload(t *testing.T) {
	svc := &fakeService{}
	body, contentType := multipartBody(t, "file", "notes.txt", "hello world")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := do(newTestServer(svc), req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var result models.IngestResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.Filename != "notes.txt" || result.NumChunks != 1 || result.PreviewText != "hello world" {
		t.Fatalf("result = %+v", result)
	}
	if svc.ingested["notes.txt"] != "hello world" {
		t.Fatalf("service received %q", svc.ingested["notes.txt"])
	}
}

func TestUploadErrors(t *testing.T) {
	tests := []struct {
		name       string
		field      string
		content    string
		ingestErr  error
		wantStatus int
		wantCode   string
	}{
		{"missing field", "document", "x", nil, http.StatusBadRequest, "bad_request"},
		{"too large", "file", strings.Repeat("x", 4<<10), nil, http.StatusRequestEntityTooLarge, "file_too_large"},
		{"unsupported", "file", "x", fmt.Errorf("%w: docx", models.ErrUnsupportedFormat), http.StatusBadRequest, "unsupported_format"},
		{"empty document", "file", "x", fmt.Errorf("%w: notes.txt", models.ErrEmptyDocument), http.StatusUnprocessableEntity, "empty_document"},
		{"embedding down", "file", "x", fmt.Errorf("%w: connection refused", models.ErrEmbedding), http.StatusBadGateway, "embedding_failed"},
		{"other", "file", "x", fmt.Errorf("disk full"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, contentType := multipartBody(t, tt.field, "notes.txt", tt.content)
			req := httptest.NewRequest(http.MethodPost, "/upload", body)
			req.Header.Set("Content-Type", contentType)

			rec := do(newTestServer(&fakeService{ingestErr: tt.ingestErr}), req)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if got := decodeError(t, rec).ErrorCode; got != tt.wantCode {
				t.Fatalf("error_code = %q, want %q", got, tt.wantCode)
			}
		})
	}
}

func TestSearchBindings(t *testing.T) {
	tests := []struct {
		name        string
		target      string
		body        string
		contentType string
	}{
		{"query params", "/search?query=what%3F&file_name=notes.txt", "", ""},
		{"form", "/search", url.Values{"query": {"what?"}, "file_name": {"notes.txt"}}.Encode(), "application/x-www-form-urlencoded"},
		{"json", "/search", `{"query":"what?","file_name":"notes.txt"}`, "application/json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{answerText: "42"}
			req := httptest.NewRequest(http.MethodPost, tt.target, strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := do(newTestServer(svc), req)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
			}
			if svc.lastQuery != "notes.txt|what?" {
				t.Fatalf("service got %q", svc.lastQuery)
			}
			var result models.QueryResult
			if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
				t.Fatal(err)
			}
			if result.Answer != "42" || len(result.Results) != 1 {
				t.Fatalf("result = %+v", result)
			}
		})
	}
}

func TestSearchErrors(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		queryErr   error
		wantStatus int
	}{
		{"missing file name", "/search?query=hi", nil, http.StatusBadRequest},
		{"unknown document", "/search?query=hi&file_name=nope.txt", fmt.Errorf("%w: nope.txt", models.ErrNotFound), http.StatusNotFound},
		{"empty query", "/search?file_name=notes.txt", fmt.Errorf("%w: question is empty", models.ErrInvalidQuery), http.StatusBadRequest},
		{"generation", "/search?query=hi&file_name=notes.txt", fmt.Errorf("%w: timeout", models.ErrGeneration), http.StatusBadGateway},
		{"corrupt index", "/search?query=hi&file_name=notes.txt", fmt.Errorf("%w: checksum", models.ErrCorruptIndex), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(newTestServer(&fakeService{queryErr: tt.queryErr}), httptest.NewRequest(http.MethodPost, tt.target, nil))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestDocuments(t *testing.T) {
	svc := &fakeService{documents: []models.DocumentInfo{{Filename: "a.txt", SizeBytes: 3}}}
	rec := do(newTestServer(svc), httptest.NewRequest(http.MethodGet, "/documents", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Documents []models.DocumentInfo `json:"documents"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Documents) != 1 || body.Documents[0].Filename != "a.txt" {
		t.Fatalf("documents = %+v", body.Documents)
	}
}

func TestDocumentsEmptyIsArray(t *testing.T) {
	rec := do(newTestServer(&fakeService{}), httptest.NewRequest(http.MethodGet, "/documents", nil))
	if !strings.Contains(rec.Body.String(), `"documents":[]`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/search", nil)
	req.Header.Set("Origin", "http://localhost:8501")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := do(newTestServer(&fakeService{}), req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:8501" {
		t.Fatalf("allow origin = %q", got)
	}
}

func TestUIIndex(t *testing.T) {
	rec := do(newTestServer(&fakeService{}), httptest.NewRequest(http.MethodGet, "/?file_name=notes.txt", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `action="/ui/upload"`) || !strings.Contains(body, `value="notes.txt"`) {
		t.Fatalf("unexpected page: %s", body)
	}
}

func TestUIUploadPrefillsFilename(t *testing.T) {
	body, contentType := multipartBody(t, "file", "notes.txt", "hello world")
	req := httptest.NewRequest(http.MethodPost, "/ui/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := do(newTestServer(&fakeService{}), req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	page := rec.Body.String()
	if !strings.Contains(page, `value="notes.txt"`) || !strings.Contains(page, "indexed successfully") {
		t.Fatalf("unexpected page: %s", page)
	}
}

func TestUIAskRendersMarkdownAnswer(t *testing.T) {
	svc := &fakeService{answerText: "**Paris** is the capital.\n\n<script>alert(1)</script>"}
	form := url.Values{"query": {"capital?"}, "file_name": {"notes.txt"}}
	req := httptest.NewRequest(http.MethodPost, "/ui/ask", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := do(newTestServer(svc), req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	page := rec.Body.String()
	if !strings.Contains(page, "<strong>Paris</strong>") {
		t.Fatalf("answer not rendered: %s", page)
	}
	if strings.Contains(page, "<script>alert(1)</script>") {
		t.Fatal("raw html from the answer reached the page")
	}
	if !strings.Contains(page, "Chunk 1:") {
		t.Fatal("retrieved chunks missing")
	}
}

func TestUIAskRequiresFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/ui/ask", strings.NewReader("query=hi"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := do(newTestServer(&fakeService{}), req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}
