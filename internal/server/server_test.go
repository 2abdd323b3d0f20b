package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redactyl/labscrub/internal/audit"
	"github.com/redactyl/labscrub/internal/logging"
	"github.com/redactyl/labscrub/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSink struct {
	mu    sync.Mutex
	saved map[string]string
	err   error
}

func (m *memSink) Save(_ context.Context, name, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.saved == nil {
		m.saved = map[string]string{}
	}
	m.saved[name] = content
	return nil
}

type upload struct {
	name, body string
}

func multipartRequest(t *testing.T, field string, files ...upload) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := mw.CreateFormFile(field, f.name)
		require.NoError(t, err)
		_, err = io.WriteString(part, f.body)
		require.NoError(t, err)
	}
	require.NoError(t, mw.WriteField("note", "x"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/SanitizeLabOrder", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func newTestServer(t *testing.T, sink *memSink, cfg Config) (*Server, *prometheus.Registry, *audit.AuditLog) {
	t.Helper()
	reg := prometheus.NewRegistry()
	a := audit.NewAuditLog(filepath.Join(t.TempDir(), "audit.jsonl"))
	s := New(cfg, Deps{Sink: sink, Audit: a, Metrics: metrics.NewCollector(reg), Logger: logging.Discard()})
	return s, reg, a
}

// counterValue returns the value of the counter name whose labels include
// want, or 0 when no such series exists.
func counterValue(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			got := map[string]string{}
			for _, lp := range m.GetLabel() {
				got[lp.GetName()] = lp.GetValue()
			}
			for k, v := range want {
				if got[k] != v {
					continue next
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestSanitizeLabOrder_Success(t *testing.T) {
	sink := &memSink{}
	s, m, a := newTestServer(t, sink, Config{})

	req := multipartRequest(t, UploadField, upload{"order.txt", "Patient Name: John Doe\nTest: CBC\n"})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
	assert.Equal(t, "Patient Name: [REDACTED]\nTest: CBC\n", sink.saved["order_sanitized.txt"])
	assert.Equal(t, 1.0, counterValue(t, m, "labscrub_documents_total", map[string]string{"source": audit.SourceServer, "status": "ok"}))

	hist, err := a.LoadHistory()
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, "order.txt", hist[0].Input)
	assert.Equal(t, 1, hist[0].Redactions)
}

func TestSanitizeLabOrder_MultipleFiles(t *testing.T) {
	sink := &memSink{}
	s, _, _ := newTestServer(t, sink, Config{})

	req := multipartRequest(t, UploadField,
		upload{"a.txt", "SSN: 123-45-6789\n"},
		upload{"b.TXT", "call 555-123-4567\n"},
	)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "SSN: [REDACTED]\n", sink.saved["a_sanitized.txt"])
	assert.Equal(t, "call [REDACTED]\n", sink.saved["b_sanitized.txt"])
}

func TestSanitizeLabOrder_ValidationErrors(t *testing.T) {
	cases := []struct {
		name   string
		req    func(t *testing.T) *http.Request
		body   string
		reason string
	}{
		{
			name:   "no file",
			req:    func(t *testing.T) *http.Request { return multipartRequest(t, UploadField) },
			body:   "No file uploaded or file is empty.",
			reason: "missing_file",
		},
		{
			name:   "wrong field",
			req:    func(t *testing.T) *http.Request { return multipartRequest(t, "other", upload{"a.txt", "x"}) },
			body:   "No file uploaded or file is empty.",
			reason: "missing_file",
		},
		{
			name:   "empty file",
			req:    func(t *testing.T) *http.Request { return multipartRequest(t, UploadField, upload{"a.txt", ""}) },
			body:   "No file uploaded or file is empty.",
			reason: "missing_file",
		},
		{
			name:   "not text",
			req:    func(t *testing.T) *http.Request { return multipartRequest(t, UploadField, upload{"a.pdf", "x"}) },
			body:   "Only .txt files are allowed.",
			reason: "not_text",
		},
		{
			name: "not multipart",
			req: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/SanitizeLabOrder", strings.NewReader("hello"))
			},
			body:   "No file uploaded or file is empty.",
			reason: "missing_file",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sink := &memSink{}
			s, m, _ := newTestServer(t, sink, Config{})
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, tc.req(t))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.body, rec.Body.String())
			assert.Empty(t, sink.saved)
			assert.Equal(t, 1.0, counterValue(t, m, "labscrub_uploads_rejected_total", map[string]string{"reason": tc.reason}))
		})
	}
}

func TestSanitizeLabOrder_OneBadFileRejectsAll(t *testing.T) {
	sink := &memSink{}
	s, _, _ := newTestServer(t, sink, Config{})
	req := multipartRequest(t, UploadField, upload{"a.txt", "SSN: 1"}, upload{"b.csv", "x"})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, sink.saved)
}

func TestSanitizeLabOrder_TooLarge(t *testing.T) {
	sink := &memSink{}
	s, m, _ := newTestServer(t, sink, Config{MaxUploadBytes: 64})
	req := multipartRequest(t, UploadField, upload{"a.txt", strings.Repeat("x", 1024)})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, sink.saved)
	assert.Equal(t, 1.0, counterValue(t, m, "labscrub_uploads_rejected_total", map[string]string{"reason": "too_large"}))
}

func TestSanitizeLabOrder_SinkFailureIsProblem(t *testing.T) {
	sink := &memSink{err: errors.New("disk full")}
	s, m, a := newTestServer(t, sink, Config{})
	req := multipartRequest(t, UploadField, upload{"a.txt", "DOB: 01/02/1990\n"})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	var p Problem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, ProblemTitle, p.Title)
	assert.Equal(t, 500, p.Status)
	assert.Equal(t, "/SanitizeLabOrder", p.Instance)
	assert.Contains(t, p.Detail, "disk full")
	assert.Contains(t, p.Type, "rfc9110")
	assert.Equal(t, 1.0, counterValue(t, m, "labscrub_documents_total", map[string]string{"source": audit.SourceServer, "status": "error"}))

	hist, err := a.LoadHistory()
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, "error", hist[0].Status)
}

func TestMethodNotAllowed(t *testing.T) {
	s, _, _ := newTestServer(t, &memSink{}, Config{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/SanitizeLabOrder", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s, _, _ := newTestServer(t, &memSink{}, Config{})
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "labscrub_")
}

func TestRequestIDIsPropagated(t *testing.T) {
	s, _, _ := newTestServer(t, &memSink{}, Config{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(logging.Discard())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestStartAndShutdown(t *testing.T) {
	s, _, _ := newTestServer(t, &memSink{}, Config{Listen: "127.0.0.1:0", ShutdownTimeout: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool { return s.Addr() != nil }, 2*time.Second, 10*time.Millisecond)
	resp, err := http.Get("http://" + s.Addr().String() + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	s.Shutdown()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
