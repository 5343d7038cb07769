package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/otcheredev/medorders/internal/auth"
	"github.com/otcheredev/medorders/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLogLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), "raw: %s", line)
		entries = append(entries, entry)
	}
	return entries
}

type memoryRecorder struct {
	mu      sync.Mutex
	entries []*models.AuditLog
	err     error
}

func (m *memoryRecorder) Record(ctx context.Context, entry *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return m.err
}

func TestAudit_RedactsAuthorization(t *testing.T) {
	var logs bytes.Buffer
	handler := Audit(zerolog.New(&logs), AuditOptions{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/patients?page=2", nil)
	req.Header.Set("Authorization", "Bearer abc123")
	req.Header.Set("X-Trace", "t-1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.NotContains(t, logs.String(), "abc123")

	entries := decodeLogLines(t, &logs)
	require.Len(t, entries, 2)
	assert.Equal(t, "HTTP request", entries[0]["message"])
	assert.Equal(t, "GET", entries[0]["method"])
	assert.Equal(t, "/api/patients", entries[0]["path"])
	assert.Equal(t, "page=2", entries[0]["query"])
	assert.Contains(t, entries[0]["headers"], "Authorization: [REDACTED]")
	assert.Contains(t, entries[0]["headers"], "X-Trace: t-1")

	assert.Equal(t, "HTTP response", entries[1]["message"])
	assert.Equal(t, float64(http.StatusNoContent), entries[1]["status"])
	assert.Contains(t, entries[1], "elapsed_ms")
}

func TestFormatHeaders(t *testing.T) {
	h := http.Header{}
	h["authorization"] = []string{"Basic dXNlcjpwYXNz"}
	h.Set("Content-Type", "application/json")
	h.Add("Accept", "text/plain")
	h.Add("Accept", "application/json")

	out := FormatHeaders(h)
	assert.Equal(t,
		"Accept: text/plain\nAccept: application/json\nContent-Type: application/json\nauthorization: [REDACTED]\n",
		out)
	assert.NotContains(t, out, "dXNlcjpwYXNz")
}

func TestAudit_ResponsePassesThroughUnchanged(t *testing.T) {
	var logs bytes.Buffer
	body := `{"id":"p1","name":"Jane"}`
	handler := Audit(zerolog.New(&logs), AuditOptions{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Location", "/api/patients/p1")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, body[:10])
		_, _ = io.WriteString(w, body[10:])
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/patients", strings.NewReader(`{"name":"Jane"}`)))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, body, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "/api/patients/p1", rec.Header().Get("Location"))

	entries := decodeLogLines(t, &logs)
	require.Len(t, entries, 2)
	assert.Equal(t, `{"name":"Jane"}`, entries[0]["body"])
	assert.Equal(t, body, entries[1]["body"])
}

func TestAudit_DefaultStatusIsOK(t *testing.T) {
	handler := Audit(zerolog.Nop(), AuditOptions{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestAudit_RequestBodyStillReadable(t *testing.T) {
	var seen string
	handler := Audit(zerolog.Nop(), AuditOptions{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		seen = string(b)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader("payload")))
	assert.Equal(t, "payload", seen)
}

type failingBody struct {
	data []byte
	read bool
}

func (f *failingBody) Read(p []byte) (int, error) {
	if !f.read {
		f.read = true
		return copy(p, f.data), nil
	}
	return 0, errors.New("connection reset")
}

func (f *failingBody) Close() error { return nil }

func TestAudit_RequestBodyReadErrorReplayed(t *testing.T) {
	var seen []byte
	var readErr error
	handler := Audit(zerolog.Nop(), AuditOptions{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, readErr = io.ReadAll(r.Body)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Body = &failingBody{data: []byte("part")}
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "part", string(seen))
	assert.EqualError(t, readErr, "connection reset")
}

func TestAudit_TruncatesLoggedBodyOnly(t *testing.T) {
	var logs bytes.Buffer
	long := strings.Repeat("x", 100)
	handler := Audit(zerolog.New(&logs), AuditOptions{MaxBodyBytes: 10})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, long)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, long, rec.Body.String())
	entries := decodeLogLines(t, &logs)
	require.Len(t, entries, 2)
	assert.Equal(t, strings.Repeat("x", 10)+"...(truncated)", entries[1]["body"])
}

func TestAudit_PanicPropagatesWithoutPartialResponse(t *testing.T) {
	var logs bytes.Buffer
	handler := Audit(zerolog.New(&logs), AuditOptions{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "partial")
		panic("database unavailable")
	}))

	rec := httptest.NewRecorder()
	assert.PanicsWithValue(t, "database unavailable", func() {
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/patients", nil))
	})
	assert.Empty(t, rec.Body.String())
	assert.False(t, rec.Flushed)

	entries := decodeLogLines(t, &logs)
	require.Len(t, entries, 2)
	assert.Equal(t, "HTTP request failed", entries[1]["message"])
}

func TestAudit_RecoveryAfterPanicProducesServerError(t *testing.T) {
	handler := Recovery(Audit(zerolog.Nop(), AuditOptions{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "partial")
		panic(errors.New("boom"))
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message":"Internal server error"}`, rec.Body.String())
}

func TestAudit_RecordsUserFromToken(t *testing.T) {
	recorder := &memoryRecorder{}
	validator := staticValidator{claims: &auth.Claims{}}
	validator.claims.Subject = "user-42"

	chain := Audit(zerolog.Nop(), AuditOptions{Recorder: recorder})(
		Authenticate(validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusAccepted)
		})),
	)

	req := httptest.NewRequest(http.MethodDelete, "/api/patients/p1", nil)
	req.Header.Set("Authorization", "Bearer good")
	req.Header.Set("User-Agent", "tests")
	chain.ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, recorder.entries, 1)
	entry := recorder.entries[0]
	assert.Equal(t, "user-42", entry.UserID)
	assert.Equal(t, http.MethodDelete, entry.Method)
	assert.Equal(t, "/api/patients/p1", entry.Path)
	assert.Equal(t, http.StatusAccepted, entry.StatusCode)
	assert.Equal(t, "tests", entry.UserAgent)
}

func TestAudit_RecorderFailureDoesNotAffectResponse(t *testing.T) {
	var logs bytes.Buffer
	recorder := &memoryRecorder{err: errors.New("disk full")}
	handler := Audit(zerolog.New(&logs), AuditOptions{Recorder: recorder})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = io.WriteString(w, "short and stout")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "short and stout", rec.Body.String())
	assert.Contains(t, logs.String(), "Failed to persist audit log")
}

func TestAudit_HeadersChangedAfterWriteHeaderAreDropped(t *testing.T) {
	handlerFunc := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Early", "1")
		w.WriteHeader(http.StatusOK)
		w.Header().Set("X-Late", "1")
		w.Header().Del("X-Early")
		_, _ = io.WriteString(w, "body")
	}

	direct := httptest.NewRecorder()
	http.HandlerFunc(handlerFunc).ServeHTTP(direct, httptest.NewRequest(http.MethodGet, "/", nil))

	var logs bytes.Buffer
	audited := httptest.NewRecorder()
	Audit(zerolog.New(&logs), AuditOptions{})(http.HandlerFunc(handlerFunc)).
		ServeHTTP(audited, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, direct.Result().Header.Get("X-Late"), audited.Result().Header.Get("X-Late"))
	assert.Equal(t, "1", audited.Result().Header.Get("X-Early"))
	assert.Empty(t, audited.Result().Header.Get("X-Late"))
	assert.Equal(t, direct.Body.String(), audited.Body.String())

	entries := decodeLogLines(t, &logs)
	require.Len(t, entries, 2)
	assert.Contains(t, entries[1]["headers"], "X-Early: 1")
	assert.NotContains(t, entries[1]["headers"], "X-Late")
}

func TestAudit_PanicIsRecordedAsServerError(t *testing.T) {
	recorder := &memoryRecorder{}
	handler := Audit(zerolog.Nop(), AuditOptions{Recorder: recorder})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	assert.Panics(t, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/patients", nil))
	})

	require.Len(t, recorder.entries, 1)
	assert.Equal(t, http.StatusInternalServerError, recorder.entries[0].StatusCode)
	assert.Equal(t, "/api/patients", recorder.entries[0].Path)
}
