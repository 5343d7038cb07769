package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/otcheredev/medorders/internal/models"
	"github.com/rs/zerolog"
)

const redacted = "[REDACTED]"

// AuditRecorder persists a summary of each request
type AuditRecorder interface {
	Record(ctx context.Context, entry *models.AuditLog) error
}

// AuditOptions configures the audit middleware
type AuditOptions struct {
	// MaxBodyBytes caps how much of each body is written to the log. Zero
	// means no cap. The bodies seen by handlers and clients are never cut.
	MaxBodyBytes int
	// Recorder, when set, receives one AuditLog per request after the
	// response has been delivered.
	Recorder AuditRecorder
}

// Audit logs every request and response with headers, bodies and timing.
// The response is produced into a per-request buffer and copied verbatim to
// the client once the handler returns. If the handler panics, nothing it
// buffered is sent and the panic continues to the outer recovery handler.
func Audit(logger zerolog.Logger, opts AuditOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestBody := captureRequestBody(r)

			logger.Info().
				Str("request_id", chimiddleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("query", r.URL.RawQuery).
				Str("headers", FormatHeaders(r.Header)).
				Str("body", truncate(requestBody, opts.MaxBodyBytes)).
				Msg("HTTP request")

			buf := newBufferedWriter(w)
			info := &requestInfo{}
			start := time.Now()

			defer func() {
				if rec := recover(); rec != nil {
					elapsed := time.Since(start)
					logger.Error().
						Str("request_id", chimiddleware.GetReqID(r.Context())).
						Str("method", r.Method).
						Str("path", r.URL.Path).
						Int64("elapsed_ms", elapsed.Milliseconds()).
						Interface("panic", rec).
						Msg("HTTP request failed")
					// the outer recovery handler answers 500
					record(logger, opts.Recorder, r, info, http.StatusInternalServerError, elapsed)
					panic(rec)
				}
			}()

			next.ServeHTTP(buf, r.WithContext(withRequestInfo(r.Context(), info)))
			elapsed := time.Since(start)

			logger.Info().
				Str("request_id", chimiddleware.GetReqID(r.Context())).
				Int("status", buf.status()).
				Int64("elapsed_ms", elapsed.Milliseconds()).
				Str("headers", FormatHeaders(buf.sentHeader())).
				Str("body", truncate(buf.body.Bytes(), opts.MaxBodyBytes)).
				Msg("HTTP response")

			if err := buf.flush(); err != nil {
				logger.Warn().Err(err).
					Str("request_id", chimiddleware.GetReqID(r.Context())).
					Msg("Failed to deliver buffered response")
			}

			record(logger, opts.Recorder, r, info, buf.status(), elapsed)
		})
	}
}

// record persists the audit summary when a recorder is configured. Failures
// are logged and never reach the client.
func record(logger zerolog.Logger, recorder AuditRecorder, r *http.Request, info *requestInfo, status int, elapsed time.Duration) {
	if recorder == nil {
		return
	}
	entry := &models.AuditLog{
		RequestID:  chimiddleware.GetReqID(r.Context()),
		UserID:     info.userID,
		Method:     r.Method,
		Path:       r.URL.Path,
		StatusCode: status,
		Duration:   elapsed.Milliseconds(),
		IPAddress:  r.RemoteAddr,
		UserAgent:  r.UserAgent(),
	}
	if err := recorder.Record(context.WithoutCancel(r.Context()), entry); err != nil {
		logger.Warn().Err(err).
			Str("request_id", entry.RequestID).
			Msg("Failed to persist audit log")
	}
}

// FormatHeaders renders one "name: value" line per header value, sorted by
// name. Authorization values are always replaced with [REDACTED].
func FormatHeaders(h http.Header) string {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		redact := strings.EqualFold(name, "Authorization")
		for _, value := range h[name] {
			if redact {
				value = redacted
			}
			sb.WriteString(name)
			sb.WriteString(": ")
			sb.WriteString(value)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// captureRequestBody reads the request body and puts an equivalent reader
// back so the handler sees the same bytes. A read error is replayed to the
// handler after the bytes that were read successfully.
func captureRequestBody(r *http.Request) []byte {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}

	body, err := io.ReadAll(r.Body)
	original := r.Body
	var replay io.Reader = bytes.NewReader(body)
	if err != nil {
		replay = io.MultiReader(replay, errReader{err: err})
	}
	r.Body = replayBody{Reader: replay, closer: original}
	return body
}

type replayBody struct {
	io.Reader
	closer io.Closer
}

func (b replayBody) Close() error {
	return b.closer.Close()
}

type errReader struct {
	err error
}

func (e errReader) Read([]byte) (int, error) {
	return 0, e.err
}

func truncate(body []byte, max int) string {
	if max > 0 && len(body) > max {
		return string(body[:max]) + "...(truncated)"
	}
	return string(body)
}

// bufferedWriter collects status, headers and body of one response so they
// can be logged before anything reaches the client.
type bufferedWriter struct {
	dst    http.ResponseWriter
	header http.Header
	// sent is the header as it stood at WriteHeader; later changes are
	// dropped, as they would be by a real ResponseWriter
	sent        http.Header
	body        bytes.Buffer
	code        int
	wroteHeader bool
}

func newBufferedWriter(dst http.ResponseWriter) *bufferedWriter {
	return &bufferedWriter{
		dst:    dst,
		header: make(http.Header),
	}
}

func (b *bufferedWriter) Header() http.Header {
	return b.header
}

func (b *bufferedWriter) WriteHeader(code int) {
	if b.wroteHeader {
		return
	}
	b.code = code
	b.sent = b.header.Clone()
	b.wroteHeader = true
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	if !b.wroteHeader {
		b.WriteHeader(http.StatusOK)
	}
	return b.body.Write(p)
}

func (b *bufferedWriter) status() int {
	if !b.wroteHeader {
		return http.StatusOK
	}
	return b.code
}

// sentHeader is the header that reaches the client
func (b *bufferedWriter) sentHeader() http.Header {
	if b.wroteHeader {
		return b.sent
	}
	return b.header
}

// flush copies the buffered response to the real writer
func (b *bufferedWriter) flush() error {
	dst := b.dst.Header()
	for name, values := range b.sentHeader() {
		dst[name] = append([]string(nil), values...)
	}
	b.dst.WriteHeader(b.status())
	if b.body.Len() == 0 {
		return nil
	}
	_, err := b.dst.Write(b.body.Bytes())
	return err
}
