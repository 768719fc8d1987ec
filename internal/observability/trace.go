package observability

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

// sensitiveParams are query parameter names that should be scrubbed from
// trace output.
var sensitiveParams = map[string]bool{
	"access_token":  true,
	"refresh_token": true,
	"token":         true,
	"api_key":       true,
	"password":      true,
	"secret":        true,
	"client_secret": true,
}

// TraceWriter outputs human-readable trace lines to stderr.
// It formats output with timestamps relative to session start and filters
// events by a verbosity level: 0 silent, 1 requests, 2 requests + bodies.
type TraceWriter struct {
	mu        sync.Mutex
	writer    io.Writer
	startTime time.Time
	level     int
}

// NewTraceWriter creates a TraceWriter that writes to stderr.
func NewTraceWriter() *TraceWriter {
	return &TraceWriter{writer: os.Stderr, startTime: time.Now()}
}

// NewTraceWriterTo creates a TraceWriter that writes to the given writer.
func NewTraceWriterTo(w io.Writer) *TraceWriter {
	return &TraceWriter{writer: w, startTime: time.Now()}
}

// SetLevel changes the verbosity level at runtime.
func (t *TraceWriter) SetLevel(level int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.level = level
}

// Record implements Recorder.
//
// Format: [0.234s] GET /orders -> 200 (45ms)
func (t *TraceWriter) Record(ev Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.level < 1 {
		return
	}
	if ev.Level == LevelDebug && t.level < 2 {
		return
	}

	elapsed := time.Since(t.startTime).Seconds()

	switch {
	case ev.Err != nil:
		fmt.Fprintf(t.writer, "[%.3fs] %s %s -> ERROR: %v\n",
			elapsed, ev.Method, scrubURL(ev.URL), ev.Err)
	case ev.Method == "":
		// Body-only debug event
		if len(ev.ResponseBody) > 0 {
			fmt.Fprintf(t.writer, "[%.3fs]   body: %s\n", elapsed, ev.ResponseBody)
		}
		if len(ev.RequestBody) > 0 {
			fmt.Fprintf(t.writer, "[%.3fs]   sent: %s\n", elapsed, ev.RequestBody)
		}
	default:
		fmt.Fprintf(t.writer, "[%.3fs] %s %s -> %d (%dms)\n",
			elapsed, ev.Method, scrubURL(ev.URL), ev.Status, ev.Duration.Milliseconds())
	}
}

// scrubURL redacts sensitive query parameters from a URL for safe logging.
// Returns a safe placeholder if the URL cannot be parsed.
func scrubURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		// Don't leak potentially sensitive malformed URLs
		return "[unparseable URL]"
	}

	query := u.Query()
	modified := false
	for key := range query {
		if sensitiveParams[strings.ToLower(key)] {
			query.Set(key, "[REDACTED]")
			modified = true
		}
	}

	if !modified {
		return rawURL
	}

	u.RawQuery = query.Encode()
	return u.String()
}
