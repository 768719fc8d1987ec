// Package observability records request, response, and error events for the
// API pipeline. Sinks are passive: a failing or panicking sink never alters
// the outcome of the call it describes.
package observability

import (
	"encoding/json"
	"time"
)

// Level is the severity of a recorded event.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	default:
		return "error"
	}
}

// Event describes a single request/response/error occurrence.
type Event struct {
	Level        Level
	Method       string
	URL          string
	Status       int
	Duration     time.Duration
	Err          error
	RequestBody  []byte
	ResponseBody []byte
}

// Recorder consumes events. Implementations must be safe for concurrent use.
type Recorder interface {
	Record(Event)
}

// Log fans events out to a set of recorders. It is the single entry point the
// pipeline logs through; Record swallows sink panics so logging can never
// abort a request.
type Log struct {
	sinks []Recorder
}

// NewLog creates a Log over the given sinks. Nil sinks are skipped.
func NewLog(sinks ...Recorder) *Log {
	l := &Log{}
	for _, s := range sinks {
		if s != nil {
			l.sinks = append(l.sinks, s)
		}
	}
	return l
}

// Record delivers the event to every sink.
func (l *Log) Record(ev Event) {
	if l == nil {
		return
	}
	for _, s := range l.sinks {
		func() {
			defer func() { _ = recover() }()
			s.Record(ev)
		}()
	}
}

// redactedFields are JSON keys whose values must never appear in logged
// payloads. The list is intentionally specific to avoid hiding useful
// debug info.
var redactedFields = map[string]bool{
	"password":      true,
	"passwd":        true,
	"token":         true,
	"access_token":  true,
	"auth_token":    true,
	"refresh_token": true,
	"api_key":       true,
	"secret":        true,
	"client_secret": true,
}

// RedactBody replaces credential-bearing fields in a JSON object body with a
// placeholder. Non-object bodies are returned unchanged: the login and
// refresh call sites are the only producers of credential payloads, and both
// send flat JSON objects.
func RedactBody(body []byte) []byte {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return body
	}

	modified := false
	for key := range obj {
		if redactedFields[key] {
			obj[key] = json.RawMessage(`"[REDACTED]"`)
			modified = true
		}
	}
	if !modified {
		return body
	}

	out, err := json.Marshal(obj)
	if err != nil {
		return body
	}
	return out
}
