package harness

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pez-globo/ventserver/internal/message"
)

const (
	transportSerial    = "serial"
	transportWebsocket = "websocket"
	transportFile      = "file"
	transportFrontend  = "frontend"
)

// Frontend notes recorded in the trace.
const (
	NoteConnected    = "connected"
	NoteDisconnected = "disconnected"
	NoteDelayed      = "delayed"
)

// TraceEvent is one sent payload or one frontend liveness note.
type TraceEvent struct {
	Step      int            `json:"step"`
	At        time.Duration  `json:"at"`
	Transport string         `json:"transport"`
	Kind      string         `json:"kind,omitempty"`
	Value     map[string]any `json:"value,omitempty"`
	Note      string         `json:"note,omitempty"`
}

// String renders the event as one trace line.
func (e TraceEvent) String() string {
	if e.Note != "" {
		return fmt.Sprintf("[%d] %s %s %s", e.Step, e.At, e.Transport, e.Note)
	}
	value, err := json.Marshal(compact(e.Value))
	if err != nil {
		value = []byte(err.Error())
	}
	return fmt.Sprintf("[%d] %s %s %s %s", e.Step, e.At, e.Transport, e.Kind, value)
}

// Result is the outcome of a scenario run.
type Result struct {
	Pass   bool         `json:"pass"`
	Trace  []TraceEvent `json:"trace"`
	Errors []string     `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Render returns the trace, one line per event.
func (r *Result) Render() string {
	var b strings.Builder
	for _, e := range r.Trace {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// toMap returns the JSON object form of msg, with numbers as float64.
func toMap(msg message.Message) (map[string]any, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// normalize converts a YAML-decoded value into the same JSON form.
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// compact drops null and empty-list fields, which codecs may not
// distinguish.
func compact(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if v == nil {
			continue
		}
		if list, ok := v.([]any); ok && len(list) == 0 {
			continue
		}
		out[k] = v
	}
	return out
}
