package harness

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pez-globo/ventserver/internal/message"
)

// Scenario is a timed sequence of transport events with expectations.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Config      ProtocolConfig `yaml:"config,omitempty"`

	// Seed messages are written into the MCU view before the first step.
	Seed []MessageSpec `yaml:"seed,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ProtocolConfig overrides protocol settings. Zero fields keep defaults.
type ProtocolConfig struct {
	LivenessTimeout  time.Duration `yaml:"liveness_timeout,omitempty"`
	PingInterval     time.Duration `yaml:"ping_interval,omitempty"`
	LogMaxLen        int           `yaml:"log_max_len,omitempty"`
	LogMaxSegmentLen int           `yaml:"log_max_segment_len,omitempty"`
	LogRetryInterval time.Duration `yaml:"log_retry_interval,omitempty"`
}

// MessageSpec names a message kind and its field values.
type MessageSpec struct {
	Kind  string         `yaml:"kind"`
	Value map[string]any `yaml:"value,omitempty"`
}

// Message builds the message. Fields are matched by their JSON names.
func (m MessageSpec) Message() (message.Message, error) {
	kind, err := message.ParseKind(m.Kind)
	if err != nil {
		return nil, err
	}
	msg, err := message.New(kind)
	if err != nil {
		return nil, err
	}
	if len(m.Value) == 0 {
		return msg, nil
	}
	raw, err := json.Marshal(m.Value)
	if err != nil {
		return nil, fmt.Errorf("%s value: %w", kind, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(msg); err != nil {
		return nil, fmt.Errorf("%s value: %w", kind, err)
	}
	return msg, nil
}

// Step is one receive event.
type Step struct {
	At           time.Duration `yaml:"at,omitempty"`
	Serial       *MessageSpec  `yaml:"serial,omitempty"`
	Websocket    *MessageSpec  `yaml:"websocket,omitempty"`
	WebsocketRaw string        `yaml:"websocket_raw,omitempty"`
	Rotary       *RotarySpec   `yaml:"rotary,omitempty"`
	File         *MessageSpec  `yaml:"file,omitempty"`
	Announce     *string       `yaml:"announce,omitempty"`
	Expect       *StepExpect   `yaml:"expect,omitempty"`
}

// RotarySpec is an encoder sample.
type RotarySpec struct {
	Count   int  `yaml:"count"`
	Pressed bool `yaml:"pressed"`
}

// StepExpect lists the kinds sent per transport during one step, in order.
// A nil list is not checked; an empty list means nothing was sent.
type StepExpect struct {
	Serial            []string `yaml:"serial,omitempty"`
	Websocket         []string `yaml:"websocket,omitempty"`
	File              []string `yaml:"file,omitempty"`
	FrontendConnected *bool    `yaml:"frontend_connected,omitempty"`
	FrontendDelayed   *bool    `yaml:"frontend_delayed,omitempty"`
}

// Assertion validates the trace or final state.
type Assertion struct {
	Type      string         `yaml:"type"`
	Transport string         `yaml:"transport,omitempty"`
	Kind      string         `yaml:"kind,omitempty"`
	Kinds     []string       `yaml:"kinds,omitempty"`
	Count     int            `yaml:"count,omitempty"`
	Party     string         `yaml:"party,omitempty"`
	Expect    map[string]any `yaml:"expect,omitempty"`
	Absent    bool           `yaml:"absent,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertStoredState   = "stored_state"
)

// LoadScenario reads and validates a scenario file. Unknown fields are
// rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, seed := range s.Seed {
		if _, err := seed.Message(); err != nil {
			return fmt.Errorf("seed[%d]: %w", i, err)
		}
	}

	var last time.Duration
	for i, step := range s.Steps {
		if step.At < last {
			return fmt.Errorf("steps[%d]: at %s is before the previous step", i, step.At)
		}
		last = step.At
		if err := validateStep(step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(step Step) error {
	if step.Websocket != nil && step.WebsocketRaw != "" {
		return fmt.Errorf("websocket and websocket_raw are exclusive")
	}
	if step.WebsocketRaw != "" {
		if _, err := hex.DecodeString(step.WebsocketRaw); err != nil {
			return fmt.Errorf("websocket_raw: %w", err)
		}
	}
	for name, spec := range map[string]*MessageSpec{
		"serial":    step.Serial,
		"websocket": step.Websocket,
		"file":      step.File,
	} {
		if spec == nil {
			continue
		}
		if _, err := spec.Message(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if step.Expect != nil {
		for _, kinds := range [][]string{step.Expect.Serial, step.Expect.Websocket, step.Expect.File} {
			for _, k := range kinds {
				if _, err := message.ParseKind(k); err != nil {
					return fmt.Errorf("expect: %w", err)
				}
			}
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	needTransport := func() error {
		switch a.Transport {
		case transportSerial, transportWebsocket, transportFile:
			return nil
		default:
			return fmt.Errorf("assertions[%d]: transport must be serial, websocket or file, got %q", index, a.Transport)
		}
	}
	needKind := func(k string) error {
		if _, err := message.ParseKind(k); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		return nil
	}

	switch a.Type {
	case AssertTraceContains, AssertTraceCount:
		if err := needTransport(); err != nil {
			return err
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
		return needKind(a.Kind)
	case AssertTraceOrder:
		if err := needTransport(); err != nil {
			return err
		}
		if len(a.Kinds) == 0 {
			return fmt.Errorf("assertions[%d]: kinds list is required for trace_order", index)
		}
		for _, k := range a.Kinds {
			if err := needKind(k); err != nil {
				return err
			}
		}
	case AssertFinalState:
		if _, ok := parties[a.Party]; !ok {
			return fmt.Errorf("assertions[%d]: party must be mcu, frontend or file, got %q", index, a.Party)
		}
		if !a.Absent && len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect or absent is required for final_state", index)
		}
		return needKind(a.Kind)
	case AssertStoredState:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for stored_state", index)
		}
		return needKind(a.Kind)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
