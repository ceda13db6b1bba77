package harness

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/pez-globo/ventserver/internal/codec"
	"github.com/pez-globo/ventserver/internal/message"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  %s\n", event)
		}
	}
	return buf.String()
}

// StateSource exposes final states to assertions.
type StateSource interface {
	State(party string, kind message.Kind) (message.Message, bool)
	StoredState(ctx context.Context, kind message.Kind) (*codec.StateData, error)
}

// State returns a party's final value for kind.
func (h *Harness) State(party string, kind message.Kind) (message.Message, bool) {
	p, ok := parties[party]
	if !ok {
		return nil, false
	}
	return h.proto.Receive.Backend().State(p, kind)
}

// StoredState returns the persisted file record for kind.
func (h *Harness) StoredState(ctx context.Context, kind message.Kind) (*codec.StateData, error) {
	return h.store.LoadState(ctx, kind.String())
}

// EvaluateAssertions evaluates all assertions and returns the failure
// messages. States may be nil when no state assertions are used.
func EvaluateAssertions(ctx context.Context, result *Result, assertions []Assertion, states StateSource) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState, AssertStoredState:
			if states == nil {
				err = fmt.Errorf("assertion[%d]: %s requires a state source", i, assertion.Type)
			} else if assertion.Type == AssertFinalState {
				err = assertFinalState(states, assertion)
			} else {
				err = assertStoredState(ctx, states, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

func kindName(name string) string {
	if k, err := message.ParseKind(name); err == nil {
		return k.String()
	}
	return name
}

func sentKinds(trace []TraceEvent, transport string) []TraceEvent {
	var out []TraceEvent
	for _, e := range trace {
		if e.Transport == transport && e.Note == "" {
			out = append(out, e)
		}
	}
	return out
}

func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	kind := kindName(assertion.Kind)
	for _, event := range sentKinds(trace, assertion.Transport) {
		if event.Kind == kind && matchFields(event.Value, assertion.Expect) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("%s %s with fields %v", assertion.Transport, kind, assertion.Expect),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the kinds appear in order. Other payloads
// may appear between them.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	next := 0
	for _, event := range sentKinds(trace, assertion.Transport) {
		if next < len(assertion.Kinds) && event.Kind == kindName(assertion.Kinds[next]) {
			next++
		}
	}
	if next == len(assertion.Kinds) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: fmt.Sprintf("%s kinds in order: %v", assertion.Transport, assertion.Kinds),
		Actual:   fmt.Sprintf("matched %d of %d, first missing %s", next, len(assertion.Kinds), assertion.Kinds[next]),
		Trace:    trace,
	}
}

func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	kind := kindName(assertion.Kind)
	count := 0
	for _, event := range sentKinds(trace, assertion.Transport) {
		if event.Kind == kind {
			count++
		}
	}
	if count == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceCount,
		Expected: fmt.Sprintf("%s %s sent %d times", assertion.Transport, kind, assertion.Count),
		Actual:   fmt.Sprintf("sent %d times", count),
		Trace:    trace,
	}
}

func assertFinalState(states StateSource, assertion Assertion) error {
	kind, err := message.ParseKind(assertion.Kind)
	if err != nil {
		return err
	}
	msg, ok := states.State(assertion.Party, kind)
	if assertion.Absent {
		if !ok {
			return nil
		}
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s holds no %s", assertion.Party, kind),
			Actual:   fmt.Sprintf("%+v", msg),
		}
	}
	if !ok {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s holds %s with fields %v", assertion.Party, kind, assertion.Expect),
			Actual:   "never observed",
		}
	}
	return matchMessage(AssertFinalState, msg, assertion)
}

func assertStoredState(ctx context.Context, states StateSource, assertion Assertion) error {
	kind, err := message.ParseKind(assertion.Kind)
	if err != nil {
		return err
	}
	record, err := states.StoredState(ctx, kind)
	if err != nil {
		return err
	}
	if record == nil {
		return &AssertionError{
			Type:     AssertStoredState,
			Expected: fmt.Sprintf("stored %s with fields %v", kind, assertion.Expect),
			Actual:   "no record",
		}
	}
	msg, err := codec.DecodeState(record)
	if err != nil {
		return err
	}
	return matchMessage(AssertStoredState, msg, assertion)
}

func matchMessage(typ string, msg message.Message, assertion Assertion) error {
	value, err := toMap(msg)
	if err != nil {
		return err
	}
	if matchFields(value, assertion.Expect) {
		return nil
	}
	return &AssertionError{
		Type:     typ,
		Expected: fmt.Sprintf("%s with fields %v", msg.Kind(), assertion.Expect),
		Actual:   fmt.Sprintf("%v", value),
	}
}

// matchFields reports whether actual contains every expected field (subset
// match). Expected values are compared in their JSON form.
func matchFields(actual map[string]any, expected map[string]any) bool {
	if len(expected) == 0 {
		return true
	}
	for key, want := range expected {
		got, exists := actual[key]
		if !exists {
			return false
		}
		norm, err := normalize(want)
		if err != nil || !reflect.DeepEqual(got, norm) {
			return false
		}
	}
	return true
}
