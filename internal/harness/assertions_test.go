package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pez-globo/ventserver/internal/codec"
	"github.com/pez-globo/ventserver/internal/message"
)

type fakeStates struct {
	states map[string]message.Message
	stored map[message.Kind]message.Message
}

func (f fakeStates) State(party string, kind message.Kind) (message.Message, bool) {
	msg, ok := f.states[party+"/"+kind.String()]
	return msg, ok
}

func (f fakeStates) StoredState(_ context.Context, kind message.Kind) (*codec.StateData, error) {
	msg, ok := f.stored[kind]
	if !ok {
		return nil, nil
	}
	return codec.EncodeState(msg)
}

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Step: 0, Transport: transportWebsocket, Kind: "Ping", Value: map[string]any{"id": float64(1), "time": float64(0)}},
		{Step: 1, Transport: transportFrontend, Note: NoteConnected},
		{Step: 1, Transport: transportSerial, Kind: "ParametersRequest", Value: map[string]any{"fio2": float64(80)}},
		{Step: 2, Transport: transportWebsocket, Kind: "Alarms", Value: map[string]any{"alarm_one": true}},
		{Step: 3, Transport: transportWebsocket, Kind: "Ping", Value: map[string]any{"id": float64(2), "time": float64(0)}},
	}
}

func TestEvaluateAssertions_Trace(t *testing.T) {
	result := &Result{Trace: sampleTrace()}

	errs := EvaluateAssertions(context.Background(), result, []Assertion{
		{Type: AssertTraceContains, Transport: transportWebsocket, Kind: "ping", Expect: map[string]any{"id": 2}},
		{Type: AssertTraceOrder, Transport: transportWebsocket, Kinds: []string{"Ping", "Ping"}},
		{Type: AssertTraceOrder, Transport: transportWebsocket, Kinds: []string{"Alarms", "Ping"}},
		{Type: AssertTraceCount, Transport: transportWebsocket, Kind: "Ping", Count: 2},
		{Type: AssertTraceCount, Transport: transportFile, Kind: "Ping", Count: 0},
	}, nil)
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_TraceFailures(t *testing.T) {
	result := &Result{Trace: sampleTrace()}

	errs := EvaluateAssertions(context.Background(), result, []Assertion{
		{Type: AssertTraceContains, Transport: transportSerial, Kind: "ParametersRequest", Expect: map[string]any{"fio2": 60}},
		{Type: AssertTraceOrder, Transport: transportWebsocket, Kinds: []string{"Alarms", "Alarms"}},
		{Type: AssertTraceCount, Transport: transportSerial, Kind: "ParametersRequest", Count: 3},
		{Type: "bogus"},
	}, nil)
	require.Len(t, errs, 4)
	assert.Contains(t, errs[0], "Assertion failed: trace_contains")
	assert.Contains(t, errs[1], "first missing Alarms")
	assert.Contains(t, errs[2], "sent 1 times")
	assert.Contains(t, errs[3], `unknown assertion type "bogus"`)
}

func TestEvaluateAssertions_States(t *testing.T) {
	states := fakeStates{
		states: map[string]message.Message{
			"mcu/Alarms": &message.Alarms{AlarmOne: true},
		},
		stored: map[message.Kind]message.Message{
			message.KindParametersRequest: &message.ParametersRequest{FiO2: 80},
		},
	}

	errs := EvaluateAssertions(context.Background(), NewResult(), []Assertion{
		{Type: AssertFinalState, Party: "mcu", Kind: "Alarms", Expect: map[string]any{"alarm_one": true}},
		{Type: AssertFinalState, Party: "mcu", Kind: "Parameters", Absent: true},
		{Type: AssertStoredState, Kind: "ParametersRequest", Expect: map[string]any{"fio2": 80}},
	}, states)
	assert.Empty(t, errs)

	errs = EvaluateAssertions(context.Background(), NewResult(), []Assertion{
		{Type: AssertFinalState, Party: "mcu", Kind: "Alarms", Absent: true},
		{Type: AssertFinalState, Party: "frontend", Kind: "Alarms", Expect: map[string]any{"alarm_one": true}},
		{Type: AssertStoredState, Kind: "AlarmLimitsRequest", Expect: map[string]any{"time": 0}},
		{Type: AssertStoredState, Kind: "ParametersRequest", Expect: map[string]any{"fio2": 60}},
	}, states)
	require.Len(t, errs, 4)
	assert.Contains(t, errs[0], "mcu holds no Alarms")
	assert.Contains(t, errs[1], "never observed")
	assert.Contains(t, errs[2], "no record")
	assert.Contains(t, errs[3], "ParametersRequest with fields")
}

func TestEvaluateAssertions_StateWithoutSource(t *testing.T) {
	errs := EvaluateAssertions(context.Background(), NewResult(), []Assertion{
		{Type: AssertFinalState, Party: "mcu", Kind: "Alarms", Absent: true},
	}, nil)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "requires a state source")
}

func TestMatchFields(t *testing.T) {
	actual := map[string]any{
		"id":       float64(3),
		"session":  "abc",
		"elements": []any{map[string]any{"id": float64(0)}},
	}
	assert.True(t, matchFields(actual, nil))
	assert.True(t, matchFields(actual, map[string]any{"id": 3}))
	assert.True(t, matchFields(actual, map[string]any{"elements": []any{map[string]any{"id": 0}}}))
	assert.False(t, matchFields(actual, map[string]any{"id": "3"}))
	assert.False(t, matchFields(actual, map[string]any{"missing": 1}))
}

func TestAssertionError_IncludesTrace(t *testing.T) {
	err := &AssertionError{
		Type:     AssertTraceCount,
		Expected: "2",
		Actual:   "1",
		Trace:    sampleTrace()[:1],
	}
	msg := err.Error()
	assert.Contains(t, msg, "Expected: 2")
	assert.Contains(t, msg, "Full trace:")
	assert.Contains(t, msg, `[0] 0s websocket Ping {"id":1,"time":0}`)
}
