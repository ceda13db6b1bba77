package harness

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Scenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(strings.TrimSuffix(filepath.Base(path), ".yaml"), func(t *testing.T) {
			s, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v\ntrace:\n%s", result.Errors, result.Render())
		})
	}
}

func TestRun_StepExpectationMismatch(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: mismatch
description: "expects a send that never happens"
steps:
  - at: 0s
    expect:
      serial: [ParametersRequest]
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "step 0: serial sent [], expected [ParametersRequest]")
}

func TestRun_ConnectionNotes(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: notes
description: "frontend connects then times out"
config:
  liveness_timeout: 1s
steps:
  - at: 0s
    websocket: { kind: Ping, value: { id: 1 } }
    expect:
      frontend_connected: true
  - at: 900ms
    expect:
      frontend_connected: true
  - at: 1100ms
    expect:
      frontend_connected: false
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	var notes []string
	for _, e := range result.Trace {
		if e.Note != "" {
			notes = append(notes, e.String())
		}
	}
	assert.Equal(t, []string{
		"[0] 0s frontend connected",
		"[2] 1.1s frontend disconnected",
	}, notes)
}

func TestRun_SeedReachesMCU(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: seed
description: "seeded request is sent on the first step"
seed:
  - kind: ParametersRequest
    value: { fio2: 45 }
steps:
  - at: 0s
    expect:
      serial: [ParametersRequest]
assertions:
  - type: trace_contains
    transport: serial
    kind: ParametersRequest
    expect: { fio2: 45 }
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRunWithLogger_LogsDroppedPayloads(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/invalid_payloads.yaml")
	require.NoError(t, err)

	var logs bytes.Buffer
	result, err := RunWithLogger(s, slog.New(slog.NewTextHandler(&logs, nil)))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Contains(t, logs.String(), "dropped undecodable payload")
}

func TestSameKinds(t *testing.T) {
	assert.True(t, sameKinds(nil, []string{}))
	assert.True(t, sameKinds([]string{"ParametersRequest"}, []string{"parameters_request"}))
	assert.False(t, sameKinds([]string{"Ping"}, []string{"Pong"}))
	assert.False(t, sameKinds([]string{"Ping", "Alarms"}, []string{"Alarms", "Ping"}))
}
