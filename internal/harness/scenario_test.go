package harness

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pez-globo/ventserver/internal/message"
)

func TestLoadScenario_All(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			s, err := LoadScenario(path)
			require.NoError(t, err)
			assert.NotEmpty(t, s.Name)
			assert.NotEmpty(t, s.Steps)
		})
	}
}

func TestParseScenario_Durations(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: timing
description: "durations"
config:
  liveness_timeout: 5s
steps:
  - at: 0s
  - at: 250ms
  - at: 1m
`))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, s.Config.LivenessTimeout)
	assert.Equal(t, []time.Duration{0, 250 * time.Millisecond, time.Minute},
		[]time.Duration{s.Steps[0].At, s.Steps[1].At, s.Steps[2].At})
}

func TestMessageSpec_Message(t *testing.T) {
	msg, err := MessageSpec{
		Kind:  "parameters_request",
		Value: map[string]any{"fio2": 80, "mode": 2, "ventilating": true},
	}.Message()
	require.NoError(t, err)

	req, ok := msg.(*message.ParametersRequest)
	require.True(t, ok)
	assert.Equal(t, float32(80), req.FiO2)
	assert.Equal(t, message.ModeVCAC, req.Mode)
	assert.True(t, req.Ventilating)
}

func TestMessageSpec_UnknownField(t *testing.T) {
	_, err := MessageSpec{Kind: "Ping", Value: map[string]any{"pong": 1}}.Message()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pong")
}

func TestParseScenario_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "description: d\nsteps: [{at: 0s}]\n",
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: "name: n\nsteps: [{at: 0s}]\n",
			want: "description is required",
		},
		{
			name: "no steps",
			yaml: "name: n\ndescription: d\n",
			want: "steps list is required",
		},
		{
			name: "unknown field",
			yaml: "name: n\ndescription: d\nsteps: [{at: 0s}]\nextra: 1\n",
			want: "failed to parse YAML",
		},
		{
			name: "time goes backwards",
			yaml: "name: n\ndescription: d\nsteps: [{at: 1s}, {at: 500ms}]\n",
			want: "before the previous step",
		},
		{
			name: "unknown message kind",
			yaml: "name: n\ndescription: d\nsteps: [{serial: {kind: Pong}}]\n",
			want: "steps[0]: serial",
		},
		{
			name: "websocket and raw",
			yaml: "name: n\ndescription: d\nsteps: [{websocket: {kind: Ping}, websocket_raw: \"00\"}]\n",
			want: "exclusive",
		},
		{
			name: "bad hex",
			yaml: "name: n\ndescription: d\nsteps: [{websocket_raw: \"zz\"}]\n",
			want: "websocket_raw",
		},
		{
			name: "unknown expected kind",
			yaml: "name: n\ndescription: d\nsteps: [{expect: {serial: [Pong]}}]\n",
			want: "expect",
		},
		{
			name: "bad seed",
			yaml: "name: n\ndescription: d\nseed: [{kind: Ping, value: {nope: 1}}]\nsteps: [{at: 0s}]\n",
			want: "seed[0]",
		},
		{
			name: "assertion without transport",
			yaml: "name: n\ndescription: d\nsteps: [{at: 0s}]\nassertions: [{type: trace_count, kind: Ping}]\n",
			want: "transport must be",
		},
		{
			name: "trace_order without kinds",
			yaml: "name: n\ndescription: d\nsteps: [{at: 0s}]\nassertions: [{type: trace_order, transport: serial}]\n",
			want: "kinds list is required",
		},
		{
			name: "final_state unknown party",
			yaml: "name: n\ndescription: d\nsteps: [{at: 0s}]\nassertions: [{type: final_state, party: ui, kind: Ping, absent: true}]\n",
			want: "party must be",
		},
		{
			name: "final_state without expectation",
			yaml: "name: n\ndescription: d\nsteps: [{at: 0s}]\nassertions: [{type: final_state, party: mcu, kind: Ping}]\n",
			want: "expect or absent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
