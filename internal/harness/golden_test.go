package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_StartupSync(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/startup_sync.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestResult_Render(t *testing.T) {
	r := NewResult()
	r.Trace = append(r.Trace,
		TraceEvent{Step: 0, Transport: transportFrontend, Note: NoteDelayed},
		TraceEvent{Step: 1, At: 1500000000, Transport: transportWebsocket, Kind: "ActiveLogEvents",
			Value: map[string]any{"ids": nil}},
	)
	assert.Equal(t, "[0] 0s frontend delayed\n[1] 1.5s websocket ActiveLogEvents {}\n", r.Render())

	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}
