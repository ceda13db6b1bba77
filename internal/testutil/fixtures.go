package testutil

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/pez-globo/ventserver/internal/backend"
	"github.com/pez-globo/ventserver/internal/lists"
	"github.com/pez-globo/ventserver/internal/message"
	"github.com/pez-globo/ventserver/internal/schema"
	"github.com/pez-globo/ventserver/internal/server"
)

// SessionID is the fixed log replication session used by test protocols.
const SessionID = "test-session"

// DefaultParametersRequest returns the startup ventilation request.
func DefaultParametersRequest() *message.ParametersRequest {
	return &message.ParametersRequest{
		Mode: message.ModePCAC,
		PIP:  30,
		PEEP: 10,
		RR:   30,
		IE:   1,
		FiO2: 60,
	}
}

// ServerConfig returns a deterministic protocol configuration that logs to
// the returned buffer.
func ServerConfig(t testing.TB) (server.Config, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return server.Config{
		Backend: backend.Config{
			Validator:    schema.MustNew(),
			PingInterval: 500 * time.Millisecond,
			LogEvents: lists.SenderConfig{
				MaxLen:        100,
				MaxSegmentLen: 10,
				RetryInterval: time.Second,
				SessionID:     SessionID,
			},
		},
		LivenessTimeout: 2 * time.Second,
		Logger:          logger,
	}, &logs
}

// NewProtocol builds a protocol from ServerConfig.
func NewProtocol(t testing.TB) (*server.Protocol, *bytes.Buffer) {
	t.Helper()
	cfg, logs := ServerConfig(t)
	p, err := server.New(cfg)
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	return p, logs
}
