package states

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pez-globo/ventserver/internal/message"
	"github.com/pez-globo/ventserver/internal/schema"
)

var t0 = time.UnixMilli(1_700_000_000_000)

func newFrontendSync(t *testing.T, logger *slog.Logger) *Synchronizer {
	t.Helper()
	return NewSynchronizer(Config{
		Party: "frontend",
		Outbound: []message.Kind{
			message.KindParameters,
			message.KindSensorMeasurements,
			message.KindPing,
		},
		KeepAlive: map[message.Kind]time.Duration{message.KindPing: 500 * time.Millisecond},
		Validator: schema.MustNew(),
		Logger:    logger,
	})
}

func TestSynchronizer_SendOnChange(t *testing.T) {
	s := newFrontendSync(t, nil)
	assert.Nil(t, s.Output(), "empty store")

	p1 := &message.Parameters{Time: 1, RR: 30}
	s.Input(p1)

	assert.Same(t, p1, s.Output())
	assert.Nil(t, s.Output(), "unchanged value must not be emitted twice")
}

func TestSynchronizer_EqualValueIsNotAChange(t *testing.T) {
	s := newFrontendSync(t, nil)

	s.Input(&message.Parameters{Time: 1, RR: 30})
	require.NotNil(t, s.Output())
	rev := s.Revision(message.KindParameters)

	s.Input(&message.Parameters{Time: 1, RR: 30})
	assert.Equal(t, rev, s.Revision(message.KindParameters))
	assert.Nil(t, s.Output())
}

func TestSynchronizer_EmitsInChangeOrder(t *testing.T) {
	s := newFrontendSync(t, nil)

	sm := &message.SensorMeasurements{Time: 1}
	p := &message.Parameters{Time: 2}
	s.Input(sm)
	s.Input(p)
	assert.Equal(t, 2, s.Pending())

	assert.Same(t, sm, s.Output())
	assert.Same(t, p, s.Output())
	assert.Nil(t, s.Output())
	assert.Equal(t, 0, s.Pending())
}

func TestSynchronizer_RewriteMovesKindBehindOthers(t *testing.T) {
	s := newFrontendSync(t, nil)

	s.Input(&message.SensorMeasurements{Time: 1})
	p := &message.Parameters{Time: 2}
	s.Input(p)
	sm := &message.SensorMeasurements{Time: 3}
	s.Input(sm)

	assert.Same(t, p, s.Output())
	assert.Same(t, sm, s.Output())
	assert.Nil(t, s.Output())
}

func TestSynchronizer_InboundOnlyKindsAreStoredNotEmitted(t *testing.T) {
	s := newFrontendSync(t, nil)

	req := &message.ParametersRequest{Time: 1, FiO2: 40}
	s.Input(req)

	got, ok := s.Get(message.KindParametersRequest)
	require.True(t, ok)
	assert.Same(t, req, got)
	assert.Nil(t, s.Output())
	assert.Equal(t, []message.Kind{message.KindParametersRequest}, s.Kinds())
}

func TestSynchronizer_InvalidValueIsLoggedAndDropped(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	s := newFrontendSync(t, logger)

	good := &message.Parameters{Time: 1, FiO2: 50}
	s.Input(good)
	require.NotNil(t, s.Output())

	s.Input(&message.Parameters{Time: 2, FiO2: 150})

	got, _ := s.Get(message.KindParameters)
	assert.Same(t, good, got, "store must be unchanged")
	assert.Nil(t, s.Output())
	assert.Contains(t, buf.String(), "dropped invalid state")
	assert.Contains(t, buf.String(), "party=frontend")
	assert.Contains(t, buf.String(), "kind=Parameters")
}

type rejectAll struct{}

func (rejectAll) Validate(message.Message) error { return errors.New("nope") }

func TestSynchronizer_CustomValidator(t *testing.T) {
	s := NewSynchronizer(Config{
		Party:     "mcu",
		Outbound:  []message.Kind{message.KindParametersRequest},
		Validator: rejectAll{},
		Logger:    slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
	})

	s.Input(&message.ParametersRequest{})
	assert.Equal(t, uint64(0), s.Revision(message.KindParametersRequest))
}

func TestSynchronizer_NilInputIsNoOp(t *testing.T) {
	s := newFrontendSync(t, nil)

	s.Input(nil)
	var p *message.Parameters
	s.Input(p)

	assert.Nil(t, s.Output())
	assert.Equal(t, 0, len(s.Kinds()))
}

func TestSynchronizer_KeepAliveResendsOnInterval(t *testing.T) {
	s := newFrontendSync(t, nil)
	s.SetTime(t0)

	ping := &message.Ping{Time: 1, ID: 1}
	s.Input(ping)
	assert.Same(t, ping, s.Output())

	s.SetTime(t0.Add(100 * time.Millisecond))
	assert.Nil(t, s.Output(), "interval not elapsed")

	s.SetTime(t0.Add(500 * time.Millisecond))
	assert.Same(t, ping, s.Output(), "unchanged keep-alive is resent")
	assert.Nil(t, s.Output())
}

func TestSynchronizer_KeepAliveZeroIntervalEveryPoll(t *testing.T) {
	s := NewSynchronizer(Config{
		Party:     "frontend",
		Outbound:  []message.Kind{message.KindPing},
		KeepAlive: map[message.Kind]time.Duration{message.KindPing: 0},
	})

	ping := &message.Ping{ID: 7}
	s.Input(ping)
	for i := 0; i < 3; i++ {
		assert.Same(t, ping, s.Output())
	}
}

func TestSynchronizer_ChangesPrecedeKeepAlive(t *testing.T) {
	s := NewSynchronizer(Config{
		Party:     "frontend",
		Outbound:  []message.Kind{message.KindPing, message.KindAlarms},
		KeepAlive: map[message.Kind]time.Duration{message.KindPing: 0},
	})

	ping := &message.Ping{ID: 1}
	s.Input(ping)
	require.Same(t, ping, s.Output())

	alarms := &message.Alarms{AlarmOne: true}
	s.Input(alarms)
	assert.Same(t, alarms, s.Output())
	assert.Same(t, ping, s.Output())
}

func TestSynchronizer_TimeNeverMovesBackwards(t *testing.T) {
	s := newFrontendSync(t, nil)
	s.SetTime(t0)
	s.Input(&message.Ping{ID: 1})
	require.NotNil(t, s.Output())

	s.SetTime(t0.Add(time.Second))
	s.SetTime(t0)
	assert.NotNil(t, s.Output())
}

func TestSynchronizer_Resend(t *testing.T) {
	s := newFrontendSync(t, nil)

	p := &message.Parameters{Time: 1}
	s.Input(p)
	require.NotNil(t, s.Output())
	require.Nil(t, s.Output())

	s.Resend()
	assert.True(t, s.IsPending(message.KindParameters))
	assert.Same(t, p, s.Output())
	assert.Nil(t, s.Output())
}

func TestSynchronizer_MarkSent(t *testing.T) {
	s := newFrontendSync(t, nil)
	s.MarkSent(message.KindParameters)
	assert.Equal(t, uint64(0), s.Revision(message.KindParameters), "nothing stored yet")

	s.Input(&message.Parameters{Time: 1})
	s.MarkSent(message.KindParameters)
	assert.False(t, s.IsPending(message.KindParameters))
	assert.Nil(t, s.Output())

	p := &message.Parameters{Time: 2}
	s.Input(p)
	assert.Same(t, p, s.Output(), "later changes are still emitted")
}
