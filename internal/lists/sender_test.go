package lists

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pez-globo/ventserver/internal/message"
)

var t0 = time.UnixMilli(1_700_000_000_000)

func newSender(t *testing.T, maxLen, segLen int, retry time.Duration) *Sender {
	t.Helper()
	s, err := NewSender(SenderConfig{
		MaxLen:        maxLen,
		MaxSegmentLen: segLen,
		RetryInterval: retry,
		SessionID:     "session-a",
	})
	require.NoError(t, err)
	s.SetTime(t0)
	return s
}

func appendN(s *Sender, n int) {
	for i := 0; i < n; i++ {
		s.Append(message.LogEvent{Code: message.CodeRRTooHigh, Type: message.TypePatient})
	}
}

func ids(events []message.LogEvent) []uint32 {
	out := make([]uint32, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}

func TestNewSender_Validation(t *testing.T) {
	_, err := NewSender(SenderConfig{MaxLen: 0, MaxSegmentLen: 1})
	assert.Error(t, err)
	_, err = NewSender(SenderConfig{MaxLen: 1, MaxSegmentLen: 0})
	assert.Error(t, err)
	_, err = NewSender(SenderConfig{MaxLen: 1, MaxSegmentLen: 1, RetryInterval: -time.Second})
	assert.Error(t, err)
}

func TestNewSender_GeneratesSessionID(t *testing.T) {
	s, err := NewSender(SenderConfig{MaxLen: 4, MaxSegmentLen: 2})
	require.NoError(t, err)

	id, err := uuid.Parse(s.SessionID())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}

func TestSender_EmptyLogHasNoOutput(t *testing.T) {
	s := newSender(t, 10, 5, 0)
	assert.Nil(t, s.Output())
}

func TestSender_LogBound(t *testing.T) {
	s := newSender(t, 10, 5, time.Second)
	appendN(s, 25)

	assert.Equal(t, 10, s.Len())
	assert.Equal(t, []uint32{15, 16, 17, 18, 19, 20, 21, 22, 23, 24}, ids(s.Events()))
}

func TestSender_SegmentsAcrossWrap(t *testing.T) {
	s := newSender(t, 4, 3, time.Hour)
	appendN(s, 6)

	seg := s.Output()
	require.NotNil(t, seg)
	assert.True(t, seg.Reset)
	assert.Equal(t, uint32(2), seg.NextExpected)
	assert.Equal(t, []uint32{2, 3, 4}, ids(seg.Elements))
	assert.Equal(t, uint32(1), seg.Remaining)

	seg = s.Output()
	require.NotNil(t, seg)
	assert.False(t, seg.Reset)
	assert.Equal(t, []uint32{5}, ids(seg.Elements))
	assert.Nil(t, s.Output())

	appendN(s, 3)
	assert.Equal(t, []uint32{5, 6, 7, 8}, ids(s.Events()))
}

func TestSender_DuplicateIDsIgnored(t *testing.T) {
	s := newSender(t, 10, 5, time.Second)

	assert.True(t, s.Input(message.LogEvent{ID: 3}))
	assert.False(t, s.Input(message.LogEvent{ID: 3}))
	assert.False(t, s.Input(message.LogEvent{ID: 1}))
	assert.True(t, s.Input(message.LogEvent{ID: 9}))
	assert.Equal(t, []uint32{3, 9}, ids(s.Events()))
}

func TestSender_Chunking(t *testing.T) {
	tests := []struct {
		length, segLen, segments int
	}{
		{1, 5, 1},
		{5, 5, 1},
		{6, 5, 2},
		{10, 3, 4},
		{7, 1, 7},
	}

	for _, tt := range tests {
		s := newSender(t, 100, tt.segLen, time.Hour)
		appendN(s, tt.length)

		var got []uint32
		for i := 0; i < tt.segments; i++ {
			seg := s.Output()
			require.NotNil(t, seg, "segment %d of %d", i+1, tt.segments)
			assert.LessOrEqual(t, len(seg.Elements), tt.segLen)
			assert.Equal(t, uint64(i+1), seg.Seq)
			got = append(got, ids(seg.Elements)...)
		}
		assert.Nil(t, s.Output(), "no more segments until retry is due")
		assert.Len(t, got, tt.length)
		for i, id := range got {
			assert.Equal(t, uint32(i), id)
		}
	}
}

func TestSender_SegmentFields(t *testing.T) {
	s := newSender(t, 100, 2, time.Hour)
	appendN(s, 5)

	seg := s.Output()
	require.NotNil(t, seg)
	assert.Equal(t, "session-a", seg.SessionID)
	assert.False(t, seg.Reset)
	assert.Equal(t, uint32(0), seg.NextExpected)
	assert.Equal(t, uint32(5), seg.Total)
	assert.Equal(t, uint32(3), seg.Remaining)

	seg = s.Output()
	require.NotNil(t, seg)
	assert.Equal(t, uint32(2), seg.NextExpected)
	assert.Equal(t, uint32(1), seg.Remaining)
}

func TestSender_RetryFromAckAfterInterval(t *testing.T) {
	s := newSender(t, 100, 2, time.Second)
	appendN(s, 4)

	require.NotNil(t, s.Output())
	require.NotNil(t, s.Output())
	require.Nil(t, s.Output())

	s.Acknowledge(&message.ExpectedLogEvent{ID: 2, SessionID: "session-a"})
	assert.Equal(t, 2, s.Unacknowledged())

	s.SetTime(t0.Add(500 * time.Millisecond))
	assert.Nil(t, s.Output(), "retry interval not elapsed")

	s.SetTime(t0.Add(time.Second))
	seg := s.Output()
	require.NotNil(t, seg)
	assert.False(t, seg.Reset)
	assert.Equal(t, uint32(2), seg.NextExpected)
	assert.Equal(t, []uint32{2, 3}, ids(seg.Elements))
}

func TestSender_FullAckStopsRetries(t *testing.T) {
	s := newSender(t, 100, 5, 0)
	appendN(s, 3)

	require.NotNil(t, s.Output())
	s.Acknowledge(&message.ExpectedLogEvent{ID: 3, SessionID: "session-a"})

	assert.Equal(t, 0, s.Unacknowledged())
	assert.Nil(t, s.Output())
	assert.Nil(t, s.Output())
}

func TestSender_NewEventsAfterCatchUp(t *testing.T) {
	s := newSender(t, 100, 5, time.Hour)
	appendN(s, 2)
	require.NotNil(t, s.Output())

	appendN(s, 1)
	seg := s.Output()
	require.NotNil(t, seg)
	assert.Equal(t, []uint32{2}, ids(seg.Elements))
}

func TestSender_StaleAckIgnored(t *testing.T) {
	s := newSender(t, 100, 5, time.Hour)
	appendN(s, 5)
	require.NotNil(t, s.Output())

	s.Acknowledge(&message.ExpectedLogEvent{ID: 4, SessionID: "session-a"})
	s.Acknowledge(&message.ExpectedLogEvent{ID: 2, SessionID: "session-a"})
	assert.Equal(t, 1, s.Unacknowledged())
}

func TestSender_EvictedAckForcesReset(t *testing.T) {
	s := newSender(t, 5, 3, time.Hour)
	appendN(s, 5)
	require.NotNil(t, s.Output())
	require.NotNil(t, s.Output())

	// Ids 0-4 were delivered but the consumer only acknowledged up to 7
	// after ids 5-9 had already been evicted.
	appendN(s, 10)
	require.Equal(t, []uint32{10, 11, 12, 13, 14}, ids(s.Events()))

	s.Acknowledge(&message.ExpectedLogEvent{ID: 7, SessionID: "session-a"})
	seg := s.Output()
	require.NotNil(t, seg)
	assert.True(t, seg.Reset)
	assert.Equal(t, uint32(10), seg.NextExpected)
	assert.Equal(t, []uint32{10, 11, 12}, ids(seg.Elements))

	seg = s.Output()
	require.NotNil(t, seg)
	assert.False(t, seg.Reset, "reset marker is carried once")
	assert.Equal(t, []uint32{13, 14}, ids(seg.Elements))
}

func TestSender_EvictionBeforeFirstSendForcesReset(t *testing.T) {
	s := newSender(t, 3, 10, time.Hour)
	appendN(s, 5)

	seg := s.Output()
	require.NotNil(t, seg)
	assert.True(t, seg.Reset)
	assert.Equal(t, uint32(2), seg.NextExpected)
	assert.Equal(t, []uint32{2, 3, 4}, ids(seg.Elements))
}

func TestSender_AckBeyondTailForcesReset(t *testing.T) {
	s := newSender(t, 10, 10, time.Hour)
	appendN(s, 3)
	require.NotNil(t, s.Output())

	s.Acknowledge(&message.ExpectedLogEvent{ID: 42, SessionID: "session-a"})
	seg := s.Output()
	require.NotNil(t, seg)
	assert.True(t, seg.Reset)
	assert.Equal(t, []uint32{0, 1, 2}, ids(seg.Elements))
}

func TestSender_ForeignSessionForcesReset(t *testing.T) {
	s := newSender(t, 10, 10, time.Hour)
	appendN(s, 2)
	require.NotNil(t, s.Output())

	s.Acknowledge(&message.ExpectedLogEvent{ID: 2, SessionID: "session-b"})
	seg := s.Output()
	require.NotNil(t, seg)
	assert.True(t, seg.Reset)
	assert.Equal(t, []uint32{0, 1}, ids(seg.Elements))
}

func TestSender_ResetOnEmptyLog(t *testing.T) {
	s := newSender(t, 10, 10, time.Hour)
	s.Restart()

	seg := s.Output()
	require.NotNil(t, seg)
	assert.True(t, seg.Reset)
	assert.Empty(t, seg.Elements)
	assert.Nil(t, s.Output())
}

func TestSender_IDGapsAreNotLosses(t *testing.T) {
	s := newSender(t, 10, 2, time.Hour)
	require.True(t, s.Input(message.LogEvent{ID: 0}))
	require.True(t, s.Input(message.LogEvent{ID: 1}))
	require.True(t, s.Input(message.LogEvent{ID: 10}))

	require.NotNil(t, s.Output())
	seg := s.Output()
	require.NotNil(t, seg)
	assert.False(t, seg.Reset)
	assert.Equal(t, uint32(2), seg.NextExpected)
	assert.Equal(t, []uint32{10}, ids(seg.Elements))
}
