package backend

import (
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/pez-globo/ventserver/internal/lists"
	"github.com/pez-globo/ventserver/internal/message"
	"github.com/pez-globo/ventserver/internal/protocol"
	"github.com/pez-globo/ventserver/internal/states"
)

// Config configures a ReceiveFilter.
type Config struct {
	// Validator checks every payload before it is stored or replicated.
	Validator states.Validator

	// PingInterval is the keep-alive resend interval for frontend pings
	// and MCU log acknowledgments.
	PingInterval time.Duration

	// LogEvents configures replication of the event log to the frontend.
	LogEvents lists.SenderConfig

	// Logger receives recovered errors. Nil means slog.Default().
	Logger *slog.Logger
}

var (
	mcuOutbound = []message.Kind{
		message.KindParametersRequest,
		message.KindAlarmLimitsRequest,
		message.KindExpectedLogEvent,
	}
	frontendOutbound = []message.Kind{
		message.KindParameters,
		message.KindParametersRequest,
		message.KindAlarmLimits,
		message.KindAlarmLimitsRequest,
		message.KindSensorMeasurements,
		message.KindCycleMeasurements,
		message.KindAlarms,
		message.KindActiveLogEvents,
		message.KindNextLogEvents,
		message.KindPing,
		message.KindRotaryEncoder,
	}
	fileOutbound = []message.Kind{
		message.KindParameters,
		message.KindParametersRequest,
		message.KindAlarmLimits,
		message.KindAlarmLimitsRequest,
	}
)

// ReceiveFilter is the inbound half of the backend protocol.
//
// ReceiveFilter is not safe for concurrent use.
type ReceiveFilter struct {
	buffer protocol.Channel[*ReceiveEvent]

	mcu      *states.Synchronizer
	frontend *states.Synchronizer
	file     *states.Synchronizer

	logSender   *lists.Sender
	logReceiver *lists.Receiver

	validator         states.Validator
	logger            *slog.Logger
	frontendConnected bool
}

// NewReceiveFilter creates a filter with empty party stores. The frontend
// starts out connected.
func NewReceiveFilter(cfg Config) (*ReceiveFilter, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sender, err := lists.NewSender(cfg.LogEvents)
	if err != nil {
		return nil, fmt.Errorf("backend: log events: %w", err)
	}
	sync := func(party Party, outbound []message.Kind, keepAlive map[message.Kind]time.Duration) *states.Synchronizer {
		return states.NewSynchronizer(states.Config{
			Party:     party.String(),
			Outbound:  outbound,
			KeepAlive: keepAlive,
			Validator: cfg.Validator,
			Logger:    logger,
		})
	}
	return &ReceiveFilter{
		mcu: sync(PartyMCU, mcuOutbound, map[message.Kind]time.Duration{
			message.KindExpectedLogEvent: cfg.PingInterval,
		}),
		frontend: sync(PartyFrontend, frontendOutbound, map[message.Kind]time.Duration{
			message.KindPing: cfg.PingInterval,
		}),
		file:              sync(PartyFile, fileOutbound, nil),
		logSender:         sender,
		logReceiver:       lists.NewReceiver(),
		validator:         cfg.Validator,
		logger:            logger,
		frontendConnected: true,
	}, nil
}

// Input buffers an event. Events without data are ignored.
func (f *ReceiveFilter) Input(event *ReceiveEvent) {
	if !event.HasData() {
		return
	}
	f.buffer.Push(event)
}

// Output consumes one buffered event, then polls the MCU, frontend and file
// synchronizers once each. It returns nil when no event was buffered or
// no party has anything to send. Frontend output is withheld while the
// frontend is disconnected.
func (f *ReceiveFilter) Output() *OutputEvent {
	event, ok := f.buffer.Pop()
	if !ok {
		return nil
	}
	if !event.Time.IsZero() {
		f.setTime(event.Time)
	}
	f.receiveMCU(event.MCU)
	f.receiveFrontend(event.Frontend)
	f.receiveFile(event.File)
	f.receiveLocal(event.Local)
	f.pollLogEvents()

	out := &OutputEvent{MCU: f.mcu.Output()}
	if f.frontendConnected {
		out.Frontend = f.frontend.Output()
	}
	out.File = f.file.Output()
	if !out.HasData() {
		return nil
	}
	return out
}

func (f *ReceiveFilter) setTime(now time.Time) {
	f.mcu.SetTime(now)
	f.frontend.SetTime(now)
	f.file.SetTime(now)
	f.logSender.SetTime(now)
}

func (f *ReceiveFilter) receiveMCU(msg message.Message) {
	if isNil(msg) {
		return
	}
	switch kind := msg.Kind(); kind {
	case message.KindParameters, message.KindAlarmLimits:
		if f.store(f.mcu, msg) {
			f.frontend.Input(msg)
			f.file.Input(msg)
		}
	case message.KindSensorMeasurements, message.KindCycleMeasurements,
		message.KindAlarms, message.KindActiveLogEvents:
		if f.store(f.mcu, msg) {
			f.frontend.Input(msg)
		}
	case message.KindNextLogEvents:
		if f.valid(PartyMCU, msg) {
			f.logReceiver.Input(msg.(*message.NextLogEvents))
		}
	case message.KindParametersRequest, message.KindAlarmLimitsRequest,
		message.KindExpectedLogEvent, message.KindPing,
		message.KindAnnouncement, message.KindRotaryEncoder:
		f.unroutable(PartyMCU, msg)
	default:
		f.unroutable(PartyMCU, msg)
	}
}

func (f *ReceiveFilter) receiveFrontend(msg message.Message) {
	if isNil(msg) {
		return
	}
	switch kind := msg.Kind(); kind {
	case message.KindParametersRequest, message.KindAlarmLimitsRequest:
		if f.store(f.frontend, msg) {
			f.mcu.Input(msg)
			f.file.Input(msg)
		}
	case message.KindExpectedLogEvent:
		if f.valid(PartyFrontend, msg) {
			f.logSender.Acknowledge(msg.(*message.ExpectedLogEvent))
		}
	case message.KindPing:
		f.frontend.Input(msg)
	case message.KindParameters, message.KindAlarmLimits,
		message.KindSensorMeasurements, message.KindCycleMeasurements,
		message.KindAlarms, message.KindActiveLogEvents,
		message.KindNextLogEvents, message.KindAnnouncement,
		message.KindRotaryEncoder:
		f.unroutable(PartyFrontend, msg)
	default:
		f.unroutable(PartyFrontend, msg)
	}
}

func (f *ReceiveFilter) receiveFile(msg message.Message) {
	if isNil(msg) {
		return
	}
	switch kind := msg.Kind(); kind {
	case message.KindParametersRequest, message.KindAlarmLimitsRequest:
		if f.store(f.file, msg) {
			f.file.MarkSent(kind)
			f.mcu.Input(msg)
			f.frontend.Input(msg)
		}
	case message.KindParameters, message.KindAlarmLimits,
		message.KindSensorMeasurements, message.KindCycleMeasurements,
		message.KindAlarms, message.KindActiveLogEvents,
		message.KindNextLogEvents, message.KindExpectedLogEvent,
		message.KindPing, message.KindAnnouncement,
		message.KindRotaryEncoder:
		f.unroutable(PartyFile, msg)
	default:
		f.unroutable(PartyFile, msg)
	}
}

func (f *ReceiveFilter) receiveLocal(msg message.Message) {
	if isNil(msg) {
		return
	}
	switch kind := msg.Kind(); kind {
	case message.KindRotaryEncoder:
		f.frontend.Input(msg)
	default:
		f.unroutable(PartyLocal, msg)
	}
}

// pollLogEvents moves received log events into the frontend log and
// schedules the next acknowledgment and segment. The frontend log numbers
// events itself; MCU ids restart with every MCU session.
func (f *ReceiveFilter) pollLogEvents() {
	for _, e := range f.logReceiver.Drain() {
		f.logSender.Append(e)
	}
	if ack := f.logReceiver.Output(); ack != nil {
		f.mcu.Input(ack)
	}
	if !f.frontendConnected || f.frontend.IsPending(message.KindNextLogEvents) {
		return
	}
	if segment := f.logSender.Output(); segment != nil {
		f.frontend.Input(segment)
	}
}

// store writes msg into sync and reports whether the entry changed.
func (f *ReceiveFilter) store(sync *states.Synchronizer, msg message.Message) bool {
	before := sync.Revision(msg.Kind())
	sync.Input(msg)
	return sync.Revision(msg.Kind()) != before
}

func (f *ReceiveFilter) valid(party Party, msg message.Message) bool {
	if f.validator == nil {
		return true
	}
	if err := f.validator.Validate(msg); err != nil {
		f.logger.Warn("dropped invalid message",
			"party", party.String(),
			"kind", msg.Kind().String(),
			"error", err,
		)
		return false
	}
	return true
}

func (f *ReceiveFilter) unroutable(party Party, msg message.Message) {
	f.logger.Warn("dropped unroutable message",
		"party", party.String(),
		"kind", msg.Kind().String(),
	)
}

// Seed writes msg into the MCU view before the pipeline starts, so the MCU
// receives it on the first poll.
func (f *ReceiveFilter) Seed(msg message.Message) {
	if isNil(msg) {
		return
	}
	f.mcu.Input(msg)
}

// SetFrontendConnected updates frontend liveness. On reconnection the
// frontend view is resent in full and log replication restarts.
func (f *ReceiveFilter) SetFrontendConnected(connected bool) {
	if connected && !f.frontendConnected {
		f.frontend.Resend()
		f.logSender.Restart()
	}
	f.frontendConnected = connected
}

// FrontendConnected reports the liveness last set by SetFrontendConnected.
func (f *ReceiveFilter) FrontendConnected() bool {
	return f.frontendConnected
}

// FrontendPending reports whether frontend output is waiting to be sent.
func (f *ReceiveFilter) FrontendPending() bool {
	return f.frontend.Pending() > 0
}

// State returns a party's current value for kind.
func (f *ReceiveFilter) State(party Party, kind message.Kind) (message.Message, bool) {
	switch party {
	case PartyMCU:
		return f.mcu.Get(kind)
	case PartyFrontend:
		return f.frontend.Get(kind)
	case PartyFile:
		return f.file.Get(kind)
	default:
		return nil, false
	}
}

// LogReplication reports how many times the MCU forced a log
// resynchronization and how many frontend log events await acknowledgment.
func (f *ReceiveFilter) LogReplication() (mcuResets, unacknowledged int) {
	return f.logReceiver.Resets(), f.logSender.Unacknowledged()
}

// LogEvents returns the event log retained for the frontend.
func (f *ReceiveFilter) LogEvents() []message.LogEvent {
	return f.logSender.Events()
}

func isNil(msg message.Message) bool {
	return msg == nil || reflect.ValueOf(msg).IsNil()
}
