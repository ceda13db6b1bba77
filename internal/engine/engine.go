package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/pez-globo/ventserver/internal/backend"
	"github.com/pez-globo/ventserver/internal/codec"
	"github.com/pez-globo/ventserver/internal/metrics"
	"github.com/pez-globo/ventserver/internal/rotary"
	"github.com/pez-globo/ventserver/internal/server"
)

// Defaults used when no option overrides them.
const (
	DefaultQueueSize = 256
	DefaultIdleTick  = 50 * time.Millisecond
)

// FrameWriter accepts one encoded frame for a transport.
type FrameWriter interface {
	WriteFrame(ctx context.Context, frame []byte) error
}

// StateWriter persists one file-party record.
type StateWriter interface {
	SaveState(ctx context.Context, record *codec.StateData) error
}

// Engine owns a server protocol and steps it from a single goroutine.
//
// Thread-safety model:
//   - Submit, Announce, QueueLen and Stop: safe from any goroutine
//   - Run: must be called from exactly one goroutine
type Engine struct {
	proto    *server.Protocol
	queue    *eventQueue
	clock    *Clock
	idleTick time.Duration

	serial    FrameWriter
	websocket FrameWriter
	states    StateWriter
	knob      *rotary.Queue

	metrics *metrics.Metrics
	logger  *slog.Logger

	queueSize int
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithQueueSize bounds the inbound event queue.
func WithQueueSize(n int) Option {
	return func(e *Engine) {
		e.queueSize = n
	}
}

// WithIdleTick sets the interval of time-only events while idle.
func WithIdleTick(d time.Duration) Option {
	return func(e *Engine) {
		e.idleTick = d
	}
}

// WithNow replaces the wall clock used for event time.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithSerial sets the sink for MCU frames.
func WithSerial(w FrameWriter) Option {
	return func(e *Engine) {
		e.serial = w
	}
}

// WithWebsocket sets the sink for frontend frames.
func WithWebsocket(w FrameWriter) Option {
	return func(e *Engine) {
		e.websocket = w
	}
}

// WithStateWriter sets the sink for file-party records.
func WithStateWriter(w StateWriter) Option {
	return func(e *Engine) {
		e.states = w
	}
}

// WithRotary sets the queue fed by the rotary encoder callbacks. The Run
// loop drains it on every idle tick.
func WithRotary(q *rotary.Queue) Option {
	return func(e *Engine) {
		e.knob = q
	}
}

// WithMetrics records pipeline metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an engine around proto.
func New(proto *server.Protocol, opts ...Option) *Engine {
	e := &Engine{
		proto:     proto,
		idleTick:  DefaultIdleTick,
		queueSize: DefaultQueueSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.queueSize <= 0 {
		e.queueSize = DefaultQueueSize
	}
	if e.idleTick <= 0 {
		e.idleTick = DefaultIdleTick
	}
	e.queue = newEventQueue(e.queueSize)
	e.clock = NewClock(e.now)
	return e
}

// Submit queues a receive event. It returns false, without blocking, when
// the queue is full or the engine has stopped.
func (e *Engine) Submit(event *server.ReceiveEvent) bool {
	return e.enqueue(Event{Type: EventTypeReceive, Receive: event})
}

// Announce queues an announcement for every party.
func (e *Engine) Announce(data []byte) bool {
	return e.enqueue(Event{Type: EventTypeAnnounce, Announcement: &backend.Announcement{Data: data}})
}

func (e *Engine) enqueue(event Event) bool {
	if !e.queue.Enqueue(event) {
		e.metrics.QueueDropped()
		return false
	}
	e.metrics.SetQueueLength(e.queue.Len())
	return true
}

// Now returns the engine's event time.
func (e *Engine) Now() time.Time {
	return e.clock.Now()
}

// QueueLen returns the number of queued events.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// Run processes events until ctx is cancelled or Stop is called.
//
// Errors from sinks are logged and processing continues; transports own
// their retry policy.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine starting", "idle_tick", e.idleTick, "queue_size", e.queueSize)

	ticker := time.NewTicker(e.idleTick)
	defer ticker.Stop()

	for {
		if event, ok := e.queue.TryDequeue(); ok {
			e.process(ctx, event)
			continue
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-ticker.C:
			e.tick(ctx)

		case _, open := <-e.queue.Wait():
			if !open {
				e.drain(ctx)
				e.logger.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the queue. Run processes what is already queued and returns.
func (e *Engine) Stop() {
	e.queue.Close()
}

func (e *Engine) drain(ctx context.Context) {
	for {
		event, ok := e.queue.TryDequeue()
		if !ok {
			return
		}
		e.process(ctx, event)
	}
}

// tick feeds pending rotary samples, then a time-only event.
func (e *Engine) tick(ctx context.Context) {
	if e.knob != nil {
		for {
			sample, ok := e.knob.Pop()
			if !ok {
				break
			}
			e.process(ctx, Event{
				Type:    EventTypeReceive,
				Receive: server.MakeRotaryEncoderReceive(sample, e.clock.Now()),
			})
		}
	}
	e.process(ctx, Event{Type: EventTypeReceive, Receive: &server.ReceiveEvent{Time: e.clock.Now()}})
}

// process steps one event through the protocol.
// Called only from the Run goroutine.
func (e *Engine) process(ctx context.Context, event Event) {
	seq := e.clock.Next()
	start := time.Now()
	defer func() {
		e.metrics.ObserveStep(time.Since(start))
		e.metrics.SetQueueLength(e.queue.Len())
	}()

	switch event.Type {
	case EventTypeReceive:
		if event.Receive == nil {
			e.logger.Warn("receive event missing payload", "seq", seq)
			return
		}
		e.metrics.EventReceived(transportOf(event.Receive))
		e.proto.Receive.Input(event.Receive)
		out := e.proto.Receive.Output()
		if out == nil {
			return
		}
		if out.FrontendDelayed {
			e.metrics.FrontendDelayed()
		}
		if out.ServerSend != nil {
			e.proto.Send.Input(out.ServerSend)
		}

	case EventTypeAnnounce:
		e.proto.Send.Input(event.Announcement)

	default:
		e.logger.Warn("unknown event type", "seq", seq, "type", int(event.Type))
		return
	}

	for send := e.proto.Send.Output(); send != nil; send = e.proto.Send.Output() {
		e.dispatch(ctx, seq, send)
	}
}

func (e *Engine) dispatch(ctx context.Context, seq int64, send *server.SendOutputEvent) {
	if send.SerialSend != nil && e.serial != nil {
		e.write(seq, server.TransportSerial, func() error {
			return e.serial.WriteFrame(ctx, send.SerialSend)
		})
	}
	if send.WebsocketSend != nil && e.websocket != nil {
		e.write(seq, server.TransportWebsocket, func() error {
			return e.websocket.WriteFrame(ctx, send.WebsocketSend)
		})
	}
	if send.FileSend != nil && e.states != nil {
		e.write(seq, server.TransportFile, func() error {
			return e.states.SaveState(ctx, send.FileSend)
		})
	}
}

func (e *Engine) write(seq int64, transport string, fn func() error) {
	if err := fn(); err != nil {
		e.metrics.SendFailed(transport)
		e.logger.Error("transport send failed",
			"seq", seq,
			"transport", transport,
			"error", err,
		)
		return
	}
	e.metrics.PayloadSent(transport)
}

func transportOf(event *server.ReceiveEvent) string {
	switch {
	case event.SerialReceive != nil:
		return server.TransportSerial
	case event.WebsocketReceive != nil:
		return server.TransportWebsocket
	case event.RotaryEncoderReceive != nil:
		return server.TransportRotary
	case event.FileReceive != nil:
		return server.TransportFile
	default:
		return "clock"
	}
}
