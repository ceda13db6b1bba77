package harness

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/pez-globo/ventserver/internal/backend"
	"github.com/pez-globo/ventserver/internal/codec"
	"github.com/pez-globo/ventserver/internal/lists"
	"github.com/pez-globo/ventserver/internal/message"
	"github.com/pez-globo/ventserver/internal/rotary"
	"github.com/pez-globo/ventserver/internal/schema"
	"github.com/pez-globo/ventserver/internal/server"
	"github.com/pez-globo/ventserver/internal/store"
)

// Epoch is the wall time of a step with at: 0.
var Epoch = time.UnixMilli(1_700_000_000_000).UTC()

var parties = map[string]backend.Party{
	"mcu":      backend.PartyMCU,
	"frontend": backend.PartyFrontend,
	"file":     backend.PartyFile,
}

// Harness drives one protocol instance through a scenario.
type Harness struct {
	proto  *server.Protocol
	store  *store.Store
	result *Result
	logger *slog.Logger

	step int
	at   time.Duration
	sent map[string][]string
}

// Run executes a scenario with logging discarded.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger executes a scenario against a fresh protocol and an
// in-memory file store, then evaluates its assertions.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	proto, err := server.New(protocolConfig(scenario, logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create protocol: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		proto:  proto,
		store:  st,
		result: NewResult(),
		logger: logger,
	}

	for i, seed := range scenario.Seed {
		msg, err := seed.Message()
		if err != nil {
			return nil, fmt.Errorf("seed[%d]: %w", i, err)
		}
		proto.Receive.Backend().Seed(msg)
	}

	ctx := context.Background()
	for i, step := range scenario.Steps {
		if err := h.runStep(ctx, i, step); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	for _, errMsg := range EvaluateAssertions(ctx, h.result, scenario.Assertions, h) {
		h.result.AddError(errMsg)
	}
	return h.result, nil
}

func protocolConfig(s *Scenario, logger *slog.Logger) server.Config {
	c := s.Config
	or := func(v, def time.Duration) time.Duration {
		if v == 0 {
			return def
		}
		return v
	}
	orInt := func(v, def int) int {
		if v == 0 {
			return def
		}
		return v
	}
	return server.Config{
		Backend: backend.Config{
			Validator:    schema.MustNew(),
			PingInterval: or(c.PingInterval, 500*time.Millisecond),
			LogEvents: lists.SenderConfig{
				MaxLen:        orInt(c.LogMaxLen, 100),
				MaxSegmentLen: orInt(c.LogMaxSegmentLen, 10),
				RetryInterval: or(c.LogRetryInterval, time.Second),
				SessionID:     s.Name,
			},
			Logger: logger,
		},
		LivenessTimeout: or(c.LivenessTimeout, 2*time.Second),
		Logger:          logger,
	}
}

func (h *Harness) runStep(ctx context.Context, index int, step Step) error {
	h.step, h.at = index, step.At
	h.sent = make(map[string][]string)

	event, err := receiveEvent(step)
	if err != nil {
		return err
	}

	wasConnected := h.proto.Receive.Connection().IsFrontendConnected
	h.proto.Receive.Input(event)
	out := h.proto.Receive.Output()

	if connected := h.proto.Receive.Connection().IsFrontendConnected; connected != wasConnected {
		note := NoteDisconnected
		if connected {
			note = NoteConnected
		}
		h.note(note)
	}
	if out != nil && out.ServerSend != nil {
		h.proto.Send.Input(out.ServerSend)
	}
	if err := h.drain(ctx); err != nil {
		return err
	}
	delayed := out != nil && out.FrontendDelayed
	if delayed {
		h.note(NoteDelayed)
	}

	if step.Announce != nil {
		h.proto.Send.Input(&backend.Announcement{Data: []byte(*step.Announce)})
		if err := h.drain(ctx); err != nil {
			return err
		}
	}

	if step.Expect != nil {
		h.checkStep(step.Expect, delayed)
	}
	return nil
}

func receiveEvent(step Step) (*server.ReceiveEvent, error) {
	event := &server.ReceiveEvent{Time: Epoch.Add(step.At)}
	var err error
	if step.Serial != nil {
		if event.SerialReceive, err = encode(codec.CBOR(), step.Serial); err != nil {
			return nil, fmt.Errorf("serial: %w", err)
		}
	}
	if step.Websocket != nil {
		if event.WebsocketReceive, err = encode(codec.Msgpack(), step.Websocket); err != nil {
			return nil, fmt.Errorf("websocket: %w", err)
		}
	}
	if step.WebsocketRaw != "" {
		if event.WebsocketReceive, err = hex.DecodeString(step.WebsocketRaw); err != nil {
			return nil, fmt.Errorf("websocket_raw: %w", err)
		}
	}
	if step.Rotary != nil {
		event.RotaryEncoderReceive = &rotary.Sample{Count: step.Rotary.Count, Pressed: step.Rotary.Pressed}
	}
	if step.File != nil {
		msg, err := step.File.Message()
		if err != nil {
			return nil, fmt.Errorf("file: %w", err)
		}
		if event.FileReceive, err = codec.EncodeState(msg); err != nil {
			return nil, fmt.Errorf("file: %w", err)
		}
	}
	return event, nil
}

func encode(c codec.Codec, spec *MessageSpec) ([]byte, error) {
	msg, err := spec.Message()
	if err != nil {
		return nil, err
	}
	return c.Encode(msg)
}

// drain records every pending send. File records are also persisted.
func (h *Harness) drain(ctx context.Context) error {
	for send := h.proto.Send.Output(); send != nil; send = h.proto.Send.Output() {
		if send.SerialSend != nil {
			msg, err := codec.CBOR().Decode(send.SerialSend)
			if err != nil {
				return fmt.Errorf("decode serial send: %w", err)
			}
			h.record(transportSerial, msg)
		}
		if send.WebsocketSend != nil {
			msg, err := codec.Msgpack().Decode(send.WebsocketSend)
			if err != nil {
				return fmt.Errorf("decode websocket send: %w", err)
			}
			h.record(transportWebsocket, msg)
		}
		if send.FileSend != nil {
			if err := h.store.SaveState(ctx, send.FileSend); err != nil {
				return err
			}
			msg, err := codec.DecodeState(send.FileSend)
			if err != nil {
				return fmt.Errorf("decode file send: %w", err)
			}
			h.record(transportFile, msg)
		}
	}
	return nil
}

func (h *Harness) record(transport string, msg message.Message) {
	value, err := toMap(msg)
	if err != nil {
		h.result.AddError(fmt.Sprintf("step %d: %s %s: %v", h.step, transport, msg.Kind(), err))
	}
	kind := msg.Kind().String()
	h.sent[transport] = append(h.sent[transport], kind)
	h.result.Trace = append(h.result.Trace, TraceEvent{
		Step:      h.step,
		At:        h.at,
		Transport: transport,
		Kind:      kind,
		Value:     value,
	})
}

func (h *Harness) note(note string) {
	h.result.Trace = append(h.result.Trace, TraceEvent{
		Step:      h.step,
		At:        h.at,
		Transport: transportFrontend,
		Note:      note,
	})
}

func (h *Harness) checkStep(expect *StepExpect, delayed bool) {
	check := func(transport string, want []string) {
		if want == nil {
			return
		}
		got := h.sent[transport]
		if !sameKinds(got, want) {
			h.result.AddError(fmt.Sprintf("step %d: %s sent %v, expected %v", h.step, transport, got, want))
		}
	}
	check(transportSerial, expect.Serial)
	check(transportWebsocket, expect.Websocket)
	check(transportFile, expect.File)

	if want := expect.FrontendConnected; want != nil {
		if got := h.proto.Receive.Connection().IsFrontendConnected; got != *want {
			h.result.AddError(fmt.Sprintf("step %d: frontend connected = %v, expected %v", h.step, got, *want))
		}
	}
	if want := expect.FrontendDelayed; want != nil && delayed != *want {
		h.result.AddError(fmt.Sprintf("step %d: frontend delayed = %v, expected %v", h.step, delayed, *want))
	}
}

// sameKinds compares kind lists, resolving names with message.ParseKind.
func sameKinds(got, want []string) bool {
	canonical := make([]string, len(want))
	for i, w := range want {
		k, err := message.ParseKind(w)
		if err != nil {
			return false
		}
		canonical[i] = k.String()
	}
	return slices.Equal(got, canonical)
}
