package server

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pez-globo/ventserver/internal/backend"
	"github.com/pez-globo/ventserver/internal/codec"
	"github.com/pez-globo/ventserver/internal/rotary"
)

// Config configures a Protocol.
type Config struct {
	Backend backend.Config

	// LivenessTimeout is how long event time may pass without websocket
	// traffic before the frontend counts as disconnected.
	LivenessTimeout time.Duration

	// MCUCodec and FrontendCodec default to CBOR and MessagePack.
	MCUCodec      codec.Codec
	FrontendCodec codec.Codec

	Observer Observer
	Logger   *slog.Logger
}

// Protocol pairs the receive and send filters of one server.
type Protocol struct {
	Receive *ReceiveFilter
	Send    *SendFilter
}

// New creates a protocol. The frontend starts disconnected until its first
// websocket message.
func New(cfg Config) (*Protocol, error) {
	if cfg.LivenessTimeout <= 0 {
		return nil, errors.New("server: liveness timeout must be positive")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Backend.Logger == nil {
		cfg.Backend.Logger = logger
	}
	mcuCodec := cfg.MCUCodec
	if mcuCodec == nil {
		mcuCodec = codec.CBOR()
	}
	frontendCodec := cfg.FrontendCodec
	if frontendCodec == nil {
		frontendCodec = codec.Msgpack()
	}
	observer := cfg.Observer
	if observer == nil {
		observer = nopObserver{}
	}

	be, err := backend.NewReceiveFilter(cfg.Backend)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}
	be.SetFrontendConnected(false)

	return &Protocol{
		Receive: &ReceiveFilter{
			backend:       be,
			rotary:        rotary.NewReceiveFilter(),
			timeout:       cfg.LivenessTimeout,
			mcuCodec:      mcuCodec,
			frontendCodec: frontendCodec,
			observer:      observer,
			logger:        logger,
		},
		Send: &SendFilter{
			backend:       backend.NewSendFilter(),
			mcuCodec:      mcuCodec,
			frontendCodec: frontendCodec,
			logger:        logger,
		},
	}, nil
}
