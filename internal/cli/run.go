package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pez-globo/ventserver/internal/backend"
	"github.com/pez-globo/ventserver/internal/config"
	"github.com/pez-globo/ventserver/internal/engine"
	"github.com/pez-globo/ventserver/internal/lists"
	"github.com/pez-globo/ventserver/internal/message"
	"github.com/pez-globo/ventserver/internal/metrics"
	"github.com/pez-globo/ventserver/internal/rotary"
	"github.com/pez-globo/ventserver/internal/schema"
	"github.com/pez-globo/ventserver/internal/server"
	"github.com/pez-globo/ventserver/internal/store"
	"github.com/pez-globo/ventserver/internal/transport"
)

const shutdownTimeout = 5 * time.Second

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions

	// Listener overrides websocket.addr (for testing).
	Listener net.Listener
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the backend",
		Long: `Start the ventilator backend.

Opens the state file, restores the last saved requests, seeds the initial
ventilation request, then serves the frontend websocket and, when
configured, the MCU serial link and the rotary encoder until interrupted.

Example:
  ventserver run --config /etc/ventserver.yaml
  ventserver run --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(opts, cmd)
		},
	}

	return cmd
}

// lazySubmitter lets transports be built before the engine they feed.
type lazySubmitter struct {
	eng *engine.Engine
}

func (l *lazySubmitter) Submit(event *server.ReceiveEvent) bool {
	return l.eng.Submit(event)
}

func runServer(opts *RunOptions, cmd *cobra.Command) error {
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	cfg, err := loadConfig(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	initial, err := cfg.ParametersRequest()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid initial parameters request", err)
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open store", err)
	}
	defer st.Close()

	m := metrics.New()
	proto, err := server.New(protocolConfig(cfg, m, logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create protocol", err)
	}
	proto.Receive.Backend().Seed(initial)

	knob, err := rotary.NewQueue(cfg.Rotary.QueueSize)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create rotary queue", err)
	}

	submit := &lazySubmitter{}
	ws := transport.NewWebsocket(submit, time.Now, logger)
	engineOpts := []engine.Option{
		engine.WithQueueSize(cfg.Engine.QueueSize),
		engine.WithIdleTick(cfg.Engine.IdleTick),
		engine.WithWebsocket(ws),
		engine.WithStateWriter(st),
		engine.WithRotary(knob),
		engine.WithMetrics(m),
		engine.WithLogger(logger),
	}

	var serial *transport.Serial
	if cfg.Serial.Device != "" {
		serial, err = transport.OpenSerial(cfg.Serial.Device, submit, time.Now, logger)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open serial link", err)
		}
		defer serial.Close()
		engineOpts = append(engineOpts, engine.WithSerial(serial))
	}

	var knobFile *os.File
	if cfg.Rotary.Device != "" {
		knobFile, err = os.Open(cfg.Rotary.Device)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open rotary encoder", err)
		}
		defer knobFile.Close()
	}

	eng := engine.New(proto, engineOpts...)
	submit.eng = eng

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	restored, err := restoreStates(ctx, st, eng)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to restore saved state", err)
	}
	logger.Info("restored saved state", "records", restored, "path", cfg.Store.Path)

	httpServer := transport.NewServer(ws, transport.Routes{
		WebsocketPath: cfg.Websocket.Path,
		MetricsPath:   cfg.Metrics.Path,
		Metrics:       m.Handler(),
	})
	if opts.Listener != nil {
		httpServer.Listener = opts.Listener
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return eng.Run(gctx)
	})
	g.Go(func() error {
		return serveHTTP(gctx, httpServer, ws, cfg.Websocket.Addr, logger)
	})
	if serial != nil {
		g.Go(func() error {
			return serial.Run(gctx)
		})
	}
	if knobFile != nil {
		reader := transport.NewRotaryReader(knobFile, knob, logger)
		stopKnob := context.AfterFunc(gctx, func() { knobFile.Close() })
		defer stopKnob()
		g.Go(func() error {
			if err := reader.Run(gctx); err != nil && gctx.Err() == nil {
				return err
			}
			return nil
		})
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Backend started. Press Ctrl-C to stop.")
	logger.Info("backend starting",
		"websocket", cfg.Websocket.Addr+cfg.Websocket.Path,
		"serial", cfg.Serial.Device,
		"rotary", cfg.Rotary.Device,
		"store", cfg.Store.Path,
	)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "backend error", err)
	}
	logger.Info("backend stopped gracefully")
	return nil
}

func protocolConfig(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) server.Config {
	return server.Config{
		Backend: backend.Config{
			Validator:    schema.MustNew(),
			PingInterval: cfg.KeepAlive.PingInterval,
			LogEvents: lists.SenderConfig{
				MaxLen:        cfg.LogEvents.MaxLen,
				MaxSegmentLen: cfg.LogEvents.MaxSegmentLen,
				RetryInterval: cfg.LogEvents.RetryInterval,
			},
			Logger: logger,
		},
		LivenessTimeout: cfg.Frontend.LivenessTimeout,
		Observer:        m,
		Logger:          logger,
	}
}

// restoreStates submits the saved requests as file receives, so the MCU
// and frontend resume from the last persisted settings.
func restoreStates(ctx context.Context, st *store.Store, eng *engine.Engine) (int, error) {
	records, err := st.LoadAll(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, record := range records {
		kind, err := message.ParseKind(record.StateType)
		if err != nil {
			continue
		}
		if kind != message.KindParametersRequest && kind != message.KindAlarmLimitsRequest {
			continue
		}
		if !eng.Submit(server.MakeFileReceive(record, eng.Now())) {
			return n, fmt.Errorf("engine queue full restoring %s", kind)
		}
		n++
	}
	return n, nil
}

// serveHTTP runs the echo server until ctx is done, then shuts it down and
// disconnects websocket clients.
func serveHTTP(ctx context.Context, e *echo.Echo, ws *transport.Websocket, addr string, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- e.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("http server stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	ws.Close()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
