package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/pez-globo/ventserver/internal/server"
)

// Serial is the MCU link.
type Serial struct {
	rw     io.ReadWriteCloser
	submit Submitter
	now    func() time.Time
	logger *slog.Logger

	mu        sync.Mutex
	closeOnce sync.Once
}

// OpenSerial opens a serial device that has already been configured (baud
// rate, raw mode) by the system.
func OpenSerial(device string, submit Submitter, now func() time.Time, logger *slog.Logger) (*Serial, error) {
	f, err := os.OpenFile(device, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", device, err)
	}
	return NewSerial(f, submit, now, logger), nil
}

// NewSerial wraps an open link.
func NewSerial(rw io.ReadWriteCloser, submit Submitter, now func() time.Time, logger *slog.Logger) *Serial {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Serial{rw: rw, submit: submit, now: now, logger: logger}
}

// WriteFrame frames and writes one payload.
func (s *Serial) WriteFrame(_ context.Context, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.rw.Write(Frame(payload)); err != nil {
		return fmt.Errorf("serial write: %w", err)
	}
	return nil
}

// Run reads frames until ctx is cancelled or the link fails. Corrupt
// frames are logged and skipped.
func (s *Serial) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()

	r := bufio.NewReader(s.rw)
	for {
		chunk, err := r.ReadBytes(0)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("serial read: %w", err)
		}
		chunk = chunk[:len(chunk)-1]
		if len(chunk) == 0 {
			continue
		}
		payload, err := Unframe(chunk)
		if err != nil {
			s.logger.Warn("dropped corrupt serial frame", "error", err, "len", len(chunk))
			continue
		}
		if !s.submit.Submit(server.MakeSerialReceive(payload, s.now())) {
			s.logger.Warn("dropped serial frame: queue full")
		}
	}
}

// Close closes the link. It is safe to call more than once.
func (s *Serial) Close() error {
	var err error
	s.closeOnce.Do(func() { err = s.rw.Close() })
	return err
}
