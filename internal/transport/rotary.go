package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/pez-globo/ventserver/internal/rotary"
)

// RotaryReader decodes encoder line levels and feeds the sample queue. Each
// input line carries one reading of the CLK, DT and button lines as 0 or 1,
// e.g. "1 0 1", as produced by a GPIO edge monitor.
//
// RotaryReader is the queue's only producer.
type RotaryReader struct {
	r       io.Reader
	queue   *rotary.Queue
	decoder *rotary.Decoder
	logger  *slog.Logger
}

// NewRotaryReader creates a reader. The decoder is initialized from the
// first line read.
func NewRotaryReader(r io.Reader, q *rotary.Queue, logger *slog.Logger) *RotaryReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &RotaryReader{r: r, queue: q, logger: logger}
}

// Run reads lines until EOF or ctx is cancelled. Malformed lines are logged
// and skipped.
func (rr *RotaryReader) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(rr.r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		clk, dt, sw, err := parseLevels(line)
		if err != nil {
			rr.logger.Warn("dropped rotary reading", "line", line, "error", err)
			continue
		}
		rr.apply(clk, dt, sw)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("rotary read: %w", err)
	}
	return nil
}

func (rr *RotaryReader) apply(clk, dt, sw bool) {
	if rr.decoder == nil {
		rr.decoder = rotary.NewDecoder(clk)
	}
	changed := rr.decoder.Rotate(clk, dt)
	if rr.decoder.Button(sw) {
		changed = true
	}
	if !changed {
		return
	}
	if !rr.queue.Push(rr.decoder.Sample()) {
		rr.logger.Warn("dropped rotary sample: queue full")
	}
}

func parseLevels(line string) (clk, dt, sw bool, err error) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return false, false, false, fmt.Errorf("want 3 levels, got %d", len(fields))
	}
	levels := make([]bool, 3)
	for i, f := range fields {
		v, err := strconv.ParseBool(f)
		if err != nil {
			return false, false, false, fmt.Errorf("level %d: %w", i, err)
		}
		levels[i] = v
	}
	return levels[0], levels[1], levels[2], nil
}
