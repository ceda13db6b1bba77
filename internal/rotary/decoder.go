package rotary

// DegreesPerStep is the detent spacing of the encoder.
const DegreesPerStep = 6

// Sample is a snapshot of the encoder: the signed step count since start and
// whether the push button is held.
type Sample struct {
	Count   int
	Pressed bool
}

// Decoder tracks quadrature state from CLK/DT levels and the button line.
//
// Decoder is owned by the edge-callback goroutine and is not safe for
// concurrent use.
type Decoder struct {
	lastCLK bool
	count   int
	pressed bool
}

// NewDecoder creates a decoder whose CLK line currently reads clk.
func NewDecoder(clk bool) *Decoder {
	return &Decoder{lastCLK: clk}
}

// Rotate applies the current CLK and DT levels and reports whether the count
// changed.
func (d *Decoder) Rotate(clk, dt bool) bool {
	if clk == d.lastCLK {
		return false
	}
	d.lastCLK = clk
	if dt != clk {
		d.count++
	} else {
		d.count--
	}
	return true
}

// Button applies the button line level. The line is pulled up, so a low
// level means pressed. It reports whether the pressed state changed.
func (d *Decoder) Button(level bool) bool {
	pressed := !level
	if pressed == d.pressed {
		return false
	}
	d.pressed = pressed
	return true
}

// Sample returns the current state.
func (d *Decoder) Sample() Sample {
	return Sample{Count: d.count, Pressed: d.pressed}
}

// Angle returns the knob angle in degrees, in [0, 360).
func (s Sample) Angle() int {
	a := (s.Count * DegreesPerStep) % 360
	if a < 0 {
		a += 360
	}
	return a
}
