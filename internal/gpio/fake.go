package gpio

// FakePins is a test double that returns scripted levels per pin and records writes.
type FakePins struct {
	// Samples holds the scripted levels for each input pin.
	// Each ReadPin call for a pin consumes its next sample; once exhausted
	// the last sample repeats. Pins without samples read low.
	Samples map[int][]bool

	// Writes records every WritePin call in order.
	Writes []Write

	// Reads counts ReadPin calls per pin.
	Reads map[int]int

	// Closed tracks if Close was called
	Closed bool

	index map[int]int
}

// Write is one recorded WritePin call.
type Write struct {
	Pin  int
	High bool
}

// NewFakePins creates FakePins with the given per-pin samples.
func NewFakePins(samples map[int][]bool) *FakePins {
	if samples == nil {
		samples = make(map[int][]bool)
	}
	return &FakePins{
		Samples: samples,
		Reads:   make(map[int]int),
		index:   make(map[int]int),
	}
}

// ReadPin returns the next scripted sample for pin.
func (f *FakePins) ReadPin(pin int) bool {
	f.Reads[pin]++

	s := f.Samples[pin]
	if len(s) == 0 {
		return false
	}

	i := f.index[pin]
	if i < len(s)-1 {
		f.index[pin] = i + 1
	}
	return s[i]
}

// WritePin records the write.
func (f *FakePins) WritePin(pin int, high bool) {
	f.Writes = append(f.Writes, Write{Pin: pin, High: high})
}

// WritesTo returns the recorded levels written to pin.
func (f *FakePins) WritesTo(pin int) []bool {
	var out []bool
	for _, w := range f.Writes {
		if w.Pin == pin {
			out = append(out, w.High)
		}
	}
	return out
}

// Close marks the pins as closed.
func (f *FakePins) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds every script and clears recorded calls.
func (f *FakePins) Reset() {
	f.Writes = nil
	f.Reads = make(map[int]int)
	f.index = make(map[int]int)
	f.Closed = false
}

// Pulse builds a sample script: low for delay reads, high for width reads,
// then low.
func Pulse(delay, width int) []bool {
	s := make([]bool, delay+width+1)
	for i := delay; i < delay+width; i++ {
		s[i] = true
	}
	return s
}
