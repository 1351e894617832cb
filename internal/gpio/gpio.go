// Package gpio provides trigger/echo pin access with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake and simulated implementations allow running without hardware.
package gpio

// Pins reads and drives individual lines by offset.
//
// Implementations must not block. Read failures are reported as a low level;
// the caller's watchdog turns a line that never rises into a missed reading.
type Pins interface {
	// ReadPin returns true when the line is high.
	ReadPin(pin int) bool

	// WritePin drives an output line high or low.
	WritePin(pin int, high bool)
}

// Bank is a set of pins that holds hardware resources.
type Bank interface {
	Pins

	// Close releases GPIO resources.
	Close() error
}

// Default pin assignments (BCM numbering) for a two-sensor array.
var (
	DefaultTriggerPins = []int{23, 24}
	DefaultEchoPins    = []int{17, 27}
)

// DefaultChip is the gpiochip device the real bank opens.
const DefaultChip = "gpiochip0"
