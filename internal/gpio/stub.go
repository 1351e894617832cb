//go:build !linux

package gpio

import (
	"errors"
	"log/slog"
)

// RealPins is not available on non-Linux platforms.
type RealPins struct {
	ReadErrors  uint64
	WriteErrors uint64
}

// NewRealPins returns an error on non-Linux platforms.
func NewRealPins(chipName string, trigger, echo []int, log *slog.Logger) (*RealPins, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// ReadPin always reads low.
func (r *RealPins) ReadPin(pin int) bool { return false }

// WritePin is a no-op.
func (r *RealPins) WritePin(pin int, high bool) {}

// Close is not implemented on non-Linux platforms.
func (r *RealPins) Close() error {
	return nil
}
