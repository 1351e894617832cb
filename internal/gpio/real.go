//go:build linux

package gpio

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/warthog618/go-gpiocdev"
)

// RealPins drives trigger lines and samples echo lines on a Linux gpiochip.
type RealPins struct {
	chip     *gpiocdev.Chip
	triggers map[int]*gpiocdev.Line
	echoes   map[int]*gpiocdev.Line
	log      *slog.Logger

	// ReadErrors and WriteErrors count failed line operations.
	ReadErrors  uint64
	WriteErrors uint64
}

// NewRealPins requests each trigger offset as an output (initially low) and
// each echo offset as an input with pull-down. A line shared by several
// sensors is requested once.
func NewRealPins(chipName string, trigger, echo []int, log *slog.Logger) (*RealPins, error) {
	if log == nil {
		log = slog.Default()
	}

	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer("sonar-array"))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	r := &RealPins{
		chip:     chip,
		triggers: make(map[int]*gpiocdev.Line, len(trigger)),
		echoes:   make(map[int]*gpiocdev.Line, len(echo)),
		log:      log.With("component", "gpio"),
	}

	for _, pin := range trigger {
		if _, ok := r.triggers[pin]; ok {
			continue
		}
		l, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("request trigger pin %d: %w", pin, err)
		}
		r.triggers[pin] = l
	}

	// Pull-down keeps a disconnected echo line low, so the watchdog resolves it.
	for _, pin := range echo {
		if _, ok := r.echoes[pin]; ok {
			continue
		}
		l, err := chip.RequestLine(pin, gpiocdev.AsInput, gpiocdev.WithPullDown)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("request echo pin %d: %w", pin, err)
		}
		r.echoes[pin] = l
	}

	return r, nil
}

// ReadPin samples an echo line. Errors read as low.
func (r *RealPins) ReadPin(pin int) bool {
	l, ok := r.echoes[pin]
	if !ok {
		r.ReadErrors++
		return false
	}
	v, err := l.Value()
	if err != nil {
		r.ReadErrors++
		r.log.Warn("read failed", "pin", pin, "err", err)
		return false
	}
	return v == 1
}

// WritePin drives a trigger line.
func (r *RealPins) WritePin(pin int, high bool) {
	l, ok := r.triggers[pin]
	if !ok {
		r.WriteErrors++
		return
	}
	v := 0
	if high {
		v = 1
	}
	if err := l.SetValue(v); err != nil {
		r.WriteErrors++
		r.log.Warn("write failed", "pin", pin, "err", err)
	}
}

// Close drives triggers low, returns every line to input with pull-down
// (the Raspberry Pi boot default) and releases the chip.
func (r *RealPins) Close() error {
	var errs []error

	for pin, l := range r.triggers {
		if err := l.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("lower trigger pin %d: %w", pin, err))
		}
		if err := l.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure trigger pin %d: %w", pin, err))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close trigger pin %d: %w", pin, err))
		}
	}
	for pin, l := range r.echoes {
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close echo pin %d: %w", pin, err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	return errors.Join(errs...)
}
