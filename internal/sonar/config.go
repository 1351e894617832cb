package sonar

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNoSensors    = errors.New("sonar: at least one sensor required")
	ErrPinCount     = errors.New("sonar: trigger and echo pin counts differ")
	ErrPinConflict  = errors.New("sonar: pin used as both trigger and echo")
	ErrMaxLoops     = errors.New("sonar: maxloops must be positive")
	ErrTickDuration = errors.New("sonar: tick duration must be positive")
	ErrGarbageTicks = errors.New("sonar: invalid garbage threshold")
	ErrTriggerHold  = errors.New("sonar: trigger hold must be positive")
)

// Config is the construction-time configuration of a Machine.
type Config struct {
	ID   int
	Name string

	// NumPins is the number of sensors; TriggerPins and EchoPins must each
	// hold exactly NumPins entries.
	NumPins     int
	TriggerPins []int
	EchoPins    []int

	// MaxLoops bounds the ticks spent waiting on one sensor's echo.
	MaxLoops int

	// TickDuration is the host's step period, used for distance conversion.
	TickDuration time.Duration

	// GarbageTicks is the minimum credible pulse width. Echo pulses with
	// fewer high samples are dropped. 0 or 1 disables filtering.
	GarbageTicks int

	// TriggerHoldTicks is how long the trigger line is held high. Default 1.
	TriggerHoldTicks int

	// SpeedOfSound in m/s. Default DefaultSpeedOfSound.
	SpeedOfSound uint32
}

func (c Config) withDefaults() Config {
	if c.TriggerHoldTicks == 0 {
		c.TriggerHoldTicks = 1
	}
	if c.SpeedOfSound == 0 {
		c.SpeedOfSound = DefaultSpeedOfSound
	}
	return c
}

// Validate reports the first configuration error.
func (c Config) Validate() error {
	if c.NumPins <= 0 {
		return fmt.Errorf("numPins=%d: %w", c.NumPins, ErrNoSensors)
	}
	if len(c.TriggerPins) != c.NumPins || len(c.EchoPins) != c.NumPins {
		return fmt.Errorf("numPins=%d trigger=%d echo=%d: %w",
			c.NumPins, len(c.TriggerPins), len(c.EchoPins), ErrPinCount)
	}

	// Sensors may share trigger or echo lines, but a line has one direction.
	outputs := make(map[int]bool, c.NumPins)
	for _, p := range c.TriggerPins {
		outputs[p] = true
	}
	for _, p := range c.EchoPins {
		if outputs[p] {
			return fmt.Errorf("pin %d: %w", p, ErrPinConflict)
		}
	}

	if c.MaxLoops <= 0 {
		return fmt.Errorf("maxloops=%d: %w", c.MaxLoops, ErrMaxLoops)
	}
	if c.TickDuration <= 0 {
		return fmt.Errorf("tick=%v: %w", c.TickDuration, ErrTickDuration)
	}
	if c.GarbageTicks < 0 || c.GarbageTicks >= c.MaxLoops {
		return fmt.Errorf("garbage=%d maxloops=%d: %w", c.GarbageTicks, c.MaxLoops, ErrGarbageTicks)
	}
	if c.TriggerHoldTicks < 0 {
		return fmt.Errorf("trigger hold=%d: %w", c.TriggerHoldTicks, ErrTriggerHold)
	}
	return nil
}
