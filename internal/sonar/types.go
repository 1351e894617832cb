// Package sonar drives a multiplexed array of ultrasonic range sensors that
// share trigger and echo lines. It contains no timing of its own: the host
// calls Step once per tick and every wait is bounded by a tick-count watchdog.
package sonar

import (
	"strconv"
	"time"

	"github.com/sweeney/sonar-array/internal/fsm"
)

// State ids of the measurement cycle.
const (
	Initial fsm.StateID = iota
	SetupMeasure
	WaitForPulseStart
	SkipGarbage
	WaitForPulseEnd
)

// Distance is a range in millimetres.
type Distance int32

// NoReading marks a sensor whose echo was not measured within the watchdog bound.
const NoReading Distance = -1

// Valid reports whether d holds a measured distance.
func (d Distance) Valid() bool {
	return d >= 0
}

func (d Distance) String() string {
	if !d.Valid() {
		return "NO_READING"
	}
	return strconv.Itoa(int(d)) + "mm"
}

// Status describes how a sensor cycle ended.
type Status string

const (
	StatusOK        Status = "OK"
	StatusNoReading Status = "NO_READING"
)

// Reading is one published sensor result.
type Reading struct {
	// Timestamp is stamped by the host; the machine itself has no clock.
	Timestamp time.Time
	Sensor    int
	Distance  Distance
	Width     uint64 // pulse width in ticks, 0 for NoReading
	Status    Status
	Tick      uint64 // machine tick on which the reading was published
}

// SensorCounts tracks cycle outcomes for one sensor since construction.
type SensorCounts struct {
	Readings int
	Timeouts int
	Garbage  int
}

// measurement is the per-cycle scratch state.
type measurement struct {
	inputPin  int
	outputPin int
	width     uint64
	numLoops  uint64
	distance  Distance

	phase     int
	triggered bool

	level     bool
	sampledAt uint64
	sawLow    bool // a low echo sample was taken this cycle
}
