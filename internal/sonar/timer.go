package sonar

import (
	"math"
	"math/bits"
	"time"
)

// DefaultSpeedOfSound is the speed of sound in dry air at 20°C, in m/s.
const DefaultSpeedOfSound = 343

// EchoStartLatency bounds the delay between the trigger's falling edge and the
// echo line rising (the sensor's 40kHz burst plus settling).
const EchoStartLatency = 500 * time.Microsecond

// mm = width × tick[ns] × speed[m/s] / 2 / 1e6
const roundTripDivisor = 2_000_000

// Millimeters converts a pulse width in ticks into a one-way distance,
// rounded to the nearest millimetre (halves round up).
func Millimeters(width uint64, tick time.Duration, speed uint32) Distance {
	hi, num := bits.Mul64(width, uint64(tick))
	if hi != 0 {
		return Distance(math.MaxInt32)
	}
	hi, num = bits.Mul64(num, uint64(speed))
	if hi != 0 {
		return Distance(math.MaxInt32)
	}
	num, carry := bits.Add64(num, roundTripDivisor/2, 0)
	if carry != 0 {
		return Distance(math.MaxInt32)
	}

	mm := num / roundTripDivisor
	if mm > math.MaxInt32 {
		return Distance(math.MaxInt32)
	}
	return Distance(mm)
}

// WidthFor is the inverse of Millimeters: the pulse width in ticks that a
// target at d would produce.
func WidthFor(d Distance, tick time.Duration, speed uint32) uint64 {
	if !d.Valid() || tick <= 0 || speed == 0 {
		return 0
	}
	den := uint64(tick) * uint64(speed)
	return (uint64(d)*roundTripDivisor + den/2) / den
}

// MaxLoopsFor returns the smallest watchdog bound that still covers a full
// cycle for a target at maxRange: the wait for the echo to rise, the garbage
// window, and the round-trip pulse itself.
func MaxLoopsFor(maxRange Distance, tick time.Duration, speed uint32, garbageTicks int) int {
	if tick <= 0 {
		return 0
	}
	start := uint64((EchoStartLatency + tick - 1) / tick)
	return int(start + WidthFor(maxRange, tick, speed) + uint64(garbageTicks) + 1)
}
