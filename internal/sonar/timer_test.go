package sonar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMillimeters(t *testing.T) {
	tests := []struct {
		name  string
		width uint64
		tick  time.Duration
		speed uint32
		want  Distance
	}{
		{"zero width", 0, 10 * time.Microsecond, 343, 0},
		{"fifty ticks of 10us", 50, 10 * time.Microsecond, 343, 86},
		{"one metre round trip", 5831, time.Microsecond, 343, 1000},
		{"exact half rounds up", 1, time.Microsecond, 1000, 1},
		{"just under half rounds down", 1, 999 * time.Nanosecond, 1000, 0},
		{"clamped", 1 << 40, time.Second, 343, Distance(1<<31 - 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Millimeters(tt.width, tt.tick, tt.speed))
		})
	}
}

func TestWidthFor(t *testing.T) {
	assert.Equal(t, uint64(50), WidthFor(86, 10*time.Microsecond, 343))
	assert.Equal(t, uint64(0), WidthFor(NoReading, 10*time.Microsecond, 343))
	assert.Equal(t, uint64(0), WidthFor(100, 0, 343))
	assert.Equal(t, uint64(0), WidthFor(100, time.Microsecond, 0))

	for _, d := range []Distance{20, 300, 1200, 4000} {
		w := WidthFor(d, 10*time.Microsecond, DefaultSpeedOfSound)
		assert.InDelta(t, float64(d), float64(Millimeters(w, 10*time.Microsecond, DefaultSpeedOfSound)), 1, "distance %d", d)
	}
}

func TestMaxLoopsFor(t *testing.T) {
	// 50 ticks of start latency, 2332 for a 4m round trip, the garbage window and one spare.
	assert.Equal(t, 2388, MaxLoopsFor(4000, 10*time.Microsecond, 343, 5))
	assert.Equal(t, 0, MaxLoopsFor(4000, 0, 343, 5))
}

func TestDistanceString(t *testing.T) {
	assert.Equal(t, "NO_READING", NoReading.String())
	assert.Equal(t, "120mm", Distance(120).String())
	assert.False(t, NoReading.Valid())
	assert.True(t, Distance(0).Valid())
}
