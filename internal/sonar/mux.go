package sonar

// sensorArray owns the parallel trigger/echo pin lists and the active index.
type sensorArray struct {
	trigger []int
	echo    []int
	index   int

	revolutions uint64
}

func newSensorArray(trigger, echo []int) sensorArray {
	a := sensorArray{
		trigger: make([]int, len(trigger)),
		echo:    make([]int, len(echo)),
	}
	copy(a.trigger, trigger)
	copy(a.echo, echo)
	return a
}

func (a *sensorArray) len() int {
	return len(a.trigger)
}

// selectCurrent points the measurement at the active sensor's pins.
func (a *sensorArray) selectCurrent(m *measurement) {
	m.outputPin = a.trigger[a.index]
	m.inputPin = a.echo[a.index]
}

// advance moves to the next sensor, wrapping to 0.
func (a *sensorArray) advance() {
	a.index = (a.index + 1) % len(a.trigger)
	if a.index == 0 {
		a.revolutions++
	}
}
