package sonar

import "github.com/sweeney/sonar-array/internal/fsm"

// states builds the cycle's state table. Timeouts are checked first in the
// waiting states so no sensor holds the array for more than MaxLoops ticks.
func (m *Machine) states() []fsm.State {
	return []fsm.State{
		Initial: {
			Name:   "Initial",
			OnExit: m.lowerTriggers,
			Transitions: []fsm.Transition{
				{Target: SetupMeasure, Guard: fsm.Always},
			},
		},
		SetupMeasure: {
			Name:     "SetupMeasure",
			OnEntry:  m.setup,
			Internal: m.driveTrigger,
			Transitions: []fsm.Transition{
				{Target: WaitForPulseStart, Guard: m.triggerDone},
			},
		},
		WaitForPulseStart: {
			Name: "Wait_For_Pulse_Start",
			Transitions: []fsm.Transition{
				{Target: SetupMeasure, Guard: m.timedOut, Action: m.noReading},
				{Target: WaitForPulseEnd, Guard: m.edgeTrusted},
				{Target: SkipGarbage, Guard: m.risingEdge},
			},
		},
		SkipGarbage: {
			Name:     "Skip_Garbage",
			OnEntry:  func() { m.meas.width = 1 },
			Internal: m.countWidth,
			Transitions: []fsm.Transition{
				{Target: SetupMeasure, Guard: m.timedOut, Action: m.noReading},
				{Target: WaitForPulseStart, Guard: m.echoLow, Action: m.rejectGarbage},
				{Target: WaitForPulseEnd, Guard: m.settled},
			},
		},
		WaitForPulseEnd: {
			Name:     "Wait_For_Pulse_End",
			OnEntry:  m.countWidth,
			Internal: m.countWidth,
			Transitions: []fsm.Transition{
				{Target: SetupMeasure, Guard: m.echoLow, Action: m.publish},
				{Target: SetupMeasure, Guard: m.timedOut, Action: m.noReading},
			},
		},
	}
}

func (m *Machine) lowerTriggers() {
	for _, p := range m.array.trigger {
		m.pins.WritePin(p, false)
	}
}

// setup selects the active sensor and resets the cycle's scratch state.
func (m *Machine) setup() {
	m.array.selectCurrent(&m.meas)
	m.meas.width = 0
	m.meas.numLoops = 0
	m.meas.phase = 0
	m.meas.triggered = false
	m.meas.sawLow = false
	m.pins.WritePin(m.meas.outputPin, false)
}

// driveTrigger raises the trigger on the first tick and lowers it once it
// has been held for TriggerHoldTicks.
func (m *Machine) driveTrigger() {
	switch {
	case m.meas.triggered:
	case m.meas.phase == 0:
		m.pins.WritePin(m.meas.outputPin, true)
	case m.meas.phase >= m.cfg.TriggerHoldTicks:
		m.pins.WritePin(m.meas.outputPin, false)
		m.meas.triggered = true
	}
	m.meas.phase++
}

func (m *Machine) triggerDone() bool {
	return m.meas.triggered
}

// poll samples the echo line at most once per tick. Every sample counts
// against the watchdog.
func (m *Machine) poll() bool {
	if t := m.fsm.Ticks(); m.meas.sampledAt != t {
		m.meas.sampledAt = t
		m.meas.level = m.pins.ReadPin(m.meas.inputPin)
		m.meas.numLoops++
		if !m.meas.level {
			m.meas.sawLow = true
		}
	}
	return m.meas.level
}

func (m *Machine) timedOut() bool {
	m.poll()
	return m.meas.numLoops >= uint64(m.cfg.MaxLoops)
}

// risingEdge reports a high sample that follows a low one taken since the
// trigger. A line already high when the wait begins is still carrying an
// earlier pulse and is waited out.
func (m *Machine) risingEdge() bool {
	return m.poll() && m.meas.sawLow
}

func (m *Machine) echoLow() bool {
	return !m.poll()
}

// edgeTrusted skips the garbage window when filtering is disabled.
func (m *Machine) edgeTrusted() bool {
	return m.risingEdge() && m.cfg.GarbageTicks <= 1
}

// settled reports that this tick's high sample completes the minimum
// credible width. Reached only while the line is high.
func (m *Machine) settled() bool {
	return m.meas.width+1 >= uint64(m.cfg.GarbageTicks)
}

func (m *Machine) countWidth() {
	m.meas.width++
}

func (m *Machine) rejectGarbage() {
	m.counts[m.array.index].Garbage++
	m.log.Debug("garbage pulse", "sensor", m.array.index, "width", m.meas.width)
	m.meas.width = 0
}

func (m *Machine) publish() {
	d := Millimeters(m.meas.width, m.cfg.TickDuration, m.cfg.SpeedOfSound)
	m.meas.distance = d
	m.counts[m.array.index].Readings++
	m.finish(d, StatusOK)
}

func (m *Machine) noReading() {
	m.meas.distance = NoReading
	m.counts[m.array.index].Timeouts++
	m.log.Debug("watchdog expired", "sensor", m.array.index, "numloops", m.meas.numLoops)
	m.finish(NoReading, StatusNoReading)
}

// finish records the result for the active sensor and advances the index.
func (m *Machine) finish(d Distance, st Status) {
	i := m.array.index
	m.results[i] = d

	width := m.meas.width
	if st != StatusOK {
		width = 0
	}
	if len(m.pending) >= pendingLimit {
		m.pending = m.pending[1:]
		m.dropped++
	}
	m.pending = append(m.pending, Reading{
		Sensor:   i,
		Distance: d,
		Width:    width,
		Status:   st,
		Tick:     m.fsm.Ticks(),
	})

	m.array.advance()
}
