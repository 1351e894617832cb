package sonar

import (
	"log/slog"

	"github.com/sweeney/sonar-array/internal/fsm"
	"github.com/sweeney/sonar-array/internal/gpio"
	"github.com/sweeney/sonar-array/internal/logging"
)

// pendingLimit caps the readings held between Drain calls; older ones are dropped.
const pendingLimit = 1024

// Machine measures each sensor of the array in turn, one tick per Step.
// It is not safe for concurrent use. Independent machines share no state.
type Machine struct {
	cfg  Config
	fsm  *fsm.Machine
	pins gpio.Pins
	log  *slog.Logger

	array   sensorArray
	meas    measurement
	results []Distance
	counts  []SensorCounts

	pending []Reading
	dropped uint64
}

// Option configures a Machine.
type Option func(*Machine)

// WithLogger sets the logger used for cycle diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.log = l
		}
	}
}

// New validates cfg and returns a machine positioned in Initial. On any
// configuration error no machine is returned.
func New(cfg Config, pins gpio.Pins, opts ...Option) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	m := &Machine{
		cfg:     cfg,
		pins:    pins,
		log:     logging.Discard(),
		array:   newSensorArray(cfg.TriggerPins, cfg.EchoPins),
		results: make([]Distance, cfg.NumPins),
		counts:  make([]SensorCounts, cfg.NumPins),
	}
	for _, opt := range opts {
		opt(m)
	}
	for i := range m.results {
		m.results[i] = NoReading
	}

	engine, err := fsm.New(cfg.ID, cfg.Name, m.states(), Initial)
	if err != nil {
		return nil, err
	}
	m.fsm = engine
	m.log = m.log.With("machine", cfg.Name, "id", cfg.ID)
	m.fsm.OnTransition(func(from, to fsm.StateID) {
		m.log.Debug("transition",
			"from", m.fsm.StateName(from),
			"to", m.fsm.StateName(to),
			"sensor", m.array.index,
			"tick", m.fsm.Ticks())
	})

	return m, nil
}

// Step advances the machine by exactly one tick.
func (m *Machine) Step() {
	m.fsm.Step()
}

// Distance returns the last published result for sensor i, or NoReading if
// none has been published or i is out of range.
func (m *Machine) Distance(i int) Distance {
	if i < 0 || i >= len(m.results) {
		return NoReading
	}
	return m.results[i]
}

// Distances returns a copy of the results table.
func (m *Machine) Distances() []Distance {
	out := make([]Distance, len(m.results))
	copy(out, m.results)
	return out
}

// Drain returns the readings published since the previous call, oldest first.
func (m *Machine) Drain() []Reading {
	if len(m.pending) == 0 {
		return nil
	}
	out := m.pending
	m.pending = nil
	return out
}

// Counts returns a copy of the per-sensor outcome counters.
func (m *Machine) Counts() []SensorCounts {
	out := make([]SensorCounts, len(m.counts))
	copy(out, m.counts)
	return out
}

// Dropped returns how many readings were discarded because Drain was not called.
func (m *Machine) Dropped() uint64 { return m.dropped }

// State returns the active state.
func (m *Machine) State() fsm.StateID { return m.fsm.Current() }

// StateName returns the name of the active state.
func (m *Machine) StateName() string { return m.fsm.CurrentName() }

// Index returns the active sensor index.
func (m *Machine) Index() int { return m.array.index }

// Width returns the pulse width accumulated so far in this cycle.
func (m *Machine) Width() uint64 { return m.meas.width }

// NumLoops returns the ticks spent waiting in this cycle.
func (m *Machine) NumLoops() uint64 { return m.meas.numLoops }

// Ticks returns the number of Step calls made so far.
func (m *Machine) Ticks() uint64 { return m.fsm.Ticks() }

// Revolutions returns the number of completed passes over every sensor.
func (m *Machine) Revolutions() uint64 { return m.array.revolutions }

// NumPins returns the number of sensors.
func (m *Machine) NumPins() int { return m.array.len() }

// Config returns the effective configuration, defaults applied.
func (m *Machine) Config() Config {
	cfg := m.cfg
	cfg.TriggerPins = append([]int(nil), m.cfg.TriggerPins...)
	cfg.EchoPins = append([]int(nil), m.cfg.EchoPins...)
	return cfg
}

// DOT renders the state table in Graphviz DOT.
func (m *Machine) DOT() string { return m.fsm.DOT() }
