// Package status provides a thread-safe status tracker for the sonar-array daemon.
// It is written by the run loop and read by HTTP handlers and MQTT heartbeats.
package status

import (
	"sort"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/sweeney/sonar-array/internal/sonar"
)

// NetworkInfo contains network state as reported by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Name         string
	ID           int
	TriggerPins  []int
	EchoPins     []int
	TickUs       int64
	MaxLoops     int
	GarbageTicks int
	HeartbeatMs  int64
	Broker       string
	HTTPAddr     string
}

// Sensor is the latest state of one sensor.
type Sensor struct {
	Index      int
	TriggerPin int
	EchoPin    int
	Distance   sonar.Distance
	Status     sonar.Status
	UpdatedAt  time.Time
	Counts     sonar.SensorCounts
}

// Machine is the cycle position of the state machine.
type Machine struct {
	State        string
	ActiveSensor int
	Ticks        uint64
	Revolutions  uint64
	Dropped      uint64
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Machine       Machine
	Sensors       []Sensor
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Ready reports whether every sensor has completed at least one cycle.
func (s Snapshot) Ready() bool {
	if len(s.Sensors) == 0 {
		return false
	}
	for _, sn := range s.Sensors {
		if sn.Status == "" {
			return false
		}
	}
	return true
}

// Tracker holds mutable daemon state. Sensor rows live in a concurrent map
// keyed by index; everything else is behind an RWMutex.
type Tracker struct {
	sensors *xsync.MapOf[int, Sensor]
	n       int

	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
// A row is created for every configured sensor, initially without a reading.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	t := &Tracker{
		sensors: xsync.NewMapOf[int, Sensor](),
		n:       len(cfg.TriggerPins),
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
	for i := 0; i < t.n; i++ {
		s := Sensor{Index: i, TriggerPin: cfg.TriggerPins[i], Distance: sonar.NoReading}
		if i < len(cfg.EchoPins) {
			s.EchoPin = cfg.EchoPins[i]
		}
		t.sensors.Store(i, s)
	}
	return t
}

// Record stores a published reading.
func (t *Tracker) Record(r sonar.Reading) {
	t.sensors.Compute(r.Sensor, func(s Sensor, loaded bool) (Sensor, bool) {
		if !loaded {
			s = Sensor{Index: r.Sensor}
		}
		s.Distance = r.Distance
		s.Status = r.Status
		s.UpdatedAt = r.Timestamp
		return s, false
	})
}

// SetCounts stores per-sensor outcome counters, indexed by sensor.
func (t *Tracker) SetCounts(counts []sonar.SensorCounts) {
	for i, c := range counts {
		c := c
		t.sensors.Compute(i, func(s Sensor, loaded bool) (Sensor, bool) {
			if !loaded {
				s = Sensor{Index: i, Distance: sonar.NoReading}
			}
			s.Counts = c
			return s, false
		})
	}
}

// Distance returns the latest distance of sensor i.
func (t *Tracker) Distance(i int) sonar.Distance {
	s, ok := t.sensors.Load(i)
	if !ok {
		return sonar.NoReading
	}
	return s.Distance
}

// SetMachine sets the state machine's cycle position.
func (t *Tracker) SetMachine(m Machine) {
	t.mu.Lock()
	t.snap.Machine = m
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()

	s.Sensors = make([]Sensor, 0, t.sensors.Size())
	t.sensors.Range(func(_ int, sn Sensor) bool {
		s.Sensors = append(s.Sensors, sn)
		return true
	})
	sort.Slice(s.Sensors, func(i, j int) bool { return s.Sensors[i].Index < s.Sensors[j].Index })

	s.Now = t.now()
	return s
}
