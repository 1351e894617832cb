package gpio

// Echo describes a simulated sensor's response to a trigger pulse, counted in
// reads of its echo pin. A zero Width models a disconnected sensor.
type Echo struct {
	Delay int
	Width int
}

type simLine struct {
	profile Echo
	armed   bool
	reads   int
}

func (l *simLine) read() bool {
	if !l.armed {
		return false
	}
	l.reads++
	switch {
	case l.profile.Width <= 0:
		return false
	case l.reads <= l.profile.Delay:
		return false
	case l.reads <= l.profile.Delay+l.profile.Width:
		return true
	default:
		l.armed = false
		return false
	}
}

// SimPins emulates ultrasonic sensors: a high-to-low edge on a trigger pin
// starts the scripted response of every sensor wired to it. Sensors sharing
// an echo line drive it high together. It is not safe for concurrent use.
type SimPins struct {
	level  map[int]bool
	byTrig map[int][]*simLine
	byEcho map[int][]*simLine
	Pulses int
}

// NewSimPins pairs trigger[i] with echo[i]. Both slices must be the same length.
func NewSimPins(trigger, echo []int) *SimPins {
	s := &SimPins{
		level:  make(map[int]bool),
		byTrig: make(map[int][]*simLine),
		byEcho: make(map[int][]*simLine),
	}
	for i := range trigger {
		l := &simLine{}
		s.byTrig[trigger[i]] = append(s.byTrig[trigger[i]], l)
		s.byEcho[echo[i]] = append(s.byEcho[echo[i]], l)
	}
	return s
}

// SetEcho sets the response of the sensors on echo pin. It takes effect on
// the next trigger pulse.
func (s *SimPins) SetEcho(pin int, e Echo) {
	for _, l := range s.byEcho[pin] {
		l.profile = e
	}
}

// WritePin records the level and arms the wired echoes on a falling edge.
func (s *SimPins) WritePin(pin int, high bool) {
	prev := s.level[pin]
	s.level[pin] = high
	if !prev || high {
		return
	}
	lines, ok := s.byTrig[pin]
	if !ok {
		return
	}
	for _, l := range lines {
		l.armed = true
		l.reads = 0
	}
	s.Pulses++
}

// ReadPin returns the simulated echo level.
func (s *SimPins) ReadPin(pin int) bool {
	high := false
	for _, l := range s.byEcho[pin] {
		if l.read() {
			high = true
		}
	}
	return high
}

// Level returns the last level written to pin.
func (s *SimPins) Level(pin int) bool {
	return s.level[pin]
}

// Close is a no-op.
func (s *SimPins) Close() error {
	return nil
}
