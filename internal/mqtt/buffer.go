package mqtt

import (
	"log/slog"

	"github.com/sweeney/sonar-array/internal/sonar"
)

// backlog holds readings produced while the broker is unreachable. Once full,
// each new reading overwrites the oldest one.
// Not safe for concurrent use; the caller must synchronize.
type backlog struct {
	readings []sonar.Reading
	start    int // oldest reading
	n        int
	dropped  int // overwritten since the last take
	log      *slog.Logger
}

func newBacklog(capacity int, log *slog.Logger) *backlog {
	if log == nil {
		log = slog.Default()
	}
	return &backlog{
		readings: make([]sonar.Reading, capacity),
		log:      log,
	}
}

func (b *backlog) add(r sonar.Reading) {
	capacity := len(b.readings)
	if b.n < capacity {
		b.readings[(b.start+b.n)%capacity] = r
		b.n++
		return
	}
	if b.dropped == 0 {
		b.log.Warn("reading backlog full, dropping oldest", "capacity", capacity)
	}
	b.readings[b.start] = r
	b.start = (b.start + 1) % capacity
	b.dropped++
}

// take empties the backlog, returning its readings oldest first and the number
// of readings lost to overflow.
func (b *backlog) take() ([]sonar.Reading, int) {
	if b.n == 0 {
		return nil, 0
	}
	out := make([]sonar.Reading, b.n)
	for i := range out {
		out[i] = b.readings[(b.start+i)%len(b.readings)]
	}
	dropped := b.dropped
	b.start, b.n, b.dropped = 0, 0, 0
	return out, dropped
}

func (b *backlog) len() int {
	return b.n
}
