package plugin

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"tangle/engine"
	"tangle/event"
)

// Stats counts event traffic and exposes entity totals. It never mutates
// the graph; Log dumps a summary through zap on demand.
type Stats struct {
	log *zap.Logger
	eng *engine.Engine
	sub int

	eventCounts map[event.Type]int
	totalEvents int
}

// NewStats returns a collector logging through log (nil means nop).
func NewStats(log *zap.Logger) *Stats {
	if log == nil {
		log = zap.NewNop()
	}
	return &Stats{log: log, eventCounts: make(map[event.Type]int)}
}

func (s *Stats) Name() string { return "stats" }

func (s *Stats) Attach(e *engine.Engine) error {
	if s.eng != nil {
		return errors.New("stats already attached")
	}
	s.eng = e
	s.sub = e.Bus().Subscribe(func(ev event.Event) {
		s.eventCounts[ev.Type]++
		s.totalEvents++
	})
	return nil
}

func (s *Stats) Detach() {
	if s.eng == nil {
		return
	}
	s.eng.Bus().Unsubscribe(s.sub)
	s.eng = nil
}

// EventCount returns how many events of one type were observed.
func (s *Stats) EventCount(t event.Type) int {
	return s.eventCounts[t]
}

// TotalEvents returns the total observed event count.
func (s *Stats) TotalEvents() int {
	return s.totalEvents
}

// Nodes returns the live node count, zero when detached.
func (s *Stats) Nodes() int {
	if s.eng == nil {
		return 0
	}
	return s.eng.Graph().NodeCount()
}

// Connections returns the live connection count, zero when detached.
func (s *Stats) Connections() int {
	if s.eng == nil {
		return 0
	}
	return s.eng.Graph().ConnectionCount()
}

// Log writes a summary line.
func (s *Stats) Log() {
	s.log.Info("diagram stats",
		zap.Int("nodes", s.Nodes()),
		zap.Int("connections", s.Connections()),
		zap.Int("events", s.totalEvents))
}
