package plugin

import (
	"github.com/pkg/errors"

	"tangle/engine"
	"tangle/event"
)

// DetailLevel is how much of a node a renderer should draw at the current
// zoom.
type DetailLevel int

const (
	// DetailFull draws body, ports and labels.
	DetailFull DetailLevel = iota
	// DetailBody draws the body only.
	DetailBody
	// DetailDot collapses the node to a marker.
	DetailDot
)

// LOD derives a detail level from the viewport zoom. It only reports; the
// renderer decides what to do with the answer, and the graph is never
// touched.
type LOD struct {
	// FullAbove and BodyAbove are the zoom thresholds. Defaults: full at
	// zoom >= 0.75, body at zoom >= 0.3, dots below.
	FullAbove float64
	BodyAbove float64

	eng   *engine.Engine
	sub   int
	level DetailLevel
}

// NewLOD returns a level-of-detail reporter with default thresholds.
func NewLOD() *LOD {
	return &LOD{FullAbove: 0.75, BodyAbove: 0.3}
}

func (l *LOD) Name() string { return "lod" }

func (l *LOD) Attach(e *engine.Engine) error {
	if l.eng != nil {
		return errors.New("lod already attached")
	}
	l.eng = e
	l.recompute()
	l.sub = e.Bus().Subscribe(func(ev event.Event) {
		if ev.Type == event.ViewportChanged {
			l.recompute()
		}
	})
	return nil
}

func (l *LOD) Detach() {
	if l.eng == nil {
		return
	}
	l.eng.Bus().Unsubscribe(l.sub)
	l.eng = nil
}

// Level returns the current detail level.
func (l *LOD) Level() DetailLevel {
	return l.level
}

func (l *LOD) recompute() {
	zoom := l.eng.Viewport().Zoom()
	switch {
	case zoom >= l.FullAbove:
		l.level = DetailFull
	case zoom >= l.BodyAbove:
		l.level = DetailBody
	default:
		l.level = DetailDot
	}
}
