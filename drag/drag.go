// Package drag coordinates one exclusive drag operation at a time: a small
// state machine plus the edge-of-screen autopan timer. The manager owns the
// canvas lock, so a second Start while a drag is active is ignored, and it
// guarantees the timer is stopped whenever a session ends, cancels, or the
// manager is closed mid-drag.
package drag

import (
	"sync"
	"time"

	"tangle/geom"
	"tangle/view"
)

// State is the session lifecycle. Ended and Cancelled are terminal per
// session; the manager returns to Idle so the next drag can start.
type State int

const (
	Idle State = iota
	Dragging
	Ended
	Cancelled
)

// Callbacks connect a session to the element being dragged. Every callback
// runs after the manager lock is released, so callbacks and anything they
// reach through the event bus may call back into the manager.
type Callbacks struct {
	// OnMove applies a graph-space movement delta. pointer is the current
	// pointer position in graph space.
	OnMove func(delta, pointer geom.Point)
	// OnEnd commits the final position.
	OnEnd func()
	// OnCancel rolls back or discards the drag.
	OnCancel func()
	// GluedToPointer marks elements that track the pointer position
	// directly. For those, leaving the autopan band needs no drain since
	// the next Update snaps them. Elements positioned by accumulated
	// deltas consume the pending autopan offset gradually instead.
	GluedToPointer bool
	// NoAutopan opts a session out of edge panning entirely; used by
	// canvas pan drags, where the pointer is already moving the camera.
	NoAutopan bool
}

// Options tune autopan.
type Options struct {
	// EdgePadding is the screen-px band at each viewport edge that
	// activates autopan.
	EdgePadding float64
	// Speed is the pan distance per tick, in screen px.
	Speed float64
	// Interval is the tick period. Zero disables the internal timer;
	// the host then drives ticks via Tick.
	Interval time.Duration
	// Dispatch hops a tick onto the host's event loop. Nil runs ticks
	// inline on the timer goroutine.
	Dispatch func(func())
}

// Manager runs drag sessions. All exported methods are safe to call from
// the timer goroutine and the host loop.
type Manager struct {
	mu       sync.Mutex
	viewport *view.Viewport
	opts     Options

	state      State
	outcome    State // Ended or Cancelled after the most recent session
	pointerID  int
	cb         Callbacks
	lastScreen geom.Point
	pending    geom.Point // autopan offset not yet consumed by a delta-tracked element

	stopTick chan struct{}
	closed   bool
}

// NewManager returns an idle manager panning the given viewport.
func NewManager(vp *view.Viewport, opts Options) *Manager {
	return &Manager{viewport: vp, opts: opts}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Active reports whether a drag is in flight.
func (m *Manager) Active() bool {
	return m.State() == Dragging
}

// Outcome returns how the most recent session finished: Ended, Cancelled,
// or Idle when none has run yet.
func (m *Manager) Outcome() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outcome
}

// Start begins a drag for the given pointer at a screen position. It
// acquires the canvas lock; a Start while another drag is active, or after
// Close, is an ignored no-op and returns false.
func (m *Manager) Start(pointerID int, screen geom.Point, cb Callbacks) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.state == Dragging {
		return false
	}
	m.state = Dragging
	m.pointerID = pointerID
	m.cb = cb
	m.lastScreen = screen
	m.pending = geom.Point{}
	return true
}

// Update applies pointer movement. Updates outside a drag, or from a
// different pointer than the one that started it, are ignored.
func (m *Manager) Update(pointerID int, screen geom.Point) {
	m.mu.Lock()
	if m.state != Dragging || pointerID != m.pointerID {
		m.mu.Unlock()
		return
	}
	oldGraph := m.viewport.ScreenToGraph(m.lastScreen)
	newGraph := m.viewport.ScreenToGraph(screen)
	m.lastScreen = screen
	delta := newGraph.Sub(oldGraph)
	onMove := m.cb.OnMove
	if m.autopanDir() != (geom.Point{}) || m.needsDrain() {
		m.startTimerLocked()
	} else {
		m.stopTimerLocked()
	}
	m.mu.Unlock()
	if onMove != nil && (delta.X != 0 || delta.Y != 0) {
		onMove(delta, newGraph)
	}
}

// End commits the drag: stops the timer, releases the lock, fires OnEnd.
// No-op outside a drag.
func (m *Manager) End() {
	m.finish(Ended)
}

// Cancel aborts the drag with the same cleanup as End but signals
// cancellation. No-op outside a drag, so an End racing a deferred
// pointer-up safety net wins.
func (m *Manager) Cancel() {
	m.finish(Cancelled)
}

// Close cancels any in-flight drag and rejects future Starts. Disposal
// safety net for hosts tearing down mid-drag.
func (m *Manager) Close() {
	m.Cancel()
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

// Pending returns the autopan offset a delta-tracked element has not yet
// consumed. Exposed for tests and debug overlays.
func (m *Manager) Pending() geom.Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

// Tick advances autopan by one step: pan the viewport toward the edge the
// pointer is pressing against and keep the dragged element visually glued.
// Hosts without the internal timer call this from their own loop.
func (m *Manager) Tick() {
	m.mu.Lock()
	if m.state != Dragging {
		m.stopTimerLocked()
		m.mu.Unlock()
		return
	}
	// Decide under the lock, apply after releasing it: PanBy and OnMove
	// both fan out through the event bus, and a subscriber is allowed to
	// call back into the manager.
	var pan, move geom.Point
	var onMove func(delta, pointer geom.Point)
	if dir := m.autopanDir(); dir != (geom.Point{}) {
		screenDelta := dir.Scale(m.opts.Speed)
		// Content moves opposite to the pan direction.
		pan = screenDelta.Scale(-1)
		graphShift := screenDelta.Scale(1 / m.viewport.Zoom())
		if m.cb.GluedToPointer {
			onMove = m.cb.OnMove
			move = graphShift
		} else {
			m.pending = m.pending.Add(graphShift)
		}
	} else if m.needsDrain() {
		// Back in the quiet zone: feed the leftover offset to the element
		// a piece at a time instead of jumping.
		step := m.pending.Scale(0.5)
		if m.pending.Len() < 1 {
			step = m.pending
		}
		m.pending = m.pending.Sub(step)
		onMove = m.cb.OnMove
		move = step
		if !m.needsDrain() {
			m.stopTimerLocked()
		}
	} else {
		m.stopTimerLocked()
	}
	last := m.lastScreen
	m.mu.Unlock()
	if pan != (geom.Point{}) {
		m.viewport.PanBy(pan)
	}
	if onMove != nil {
		onMove(move, m.viewport.ScreenToGraph(last))
	}
}

func (m *Manager) finish(terminal State) {
	m.mu.Lock()
	if m.state != Dragging {
		m.mu.Unlock()
		return
	}
	m.stopTimerLocked()
	m.outcome = terminal
	cb := m.cb
	m.cb = Callbacks{}
	m.pending = geom.Point{}
	// Release the lock for the next session.
	m.state = Idle
	m.mu.Unlock()

	if terminal == Ended && cb.OnEnd != nil {
		cb.OnEnd()
	}
	if terminal == Cancelled && cb.OnCancel != nil {
		cb.OnCancel()
	}
}

// autopanDir returns the unit direction of edge pressure, or zero when the
// pointer is outside the padding band.
func (m *Manager) autopanDir() geom.Point {
	pad := m.opts.EdgePadding
	if pad <= 0 || m.cb.NoAutopan {
		return geom.Point{}
	}
	size := m.viewport.ScreenSize()
	var dir geom.Point
	if m.lastScreen.X < pad {
		dir.X = -1
	} else if m.lastScreen.X > size.Width-pad {
		dir.X = 1
	}
	if m.lastScreen.Y < pad {
		dir.Y = -1
	} else if m.lastScreen.Y > size.Height-pad {
		dir.Y = 1
	}
	return dir
}

func (m *Manager) needsDrain() bool {
	return !m.cb.GluedToPointer && (m.pending.X != 0 || m.pending.Y != 0)
}

// startTimerLocked spawns the autopan ticker once. Caller holds mu.
func (m *Manager) startTimerLocked() {
	if m.stopTick != nil || m.opts.Interval <= 0 {
		return
	}
	stop := make(chan struct{})
	m.stopTick = stop
	ticker := time.NewTicker(m.opts.Interval)
	dispatch := m.opts.Dispatch
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if dispatch != nil {
					dispatch(m.Tick)
				} else {
					m.Tick()
				}
			}
		}
	}()
}

// stopTimerLocked cancels the ticker if running. Caller holds mu.
func (m *Manager) stopTimerLocked() {
	if m.stopTick != nil {
		close(m.stopTick)
		m.stopTick = nil
	}
}
