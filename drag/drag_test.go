package drag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tangle/geom"
	"tangle/view"
)

// testRig is a manager with a host-driven tick (no internal timer) over an
// 800x600 viewport at zoom 1.
func testRig() (*Manager, *view.Viewport) {
	vp := view.New(0.1, 4, 50)
	m := NewManager(vp, Options{EdgePadding: 40, Speed: 10})
	return m, vp
}

// tracked accumulates OnMove deltas the way a delta-positioned element would.
type tracked struct {
	pos       geom.Point
	ended     int
	cancelled int
}

func (tr *tracked) callbacks(glued bool) Callbacks {
	return Callbacks{
		GluedToPointer: glued,
		OnMove:         func(delta, _ geom.Point) { tr.pos = tr.pos.Add(delta) },
		OnEnd:          func() { tr.ended++ },
		OnCancel:       func() { tr.cancelled++ },
	}
}

func TestStart_AcquiresExclusiveLock(t *testing.T) {
	m, _ := testRig()
	require.True(t, m.Start(1, geom.Pt(400, 300), Callbacks{}))
	assert.False(t, m.Start(2, geom.Pt(0, 0), Callbacks{}), "the canvas lock is held")
	assert.True(t, m.Active())

	m.End()
	assert.False(t, m.Active())
	assert.True(t, m.Start(2, geom.Pt(0, 0), Callbacks{}), "the lock is free again")
}

func TestUpdate_AppliesGraphSpaceDeltas(t *testing.T) {
	m, vp := testRig()
	vp.Set(geom.Pt(100, 0), 2)
	var tr tracked
	require.True(t, m.Start(1, geom.Pt(400, 300), tr.callbacks(false)))

	m.Update(1, geom.Pt(420, 290))
	// 20 screen px right, 10 up, at zoom 2: graph delta (10, -5).
	assert.Equal(t, geom.Pt(10, -5), tr.pos)
}

func TestUpdate_IgnoresForeignPointerAndIdle(t *testing.T) {
	m, _ := testRig()
	var tr tracked
	m.Update(1, geom.Pt(10, 10))
	assert.Equal(t, geom.Point{}, tr.pos, "updates outside a drag are dropped")

	require.True(t, m.Start(1, geom.Pt(400, 300), tr.callbacks(false)))
	m.Update(2, geom.Pt(0, 0))
	assert.Equal(t, geom.Point{}, tr.pos, "a different pointer cannot steer the drag")
}

func TestEndAndCancel_FireOnceAndRecordOutcome(t *testing.T) {
	m, _ := testRig()
	var tr tracked

	require.True(t, m.Start(1, geom.Pt(400, 300), tr.callbacks(false)))
	m.End()
	m.End()
	m.Cancel()
	assert.Equal(t, 1, tr.ended)
	assert.Equal(t, 0, tr.cancelled, "terminal transitions fire exactly once")
	assert.Equal(t, Ended, m.Outcome())
	assert.Equal(t, Idle, m.State())

	require.True(t, m.Start(1, geom.Pt(400, 300), tr.callbacks(false)))
	m.Cancel()
	m.Cancel()
	assert.Equal(t, 1, tr.cancelled)
	assert.Equal(t, Cancelled, m.Outcome())
}

func TestTick_PansAndAccumulatesPendingForDeltaElements(t *testing.T) {
	m, vp := testRig()
	var tr tracked
	require.True(t, m.Start(1, geom.Pt(400, 300), tr.callbacks(false)))

	// Push into the left edge band.
	m.Update(1, geom.Pt(5, 300))
	moved := tr.pos

	m.Tick()
	assert.Equal(t, geom.Pt(10, 0), vp.Pan(), "the content pans away from the pressed edge")
	assert.Equal(t, moved, tr.pos, "a delta element does not move during the pan")
	assert.Equal(t, geom.Pt(-10, 0), m.Pending())

	m.Tick()
	assert.Equal(t, geom.Pt(20, 0), vp.Pan())
	assert.Equal(t, geom.Pt(-20, 0), m.Pending())
}

func TestTick_DrainsPendingOutsideTheBand(t *testing.T) {
	m, vp := testRig()
	var tr tracked
	require.True(t, m.Start(1, geom.Pt(400, 300), tr.callbacks(false)))
	m.Update(1, geom.Pt(5, 300))
	m.Tick()
	require.Equal(t, geom.Pt(-10, 0), m.Pending())

	// Back in the quiet zone the offset feeds out gradually.
	m.Update(1, geom.Pt(400, 300))
	before := tr.pos
	panBefore := vp.Pan()

	m.Tick()
	assert.Equal(t, geom.Pt(-5, 0), m.Pending(), "half the offset per tick")
	assert.Equal(t, before.Add(geom.Pt(-5, 0)), tr.pos)
	assert.Equal(t, panBefore, vp.Pan(), "draining never pans")

	for i := 0; i < 20; i++ {
		m.Tick()
	}
	assert.Equal(t, geom.Point{}, m.Pending(), "the tail is consumed whole once small")
}

func TestTick_GluedElementFollowsThePan(t *testing.T) {
	m, vp := testRig()
	var tr tracked
	require.True(t, m.Start(1, geom.Pt(400, 300), tr.callbacks(true)))
	m.Update(1, geom.Pt(795, 300))
	moved := tr.pos

	m.Tick()
	assert.Equal(t, geom.Pt(-10, 0), vp.Pan())
	assert.Equal(t, moved.Add(geom.Pt(10, 0)), tr.pos, "the glued element rides along")
	assert.Equal(t, geom.Point{}, m.Pending(), "glued sessions never bank an offset")
}

func TestTick_CornerPansDiagonally(t *testing.T) {
	m, vp := testRig()
	require.True(t, m.Start(1, geom.Pt(400, 300), Callbacks{GluedToPointer: true}))
	m.Update(1, geom.Pt(5, 5))
	m.Tick()
	assert.Equal(t, geom.Pt(10, 10), vp.Pan())
}

func TestTick_NoAutopanSessionsNeverPan(t *testing.T) {
	m, vp := testRig()
	require.True(t, m.Start(1, geom.Pt(400, 300), Callbacks{NoAutopan: true}))
	m.Update(1, geom.Pt(5, 5))
	m.Tick()
	assert.Equal(t, geom.Point{}, vp.Pan())
}

func TestTick_OutsideADragDoesNothing(t *testing.T) {
	m, vp := testRig()
	m.Tick()
	assert.Equal(t, geom.Point{}, vp.Pan())
}

func TestCancel_ResetsPending(t *testing.T) {
	m, _ := testRig()
	var tr tracked
	require.True(t, m.Start(1, geom.Pt(400, 300), tr.callbacks(false)))
	m.Update(1, geom.Pt(5, 300))
	m.Tick()
	require.NotEqual(t, geom.Point{}, m.Pending())

	m.Cancel()
	assert.Equal(t, geom.Point{}, m.Pending())
	assert.Equal(t, 1, tr.cancelled)
}

func TestClose_CancelsAndRejectsFutureStarts(t *testing.T) {
	m, _ := testRig()
	var tr tracked
	require.True(t, m.Start(1, geom.Pt(400, 300), tr.callbacks(false)))

	m.Close()
	assert.Equal(t, 1, tr.cancelled, "an in-flight drag is cancelled on close")
	assert.False(t, m.Start(1, geom.Pt(0, 0), Callbacks{}))

	// Closing an idle manager is also fine.
	m.Close()
}

func TestCallbacks_MayReenterTheManager(t *testing.T) {
	m, vp := testRig()
	// The viewport change hook stands in for a bus subscriber reading drag
	// state while an autopan tick is panning the camera.
	changes := 0
	vp.OnChange(func() {
		changes++
		assert.Equal(t, Dragging, m.State())
	})
	var pos geom.Point
	cb := Callbacks{
		GluedToPointer: true,
		OnMove: func(delta, _ geom.Point) {
			pos = pos.Add(delta)
			assert.True(t, m.Active())
			assert.Equal(t, geom.Point{}, m.Pending())
		},
	}
	require.True(t, m.Start(1, geom.Pt(400, 300), cb))
	m.Update(1, geom.Pt(410, 300))
	m.Update(1, geom.Pt(5, 300))
	m.Tick()

	assert.Equal(t, 1, changes)
	assert.Equal(t, geom.Pt(10, 0), vp.Pan())
	assert.Equal(t, geom.Pt(-405, 0), pos)
	m.End()
}
