package route

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tangle/event"
	"tangle/geom"
	"tangle/graph"
)

// routeFixture is a store with two connectable nodes and a path engine over
// it. Left node "a" has an output on its right edge, right node "b" an input
// on its left edge.
func routeFixture(t *testing.T) (*graph.Store, *Engine) {
	t.Helper()
	s := graph.NewStore(event.NewBus(), graph.Options{})
	require.NoError(t, s.AddNode(&graph.Node{
		ID:       "a",
		Position: geom.Pt(0, 0),
		Size:     geom.Size{Width: 100, Height: 50},
		Outputs:  []graph.Port{{ID: "out", Direction: graph.Output, Anchor: geom.Pt(1, 0.5)}},
	}))
	require.NoError(t, s.AddNode(&graph.Node{
		ID:       "b",
		Position: geom.Pt(300, 0),
		Size:     geom.Size{Width: 100, Height: 50},
		Inputs:   []graph.Port{{ID: "in", Direction: graph.Input, Anchor: geom.Pt(0, 0.5), AllowMultiple: true}},
	}))
	return s, NewEngine(s)
}

func connect(t *testing.T, s *graph.Store, id string, style graph.RoutingStyle) {
	t.Helper()
	require.NoError(t, s.AddConnection(&graph.Connection{
		ID: id, SourceNode: "a", SourcePort: "out", TargetNode: "b", TargetPort: "in", Style: style,
	}))
}

func TestPathFor_Straight(t *testing.T) {
	s, e := routeFixture(t)
	connect(t, s, "c", graph.RouteStraight)

	p, ok := e.PathFor("c")
	require.True(t, ok)
	assert.Equal(t, []geom.Point{{X: 100, Y: 25}, {X: 300, Y: 25}}, p.Points)
	require.Len(t, p.Segments, 1)
	assert.Equal(t, geom.Pt(100, 25), p.Bounds.Min)
	assert.Equal(t, geom.Pt(300, 25), p.Bounds.Max)
}

func TestPathFor_UnknownConnection(t *testing.T) {
	_, e := routeFixture(t)
	_, ok := e.PathFor("ghost")
	assert.False(t, ok)
	assert.Empty(t, e.CachedIDs())
}

func TestPathFor_BezierEndsAtPortAnchors(t *testing.T) {
	s, e := routeFixture(t)
	connect(t, s, "c", graph.RouteBezier)

	p, ok := e.PathFor("c")
	require.True(t, ok)
	require.GreaterOrEqual(t, len(p.Points), 2)
	assert.Equal(t, geom.Pt(100, 25), p.Points[0])
	assert.Equal(t, geom.Pt(300, 25), p.Points[len(p.Points)-1])
	assert.Equal(t, len(p.Points)-1, len(p.Segments))
}

func TestPathFor_StepIsOrthogonal(t *testing.T) {
	s, e := routeFixture(t)
	// Offset b vertically so the elbow is visible.
	s.SetNodePosition("b", geom.Pt(300, 200))
	connect(t, s, "c", graph.RouteStep)

	p, ok := e.PathFor("c")
	require.True(t, ok)
	assert.Equal(t, geom.Pt(100, 25), p.Points[0])
	assert.Equal(t, geom.Pt(300, 225), p.Points[len(p.Points)-1])
	for _, seg := range p.Segments {
		axisAligned := seg.A.X == seg.B.X || seg.A.Y == seg.B.Y
		assert.True(t, axisAligned, "step segments are horizontal or vertical")
	}
	// The elbow splits at the horizontal midpoint of the source direction.
	assert.Contains(t, p.Points, geom.Pt(200, 25))
	assert.Contains(t, p.Points, geom.Pt(200, 225))
}

func TestPathFor_SmoothStepStaysNearStepRoute(t *testing.T) {
	s, e := routeFixture(t)
	s.SetNodePosition("b", geom.Pt(300, 200))
	connect(t, s, "c", graph.RouteSmoothStep)

	p, ok := e.PathFor("c")
	require.True(t, ok)
	assert.Equal(t, geom.Pt(100, 25), p.Points[0])
	assert.Equal(t, geom.Pt(300, 225), p.Points[len(p.Points)-1])
	// Rounded corners never leave the step route's bounding box.
	box := geom.RectFromPoints(geom.Pt(100, 25), geom.Pt(300, 225))
	for _, pt := range p.Points {
		assert.True(t, box.Contains(pt))
	}
	// The sharp corner itself is cut off.
	assert.NotContains(t, p.Points, geom.Pt(200, 25))
}

func TestPathFor_ControlPointsOverrideStyle(t *testing.T) {
	s, e := routeFixture(t)
	connect(t, s, "c", graph.RouteBezier)
	require.NoError(t, s.AddControlPoint("c", 0, geom.Pt(200, 150)))
	e.Invalidate("c")

	p, ok := e.PathFor("c")
	require.True(t, ok)
	assert.Equal(t, []geom.Point{{X: 100, Y: 25}, {X: 200, Y: 150}, {X: 300, Y: 25}}, p.Points)
	require.Len(t, p.Segments, 2)
}

func TestPathFor_ClearingControlPointsRevertsToStyle(t *testing.T) {
	s, e := routeFixture(t)
	connect(t, s, "c", graph.RouteStraight)

	base, _ := e.PathFor("c")
	require.NoError(t, s.AddControlPoint("c", 0, geom.Pt(200, 150)))
	e.Invalidate("c")
	detour, _ := e.PathFor("c")
	assert.NotEqual(t, base.Points, detour.Points)

	require.NoError(t, s.ClearControlPoints("c"))
	e.Invalidate("c")
	reverted, _ := e.PathFor("c")
	assert.Equal(t, base.Points, reverted.Points)
}

func TestPathFor_CachesUntilInvalidated(t *testing.T) {
	s, e := routeFixture(t)
	connect(t, s, "c", graph.RouteStraight)

	first, _ := e.PathFor("c")
	again, _ := e.PathFor("c")
	assert.Same(t, first, again, "a cache hit returns the stored path")

	s.SetNodePosition("a", geom.Pt(0, 100))
	stale, _ := e.PathFor("c")
	assert.Same(t, first, stale, "without invalidation the cache is served stale")

	e.InvalidateNode("a")
	fresh, _ := e.PathFor("c")
	assert.NotEqual(t, first.Points, fresh.Points)
	assert.Equal(t, geom.Pt(100, 125), fresh.Points[0])
}

func TestInvalidateNode_DropsAllIncidentPaths(t *testing.T) {
	s, e := routeFixture(t)
	connect(t, s, "c1", graph.RouteStraight)
	connect(t, s, "c2", graph.RouteBezier)

	e.PathFor("c1")
	e.PathFor("c2")
	require.Len(t, e.CachedIDs(), 2)

	e.InvalidateNode("b")
	assert.Empty(t, e.CachedIDs())
}

func TestInvalidateAll(t *testing.T) {
	s, e := routeFixture(t)
	connect(t, s, "c", graph.RouteStraight)
	e.PathFor("c")
	e.InvalidateAll()
	assert.Empty(t, e.CachedIDs())
}

func TestPathFor_MissingPortFallsBackToNodeCenter(t *testing.T) {
	s, e := routeFixture(t)
	connect(t, s, "c", graph.RouteStraight)
	// Drop the ports after the connection exists; routing must degrade, not
	// fail.
	s.SetNodePorts("a", nil, nil)

	p, ok := e.PathFor("c")
	require.True(t, ok)
	assert.Equal(t, geom.Pt(50, 25), p.Points[0], "source anchor degrades to the node center")
}

func TestPathFor_CoincidentAnchorsYieldOneZeroLengthSegment(t *testing.T) {
	s := graph.NewStore(event.NewBus(), graph.Options{})
	require.NoError(t, s.AddNode(&graph.Node{
		ID:      "p",
		Outputs: []graph.Port{{ID: "out", Direction: graph.Output, Anchor: geom.Pt(0.5, 0.5)}},
		Inputs:  []graph.Port{{ID: "in", Direction: graph.Input, Anchor: geom.Pt(0.5, 0.5), AllowMultiple: true}},
	}))
	require.NoError(t, s.AddConnection(&graph.Connection{
		ID: "self", SourceNode: "p", SourcePort: "out", TargetNode: "p", TargetPort: "in",
		Style: graph.RouteStraight,
	}))

	e := NewEngine(s)
	p, ok := e.PathFor("self")
	require.True(t, ok)
	require.Len(t, p.Segments, 1)
	assert.Equal(t, p.Segments[0].A, p.Segments[0].B)
	assert.True(t, p.Bounds.IsEmpty())
}
