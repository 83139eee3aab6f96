package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tangle/config"
	"tangle/engine"
	"tangle/event"
	"tangle/geom"
	"tangle/graph"
)

func newPluginEngine(t *testing.T) *engine.Engine {
	t.Helper()
	cfg := config.Default()
	cfg.GridSnap = 0
	cfg.Autopan.Interval = config.Duration{}
	e := engine.New(cfg)
	t.Cleanup(e.Close)
	return e
}

func addBox(t *testing.T, e *engine.Engine, id string, x, y float64) {
	t.Helper()
	require.NoError(t, e.Graph().AddNode(&graph.Node{
		ID:       id,
		Position: geom.Pt(x, y),
		Size:     geom.Size{Width: 100, Height: 50},
	}))
}

func TestPluginInterfaces(t *testing.T) {
	var _ Plugin = NewMinimap(geom.Size{})
	var _ Plugin = NewStats(nil)
	var _ Plugin = NewLOD()
}

func TestMinimap_ProjectsBoxesUniformly(t *testing.T) {
	e := newPluginEngine(t)
	m := NewMinimap(geom.Size{Width: 200, Height: 100})
	require.NoError(t, m.Attach(e))
	defer m.Detach()

	addBox(t, e, "a", 0, 0)
	addBox(t, e, "b", 300, 100)

	model := m.Model()
	require.Len(t, model.Boxes, 2)

	// Content is 400x150 plus 10 margin each side: 420x170. The tighter
	// axis wins, so scale = 200/420.
	scale := 200.0 / 420.0
	a := model.Boxes[0]
	assert.Equal(t, "a", a.NodeID)
	assert.InDelta(t, 10*scale, a.Rect.Min.X, 1e-9)
	assert.InDelta(t, 10*scale, a.Rect.Min.Y, 1e-9)
	assert.InDelta(t, 110*scale, a.Rect.Max.X, 1e-9)

	// Every box sits inside the projected content.
	for _, box := range model.Boxes {
		assert.True(t, model.Content.ContainsRect(box.Rect))
	}
}

func TestMinimap_RebuildsLazilyOnEvents(t *testing.T) {
	e := newPluginEngine(t)
	m := NewMinimap(geom.Size{Width: 200, Height: 100})
	require.NoError(t, m.Attach(e))

	addBox(t, e, "a", 0, 0)
	first := m.Model()
	require.Len(t, first.Boxes, 1)

	again := m.Model()
	assert.Equal(t, first, again, "no events, no rebuild")

	addBox(t, e, "b", 300, 100)
	assert.Len(t, m.Model().Boxes, 2)

	e.Graph().SelectNode("b", graph.SelectReplace)
	model := m.Model()
	assert.True(t, model.Boxes[1].Selected)
	assert.False(t, model.Boxes[0].Selected)
}

func TestMinimap_SkipsHiddenNodes(t *testing.T) {
	e := newPluginEngine(t)
	m := NewMinimap(geom.Size{Width: 200, Height: 100})
	require.NoError(t, m.Attach(e))

	addBox(t, e, "a", 0, 0)
	addBox(t, e, "b", 300, 100)
	e.Graph().SetNodeVisible("b", false)

	model := m.Model()
	require.Len(t, model.Boxes, 1)
	assert.Equal(t, "a", model.Boxes[0].NodeID)
}

func TestMinimap_EmptyGraph(t *testing.T) {
	e := newPluginEngine(t)
	m := NewMinimap(geom.Size{Width: 200, Height: 100})
	require.NoError(t, m.Attach(e))
	assert.Empty(t, m.Model().Boxes)
}

func TestMinimap_DoubleAttachIsAnError(t *testing.T) {
	e := newPluginEngine(t)
	m := NewMinimap(geom.Size{Width: 200, Height: 100})
	require.NoError(t, m.Attach(e))
	assert.Error(t, m.Attach(e))

	m.Detach()
	m.Detach() // safe when already detached
	require.NoError(t, m.Attach(e))
}

func TestStats_CountsEvents(t *testing.T) {
	e := newPluginEngine(t)
	s := NewStats(nil)
	require.NoError(t, s.Attach(e))
	defer s.Detach()

	addBox(t, e, "a", 0, 0)
	addBox(t, e, "b", 300, 0)
	e.Graph().SetNodePosition("a", geom.Pt(50, 50))
	e.Graph().RemoveNode("b")

	assert.Equal(t, 2, s.EventCount(event.NodeAdded))
	assert.Equal(t, 1, s.EventCount(event.NodeMoved))
	assert.Equal(t, 1, s.EventCount(event.NodeRemoved))
	assert.Equal(t, 4, s.TotalEvents())
	assert.Equal(t, 1, s.Nodes())
	assert.Equal(t, 0, s.Connections())

	s.Log() // nop logger; must not panic
}

func TestStats_DetachedReportsZero(t *testing.T) {
	s := NewStats(nil)
	assert.Equal(t, 0, s.Nodes())
	assert.Equal(t, 0, s.Connections())
}

func TestLOD_TracksZoomThresholds(t *testing.T) {
	e := newPluginEngine(t)
	l := NewLOD()
	require.NoError(t, l.Attach(e))
	defer l.Detach()

	assert.Equal(t, DetailFull, l.Level(), "zoom 1 starts at full detail")

	e.Viewport().ZoomTo(0.5)
	assert.Equal(t, DetailBody, l.Level())

	e.Viewport().ZoomTo(0.2)
	assert.Equal(t, DetailDot, l.Level())

	e.Viewport().ZoomTo(3)
	assert.Equal(t, DetailFull, l.Level())
}

func TestLOD_StopsTrackingAfterDetach(t *testing.T) {
	e := newPluginEngine(t)
	l := NewLOD()
	require.NoError(t, l.Attach(e))
	l.Detach()

	e.Viewport().ZoomTo(0.2)
	assert.Equal(t, DetailFull, l.Level(), "the detached reporter keeps its last level")
}
