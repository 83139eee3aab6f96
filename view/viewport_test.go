package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tangle/geom"
)

func newTestViewport() *Viewport {
	return New(0.1, 4, 50)
}

func TestTransform_RoundTripAcrossZoomRange(t *testing.T) {
	v := newTestViewport()
	points := []geom.Point{{}, {X: 100, Y: -50}, {X: -3.5, Y: 7.25}, {X: 1e4, Y: 1e4}}
	for _, zoom := range []float64{0.1, 0.5, 1, 2.5, 4} {
		v.Set(geom.Pt(33, -21), zoom)
		for _, p := range points {
			got := v.ScreenToGraph(v.GraphToScreen(p))
			assert.InDelta(t, p.X, got.X, 1e-9)
			assert.InDelta(t, p.Y, got.Y, 1e-9)
		}
	}
}

func TestZoomTo_AnchorsAtScreenCenter(t *testing.T) {
	v := newTestViewport()
	v.SetScreenSize(geom.Size{Width: 800, Height: 600})
	v.Set(geom.Pt(40, 60), 1)

	center := geom.Pt(400, 300)
	anchor := v.ScreenToGraph(center)

	v.ZoomTo(2)
	after := v.ScreenToGraph(center)
	assert.InDelta(t, anchor.X, after.X, 1e-9)
	assert.InDelta(t, anchor.Y, after.Y, 1e-9)

	v.ZoomBy(0.25)
	after = v.ScreenToGraph(center)
	assert.InDelta(t, anchor.X, after.X, 1e-9)
	assert.InDelta(t, anchor.Y, after.Y, 1e-9)
}

func TestZoom_ClampsToRange(t *testing.T) {
	v := newTestViewport()
	v.ZoomTo(100)
	assert.Equal(t, 4.0, v.Zoom())
	v.ZoomTo(0.001)
	assert.Equal(t, 0.1, v.Zoom())
	v.Set(geom.Point{}, 9)
	assert.Equal(t, 4.0, v.Zoom())
}

func TestPanBy(t *testing.T) {
	v := newTestViewport()
	v.PanBy(geom.Pt(10, -5))
	v.PanBy(geom.Pt(10, -5))
	assert.Equal(t, geom.Pt(20, -10), v.Pan())
}

func TestFitRect_ContainsPaddedBounds(t *testing.T) {
	v := newTestViewport()
	v.SetScreenSize(geom.Size{Width: 800, Height: 600})
	bounds := geom.RectFromPosSize(geom.Pt(100, 100), geom.Size{Width: 400, Height: 100})

	v.FitRect(bounds)

	visible := v.VisibleRect().Expand(1e-6)
	assert.True(t, visible.ContainsRect(bounds.Expand(50)), "the padded bounds fit on screen")

	// The padded box is centered.
	center := v.GraphToScreen(bounds.Center())
	assert.InDelta(t, 400, center.X, 1e-9)
	assert.InDelta(t, 300, center.Y, 1e-9)

	// Zoom picks the tighter axis: 800/500 vs 600/200.
	assert.InDelta(t, 800.0/500.0, v.Zoom(), 1e-9)
}

func TestFitRect_ClampsZoomForTinyContent(t *testing.T) {
	v := newTestViewport()
	v.SetScreenSize(geom.Size{Width: 800, Height: 600})
	v.FitRect(geom.RectFromPosSize(geom.Pt(0, 0), geom.Size{Width: 1, Height: 1}))
	assert.Equal(t, 4.0, v.Zoom())
}

func TestCenterOn(t *testing.T) {
	v := newTestViewport()
	v.SetScreenSize(geom.Size{Width: 800, Height: 600})
	v.Set(geom.Point{}, 2)

	v.CenterOn(geom.Pt(123, 456))
	got := v.GraphToScreen(geom.Pt(123, 456))
	assert.InDelta(t, 400, got.X, 1e-9)
	assert.InDelta(t, 300, got.Y, 1e-9)
	assert.Equal(t, 2.0, v.Zoom(), "centering never changes zoom")
}

func TestReset(t *testing.T) {
	v := newTestViewport()
	v.SetScreenSize(geom.Size{Width: 800, Height: 600})
	v.Set(geom.Pt(999, 999), 3)

	bounds := geom.RectFromPosSize(geom.Pt(0, 0), geom.Size{Width: 200, Height: 200})
	v.Reset(bounds, true)
	assert.Equal(t, 1.0, v.Zoom())
	center := v.GraphToScreen(geom.Pt(100, 100))
	assert.InDelta(t, 400, center.X, 1e-9)
	assert.InDelta(t, 300, center.Y, 1e-9)

	// Empty graph: origin at the screen center.
	v.Reset(geom.Rect{}, false)
	origin := v.GraphToScreen(geom.Point{})
	assert.InDelta(t, 400, origin.X, 1e-9)
	assert.InDelta(t, 300, origin.Y, 1e-9)
}

func TestVisibility(t *testing.T) {
	v := newTestViewport()
	v.SetScreenSize(geom.Size{Width: 800, Height: 600})

	assert.True(t, v.IsPointVisible(geom.Pt(400, 300)))
	assert.False(t, v.IsPointVisible(geom.Pt(-1, 300)))

	off := geom.RectFromPosSize(geom.Pt(900, 0), geom.Size{Width: 50, Height: 50})
	assert.False(t, v.IsRectVisible(off))
	straddling := geom.RectFromPosSize(geom.Pt(780, 0), geom.Size{Width: 50, Height: 50})
	assert.True(t, v.IsRectVisible(straddling))
}

func TestOnChange_FiresOncePerMutation(t *testing.T) {
	v := newTestViewport()
	calls := 0
	v.OnChange(func() { calls++ })

	v.PanBy(geom.Pt(1, 1))
	v.ZoomTo(2)
	v.SetScreenSize(geom.Size{Width: 100, Height: 100})
	require.Equal(t, 3, calls)

	// No-op mutations stay silent.
	v.PanBy(geom.Point{})
	v.ZoomTo(2)
	v.SetScreenSize(geom.Size{Width: 100, Height: 100})
	assert.Equal(t, 3, calls)
}
