// Package view implements the pan/zoom transform between graph space and
// screen space. screen = graph*zoom + pan; pan is in screen units.
package view

import (
	"tangle/geom"
)

// Viewport is the camera. It always exists; there is no create/destroy.
// Zoom changes are anchored at the visual center of the screen, so the graph
// point under the center stays put.
type Viewport struct {
	pan        geom.Point
	zoom       float64
	screenSize geom.Size
	minZoom    float64
	maxZoom    float64
	padding    float64 // fit padding in graph units

	// onChange fires after any pan/zoom/screen-size mutation.
	onChange func()
}

// New returns a viewport at zoom 1 with the given clamp range and fit
// padding.
func New(minZoom, maxZoom, fitPadding float64) *Viewport {
	return &Viewport{
		zoom:       1,
		screenSize: geom.Size{Width: 800, Height: 600},
		minZoom:    minZoom,
		maxZoom:    maxZoom,
		padding:    fitPadding,
	}
}

// OnChange registers a single change hook. The engine uses it to publish
// ViewportChanged.
func (v *Viewport) OnChange(fn func()) {
	v.onChange = fn
}

// Pan returns the current pan offset in screen units.
func (v *Viewport) Pan() geom.Point {
	return v.pan
}

// Zoom returns the current zoom scalar.
func (v *Viewport) Zoom() float64 {
	return v.zoom
}

// ScreenSize returns the last known screen size.
func (v *Viewport) ScreenSize() geom.Size {
	return v.screenSize
}

// SetScreenSize records the host surface size.
func (v *Viewport) SetScreenSize(size geom.Size) {
	if v.screenSize == size {
		return
	}
	v.screenSize = size
	v.changed()
}

// Set replaces pan and zoom wholesale, clamping zoom to range.
func (v *Viewport) Set(pan geom.Point, zoom float64) {
	v.pan = pan
	v.zoom = geom.Clamp(zoom, v.minZoom, v.maxZoom)
	v.changed()
}

// GraphToScreen maps a graph-space point to screen space.
func (v *Viewport) GraphToScreen(p geom.Point) geom.Point {
	return p.Scale(v.zoom).Add(v.pan)
}

// ScreenToGraph maps a screen-space point to graph space.
func (v *Viewport) ScreenToGraph(p geom.Point) geom.Point {
	return p.Sub(v.pan).Scale(1 / v.zoom)
}

// PanBy shifts the pan offset by a screen-space delta.
func (v *Viewport) PanBy(delta geom.Point) {
	if delta.X == 0 && delta.Y == 0 {
		return
	}
	v.pan = v.pan.Add(delta)
	v.changed()
}

// ZoomBy multiplies the zoom by factor, anchored at the screen center.
func (v *Viewport) ZoomBy(factor float64) {
	v.ZoomTo(v.zoom * factor)
}

// ZoomTo sets the zoom, clamped to range, keeping the graph point currently
// under the screen center fixed there.
func (v *Viewport) ZoomTo(zoom float64) {
	zoom = geom.Clamp(zoom, v.minZoom, v.maxZoom)
	if zoom == v.zoom {
		return
	}
	center := geom.Point{X: v.screenSize.Width / 2, Y: v.screenSize.Height / 2}
	anchor := v.ScreenToGraph(center)
	v.zoom = zoom
	// Recompute pan so anchor maps back to the center.
	v.pan = center.Sub(anchor.Scale(v.zoom))
	v.changed()
}

// FitRect frames bounds with the configured padding: zoom to the tighter
// axis (clamped) and center the padded box on screen.
func (v *Viewport) FitRect(bounds geom.Rect) {
	padded := bounds.Expand(v.padding)
	if padded.Width() <= 0 || padded.Height() <= 0 {
		v.CenterOn(bounds.Center())
		return
	}
	sx := v.screenSize.Width / padded.Width()
	sy := v.screenSize.Height / padded.Height()
	zoom := sx
	if sy < sx {
		zoom = sy
	}
	v.zoom = geom.Clamp(zoom, v.minZoom, v.maxZoom)
	v.centerPan(padded.Center())
	v.changed()
}

// CenterOn pans so the given graph point sits at the screen center, without
// touching zoom.
func (v *Viewport) CenterOn(p geom.Point) {
	v.centerPan(p)
	v.changed()
}

// Reset restores zoom 1 centered on bounds, or on the origin when the graph
// is empty (ok == false).
func (v *Viewport) Reset(bounds geom.Rect, ok bool) {
	v.zoom = 1
	center := geom.Point{}
	if ok {
		center = bounds.Center()
	}
	v.centerPan(center)
	v.changed()
}

// VisibleRect returns the viewport extent in graph space.
func (v *Viewport) VisibleRect() geom.Rect {
	return geom.Rect{
		Min: v.ScreenToGraph(geom.Point{}),
		Max: v.ScreenToGraph(geom.Point{X: v.screenSize.Width, Y: v.screenSize.Height}),
	}
}

// IsPointVisible reports whether a graph point is inside the viewport.
func (v *Viewport) IsPointVisible(p geom.Point) bool {
	return v.VisibleRect().Contains(p)
}

// IsRectVisible reports whether any part of a graph rect is inside the
// viewport.
func (v *Viewport) IsRectVisible(r geom.Rect) bool {
	return v.VisibleRect().Intersects(r)
}

// State packs pan and zoom for snapshots.
func (v *Viewport) State() (geom.Point, float64) {
	return v.pan, v.zoom
}

func (v *Viewport) centerPan(graphCenter geom.Point) {
	screenCenter := geom.Point{X: v.screenSize.Width / 2, Y: v.screenSize.Height / 2}
	v.pan = screenCenter.Sub(graphCenter.Scale(v.zoom))
}

func (v *Viewport) changed() {
	if v.onChange != nil {
		v.onChange()
	}
}
