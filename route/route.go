// Package route computes renderable geometry for connections: a polyline
// approximation of the styled curve plus per-segment bounding boxes for
// hit-testing. All output is graph-space, so panning and zooming never
// invalidate it.
package route

import (
	"math"

	"tangle/geom"
	"tangle/graph"
)

// bezierSteps is the flattening resolution for curved styles.
const bezierSteps = 16

// cornerRadius rounds smooth-step elbows, in graph units.
const cornerRadius = 8.0

// Segment is one straight piece of a flattened path with its tight box.
type Segment struct {
	A, B   geom.Point
	Bounds geom.Rect
}

// Path is the computed geometry for one connection.
type Path struct {
	ConnectionID string
	Points       []geom.Point
	Segments     []Segment
	Bounds       geom.Rect
}

// Engine computes and caches paths keyed by connection id. It is
// invalidation-driven: the graph facade tells it when endpoint geometry,
// ports, control points or styles change.
type Engine struct {
	store *graph.Store
	cache map[string]*Path
}

// NewEngine returns an engine over the store with an empty cache.
func NewEngine(store *graph.Store) *Engine {
	return &Engine{
		store: store,
		cache: make(map[string]*Path),
	}
}

// PathFor returns the cached path for a connection, computing it on a miss.
// ok is false when the connection does not exist.
func (e *Engine) PathFor(connID string) (*Path, bool) {
	if p, hit := e.cache[connID]; hit {
		return p, true
	}
	c, ok := e.store.Connection(connID)
	if !ok {
		return nil, false
	}
	p := e.compute(c)
	e.cache[connID] = p
	return p, true
}

// Invalidate drops one connection's cached path.
func (e *Engine) Invalidate(connID string) {
	delete(e.cache, connID)
}

// InvalidateNode drops the cached paths of every connection incident to the
// node. Callers use it when a node moves, resizes, or changes ports.
func (e *Engine) InvalidateNode(nodeID string) {
	for _, c := range e.store.ConnectionsForNode(nodeID) {
		delete(e.cache, c.ID)
	}
}

// InvalidateAll empties the cache, used around bulk loads.
func (e *Engine) InvalidateAll() {
	e.cache = make(map[string]*Path)
}

// CachedIDs returns the ids currently cached; handy for tests and stats.
func (e *Engine) CachedIDs() []string {
	out := make([]string, 0, len(e.cache))
	for id := range e.cache {
		out = append(out, id)
	}
	return out
}

func (e *Engine) compute(c *graph.Connection) *Path {
	a, dirA := e.anchor(c.SourceNode, c.SourcePort, graph.Output)
	b, dirB := e.anchor(c.TargetNode, c.TargetPort, graph.Input)

	var points []geom.Point
	switch {
	case len(c.ControlPoints) > 0:
		// Explicit waypoints override the style's interior shape.
		points = append(points, a)
		points = append(points, c.ControlPoints...)
		points = append(points, b)
	case c.Style == graph.RouteStraight:
		points = []geom.Point{a, b}
	case c.Style == graph.RouteStep:
		points = stepRoute(a, b, dirA)
	case c.Style == graph.RouteSmoothStep:
		points = roundCorners(stepRoute(a, b, dirA))
	default: // bezier
		points = flattenCubic(a, b, dirA, dirB)
	}

	return buildPath(c.ID, points)
}

// anchor resolves a connection endpoint to an absolute point and the outward
// direction at that point. Missing entities degrade to the node center (or
// origin) rather than failing; degenerate geometry must still route.
func (e *Engine) anchor(nodeID, portID string, dir graph.Direction) (geom.Point, geom.Point) {
	n, ok := e.store.Node(nodeID)
	if !ok {
		return geom.Point{}, geom.Pt(1, 0)
	}
	p, ok := n.FindPort(portID, dir)
	if !ok {
		return n.Center(), geom.Pt(1, 0)
	}
	return n.PortAnchor(p), outwardNormal(p.Anchor)
}

// outwardNormal picks the direction a path should leave a port, from the
// port's fractional position on the node boundary.
func outwardNormal(anchor geom.Point) geom.Point {
	switch {
	case anchor.X == 0:
		return geom.Pt(-1, 0)
	case anchor.X == 1:
		return geom.Pt(1, 0)
	case anchor.Y == 0:
		return geom.Pt(0, -1)
	case anchor.Y == 1:
		return geom.Pt(0, 1)
	}
	// Interior anchor: lean toward the nearer vertical edge.
	if anchor.X >= 0.5 {
		return geom.Pt(1, 0)
	}
	return geom.Pt(-1, 0)
}

// stepRoute produces an orthogonal elbow route, splitting at the midpoint of
// the dominant axis.
func stepRoute(a, b geom.Point, dirA geom.Point) []geom.Point {
	if a == b {
		return []geom.Point{a, b}
	}
	if dirA.X != 0 {
		midX := (a.X + b.X) / 2
		return dedupe([]geom.Point{a, {X: midX, Y: a.Y}, {X: midX, Y: b.Y}, b})
	}
	midY := (a.Y + b.Y) / 2
	return dedupe([]geom.Point{a, {X: a.X, Y: midY}, {X: b.X, Y: midY}, b})
}

// roundCorners replaces each interior corner of a polyline with a flattened
// quadratic arc of radius cornerRadius.
func roundCorners(points []geom.Point) []geom.Point {
	if len(points) < 3 {
		return points
	}
	out := []geom.Point{points[0]}
	for i := 1; i < len(points)-1; i++ {
		prev, corner, next := points[i-1], points[i], points[i+1]
		r := cornerRadius
		r = math.Min(r, corner.Dist(prev)/2)
		r = math.Min(r, corner.Dist(next)/2)
		if r <= 0 {
			out = append(out, corner)
			continue
		}
		in := corner.Add(unit(prev.Sub(corner)).Scale(r))
		exit := corner.Add(unit(next.Sub(corner)).Scale(r))
		out = append(out, in)
		for s := 1; s < bezierSteps/2; s++ {
			t := float64(s) / float64(bezierSteps/2)
			out = append(out, quadPoint(in, corner, exit, t))
		}
		out = append(out, exit)
	}
	return dedupe(append(out, points[len(points)-1]))
}

// flattenCubic builds a cubic bezier between the anchors, with handles along
// the ports' outward directions, and samples it into a polyline.
func flattenCubic(a, b geom.Point, dirA, dirB geom.Point) []geom.Point {
	dist := a.Dist(b)
	if dist == 0 {
		return []geom.Point{a, b}
	}
	reach := geom.Clamp(dist/2, 20, 150)
	c1 := a.Add(dirA.Scale(reach))
	c2 := b.Add(dirB.Scale(reach))
	points := make([]geom.Point, 0, bezierSteps+1)
	for s := 0; s <= bezierSteps; s++ {
		t := float64(s) / bezierSteps
		points = append(points, cubicPoint(a, c1, c2, b, t))
	}
	return points
}

func cubicPoint(p0, p1, p2, p3 geom.Point, t float64) geom.Point {
	u := 1 - t
	return geom.Point{
		X: u*u*u*p0.X + 3*u*u*t*p1.X + 3*u*t*t*p2.X + t*t*t*p3.X,
		Y: u*u*u*p0.Y + 3*u*u*t*p1.Y + 3*u*t*t*p2.Y + t*t*t*p3.Y,
	}
}

func quadPoint(p0, p1, p2 geom.Point, t float64) geom.Point {
	u := 1 - t
	return geom.Point{
		X: u*u*p0.X + 2*u*t*p1.X + t*t*p2.X,
		Y: u*u*p0.Y + 2*u*t*p1.Y + t*t*p2.Y,
	}
}

func unit(p geom.Point) geom.Point {
	l := p.Len()
	if l == 0 {
		return geom.Point{}
	}
	return p.Scale(1 / l)
}

func dedupe(points []geom.Point) []geom.Point {
	out := points[:1]
	for _, p := range points[1:] {
		if p != out[len(out)-1] {
			out = append(out, p)
		}
	}
	return out
}

// buildPath converts a polyline into segments with tight boxes. A degenerate
// polyline (single point, coincident endpoints) still yields a valid path
// with one zero-length segment.
func buildPath(connID string, points []geom.Point) *Path {
	if len(points) == 0 {
		points = []geom.Point{{}, {}}
	}
	if len(points) == 1 {
		points = append(points, points[0])
	}
	p := &Path{ConnectionID: connID, Points: points}
	p.Bounds = geom.RectFromPoints(points[0], points[0])
	for i := 0; i < len(points)-1; i++ {
		seg := Segment{
			A:      points[i],
			B:      points[i+1],
			Bounds: geom.RectFromPoints(points[i], points[i+1]),
		}
		p.Segments = append(p.Segments, seg)
		p.Bounds = p.Bounds.Union(seg.Bounds)
	}
	return p
}
