// Package spatial answers point and rectangle queries over the diagram in
// sub-linear time. It is a uniform grid hash: every entity's bounding boxes
// are bucketed into fixed-size cells, so a query only touches the cells it
// overlaps. The index stores geometry handed to it by the engine; it never
// reaches into the graph itself, so an entity is gone the moment its entry
// is removed.
package spatial

import (
	"math"
	"sort"

	"tangle/geom"
	"tangle/route"
)

// Kind tags what a query hit.
type Kind int

const (
	KindNone Kind = iota
	KindNode
	KindPort
	KindConnection
	KindAnnotation
)

// PortMarker is one port's absolute position, carried inside a node entry.
type PortMarker struct {
	PortID string
	Input  bool
	Pos    geom.Point
}

// NodeEntry is the indexed form of a node: its body, the expanded box that
// also covers port markers, stacking order and visibility.
type NodeEntry struct {
	ID      string
	Body    geom.Rect
	Bounds  geom.Rect
	Z       int
	Visible bool
	Ports   []PortMarker
}

// ConnEntry is the indexed form of a connection: the flattened segment list
// from the path engine.
type ConnEntry struct {
	ID       string
	Segments []route.Segment
	Bounds   geom.Rect
}

// AnnEntry is the indexed form of an annotation.
type AnnEntry struct {
	ID     string
	Bounds geom.Rect
}

// Hit is a point-query result.
type Hit struct {
	Kind   Kind
	ID     string // node, connection or annotation id
	PortID string // set when Kind == KindPort; ID is then the node id
	Input  bool   // port direction when Kind == KindPort
}

// RectHits is a rectangle-query result: every entity whose bounds overlap.
type RectHits struct {
	Nodes       []string
	Connections []string
	Annotations []string
}

type cellKey struct {
	X, Y int
}

type entryKey struct {
	kind Kind
	id   string
}

// Index is the grid. Not goroutine-safe; the engine serializes access.
type Index struct {
	cellSize float64
	cells    map[cellKey]map[entryKey]struct{}
	nodes    map[string]NodeEntry
	conns    map[string]ConnEntry
	anns     map[string]AnnEntry
	occupied map[entryKey][]cellKey
}

// New returns an empty index with the given cell size.
func New(cellSize float64) *Index {
	if cellSize <= 0 {
		cellSize = 256
	}
	return &Index{
		cellSize: cellSize,
		cells:    make(map[cellKey]map[entryKey]struct{}),
		nodes:    make(map[string]NodeEntry),
		conns:    make(map[string]ConnEntry),
		anns:     make(map[string]AnnEntry),
		occupied: make(map[entryKey][]cellKey),
	}
}

// Reset empties the index; the bulk-load path calls this before re-adding
// everything.
func (ix *Index) Reset() {
	ix.cells = make(map[cellKey]map[entryKey]struct{})
	ix.nodes = make(map[string]NodeEntry)
	ix.conns = make(map[string]ConnEntry)
	ix.anns = make(map[string]AnnEntry)
	ix.occupied = make(map[entryKey][]cellKey)
}

// UpsertNode adds or refreshes a node entry. O(cells covered).
func (ix *Index) UpsertNode(e NodeEntry) {
	key := entryKey{KindNode, e.ID}
	ix.evict(key)
	ix.nodes[e.ID] = e
	ix.place(key, e.Bounds)
}

// RemoveNode drops a node entry. No-op when absent.
func (ix *Index) RemoveNode(id string) {
	ix.evict(entryKey{KindNode, id})
	delete(ix.nodes, id)
}

// UpsertConnection adds or refreshes a connection's segment list.
func (ix *Index) UpsertConnection(e ConnEntry) {
	key := entryKey{KindConnection, e.ID}
	ix.evict(key)
	if len(e.Segments) > 0 {
		e.Bounds = e.Segments[0].Bounds
		for _, seg := range e.Segments[1:] {
			e.Bounds = e.Bounds.Union(seg.Bounds)
		}
	}
	ix.conns[e.ID] = e
	for _, seg := range e.Segments {
		ix.place(key, seg.Bounds)
	}
}

// RemoveConnection drops a connection entry. No-op when absent.
func (ix *Index) RemoveConnection(id string) {
	ix.evict(entryKey{KindConnection, id})
	delete(ix.conns, id)
}

// UpsertAnnotation adds or refreshes an annotation entry.
func (ix *Index) UpsertAnnotation(e AnnEntry) {
	key := entryKey{KindAnnotation, e.ID}
	ix.evict(key)
	ix.anns[e.ID] = e
	ix.place(key, e.Bounds)
}

// RemoveAnnotation drops an annotation entry. No-op when absent.
func (ix *Index) RemoveAnnotation(id string) {
	ix.evict(entryKey{KindAnnotation, id})
	delete(ix.anns, id)
}

// Len returns the number of indexed entities, for stats.
func (ix *Index) Len() int {
	return len(ix.nodes) + len(ix.conns) + len(ix.anns)
}

// HitTestPort finds the topmost visible port marker within radius of p.
func (ix *Index) HitTestPort(p geom.Point, radius float64) (Hit, bool) {
	candidates := ix.nodesNear(p, radius)
	for _, e := range candidates {
		if !e.Visible {
			continue
		}
		for _, port := range e.Ports {
			if port.Pos.Dist(p) <= radius {
				return Hit{Kind: KindPort, ID: e.ID, PortID: port.PortID, Input: port.Input}, true
			}
		}
	}
	return Hit{}, false
}

// HitTestPoint resolves what sits at p: ports first (within portRadius),
// then node bodies (topmost z wins), then the nearest connection segment
// within tol, then annotations.
func (ix *Index) HitTestPoint(p geom.Point, tol, portRadius float64) (Hit, bool) {
	if hit, ok := ix.HitTestPort(p, portRadius); ok {
		return hit, true
	}
	for _, e := range ix.nodesNear(p, tol) {
		if e.Visible && e.Body.Contains(p) {
			return Hit{Kind: KindNode, ID: e.ID}, true
		}
	}
	if id, ok := ix.nearestConnection(p, tol); ok {
		return Hit{Kind: KindConnection, ID: id}, true
	}
	for _, e := range ix.annsNear(p) {
		if e.Bounds.Contains(p) {
			return Hit{Kind: KindAnnotation, ID: e.ID}, true
		}
	}
	return Hit{}, false
}

// HitTestRect returns every entity whose bounds overlap r, the marquee
// selection primitive. Results are sorted for determinism.
func (ix *Index) HitTestRect(r geom.Rect) RectHits {
	var hits RectHits
	seen := make(map[entryKey]struct{})
	for _, cell := range ix.cellRange(r) {
		for key := range ix.cells[cell] {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			switch key.kind {
			case KindNode:
				if e := ix.nodes[key.id]; e.Bounds.Intersects(r) {
					hits.Nodes = append(hits.Nodes, key.id)
				}
			case KindConnection:
				if e := ix.conns[key.id]; e.Bounds.Intersects(r) {
					hits.Connections = append(hits.Connections, key.id)
				}
			case KindAnnotation:
				if e := ix.anns[key.id]; e.Bounds.Intersects(r) {
					hits.Annotations = append(hits.Annotations, key.id)
				}
			}
		}
	}
	sort.Strings(hits.Nodes)
	sort.Strings(hits.Connections)
	sort.Strings(hits.Annotations)
	return hits
}

// nodesNear collects node entries from the cells around p, sorted topmost
// first.
func (ix *Index) nodesNear(p geom.Point, pad float64) []NodeEntry {
	probe := geom.Rect{Min: p, Max: p}.Expand(pad)
	seen := make(map[string]struct{})
	var out []NodeEntry
	for _, cell := range ix.cellRange(probe) {
		for key := range ix.cells[cell] {
			if key.kind != KindNode {
				continue
			}
			if _, dup := seen[key.id]; dup {
				continue
			}
			seen[key.id] = struct{}{}
			out = append(out, ix.nodes[key.id])
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Z != out[j].Z {
			return out[i].Z > out[j].Z
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (ix *Index) annsNear(p geom.Point) []AnnEntry {
	seen := make(map[string]struct{})
	var out []AnnEntry
	for _, cell := range ix.cellRange(geom.Rect{Min: p, Max: p}) {
		for key := range ix.cells[cell] {
			if key.kind != KindAnnotation {
				continue
			}
			if _, dup := seen[key.id]; dup {
				continue
			}
			seen[key.id] = struct{}{}
			out = append(out, ix.anns[key.id])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// nearestConnection finds the connection whose flattened geometry passes
// closest to p, within tol.
func (ix *Index) nearestConnection(p geom.Point, tol float64) (string, bool) {
	probe := geom.Rect{Min: p, Max: p}.Expand(tol)
	best := math.Inf(1)
	bestID := ""
	seen := make(map[string]struct{})
	for _, cell := range ix.cellRange(probe) {
		for key := range ix.cells[cell] {
			if key.kind != KindConnection {
				continue
			}
			if _, dup := seen[key.id]; dup {
				continue
			}
			seen[key.id] = struct{}{}
			for _, seg := range ix.conns[key.id].Segments {
				if !seg.Bounds.Expand(tol).Contains(p) {
					continue
				}
				d := geom.DistToSegment(p, seg.A, seg.B)
				if d < best || (d == best && key.id < bestID) {
					best = d
					bestID = key.id
				}
			}
		}
	}
	if best <= tol {
		return bestID, true
	}
	return "", false
}

func (ix *Index) place(key entryKey, bounds geom.Rect) {
	for _, cell := range ix.cellRange(bounds) {
		bucket, ok := ix.cells[cell]
		if !ok {
			bucket = make(map[entryKey]struct{})
			ix.cells[cell] = bucket
		}
		if _, dup := bucket[key]; !dup {
			bucket[key] = struct{}{}
			ix.occupied[key] = append(ix.occupied[key], cell)
		}
	}
}

func (ix *Index) evict(key entryKey) {
	for _, cell := range ix.occupied[key] {
		if bucket, ok := ix.cells[cell]; ok {
			delete(bucket, key)
			if len(bucket) == 0 {
				delete(ix.cells, cell)
			}
		}
	}
	delete(ix.occupied, key)
}

func (ix *Index) cellRange(r geom.Rect) []cellKey {
	minX := int(math.Floor(r.Min.X / ix.cellSize))
	minY := int(math.Floor(r.Min.Y / ix.cellSize))
	maxX := int(math.Floor(r.Max.X / ix.cellSize))
	maxY := int(math.Floor(r.Max.Y / ix.cellSize))
	out := make([]cellKey, 0, (maxX-minX+1)*(maxY-minY+1))
	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			out = append(out, cellKey{x, y})
		}
	}
	return out
}
