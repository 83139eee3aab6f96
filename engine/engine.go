// Package engine wires the diagram core together: the graph store, the
// viewport, the path engine, the spatial index and the drag manager, kept
// consistent through the event bus. Hosts talk to an Engine; the packages
// underneath never talk to each other directly.
package engine

import (
	"math"

	"go.uber.org/zap"

	"tangle/config"
	"tangle/drag"
	"tangle/event"
	"tangle/geom"
	"tangle/graph"
	"tangle/route"
	"tangle/spatial"
	"tangle/view"
)

// Engine is the facade. Not goroutine-safe: like the UI frameworks it
// serves, everything runs on one logical loop. The only concurrent actor is
// the autopan timer, which serializes through the drag manager.
type Engine struct {
	cfg      *config.Config
	log      *zap.Logger
	bus      *event.Bus
	store    *graph.Store
	viewport *view.Viewport
	routes   *route.Engine
	index    *spatial.Index
	drags    *drag.Manager
}

// Option customizes engine construction.
type Option func(*Engine)

// WithLogger installs a zap logger. The default is a nop logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithDispatch routes autopan ticks onto the host's event loop.
func WithDispatch(dispatch func(func())) Option {
	return func(e *Engine) {
		e.drags = drag.NewManager(e.viewport, drag.Options{
			EdgePadding: e.cfg.Autopan.Padding,
			Speed:       e.cfg.Autopan.Speed,
			Interval:    e.cfg.Autopan.Interval.Duration,
			Dispatch:    dispatch,
		})
	}
}

// New builds an engine from config. The engine subscribes to the bus before
// returning, so its index maintenance always runs ahead of plugin handlers.
func New(cfg *config.Config, opts ...Option) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	e := &Engine{
		cfg: cfg,
		log: zap.NewNop(),
		bus: event.NewBus(),
	}
	e.store = graph.NewStore(e.bus, graph.Options{
		GridSnap:        cfg.GridSnap,
		DuplicateOffset: cfg.DuplicateOffset,
		DefaultStyle:    graph.RoutingStyle(cfg.DefaultRouting),
	})
	e.viewport = view.New(cfg.MinZoom, cfg.MaxZoom, cfg.FitPadding)
	e.routes = route.NewEngine(e.store)
	e.index = spatial.New(cfg.CellSize)
	e.drags = drag.NewManager(e.viewport, drag.Options{
		EdgePadding: cfg.Autopan.Padding,
		Speed:       cfg.Autopan.Speed,
		Interval:    cfg.Autopan.Interval.Duration,
	})
	for _, opt := range opts {
		opt(e)
	}
	e.bus.Subscribe(e.onEvent)
	e.viewport.OnChange(func() {
		e.bus.Publish(event.Event{Type: event.ViewportChanged})
	})
	return e
}

// Graph exposes the store: all CRUD, selection and z-order operations.
func (e *Engine) Graph() *graph.Store {
	return e.store
}

// Viewport exposes the camera.
func (e *Engine) Viewport() *view.Viewport {
	return e.viewport
}

// Routes exposes the path engine for read access and explicit invalidation.
func (e *Engine) Routes() *route.Engine {
	return e.routes
}

// Drags exposes the drag manager.
func (e *Engine) Drags() *drag.Manager {
	return e.drags
}

// Bus exposes the event bus for plugins; subscribers must stay read-only.
func (e *Engine) Bus() *event.Bus {
	return e.bus
}

// Config returns the engine's settings.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// Close cancels any in-flight drag and its autopan timer.
func (e *Engine) Close() {
	e.drags.Close()
}

// onEvent keeps the spatial index and path cache consistent with every
// mutation. Runs before any plugin subscriber.
func (e *Engine) onEvent(ev event.Event) {
	e.log.Debug("graph event", zap.String("type", string(ev.Type)), zap.String("id", ev.ID))
	switch ev.Type {
	case event.NodeAdded:
		e.indexNode(ev.ID)
	case event.NodeRemoved:
		e.index.RemoveNode(ev.ID)
	case event.NodeMoved, event.NodeResized, event.NodePortsChanged:
		e.routes.InvalidateNode(ev.ID)
		e.indexNode(ev.ID)
		for _, c := range e.store.ConnectionsForNode(ev.ID) {
			e.indexConnection(c.ID)
		}
	case event.ConnectionAdded:
		e.indexConnection(ev.ID)
	case event.ConnectionRemoved:
		e.routes.Invalidate(ev.ID)
		e.index.RemoveConnection(ev.ID)
	case event.ConnectionPathChanged:
		e.routes.Invalidate(ev.ID)
		e.indexConnection(ev.ID)
	case event.AnnotationAdded:
		e.indexAnnotation(ev.ID)
	case event.AnnotationRemoved:
		e.index.RemoveAnnotation(ev.ID)
	case event.GraphLoaded, event.GraphCleared:
		e.rebuildIndex()
	}
}

// indexNode refreshes a node's index entry: body box grown to cover its
// port markers.
func (e *Engine) indexNode(id string) {
	n, ok := e.store.Node(id)
	if !ok {
		return
	}
	body := n.Bounds()
	bounds := body
	var markers []spatial.PortMarker
	addPorts := func(ports []graph.Port, input bool) {
		for _, p := range ports {
			pos := n.PortAnchor(p)
			markers = append(markers, spatial.PortMarker{PortID: p.ID, Input: input, Pos: pos})
			bounds = bounds.Union(geom.Rect{Min: pos, Max: pos}.Expand(e.cfg.PortHitRadius))
		}
	}
	addPorts(n.Inputs, true)
	addPorts(n.Outputs, false)
	e.index.UpsertNode(spatial.NodeEntry{
		ID:      n.ID,
		Body:    body,
		Bounds:  bounds,
		Z:       n.ZIndex,
		Visible: n.Visible,
		Ports:   markers,
	})
}

func (e *Engine) indexConnection(id string) {
	p, ok := e.routes.PathFor(id)
	if !ok {
		return
	}
	e.index.UpsertConnection(spatial.ConnEntry{ID: id, Segments: p.Segments})
}

func (e *Engine) indexAnnotation(id string) {
	a, ok := e.store.Annotation(id)
	if !ok {
		return
	}
	e.index.UpsertAnnotation(spatial.AnnEntry{ID: a.ID, Bounds: a.Bounds})
}

// rebuildIndex is the O(n) full pass used after bulk load and clear.
func (e *Engine) rebuildIndex() {
	e.routes.InvalidateAll()
	e.index.Reset()
	for _, n := range e.store.Nodes() {
		e.indexNode(n.ID)
	}
	for _, c := range e.store.Connections() {
		e.indexConnection(c.ID)
	}
	for _, a := range e.store.Annotations() {
		e.indexAnnotation(a.ID)
	}
	e.log.Debug("spatial index rebuilt", zap.Int("entries", e.index.Len()))
}

// --- spatial queries ---

// HitTestPoint resolves the entity at a graph-space point.
func (e *Engine) HitTestPoint(p geom.Point) (spatial.Hit, bool) {
	return e.index.HitTestPoint(p, e.cfg.HitTolerance, e.cfg.PortHitRadius)
}

// HitTestScreen resolves the entity at a screen-space point.
func (e *Engine) HitTestScreen(p geom.Point) (spatial.Hit, bool) {
	return e.HitTestPoint(e.viewport.ScreenToGraph(p))
}

// HitTestPort finds a port near a graph-space point.
func (e *Engine) HitTestPort(p geom.Point) (spatial.Hit, bool) {
	return e.index.HitTestPort(p, e.cfg.PortHitRadius)
}

// HitTestRect returns every entity overlapping a graph-space rectangle.
func (e *Engine) HitTestRect(r geom.Rect) spatial.RectHits {
	return e.index.HitTestRect(r)
}

// --- viewport conveniences ---

// FitToView frames all nodes.
func (e *Engine) FitToView() {
	if bounds, ok := e.store.ContentBounds(); ok {
		e.viewport.FitRect(bounds)
	}
}

// FitSelectedNodes frames the node selection; falls back to all nodes when
// nothing is selected.
func (e *Engine) FitSelectedNodes() {
	ids := e.store.SelectedNodes()
	if len(ids) == 0 {
		e.FitToView()
		return
	}
	var bounds geom.Rect
	found := false
	for _, id := range ids {
		n, ok := e.store.Node(id)
		if !ok {
			continue
		}
		if !found {
			bounds = n.Bounds()
			found = true
			continue
		}
		bounds = bounds.Union(n.Bounds())
	}
	if found {
		e.viewport.FitRect(bounds)
	}
}

// CenterOnNode pans the viewport to a node's center without zooming.
func (e *Engine) CenterOnNode(id string) {
	if n, ok := e.store.Node(id); ok {
		e.viewport.CenterOn(n.Center())
	}
}

// ResetViewport restores zoom 1, centered on the content or the origin.
func (e *Engine) ResetViewport() {
	bounds, ok := e.store.ContentBounds()
	e.viewport.Reset(bounds, ok)
}

// --- bulk operations ---

// ExportGraph snapshots nodes, connections, annotations and the viewport by
// value.
func (e *Engine) ExportGraph() graph.Snapshot {
	pan, zoom := e.viewport.State()
	return e.store.Export(graph.ViewportState{Pan: pan, Zoom: zoom})
}

// LoadGraph atomically replaces the whole graph and the viewport; the index
// is rebuilt once.
func (e *Engine) LoadGraph(snap graph.Snapshot) error {
	if err := e.store.Load(snap); err != nil {
		return err
	}
	e.viewport.Set(snap.Viewport.Pan, snap.Viewport.Zoom)
	e.log.Info("graph loaded",
		zap.Int("nodes", e.store.NodeCount()),
		zap.Int("connections", e.store.ConnectionCount()))
	return nil
}

// ClearGraph removes everything and resets selections. Idempotent.
func (e *Engine) ClearGraph() {
	e.store.Clear()
}

// ArrangeNodesInGrid lays all nodes out in a square-ish grid with the given
// spacing: columns = ceil(sqrt(n)), row-major bottom-to-top in stacking
// order. Target positions are computed up front so the layout applies
// atomically.
func (e *Engine) ArrangeNodesInGrid(spacing float64) {
	nodes := e.store.NodesByZ()
	if len(nodes) == 0 {
		return
	}
	cols := int(math.Ceil(math.Sqrt(float64(len(nodes)))))
	targets := make([]geom.Point, len(nodes))
	for i := range nodes {
		targets[i] = geom.Pt(float64(i%cols)*spacing, float64(i/cols)*spacing)
	}
	for i, n := range nodes {
		e.store.SetNodePosition(n.ID, targets[i])
	}
}

// --- drag wiring ---

// StartNodeDrag begins dragging a node under the given screen-space pointer.
// The node stays glued to the pointer, including through autopan; Cancel
// restores its starting position. Returns false when the node does not
// exist or another drag holds the canvas lock.
func (e *Engine) StartNodeDrag(pointerID int, screen geom.Point, nodeID string) bool {
	n, ok := e.store.Node(nodeID)
	if !ok {
		return false
	}
	start := n.Position
	grab := start.Sub(e.viewport.ScreenToGraph(screen))
	return e.drags.Start(pointerID, screen, drag.Callbacks{
		GluedToPointer: true,
		OnMove: func(_, pointer geom.Point) {
			e.store.SetNodePosition(nodeID, pointer.Add(grab))
		},
		OnEnd: func() {
			e.log.Debug("node drag committed", zap.String("node", nodeID))
		},
		OnCancel: func() {
			e.store.SetNodePosition(nodeID, start)
			e.log.Debug("node drag cancelled", zap.String("node", nodeID))
		},
	})
}

// StartPanDrag begins dragging the canvas itself: the content follows the
// pointer. Autopan never applies (the pointer is moving the camera).
func (e *Engine) StartPanDrag(pointerID int, screen geom.Point) bool {
	return e.drags.Start(pointerID, screen, drag.Callbacks{
		NoAutopan: true,
		OnMove: func(delta, _ geom.Point) {
			e.viewport.PanBy(delta.Scale(e.viewport.Zoom()))
		},
	})
}
