package graph

import (
	"math"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"tangle/event"
	"tangle/geom"
)

// Options are the store-level tunables, usually lifted from config.
type Options struct {
	// GridSnap rounds the initial position of added nodes to this step.
	// Zero disables snapping.
	GridSnap float64
	// DuplicateOffset shifts a duplicated node from its original.
	DuplicateOffset float64
	// DefaultStyle routes connections added without an explicit style.
	// Empty falls back to RouteBezier.
	DefaultStyle RoutingStyle
}

// Store owns every node, connection and annotation, plus the selection sets
// and stacking order. Mutations publish events on the bus; queries never do.
// Iteration order is insertion order, which keeps export deterministic.
type Store struct {
	nodes       *orderedmap.OrderedMap[string, *Node]
	connections *orderedmap.OrderedMap[string, *Connection]
	annotations *orderedmap.OrderedMap[string, *Annotation]

	selNodes       map[string]struct{}
	selConnections map[string]struct{}
	selAnnotations map[string]struct{}

	bus  *event.Bus
	opts Options
}

// NewStore returns an empty store publishing on bus.
func NewStore(bus *event.Bus, opts Options) *Store {
	return &Store{
		nodes:          orderedmap.New[string, *Node](),
		connections:    orderedmap.New[string, *Connection](),
		annotations:    orderedmap.New[string, *Annotation](),
		selNodes:       make(map[string]struct{}),
		selConnections: make(map[string]struct{}),
		selAnnotations: make(map[string]struct{}),
		bus:            bus,
		opts:           opts,
	}
}

// Bus exposes the store's event bus for read-only subscribers.
func (s *Store) Bus() *event.Bus {
	return s.bus
}

// --- nodes ---

// AddNode inserts n. An empty id gets a generated one. The initial position
// snaps to the configured grid and the node lands on top of the stack.
// Duplicate ids are rejected.
func (s *Store) AddNode(n *Node) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if _, exists := s.nodes.Get(n.ID); exists {
		return errors.Wrapf(ErrDuplicateID, "node %q", n.ID)
	}
	n.Position = s.snap(n.Position)
	n.ZIndex = s.maxZ() + 1
	// Nodes are born visible; SetNodeVisible hides them.
	n.Visible = true
	s.nodes.Set(n.ID, n)
	s.bus.Publish(event.Event{Type: event.NodeAdded, ID: n.ID})
	return nil
}

// Node looks a node up by id.
func (s *Store) Node(id string) (*Node, bool) {
	n, ok := s.nodes.Get(id)
	return n, ok
}

// Nodes returns all nodes in insertion order.
func (s *Store) Nodes() []*Node {
	out := make([]*Node, 0, s.nodes.Len())
	for pair := s.nodes.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// NodeCount returns the number of nodes.
func (s *Store) NodeCount() int {
	return s.nodes.Len()
}

// RemoveNode deletes a node, severing its connections first, detaching it
// from groups, and dropping groups left empty. No-op when absent.
func (s *Store) RemoveNode(id string) {
	if _, ok := s.nodes.Get(id); !ok {
		return
	}
	for _, c := range s.ConnectionsForNode(id) {
		s.RemoveConnection(c.ID)
	}
	s.detachFromGroups(id)
	s.nodes.Delete(id)
	delete(s.selNodes, id)
	s.bus.Publish(event.Event{Type: event.NodeRemoved, ID: id})
}

// DuplicateNode clones a node under a fresh id, offset from the original,
// with a deep copy of the payload. Returns the clone, or false when the
// source does not exist.
func (s *Store) DuplicateNode(id string) (*Node, bool) {
	src, ok := s.nodes.Get(id)
	if !ok {
		return nil, false
	}
	dup := src.Clone()
	dup.ID = uuid.NewString()
	dup.Selected = false
	dup.Position = src.Position.Add(geom.Pt(s.opts.DuplicateOffset, s.opts.DuplicateOffset))
	// AddNode re-applies snap and z assignment, same as a hand-added node.
	if err := s.AddNode(dup); err != nil {
		return nil, false
	}
	return dup, true
}

// SetNodePosition moves a node to an absolute position.
func (s *Store) SetNodePosition(id string, pos geom.Point) {
	n, ok := s.nodes.Get(id)
	if !ok || n.Position == pos {
		return
	}
	old := n.Position
	n.Position = pos
	s.bus.Publish(event.Event{Type: event.NodeMoved, ID: id, OldPos: old, NewPos: pos})
}

// MoveNode shifts a node by a delta.
func (s *Store) MoveNode(id string, delta geom.Point) {
	if n, ok := s.nodes.Get(id); ok {
		s.SetNodePosition(id, n.Position.Add(delta))
	}
}

// SetNodeSize resizes a node. Negative dimensions clamp to zero.
func (s *Store) SetNodeSize(id string, size geom.Size) {
	n, ok := s.nodes.Get(id)
	if !ok {
		return
	}
	if size.Width < 0 {
		size.Width = 0
	}
	if size.Height < 0 {
		size.Height = 0
	}
	if n.Size == size {
		return
	}
	n.Size = size
	s.bus.Publish(event.Event{Type: event.NodeResized, ID: id, Size: size})
}

// SetNodeVisible toggles a node's visibility flag.
func (s *Store) SetNodeVisible(id string, visible bool) {
	n, ok := s.nodes.Get(id)
	if !ok || n.Visible == visible {
		return
	}
	n.Visible = visible
	s.bus.Publish(event.Event{Type: event.NodeVisibilityChanged, ID: id})
}

// SetNodePorts replaces a node's port lists wholesale.
func (s *Store) SetNodePorts(id string, inputs, outputs []Port) {
	n, ok := s.nodes.Get(id)
	if !ok {
		return
	}
	n.Inputs = append([]Port(nil), inputs...)
	n.Outputs = append([]Port(nil), outputs...)
	s.bus.Publish(event.Event{Type: event.NodePortsChanged, ID: id})
}

// --- connections ---

// AddConnection inserts c after validating that both endpoints name an
// existing node and port, and that a single-input target port is free.
func (s *Store) AddConnection(c *Connection) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, exists := s.connections.Get(c.ID); exists {
		return errors.Wrapf(ErrDuplicateID, "connection %q", c.ID)
	}
	src, ok := s.nodes.Get(c.SourceNode)
	if !ok {
		return errors.Wrapf(ErrNodeNotFound, "connection source %q", c.SourceNode)
	}
	if _, ok := src.FindPort(c.SourcePort, Output); !ok {
		return errors.Wrapf(ErrPortNotFound, "output %q on node %q", c.SourcePort, c.SourceNode)
	}
	dst, ok := s.nodes.Get(c.TargetNode)
	if !ok {
		return errors.Wrapf(ErrNodeNotFound, "connection target %q", c.TargetNode)
	}
	port, ok := dst.FindPort(c.TargetPort, Input)
	if !ok {
		return errors.Wrapf(ErrPortNotFound, "input %q on node %q", c.TargetPort, c.TargetNode)
	}
	if !port.AllowMultiple {
		for pair := s.connections.Oldest(); pair != nil; pair = pair.Next() {
			if pair.Value.TargetNode == c.TargetNode && pair.Value.TargetPort == c.TargetPort {
				return errors.Wrapf(ErrPortOccupied, "input %q on node %q", c.TargetPort, c.TargetNode)
			}
		}
	}
	if c.Style == "" {
		c.Style = s.defaultStyle()
	}
	s.connections.Set(c.ID, c)
	s.bus.Publish(event.Event{Type: event.ConnectionAdded, ID: c.ID, Nodes: []string{c.SourceNode, c.TargetNode}})
	return nil
}

// Connection looks a connection up by id.
func (s *Store) Connection(id string) (*Connection, bool) {
	c, ok := s.connections.Get(id)
	return c, ok
}

// Connections returns all connections in insertion order.
func (s *Store) Connections() []*Connection {
	out := make([]*Connection, 0, s.connections.Len())
	for pair := s.connections.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// ConnectionCount returns the number of connections.
func (s *Store) ConnectionCount() int {
	return s.connections.Len()
}

// ConnectionsForNode returns every connection touching nodeID.
func (s *Store) ConnectionsForNode(nodeID string) []*Connection {
	var out []*Connection
	for pair := s.connections.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.Touches(nodeID) {
			out = append(out, pair.Value)
		}
	}
	return out
}

// RemoveConnection deletes a connection and clears its selection membership.
// No-op when absent.
func (s *Store) RemoveConnection(id string) {
	c, ok := s.connections.Get(id)
	if !ok {
		return
	}
	s.connections.Delete(id)
	delete(s.selConnections, id)
	s.bus.Publish(event.Event{Type: event.ConnectionRemoved, ID: id, Nodes: []string{c.SourceNode, c.TargetNode}})
}

// --- control points ---

// AddControlPoint inserts a waypoint at index. The index clamps into range;
// the connection must exist.
func (s *Store) AddControlPoint(connID string, index int, p geom.Point) error {
	c, ok := s.connections.Get(connID)
	if !ok {
		return errors.Wrapf(ErrConnectionNotFound, "add control point on %q", connID)
	}
	if index < 0 {
		index = 0
	}
	if index > len(c.ControlPoints) {
		index = len(c.ControlPoints)
	}
	c.ControlPoints = append(c.ControlPoints, geom.Point{})
	copy(c.ControlPoints[index+1:], c.ControlPoints[index:])
	c.ControlPoints[index] = p
	s.bus.Publish(event.Event{Type: event.ConnectionPathChanged, ID: connID})
	return nil
}

// UpdateControlPoint moves an existing waypoint. An out-of-range index is a
// silent no-op; a missing connection is an error.
func (s *Store) UpdateControlPoint(connID string, index int, p geom.Point) error {
	c, ok := s.connections.Get(connID)
	if !ok {
		return errors.Wrapf(ErrConnectionNotFound, "update control point on %q", connID)
	}
	if index < 0 || index >= len(c.ControlPoints) {
		return nil
	}
	c.ControlPoints[index] = p
	s.bus.Publish(event.Event{Type: event.ConnectionPathChanged, ID: connID})
	return nil
}

// RemoveControlPoint deletes the waypoint at index. An out-of-range index is
// a silent no-op; a missing connection is an error.
func (s *Store) RemoveControlPoint(connID string, index int) error {
	c, ok := s.connections.Get(connID)
	if !ok {
		return errors.Wrapf(ErrConnectionNotFound, "remove control point on %q", connID)
	}
	if index < 0 || index >= len(c.ControlPoints) {
		return nil
	}
	c.ControlPoints = append(c.ControlPoints[:index], c.ControlPoints[index+1:]...)
	s.bus.Publish(event.Event{Type: event.ConnectionPathChanged, ID: connID})
	return nil
}

// ClearControlPoints drops every waypoint, reverting the connection to its
// algorithmic route.
func (s *Store) ClearControlPoints(connID string) error {
	c, ok := s.connections.Get(connID)
	if !ok {
		return errors.Wrapf(ErrConnectionNotFound, "clear control points on %q", connID)
	}
	if len(c.ControlPoints) == 0 {
		return nil
	}
	c.ControlPoints = nil
	s.bus.Publish(event.Event{Type: event.ConnectionPathChanged, ID: connID})
	return nil
}

// SetConnectionStyle switches a connection's routing style.
func (s *Store) SetConnectionStyle(connID string, style RoutingStyle) error {
	c, ok := s.connections.Get(connID)
	if !ok {
		return errors.Wrapf(ErrConnectionNotFound, "set style on %q", connID)
	}
	if c.Style == style {
		return nil
	}
	c.Style = style
	s.bus.Publish(event.Event{Type: event.ConnectionPathChanged, ID: connID})
	return nil
}

// --- annotations ---

// AddAnnotation inserts a comment or group. Duplicate ids are rejected.
func (s *Store) AddAnnotation(a *Annotation) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if _, exists := s.annotations.Get(a.ID); exists {
		return errors.Wrapf(ErrDuplicateID, "annotation %q", a.ID)
	}
	if a.Kind == "" {
		a.Kind = AnnotationComment
	}
	s.annotations.Set(a.ID, a)
	s.bus.Publish(event.Event{Type: event.AnnotationAdded, ID: a.ID})
	return nil
}

// Annotation looks an annotation up by id.
func (s *Store) Annotation(id string) (*Annotation, bool) {
	a, ok := s.annotations.Get(id)
	return a, ok
}

// Annotations returns all annotations in insertion order.
func (s *Store) Annotations() []*Annotation {
	out := make([]*Annotation, 0, s.annotations.Len())
	for pair := s.annotations.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// RemoveAnnotation deletes an annotation. No-op when absent.
func (s *Store) RemoveAnnotation(id string) {
	if _, ok := s.annotations.Get(id); !ok {
		return
	}
	s.annotations.Delete(id)
	delete(s.selAnnotations, id)
	s.bus.Publish(event.Event{Type: event.AnnotationRemoved, ID: id})
}

// AddNodeToGroup registers a node as a member of a group annotation.
func (s *Store) AddNodeToGroup(groupID, nodeID string) error {
	a, ok := s.annotations.Get(groupID)
	if !ok || a.Kind != AnnotationGroup {
		return errors.Wrapf(ErrAnnotationNotFound, "group %q", groupID)
	}
	if _, ok := s.nodes.Get(nodeID); !ok {
		return errors.Wrapf(ErrNodeNotFound, "group member %q", nodeID)
	}
	if a.HasMember(nodeID) {
		return nil
	}
	a.Members = append(a.Members, nodeID)
	return nil
}

// RemoveNodeFromGroup drops a membership. A group left empty is deleted.
func (s *Store) RemoveNodeFromGroup(groupID, nodeID string) error {
	a, ok := s.annotations.Get(groupID)
	if !ok || a.Kind != AnnotationGroup {
		return errors.Wrapf(ErrAnnotationNotFound, "group %q", groupID)
	}
	for i, id := range a.Members {
		if id == nodeID {
			a.Members = append(a.Members[:i], a.Members[i+1:]...)
			break
		}
	}
	if len(a.Members) == 0 {
		s.RemoveAnnotation(groupID)
	}
	return nil
}

// detachFromGroups removes nodeID from every group it belongs to, deleting
// groups that end up empty. Used by the node-removal cascade.
func (s *Store) detachFromGroups(nodeID string) {
	var emptied []string
	for pair := s.annotations.Oldest(); pair != nil; pair = pair.Next() {
		a := pair.Value
		if a.Kind != AnnotationGroup || !a.HasMember(nodeID) {
			continue
		}
		for i, id := range a.Members {
			if id == nodeID {
				a.Members = append(a.Members[:i], a.Members[i+1:]...)
				break
			}
		}
		if len(a.Members) == 0 {
			emptied = append(emptied, a.ID)
		}
	}
	for _, id := range emptied {
		s.RemoveAnnotation(id)
	}
}

// --- shared helpers ---

// ContentBounds returns the union of all node bounds, or false when the
// graph has no nodes.
func (s *Store) ContentBounds() (geom.Rect, bool) {
	var bounds geom.Rect
	found := false
	for pair := s.nodes.Oldest(); pair != nil; pair = pair.Next() {
		b := pair.Value.Bounds()
		if !found {
			bounds = b
			found = true
			continue
		}
		bounds = bounds.Union(b)
	}
	return bounds, found
}

func (s *Store) defaultStyle() RoutingStyle {
	if s.opts.DefaultStyle != "" {
		return s.opts.DefaultStyle
	}
	return RouteBezier
}

func (s *Store) snap(p geom.Point) geom.Point {
	step := s.opts.GridSnap
	if step <= 0 {
		return p
	}
	return geom.Point{
		X: math.Round(p.X/step) * step,
		Y: math.Round(p.Y/step) * step,
	}
}

func (s *Store) maxZ() int {
	if s.nodes.Len() == 0 {
		return 0
	}
	maxZ := math.MinInt
	for pair := s.nodes.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.ZIndex > maxZ {
			maxZ = pair.Value.ZIndex
		}
	}
	return maxZ
}

func (s *Store) minZ() int {
	if s.nodes.Len() == 0 {
		return 0
	}
	minZ := math.MaxInt
	for pair := s.nodes.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.ZIndex < minZ {
			minZ = pair.Value.ZIndex
		}
	}
	return minZ
}
