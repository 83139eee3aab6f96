// Package graph owns the diagram model: nodes with ports, connections,
// annotations, selection state and stacking order. The Store is the single
// writer; everything else in the engine consumes it read-only.
package graph

import (
	"tangle/geom"
)

// Direction says which side of a connection a port accepts.
type Direction string

const (
	Input  Direction = "input"
	Output Direction = "output"
)

// RoutingStyle picks the algorithm a connection is routed with when it has
// no explicit control points.
type RoutingStyle string

const (
	RouteStraight   RoutingStyle = "straight"
	RouteBezier     RoutingStyle = "bezier"
	RouteStep       RoutingStyle = "step"
	RouteSmoothStep RoutingStyle = "smoothstep"
)

// Port is a named attachment point on a node's boundary. Anchor is a
// fractional position: (0,0.5) is the middle of the left edge, (1,0.5) the
// middle of the right edge.
type Port struct {
	ID            string     `json:"id" validate:"required"`
	Name          string     `json:"name"`
	Anchor        geom.Point `json:"anchor"`
	Direction     Direction  `json:"direction" validate:"oneof=input output"`
	AllowMultiple bool       `json:"allow_multiple"`
}

// Node is a positioned, sized diagram entity.
type Node struct {
	ID       string         `json:"id" validate:"required"`
	Type     string         `json:"type"`
	Position geom.Point     `json:"position"`
	Size     geom.Size      `json:"size"`
	ZIndex   int            `json:"z_index"`
	Visible  bool           `json:"visible"`
	Selected bool           `json:"-"`
	Inputs   []Port         `json:"inputs" validate:"dive"`
	Outputs  []Port         `json:"outputs" validate:"dive"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// Bounds returns the node's body rectangle in graph space.
func (n *Node) Bounds() geom.Rect {
	return geom.RectFromPosSize(n.Position, n.Size)
}

// Center returns the middle of the node's body.
func (n *Node) Center() geom.Point {
	return n.Bounds().Center()
}

// PortAnchor resolves a port's fractional anchor to an absolute graph-space
// point on the node boundary.
func (n *Node) PortAnchor(p Port) geom.Point {
	return geom.Point{
		X: n.Position.X + p.Anchor.X*n.Size.Width,
		Y: n.Position.Y + p.Anchor.Y*n.Size.Height,
	}
}

// FindPort looks a port up by id and direction.
func (n *Node) FindPort(portID string, dir Direction) (Port, bool) {
	ports := n.Inputs
	if dir == Output {
		ports = n.Outputs
	}
	for _, p := range ports {
		if p.ID == portID {
			return p, true
		}
	}
	return Port{}, false
}

// Clone returns a deep copy, including the payload.
func (n *Node) Clone() *Node {
	out := *n
	out.Inputs = append([]Port(nil), n.Inputs...)
	out.Outputs = append([]Port(nil), n.Outputs...)
	out.Payload = clonePayload(n.Payload)
	return &out
}

func clonePayload(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		if nested, ok := v.(map[string]any); ok {
			out[k] = clonePayload(nested)
			continue
		}
		out[k] = v
	}
	return out
}

// Connection is a directed edge from an output port to an input port.
type Connection struct {
	ID            string       `json:"id" validate:"required"`
	SourceNode    string       `json:"source_node" validate:"required"`
	SourcePort    string       `json:"source_port" validate:"required"`
	TargetNode    string       `json:"target_node" validate:"required"`
	TargetPort    string       `json:"target_port" validate:"required"`
	ControlPoints []geom.Point `json:"control_points,omitempty"`
	Style         RoutingStyle `json:"style,omitempty"`
	Label         string       `json:"label,omitempty"`
	Selected      bool         `json:"-"`
}

// Clone returns a deep copy.
func (c *Connection) Clone() *Connection {
	out := *c
	out.ControlPoints = append([]geom.Point(nil), c.ControlPoints...)
	return &out
}

// Touches reports whether the connection references nodeID at either end.
func (c *Connection) Touches(nodeID string) bool {
	return c.SourceNode == nodeID || c.TargetNode == nodeID
}

// AnnotationKind distinguishes free-floating comments from node groups.
type AnnotationKind string

const (
	AnnotationComment AnnotationKind = "comment"
	AnnotationGroup   AnnotationKind = "group"
)

// Annotation is a comment or group overlay. Members is only meaningful for
// groups.
type Annotation struct {
	ID       string         `json:"id" validate:"required"`
	Kind     AnnotationKind `json:"kind" validate:"oneof=comment group"`
	Bounds   geom.Rect      `json:"bounds"`
	Label    string         `json:"label,omitempty"`
	Members  []string       `json:"members,omitempty"`
	Selected bool           `json:"-"`
}

// Clone returns a deep copy.
func (a *Annotation) Clone() *Annotation {
	out := *a
	out.Members = append([]string(nil), a.Members...)
	return &out
}

// HasMember reports whether nodeID belongs to this group.
func (a *Annotation) HasMember(nodeID string) bool {
	for _, id := range a.Members {
		if id == nodeID {
			return true
		}
	}
	return false
}
