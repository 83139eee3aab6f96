package graph

import (
	"encoding/json"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"tangle/event"
	"tangle/geom"
)

// ViewportState is the persisted slice of the viewport: the transform, not
// the screen size.
type ViewportState struct {
	Pan  geom.Point `json:"pan"`
	Zoom float64    `json:"zoom" validate:"gt=0"`
}

// Snapshot is the exchange format: everything needed to reproduce node
// positions, sizes, ports and connection topology. Derived geometry (routed
// paths, spatial index) is deliberately absent; it is recomputed on load.
type Snapshot struct {
	Nodes       []Node        `json:"nodes" validate:"dive"`
	Connections []Connection  `json:"connections" validate:"dive"`
	Annotations []Annotation  `json:"annotations,omitempty" validate:"dive"`
	Viewport    ViewportState `json:"viewport"`
}

var validate = validator.New()

// Validate checks field-level constraints and referential integrity: every
// connection endpoint must name an existing node and port, every group
// member an existing node, and ids must be unique per namespace.
func (snap *Snapshot) Validate() error {
	if err := validate.Struct(snap); err != nil {
		return errors.Wrap(ErrInvalidSnapshot, err.Error())
	}
	nodes := make(map[string]*Node, len(snap.Nodes))
	for i := range snap.Nodes {
		n := &snap.Nodes[i]
		if _, dup := nodes[n.ID]; dup {
			return errors.Wrapf(ErrInvalidSnapshot, "duplicate node id %q", n.ID)
		}
		nodes[n.ID] = n
	}
	connIDs := make(map[string]struct{}, len(snap.Connections))
	for i := range snap.Connections {
		c := &snap.Connections[i]
		if _, dup := connIDs[c.ID]; dup {
			return errors.Wrapf(ErrInvalidSnapshot, "duplicate connection id %q", c.ID)
		}
		connIDs[c.ID] = struct{}{}
		src, ok := nodes[c.SourceNode]
		if !ok {
			return errors.Wrapf(ErrInvalidSnapshot, "connection %q: unknown source node %q", c.ID, c.SourceNode)
		}
		if _, ok := src.FindPort(c.SourcePort, Output); !ok {
			return errors.Wrapf(ErrInvalidSnapshot, "connection %q: unknown output %q on %q", c.ID, c.SourcePort, c.SourceNode)
		}
		dst, ok := nodes[c.TargetNode]
		if !ok {
			return errors.Wrapf(ErrInvalidSnapshot, "connection %q: unknown target node %q", c.ID, c.TargetNode)
		}
		if _, ok := dst.FindPort(c.TargetPort, Input); !ok {
			return errors.Wrapf(ErrInvalidSnapshot, "connection %q: unknown input %q on %q", c.ID, c.TargetPort, c.TargetNode)
		}
	}
	annIDs := make(map[string]struct{}, len(snap.Annotations))
	for i := range snap.Annotations {
		a := &snap.Annotations[i]
		if _, dup := annIDs[a.ID]; dup {
			return errors.Wrapf(ErrInvalidSnapshot, "duplicate annotation id %q", a.ID)
		}
		annIDs[a.ID] = struct{}{}
		for _, member := range a.Members {
			if _, ok := nodes[member]; !ok {
				return errors.Wrapf(ErrInvalidSnapshot, "group %q: unknown member %q", a.ID, member)
			}
		}
	}
	return nil
}

// Export snapshots the current graph by value. Mutating the result never
// touches the store.
func (s *Store) Export(vp ViewportState) Snapshot {
	snap := Snapshot{Viewport: vp}
	for pair := s.nodes.Oldest(); pair != nil; pair = pair.Next() {
		snap.Nodes = append(snap.Nodes, *pair.Value.Clone())
	}
	for pair := s.connections.Oldest(); pair != nil; pair = pair.Next() {
		snap.Connections = append(snap.Connections, *pair.Value.Clone())
	}
	for pair := s.annotations.Oldest(); pair != nil; pair = pair.Next() {
		snap.Annotations = append(snap.Annotations, *pair.Value.Clone())
	}
	return snap
}

// Load atomically replaces the whole graph with a validated snapshot. On a
// validation error the store is left untouched. It publishes exactly one
// GraphLoaded event; index rebuild is the subscriber's job.
func (s *Store) Load(snap Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	s.nodes = orderedmap.New[string, *Node]()
	s.connections = orderedmap.New[string, *Connection]()
	s.annotations = orderedmap.New[string, *Annotation]()
	s.selNodes = make(map[string]struct{})
	s.selConnections = make(map[string]struct{})
	s.selAnnotations = make(map[string]struct{})
	for i := range snap.Nodes {
		n := snap.Nodes[i].Clone()
		n.Selected = false
		s.nodes.Set(n.ID, n)
	}
	for i := range snap.Connections {
		c := snap.Connections[i].Clone()
		c.Selected = false
		if c.Style == "" {
			c.Style = s.defaultStyle()
		}
		s.connections.Set(c.ID, c)
	}
	for i := range snap.Annotations {
		a := snap.Annotations[i].Clone()
		a.Selected = false
		s.annotations.Set(a.ID, a)
	}
	s.bus.Publish(event.Event{Type: event.GraphLoaded})
	return nil
}

// Clear removes everything and resets selections in one step. Calling it on
// an already-empty store is a no-op.
func (s *Store) Clear() {
	if s.nodes.Len() == 0 && s.connections.Len() == 0 && s.annotations.Len() == 0 {
		return
	}
	s.nodes = orderedmap.New[string, *Node]()
	s.connections = orderedmap.New[string, *Connection]()
	s.annotations = orderedmap.New[string, *Annotation]()
	s.selNodes = make(map[string]struct{})
	s.selConnections = make(map[string]struct{})
	s.selAnnotations = make(map[string]struct{})
	s.bus.Publish(event.Event{Type: event.GraphCleared})
}

// WriteJSON serializes a snapshot.
func (snap Snapshot) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(snap), "encoding snapshot")
}

// ReadSnapshot parses and validates a snapshot from JSON.
func ReadSnapshot(r io.Reader) (Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return Snapshot{}, errors.Wrap(err, "decoding snapshot")
	}
	if err := snap.Validate(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
