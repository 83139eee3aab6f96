package graph

import (
	"sort"

	"tangle/event"
)

// Selection is split across three mutually exclusive domains: selecting in
// one clears the other two. Every mutation below publishes a single
// SelectionChanged event.

// SelectMode controls how a select call combines with the current set.
type SelectMode int

const (
	// SelectReplace clears the current set, then selects the target.
	SelectReplace SelectMode = iota
	// SelectToggle flips the target's membership, keeping the rest.
	SelectToggle
)

// SelectNode selects a node. Unknown ids are ignored.
func (s *Store) SelectNode(id string, mode SelectMode) {
	if _, ok := s.nodes.Get(id); !ok {
		return
	}
	s.selConnections = make(map[string]struct{})
	s.selAnnotations = make(map[string]struct{})
	if mode == SelectReplace {
		s.selNodes = map[string]struct{}{id: {}}
	} else if _, on := s.selNodes[id]; on {
		delete(s.selNodes, id)
	} else {
		s.selNodes[id] = struct{}{}
	}
	s.selectionChanged()
}

// SelectConnection selects a connection. Unknown ids are ignored.
func (s *Store) SelectConnection(id string, mode SelectMode) {
	if _, ok := s.connections.Get(id); !ok {
		return
	}
	s.selNodes = make(map[string]struct{})
	s.selAnnotations = make(map[string]struct{})
	if mode == SelectReplace {
		s.selConnections = map[string]struct{}{id: {}}
	} else if _, on := s.selConnections[id]; on {
		delete(s.selConnections, id)
	} else {
		s.selConnections[id] = struct{}{}
	}
	s.selectionChanged()
}

// SelectAnnotation selects an annotation. Unknown ids are ignored.
func (s *Store) SelectAnnotation(id string, mode SelectMode) {
	if _, ok := s.annotations.Get(id); !ok {
		return
	}
	s.selNodes = make(map[string]struct{})
	s.selConnections = make(map[string]struct{})
	if mode == SelectReplace {
		s.selAnnotations = map[string]struct{}{id: {}}
	} else if _, on := s.selAnnotations[id]; on {
		delete(s.selAnnotations, id)
	} else {
		s.selAnnotations[id] = struct{}{}
	}
	s.selectionChanged()
}

// SelectNodes replaces the node selection with the given set, e.g. from a
// marquee query. Unknown ids are dropped.
func (s *Store) SelectNodes(ids []string) {
	s.selConnections = make(map[string]struct{})
	s.selAnnotations = make(map[string]struct{})
	s.selNodes = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := s.nodes.Get(id); ok {
			s.selNodes[id] = struct{}{}
		}
	}
	s.selectionChanged()
}

// SelectAllNodes selects every node.
func (s *Store) SelectAllNodes() {
	ids := make([]string, 0, s.nodes.Len())
	for pair := s.nodes.Oldest(); pair != nil; pair = pair.Next() {
		ids = append(ids, pair.Key)
	}
	s.SelectNodes(ids)
}

// InvertNodeSelection selects exactly the currently unselected nodes.
func (s *Store) InvertNodeSelection() {
	var ids []string
	for pair := s.nodes.Oldest(); pair != nil; pair = pair.Next() {
		if _, on := s.selNodes[pair.Key]; !on {
			ids = append(ids, pair.Key)
		}
	}
	s.SelectNodes(ids)
}

// SelectNodesByType selects every node carrying the given type tag.
func (s *Store) SelectNodesByType(typeTag string) {
	var ids []string
	for pair := s.nodes.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.Type == typeTag {
			ids = append(ids, pair.Key)
		}
	}
	s.SelectNodes(ids)
}

// ClearSelection empties all three selection domains.
func (s *Store) ClearSelection() {
	if len(s.selNodes) == 0 && len(s.selConnections) == 0 && len(s.selAnnotations) == 0 {
		return
	}
	s.selNodes = make(map[string]struct{})
	s.selConnections = make(map[string]struct{})
	s.selAnnotations = make(map[string]struct{})
	s.selectionChanged()
}

// SelectedNodes returns the selected node ids, sorted for determinism.
func (s *Store) SelectedNodes() []string {
	return sortedKeys(s.selNodes)
}

// SelectedConnections returns the selected connection ids, sorted.
func (s *Store) SelectedConnections() []string {
	return sortedKeys(s.selConnections)
}

// SelectedAnnotations returns the selected annotation ids, sorted.
func (s *Store) SelectedAnnotations() []string {
	return sortedKeys(s.selAnnotations)
}

// IsNodeSelected reports membership in the node selection.
func (s *Store) IsNodeSelected(id string) bool {
	_, on := s.selNodes[id]
	return on
}

// selectionChanged mirrors the sets onto the entities' Selected flags and
// publishes a single event.
func (s *Store) selectionChanged() {
	for pair := s.nodes.Oldest(); pair != nil; pair = pair.Next() {
		_, on := s.selNodes[pair.Key]
		pair.Value.Selected = on
	}
	for pair := s.connections.Oldest(); pair != nil; pair = pair.Next() {
		_, on := s.selConnections[pair.Key]
		pair.Value.Selected = on
	}
	for pair := s.annotations.Oldest(); pair != nil; pair = pair.Next() {
		_, on := s.selAnnotations[pair.Key]
		pair.Value.Selected = on
	}
	s.bus.Publish(event.Event{Type: event.SelectionChanged})
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
