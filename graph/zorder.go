package graph

import "sort"

// Z-order operations. Z-index is a total order over nodes; ties can appear
// after a bulk load, so the relative moves re-index the stack to distinct
// consecutive integers before swapping, which guarantees a visible effect.

// BringToFront raises a node above every other node.
func (s *Store) BringToFront(id string) {
	n, ok := s.nodes.Get(id)
	if !ok {
		return
	}
	top := s.maxZ()
	if n.ZIndex > top || (n.ZIndex == top && s.countAtZ(top) == 1) {
		return
	}
	n.ZIndex = top + 1
}

// SendToBack lowers a node below every other node.
func (s *Store) SendToBack(id string) {
	n, ok := s.nodes.Get(id)
	if !ok {
		return
	}
	bottom := s.minZ()
	if n.ZIndex < bottom || (n.ZIndex == bottom && s.countAtZ(bottom) == 1) {
		return
	}
	n.ZIndex = bottom - 1
}

// BringForward swaps a node with the next one above it in stacking order.
func (s *Store) BringForward(id string) {
	s.swapWithNeighbor(id, +1)
}

// SendBackward swaps a node with the next one below it in stacking order.
func (s *Store) SendBackward(id string) {
	s.swapWithNeighbor(id, -1)
}

// NodesByZ returns all nodes sorted bottom-to-top. Ties break on insertion
// order, which the ordered registry preserves.
func (s *Store) NodesByZ() []*Node {
	nodes := s.Nodes()
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].ZIndex < nodes[j].ZIndex
	})
	return nodes
}

func (s *Store) swapWithNeighbor(id string, dir int) {
	if _, ok := s.nodes.Get(id); !ok {
		return
	}
	stack := s.NodesByZ()
	idx := -1
	for i, n := range stack {
		if n.ID == id {
			idx = i
			break
		}
	}
	neighbor := idx + dir
	if neighbor < 0 || neighbor >= len(stack) {
		return
	}
	if stack[idx].ZIndex == stack[neighbor].ZIndex {
		// A tied swap would be invisible; flatten the stack first.
		for i, n := range stack {
			n.ZIndex = i
		}
	}
	stack[idx].ZIndex, stack[neighbor].ZIndex = stack[neighbor].ZIndex, stack[idx].ZIndex
}

func (s *Store) countAtZ(z int) int {
	count := 0
	for pair := s.nodes.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.ZIndex == z {
			count++
		}
	}
	return count
}
