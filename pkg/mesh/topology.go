package mesh

import (
	"sort"
)

// Edge is an undirected edge stored with the smaller point index first.
type Edge [2]int

// MakeEdge returns the undirected edge between a and b.
func MakeEdge(a, b int) Edge {
	if a > b {
		a, b = b, a
	}
	return Edge{a, b}
}

// Topology indexes the edge and vertex adjacency of a mesh. It must be
// rebuilt when the mesh changes.
type Topology struct {
	mesh        *Mesh
	edgeCells   map[Edge][]int
	vertexCells [][]int
}

// NewTopology builds the adjacency of m.
func NewTopology(m *Mesh) *Topology {
	t := &Topology{
		mesh:        m,
		edgeCells:   make(map[Edge][]int, len(m.Cells)*3/2),
		vertexCells: make([][]int, len(m.Points)),
	}
	for i, c := range m.Cells {
		for j := 0; j < 3; j++ {
			e := MakeEdge(c[j], c[(j+1)%3])
			t.edgeCells[e] = append(t.edgeCells[e], i)
			t.vertexCells[c[j]] = append(t.vertexCells[c[j]], i)
		}
	}
	return t
}

// EdgeCells returns the cells sharing edge (a, b).
func (t *Topology) EdgeCells(a, b int) []int {
	return t.edgeCells[MakeEdge(a, b)]
}

// VertexCells returns the cells incident to v.
func (t *Topology) VertexCells(v int) []int {
	return t.vertexCells[v]
}

// Edges returns every edge of the mesh in a deterministic order.
func (t *Topology) Edges() []Edge {
	edges := make([]Edge, 0, len(t.edgeCells))
	for e := range t.edgeCells {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i][0] != edges[j][0] {
			return edges[i][0] < edges[j][0]
		}
		return edges[i][1] < edges[j][1]
	})
	return edges
}

// IsBoundaryEdge reports whether (a, b) is not shared by exactly two cells.
func (t *Topology) IsBoundaryEdge(a, b int) bool {
	return len(t.EdgeCells(a, b)) != 2
}

// OppositeVertex returns the corner of cell that is neither a nor b.
func (t *Topology) OppositeVertex(cell, a, b int) int {
	for _, p := range t.mesh.Cells[cell] {
		if p != a && p != b {
			return p
		}
	}
	return -1
}

// OtherCell returns the cell across edge (a, b) from cell, or -1.
func (t *Topology) OtherCell(cell, a, b int) int {
	cells := t.EdgeCells(a, b)
	if len(cells) != 2 {
		return -1
	}
	if cells[0] == cell {
		return cells[1]
	}
	return cells[0]
}

// Neighbors returns the distinct points connected to v by an edge, ascending.
func (t *Topology) Neighbors(v int) []int {
	seen := make(map[int]struct{})
	for _, c := range t.vertexCells[v] {
		for _, p := range t.mesh.Cells[c] {
			if p != v {
				seen[p] = struct{}{}
			}
		}
	}
	out := make([]int, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

// BoundaryNeighbors returns the points joined to v by boundary edges.
func (t *Topology) BoundaryNeighbors(v int) []int {
	var out []int
	for _, p := range t.Neighbors(v) {
		if t.IsBoundaryEdge(v, p) {
			out = append(out, p)
		}
	}
	return out
}

// Ring walks the one-ring of v starting at neighbour start, crossing one cell
// at a time. It returns false when v is on a boundary or its incident cells do
// not form a single closed fan.
func (t *Topology) Ring(v, start int) ([]int, bool) {
	incident := t.vertexCells[v]
	if len(incident) < 3 {
		return nil, false
	}
	cells := t.EdgeCells(v, start)
	if len(cells) != 2 {
		return nil, false
	}

	ring := []int{start}
	cell := cells[0]
	cur := start
	for steps := 0; steps < len(incident); steps++ {
		next := t.OppositeVertex(cell, v, cur)
		if next == start {
			if len(ring) != len(incident) {
				return nil, false
			}
			return ring, true
		}
		ring = append(ring, next)
		cell = t.OtherCell(cell, v, next)
		if cell < 0 {
			return nil, false
		}
		cur = next
	}
	return nil, false
}

// IsInteriorVertex reports whether v has a closed, manifold one-ring.
func (t *Topology) IsInteriorVertex(v int) bool {
	nbrs := t.Neighbors(v)
	if len(nbrs) == 0 {
		return false
	}
	_, ok := t.Ring(v, nbrs[0])
	return ok
}
