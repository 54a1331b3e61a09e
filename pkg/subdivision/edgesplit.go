package subdivision

import (
	"gonum.org/v1/gonum/spatial/r3"

	"labelmesh/pkg/mesh"
)

// edgeRules supplies the geometry of an edge-splitting scheme. Both rules read
// positions from the input mesh only.
type edgeRules interface {
	// edgePoint returns the position of the point inserted on edge (a, b).
	edgePoint(m *mesh.Mesh, topo *mesh.Topology, a, b int) r3.Vec

	// vertexPoint returns the new position of old point v and whether it moves.
	vertexPoint(m *mesh.Mesh, topo *mesh.Topology, v int) (r3.Vec, bool)
}

// splitEdges performs a 1-to-4 split of every eligible triangle. Old points
// keep their indices, inserted points are appended, and an edge shared by two
// eligible cells gets a single inserted point.
func splitEdges(m *mesh.Mesh, eligible []int, rules edgeRules) (*mesh.Mesh, ChildMap, error) {
	if err := checkCellData(m); err != nil {
		return nil, nil, err
	}
	mask, err := eligibleMask(m, eligible)
	if err != nil {
		return nil, nil, err
	}
	topo := mesh.NewTopology(m)

	out := &mesh.Mesh{
		Points:   append([]r3.Vec(nil), m.Points...),
		Cells:    make([][3]int, 0, len(m.Cells)+3*len(eligible)),
		CellData: make([]float64, 0, len(m.Cells)+3*len(eligible)),
	}
	for v := range m.Points {
		if !allIncidentEligible(topo, mask, v) {
			continue
		}
		if p, ok := rules.vertexPoint(m, topo, v); ok {
			out.Points[v] = p
		}
	}

	inserted := make(map[mesh.Edge]int)
	edgeIndex := func(a, b int) int {
		e := mesh.MakeEdge(a, b)
		if idx, ok := inserted[e]; ok {
			return idx
		}
		idx := out.AddPoint(rules.edgePoint(m, topo, a, b))
		inserted[e] = idx
		return idx
	}

	children := make(ChildMap, len(m.Cells))
	for i, c := range m.Cells {
		data := m.CellData[i]
		if !mask[i] {
			children[i] = []int{out.AddCell(c, data)}
			continue
		}
		ab := edgeIndex(c[0], c[1])
		bc := edgeIndex(c[1], c[2])
		ca := edgeIndex(c[2], c[0])
		children[i] = []int{
			out.AddCell([3]int{c[0], ab, ca}, data),
			out.AddCell([3]int{ab, c[1], bc}, data),
			out.AddCell([3]int{ca, bc, c[2]}, data),
			out.AddCell([3]int{ab, bc, ca}, data),
		}
	}
	return out, children, nil
}

func midpoint(m *mesh.Mesh, a, b int) r3.Vec {
	return r3.Scale(0.5, r3.Add(m.Points[a], m.Points[b]))
}
