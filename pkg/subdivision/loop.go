package subdivision

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"labelmesh/pkg/mesh"
)

// Loop is Loop's approximating scheme: inserted points use the 3/8-1/8 edge
// mask and old points are pulled towards their one-ring with Warren's beta.
// An old point moves only when every cell around it is being subdivided.
type Loop struct{}

func (Loop) Name() string { return "loop" }

func (l Loop) SubdivideOnePass(m *mesh.Mesh, eligible []int) (*mesh.Mesh, ChildMap, error) {
	return splitEdges(m, eligible, l)
}

func (Loop) edgePoint(m *mesh.Mesh, topo *mesh.Topology, a, b int) r3.Vec {
	cells := topo.EdgeCells(a, b)
	if len(cells) != 2 {
		return midpoint(m, a, b)
	}
	c := m.Points[topo.OppositeVertex(cells[0], a, b)]
	d := m.Points[topo.OppositeVertex(cells[1], a, b)]
	return r3.Add(
		r3.Scale(3.0/8.0, r3.Add(m.Points[a], m.Points[b])),
		r3.Scale(1.0/8.0, r3.Add(c, d)),
	)
}

func (Loop) vertexPoint(m *mesh.Mesh, topo *mesh.Topology, v int) (r3.Vec, bool) {
	p := m.Points[v]

	if boundary := topo.BoundaryNeighbors(v); len(boundary) > 0 {
		if len(boundary) != 2 {
			return p, false
		}
		sum := r3.Add(m.Points[boundary[0]], m.Points[boundary[1]])
		return r3.Add(r3.Scale(3.0/4.0, p), r3.Scale(1.0/8.0, sum)), true
	}

	if !topo.IsInteriorVertex(v) {
		return p, false
	}
	nbrs := topo.Neighbors(v)
	n := float64(len(nbrs))
	beta := loopBeta(len(nbrs))

	var sum r3.Vec
	for _, q := range nbrs {
		sum = r3.Add(sum, m.Points[q])
	}
	return r3.Add(r3.Scale(1-n*beta, p), r3.Scale(beta, sum)), true
}

// loopBeta is Loop's original vertex weight for valence n.
func loopBeta(n int) float64 {
	k := float64(n)
	t := 3.0/8.0 + 0.25*math.Cos(2*math.Pi/k)
	return (5.0/8.0 - t*t) / k
}
