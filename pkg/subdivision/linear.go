package subdivision

import (
	"gonum.org/v1/gonum/spatial/r3"

	"labelmesh/pkg/mesh"
)

// Linear splits each eligible triangle into four at its edge midpoints. The
// surface geometry does not change.
type Linear struct{}

func (Linear) Name() string { return "linear" }

func (l Linear) SubdivideOnePass(m *mesh.Mesh, eligible []int) (*mesh.Mesh, ChildMap, error) {
	return splitEdges(m, eligible, l)
}

func (Linear) edgePoint(m *mesh.Mesh, _ *mesh.Topology, a, b int) r3.Vec {
	return midpoint(m, a, b)
}

func (Linear) vertexPoint(*mesh.Mesh, *mesh.Topology, int) (r3.Vec, bool) {
	return r3.Vec{}, false
}
