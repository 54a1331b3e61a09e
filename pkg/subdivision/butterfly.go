package subdivision

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"labelmesh/pkg/mesh"
)

// ModifiedButterfly is Zorin's interpolating butterfly scheme. Old points
// never move. Edges between two regular (valence 6) points use the eight point
// butterfly stencil; an edge touching an extraordinary point uses that
// point's ring weights, averaged when both ends are extraordinary. Edges on
// or next to a boundary fall back to the midpoint.
type ModifiedButterfly struct{}

func (ModifiedButterfly) Name() string { return "butterfly" }

func (b ModifiedButterfly) SubdivideOnePass(m *mesh.Mesh, eligible []int) (*mesh.Mesh, ChildMap, error) {
	return splitEdges(m, eligible, b)
}

func (ModifiedButterfly) vertexPoint(*mesh.Mesh, *mesh.Topology, int) (r3.Vec, bool) {
	return r3.Vec{}, false
}

func (ModifiedButterfly) edgePoint(m *mesh.Mesh, topo *mesh.Topology, a, b int) r3.Vec {
	cells := topo.EdgeCells(a, b)
	if len(cells) != 2 {
		return midpoint(m, a, b)
	}
	ringA, okA := topo.Ring(a, b)
	ringB, okB := topo.Ring(b, a)
	if !okA || !okB {
		return midpoint(m, a, b)
	}

	regularA, regularB := len(ringA) == 6, len(ringB) == 6
	switch {
	case regularA && regularB:
		if p, ok := butterflyStencil(m, topo, cells, a, b); ok {
			return p
		}
		return midpoint(m, a, b)
	case regularA:
		return extraordinaryStencil(m, b, ringB)
	case regularB:
		return extraordinaryStencil(m, a, ringA)
	}
	return r3.Scale(0.5, r3.Add(extraordinaryStencil(m, a, ringA), extraordinaryStencil(m, b, ringB)))
}

// butterflyStencil evaluates 1/2(a+b) + 1/8(c+d) - 1/16(e+f+g+h), where c
// and d are opposite the edge and e..h are the wing points across the four
// outer edges of the two triangles.
func butterflyStencil(m *mesh.Mesh, topo *mesh.Topology, cells []int, a, b int) (r3.Vec, bool) {
	var wings r3.Vec
	var opposite r3.Vec
	for _, cell := range cells {
		c := topo.OppositeVertex(cell, a, b)
		opposite = r3.Add(opposite, m.Points[c])
		for _, end := range [2]int{a, b} {
			across := topo.OtherCell(cell, end, c)
			if across < 0 {
				return r3.Vec{}, false
			}
			wings = r3.Add(wings, m.Points[topo.OppositeVertex(across, end, c)])
		}
	}
	p := r3.Scale(0.5, r3.Add(m.Points[a], m.Points[b]))
	p = r3.Add(p, r3.Scale(1.0/8.0, opposite))
	return r3.Sub(p, r3.Scale(1.0/16.0, wings)), true
}

// extraordinaryStencil evaluates 3/4 v + sum(s_j * ring_j) with the ring
// starting at the other end of the edge.
func extraordinaryStencil(m *mesh.Mesh, v int, ring []int) r3.Vec {
	weights := butterflyWeights(len(ring))
	p := r3.Scale(3.0/4.0, m.Points[v])
	for j, q := range ring {
		p = r3.Add(p, r3.Scale(weights[j], m.Points[q]))
	}
	return p
}

func butterflyWeights(k int) []float64 {
	switch k {
	case 3:
		return []float64{5.0 / 12.0, -1.0 / 12.0, -1.0 / 12.0}
	case 4:
		return []float64{3.0 / 8.0, 0, -1.0 / 8.0, 0}
	}
	w := make([]float64, k)
	for j := range w {
		t := 2 * math.Pi * float64(j) / float64(k)
		w[j] = (0.25 + math.Cos(t) + 0.5*math.Cos(2*t)) / float64(k)
	}
	return w
}
