package mesh

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// RegularSphere returns a closed triangulated unit sphere built from an
// octahedron split resolution times, with every point projected back onto
// the sphere. Resolution 0 gives 8 cells; each level multiplies that by 4.
func RegularSphere(resolution int) *Mesh {
	m := New([]r3.Vec{
		{X: 1}, {X: -1},
		{Y: 1}, {Y: -1},
		{Z: 1}, {Z: -1},
	}, [][3]int{
		{0, 2, 4}, {2, 1, 4}, {1, 3, 4}, {3, 0, 4},
		{2, 0, 5}, {1, 2, 5}, {3, 1, 5}, {0, 3, 5},
	})

	for level := 0; level < resolution; level++ {
		mid := make(map[Edge]int)
		midpoint := func(a, b int) int {
			e := MakeEdge(a, b)
			if idx, ok := mid[e]; ok {
				return idx
			}
			p := r3.Unit(r3.Scale(0.5, r3.Add(m.Points[a], m.Points[b])))
			idx := m.AddPoint(p)
			mid[e] = idx
			return idx
		}

		cells := make([][3]int, 0, 4*len(m.Cells))
		for _, c := range m.Cells {
			ab := midpoint(c[0], c[1])
			bc := midpoint(c[1], c[2])
			ca := midpoint(c[2], c[0])
			cells = append(cells,
				[3]int{c[0], ab, ca},
				[3]int{ab, c[1], bc},
				[3]int{ca, bc, c[2]},
				[3]int{ab, bc, ca},
			)
		}
		m.Cells = cells
		m.CellData = make([]float64, len(cells))
	}
	return m
}
