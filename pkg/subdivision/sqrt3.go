package subdivision

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"labelmesh/pkg/mesh"
)

// SquareThree is Kobbelt's √3 scheme. Each eligible triangle gets a point at
// its centroid and is split into three; every old edge whose two cells are
// both eligible is then flipped to join the two new centroids, and old points
// surrounded only by eligible cells are relaxed towards their one-ring.
//
// A flipped pair keeps its cell slots: the triangle written into a child slot
// carries the data value of that child's parent.
type SquareThree struct{}

func (SquareThree) Name() string { return "sqrt3" }

func (SquareThree) SubdivideOnePass(m *mesh.Mesh, eligible []int) (*mesh.Mesh, ChildMap, error) {
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
		Cells:    make([][3]int, 0, len(m.Cells)+2*len(eligible)),
		CellData: make([]float64, 0, len(m.Cells)+2*len(eligible)),
	}
	for v := range m.Points {
		if !allIncidentEligible(topo, mask, v) || !topo.IsInteriorVertex(v) {
			continue
		}
		out.Points[v] = sqrt3Relax(m, topo, v)
	}

	// edgeChild[k] is the child of an eligible cell that holds the directed
	// old edge cell[k] -> cell[k+1].
	type edgeChild struct {
		child  int
		centre int
	}
	split := make(map[int][3]edgeChild)

	children := make(ChildMap, len(m.Cells))
	for i, c := range m.Cells {
		data := m.CellData[i]
		if !mask[i] {
			children[i] = []int{out.AddCell(c, data)}
			continue
		}
		centre := out.AddPoint(m.Centroid(i))
		var ec [3]edgeChild
		for k := 0; k < 3; k++ {
			child := out.AddCell([3]int{c[k], c[(k+1)%3], centre}, data)
			ec[k] = edgeChild{child: child, centre: centre}
			children[i] = append(children[i], child)
		}
		split[i] = ec
	}

	directedSlot := func(cell, a, b int) (edgeChild, bool) {
		c := m.Cells[cell]
		for k := 0; k < 3; k++ {
			if c[k] == a && c[(k+1)%3] == b {
				return split[cell][k], true
			}
		}
		return edgeChild{}, false
	}

	for _, e := range topo.Edges() {
		cells := topo.EdgeCells(e[0], e[1])
		if len(cells) != 2 || !mask[cells[0]] || !mask[cells[1]] {
			continue
		}
		a, b := e[0], e[1]
		first, ok := directedSlot(cells[0], a, b)
		if !ok {
			a, b = b, a
			if first, ok = directedSlot(cells[0], a, b); !ok {
				continue
			}
		}
		// The neighbour must traverse the edge the other way; skip
		// inconsistently oriented pairs rather than fold the surface.
		second, ok := directedSlot(cells[1], b, a)
		if !ok {
			continue
		}
		out.Cells[first.child] = [3]int{a, second.centre, first.centre}
		out.Cells[second.child] = [3]int{b, first.centre, second.centre}
	}

	return out, children, nil
}

func sqrt3Relax(m *mesh.Mesh, topo *mesh.Topology, v int) r3.Vec {
	nbrs := topo.Neighbors(v)
	n := float64(len(nbrs))
	alpha := (4 - 2*math.Cos(2*math.Pi/n)) / 9

	var sum r3.Vec
	for _, q := range nbrs {
		sum = r3.Add(sum, m.Points[q])
	}
	return r3.Add(r3.Scale(1-alpha, m.Points[v]), r3.Scale(alpha/n, sum))
}
