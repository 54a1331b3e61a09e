package mesh

import (
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/spatial/r3"
)

func unitTriangle() *Mesh {
	return New([]r3.Vec{{}, {X: 1}, {Y: 1}}, [][3]int{{0, 1, 2}})
}

func TestRegularSphereCounts(t *testing.T) {
	tests := []struct {
		resolution, points, cells int
	}{
		{0, 6, 8},
		{1, 18, 32},
		{2, 66, 128},
	}
	for _, tt := range tests {
		m := RegularSphere(tt.resolution)
		if m.NumberOfPoints() != tt.points || m.NumberOfCells() != tt.cells {
			t.Errorf("RegularSphere(%d) has %d points %d cells, want %d and %d",
				tt.resolution, m.NumberOfPoints(), m.NumberOfCells(), tt.points, tt.cells)
		}
		for i, p := range m.Points {
			if math.Abs(r3.Norm(p)-1) > 1e-12 {
				t.Fatalf("point %d is off the unit sphere: %v", i, p)
			}
		}
		for i := range m.Cells {
			// outward winding
			if r3.Dot(m.Normal(i), m.Centroid(i)) <= 0 {
				t.Fatalf("cell %d of RegularSphere(%d) faces inwards", i, tt.resolution)
			}
		}
		if err := m.Validate(); err != nil {
			t.Errorf("RegularSphere(%d) is invalid: %v", tt.resolution, err)
		}
	}
}

func TestValidate(t *testing.T) {
	if err := unitTriangle().Validate(); err != nil {
		t.Errorf("valid triangle rejected: %v", err)
	}

	bad := map[string]*Mesh{
		"data":       {Points: unitTriangle().Points, Cells: [][3]int{{0, 1, 2}}},
		"range":      New([]r3.Vec{{}, {X: 1}}, [][3]int{{0, 1, 2}}),
		"degenerate": New([]r3.Vec{{}, {X: 1}, {Y: 1}}, [][3]int{{0, 1, 1}}),
	}
	for name, m := range bad {
		if err := m.Validate(); err == nil {
			t.Errorf("%s: Validate succeeded, want error", name)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	m := unitTriangle()
	m.SetCellData(0, 5)
	c := m.Clone()
	c.Points[0] = r3.Vec{X: 9}
	c.Cells[0] = [3]int{2, 1, 0}
	c.SetCellData(0, 7)
	if m.Points[0] != (r3.Vec{}) || m.Cells[0] != [3]int{0, 1, 2} || m.CellData[0] != 5 {
		t.Errorf("modifying the clone changed the original: %+v", m)
	}
}

func TestGeometryHelpers(t *testing.T) {
	m := unitTriangle()
	if got := m.Area(0); math.Abs(got-0.5) > 1e-15 {
		t.Errorf("Area = %g, want 0.5", got)
	}
	if got := m.Normal(0); got != (r3.Vec{Z: 1}) {
		t.Errorf("Normal = %v, want +z", got)
	}
	want := r3.Vec{X: 1.0 / 3, Y: 1.0 / 3}
	if got := m.Centroid(0); r3.Norm(r3.Sub(got, want)) > 1e-15 {
		t.Errorf("Centroid = %v, want %v", got, want)
	}
	lo, hi := m.Bounds()
	if lo != (r3.Vec{}) || hi != (r3.Vec{X: 1, Y: 1}) {
		t.Errorf("Bounds = %v %v", lo, hi)
	}

	flat := New([]r3.Vec{{}, {X: 1}, {X: 2}}, [][3]int{{0, 1, 2}})
	if got := flat.Normal(0); got != (r3.Vec{}) {
		t.Errorf("collinear Normal = %v, want zero", got)
	}
}

func TestAddCellKeepsDataInStep(t *testing.T) {
	m := &Mesh{}
	a := m.AddPoint(r3.Vec{})
	b := m.AddPoint(r3.Vec{X: 1})
	c := m.AddPoint(r3.Vec{Y: 1})
	d := m.AddPoint(r3.Vec{X: 1, Y: 1})
	m.AddCell([3]int{a, b, c}, 3)
	idx := m.AddCell([3]int{b, d, c}, 4)
	if idx != 1 {
		t.Errorf("AddCell returned %d, want 1", idx)
	}
	if diff := cmp.Diff([]float64{3, 4}, m.CellData); diff != "" {
		t.Errorf("cell data mismatch (-want +got):\n%s", diff)
	}
}

func TestTopologyClosedSurface(t *testing.T) {
	m := RegularSphere(0)
	topo := NewTopology(m)

	if got := len(topo.Edges()); got != 12 {
		t.Errorf("octahedron has %d edges, want 12", got)
	}
	for _, e := range topo.Edges() {
		if topo.IsBoundaryEdge(e[0], e[1]) {
			t.Errorf("edge %v is a boundary edge on a closed surface", e)
		}
	}

	// +z apex touches the four equator points
	if diff := cmp.Diff([]int{0, 1, 2, 3}, topo.Neighbors(4)); diff != "" {
		t.Errorf("Neighbors(4) mismatch (-want +got):\n%s", diff)
	}
	ring, ok := topo.Ring(4, 0)
	if !ok || len(ring) != 4 || ring[0] != 0 {
		t.Fatalf("Ring(4, 0) = %v, %v", ring, ok)
	}
	seen := make(map[int]bool)
	for i, p := range ring {
		seen[p] = true
		next := ring[(i+1)%len(ring)]
		if len(topo.EdgeCells(p, next)) != 2 {
			t.Errorf("ring points %d and %d are not adjacent", p, next)
		}
	}
	if len(seen) != 4 {
		t.Errorf("ring %v repeats points", ring)
	}
	if !topo.IsInteriorVertex(4) {
		t.Error("apex of a closed surface is not interior")
	}
	if got := len(topo.VertexCells(4)); got != 4 {
		t.Errorf("apex touches %d cells, want 4", got)
	}
}

func TestTopologyOpenSurface(t *testing.T) {
	m := New([]r3.Vec{{}, {X: 1}, {Y: 1}, {X: 1, Y: 1}}, [][3]int{{0, 1, 2}, {1, 3, 2}})
	topo := NewTopology(m)
	if topo.IsBoundaryEdge(1, 2) {
		t.Error("shared diagonal reported as boundary")
	}
	if !topo.IsBoundaryEdge(0, 1) {
		t.Error("outer edge not reported as boundary")
	}
	if got := topo.OtherCell(0, 1, 2); got != 1 {
		t.Errorf("OtherCell(0, 1, 2) = %d, want 1", got)
	}
	if got := topo.OtherCell(0, 0, 1); got != -1 {
		t.Errorf("OtherCell across a boundary = %d, want -1", got)
	}
	if got := topo.OppositeVertex(1, 1, 2); got != 3 {
		t.Errorf("OppositeVertex(1, 1, 2) = %d, want 3", got)
	}
	if diff := cmp.Diff([]int{0, 3}, topo.BoundaryNeighbors(1)); diff != "" {
		t.Errorf("BoundaryNeighbors(1) mismatch (-want +got):\n%s", diff)
	}
	if topo.IsInteriorVertex(1) {
		t.Error("corner of an open surface reported as interior")
	}
}

func TestComputeStats(t *testing.T) {
	m := New([]r3.Vec{{}, {X: 1}, {Y: 1}, {X: 2}, {X: 2, Y: 2}}, [][3]int{{0, 1, 2}, {1, 3, 4}})
	s := ComputeStats(m)
	if s.Points != 5 || s.Cells != 2 {
		t.Errorf("counts = %d/%d, want 5/2", s.Points, s.Cells)
	}
	// areas 0.5 and 1
	if math.Abs(s.TotalArea-1.5) > 1e-12 || math.Abs(s.MeanArea-0.75) > 1e-12 {
		t.Errorf("area total/mean = %g/%g, want 1.5/0.75", s.TotalArea, s.MeanArea)
	}
	if math.Abs(s.StdDevArea-math.Sqrt(0.125)) > 1e-12 {
		t.Errorf("area sd = %g, want %g", s.StdDevArea, math.Sqrt(0.125))
	}
	if !strings.Contains(s.String(), "cells=2") {
		t.Errorf("String() = %q", s.String())
	}

	empty := ComputeStats(&Mesh{})
	if empty.Cells != 0 || empty.TotalArea != 0 {
		t.Errorf("empty stats = %+v", empty)
	}
}
