// Package mesh provides the triangle surface mesh shared by surface
// extraction, subdivision and mesh I/O, with one scalar of cell data per cell.
package mesh

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Mesh is an ordered list of points and an ordered list of triangles
// referencing them. CellData holds exactly one value per cell.
type Mesh struct {
	// Points are the vertex coordinates in physical space
	Points []r3.Vec

	// Cells are triangles given as three indices into Points
	Cells [][3]int

	// CellData is the scalar attached to each cell, in cell order
	CellData []float64
}

// New returns a mesh over points and cells with zero cell data.
func New(points []r3.Vec, cells [][3]int) *Mesh {
	return &Mesh{
		Points:   points,
		Cells:    cells,
		CellData: make([]float64, len(cells)),
	}
}

// NumberOfPoints returns the number of vertices.
func (m *Mesh) NumberOfPoints() int {
	return len(m.Points)
}

// NumberOfCells returns the number of triangles.
func (m *Mesh) NumberOfCells() int {
	return len(m.Cells)
}

// AddPoint appends p and returns its index.
func (m *Mesh) AddPoint(p r3.Vec) int {
	m.Points = append(m.Points, p)
	return len(m.Points) - 1
}

// AddCell appends a triangle with its data value and returns its index.
func (m *Mesh) AddCell(cell [3]int, data float64) int {
	m.Cells = append(m.Cells, cell)
	m.CellData = append(m.CellData, data)
	return len(m.Cells) - 1
}

// SetCellData overwrites the data value of cell.
func (m *Mesh) SetCellData(cell int, data float64) {
	m.CellData[cell] = data
}

// Clone returns a deep copy that shares no storage with m.
func (m *Mesh) Clone() *Mesh {
	return &Mesh{
		Points:   append([]r3.Vec(nil), m.Points...),
		Cells:    append([][3]int(nil), m.Cells...),
		CellData: append([]float64(nil), m.CellData...),
	}
}

// Validate checks that every cell references existing, distinct points and
// that there is exactly one data value per cell.
func (m *Mesh) Validate() error {
	if len(m.CellData) != len(m.Cells) {
		return fmt.Errorf("mesh has %d cell data entries for %d cells", len(m.CellData), len(m.Cells))
	}
	for i, c := range m.Cells {
		for _, p := range c {
			if p < 0 || p >= len(m.Points) {
				return fmt.Errorf("cell %d references point %d of %d", i, p, len(m.Points))
			}
		}
		if c[0] == c[1] || c[1] == c[2] || c[0] == c[2] {
			return fmt.Errorf("cell %d is degenerate: %v", i, c)
		}
	}
	return nil
}

// Vertices returns the three corner coordinates of cell.
func (m *Mesh) Vertices(cell int) (r3.Vec, r3.Vec, r3.Vec) {
	c := m.Cells[cell]
	return m.Points[c[0]], m.Points[c[1]], m.Points[c[2]]
}

// Centroid returns the gravity centre of cell.
func (m *Mesh) Centroid(cell int) r3.Vec {
	a, b, c := m.Vertices(cell)
	return r3.Scale(1.0/3.0, r3.Add(r3.Add(a, b), c))
}

// Normal returns the unit normal of cell following its winding, or the zero
// vector for a degenerate triangle.
func (m *Mesh) Normal(cell int) r3.Vec {
	a, b, c := m.Vertices(cell)
	n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
	if r3.Norm(n) == 0 {
		return r3.Vec{}
	}
	return r3.Unit(n)
}

// Area returns the surface area of cell.
func (m *Mesh) Area(cell int) float64 {
	a, b, c := m.Vertices(cell)
	return 0.5 * r3.Norm(r3.Cross(r3.Sub(b, a), r3.Sub(c, a)))
}

// Bounds returns the axis-aligned bounding box of the points.
func (m *Mesh) Bounds() (min, max r3.Vec) {
	if len(m.Points) == 0 {
		return
	}
	min, max = m.Points[0], m.Points[0]
	for _, p := range m.Points[1:] {
		min = r3.Vec{X: minf(min.X, p.X), Y: minf(min.Y, p.Y), Z: minf(min.Z, p.Z)}
		max = r3.Vec{X: maxf(max.X, p.X), Y: maxf(max.Y, p.Y), Z: maxf(max.Z, p.Z)}
	}
	return
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
