package mesh

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// Stats summarises a mesh after extraction or subdivision.
type Stats struct {
	Points int
	Cells  int

	// TotalArea is the summed triangle area
	TotalArea float64

	// MeanArea and StdDevArea describe the triangle size distribution
	MeanArea   float64
	StdDevArea float64

	// Min and Max bound the points
	Min, Max r3.Vec
}

// ComputeStats measures m.
func ComputeStats(m *Mesh) Stats {
	s := Stats{
		Points: m.NumberOfPoints(),
		Cells:  m.NumberOfCells(),
	}
	s.Min, s.Max = m.Bounds()
	if s.Cells == 0 {
		return s
	}

	areas := make([]float64, s.Cells)
	for i := range m.Cells {
		areas[i] = m.Area(i)
	}
	s.TotalArea = floats.Sum(areas)
	s.MeanArea, s.StdDevArea = stat.MeanStdDev(areas, nil)
	return s
}

func (s Stats) String() string {
	return fmt.Sprintf("points=%d cells=%d area=%.3f (mean %.4f, sd %.4f) bounds=[%.2f %.2f %.2f]-[%.2f %.2f %.2f]",
		s.Points, s.Cells, s.TotalArea, s.MeanArea, s.StdDevArea,
		s.Min.X, s.Min.Y, s.Min.Z, s.Max.X, s.Max.Y, s.Max.Z)
}
