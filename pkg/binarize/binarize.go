// Package binarize rasterizes a closed surface mesh into a binary volume on
// the grid of a reference image.
package binarize

import (
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/unixpickle/model3d/model3d"

	"labelmesh/internal/models"
	"labelmesh/pkg/mesh"
	"labelmesh/pkg/meshio"
)

// Options control the output values and parallelism.
type Options struct {
	InsideValue  uint8
	OutsideValue uint8
	NumCores     int
}

// DefaultOptions returns inside 1, outside 0 and one worker per CPU.
func DefaultOptions() Options {
	return Options{
		InsideValue:  1,
		OutsideValue: 0,
		NumCores:     runtime.NumCPU(),
	}
}

// rayDirections are fixed directions with no component along a grid axis,
// so rays from voxel centres do not graze axis-aligned faces.
var rayDirections = []model3d.Coord3D{
	{X: -0.40475415, Y: 0.86174632, Z: -0.30588783},
	{X: -0.81025101, Y: 0.38452447, Z: -0.44230559},
	{X: -0.09226702, Y: -0.74875317, Z: -0.65639584},
	{X: -0.99668947, Y: 0.08087344, Z: 0.00834144},
	{X: 0.67074042, Y: -0.60098173, Z: 0.43465877},
}

// Solid answers containment queries against a mesh by ray parity. A point is
// inside when most rays cross the surface an odd number of times.
// Near-duplicate crossings count once.
type Solid struct {
	model3d.Collider
}

// NewSolid builds a collider over the cells of m.
func NewSolid(m *mesh.Mesh) *Solid {
	return &Solid{Collider: model3d.MeshToCollider(meshio.ToModel3D(m))}
}

// Contains reports whether c lies inside the surface.
func (s *Solid) Contains(c model3d.Coord3D) bool {
	if !model3d.InBounds(s, c) {
		return false
	}
	odd := 0
	for _, d := range rayDirections {
		if s.numIntersections(c, d)%2 == 1 {
			odd++
		}
	}
	return 2*odd > len(rayDirections)
}

func (s *Solid) numIntersections(coord, direction model3d.Coord3D) int {
	var collisions []model3d.RayCollision
	s.Collider.RayCollisions(&model3d.Ray{
		Origin:    coord,
		Direction: direction,
	}, func(r model3d.RayCollision) {
		collisions = append(collisions, r)
	})
	if len(collisions) == 0 {
		return 0
	}

	sort.Slice(collisions, func(i, j int) bool {
		return collisions[i].Scale < collisions[j].Scale
	})

	epsilon := s.Max().Sub(s.Min()).Norm() * 1e-8
	var lastScale float64
	var numUnique int
	for _, c := range collisions {
		if c.Scale-lastScale > epsilon {
			numUnique++
		}
		lastScale = c.Scale
	}
	return numUnique
}

// Binarize marks every voxel of the reference grid whose physical centre is
// inside m. The output carries the reference geometry.
func Binarize(m *mesh.Mesh, reference models.Geometry, opts Options) (*models.BinaryVolume, error) {
	if err := reference.Validate(); err != nil {
		return nil, fmt.Errorf("invalid reference geometry: %v", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mesh: %v", err)
	}

	out := models.NewVolume[uint8](reference)
	if m.NumberOfCells() == 0 {
		fill(out.Data, opts.OutsideValue)
		return out, nil
	}
	solid := NewSolid(m)

	numCores := opts.NumCores
	if numCores < 1 {
		numCores = 1
	}
	depth := reference.Size[2]
	chunkSize := (depth + numCores - 1) / numCores

	var wg sync.WaitGroup
	for start := 0; start < depth; start += chunkSize {
		end := start + chunkSize
		if end > depth {
			end = depth
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for z := start; z < end; z++ {
				for y := 0; y < reference.Size[1]; y++ {
					for x := 0; x < reference.Size[0]; x++ {
						p := reference.PhysicalPoint(float64(x), float64(y), float64(z))
						value := opts.OutsideValue
						if solid.Contains(model3d.Coord3D{X: p[0], Y: p[1], Z: p[2]}) {
							value = opts.InsideValue
						}
						out.Set(x, y, z, value)
					}
				}
			}
		}(start, end)
	}
	wg.Wait()
	return out, nil
}

func fill(data []uint8, value uint8) {
	for i := range data {
		data[i] = value
	}
}
