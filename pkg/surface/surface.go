// Package surface extracts a triangulated boundary surface from a binary
// indicator volume.
package surface

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"labelmesh/internal/models"
	"labelmesh/pkg/mesh"
)

// ErrEmptyObject is returned when the indicator volume holds no voxel with the
// object value.
var ErrEmptyObject = errors.New("no voxels with the object value")

// Extractor turns the object region of a binary volume into a surface mesh.
// Implementations must be deterministic for identical input.
type Extractor interface {
	Extract(b *models.BinaryVolume, objectValue uint8) (*mesh.Mesh, error)
}

// LabelLookup returns the cell data source for BinaryMaskExtractor.Labels
// reading values from a labeled volume.
func LabelLookup[T models.Pixel](v *models.Volume[T]) func(index int) float64 {
	return func(index int) float64 {
		return float64(v.Data[index])
	}
}

// BinaryMaskExtractor emits the exposed faces of object voxels. Every voxel
// face between an object voxel and a non-object voxel (or the grid border)
// becomes two triangles wound so that normals point out of the object. Face
// corners are shared, so a solid region yields a closed surface.
type BinaryMaskExtractor struct {
	// Labels, when set, supplies the cell data of each face from the linear
	// index of the object voxel it bounds. Otherwise cells carry the object
	// value.
	Labels func(index int) float64
}

// face describes one side of a voxel: the neighbour offset and the four
// corner offsets in counter-clockwise order seen from outside.
type face struct {
	neighbor [3]int
	corners  [4][3]int
}

var faces = [6]face{
	{[3]int{1, 0, 0}, [4][3]int{{1, 0, 0}, {1, 1, 0}, {1, 1, 1}, {1, 0, 1}}},
	{[3]int{-1, 0, 0}, [4][3]int{{0, 0, 0}, {0, 0, 1}, {0, 1, 1}, {0, 1, 0}}},
	{[3]int{0, 1, 0}, [4][3]int{{0, 1, 0}, {0, 1, 1}, {1, 1, 1}, {1, 1, 0}}},
	{[3]int{0, -1, 0}, [4][3]int{{0, 0, 0}, {1, 0, 0}, {1, 0, 1}, {0, 0, 1}}},
	{[3]int{0, 0, 1}, [4][3]int{{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1}}},
	{[3]int{0, 0, -1}, [4][3]int{{0, 0, 0}, {0, 1, 0}, {1, 1, 0}, {1, 0, 0}}},
}

// Extract implements Extractor.
func (e *BinaryMaskExtractor) Extract(b *models.BinaryVolume, objectValue uint8) (*mesh.Mesh, error) {
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("invalid indicator volume: %v", err)
	}
	if b.CountValue(objectValue) == 0 {
		return nil, fmt.Errorf("%w %d", ErrEmptyObject, objectValue)
	}

	size := b.Size
	flip := models.Determinant(b.Direction) < 0
	isObject := func(x, y, z int) bool {
		return b.InBounds(x, y, z) && b.At(x, y, z) == objectValue
	}

	m := &mesh.Mesh{}
	cornerIndex := make(map[int]int)
	corner := func(cx, cy, cz int) int {
		key := (cz*(size[1]+1)+cy)*(size[0]+1) + cx
		if idx, ok := cornerIndex[key]; ok {
			return idx
		}
		p := b.PhysicalPoint(float64(cx)-0.5, float64(cy)-0.5, float64(cz)-0.5)
		idx := m.AddPoint(r3.Vec{X: p[0], Y: p[1], Z: p[2]})
		cornerIndex[key] = idx
		return idx
	}

	for z := 0; z < size[2]; z++ {
		for y := 0; y < size[1]; y++ {
			for x := 0; x < size[0]; x++ {
				if !isObject(x, y, z) {
					continue
				}
				data := float64(objectValue)
				if e.Labels != nil {
					data = e.Labels(b.Index(x, y, z))
				}
				for _, f := range faces {
					if isObject(x+f.neighbor[0], y+f.neighbor[1], z+f.neighbor[2]) {
						continue
					}
					var q [4]int
					for i, c := range f.corners {
						q[i] = corner(x+c[0], y+c[1], z+c[2])
					}
					if flip {
						q[1], q[3] = q[3], q[1]
					}
					m.AddCell([3]int{q[0], q[1], q[2]}, data)
					m.AddCell([3]int{q[0], q[2], q[3]}, data)
				}
			}
		}
	}
	return m, nil
}

