package models

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Geometry describes the voxel grid and its placement in physical space.
// It is carried through every pipeline stage unchanged.
type Geometry struct {
	// Size is the number of voxels along x, y and z
	Size [3]int

	// Spacing is the physical size of a voxel along each axis in mm
	Spacing [3]float64

	// Origin is the physical position of the first voxel centre
	Origin [3]float64

	// Direction is a row-major 3x3 matrix of axis direction cosines
	Direction [9]float64
}

// IdentityDirection is the direction matrix of an axis-aligned volume.
var IdentityDirection = [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}

// DefaultGeometry returns unit spacing, zero origin and identity direction.
func DefaultGeometry(width, height, depth int) Geometry {
	return Geometry{
		Size:      [3]int{width, height, depth},
		Spacing:   [3]float64{1, 1, 1},
		Direction: IdentityDirection,
	}
}

// NumVoxels returns the total number of voxels in the grid.
func (g Geometry) NumVoxels() int {
	return g.Size[0] * g.Size[1] * g.Size[2]
}

// Index returns the linear index of voxel (x, y, z), x varying fastest.
func (g Geometry) Index(x, y, z int) int {
	return (z*g.Size[1]+y)*g.Size[0] + x
}

// InBounds reports whether (x, y, z) addresses a voxel of the grid.
func (g Geometry) InBounds(x, y, z int) bool {
	return x >= 0 && y >= 0 && z >= 0 && x < g.Size[0] && y < g.Size[1] && z < g.Size[2]
}

// PhysicalPoint maps a continuous index to physical space:
// origin + Direction * (index .* spacing).
func (g Geometry) PhysicalPoint(i, j, k float64) [3]float64 {
	s := [3]float64{i * g.Spacing[0], j * g.Spacing[1], k * g.Spacing[2]}
	d := g.Direction
	return [3]float64{
		g.Origin[0] + d[0]*s[0] + d[1]*s[1] + d[2]*s[2],
		g.Origin[1] + d[3]*s[0] + d[4]*s[1] + d[5]*s[2],
		g.Origin[2] + d[6]*s[0] + d[7]*s[1] + d[8]*s[2],
	}
}

// Validate checks the size and spacing of the grid.
func (g Geometry) Validate() error {
	for i, n := range g.Size {
		if n <= 0 {
			return fmt.Errorf("invalid size along axis %d: %d", i, n)
		}
		if g.Spacing[i] <= 0 {
			return fmt.Errorf("invalid spacing along axis %d: %g", i, g.Spacing[i])
		}
	}
	if Determinant(g.Direction) == 0 {
		return fmt.Errorf("direction matrix is singular")
	}
	return nil
}

// Determinant returns the determinant of a row-major 3x3 matrix.
func Determinant(d [9]float64) float64 {
	return d[0]*(d[4]*d[8]-d[5]*d[7]) -
		d[1]*(d[3]*d[8]-d[5]*d[6]) +
		d[2]*(d[3]*d[7]-d[4]*d[6])
}

// Volume is a dense 3D grid of pixels stored with x varying fastest,
// then y, then z.
type Volume[T Pixel] struct {
	Geometry

	// Data holds one value per voxel
	Data []T
}

// NewVolume allocates a zero-filled volume with the given geometry.
func NewVolume[T Pixel](geom Geometry) *Volume[T] {
	return &Volume[T]{
		Geometry: geom,
		Data:     make([]T, geom.NumVoxels()),
	}
}

// BinaryVolume is an indicator volume restricted to an object and a
// background value.
type BinaryVolume = Volume[uint8]

// At returns the value of voxel (x, y, z).
func (v *Volume[T]) At(x, y, z int) T {
	return v.Data[v.Index(x, y, z)]
}

// Set stores value at voxel (x, y, z).
func (v *Volume[T]) Set(x, y, z int, value T) {
	v.Data[v.Index(x, y, z)] = value
}

// Geom returns the geometry of the volume.
func (v *Volume[T]) Geom() Geometry {
	return v.Geometry
}

// PixelType returns the MetaImage-style name of the element type.
func (v *Volume[T]) PixelType() string {
	return PixelTypeName[T]()
}

// Validate checks the geometry and that there is one value per voxel.
func (v *Volume[T]) Validate() error {
	if err := v.Geometry.Validate(); err != nil {
		return err
	}
	if len(v.Data) != v.NumVoxels() {
		return fmt.Errorf("volume has %d values for %d voxels", len(v.Data), v.NumVoxels())
	}
	return nil
}

// CountValue returns the number of voxels equal to value.
func (v *Volume[T]) CountValue(value T) int {
	n := 0
	for _, p := range v.Data {
		if p == value {
			n++
		}
	}
	return n
}

// BoundingBox returns the first corner and the size of the smallest box
// holding every voxel equal to value. ok is false when no voxel matches.
func (v *Volume[T]) BoundingBox(value T) (start, size [3]int, ok bool) {
	lo := v.Size
	hi := [3]int{-1, -1, -1}
	for z := 0; z < v.Size[2]; z++ {
		for y := 0; y < v.Size[1]; y++ {
			row := v.Index(0, y, z)
			for x := 0; x < v.Size[0]; x++ {
				if v.Data[row+x] != value {
					continue
				}
				p := [3]int{x, y, z}
				for i := range p {
					lo[i] = min(lo[i], p[i])
					hi[i] = max(hi[i], p[i])
				}
			}
		}
	}
	if hi[0] < 0 {
		return start, size, false
	}
	for i := range lo {
		size[i] = hi[i] - lo[i] + 1
	}
	return lo, size, true
}

// Decode fills the voxels from data holding one encoded value per voxel.
func (v *Volume[T]) Decode(data []byte, order binary.ByteOrder) error {
	var zero T
	if want := len(v.Data) * binary.Size(zero); len(data) != want {
		return fmt.Errorf("voxel data is %d bytes, want %d", len(data), want)
	}
	return binary.Read(bytes.NewReader(data), order, v.Data)
}

// AnyVolume is implemented by every *Volume[T]. File readers return it; Visit
// recovers the concrete pixel type.
type AnyVolume interface {
	Geom() Geometry
	PixelType() string
	Validate() error
	Decode(data []byte, order binary.ByteOrder) error
}
