// Package visualization renders axis-aligned slices of a volume as
// grayscale PNG images for inspecting intermediary results.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"labelmesh/internal/models"
)

// Viewer extracts slices and regions from a volume of intensities in [0, 1].
type Viewer struct {
	// volumeData holds one intensity per voxel, x varying fastest
	volumeData []float64

	// geom is the grid the intensities live on
	geom models.Geometry
}

// NewViewer creates a viewer over intensities laid out on geom.
func NewViewer(volumeData []float64, geom models.Geometry) (*Viewer, error) {
	if len(volumeData) != geom.NumVoxels() {
		return nil, fmt.Errorf("volume has %d values for %d voxels", len(volumeData), geom.NumVoxels())
	}
	return &Viewer{volumeData: volumeData, geom: geom}, nil
}

// NewBinaryViewer shows object voxels white and everything else black.
func NewBinaryViewer(b *models.BinaryVolume, objectValue uint8) *Viewer {
	data := make([]float64, len(b.Data))
	for i, v := range b.Data {
		if v == objectValue {
			data[i] = 1
		}
	}
	return &Viewer{volumeData: data, geom: b.Geometry}
}

// NewLabelViewer scales labels linearly so that the smallest label is black
// and the largest is white.
func NewLabelViewer[T models.Pixel](v *models.Volume[T]) *Viewer {
	data := make([]float64, len(v.Data))
	if len(v.Data) == 0 {
		return &Viewer{volumeData: data, geom: v.Geometry}
	}
	lo, hi := float64(v.Data[0]), float64(v.Data[0])
	for _, p := range v.Data {
		lo = math.Min(lo, float64(p))
		hi = math.Max(hi, float64(p))
	}
	if hi > lo {
		for i, p := range v.Data {
			data[i] = (float64(p) - lo) / (hi - lo)
		}
	}
	return &Viewer{volumeData: data, geom: v.Geometry}
}

// sliceLayout returns the image size for a slice along axis and a function
// mapping image pixels to voxel coordinates.
func (v *Viewer) sliceLayout(axis string, position int) (int, int, func(u, w int) (int, int, int), error) {
	size := v.geom.Size
	var limit int
	var width, height int
	var voxel func(u, w int) (int, int, int)
	switch axis {
	case "x", "X":
		// YZ plane, z across and y down
		limit, width, height = size[0], size[2], size[1]
		voxel = func(u, w int) (int, int, int) { return position, w, u }
	case "y", "Y":
		// XZ plane, x across and z down
		limit, width, height = size[1], size[0], size[2]
		voxel = func(u, w int) (int, int, int) { return u, position, w }
	case "z", "Z":
		// XY plane
		limit, width, height = size[2], size[0], size[1]
		voxel = func(u, w int) (int, int, int) { return u, w, position }
	default:
		return 0, 0, nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}
	if position < 0 || position >= limit {
		return 0, 0, nil, fmt.Errorf("position %d outside [0, %d) along %s", position, limit, axis)
	}
	return width, height, voxel, nil
}

// ExtractSlice extracts a 2D slice from the volume along the specified axis.
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	width, height, voxel, err := v.sliceLayout(axis, position)
	if err != nil {
		return nil, err
	}
	img := image.NewGray16(image.Rect(0, 0, width, height))
	for w := 0; w < height; w++ {
		for u := 0; u < width; u++ {
			x, y, z := voxel(u, w)
			value := v.volumeData[v.geom.Index(x, y, z)]
			img.SetGray16(u, w, color.Gray16{Y: uint16(math.Max(0, math.Min(65535, value*65535)))})
		}
	}
	return img, nil
}

// ExtractRegion copies a box of intensities out of the volume.
func (v *Viewer) ExtractRegion(startX, startY, startZ, sizeX, sizeY, sizeZ int) ([]float64, error) {
	if startX < 0 || startY < 0 || startZ < 0 {
		return nil, fmt.Errorf("start coordinates must be non-negative")
	}
	if sizeX <= 0 || sizeY <= 0 || sizeZ <= 0 {
		return nil, fmt.Errorf("size dimensions must be positive")
	}
	if !v.geom.InBounds(startX+sizeX-1, startY+sizeY-1, startZ+sizeZ-1) {
		return nil, fmt.Errorf("region extends beyond volume boundaries")
	}

	region := make([]float64, 0, sizeX*sizeY*sizeZ)
	for z := startZ; z < startZ+sizeZ; z++ {
		for y := startY; y < startY+sizeY; y++ {
			start := v.geom.Index(startX, y, z)
			region = append(region, v.volumeData[start:start+sizeX]...)
		}
	}
	return region, nil
}

// Crop returns a viewer over the box of the given size starting at start.
// The cropped grid keeps its physical placement.
func (v *Viewer) Crop(start, size [3]int) (*Viewer, error) {
	region, err := v.ExtractRegion(start[0], start[1], start[2], size[0], size[1], size[2])
	if err != nil {
		return nil, err
	}
	geom := v.geom
	geom.Size = size
	geom.Origin = v.geom.PhysicalPoint(float64(start[0]), float64(start[1]), float64(start[2]))
	return NewViewer(region, geom)
}

// SaveSlice saves an extracted slice as a PNG image.
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// SaveSliceSequence extracts and saves every slice along the specified axis.
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	if _, _, _, err := v.sliceLayout(axis, 0); err != nil {
		return err
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	var count int
	switch axis {
	case "x", "X":
		count = v.geom.Size[0]
	case "y", "Y":
		count = v.geom.Size[1]
	default:
		count = v.geom.Size[2]
	}
	for pos := 0; pos < count; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}
		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.png", axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}
	return nil
}
