package volumeio

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"labelmesh/internal/models"
)

// ReadSliceDirectory stacks the PNG and JPEG images of dir into a volume.
// Slices are ordered by the number embedded in their file names and
// sliceGap becomes the spacing along z. Decoding runs on up to numCores
// goroutines.
func ReadSliceDirectory(dir string, sliceGap float64, numCores int) (*models.Volume[uint16], error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "read slice directory")
	}

	var imageFiles []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".png", ".jpg", ".jpeg":
			imageFiles = append(imageFiles, entry.Name())
		}
	}
	if len(imageFiles) == 0 {
		return nil, fmt.Errorf("no PNG or JPEG images found in %s", dir)
	}

	sort.SliceStable(imageFiles, func(i, j int) bool {
		return extractNumber(imageFiles[i]) < extractNumber(imageFiles[j])
	})

	slices := make([]models.Slice, len(imageFiles))
	var g errgroup.Group
	if numCores > 0 {
		g.SetLimit(numCores)
	}
	for i, name := range imageFiles {
		i, name := i, name
		g.Go(func() error {
			img, err := loadImage(filepath.Join(dir, name))
			if err != nil {
				return errors.Wrapf(err, "failed to load image %s", name)
			}
			slices[i] = models.Slice{
				Image:    img,
				Index:    i,
				Filename: name,
				Position: float64(i) * sliceGap,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	width, height := slices[0].Width(), slices[0].Height()
	geom := models.DefaultGeometry(width, height, len(slices))
	geom.Spacing[2] = sliceGap
	if err := geom.Validate(); err != nil {
		return nil, errors.Wrap(err, "read slice directory")
	}

	v := models.NewVolume[uint16](geom)
	for _, s := range slices {
		if s.Width() != width || s.Height() != height {
			return nil, fmt.Errorf("slice %s is %dx%d, expected %dx%d",
				s.Filename, s.Width(), s.Height(), width, height)
		}
		b := s.Image.Bounds()
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				gray := color.Gray16Model.Convert(s.Image.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
				v.Set(x, y, s.Index, labelValue(s.Image, gray.Y))
			}
		}
	}

	log.Printf("Loaded %d slices with dimensions %dx%d", len(slices), width, height)
	return v, nil
}

// labelValue keeps 8-bit label images in the 0..255 range.
func labelValue(img image.Image, y uint16) uint16 {
	switch img.(type) {
	case *image.Gray16, *image.RGBA64, *image.NRGBA64:
		return y
	}
	return y >> 8
}

func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if ext := strings.ToLower(filepath.Ext(path)); ext == ".png" {
		return png.Decode(file)
	}
	return jpeg.Decode(file)
}

// extractNumber returns the digits of a file name read as one integer, or 0.
func extractNumber(filename string) int {
	base := filepath.Base(filename)
	numStr := ""
	for _, c := range base {
		if c >= '0' && c <= '9' {
			numStr += string(c)
		}
	}

	if numStr != "" {
		num, err := strconv.Atoi(numStr)
		if err == nil {
			return num
		}
	}
	return 0
}
