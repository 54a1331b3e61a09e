// Package volumeio reads and writes labeled volumes. The format is chosen
// from the path: MetaImage (.mha, .mhd), NRRD (.nrrd) or a directory of
// PNG/JPEG slices.
package volumeio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"labelmesh/internal/models"
)

// ReadVolume reads the volume at path with the format implied by its
// extension, or as a slice stack when path is a directory.
func ReadVolume(path string) (models.AnyVolume, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "read volume")
	}
	if info.IsDir() {
		return ReadSliceDirectory(path, 1.0, runtime.NumCPU())
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".mha", ".mhd":
		return ReadMetaImage(path)
	case ".nrrd":
		return ReadNRRD(path)
	}
	return nil, errors.Errorf("read volume: unsupported file extension %q", filepath.Ext(path))
}

// WriteVolume writes v to path with the format implied by its extension.
// compress selects zlib (MetaImage) or gzip (NRRD) encoding of the voxels.
func WriteVolume[T models.Pixel](v *models.Volume[T], path string, compress bool) error {
	if err := v.Validate(); err != nil {
		return fmt.Errorf("write volume: %v", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mha", ".mhd":
		return WriteMetaImage(v, path, compress)
	case ".nrrd":
		return WriteNRRD(v, path, compress)
	}
	return fmt.Errorf("write volume: unsupported file extension %q", filepath.Ext(path))
}

// maxVolumeBytes bounds the voxel payload a header may announce.
const maxVolumeBytes = 1 << 40

// decodeVoxels reads NumVoxels values of the named element type. The payload
// is read before the volume is allocated, so a header announcing more voxels
// than the data holds fails without a huge allocation.
func decodeVoxels(pixelType string, geom models.Geometry, r io.Reader, order binary.ByteOrder) (models.AnyVolume, error) {
	if err := geom.Validate(); err != nil {
		return nil, err
	}
	size, err := models.PixelSize(pixelType)
	if err != nil {
		return nil, err
	}
	need, err := payloadSize(geom.Size, int64(size))
	if err != nil {
		return nil, err
	}
	buf, err := io.ReadAll(io.LimitReader(r, need))
	if err != nil {
		return nil, errors.Wrap(err, "read voxels")
	}
	if int64(len(buf)) != need {
		return nil, errors.Errorf("voxel data is %d bytes, header announces %d", len(buf), need)
	}
	v, err := models.NewAnyVolume(pixelType, geom)
	if err != nil {
		return nil, err
	}
	if err := v.Decode(buf, order); err != nil {
		return nil, errors.Wrapf(err, "decode %d voxels", geom.NumVoxels())
	}
	return v, nil
}

// payloadSize returns the byte size of a grid of elemSize values, failing
// on overflow or when it exceeds maxVolumeBytes.
func payloadSize(size [3]int, elemSize int64) (int64, error) {
	n := elemSize
	for _, s := range size {
		if s <= 0 || int64(s) > maxVolumeBytes/n {
			return 0, errors.Errorf("volume of %dx%dx%d voxels is too large", size[0], size[1], size[2])
		}
		n *= int64(s)
	}
	return n, nil
}

// parseSizes reads three positive integer axis sizes.
func parseSizes(s string) ([3]int, error) {
	var size [3]int
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return size, errors.Errorf("expected 3 sizes, got %d", len(fields))
	}
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return size, errors.Errorf("invalid size %q", f)
		}
		if n <= 0 {
			return size, errors.Errorf("size %d along axis %d is not positive", n, i)
		}
		size[i] = n
	}
	return size, nil
}

func writeVoxels[T models.Pixel](w io.Writer, v *models.Volume[T]) error {
	return binary.Write(w, binary.LittleEndian, v.Data)
}

func parseFloats(fields []string, n int) ([]float64, error) {
	if len(fields) != n {
		return nil, errors.Errorf("expected %d values, got %d", n, len(fields))
	}
	out := make([]float64, n)
	for i, f := range fields {
		if _, err := fmt.Sscan(f, &out[i]); err != nil {
			return nil, errors.Wrapf(err, "invalid number %q", f)
		}
	}
	return out, nil
}
