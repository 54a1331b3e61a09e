package volumeio

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"

	"labelmesh/internal/models"
)

var metaElementTypes = map[string]string{
	"MET_UCHAR":      "uint8",
	"MET_CHAR":       "int8",
	"MET_USHORT":     "uint16",
	"MET_SHORT":      "int16",
	"MET_UINT":       "uint32",
	"MET_INT":        "int32",
	"MET_ULONG_LONG": "uint64",
	"MET_LONG_LONG":  "int64",
}

func metaElementType(pixelType string) string {
	for met, p := range metaElementTypes {
		if p == pixelType {
			return met
		}
	}
	return ""
}

// ReadMetaImage reads a 3D single-channel MetaImage. Voxels either follow
// the header (ElementDataFile = LOCAL) or live in a file next to it.
//
// TransformMatrix is stored column by column: its first three values are the
// direction of the x axis.
func ReadMetaImage(path string) (models.AnyVolume, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "read MetaImage")
	}
	defer file.Close()

	br := bufio.NewReader(file)
	header := make(map[string]string)
	for {
		line, err := br.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return nil, errors.Wrap(err, "read MetaImage header")
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, errors.Errorf("read MetaImage: malformed header line %q", strings.TrimSpace(line))
		}
		key = strings.TrimSpace(key)
		header[key] = strings.TrimSpace(value)
		if key == "ElementDataFile" {
			break
		}
		if err == io.EOF {
			return nil, errors.New("read MetaImage: header has no ElementDataFile")
		}
	}

	if nd := header["NDims"]; nd != "3" {
		return nil, errors.Errorf("read MetaImage: expected NDims = 3, got %q", nd)
	}
	if ch, ok := header["ElementNumberOfChannels"]; ok && ch != "1" {
		return nil, errors.Errorf("read MetaImage: %s channels are not supported", ch)
	}
	pixelType, ok := metaElementTypes[header["ElementType"]]
	if !ok {
		return nil, errors.Errorf("read MetaImage: unsupported ElementType %q", header["ElementType"])
	}

	geom := models.DefaultGeometry(0, 0, 0)
	if geom.Size, err = parseSizes(header["DimSize"]); err != nil {
		return nil, errors.Wrap(err, "read MetaImage: DimSize")
	}
	if s := firstOf(header, "ElementSpacing", "ElementSize"); s != "" {
		spacing, err := parseFloats(strings.Fields(s), 3)
		if err != nil {
			return nil, errors.Wrap(err, "read MetaImage: ElementSpacing")
		}
		copy(geom.Spacing[:], spacing)
	}
	if s := firstOf(header, "Offset", "Origin", "Position"); s != "" {
		origin, err := parseFloats(strings.Fields(s), 3)
		if err != nil {
			return nil, errors.Wrap(err, "read MetaImage: Offset")
		}
		copy(geom.Origin[:], origin)
	}
	if s := firstOf(header, "TransformMatrix", "Rotation", "Orientation"); s != "" {
		tm, err := parseFloats(strings.Fields(s), 9)
		if err != nil {
			return nil, errors.Wrap(err, "read MetaImage: TransformMatrix")
		}
		for row := 0; row < 3; row++ {
			for col := 0; col < 3; col++ {
				geom.Direction[row*3+col] = tm[col*3+row]
			}
		}
	}

	var order binary.ByteOrder = binary.LittleEndian
	if isTrue(firstOf(header, "BinaryDataByteOrderMSB", "ElementByteOrderMSB")) {
		order = binary.BigEndian
	}

	var data io.Reader = br
	if name := header["ElementDataFile"]; name != "LOCAL" {
		raw, err := os.Open(filepath.Join(filepath.Dir(path), name))
		if err != nil {
			return nil, errors.Wrap(err, "read MetaImage data file")
		}
		defer raw.Close()
		data = bufio.NewReader(raw)
	}
	if isTrue(header["CompressedData"]) {
		zr, err := zlib.NewReader(data)
		if err != nil {
			return nil, errors.Wrap(err, "read MetaImage: zlib")
		}
		defer zr.Close()
		data = zr
	}

	v, err := decodeVoxels(pixelType, geom, data, order)
	if err != nil {
		return nil, errors.Wrap(err, "read MetaImage")
	}
	return v, nil
}

// WriteMetaImage writes v as a MetaImage. A .mha path holds the voxels
// inline; a .mhd path gets a .raw (or .zraw) file next to it.
func WriteMetaImage[T models.Pixel](v *models.Volume[T], path string, compress bool) error {
	met := metaElementType(v.PixelType())
	if met == "" {
		return fmt.Errorf("write MetaImage: unsupported pixel type %s", v.PixelType())
	}

	var payload bytes.Buffer
	if compress {
		zw := zlib.NewWriter(&payload)
		if err := writeVoxels(zw, v); err != nil {
			return fmt.Errorf("write MetaImage: %v", err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("write MetaImage: %v", err)
		}
	} else if err := writeVoxels(&payload, v); err != nil {
		return fmt.Errorf("write MetaImage: %v", err)
	}

	dataFile := "LOCAL"
	if strings.EqualFold(filepath.Ext(path), ".mhd") {
		ext := ".raw"
		if compress {
			ext = ".zraw"
		}
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		dataFile = base + ext
		if err := os.WriteFile(filepath.Join(filepath.Dir(path), dataFile), payload.Bytes(), 0644); err != nil {
			return fmt.Errorf("write MetaImage data file: %v", err)
		}
	}

	var tm [9]float64
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			tm[col*3+row] = v.Direction[row*3+col]
		}
	}

	var hdr bytes.Buffer
	fmt.Fprintf(&hdr, "ObjectType = Image\n")
	fmt.Fprintf(&hdr, "NDims = 3\n")
	fmt.Fprintf(&hdr, "BinaryData = True\n")
	fmt.Fprintf(&hdr, "BinaryDataByteOrderMSB = False\n")
	fmt.Fprintf(&hdr, "CompressedData = %s\n", boolString(compress))
	if compress {
		fmt.Fprintf(&hdr, "CompressedDataSize = %d\n", payload.Len())
	}
	fmt.Fprintf(&hdr, "TransformMatrix = %s\n", joinFloats(tm[:]))
	fmt.Fprintf(&hdr, "Offset = %s\n", joinFloats(v.Origin[:]))
	fmt.Fprintf(&hdr, "CenterOfRotation = 0 0 0\n")
	fmt.Fprintf(&hdr, "ElementSpacing = %s\n", joinFloats(v.Spacing[:]))
	fmt.Fprintf(&hdr, "DimSize = %d %d %d\n", v.Size[0], v.Size[1], v.Size[2])
	fmt.Fprintf(&hdr, "ElementType = %s\n", met)
	fmt.Fprintf(&hdr, "ElementDataFile = %s\n", dataFile)
	if dataFile == "LOCAL" {
		hdr.Write(payload.Bytes())
	}

	if err := os.WriteFile(path, hdr.Bytes(), 0644); err != nil {
		return fmt.Errorf("write MetaImage: %v", err)
	}
	return nil
}

func firstOf(header map[string]string, keys ...string) string {
	for _, k := range keys {
		if v, ok := header[k]; ok {
			return v
		}
	}
	return ""
}

func isTrue(s string) bool {
	return strings.EqualFold(s, "true") || s == "1"
}

func boolString(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func joinFloats(values []float64) string {
	parts := make([]string, len(values))
	for i, f := range values {
		parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strings.Join(parts, " ")
}
