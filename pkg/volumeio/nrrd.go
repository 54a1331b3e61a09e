package volumeio

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"

	"labelmesh/internal/models"
)

var nrrdTypes = map[string]string{
	"uchar": "uint8", "unsigned char": "uint8", "uint8": "uint8", "uint8_t": "uint8",
	"signed char": "int8", "int8": "int8", "int8_t": "int8",
	"ushort": "uint16", "unsigned short": "uint16", "uint16": "uint16", "uint16_t": "uint16",
	"short": "int16", "signed short": "int16", "int16": "int16", "int16_t": "int16",
	"uint": "uint32", "unsigned int": "uint32", "uint32": "uint32", "uint32_t": "uint32",
	"int": "int32", "signed int": "int32", "int32": "int32", "int32_t": "int32",
	"ulonglong": "uint64", "unsigned long long": "uint64", "uint64": "uint64", "uint64_t": "uint64",
	"longlong": "int64", "long long": "int64", "int64": "int64", "int64_t": "int64",
}

// ReadNRRD reads an attached-header NRRD volume with raw or gzip encoding.
// Space directions carry both spacing and direction; each vector is one
// axis.
func ReadNRRD(path string) (models.AnyVolume, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "read NRRD")
	}
	defer file.Close()

	br := bufio.NewReader(file)
	magic, err := br.ReadString('\n')
	if err != nil || !strings.HasPrefix(magic, "NRRD000") {
		return nil, errors.New("read NRRD: missing NRRD magic")
	}

	fields := make(map[string]string)
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return nil, errors.Wrap(err, "read NRRD header")
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, errors.Errorf("read NRRD: malformed header line %q", line)
		}
		// key/value pairs use ":=" and are ignored
		if strings.HasPrefix(value, "=") {
			continue
		}
		fields[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}

	if d := fields["dimension"]; d != "3" {
		return nil, errors.Errorf("read NRRD: expected dimension 3, got %q", d)
	}
	pixelType, ok := nrrdTypes[fields["type"]]
	if !ok {
		return nil, errors.Errorf("read NRRD: unsupported type %q", fields["type"])
	}
	if _, detached := fields["data file"]; detached {
		return nil, errors.New("read NRRD: detached data files are not supported")
	}

	geom := models.DefaultGeometry(0, 0, 0)
	if geom.Size, err = parseSizes(fields["sizes"]); err != nil {
		return nil, errors.Wrap(err, "read NRRD: sizes")
	}

	if s, ok := fields["space directions"]; ok {
		vectors, err := parseVectors(s)
		if err != nil {
			return nil, errors.Wrap(err, "read NRRD: space directions")
		}
		if len(vectors) != 3 {
			return nil, errors.Errorf("read NRRD: expected 3 space directions, got %d", len(vectors))
		}
		for axis, vec := range vectors {
			norm := 0.0
			for _, c := range vec {
				norm += c * c
			}
			if norm == 0 {
				return nil, errors.Errorf("read NRRD: zero space direction on axis %d", axis)
			}
			norm = math.Sqrt(norm)
			geom.Spacing[axis] = norm
			for row := 0; row < 3; row++ {
				geom.Direction[row*3+axis] = vec[row] / norm
			}
		}
	} else if s, ok := fields["spacings"]; ok {
		spacing, err := parseFloats(strings.Fields(s), 3)
		if err != nil {
			return nil, errors.Wrap(err, "read NRRD: spacings")
		}
		copy(geom.Spacing[:], spacing)
	}
	if s, ok := fields["space origin"]; ok {
		origin, err := parseVectors(s)
		if err != nil || len(origin) != 1 {
			return nil, errors.Errorf("read NRRD: invalid space origin %q", s)
		}
		copy(geom.Origin[:], origin[0][:])
	}

	var order binary.ByteOrder = binary.LittleEndian
	if fields["endian"] == "big" {
		order = binary.BigEndian
	}

	var data io.Reader = br
	switch fields["encoding"] {
	case "raw":
	case "gzip", "gz":
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, errors.Wrap(err, "read NRRD: gzip")
		}
		defer zr.Close()
		data = zr
	default:
		return nil, errors.Errorf("read NRRD: unsupported encoding %q", fields["encoding"])
	}

	v, err := decodeVoxels(pixelType, geom, data, order)
	if err != nil {
		return nil, errors.Wrap(err, "read NRRD")
	}
	return v, nil
}

// WriteNRRD writes v as a little-endian NRRD with an attached header.
func WriteNRRD[T models.Pixel](v *models.Volume[T], path string, compress bool) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "NRRD0004\n")
	fmt.Fprintf(&buf, "type: %s\n", v.PixelType())
	fmt.Fprintf(&buf, "dimension: 3\n")
	fmt.Fprintf(&buf, "space: 3D-right-anterior-superior\n")
	fmt.Fprintf(&buf, "sizes: %d %d %d\n", v.Size[0], v.Size[1], v.Size[2])
	dirs := make([]string, 3)
	for axis := 0; axis < 3; axis++ {
		var vec [3]float64
		for row := 0; row < 3; row++ {
			vec[row] = v.Direction[row*3+axis] * v.Spacing[axis]
		}
		dirs[axis] = "(" + strings.ReplaceAll(joinFloats(vec[:]), " ", ",") + ")"
	}
	fmt.Fprintf(&buf, "space directions: %s\n", strings.Join(dirs, " "))
	fmt.Fprintf(&buf, "kinds: domain domain domain\n")
	fmt.Fprintf(&buf, "endian: little\n")
	if compress {
		fmt.Fprintf(&buf, "encoding: gzip\n")
	} else {
		fmt.Fprintf(&buf, "encoding: raw\n")
	}
	fmt.Fprintf(&buf, "space origin: (%s)\n\n", strings.ReplaceAll(joinFloats(v.Origin[:]), " ", ","))

	if compress {
		zw := gzip.NewWriter(&buf)
		if err := writeVoxels(zw, v); err != nil {
			return fmt.Errorf("write NRRD: %v", err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("write NRRD: %v", err)
		}
	} else if err := writeVoxels(&buf, v); err != nil {
		return fmt.Errorf("write NRRD: %v", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write NRRD: %v", err)
	}
	return nil
}

// parseVectors parses "(a,b,c) (d,e,f) ..." into 3-vectors.
func parseVectors(s string) ([][3]float64, error) {
	var out [][3]float64
	for _, tok := range strings.Fields(s) {
		tok = strings.TrimSuffix(strings.TrimPrefix(tok, "("), ")")
		vals, err := parseFloats(strings.Split(tok, ","), 3)
		if err != nil {
			return nil, err
		}
		out = append(out, [3]float64{vals[0], vals[1], vals[2]})
	}
	return out, nil
}
