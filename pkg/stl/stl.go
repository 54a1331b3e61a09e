// Package stl reads and writes STL files in the binary and ASCII encodings.
package stl

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r3"

	"labelmesh/pkg/mesh"
)

// Triangle is one STL facet.
type Triangle struct {
	Normal  [3]float32
	Vertex1 [3]float32
	Vertex2 [3]float32
	Vertex3 [3]float32
}

const (
	headerSize = 80
	recordSize = 50
)

// FromMesh converts every cell of m into a facet with its unit normal.
func FromMesh(m *mesh.Mesh) []Triangle {
	triangles := make([]Triangle, m.NumberOfCells())
	for i := range m.Cells {
		a, b, c := m.Vertices(i)
		triangles[i] = Triangle{
			Normal:  vec32(m.Normal(i)),
			Vertex1: vec32(a),
			Vertex2: vec32(b),
			Vertex3: vec32(c),
		}
	}
	return triangles
}

// ToMesh welds facets sharing identical vertex coordinates into an indexed
// mesh. Cell data is zero.
func ToMesh(triangles []Triangle) *mesh.Mesh {
	m := &mesh.Mesh{}
	index := make(map[[3]float32]int)
	vertex := func(v [3]float32) int {
		if idx, ok := index[v]; ok {
			return idx
		}
		idx := m.AddPoint(r3.Vec{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])})
		index[v] = idx
		return idx
	}
	for _, t := range triangles {
		cell := [3]int{vertex(t.Vertex1), vertex(t.Vertex2), vertex(t.Vertex3)}
		if cell[0] == cell[1] || cell[1] == cell[2] || cell[0] == cell[2] {
			continue
		}
		m.AddCell(cell, 0)
	}
	return m
}

func vec32(v r3.Vec) [3]float32 {
	return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
}

// SaveToSTL writes triangles to filename in binary STL format.
func SaveToSTL(filename string, triangles []Triangle) error {
	return saveFile(filename, func(w io.Writer) error {
		return WriteBinary(w, triangles)
	})
}

// SaveToASCIISTL writes triangles to filename in ASCII STL format.
func SaveToASCIISTL(filename, name string, triangles []Triangle) error {
	return saveFile(filename, func(w io.Writer) error {
		return WriteASCII(w, name, triangles)
	})
}

func saveFile(filename string, write func(io.Writer) error) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(file)
	if err := write(w); err != nil {
		file.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// WriteBinary encodes triangles as binary STL: an 80 byte header, a little
// endian uint32 count and one 50 byte record per facet.
func WriteBinary(w io.Writer, triangles []Triangle) error {
	var header [headerSize]byte
	copy(header[:], "binary STL written by labelmesh")
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(triangles))); err != nil {
		return err
	}

	record := make([]byte, recordSize)
	for _, t := range triangles {
		offset := 0
		for _, v := range [4][3]float32{t.Normal, t.Vertex1, t.Vertex2, t.Vertex3} {
			for _, c := range v {
				binary.LittleEndian.PutUint32(record[offset:], math.Float32bits(c))
				offset += 4
			}
		}
		// attribute byte count
		record[48], record[49] = 0, 0
		if _, err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

// WriteASCII encodes triangles as an ASCII STL solid.
func WriteASCII(w io.Writer, name string, triangles []Triangle) error {
	if name == "" {
		name = "labelmesh"
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "solid %s\n", name)
	for _, t := range triangles {
		fmt.Fprintf(bw, "  facet normal %e %e %e\n", t.Normal[0], t.Normal[1], t.Normal[2])
		fmt.Fprintf(bw, "    outer loop\n")
		for _, v := range [3][3]float32{t.Vertex1, t.Vertex2, t.Vertex3} {
			fmt.Fprintf(bw, "      vertex %e %e %e\n", v[0], v[1], v[2])
		}
		fmt.Fprintf(bw, "    endloop\n")
		fmt.Fprintf(bw, "  endfacet\n")
	}
	fmt.Fprintf(bw, "endsolid %s\n", name)
	return bw.Flush()
}

// ReadSTL decodes a binary or ASCII STL stream. A stream is treated as
// binary when its length matches the count in its header, since binary
// headers may also start with "solid".
func ReadSTL(r io.Reader) ([]Triangle, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read STL")
	}
	if len(data) >= headerSize+4 {
		n := binary.LittleEndian.Uint32(data[headerSize:])
		if int64(len(data)) == int64(headerSize+4)+int64(n)*recordSize {
			return decodeBinary(data[headerSize+4:], int(n)), nil
		}
	}
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("solid")) {
		return decodeASCII(data)
	}
	return nil, errors.New("read STL: not a binary or ASCII STL stream")
}

func decodeBinary(data []byte, n int) []Triangle {
	triangles := make([]Triangle, n)
	for i := range triangles {
		rec := data[i*recordSize:]
		var vs [4][3]float32
		for v := range vs {
			for c := range vs[v] {
				vs[v][c] = math.Float32frombits(binary.LittleEndian.Uint32(rec[12*v+4*c:]))
			}
		}
		triangles[i] = Triangle{Normal: vs[0], Vertex1: vs[1], Vertex2: vs[2], Vertex3: vs[3]}
	}
	return triangles
}

func decodeASCII(data []byte) ([]Triangle, error) {
	var triangles []Triangle
	var current Triangle
	var vertices int

	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "facet":
			current = Triangle{}
			vertices = 0
			if len(fields) == 5 && fields[1] == "normal" {
				n, err := parseVec(fields[2:])
				if err != nil {
					return nil, errors.Wrapf(err, "read STL: line %d", line)
				}
				current.Normal = n
			}
		case "vertex":
			if len(fields) != 4 || vertices >= 3 {
				return nil, errors.Errorf("read STL: line %d: malformed vertex", line)
			}
			v, err := parseVec(fields[1:])
			if err != nil {
				return nil, errors.Wrapf(err, "read STL: line %d", line)
			}
			switch vertices {
			case 0:
				current.Vertex1 = v
			case 1:
				current.Vertex2 = v
			case 2:
				current.Vertex3 = v
			}
			vertices++
		case "endfacet":
			if vertices != 3 {
				return nil, errors.Errorf("read STL: line %d: facet has %d vertices", line, vertices)
			}
			triangles = append(triangles, current)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read STL")
	}
	return triangles, nil
}

func parseVec(fields []string) ([3]float32, error) {
	var v [3]float32
	for i := range v {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return v, err
		}
		v[i] = float32(f)
	}
	return v, nil
}
