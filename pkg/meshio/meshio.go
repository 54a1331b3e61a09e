// Package meshio writes and reads surface meshes. STL is selected when the
// file name ends in "stl" in any letter case; every other name gets a
// legacy VTK POLYDATA file that keeps the cell data.
package meshio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/unixpickle/model3d/model3d"
	"gonum.org/v1/gonum/spatial/r3"

	"labelmesh/pkg/mesh"
	"labelmesh/pkg/stl"
)

// Options control how meshes are written.
type Options struct {
	// ASCIISTL writes STL files in the ASCII encoding instead of binary
	ASCIISTL bool

	// Name is stored in the STL solid name or the VTK title line
	Name string
}

// IsSTL reports whether path names an STL file: its last three characters
// are "stl" compared without regard to case.
func IsSTL(path string) bool {
	if len(path) < 3 {
		return false
	}
	return strings.EqualFold(path[len(path)-3:], "stl")
}

// WriteMesh writes m to path. Cell data is dropped for STL output.
func WriteMesh(m *mesh.Mesh, path string, opts Options) error {
	if err := m.Validate(); err != nil {
		return errors.Wrap(err, "write mesh")
	}
	name := opts.Name
	if name == "" {
		name = "labelmesh"
	}

	if IsSTL(path) {
		triangles := stl.FromMesh(m)
		var err error
		if opts.ASCIISTL {
			err = stl.SaveToASCIISTL(path, name, triangles)
		} else {
			err = stl.SaveToSTL(path, triangles)
		}
		return errors.Wrapf(err, "write STL %s", path)
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "write mesh")
	}
	w := bufio.NewWriter(file)
	if err := WriteVTK(w, m, name); err != nil {
		file.Close()
		return errors.Wrapf(err, "write VTK %s", path)
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return errors.Wrapf(err, "write VTK %s", path)
	}
	return errors.Wrap(file.Close(), "write mesh")
}

// ReadMesh reads a mesh from an STL, OFF or legacy VTK POLYDATA file.
func ReadMesh(path string) (*mesh.Mesh, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "read mesh")
	}
	defer file.Close()
	r := bufio.NewReader(file)

	switch {
	case IsSTL(path):
		triangles, err := stl.ReadSTL(r)
		if err != nil {
			return nil, errors.Wrapf(err, "read STL %s", path)
		}
		return stl.ToMesh(triangles), nil
	case strings.EqualFold(filepath.Ext(path), ".off"):
		return readOFF(r)
	}
	m, err := ReadVTK(r)
	if err != nil {
		return nil, errors.Wrapf(err, "read VTK %s", path)
	}
	return m, nil
}

func readOFF(r io.Reader) (*mesh.Mesh, error) {
	triangles, err := model3d.ReadOFF(r)
	if err != nil {
		return nil, errors.Wrap(err, "read OFF")
	}
	return FromTriangles(triangles), nil
}

// FromTriangles converts model3d triangles into an indexed mesh with zero
// cell data. Shared coordinates become shared points.
func FromTriangles(triangles []*model3d.Triangle) *mesh.Mesh {
	out := &mesh.Mesh{}
	index := make(map[model3d.Coord3D]int)
	point := func(c model3d.Coord3D) int {
		if idx, ok := index[c]; ok {
			return idx
		}
		idx := out.AddPoint(r3.Vec{X: c.X, Y: c.Y, Z: c.Z})
		index[c] = idx
		return idx
	}
	for _, t := range triangles {
		cell := [3]int{point(t[0]), point(t[1]), point(t[2])}
		if cell[0] == cell[1] || cell[1] == cell[2] || cell[0] == cell[2] {
			continue
		}
		out.AddCell(cell, 0)
	}
	return out
}

// ToModel3D converts m into a model3d mesh for collision queries.
func ToModel3D(m *mesh.Mesh) *model3d.Mesh {
	triangles := make([]*model3d.Triangle, 0, m.NumberOfCells())
	for i := range m.Cells {
		a, b, c := m.Vertices(i)
		triangles = append(triangles, &model3d.Triangle{coord(a), coord(b), coord(c)})
	}
	return model3d.NewMeshTriangles(triangles)
}

func coord(v r3.Vec) model3d.Coord3D {
	return model3d.Coord3D{X: v.X, Y: v.Y, Z: v.Z}
}

func checkIndex(idx, n int) error {
	if idx < 0 || idx >= n {
		return fmt.Errorf("point index %d out of range [0, %d)", idx, n)
	}
	return nil
}
