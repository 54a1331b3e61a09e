package meshio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r3"

	"labelmesh/pkg/mesh"
)

// WriteVTK encodes m as an ASCII legacy VTK POLYDATA file with one scalar
// per cell named "Labels".
func WriteVTK(w io.Writer, m *mesh.Mesh, title string) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# vtk DataFile Version 3.0\n")
	fmt.Fprintf(bw, "%s\n", strings.ReplaceAll(title, "\n", " "))
	fmt.Fprintf(bw, "ASCII\nDATASET POLYDATA\n")
	fmt.Fprintf(bw, "POINTS %d double\n", m.NumberOfPoints())
	for _, p := range m.Points {
		fmt.Fprintf(bw, "%s %s %s\n", formatFloat(p.X), formatFloat(p.Y), formatFloat(p.Z))
	}
	fmt.Fprintf(bw, "POLYGONS %d %d\n", m.NumberOfCells(), 4*m.NumberOfCells())
	for _, c := range m.Cells {
		fmt.Fprintf(bw, "3 %d %d %d\n", c[0], c[1], c[2])
	}
	fmt.Fprintf(bw, "CELL_DATA %d\n", m.NumberOfCells())
	fmt.Fprintf(bw, "SCALARS Labels double 1\nLOOKUP_TABLE default\n")
	for _, d := range m.CellData {
		fmt.Fprintf(bw, "%s\n", formatFloat(d))
	}
	return bw.Flush()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// ReadVTK decodes an ASCII legacy VTK POLYDATA file. Polygons with more
// than three points are fanned into triangles that share the polygon's
// cell data. Missing cell scalars read as zero.
func ReadVTK(r io.Reader) (*mesh.Mesh, error) {
	tok := newTokenizer(r)

	header, err := tok.line()
	if err != nil || !strings.HasPrefix(header, "# vtk DataFile") {
		return nil, errors.New("missing VTK header")
	}
	if _, err := tok.line(); err != nil {
		return nil, errors.Wrap(err, "read title")
	}
	if format, err := tok.word(); err != nil || !strings.EqualFold(format, "ASCII") {
		return nil, errors.Errorf("unsupported VTK encoding %q", format)
	}
	if kw, err := tok.word(); err != nil || kw != "DATASET" {
		return nil, errors.New("missing DATASET")
	}
	if kind, err := tok.word(); err != nil || kind != "POLYDATA" {
		return nil, errors.Errorf("unsupported dataset %q", kind)
	}

	m := &mesh.Mesh{}
	var polygonCells []int
	for {
		kw, err := tok.word()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		switch kw {
		case "POINTS":
			n, err := tok.count("POINTS")
			if err != nil {
				return nil, err
			}
			if _, err := tok.word(); err != nil {
				return nil, errors.Wrap(err, "POINTS type")
			}
			for i := 0; i < n; i++ {
				var p [3]float64
				for j := range p {
					if p[j], err = tok.float(); err != nil {
						return nil, errors.Wrapf(err, "point %d", i)
					}
				}
				m.AddPoint(r3.Vec{X: p[0], Y: p[1], Z: p[2]})
			}
		case "POLYGONS":
			n, err := tok.count("POLYGONS")
			if err != nil {
				return nil, err
			}
			if _, err := tok.int(); err != nil {
				return nil, errors.Wrap(err, "POLYGONS size")
			}
			for i := 0; i < n; i++ {
				k, err := tok.int()
				if err != nil || k < 3 || k > m.NumberOfPoints() {
					return nil, errors.Errorf("polygon %d: invalid point count", i)
				}
				ids := make([]int, k)
				for j := range ids {
					if ids[j], err = tok.int(); err != nil {
						return nil, errors.Wrapf(err, "polygon %d", i)
					}
					if err := checkIndex(ids[j], m.NumberOfPoints()); err != nil {
						return nil, errors.Wrapf(err, "polygon %d", i)
					}
				}
				for j := 1; j+1 < k; j++ {
					m.AddCell([3]int{ids[0], ids[j], ids[j+1]}, 0)
					polygonCells = append(polygonCells, i)
				}
			}
		case "CELL_DATA":
			n, err := tok.count("CELL_DATA")
			if err != nil {
				return nil, err
			}
			if polygons := numPolygons(polygonCells); n > polygons {
				return nil, errors.Errorf("CELL_DATA has %d values for %d polygons", n, polygons)
			}
			values, err := readScalars(tok, n)
			if err != nil {
				return nil, err
			}
			for cell, polygon := range polygonCells {
				if polygon < len(values) {
					m.CellData[cell] = values[polygon]
				}
			}
			return m, m.Validate()
		default:
			return nil, errors.Errorf("unsupported VTK section %q", kw)
		}
	}
	return m, m.Validate()
}

// numPolygons returns the number of source polygons behind the fanned cells.
func numPolygons(polygonCells []int) int {
	if len(polygonCells) == 0 {
		return 0
	}
	return polygonCells[len(polygonCells)-1] + 1
}

func readScalars(tok *tokenizer, n int) ([]float64, error) {
	if kw, err := tok.word(); err != nil || kw != "SCALARS" {
		return nil, errors.New("CELL_DATA without SCALARS")
	}
	if _, err := tok.line(); err != nil {
		return nil, errors.Wrap(err, "SCALARS")
	}
	if kw, err := tok.word(); err != nil || kw != "LOOKUP_TABLE" {
		return nil, errors.New("SCALARS without LOOKUP_TABLE")
	}
	if _, err := tok.line(); err != nil {
		return nil, errors.Wrap(err, "LOOKUP_TABLE")
	}
	values := make([]float64, n)
	for i := range values {
		v, err := tok.float()
		if err != nil {
			return nil, errors.Wrapf(err, "cell scalar %d", i)
		}
		values[i] = v
	}
	return values, nil
}

type tokenizer struct {
	r      *bufio.Reader
	fields []string
}

func newTokenizer(r io.Reader) *tokenizer {
	return &tokenizer{r: bufio.NewReader(r)}
}

// line returns the rest of the current line, or the next line when the
// current one is exhausted.
func (t *tokenizer) line() (string, error) {
	if len(t.fields) > 0 {
		rest := strings.Join(t.fields, " ")
		t.fields = nil
		return rest, nil
	}
	s, err := t.r.ReadString('\n')
	if err != nil && (err != io.EOF || s == "") {
		return "", err
	}
	return strings.TrimRight(s, "\r\n"), nil
}

func (t *tokenizer) word() (string, error) {
	for len(t.fields) == 0 {
		s, err := t.r.ReadString('\n')
		if err != nil && (err != io.EOF || s == "") {
			return "", err
		}
		t.fields = strings.Fields(s)
	}
	w := t.fields[0]
	t.fields = t.fields[1:]
	return w, nil
}

func (t *tokenizer) int() (int, error) {
	w, err := t.word()
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(w)
}

// count reads the non-negative element count of a section.
func (t *tokenizer) count(section string) (int, error) {
	n, err := t.int()
	if err != nil {
		return 0, errors.Wrapf(err, "%s count", section)
	}
	if n < 0 {
		return 0, errors.Errorf("%s count %d is negative", section, n)
	}
	return n, nil
}

func (t *tokenizer) float() (float64, error) {
	w, err := t.word()
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(w, 64)
}
