// Package subdivision refines triangle meshes one resolution level at a time,
// either uniformly or only on a chosen subset of cells, while keeping exactly
// one cell data value per cell.
package subdivision

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"labelmesh/pkg/mesh"
)

var (
	// ErrCellOutOfRange is returned when a selected cell index does not
	// address a cell of the mesh.
	ErrCellOutOfRange = errors.New("cell index out of range")

	// ErrUnknownScheme is returned by ByName for an unsupported scheme.
	ErrUnknownScheme = errors.New("unknown subdivision scheme")
)

// ChildMap maps every cell of the input mesh to the ordered indices of the
// cells it became in the output mesh. A cell that was not subdivided maps to
// exactly one child: its unchanged copy.
type ChildMap [][]int

// Scheme applies one subdivision pass. Only the cells listed in eligible are
// refined; all other cells are copied through with their point indices and
// data value untouched. Children inherit the data value of their parent.
type Scheme interface {
	Name() string
	SubdivideOnePass(m *mesh.Mesh, eligible []int) (*mesh.Mesh, ChildMap, error)
}

// Schemes lists the configuration names accepted by ByName.
var Schemes = []string{"linear", "loop", "butterfly", "sqrt3"}

// ByName resolves a scheme from its configuration name.
func ByName(name string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "linear":
		return Linear{}, nil
	case "loop":
		return Loop{}, nil
	case "butterfly", "modified-butterfly", "modifiedbutterfly":
		return ModifiedButterfly{}, nil
	case "sqrt3", "squarethree", "square-three":
		return SquareThree{}, nil
	}
	return nil, fmt.Errorf("%w: %q (must be one of %s)", ErrUnknownScheme, name, strings.Join(Schemes, ", "))
}

// AllCells returns the indices of every cell of m.
func AllCells(m *mesh.Mesh) []int {
	cells := make([]int, m.NumberOfCells())
	for i := range cells {
		cells[i] = i
	}
	return cells
}

// ValidateSelection checks every index against numCells and returns the
// selection sorted with duplicates removed.
func ValidateSelection(selection []int, numCells int) ([]int, error) {
	out := make([]int, 0, len(selection))
	seen := make(map[int]struct{}, len(selection))
	for _, c := range selection {
		if c < 0 || c >= numCells {
			return nil, fmt.Errorf("%w: %d (mesh has %d cells)", ErrCellOutOfRange, c, numCells)
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Ints(out)
	return out, nil
}

// Remap carries a selection forward through one pass: the result holds the
// children of every selected cell, ascending.
func Remap(selection []int, children ChildMap) []int {
	var out []int
	for _, c := range selection {
		out = append(out, children[c]...)
	}
	sort.Ints(out)
	return out
}

func eligibleMask(m *mesh.Mesh, eligible []int) ([]bool, error) {
	mask := make([]bool, m.NumberOfCells())
	for _, c := range eligible {
		if c < 0 || c >= len(mask) {
			return nil, fmt.Errorf("%w: %d (mesh has %d cells)", ErrCellOutOfRange, c, len(mask))
		}
		mask[c] = true
	}
	return mask, nil
}

// allIncidentEligible reports whether v only touches eligible cells, which is
// the condition under which an approximating scheme may move an old point
// without changing the geometry of a copied cell.
func allIncidentEligible(topo *mesh.Topology, mask []bool, v int) bool {
	cells := topo.VertexCells(v)
	if len(cells) == 0 {
		return false
	}
	for _, c := range cells {
		if !mask[c] {
			return false
		}
	}
	return true
}

func checkCellData(m *mesh.Mesh) error {
	if len(m.CellData) != m.NumberOfCells() {
		return fmt.Errorf("mesh has %d cell data entries for %d cells", len(m.CellData), m.NumberOfCells())
	}
	return nil
}

// ParseCellList parses a comma separated list of cell indices. An empty
// list yields nil, which selects every cell.
func ParseCellList(list string) ([]int, error) {
	var cells []int
	for _, field := range strings.Split(list, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		c, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("invalid cell index %q", field)
		}
		cells = append(cells, c)
	}
	return cells, nil
}
