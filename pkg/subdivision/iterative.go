package subdivision

import (
	"fmt"
	"log"

	"labelmesh/pkg/mesh"
)

// Iterative applies a Scheme ResolutionLevels times.
//
// When CellsToBeSubdivided is nil every cell is refined at every level.
// Otherwise only the listed cells of the input mesh are refined, and at each
// later level only their descendants are; cells outside the selection are
// copied through unchanged.
type Iterative struct {
	Scheme              Scheme
	ResolutionLevels    int
	CellsToBeSubdivided []int

	// Verbose logs the cell count after each level
	Verbose bool
}

// Run refines m and returns a new mesh; m is not modified. The selection is
// validated before the first pass. After every pass the output must carry
// exactly one data value per cell.
func (it *Iterative) Run(m *mesh.Mesh) (*mesh.Mesh, error) {
	if it.Scheme == nil {
		return nil, fmt.Errorf("no subdivision scheme configured")
	}
	if it.ResolutionLevels < 0 {
		return nil, fmt.Errorf("resolution levels must be non-negative, got %d", it.ResolutionLevels)
	}
	if err := checkCellData(m); err != nil {
		return nil, err
	}

	uniform := it.CellsToBeSubdivided == nil
	var selection []int
	if !uniform {
		var err error
		selection, err = ValidateSelection(it.CellsToBeSubdivided, m.NumberOfCells())
		if err != nil {
			return nil, err
		}
	}

	current := m.Clone()
	for level := 0; level < it.ResolutionLevels; level++ {
		eligible := selection
		if uniform {
			eligible = AllCells(current)
		}

		next, children, err := it.Scheme.SubdivideOnePass(current, eligible)
		if err != nil {
			return nil, fmt.Errorf("%s subdivision level %d: %w", it.Scheme.Name(), level+1, err)
		}
		if err := checkCellData(next); err != nil {
			return nil, fmt.Errorf("%s subdivision level %d: %w", it.Scheme.Name(), level+1, err)
		}
		if !uniform {
			selection = Remap(selection, children)
		}
		current = next

		if it.Verbose {
			log.Printf("%s subdivision level %d: %d points, %d cells",
				it.Scheme.Name(), level+1, current.NumberOfPoints(), current.NumberOfCells())
		}
	}
	return current, nil
}
