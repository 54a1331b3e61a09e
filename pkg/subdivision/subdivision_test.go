package subdivision

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/spatial/r3"

	"labelmesh/pkg/mesh"
)

// octantSphere returns a sphere whose cell data encodes the octant of each
// cell centroid (1..8), plus the cells of octant 4 (x<0, y>=0, z>=0).
func octantSphere(resolution int) (*mesh.Mesh, []int) {
	m := mesh.RegularSphere(resolution)
	var selected []int
	for i := range m.Cells {
		c := m.Centroid(i)
		data := 1.0
		if c.X >= 0 {
			data += 4
		}
		if c.Y >= 0 {
			data += 2
		}
		if c.Z >= 0 {
			data++
		}
		m.SetCellData(i, data)
		if data == 4 {
			selected = append(selected, i)
		}
	}
	return m, selected
}

func allSchemes() []Scheme {
	return []Scheme{Linear{}, Loop{}, ModifiedButterfly{}, SquareThree{}}
}

// TestCellDataCardinality checks one data value per cell for every scheme,
// for uniform and selective refinement, at several resolutions.
func TestCellDataCardinality(t *testing.T) {
	for _, scheme := range allSchemes() {
		for _, uniform := range []bool{true, false} {
			for _, resolution := range []int{0, 1, 3} {
				name := fmt.Sprintf("%s/uniform=%v/R=%d", scheme.Name(), uniform, resolution)
				t.Run(name, func(t *testing.T) {
					input, selected := octantSphere(1)
					if len(selected) == 0 {
						t.Fatal("fixture selected no cells")
					}

					it := &Iterative{Scheme: scheme, ResolutionLevels: resolution}
					if !uniform {
						it.CellsToBeSubdivided = selected
					}
					output, err := it.Run(input)
					if err != nil {
						t.Fatalf("Run failed: %v", err)
					}

					if len(output.CellData) != output.NumberOfCells() {
						t.Errorf("expected %d cell data entries, got %d", output.NumberOfCells(), len(output.CellData))
					}
					if err := output.Validate(); err != nil {
						t.Errorf("output mesh invalid: %v", err)
					}
					if resolution > 0 && output.NumberOfCells() <= input.NumberOfCells() {
						t.Errorf("expected more than %d cells, got %d", input.NumberOfCells(), output.NumberOfCells())
					}
				})
			}
		}
	}
}

// TestUniformCellCounts verifies the growth factor of each scheme.
func TestUniformCellCounts(t *testing.T) {
	testCases := []struct {
		scheme Scheme
		factor int
	}{
		{Linear{}, 4},
		{Loop{}, 4},
		{ModifiedButterfly{}, 4},
		{SquareThree{}, 3},
	}

	for _, tc := range testCases {
		input := mesh.RegularSphere(1)
		it := &Iterative{Scheme: tc.scheme, ResolutionLevels: 3}
		output, err := it.Run(input)
		if err != nil {
			t.Fatalf("%s: Run failed: %v", tc.scheme.Name(), err)
		}
		expected := input.NumberOfCells() * tc.factor * tc.factor * tc.factor
		if output.NumberOfCells() != expected {
			t.Errorf("%s: expected %d cells, got %d", tc.scheme.Name(), expected, output.NumberOfCells())
		}
	}
}

// TestSelectiveSubsetSemantics checks that after one selective pass the
// unselected cells are untouched and the selected ones are split with the
// parent's data value.
func TestSelectiveSubsetSemantics(t *testing.T) {
	for _, scheme := range allSchemes() {
		t.Run(scheme.Name(), func(t *testing.T) {
			input, selected := octantSphere(2)
			isSelected := make(map[int]bool)
			for _, c := range selected {
				isSelected[c] = true
			}

			output, children, err := scheme.SubdivideOnePass(input, selected)
			if err != nil {
				t.Fatalf("SubdivideOnePass failed: %v", err)
			}
			if len(children) != input.NumberOfCells() {
				t.Fatalf("expected child map for %d cells, got %d", input.NumberOfCells(), len(children))
			}

			for parent, kids := range children {
				if !isSelected[parent] {
					if len(kids) != 1 {
						t.Fatalf("unselected cell %d has %d children", parent, len(kids))
					}
					kid := kids[0]
					if output.Cells[kid] != input.Cells[parent] {
						t.Errorf("cell %d connectivity changed: %v -> %v", parent, input.Cells[parent], output.Cells[kid])
					}
					if output.CellData[kid] != input.CellData[parent] {
						t.Errorf("cell %d data changed: %v -> %v", parent, input.CellData[parent], output.CellData[kid])
					}
					for _, p := range input.Cells[parent] {
						if output.Points[p] != input.Points[p] {
							t.Errorf("point %d of unselected cell %d moved", p, parent)
						}
					}
					continue
				}

				if len(kids) < 3 {
					t.Errorf("selected cell %d has only %d children", parent, len(kids))
				}
				for _, kid := range kids {
					if output.CellData[kid] != input.CellData[parent] {
						t.Errorf("child %d of cell %d has data %v, expected %v",
							kid, parent, output.CellData[kid], input.CellData[parent])
					}
				}
			}
		})
	}
}

// TestZeroResolutionIsIdentity verifies that R = 0 returns an equal copy.
func TestZeroResolutionIsIdentity(t *testing.T) {
	input, selected := octantSphere(1)
	for _, scheme := range allSchemes() {
		for _, cells := range [][]int{nil, selected} {
			it := &Iterative{Scheme: scheme, ResolutionLevels: 0, CellsToBeSubdivided: cells}
			output, err := it.Run(input)
			if err != nil {
				t.Fatalf("%s: Run failed: %v", scheme.Name(), err)
			}
			if output.NumberOfPoints() != input.NumberOfPoints() || output.NumberOfCells() != input.NumberOfCells() {
				t.Errorf("%s: counts changed from %d/%d to %d/%d", scheme.Name(),
					input.NumberOfPoints(), input.NumberOfCells(), output.NumberOfPoints(), output.NumberOfCells())
			}
			for i := range input.CellData {
				if output.CellData[i] != input.CellData[i] {
					t.Errorf("%s: cell data %d changed", scheme.Name(), i)
				}
			}

			output.CellData[0] = -1
			if input.CellData[0] == -1 {
				t.Errorf("%s: output shares storage with input", scheme.Name())
			}
		}
	}
}

// countingScheme records how many passes were requested.
type countingScheme struct {
	Linear
	calls int
}

func (c *countingScheme) SubdivideOnePass(m *mesh.Mesh, eligible []int) (*mesh.Mesh, ChildMap, error) {
	c.calls++
	return c.Linear.SubdivideOnePass(m, eligible)
}

// TestOutOfRangeSelection verifies that a bad index is reported before any
// pass runs.
func TestOutOfRangeSelection(t *testing.T) {
	input := mesh.RegularSphere(0)
	for _, bad := range []int{-1, input.NumberOfCells()} {
		scheme := &countingScheme{}
		it := &Iterative{Scheme: scheme, ResolutionLevels: 2, CellsToBeSubdivided: []int{0, bad}}
		_, err := it.Run(input)
		if !errors.Is(err, ErrCellOutOfRange) {
			t.Errorf("index %d: expected ErrCellOutOfRange, got %v", bad, err)
		}
		if scheme.calls != 0 {
			t.Errorf("index %d: %d passes ran before the error", bad, scheme.calls)
		}
	}
}

// TestSelectionRemapping verifies that later levels only refine descendants
// of the original selection.
func TestSelectionRemapping(t *testing.T) {
	input := mesh.RegularSphere(0)
	for i := range input.Cells {
		input.SetCellData(i, float64(i))
	}

	it := &Iterative{Scheme: Linear{}, ResolutionLevels: 2, CellsToBeSubdivided: []int{3, 3}}
	output, err := it.Run(input)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// 7 untouched cells plus 16 grandchildren of cell 3
	if output.NumberOfCells() != 7+16 {
		t.Fatalf("expected %d cells, got %d", 7+16, output.NumberOfCells())
	}
	counts := make(map[float64]int)
	for _, d := range output.CellData {
		counts[d]++
	}
	if counts[3] != 16 {
		t.Errorf("expected 16 cells with data 3, got %d", counts[3])
	}
	for i := 0; i < 8; i++ {
		if i != 3 && counts[float64(i)] != 1 {
			t.Errorf("expected 1 cell with data %d, got %d", i, counts[float64(i)])
		}
	}
}

func TestRemap(t *testing.T) {
	children := ChildMap{{0}, {1, 2, 3, 4}, {5}, {6, 7, 8}}
	got := Remap([]int{3, 1}, children)
	want := []int{1, 2, 3, 4, 6, 7, 8}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Remap: expected %v, got %v", want, got)
	}
}

// TestLinearKeepsPlanarGeometry checks that linear subdivision of a flat
// square neither moves nor bends it.
func TestLinearKeepsPlanarGeometry(t *testing.T) {
	input := mesh.New([]r3.Vec{
		{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1},
	}, [][3]int{{0, 1, 2}, {0, 2, 3}})

	output, _, err := Linear{}.SubdivideOnePass(input, AllCells(input))
	if err != nil {
		t.Fatalf("SubdivideOnePass failed: %v", err)
	}
	if output.NumberOfPoints() != 9 {
		t.Errorf("expected 9 points (4 old + 5 edges), got %d", output.NumberOfPoints())
	}
	area := 0.0
	for i := range output.Cells {
		area += output.Area(i)
		if output.Normal(i).Z <= 0 {
			t.Errorf("cell %d flipped orientation", i)
		}
	}
	if math.Abs(area-1) > 1e-12 {
		t.Errorf("expected area 1, got %f", area)
	}
}

// TestLoopShrinksTowardsLimit checks that Loop keeps a sphere inside the
// unit ball and roughly round.
func TestLoopShrinksTowardsLimit(t *testing.T) {
	input := mesh.RegularSphere(2)
	it := &Iterative{Scheme: Loop{}, ResolutionLevels: 1}
	output, err := it.Run(input)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	for i, p := range output.Points {
		r := r3.Norm(p)
		if r > 1+1e-9 || r < 0.8 {
			t.Errorf("point %d at radius %f", i, r)
		}
	}
}

func TestLoopBetaRegular(t *testing.T) {
	if b := loopBeta(6); math.Abs(b-1.0/16.0) > 1e-12 {
		t.Errorf("expected beta(6) = 1/16, got %f", b)
	}
}

func TestButterflyWeightsSum(t *testing.T) {
	for k := 3; k <= 9; k++ {
		sum := 0.0
		for _, w := range butterflyWeights(k) {
			sum += w
		}
		if math.Abs(sum-0.25) > 1e-12 {
			t.Errorf("valence %d: weights sum to %f, expected 0.25", k, sum)
		}
	}
}

// TestButterflyInterpolates verifies that old points stay in place.
func TestButterflyInterpolates(t *testing.T) {
	input := mesh.RegularSphere(1)
	output, _, err := ModifiedButterfly{}.SubdivideOnePass(input, AllCells(input))
	if err != nil {
		t.Fatalf("SubdivideOnePass failed: %v", err)
	}
	for i, p := range input.Points {
		if output.Points[i] != p {
			t.Errorf("point %d moved from %v to %v", i, p, output.Points[i])
		}
	}
}

// TestSquareThreeStaysClosed verifies that the edge flips keep a closed
// sphere manifold and consistently oriented.
func TestSquareThreeStaysClosed(t *testing.T) {
	input := mesh.RegularSphere(1)
	output, _, err := SquareThree{}.SubdivideOnePass(input, AllCells(input))
	if err != nil {
		t.Fatalf("SubdivideOnePass failed: %v", err)
	}

	directed := make(map[[2]int]int)
	for _, c := range output.Cells {
		for k := 0; k < 3; k++ {
			directed[[2]int{c[k], c[(k+1)%3]}]++
		}
	}
	for e, n := range directed {
		if n != 1 {
			t.Errorf("directed edge %v used %d times", e, n)
		}
		if directed[[2]int{e[1], e[0]}] != 1 {
			t.Errorf("edge %v has no opposite half-edge", e)
		}
	}

	// After flipping, no old edge between two old points survives.
	old := input.NumberOfPoints()
	for e := range directed {
		if e[0] < old && e[1] < old {
			t.Errorf("old edge %v was not flipped", e)
		}
	}
}

func TestByName(t *testing.T) {
	for _, name := range Schemes {
		s, err := ByName(name)
		if err != nil {
			t.Errorf("ByName(%q) failed: %v", name, err)
			continue
		}
		if s.Name() != name {
			t.Errorf("ByName(%q) returned %q", name, s.Name())
		}
	}
	if _, err := ByName("catmull-clark"); !errors.Is(err, ErrUnknownScheme) {
		t.Errorf("expected ErrUnknownScheme, got %v", err)
	}
}

func BenchmarkLoopSphere(b *testing.B) {
	input := mesh.RegularSphere(3)
	it := &Iterative{Scheme: Loop{}, ResolutionLevels: 2}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := it.Run(input); err != nil {
			b.Fatal(err)
		}
	}
}

func TestParseCellList(t *testing.T) {
	cells, err := ParseCellList(" 4, 0,,12 ")
	if err != nil {
		t.Fatalf("ParseCellList failed: %v", err)
	}
	if diff := cmp.Diff([]int{4, 0, 12}, cells); diff != "" {
		t.Errorf("cells mismatch (-want +got):\n%s", diff)
	}
	if cells, err := ParseCellList(""); err != nil || cells != nil {
		t.Errorf("ParseCellList(\"\") = %v, %v; want nil, nil", cells, err)
	}
	if _, err := ParseCellList("1,x"); err == nil {
		t.Error("ParseCellList(\"1,x\") succeeded, want error")
	}
}
