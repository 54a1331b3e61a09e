// Package pipeline runs the label volume to surface mesh conversion and the
// inverse mesh to binary volume conversion end to end.
package pipeline

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"

	"github.com/dustin/go-humanize"

	"labelmesh/internal/models"
	"labelmesh/pkg/binarize"
	"labelmesh/pkg/labels"
	"labelmesh/pkg/mesh"
	"labelmesh/pkg/meshio"
	"labelmesh/pkg/subdivision"
	"labelmesh/pkg/surface"
	"labelmesh/pkg/visualization"
	"labelmesh/pkg/volumeio"
)

// ErrConfig marks errors in the parameters, found before any file is read.
var ErrConfig = errors.New("invalid configuration")

// Params holds the conversion parameters.
type Params struct {
	// InputImage is the labeled volume file or slice directory
	InputImage string

	// OutputMesh receives the surface; names ending in "stl" get STL
	OutputMesh string

	// Labels is the label set as text, parsed against the pixel type of
	// the input image
	Labels []string

	// LabelValues are the labels of the multi-threshold path
	LabelValues []float64

	// ObjectValue is the indicator value of the object region
	ObjectValue uint8

	// NumCores specifies how many CPU cores to use for parallel processing
	NumCores int

	// SliceGap is the z spacing used when InputImage is a slice directory
	SliceGap float64

	// Scheme names the subdivision scheme
	Scheme string

	// ResolutionLevels is the number of subdivision passes; 0 skips subdivision
	ResolutionLevels int

	// CellsToBeSubdivided selects cells of the extracted surface; nil
	// subdivides everything
	CellsToBeSubdivided []int

	// ASCIISTL writes STL output in ASCII
	ASCIISTL bool

	// TagCellsWithLabels stores the input label of each surface voxel as
	// cell data instead of the object value
	TagCellsWithLabels bool

	// CompressImages compresses written volume files
	CompressImages bool

	// SaveIntermediaryResults writes the indicator volume and its slices
	SaveIntermediaryResults bool

	// IntermediaryDir is where intermediary results are written
	IntermediaryDir string

	// Verbose logs progress
	Verbose bool
}

// DefaultParams returns object value 1, all CPUs, the loop scheme and no
// subdivision.
func DefaultParams() *Params {
	return &Params{
		ObjectValue:     1,
		NumCores:        runtime.NumCPU(),
		SliceGap:        1.0,
		Scheme:          "loop",
		CompressImages:  true,
		IntermediaryDir: "intermediary_results",
	}
}

// Converter runs conversions with one set of parameters.
type Converter struct {
	// params stores the conversion configuration
	params *Params

	// result is the mesh written by the last run
	result *mesh.Mesh

	// metrics summarizes result
	metrics mesh.Stats
}

// NewConverter creates a converter with the provided parameters.
func NewConverter(params *Params) *Converter {
	return &Converter{params: params}
}

// Metrics returns the statistics of the last mesh written.
func (c *Converter) Metrics() mesh.Stats {
	return c.metrics
}

// Mesh returns the last mesh written, or nil.
func (c *Converter) Mesh() *mesh.Mesh {
	return c.result
}

type mode int

const (
	labelSetMode mode = iota
	labelValuesMode
)

// ConvertLabelSet builds the surface of the voxels whose label is in
// Params.Labels.
func (c *Converter) ConvertLabelSet() error {
	return c.convert(labelSetMode)
}

// ConvertLabelValues builds the surface of the voxels equal to any of
// Params.LabelValues by summing one threshold mask per label. At least two
// labels are required.
func (c *Converter) ConvertLabelValues() error {
	return c.convert(labelValuesMode)
}

func (c *Converter) checkParams(m mode) error {
	p := c.params
	switch m {
	case labelSetMode:
		if len(p.Labels) == 0 {
			return fmt.Errorf("%w: no labels given", ErrConfig)
		}
	case labelValuesMode:
		if len(p.LabelValues) < labels.MinAggregateLabels {
			return fmt.Errorf("%w: %w", ErrConfig, labels.ErrTooFewLabels)
		}
	}
	if p.InputImage == "" || p.OutputMesh == "" {
		return fmt.Errorf("%w: input image and output mesh are required", ErrConfig)
	}
	if p.NumCores < 1 {
		return fmt.Errorf("%w: number of cores must be at least 1, got %d", ErrConfig, p.NumCores)
	}
	if p.ResolutionLevels < 0 {
		return fmt.Errorf("%w: resolution levels must be non-negative, got %d", ErrConfig, p.ResolutionLevels)
	}
	if p.ResolutionLevels > 0 {
		if _, err := subdivision.ByName(p.Scheme); err != nil {
			return fmt.Errorf("%w: %w", ErrConfig, err)
		}
	}
	for _, cell := range p.CellsToBeSubdivided {
		if cell < 0 {
			return fmt.Errorf("%w: %w: %d", ErrConfig, subdivision.ErrCellOutOfRange, cell)
		}
	}
	return nil
}

func (c *Converter) logf(format string, args ...interface{}) {
	if c.params.Verbose {
		log.Printf(format, args...)
	}
}

func (c *Converter) convert(m mode) error {
	if err := c.checkParams(m); err != nil {
		return err
	}
	if c.params.SaveIntermediaryResults {
		if err := os.MkdirAll(c.params.IntermediaryDir, 0755); err != nil {
			return fmt.Errorf("failed to create intermediary directory: %v", err)
		}
	}

	c.logf("Step 1: Reading %s...", c.params.InputImage)
	vol, err := c.readVolume()
	if err != nil {
		return fmt.Errorf("while reading the input file %s: %w", c.params.InputImage, err)
	}
	geom := vol.Geom()
	c.logf("Read %s volume of %dx%dx%d voxels", vol.PixelType(), geom.Size[0], geom.Size[1], geom.Size[2])

	return models.Visit(vol, typedConversion{c: c, m: m})
}

// typedConversion runs convertTyped with the pixel type of the input volume.
type typedConversion struct {
	c *Converter
	m mode
}

func (t typedConversion) Uint8(v *models.Volume[uint8]) error   { return convertTyped(t.c, v, t.m) }
func (t typedConversion) Int8(v *models.Volume[int8]) error     { return convertTyped(t.c, v, t.m) }
func (t typedConversion) Uint16(v *models.Volume[uint16]) error { return convertTyped(t.c, v, t.m) }
func (t typedConversion) Int16(v *models.Volume[int16]) error   { return convertTyped(t.c, v, t.m) }
func (t typedConversion) Uint32(v *models.Volume[uint32]) error { return convertTyped(t.c, v, t.m) }
func (t typedConversion) Int32(v *models.Volume[int32]) error   { return convertTyped(t.c, v, t.m) }
func (t typedConversion) Uint64(v *models.Volume[uint64]) error { return convertTyped(t.c, v, t.m) }
func (t typedConversion) Int64(v *models.Volume[int64]) error   { return convertTyped(t.c, v, t.m) }

func (c *Converter) readVolume() (models.AnyVolume, error) {
	info, err := os.Stat(c.params.InputImage)
	if err == nil && info.IsDir() {
		return volumeio.ReadSliceDirectory(c.params.InputImage, c.params.SliceGap, c.params.NumCores)
	}
	return volumeio.ReadVolume(c.params.InputImage)
}

func convertTyped[T models.Pixel](c *Converter, v *models.Volume[T], m mode) error {
	opts := labels.Options{
		InsideValue:  c.params.ObjectValue,
		OutsideValue: 0,
		NumCores:     c.params.NumCores,
	}
	if opts.InsideValue == opts.OutsideValue {
		opts.OutsideValue = ^opts.InsideValue
	}

	c.logf("Step 2: Building the indicator volume...")
	var indicator *models.BinaryVolume
	switch m {
	case labelSetMode:
		set, err := labels.ParseLabelSet[T](c.params.Labels)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrConfig, err)
		}
		c.logf("Label set %s", set)
		indicator = labels.Filter(v, set, opts)
	case labelValuesMode:
		var err error
		indicator, err = labels.Aggregate(v, c.params.LabelValues, opts)
		if err != nil {
			return err
		}
	}
	c.logf("Indicator volume has %d object voxels", indicator.CountValue(c.params.ObjectValue))

	if c.params.SaveIntermediaryResults {
		saveIntermediary(c, v, indicator)
	}

	var lookup func(int) float64
	if c.params.TagCellsWithLabels {
		lookup = surface.LabelLookup(v)
	}
	return c.meshIndicator(indicator, lookup)
}

// saveIntermediary writes the indicator volume and PNG slices of the labels
// and the indicator, cropped to the bounding box of the object.
func saveIntermediary[T models.Pixel](c *Converter, v *models.Volume[T], b *models.BinaryVolume) {
	c.logf("Saving intermediary indicator volume...")
	path := filepath.Join(c.params.IntermediaryDir, "01_indicator.mha")
	if err := volumeio.WriteVolume(b, path, c.params.CompressImages); err != nil {
		log.Printf("Warning: Failed to save indicator volume: %v", err)
	}

	start, size, ok := b.BoundingBox(c.params.ObjectValue)
	if !ok {
		start, size = [3]int{}, b.Size
	}
	views := []struct {
		name   string
		viewer *visualization.Viewer
	}{
		{"00_labels_slices", visualization.NewLabelViewer(v)},
		{"01_indicator_slices", visualization.NewBinaryViewer(b, c.params.ObjectValue)},
	}
	for _, view := range views {
		cropped, err := view.viewer.Crop(start, size)
		if err != nil {
			log.Printf("Warning: Failed to crop %s: %v", view.name, err)
			continue
		}
		if err := cropped.SaveSliceSequence("z", filepath.Join(c.params.IntermediaryDir, view.name)); err != nil {
			log.Printf("Warning: Failed to save %s: %v", view.name, err)
		}
	}
}

func (c *Converter) meshIndicator(b *models.BinaryVolume, lookup func(int) float64) error {
	c.logf("Step 3: Extracting the surface...")
	extractor := &surface.BinaryMaskExtractor{Labels: lookup}
	m, err := extractor.Extract(b, c.params.ObjectValue)
	if err != nil {
		return fmt.Errorf("surface extraction failed: %w", err)
	}
	c.logf("Extracted %d points and %d cells", m.NumberOfPoints(), m.NumberOfCells())

	m, err = c.subdivide(m)
	if err != nil {
		return err
	}
	return c.writeMesh(m)
}

func (c *Converter) subdivide(m *mesh.Mesh) (*mesh.Mesh, error) {
	if c.params.ResolutionLevels == 0 {
		return m, nil
	}
	scheme, err := subdivision.ByName(c.params.Scheme)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	c.logf("Step 4: Applying %d levels of %s subdivision...", c.params.ResolutionLevels, scheme.Name())
	it := &subdivision.Iterative{
		Scheme:              scheme,
		ResolutionLevels:    c.params.ResolutionLevels,
		CellsToBeSubdivided: c.params.CellsToBeSubdivided,
		Verbose:             c.params.Verbose,
	}
	out, err := it.Run(m)
	if err != nil {
		if errors.Is(err, subdivision.ErrCellOutOfRange) {
			return nil, fmt.Errorf("%w: %w", ErrConfig, err)
		}
		return nil, fmt.Errorf("subdivision failed: %w", err)
	}
	return out, nil
}

func (c *Converter) writeMesh(m *mesh.Mesh) error {
	c.logf("Step 5: Writing %s...", c.params.OutputMesh)
	opts := meshio.Options{
		ASCIISTL: c.params.ASCIISTL,
		Name:     filepath.Base(c.params.InputImage),
	}
	if err := meshio.WriteMesh(m, c.params.OutputMesh, opts); err != nil {
		return fmt.Errorf("there was a problem writing the file %s: %w", c.params.OutputMesh, err)
	}
	c.result = m
	c.metrics = mesh.ComputeStats(m)
	if info, err := os.Stat(c.params.OutputMesh); err == nil {
		c.logf("Wrote %s (%s)", c.params.OutputMesh, humanize.Bytes(uint64(info.Size())))
	}
	return nil
}

// SubdivideMesh reads inputMesh, applies the configured subdivision and
// writes the result to Params.OutputMesh.
func (c *Converter) SubdivideMesh(inputMesh string) error {
	if c.params.OutputMesh == "" {
		return fmt.Errorf("%w: output mesh is required", ErrConfig)
	}
	if c.params.ResolutionLevels < 0 {
		return fmt.Errorf("%w: resolution levels must be non-negative, got %d", ErrConfig, c.params.ResolutionLevels)
	}
	if _, err := subdivision.ByName(c.params.Scheme); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}

	m, err := meshio.ReadMesh(inputMesh)
	if err != nil {
		return fmt.Errorf("while reading the input file %s: %w", inputMesh, err)
	}
	c.logf("Read %d points and %d cells", m.NumberOfPoints(), m.NumberOfCells())

	m, err = c.subdivide(m)
	if err != nil {
		return err
	}
	return c.writeMesh(m)
}

// BinarizeMesh marks the voxels of the reference image grid that lie inside
// the mesh and writes the result as an unsigned char volume.
func (c *Converter) BinarizeMesh(inputMesh, referenceImage, outputImage string) error {
	if inputMesh == "" || referenceImage == "" || outputImage == "" {
		return fmt.Errorf("%w: input mesh, reference image and output image are required", ErrConfig)
	}

	m, err := meshio.ReadMesh(inputMesh)
	if err != nil {
		return fmt.Errorf("while reading the input file %s: %w", inputMesh, err)
	}
	ref, err := volumeio.ReadVolume(referenceImage)
	if err != nil {
		return fmt.Errorf("while reading the input file %s: %w", referenceImage, err)
	}
	c.logf("Binarizing %d cells onto a %v grid", m.NumberOfCells(), ref.Geom().Size)

	numCores := c.params.NumCores
	if numCores < 1 {
		numCores = 1
	}
	b, err := binarize.Binarize(m, ref.Geom(), binarize.Options{
		InsideValue:  c.params.ObjectValue,
		OutsideValue: 0,
		NumCores:     numCores,
	})
	if err != nil {
		return fmt.Errorf("binarization failed: %w", err)
	}
	c.logf("%d voxels inside the mesh", b.CountValue(c.params.ObjectValue))

	if err := volumeio.WriteVolume(b, outputImage, c.params.CompressImages); err != nil {
		return fmt.Errorf("there was a problem writing the file %s: %w", outputImage, err)
	}
	if info, err := os.Stat(outputImage); err == nil {
		c.logf("Wrote %s (%s)", outputImage, humanize.Bytes(uint64(info.Size())))
	}
	return nil
}
