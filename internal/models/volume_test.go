package models

import (
	"testing"
)

func TestPhysicalPoint(t *testing.T) {
	g := DefaultGeometry(4, 3, 2)
	g.Spacing = [3]float64{0.5, 2, 3}
	g.Origin = [3]float64{10, -4, 1}
	if got, want := g.PhysicalPoint(2, 1, 1), [3]float64{11, -2, 4}; got != want {
		t.Errorf("PhysicalPoint = %v, want %v", got, want)
	}

	// quarter turn about z: index x maps to physical y
	g.Direction = [9]float64{0, -1, 0, 1, 0, 0, 0, 0, 1}
	if got, want := g.PhysicalPoint(2, 0, 0), [3]float64{10, -3, 1}; got != want {
		t.Errorf("rotated PhysicalPoint = %v, want %v", got, want)
	}
}

func TestGeometryValidate(t *testing.T) {
	good := DefaultGeometry(2, 2, 2)
	if err := good.Validate(); err != nil {
		t.Fatalf("default geometry rejected: %v", err)
	}

	zeroSize := good
	zeroSize.Size[1] = 0
	badSpacing := good
	badSpacing.Spacing[2] = -1
	singular := good
	singular.Direction = [9]float64{1, 0, 0, 1, 0, 0, 0, 0, 1}

	for name, g := range map[string]Geometry{
		"size":      zeroSize,
		"spacing":   badSpacing,
		"direction": singular,
	} {
		if err := g.Validate(); err == nil {
			t.Errorf("%s: Validate succeeded, want error", name)
		}
	}
}

func TestVolumeAccess(t *testing.T) {
	v := NewVolume[int16](DefaultGeometry(3, 2, 2))
	v.Set(2, 1, 1, 7)
	if got := v.Index(2, 1, 1); got != 11 {
		t.Errorf("Index(2, 1, 1) = %d, want 11", got)
	}
	if v.At(2, 1, 1) != 7 || v.Data[11] != 7 {
		t.Errorf("Set/At mismatch: %v", v.Data)
	}
	if got := v.CountValue(0); got != 11 {
		t.Errorf("CountValue(0) = %d, want 11", got)
	}
	if v.InBounds(3, 0, 0) || !v.InBounds(0, 1, 1) {
		t.Error("InBounds is wrong at the grid edge")
	}

	v.Data = v.Data[:5]
	if err := v.Validate(); err == nil {
		t.Error("short data accepted")
	}
}

func TestPixelTypeName(t *testing.T) {
	var vols = []AnyVolume{
		NewVolume[uint8](DefaultGeometry(1, 1, 1)),
		NewVolume[int8](DefaultGeometry(1, 1, 1)),
		NewVolume[uint16](DefaultGeometry(1, 1, 1)),
		NewVolume[int16](DefaultGeometry(1, 1, 1)),
		NewVolume[uint32](DefaultGeometry(1, 1, 1)),
		NewVolume[int32](DefaultGeometry(1, 1, 1)),
		NewVolume[uint64](DefaultGeometry(1, 1, 1)),
		NewVolume[int64](DefaultGeometry(1, 1, 1)),
	}
	want := []string{"uint8", "int8", "uint16", "int16", "uint32", "int32", "uint64", "int64"}
	for i, v := range vols {
		if got := v.PixelType(); got != want[i] {
			t.Errorf("PixelType() = %q, want %q", got, want[i])
		}
	}
}

func TestBoundingBox(t *testing.T) {
	v := NewVolume[uint8](DefaultGeometry(5, 4, 3))
	if _, _, ok := v.BoundingBox(1); ok {
		t.Error("BoundingBox of an empty object reported a box")
	}
	v.Set(3, 0, 2, 1)
	v.Set(1, 2, 1, 1)
	v.Set(4, 3, 0, 2)
	start, size, ok := v.BoundingBox(1)
	if !ok || start != [3]int{1, 0, 1} || size != [3]int{3, 3, 2} {
		t.Errorf("BoundingBox = %v %v %v, want [1 0 1] [3 3 2] true", start, size, ok)
	}
}
