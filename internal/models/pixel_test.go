package models

import (
	"encoding/binary"
	"testing"
)

// recorder notes which method Visit called.
type recorder struct {
	got string
}

func (r *recorder) Uint8(*Volume[uint8]) error   { r.got = "uint8"; return nil }
func (r *recorder) Int8(*Volume[int8]) error     { r.got = "int8"; return nil }
func (r *recorder) Uint16(*Volume[uint16]) error { r.got = "uint16"; return nil }
func (r *recorder) Int16(*Volume[int16]) error   { r.got = "int16"; return nil }
func (r *recorder) Uint32(*Volume[uint32]) error { r.got = "uint32"; return nil }
func (r *recorder) Int32(*Volume[int32]) error   { r.got = "int32"; return nil }
func (r *recorder) Uint64(*Volume[uint64]) error { r.got = "uint64"; return nil }
func (r *recorder) Int64(*Volume[int64]) error   { r.got = "int64"; return nil }

func TestEveryPixelTypeIsVisited(t *testing.T) {
	geom := DefaultGeometry(2, 1, 1)
	sizes := map[string]int{
		"uint8": 1, "int8": 1, "uint16": 2, "int16": 2,
		"uint32": 4, "int32": 4, "uint64": 8, "int64": 8,
	}
	if got := len(PixelTypes()); got != len(sizes) {
		t.Fatalf("%d pixel types, want %d", got, len(sizes))
	}
	for _, name := range PixelTypes() {
		v, err := NewAnyVolume(name, geom)
		if err != nil {
			t.Fatalf("NewAnyVolume(%q): %v", name, err)
		}
		if v.PixelType() != name {
			t.Errorf("NewAnyVolume(%q) built a %s volume", name, v.PixelType())
		}
		if err := v.Validate(); err != nil {
			t.Errorf("%s volume is invalid: %v", name, err)
		}
		size, err := PixelSize(name)
		if err != nil || size != sizes[name] {
			t.Errorf("PixelSize(%q) = %d, %v, want %d", name, size, err, sizes[name])
		}
		var r recorder
		if err := Visit(v, &r); err != nil || r.got != name {
			t.Errorf("Visit of a %s volume called %q (%v)", name, r.got, err)
		}
	}

	if _, err := NewAnyVolume("float32", geom); err == nil {
		t.Error("NewAnyVolume accepted float32")
	}
	if _, err := PixelSize("float32"); err == nil {
		t.Error("PixelSize accepted float32")
	}
}

func TestDecode(t *testing.T) {
	v := NewVolume[int16](DefaultGeometry(2, 1, 1))
	if err := v.Decode([]byte{0xff, 0xfe, 0x00, 0x07}, binary.BigEndian); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if v.Data[0] != -2 || v.Data[1] != 7 {
		t.Errorf("Decode = %v, want [-2 7]", v.Data)
	}
	if err := v.Decode([]byte{1, 2, 3}, binary.LittleEndian); err == nil {
		t.Error("Decode accepted a short payload")
	}
}
