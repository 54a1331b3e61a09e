package models

import (
	"encoding/binary"
	"fmt"
)

// Pixel is the set of integer pixel types a labeled volume may carry.
type Pixel interface {
	~uint8 | ~int8 | ~uint16 | ~int16 | ~uint32 | ~int32 | ~uint64 | ~int64
}

// Visitor receives the concrete volume behind an AnyVolume. Every pixel type
// has a method, so an implementation that misses one does not compile.
type Visitor interface {
	Uint8(*Volume[uint8]) error
	Int8(*Volume[int8]) error
	Uint16(*Volume[uint16]) error
	Int16(*Volume[int16]) error
	Uint32(*Volume[uint32]) error
	Int32(*Volume[int32]) error
	Uint64(*Volume[uint64]) error
	Int64(*Volume[int64]) error
}

// Visit calls the method of vis matching the pixel type of v.
func Visit(v AnyVolume, vis Visitor) error {
	switch v := v.(type) {
	case *Volume[uint8]:
		return vis.Uint8(v)
	case *Volume[int8]:
		return vis.Int8(v)
	case *Volume[uint16]:
		return vis.Uint16(v)
	case *Volume[int16]:
		return vis.Int16(v)
	case *Volume[uint32]:
		return vis.Uint32(v)
	case *Volume[int32]:
		return vis.Int32(v)
	case *Volume[uint64]:
		return vis.Uint64(v)
	case *Volume[int64]:
		return vis.Int64(v)
	}
	return fmt.Errorf("unsupported pixel type %s", v.PixelType())
}

type pixelKind struct {
	name  string
	size  int
	alloc func(Geometry) AnyVolume
}

func kind[T Pixel]() pixelKind {
	var zero T
	return pixelKind{
		name:  PixelTypeName[T](),
		size:  binary.Size(zero),
		alloc: func(g Geometry) AnyVolume { return NewVolume[T](g) },
	}
}

var pixelKinds = []pixelKind{
	kind[uint8](), kind[int8](),
	kind[uint16](), kind[int16](),
	kind[uint32](), kind[int32](),
	kind[uint64](), kind[int64](),
}

func lookupKind(pixelType string) (pixelKind, error) {
	for _, k := range pixelKinds {
		if k.name == pixelType {
			return k, nil
		}
	}
	return pixelKind{}, fmt.Errorf("unsupported pixel type %q", pixelType)
}

// PixelTypes returns the names of every supported pixel type.
func PixelTypes() []string {
	names := make([]string, len(pixelKinds))
	for i, k := range pixelKinds {
		names[i] = k.name
	}
	return names
}

// PixelSize returns the encoded size in bytes of one value of pixelType.
func PixelSize(pixelType string) (int, error) {
	k, err := lookupKind(pixelType)
	if err != nil {
		return 0, err
	}
	return k.size, nil
}

// NewAnyVolume allocates a zero-filled volume of the named pixel type.
func NewAnyVolume(pixelType string, geom Geometry) (AnyVolume, error) {
	k, err := lookupKind(pixelType)
	if err != nil {
		return nil, err
	}
	return k.alloc(geom), nil
}

// PixelTypeName names the element type of T.
func PixelTypeName[T Pixel]() string {
	var zero T
	switch any(zero).(type) {
	case uint8:
		return "uint8"
	case int8:
		return "int8"
	case uint16:
		return "uint16"
	case int16:
		return "int16"
	case uint32:
		return "uint32"
	case int32:
		return "int32"
	case uint64:
		return "uint64"
	case int64:
		return "int64"
	}
	return fmt.Sprintf("%T", zero)
}
