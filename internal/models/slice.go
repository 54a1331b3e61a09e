package models

import (
	"image"
)

// Slice is one decoded image of a slice stack with its place in the stack.
type Slice struct {
	// Image is the decoded slice
	Image image.Image

	// Index is the position of this slice in the sorted sequence
	Index int

	// Filename is the original filename of the slice
	Filename string

	// Position is the physical z position of the slice in mm
	Position float64
}

// Width returns the slice width in pixels.
func (s Slice) Width() int {
	return s.Image.Bounds().Dx()
}

// Height returns the slice height in pixels.
func (s Slice) Height() int {
	return s.Image.Bounds().Dy()
}
