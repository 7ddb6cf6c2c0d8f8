// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import "math"

// Rect is an integer pixel rectangle anchored at its top-left corner.
// It is used for viewports and scissor rectangles.
type Rect struct {
	// X is the left edge in pixels.
	X int
	// Y is the top edge in pixels.
	Y int
	// W is the width in pixels.
	W int
	// H is the height in pixels.
	H int
}

// NewRect creates a Rect covering (0, 0, width, height).
//
// Parameters:
//   - width: the rectangle width in pixels
//   - height: the rectangle height in pixels
//
// Returns:
//   - Rect: the full rectangle
func NewRect(width, height int) Rect {
	return Rect{X: 0, Y: 0, W: width, H: height}
}

// Empty reports whether the rectangle covers no pixels.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Within reports whether r lies inside [0, width) x [0, height).
// Negative origins or extents are never within bounds.
//
// Parameters:
//   - width: the bounding width in pixels
//   - height: the bounding height in pixels
//
// Returns:
//   - bool: true if every pixel of r is inside the bounds
func (r Rect) Within(width, height int) bool {
	if r.X < 0 || r.Y < 0 || r.W < 0 || r.H < 0 {
		return false
	}
	// compared by subtraction so huge origins cannot overflow into range
	return r.X <= width && r.Y <= height && r.W <= width-r.X && r.H <= height-r.Y
}

// Color is a gamma-encoded (sRGB) RGBA color with components in the [0, 1] range.
// Use ToLinear before handing it to the GPU.
type Color struct {
	R, G, B, A float64
}

// ToLinear converts a gamma-encoded (sRGB) color into linear space.
// Alpha is left untouched.
func (c Color) ToLinear() Color {
	return Color{R: srgbToLinear(c.R), G: srgbToLinear(c.G), B: srgbToLinear(c.B), A: c.A}
}

func srgbToLinear(v float64) float64 {
	if v <= 0.04045 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}
