// Package geometry converts between the coordinate spaces of the editor:
// pointer/display space, preview-image space, and original-image or
// internal-canvas space. Every function here is pure.
package geometry

import (
	"fmt"
	"image"
	"math"
)

// Point is an integer pixel position in internal-canvas space.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Rect is an on-screen rectangle in client (CSS pixel) coordinates, the
// shape a browser reports for an element's bounding box.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Size is a width/height pair. Preview sizes may be fractional.
type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Known reports whether both dimensions are positive.
func (s Size) Known() bool {
	return s.W > 0 && s.H > 0
}

// Box is a rectangle drawn on a scaled preview, in preview pixels.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Round rounds every field half up, without scaling.
func (b Box) Round() CropRect {
	return CropRect{
		X:      round(b.X),
		Y:      round(b.Y),
		Width:  round(b.Width),
		Height: round(b.Height),
	}
}

// CropRect is a crop in the original photo's pixel space.
type CropRect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rectangle returns the crop as an image.Rectangle.
func (c CropRect) Rectangle() image.Rectangle {
	return image.Rect(c.X, c.Y, c.X+c.Width, c.Y+c.Height)
}

// Within reports whether the crop is non-empty and lies inside a w×h image.
func (c CropRect) Within(w, h int) bool {
	return c.Width > 0 && c.Height > 0 &&
		c.X >= 0 && c.Y >= 0 &&
		c.X+c.Width <= w && c.Y+c.Height <= h
}

func (c CropRect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", c.Width, c.Height, c.X, c.Y)
}

// round rounds half up, so 2.5 → 3 and -2.5 → -2.
func round(v float64) int {
	return int(math.Floor(v + 0.5))
}

func clamp(n, lo, hi int) int {
	return max(lo, min(hi, n))
}
