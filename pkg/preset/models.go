// Package preset holds the print-format geometry table: paper size, photo
// window size and photo window offset for every supported output format.
package preset

import (
	"errors"
	"image"
	"math"
)

// ErrInvalidFormat is returned when a format key is not registered.
var ErrInvalidFormat = errors.New("invalid format")

// Built-in format keys.
const (
	Instax   = "instax"
	Polaroid = "polaroid"

	// Default is used when a request does not name a format.
	Default = Instax
)

// ── Geometry types ──

// Size is a pixel extent.
type Size struct {
	W int `json:"w"`
	H int `json:"h"`
}

// Offset is the photo window's top-left corner within the paper canvas.
type Offset struct {
	Left int `json:"left"`
	Top  int `json:"top"`
}

// FormatPreset describes one physical print format at 300 DPI.
type FormatPreset struct {
	Full   Size   `json:"full"`   // finished paper canvas
	Image  Size   `json:"image"`  // photo window
	Offset Offset `json:"offset"` // photo window position on the paper
}

// builtins are the formats every table starts from.
var builtins = map[string]FormatPreset{
	Instax: {
		Full:   Size{W: 1016, H: 638},
		Image:  Size{W: 732, H: 543},
		Offset: Offset{Left: 142, Top: 47},
	},
	Polaroid: {
		Full:   Size{W: 1270, H: 1045},
		Image:  Size{W: 932, H: 907},
		Offset: Offset{Left: 169, Top: 69},
	},
}

// PhotoRect is the photo window in canvas coordinates.
func (p FormatPreset) PhotoRect() image.Rectangle {
	return image.Rect(p.Offset.Left, p.Offset.Top, p.Offset.Left+p.Image.W, p.Offset.Top+p.Image.H)
}

// CaptionArea is the margin strip below the photo window, spanning the full
// paper width. Captions and caption-band ink live here.
func (p FormatPreset) CaptionArea() image.Rectangle {
	return image.Rect(0, p.Offset.Top+p.Image.H, p.Full.W, p.Full.H)
}

// Aspect is the photo window's width/height ratio, used to lock the crop widget.
func (p FormatPreset) Aspect() float64 {
	if p.Image.H == 0 {
		return 0
	}
	return float64(p.Image.W) / float64(p.Image.H)
}

// DefaultFontSize is the caption size used when a request names none.
func (p FormatPreset) DefaultFontSize() float64 {
	return math.Round(float64(p.Full.H) * 0.035)
}
