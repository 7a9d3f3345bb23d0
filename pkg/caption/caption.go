// Package caption places and renders the text caption printed in the margin
// strip below the photo window.
package caption

import (
	"image"
	"image/color"
	"image/draw"
	"strings"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/norm"

	"github.com/xob0t/memoroid/pkg/geometry"
	"github.com/xob0t/memoroid/pkg/preset"
)

// MaxRunes caps caption length.
const MaxRunes = 50

// DefaultColor is the caption fill when none is given.
const DefaultColor = "#111111"

// Position is a caption anchor in target-canvas pixels. The caption is
// centered on it horizontally and vertically.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Spec describes one caption. Zero fields take defaults from the preset.
type Spec struct {
	Text     string    `json:"text"`
	Font     string    `json:"font,omitempty"`
	FontSize float64   `json:"fontSize,omitempty"`
	Color    string    `json:"color,omitempty"`
	Position *Position `json:"position,omitempty"`
}

// Normalize composes text to NFC, trims surrounding space and truncates it
// to MaxRunes.
func Normalize(text string) string {
	text = strings.TrimSpace(norm.NFC.String(text))
	if utf8.RuneCountInString(text) <= MaxRunes {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:MaxRunes]))
}

// DefaultPosition is the center of the margin strip below the photo window.
func DefaultPosition(p preset.FormatPreset) Position {
	area := p.CaptionArea()
	return Position{
		X: float64(area.Min.X+area.Max.X) / 2,
		Y: float64(area.Min.Y+area.Max.Y) / 2,
	}
}

// Clamp keeps a caption of extent box, centered on pos, inside area. An axis
// on which the caption is larger than the area centers on that axis.
func Clamp(pos Position, box geometry.Size, area image.Rectangle) Position {
	return Position{
		X: clampAxis(pos.X, box.W, float64(area.Min.X), float64(area.Max.X)),
		Y: clampAxis(pos.Y, box.H, float64(area.Min.Y), float64(area.Max.Y)),
	}
}

func clampAxis(v, extent, lo, hi float64) float64 {
	lo += extent / 2
	hi -= extent / 2
	if lo > hi {
		return (lo + hi) / 2
	}
	return max(lo, min(hi, v))
}

// Resolve fills unset fields of s from the preset: font size, color and the
// default position. The text is normalized.
func (s Spec) Resolve(p preset.FormatPreset) Spec {
	s.Text = Normalize(s.Text)
	if s.FontSize <= 0 {
		s.FontSize = p.DefaultFontSize()
	}
	if s.Color == "" {
		s.Color = DefaultColor
	}
	if s.Position == nil {
		pos := DefaultPosition(p)
		s.Position = &pos
	}
	return s
}

// Measure returns the caption's layout box: the advance width and the line
// height (ascent + descent). The box does not depend on which glyphs have
// descenders, so a caption does not jump while it is typed.
func Measure(face font.Face, text string) geometry.Size {
	adv := font.MeasureString(face, text)
	m := face.Metrics()
	return geometry.Size{
		W: fixedToFloat(adv),
		H: fixedToFloat(m.Ascent + m.Descent),
	}
}

// Draw renders text centered on pos.
func Draw(dst draw.Image, face font.Face, text string, pos Position, col color.Color) {
	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
	}

	adv := drawer.MeasureString(text)
	m := face.Metrics()
	drawer.Dot = fixed.Point26_6{
		X: floatToFixed(pos.X) - adv/2,
		Y: floatToFixed(pos.Y) + (m.Ascent-m.Descent)/2,
	}
	drawer.DrawString(text)
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

func floatToFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(v * 64)
}
