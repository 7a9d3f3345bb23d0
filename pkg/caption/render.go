package caption

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/xob0t/memoroid/pkg/generator"
	"github.com/xob0t/memoroid/pkg/preset"
)

var defaultInk = color.RGBA{0x11, 0x11, 0x11, 0xff}

// Render draws spec onto dst using fonts. Empty text is a no-op. It returns
// the caption's layout box in canvas pixels.
func Render(dst draw.Image, fonts *FontRegistry, spec Spec, p preset.FormatPreset) (image.Rectangle, error) {
	spec = spec.Resolve(p)
	if spec.Text == "" {
		return image.Rectangle{}, nil
	}

	face, err := fonts.Face(spec.Font, spec.FontSize)
	if err != nil {
		return image.Rectangle{}, fmt.Errorf("caption font %q: %w", spec.Font, err)
	}
	defer face.Close()

	col := generator.ParseHexRGBA(spec.Color, defaultInk)
	pos := *spec.Position
	Draw(dst, face, spec.Text, pos, col)

	box := Measure(face, spec.Text)
	return image.Rect(
		int(math.Floor(pos.X-box.W/2)),
		int(math.Floor(pos.Y-box.H/2)),
		int(math.Ceil(pos.X+box.W/2)),
		int(math.Ceil(pos.Y+box.H/2)),
	), nil
}

// Fit measures text at the given font and size and clamps pos into the
// preset's caption area.
func Fit(fonts *FontRegistry, spec Spec, p preset.FormatPreset) (Position, error) {
	spec = spec.Resolve(p)
	if spec.Text == "" {
		return *spec.Position, nil
	}

	face, err := fonts.Face(spec.Font, spec.FontSize)
	if err != nil {
		return Position{}, err
	}
	defer face.Close()

	return Clamp(*spec.Position, Measure(face, spec.Text), p.CaptionArea()), nil
}
