// Package editor holds the browser-side editing state for one print: the
// chosen format, the photo and its crop, the caption, and the ink brush.
//
// State is a plain value. Every With* method returns a modified copy, so a
// UI can keep old states around and compare them. Session wraps a State
// together with the ink recorder it drives.
package editor

import (
	"fmt"

	"github.com/xob0t/memoroid/pkg/caption"
	"github.com/xob0t/memoroid/pkg/compositor"
	"github.com/xob0t/memoroid/pkg/geometry"
	"github.com/xob0t/memoroid/pkg/ink"
	"github.com/xob0t/memoroid/pkg/preset"
)

// InkRegion selects where ink may be drawn.
type InkRegion int

const (
	// InkAnywhere allows ink over the whole print.
	InkAnywhere InkRegion = iota
	// InkCaptionBand limits ink to the margin strip below the photo.
	InkCaptionBand
)

// State is one snapshot of the editor.
type State struct {
	presets *preset.Table

	Format string
	Preset preset.FormatPreset

	Photo        []byte
	OriginalSize geometry.Size
	PreviewSize  geometry.Size
	PreviewCrop  *geometry.Box

	Caption    caption.Spec
	CaptionBox geometry.Size

	DrawingMode bool
	StylusOnly  bool
	InkRegion   InkRegion
	Brush       ink.Style
}

// New returns the initial state on the default format. A nil table means
// the built-in presets.
func New(presets *preset.Table) State {
	if presets == nil {
		presets = preset.Builtin()
	}
	s := State{presets: presets, Format: preset.Default, Brush: ink.DefaultStyle()}
	// Every table carries the built-ins, so the default always resolves.
	s.Preset, _ = presets.Lookup(s.Format)
	return s
}

// WithFormat switches the print format and pulls the caption back inside the
// new caption area.
func (s State) WithFormat(key string) (State, error) {
	p, err := s.presets.Lookup(key)
	if err != nil {
		return s, err
	}
	s.Format = key
	s.Preset = p
	return s.clampCaption(), nil
}

// WithPhoto sets a new photo and its natural size. The previous crop is
// dropped; it belonged to the previous photo.
func (s State) WithPhoto(data []byte, original geometry.Size) State {
	s.Photo = data
	s.OriginalSize = original
	s.PreviewCrop = nil
	return s
}

// WithOriginalSize records the photo's natural size once it is known.
func (s State) WithOriginalSize(size geometry.Size) State {
	s.OriginalSize = size
	return s
}

// WithPreviewSize records the rendered size of the crop preview.
func (s State) WithPreviewSize(size geometry.Size) State {
	s.PreviewSize = size
	return s
}

// WithPreviewCrop records the crop rectangle drawn on the preview.
func (s State) WithPreviewCrop(box geometry.Box) State {
	s.PreviewCrop = &box
	return s
}

// WithCaptionText sets the caption text, normalized and truncated.
func (s State) WithCaptionText(text string) State {
	s.Caption.Text = caption.Normalize(text)
	return s
}

// WithCaptionFont sets the caption font and size. A non-positive size means
// the format's default.
func (s State) WithCaptionFont(name string, size float64) State {
	s.Caption.Font = name
	s.Caption.FontSize = size
	return s
}

// WithCaptionColor sets the caption fill color.
func (s State) WithCaptionColor(hex string) State {
	s.Caption.Color = hex
	return s
}

// WithCaptionBox records the caption's rendered size and re-clamps it.
func (s State) WithCaptionBox(box geometry.Size) State {
	s.CaptionBox = box
	return s.clampCaption()
}

// WithCaptionPosition moves the caption, clamped into the caption area.
func (s State) WithCaptionPosition(pos caption.Position) State {
	s.Caption.Position = &pos
	return s.clampCaption()
}

// WithDrawingMode enables touch and pen ink.
func (s State) WithDrawingMode(on bool) State {
	s.DrawingMode = on
	return s
}

// WithStylusOnly makes touch input never draw.
func (s State) WithStylusOnly(on bool) State {
	s.StylusOnly = on
	return s
}

// WithInkRegion restricts where ink may go.
func (s State) WithInkRegion(r InkRegion) State {
	s.InkRegion = r
	return s
}

// WithBrush sets the brush for new strokes.
func (s State) WithBrush(style ink.Style) State {
	s.Brush = style
	return s
}

func (s State) clampCaption() State {
	if s.Caption.Position == nil {
		return s
	}
	pos := caption.Clamp(*s.Caption.Position, s.CaptionBox, s.Preset.CaptionArea())
	s.Caption.Position = &pos
	return s
}

// CaptionPosition is the caption anchor, or the format's default.
func (s State) CaptionPosition() caption.Position {
	if s.Caption.Position != nil {
		return *s.Caption.Position
	}
	return caption.DefaultPosition(s.Preset)
}

// Policy is the ink device policy for this state.
func (s State) Policy() ink.Policy {
	return ink.Policy{DrawingMode: s.DrawingMode, StylusOnly: s.StylusOnly}
}

// Band is the ink region, or nil when ink may go anywhere.
func (s State) Band() *ink.Band {
	if s.InkRegion != InkCaptionBand {
		return nil
	}
	area := s.Preset.CaptionArea()
	return &ink.Band{Y: area.Min.Y, Height: area.Dy()}
}

// Crop converts the preview crop to original pixels. exact is false while the
// photo or preview size is still unknown; the crop is then provisional. ok is
// false when no crop has been drawn.
func (s State) Crop() (crop geometry.CropRect, exact, ok bool) {
	if s.PreviewCrop == nil {
		return geometry.CropRect{}, false, false
	}
	crop, exact = geometry.ResolveCrop(*s.PreviewCrop, s.PreviewSize, s.OriginalSize)
	return crop, exact, true
}

// Request assembles a compose request with the given encoded overlay.
func (s State) Request(overlay []byte) (compositor.Request, error) {
	if len(s.Photo) == 0 {
		return compositor.Request{}, &compositor.Error{Kind: compositor.KindValidation, Op: "photo", Err: compositor.ErrMissingPhoto}
	}

	req := compositor.Request{
		Format:  s.Format,
		Photo:   s.Photo,
		Overlay: overlay,
		Caption: s.Caption,
	}
	if crop, _, ok := s.Crop(); ok {
		req.Crop = &crop
	}
	return req, nil
}

func (s State) String() string {
	return fmt.Sprintf("editor{format=%s photo=%dB crop=%v caption=%q drawing=%t}",
		s.Format, len(s.Photo), s.PreviewCrop, s.Caption.Text, s.DrawingMode)
}
