// Package compositor turns a photo, a crop, an ink overlay and a caption into
// one finished print.
//
// The pipeline is strictly ordered: validate the format and photo, crop and
// cover-fit the photo into the preset's photo window, lay it on a blank
// paper canvas, blend the overlay over it, draw the caption, encode PNG. Any
// failure aborts the whole request; no partial image is returned.
//
// A Compositor holds only immutable configuration and may serve concurrent
// requests.
package compositor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"strings"
	"time"

	// Photo decoders.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	xdraw "golang.org/x/image/draw"

	"github.com/xob0t/memoroid/pkg/caption"
	"github.com/xob0t/memoroid/pkg/generator"
	"github.com/xob0t/memoroid/pkg/geometry"
	"github.com/xob0t/memoroid/pkg/preset"
)

// DefaultMaxPixels is the largest photo decoded by default, about 50 MP.
const DefaultMaxPixels = 50_000_000

// OverlayPolicy decides what happens to an overlay that cannot be used.
type OverlayPolicy int

const (
	// OverlaySkip drops a mis-sized or undecodable overlay and keeps going.
	OverlaySkip OverlayPolicy = iota
	// OverlayReject fails the request.
	OverlayReject
)

// ParseOverlayPolicy parses "skip" or "reject".
func ParseOverlayPolicy(s string) (OverlayPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "skip":
		return OverlaySkip, nil
	case "reject":
		return OverlayReject, nil
	}
	return 0, fmt.Errorf("unknown overlay policy %q: use skip or reject", s)
}

func (p OverlayPolicy) String() string {
	if p == OverlayReject {
		return "reject"
	}
	return "skip"
}

// Request is one print to compose.
type Request struct {
	// Format is a preset key. Empty means preset.Default.
	Format string
	// Photo is the encoded original photo (JPEG, PNG, GIF, WebP, BMP or TIFF).
	Photo []byte
	// Crop is in original-photo pixels. Nil means the whole photo.
	Crop *geometry.CropRect
	// Overlay is an encoded ink layer at the preset's full size. Empty means
	// no overlay.
	Overlay []byte
	// Caption is drawn when its text is not blank.
	Caption caption.Spec
	// Date is informational.
	Date time.Time
}

// Result is a finished print.
type Result struct {
	PNG            []byte
	Filename       string
	Format         string
	Width          int
	Height         int
	OverlayApplied bool
}

// Compositor composes prints.
type Compositor struct {
	presets    *preset.Table
	fonts      *caption.FontRegistry
	background color.Color
	overlay    OverlayPolicy
	maxPixels  int
	log        *slog.Logger
	now        func() time.Time
}

// Option configures a Compositor.
type Option func(*Compositor)

// WithPresets replaces the built-in preset table.
func WithPresets(t *preset.Table) Option { return func(c *Compositor) { c.presets = t } }

// WithFonts sets the caption font registry.
func WithFonts(f *caption.FontRegistry) Option { return func(c *Compositor) { c.fonts = f } }

// WithBackground sets the paper color. It is drawn opaque.
func WithBackground(col color.Color) Option {
	return func(c *Compositor) {
		r, g, b, _ := col.RGBA()
		c.background = color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), 0xff}
	}
}

// WithOverlayPolicy sets how unusable overlays are handled.
func WithOverlayPolicy(p OverlayPolicy) Option { return func(c *Compositor) { c.overlay = p } }

// WithMaxPixels caps the decoded photo at n pixels. Headers are checked
// before decoding, so a small file declaring huge dimensions is refused
// without allocating them. n <= 0 restores DefaultMaxPixels.
func WithMaxPixels(n int) Option { return func(c *Compositor) { c.maxPixels = n } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(c *Compositor) { c.log = l } }

// WithClock sets the time source used for filenames.
func WithClock(now func() time.Time) Option { return func(c *Compositor) { c.now = now } }

// New creates a Compositor. Without options it uses the built-in presets,
// embedded fonts only, white paper and the skip overlay policy.
func New(opts ...Option) *Compositor {
	c := &Compositor{
		presets:    preset.Builtin(),
		background: color.RGBA{0xff, 0xff, 0xff, 0xff},
		overlay:    OverlaySkip,
		maxPixels:  DefaultMaxPixels,
		log:        slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxPixels <= 0 {
		c.maxPixels = DefaultMaxPixels
	}
	if c.fonts == nil {
		c.fonts = caption.NewFontRegistry("", caption.WithFontLogger(c.log))
	}
	return c
}

// Presets returns the preset table in use.
func (c *Compositor) Presets() *preset.Table { return c.presets }

// Fonts returns the caption font registry in use.
func (c *Compositor) Fonts() *caption.FontRegistry { return c.fonts }

// Filename is the attachment name for a print of format made at t.
func Filename(format string, t time.Time) string {
	return fmt.Sprintf("memoroid_%s_%d.png", format, t.UnixMilli())
}

// Compose renders req and encodes it as PNG.
func (c *Compositor) Compose(ctx context.Context, req Request) (*Result, error) {
	canvas, applied, err := c.render(ctx, req)
	if err != nil {
		return nil, err
	}

	data, err := generator.PNGBytes(canvas)
	if err != nil {
		return nil, Errorf(KindInternal, "encode", "%w: %w", ErrCompositionFailure, err)
	}

	format := formatKey(req.Format)
	return &Result{
		PNG:            data,
		Filename:       Filename(format, c.now()),
		Format:         format,
		Width:          canvas.Bounds().Dx(),
		Height:         canvas.Bounds().Dy(),
		OverlayApplied: applied,
	}, nil
}

// Render runs every stage except encoding and returns the finished canvas.
func (c *Compositor) Render(ctx context.Context, req Request) (*image.RGBA, error) {
	canvas, _, err := c.render(ctx, req)
	return canvas, err
}

func formatKey(f string) string {
	if f == "" {
		return preset.Default
	}
	return f
}

// Validate runs the request checks that precede decoding: a known format,
// then a photo. It reports the first failure in that order.
func (c *Compositor) Validate(req Request) error {
	_, err := c.validate(req)
	return err
}

func (c *Compositor) validate(req Request) (preset.FormatPreset, error) {
	p, err := c.presets.Lookup(formatKey(req.Format))
	if err != nil {
		return p, &Error{Kind: KindValidation, Op: "format", Err: err}
	}
	if len(req.Photo) == 0 {
		return p, &Error{Kind: KindValidation, Op: "photo", Err: ErrMissingPhoto}
	}
	return p, nil
}

func (c *Compositor) render(ctx context.Context, req Request) (*image.RGBA, bool, error) {
	format := formatKey(req.Format)
	p, err := c.validate(req)
	if err != nil {
		return nil, false, err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(req.Photo))
	if err != nil {
		return nil, false, Errorf(KindInternal, "decode photo", "%w: %w", ErrCompositionFailure, err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(c.maxPixels) {
		return nil, false, Errorf(KindValidation, "photo", "%w: %dx%d exceeds %d pixels",
			ErrPhotoTooLarge, cfg.Width, cfg.Height, c.maxPixels)
	}

	photo, _, err := image.Decode(bytes.NewReader(req.Photo))
	if err != nil {
		return nil, false, Errorf(KindInternal, "decode photo", "%w: %w", ErrCompositionFailure, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, false, &Error{Kind: KindInternal, Op: "decode photo", Err: err}
	}

	window, err := c.fitPhoto(photo, req.Crop, p)
	if err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, &Error{Kind: KindInternal, Op: "resize", Err: err}
	}

	canvas := generator.NewSolidImage(p.Full.W, p.Full.H, c.background)
	draw.Draw(canvas, p.PhotoRect(), window, image.Point{}, draw.Over)

	applied, err := c.applyOverlay(canvas, req.Overlay, p)
	if err != nil {
		return nil, false, err
	}

	if _, err := caption.Render(canvas, c.fonts, req.Caption, p); err != nil {
		return nil, false, Errorf(KindInternal, "caption", "%w: %w", ErrCompositionFailure, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, false, &Error{Kind: KindInternal, Op: "caption", Err: err}
	}

	c.log.DebugContext(ctx, "composed print",
		"format", format,
		"photo", photo.Bounds().Size(),
		"overlay", applied,
		"caption", req.Caption.Text != "",
		"date", req.Date,
	)
	return canvas, applied, nil
}

// fitPhoto crops photo and cover-fits the crop into the preset's photo
// window.
func (c *Compositor) fitPhoto(photo image.Image, crop *geometry.CropRect, p preset.FormatPreset) (*image.RGBA, error) {
	b := photo.Bounds()
	region := b
	if crop != nil {
		if !crop.Within(b.Dx(), b.Dy()) {
			return nil, Errorf(KindGeometry, "crop", "%w: %v outside %dx%d photo", ErrInvalidCrop, crop, b.Dx(), b.Dy())
		}
		region = crop.Rectangle().Add(b.Min)
	}

	window := image.NewRGBA(image.Rect(0, 0, p.Image.W, p.Image.H))
	src := CoverRect(region, p.Image.W, p.Image.H)
	xdraw.CatmullRom.Scale(window, window.Bounds(), photo, src, xdraw.Src, nil)
	return window, nil
}

// CoverRect returns the largest sub-rectangle of region, centered, with the
// aspect ratio of a w×h target. Scaling it to w×h fills the target with no
// letterboxing.
func CoverRect(region image.Rectangle, w, h int) image.Rectangle {
	rw, rh := region.Dx(), region.Dy()
	if rw <= 0 || rh <= 0 || w <= 0 || h <= 0 {
		return region
	}

	sw, sh := rw, rh
	if rw*h > rh*w {
		// Region is wider than the target: trim the sides.
		sw = max(1, min(rw, int(float64(rh)*float64(w)/float64(h)+0.5)))
	} else {
		// Region is taller: trim top and bottom.
		sh = max(1, min(rh, int(float64(rw)*float64(h)/float64(w)+0.5)))
	}

	x := region.Min.X + (rw-sw)/2
	y := region.Min.Y + (rh-sh)/2
	return image.Rect(x, y, x+sw, y+sh)
}

// applyOverlay blends an encoded overlay over canvas. It reports whether the
// overlay was drawn.
func (c *Compositor) applyOverlay(canvas *image.RGBA, data []byte, p preset.FormatPreset) (bool, error) {
	if len(data) == 0 {
		return false, nil
	}

	undecodable := func(err error) (bool, error) {
		if c.overlay == OverlayReject {
			return false, Errorf(KindInternal, "decode overlay", "%w: %w", ErrCompositionFailure, err)
		}
		c.log.Warn("skipping undecodable overlay", "error", err)
		return false, nil
	}

	// The size comes from the header, so a mis-sized overlay is never decoded.
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return undecodable(err)
	}
	size := image.Pt(cfg.Width, cfg.Height)
	if size.X != p.Full.W || size.Y != p.Full.H {
		if c.overlay == OverlayReject {
			return false, Errorf(KindAsset, "overlay",
				"%w: expected %dx%d, got %dx%d", ErrOverlayDimensionMismatch, p.Full.W, p.Full.H, size.X, size.Y)
		}
		c.log.Warn("skipping mis-sized overlay",
			"expected", fmt.Sprintf("%dx%d", p.Full.W, p.Full.H),
			"got", fmt.Sprintf("%dx%d", size.X, size.Y),
		)
		return false, nil
	}

	overlay, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return undecodable(err)
	}
	draw.Draw(canvas, canvas.Bounds(), overlay, overlay.Bounds().Min, draw.Over)
	return true, nil
}
