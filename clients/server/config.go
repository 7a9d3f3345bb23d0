package server

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/xob0t/memoroid/pkg/caption"
	"github.com/xob0t/memoroid/pkg/compositor"
	"github.com/xob0t/memoroid/pkg/generator"
	"github.com/xob0t/memoroid/pkg/preset"
)

// FontsEnv names the font directory when --fonts is not given.
const FontsEnv = "MEMOROID_FONTS"

// ComposerFlags are the compositor settings shared by "serve" and "render".
type ComposerFlags struct {
	Fonts         string
	DefaultFont   string
	Background    string
	OverlayPolicy string
	Presets       string
	MaxPixels     int
	LogLevel      string
}

// Bind registers the flags on fs.
func (f *ComposerFlags) Bind(fs *flag.FlagSet) {
	fs.StringVar(&f.Fonts, "fonts", os.Getenv(FontsEnv), "caption font directory (env "+FontsEnv+")")
	fs.StringVar(&f.DefaultFont, "default-font", caption.DefaultFont, "caption font for unknown names")
	fs.StringVar(&f.Background, "background", "#ffffff", "paper color")
	fs.StringVar(&f.OverlayPolicy, "overlay-policy", "skip", "mis-sized ink overlays: skip or reject")
	fs.StringVar(&f.Presets, "presets", "", "JSON file of extra format presets")
	fs.IntVar(&f.MaxPixels, "max-pixels", compositor.DefaultMaxPixels, "largest photo accepted, in pixels")
	fs.StringVar(&f.LogLevel, "log-level", "info", "debug, info, warn or error")
}

// Logger builds a text logger on w at the configured level.
func (f *ComposerFlags) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := ParseLevel(f.LogLevel)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// Compositor builds a compositor from the flags.
func (f *ComposerFlags) Compositor(log *slog.Logger) (*compositor.Compositor, error) {
	policy, err := compositor.ParseOverlayPolicy(f.OverlayPolicy)
	if err != nil {
		return nil, err
	}

	bg, err := generator.ParseColor(f.Background)
	if err != nil {
		return nil, fmt.Errorf("--background: %w", err)
	}

	table := preset.Builtin()
	if f.Presets != "" {
		if table, err = preset.LoadTable(f.Presets); err != nil {
			return nil, err
		}
	}

	if f.Fonts != "" {
		if _, err := os.Stat(f.Fonts); err != nil {
			log.Warn("font directory unavailable, captions use the embedded font", "dir", f.Fonts, "error", err)
		}
	}

	fonts := caption.NewFontRegistry(f.Fonts,
		caption.WithDefaultFont(f.DefaultFont),
		caption.WithFontLogger(log),
	)

	return compositor.New(
		compositor.WithPresets(table),
		compositor.WithFonts(fonts),
		compositor.WithBackground(bg),
		compositor.WithOverlayPolicy(policy),
		compositor.WithMaxPixels(f.MaxPixels),
		compositor.WithLogger(log),
	), nil
}

// ParseLevel parses a slog level name.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: use debug, info, warn or error", s)
	}
	return level, nil
}
