// Memoroid - instant-film print frames for photos.
//
// Usage:
//
//	memoroid render --photo <file> -o <file> [options]
//	memoroid serve [--port 8080]
//	memoroid presets [--presets <path>]
//	memoroid init
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gogpu/gg"

	"github.com/xob0t/memoroid/clients/server"
	"github.com/xob0t/memoroid/pkg/caption"
	"github.com/xob0t/memoroid/pkg/compositor"
	"github.com/xob0t/memoroid/pkg/generator"
	"github.com/xob0t/memoroid/pkg/geometry"
	"github.com/xob0t/memoroid/pkg/preset"
)

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "render":
		err = runRender(os.Args[2:], os.Stdout)
	case "serve":
		err = server.RunServe(os.Args[2:])
	case "presets":
		err = runPresets(os.Args[2:], os.Stdout)
	case "init":
		err = runInit(os.Args[2:], os.Stdout)
	case "help", "-h", "--help":
		printUsage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage(os.Stderr)
		os.Exit(1)
	}
	if err != nil {
		fatal(err)
	}
}

func runRender(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	var cf server.ComposerFlags
	cf.Bind(fs)

	var (
		output, photoPath, overlayPath string
		format, crop, textPos          string
		spec                           caption.Spec
	)
	fs.StringVar(&output, "o", "", "Output file path (.png or .jpg)")
	fs.StringVar(&output, "output", "", "Output file path (.png or .jpg)")
	fs.StringVar(&photoPath, "photo", "", "Photo to frame")
	fs.StringVar(&overlayPath, "overlay", "", "Ink overlay PNG at the format's full size")
	fs.StringVar(&format, "format", preset.Default, "Print format")
	fs.StringVar(&crop, "crop", "", "Crop in photo pixels: x,y,width,height")
	fs.StringVar(&spec.Text, "caption", "", "Caption text")
	fs.StringVar(&spec.Font, "font", "", "Caption font")
	fs.Float64Var(&spec.FontSize, "font-size", 0, "Caption size in px (0 = format default)")
	fs.StringVar(&spec.Color, "text-color", caption.DefaultColor, "Caption color")
	fs.StringVar(&textPos, "text-pos", "", "Caption center: x,y (default: centered in the bottom strip)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if output == "" {
		return errors.New("output file is required (-o)")
	}
	if photoPath == "" {
		return errors.New("photo is required (--photo)")
	}
	if ext := filepath.Ext(output); !generator.Supported(ext) {
		return fmt.Errorf("unsupported format %q: use .png or .jpg", ext)
	}

	log, err := cf.Logger(os.Stderr)
	if err != nil {
		return err
	}
	gg.SetLogger(log)
	comp, err := cf.Compositor(log)
	if err != nil {
		return err
	}

	req := compositor.Request{Format: format, Caption: spec, Date: time.Now()}
	if req.Photo, err = os.ReadFile(photoPath); err != nil {
		return fmt.Errorf("read photo: %w", err)
	}
	if overlayPath != "" {
		if req.Overlay, err = os.ReadFile(overlayPath); err != nil {
			return fmt.Errorf("read overlay: %w", err)
		}
	}
	if crop != "" {
		v, err := parseFloats(crop, 4)
		if err != nil {
			return fmt.Errorf("--crop: %w", err)
		}
		c := geometry.Box{X: v[0], Y: v[1], Width: v[2], Height: v[3]}.Round()
		req.Crop = &c
	}
	if textPos != "" {
		v, err := parseFloats(textPos, 2)
		if err != nil {
			return fmt.Errorf("--text-pos: %w", err)
		}
		req.Caption.Position = &caption.Position{X: v[0], Y: v[1]}
	}

	img, err := comp.Render(context.Background(), req)
	if err != nil {
		return err
	}
	if err := generator.Generate(output, img); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Done: %s (%dx%d)\n", output, img.Bounds().Dx(), img.Bounds().Dy())
	return nil
}

func runPresets(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("presets", flag.ContinueOnError)
	var path string
	fs.StringVar(&path, "presets", "", "JSON file of extra format presets")
	if err := fs.Parse(args); err != nil {
		return err
	}

	table := preset.Builtin()
	if path != "" {
		var err error
		if table, err = preset.LoadTable(path); err != nil {
			return err
		}
	}

	out := make(map[string]preset.FormatPreset, len(table.Keys()))
	for _, key := range table.Keys() {
		out[key], _ = table.Lookup(key)
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// samplePresets is written by "init" as a starting point for --presets.
const samplePresets = `{
  "square": {
    "full": {"w": 1000, "h": 1180},
    "image": {"w": 880, "h": 880},
    "offset": {"left": 60, "top": 60}
  }
}
`

func runInit(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	var out string
	fs.StringVar(&out, "presets", "presets.json", "Output path for sample presets")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := preset.NewTable(mustPresets(samplePresets)); err != nil {
		return fmt.Errorf("sample presets: %w", err)
	}
	if err := os.WriteFile(out, []byte(samplePresets), 0644); err != nil {
		return fmt.Errorf("write presets: %w", err)
	}

	fmt.Fprintf(stdout, "Created: %s\n", out)
	fmt.Fprintf(stdout, "Run: memoroid render --presets %s --format square --photo photo.jpg -o print.png\n", out)
	return nil
}

func mustPresets(s string) map[string]preset.FormatPreset {
	var m map[string]preset.FormatPreset
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		panic(err)
	}
	return m
}

func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("want %d comma-separated numbers, got %q", n, s)
	}
	v := make([]float64, n)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", p)
		}
		v[i] = f
	}
	return v, nil
}

func fatal(err error) {
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `Memoroid: Instant-film print frames (Pure Go)

USAGE:
    memoroid render --photo <file> -o <file> [options]
    memoroid serve [--port 8080] [--open]
    memoroid presets [--presets <path>]
    memoroid init [--presets <path>]

RENDER:
    --photo <path>          Photo to frame (JPEG, PNG, GIF, WebP, BMP, TIFF)
    -o, --output <path>     Output file (.png print master or .jpg proof)
    --format <key>          instax or polaroid (default: instax)
    --crop <x,y,w,h>        Crop in photo pixels (default: whole photo)
    --overlay <path>        Ink overlay PNG at the format's full size
    --caption <text>        Caption text (max 50 characters)
    --font <name>           Caption font (default: AmaticSC)
    --font-size <px>        Caption size (default: 3.5% of print height)
    --text-color <hex>      Caption color (default: #111111)
    --text-pos <x,y>        Caption center (default: middle of the bottom strip)

COMPOSER (render and serve):
    --fonts <dir>           Caption font directory (env MEMOROID_FONTS)
    --default-font <name>   Font for unknown names
    --background <hex>      Paper color (default: #ffffff)
    --overlay-policy <p>    skip or reject mis-sized overlays (default: skip)
    --presets <path>        JSON file of extra formats
    --max-pixels <n>        Largest photo accepted (default: 50000000)
    --log-level <level>     debug, info, warn or error

UI SERVER:
    memoroid serve [--port 8080] [--max-upload 12]    Start the web editor

EXAMPLES:
    memoroid render --photo beach.jpg -o beach.png
    memoroid render --photo beach.jpg --format polaroid --crop 0,0,900,875 --caption "July" -o beach.png
    memoroid serve --open
    memoroid init && memoroid presets --presets presets.json
`)
}
