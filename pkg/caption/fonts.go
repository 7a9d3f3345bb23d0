// fonts.go - Caption font registry: a fixed name→file map with embedded
// fallbacks. Uses golang.org/x/image/font for OpenType rendering. Unknown
// names resolve to the default font, and a font file that cannot be loaded
// falls back to the embedded Go Regular face.
package caption

import (
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// DefaultFont is the caption font used when a request names none.
const DefaultFont = "AmaticSC"

// FontFiles maps caption font names to files inside the font directory.
var FontFiles = map[string]string{
	"AmaticSC":         "AmaticSC-Regular.ttf",
	"IndieFlower":      "IndieFlower-Regular.ttf",
	"Caveat":           "Caveat-Regular.ttf",
	"ShadowsIntoLight": "ShadowsIntoLight-Regular.ttf",
}

// embeddedFonts ship inside the binary and never fail to load.
var embeddedFonts = map[string][]byte{
	"GoRegular": goregular.TTF,
	"GoBold":    gobold.TTF,
	"GoItalic":  goitalic.TTF,
}

// FontRegistry resolves caption font names to parsed fonts. Parsed fonts are
// cached; the registry is safe for concurrent use.
type FontRegistry struct {
	dir         string
	files       map[string]string
	defaultName string
	log         *slog.Logger

	mu     sync.Mutex
	parsed map[string]*opentype.Font
}

// FontOption configures a FontRegistry.
type FontOption func(*FontRegistry)

// WithDefaultFont sets the name unknown fonts resolve to.
func WithDefaultFont(name string) FontOption {
	return func(r *FontRegistry) { r.defaultName = name }
}

// WithFontFile registers or replaces a name→file entry.
func WithFontFile(name, file string) FontOption {
	return func(r *FontRegistry) { r.files[name] = file }
}

// WithFontLogger sets the logger used for fallback warnings.
func WithFontLogger(l *slog.Logger) FontOption {
	return func(r *FontRegistry) { r.log = l }
}

// NewFontRegistry creates a registry reading font files from dir.
// An empty dir means only embedded fonts load; file fonts fall back.
func NewFontRegistry(dir string, opts ...FontOption) *FontRegistry {
	r := &FontRegistry{
		dir:         dir,
		files:       maps.Clone(FontFiles),
		defaultName: DefaultFont,
		log:         slog.Default(),
		parsed:      make(map[string]*opentype.Font),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Names lists every font name the registry knows, sorted.
func (r *FontRegistry) Names() []string {
	names := slices.Collect(maps.Keys(r.files))
	for name := range embeddedFonts {
		if _, ok := r.files[name]; !ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// DefaultName is the font unknown names resolve to.
func (r *FontRegistry) DefaultName() string { return r.defaultName }

// Resolve returns the canonical font name for name, substituting the default
// for empty or unknown names.
func (r *FontRegistry) Resolve(name string) string {
	if _, ok := r.files[name]; ok {
		return name
	}
	if _, ok := embeddedFonts[name]; ok {
		return name
	}
	return r.defaultName
}

// Font returns the parsed font for name.
func (r *FontRegistry) Font(name string) (*opentype.Font, error) {
	name = r.Resolve(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if f, ok := r.parsed[name]; ok {
		return f, nil
	}

	f, err := r.load(name)
	if err != nil {
		return nil, err
	}
	r.parsed[name] = f
	return f, nil
}

// load reads and parses one font, falling back to embedded Go Regular.
func (r *FontRegistry) load(name string) (*opentype.Font, error) {
	if data, ok := embeddedFonts[name]; ok {
		return parseFont(data)
	}

	file, ok := r.files[name]
	if !ok || r.dir == "" {
		r.log.Warn("caption font unavailable, using embedded fallback", "font", name)
		return parseFont(goregular.TTF)
	}

	path := filepath.Join(r.dir, file)
	data, err := os.ReadFile(path)
	if err != nil {
		r.log.Warn("could not load caption font, using embedded fallback", "font", name, "path", path, "error", err)
		return parseFont(goregular.TTF)
	}

	f, err := parseFont(data)
	if err != nil {
		r.log.Warn("could not parse caption font, using embedded fallback", "font", name, "path", path, "error", err)
		return parseFont(goregular.TTF)
	}
	return f, nil
}

// Face returns a font.Face at size pixels. Faces are not safe for concurrent
// use; create one per render.
func (r *FontRegistry) Face(name string, size float64) (font.Face, error) {
	f, err := r.Font(name)
	if err != nil {
		return nil, err
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}

	return face, nil
}

func parseFont(data []byte) (*opentype.Font, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	return f, nil
}
