// table.go - Immutable preset tables and JSON preset files.
package preset

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"
)

// Table is an immutable set of presets keyed by format name.
// It is safe for concurrent use.
type Table struct {
	presets map[string]FormatPreset
}

var builtin = &Table{presets: maps.Clone(builtins)}

// Builtin returns the table of built-in formats.
func Builtin() *Table {
	return builtin
}

// Lookup resolves a key against the built-in table.
func Lookup(key string) (FormatPreset, error) {
	return builtin.Lookup(key)
}

// NewTable builds a table from the built-ins plus extra, validating every entry.
// Entries in extra replace built-ins with the same key.
func NewTable(extra map[string]FormatPreset) (*Table, error) {
	presets := maps.Clone(builtins)
	for key, p := range extra {
		if key == "" {
			return nil, fmt.Errorf("preset with empty key")
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("preset %q: %w", key, err)
		}
		presets[key] = p
	}
	return &Table{presets: presets}, nil
}

// LoadTable reads a JSON object of presets from path and merges it over the
// built-ins:
//
//	{"square": {"full": {"w": 900, "h": 1100}, "image": {"w": 800, "h": 800}, "offset": {"left": 50, "top": 50}}}
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}

	var extra map[string]FormatPreset
	if err := json.Unmarshal(data, &extra); err != nil {
		return nil, fmt.Errorf("parse presets %s: %w", path, err)
	}

	return NewTable(extra)
}

// Lookup returns the preset registered under key.
func (t *Table) Lookup(key string) (FormatPreset, error) {
	p, ok := t.presets[key]
	if !ok {
		return FormatPreset{}, fmt.Errorf("%w: %q", ErrInvalidFormat, key)
	}
	return p, nil
}

// Keys returns the registered format names in sorted order.
func (t *Table) Keys() []string {
	return slices.Sorted(maps.Keys(t.presets))
}

// Validate checks that the photo window fits inside the paper.
func (p FormatPreset) Validate() error {
	if p.Full.W <= 0 || p.Full.H <= 0 {
		return fmt.Errorf("full size %dx%d must be positive", p.Full.W, p.Full.H)
	}
	if p.Image.W <= 0 || p.Image.H <= 0 {
		return fmt.Errorf("image size %dx%d must be positive", p.Image.W, p.Image.H)
	}
	if p.Offset.Left < 0 || p.Offset.Top < 0 {
		return fmt.Errorf("offset (%d,%d) must not be negative", p.Offset.Left, p.Offset.Top)
	}
	if p.Offset.Left+p.Image.W > p.Full.W {
		return fmt.Errorf("photo window overflows paper width: %d+%d > %d", p.Offset.Left, p.Image.W, p.Full.W)
	}
	if p.Offset.Top+p.Image.H > p.Full.H {
		return fmt.Errorf("photo window overflows paper height: %d+%d > %d", p.Offset.Top, p.Image.H, p.Full.H)
	}
	return nil
}
