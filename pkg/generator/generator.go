// Package generator writes finished print images to files and writers.
//
// All output follows one pipeline: the compositor produces an image.Image,
// and generator encodes it as PNG (print master) or JPEG (proof).
package generator

import (
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// JPEGQuality is used for ".jpg" / ".jpeg" proofs.
const JPEGQuality = 95

// Generate writes img to output. The format is inferred from the file extension:
//   - ".png" → PNG image
//   - ".jpg", ".jpeg" → JPEG proof
func Generate(output string, img image.Image) error {
	ext := strings.ToLower(filepath.Ext(output))
	if !Supported(ext) {
		return fmt.Errorf("unsupported format %q: use .png or .jpg", ext)
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create %s: %w", output, err)
	}

	if err := GenerateToWriter(f, ext, img); err != nil {
		f.Close()
		os.Remove(output)
		return err
	}
	return f.Close()
}

// GenerateToWriter writes img to w. The format is specified by ext (".png" or ".jpg").
func GenerateToWriter(w io.Writer, ext string, img image.Image) error {
	switch strings.ToLower(ext) {
	case ".png":
		return EncodePNG(w, img)
	case ".jpg", ".jpeg":
		if err := jpeg.Encode(w, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
			return fmt.Errorf("encode JPEG: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format %q: use .png or .jpg", ext)
	}
}

// Supported reports whether ext names an output format.
func Supported(ext string) bool {
	switch strings.ToLower(ext) {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}
