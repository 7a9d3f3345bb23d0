// png.go - PNG encoding for print output.
package generator

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
)

// encoder is shared by every request; png.Encoder is safe for concurrent
// use when BufferPool is nil.
var encoder = png.Encoder{CompressionLevel: png.DefaultCompression}

// EncodePNG writes img as a lossless PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := encoder.Encode(w, img); err != nil {
		return fmt.Errorf("encode PNG: %w", err)
	}
	return nil
}

// PNGBytes encodes img to an in-memory PNG.
func PNGBytes(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodePNG(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
