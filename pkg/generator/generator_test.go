package generator

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.NRGBA
	}{
		{"#ffffff", color.NRGBA{255, 255, 255, 255}},
		{"111111", color.NRGBA{0x11, 0x11, 0x11, 255}},
		{"#f0a", color.NRGBA{0xff, 0x00, 0xaa, 255}},
		{"#10203080", color.NRGBA{0x10, 0x20, 0x30, 0x80}},
		{"  #ABCDEF ", color.NRGBA{0xab, 0xcd, 0xef, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "#", "#12345", "#gggggg", "random"} {
		_, err := ParseColor(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseHexRGBA(t *testing.T) {
	white := color.RGBA{255, 255, 255, 255}
	assert.Equal(t, color.RGBA{1, 2, 3, 255}, ParseHexRGBA("#010203", white))
	assert.Equal(t, white, ParseHexRGBA("nope", white))
	// Alpha is dropped: paper is always opaque.
	assert.Equal(t, color.RGBA{1, 2, 3, 255}, ParseHexRGBA("#01020300", white))
}

func TestNewSolidImage(t *testing.T) {
	img := NewSolidImage(4, 3, color.RGBA{10, 20, 30, 255})
	assert.Equal(t, image.Rect(0, 0, 4, 3), img.Bounds())
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			assert.Equal(t, color.RGBA{10, 20, 30, 255}, img.RGBAAt(x, y))
		}
	}
}

func TestPNGBytesRoundTrip(t *testing.T) {
	src := NewSolidImage(8, 8, color.RGBA{200, 100, 50, 255})

	data, err := PNGBytes(src)
	require.NoError(t, err)

	decoded, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, src.Bounds(), decoded.Bounds())

	r, g, b, a := decoded.At(3, 3).RGBA()
	assert.Equal(t, []uint32{200, 100, 50, 255}, []uint32{r >> 8, g >> 8, b >> 8, a >> 8})

	again, err := PNGBytes(src)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	src := NewSolidImage(16, 9, color.RGBA{0, 0, 0, 255})

	t.Run("png", func(t *testing.T) {
		out := filepath.Join(dir, "print.png")
		require.NoError(t, Generate(out, src))

		f, err := os.Open(out)
		require.NoError(t, err)
		defer f.Close()
		cfg, err := png.DecodeConfig(f)
		require.NoError(t, err)
		assert.Equal(t, 16, cfg.Width)
		assert.Equal(t, 9, cfg.Height)
	})

	t.Run("jpeg", func(t *testing.T) {
		out := filepath.Join(dir, "proof.JPG")
		require.NoError(t, Generate(out, src))

		f, err := os.Open(out)
		require.NoError(t, err)
		defer f.Close()
		_, err = jpeg.DecodeConfig(f)
		assert.NoError(t, err)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		out := filepath.Join(dir, "clip.avi")
		assert.ErrorContains(t, Generate(out, src), "unsupported format")
		_, err := os.Stat(out)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("writer", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, GenerateToWriter(&buf, ".PNG", src))
		assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
		assert.Error(t, GenerateToWriter(&buf, ".bmp", src))
	})
}
