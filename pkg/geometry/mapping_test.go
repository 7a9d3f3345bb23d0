package geometry

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientToInternal(t *testing.T) {
	rect := Rect{Left: 0, Top: 0, Width: 200, Height: 100}

	tests := []struct {
		name string
		x, y float64
		rect Rect
		want Point
	}{
		{"center maps to center", 100, 50, rect, Point{500, 250}},
		{"origin", 0, 0, rect, Point{0, 0}},
		{"far outside clamps to max index", 5000, 5000, rect, Point{999, 499}},
		{"far negative clamps to zero", -5000, -5000, rect, Point{0, 0}},
		{"right edge clamps", 200, 100, rect, Point{999, 499}},
		{"offset rect", 150, 80, Rect{Left: 50, Top: 30, Width: 200, Height: 100}, Point{500, 250}},
		{"rounds half up", 0.1, 0.1, rect, Point{1, 1}},
		{"non uniform scale", 100, 50, Rect{Width: 400, Height: 100}, Point{250, 250}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClientToInternal(tt.x, tt.y, tt.rect, 1000, 500)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClientToInternalStaysInBounds(t *testing.T) {
	rect := Rect{Left: 12.5, Top: 40, Width: 333, Height: 209}
	for x := rect.Left; x <= rect.Left+rect.Width; x += 7.3 {
		for y := rect.Top; y <= rect.Top+rect.Height; y += 5.1 {
			p := ClientToInternal(x, y, rect, 1016, 638)
			assert.True(t, p.X >= 0 && p.X <= 1015, "x=%v → %d", x, p.X)
			assert.True(t, p.Y >= 0 && p.Y <= 637, "y=%v → %d", y, p.Y)
		}
	}
}

func TestClientToInternalDegenerateRect(t *testing.T) {
	// A zero-size display rect cannot be mapped; the result stays clamped.
	assert.Equal(t, Point{0, 0}, ClientToInternal(30, 40, Rect{}, 100, 100))
	assert.Equal(t, Point{0, 0}, ClientToInternal(30, 40, Rect{Width: 10, Height: 10}, 0, 0))
}

func TestPreviewCropToOriginal(t *testing.T) {
	t.Run("scale linear", func(t *testing.T) {
		got := PreviewCropToOriginal(
			Box{X: 10, Y: 20, Width: 80, Height: 40},
			Size{W: 100, H: 50},
			Size{W: 2000, H: 1000},
		)
		assert.Equal(t, CropRect{X: 200, Y: 400, Width: 1600, Height: 800}, got)
	})

	t.Run("independent axes", func(t *testing.T) {
		got := PreviewCropToOriginal(
			Box{X: 10, Y: 10, Width: 10, Height: 10},
			Size{W: 100, H: 100},
			Size{W: 300, H: 150},
		)
		assert.Equal(t, CropRect{X: 30, Y: 15, Width: 30, Height: 15}, got)
	})

	t.Run("fields round independently", func(t *testing.T) {
		// 1.5 → 2 and 1.5 → 2, while the scaled corner 3.0 rounds to 3:
		// x+width drifts one pixel past the corner.
		got := PreviewCropToOriginal(
			Box{X: 1, Y: 0, Width: 1, Height: 1},
			Size{W: 2, H: 2},
			Size{W: 3, H: 2},
		)
		assert.Equal(t, 2, got.X)
		assert.Equal(t, 2, got.Width)
		assert.Equal(t, 4, got.X+got.Width)
	})

	t.Run("identity", func(t *testing.T) {
		got := PreviewCropToOriginal(Box{X: 3, Y: 4, Width: 5, Height: 6}, Size{W: 640, H: 480}, Size{W: 640, H: 480})
		assert.Equal(t, CropRect{X: 3, Y: 4, Width: 5, Height: 6}, got)
	})

	t.Run("unsized preview only rounds", func(t *testing.T) {
		b := Box{X: 10.4, Y: 20.5, Width: 80, Height: 40.6}
		want := CropRect{X: 10, Y: 21, Width: 80, Height: 41}
		assert.Equal(t, want, PreviewCropToOriginal(b, Size{}, Size{W: 2000, H: 1000}))
		assert.Equal(t, want, PreviewCropToOriginal(b, Size{W: 100, H: 0}, Size{W: 2000, H: 1000}))
	})

	t.Run("deterministic", func(t *testing.T) {
		b := Box{X: 13.37, Y: 42.42, Width: 99.9, Height: 77.7}
		a1 := PreviewCropToOriginal(b, Size{W: 321, H: 123}, Size{W: 4032, H: 3024})
		a2 := PreviewCropToOriginal(b, Size{W: 321, H: 123}, Size{W: 4032, H: 3024})
		assert.Equal(t, a1, a2)
	})
}

func TestResolveCrop(t *testing.T) {
	box := Box{X: 10.4, Y: 20.6, Width: 80, Height: 40}

	t.Run("both sizes known", func(t *testing.T) {
		got, exact := ResolveCrop(box, Size{W: 100, H: 50}, Size{W: 1000, H: 500})
		assert.True(t, exact)
		assert.Equal(t, CropRect{X: 104, Y: 206, Width: 800, Height: 400}, got)
	})

	t.Run("preview unknown passes through", func(t *testing.T) {
		got, exact := ResolveCrop(box, Size{}, Size{W: 1000, H: 500})
		assert.False(t, exact)
		assert.Equal(t, CropRect{X: 10, Y: 21, Width: 80, Height: 40}, got)
	})

	t.Run("original unknown passes through", func(t *testing.T) {
		_, exact := ResolveCrop(box, Size{W: 100, H: 50}, Size{W: 0, H: 500})
		assert.False(t, exact)
	})
}

func TestCropRect(t *testing.T) {
	c := CropRect{X: 10, Y: 20, Width: 30, Height: 40}
	assert.Equal(t, image.Rect(10, 20, 40, 60), c.Rectangle())
	assert.Equal(t, "30x40+10+20", c.String())

	assert.True(t, c.Within(40, 60))
	assert.False(t, c.Within(39, 60))
	assert.False(t, c.Within(40, 59))
	assert.False(t, CropRect{X: -1, Width: 5, Height: 5}.Within(100, 100))
	assert.False(t, CropRect{Width: 0, Height: 5}.Within(100, 100))
}
