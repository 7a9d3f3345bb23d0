// mapping.go - Display → internal and preview → original conversions.
package geometry

// ClientToInternal maps a client-space pointer position onto a canvas whose
// backing store is internalW×internalH but which is displayed at display.
// Each axis is scaled independently, rounded, then clamped to a valid pixel
// index. Out-of-range input is clamped, never rejected.
func ClientToInternal(clientX, clientY float64, display Rect, internalW, internalH int) Point {
	var scaleX, scaleY float64
	if display.Width > 0 {
		scaleX = float64(internalW) / display.Width
	}
	if display.Height > 0 {
		scaleY = float64(internalH) / display.Height
	}

	x := round((clientX - display.Left) * scaleX)
	y := round((clientY - display.Top) * scaleY)

	return Point{
		X: clamp(x, 0, max(internalW-1, 0)),
		Y: clamp(y, 0, max(internalH-1, 0)),
	}
}

// PreviewCropToOriginal scales a crop drawn on a preview of size preview back
// to an original of size original. Every field is rounded on its own, so
// X+Width may differ by one pixel from the rounded scaled corner. A preview
// without a positive size cannot be scaled from; the crop is then only
// rounded.
func PreviewCropToOriginal(crop Box, preview, original Size) CropRect {
	if !preview.Known() {
		return crop.Round()
	}
	scaleX := original.W / preview.W
	scaleY := original.H / preview.H

	return CropRect{
		X:      round(crop.X * scaleX),
		Y:      round(crop.Y * scaleY),
		Width:  round(crop.Width * scaleX),
		Height: round(crop.Height * scaleY),
	}
}

// ResolveCrop converts a preview crop to original pixels when both sizes are
// known. Otherwise the preview rectangle passes through rounded and exact is
// false: the caller must treat the result as provisional.
func ResolveCrop(crop Box, preview, original Size) (rect CropRect, exact bool) {
	if !preview.Known() || !original.Known() {
		return crop.Round(), false
	}
	return PreviewCropToOriginal(crop, preview, original), true
}
