package wire

import (
	"bytes"
	"mime"
	"mime/multipart"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xob0t/memoroid/pkg/caption"
	"github.com/xob0t/memoroid/pkg/compositor"
	"github.com/xob0t/memoroid/pkg/geometry"
)

func parse(t *testing.T, contentType string, body []byte) *multipart.Form {
	t.Helper()
	_, params, err := mime.ParseMediaType(contentType)
	require.NoError(t, err)
	form, err := multipart.NewReader(bytes.NewReader(body), params["boundary"]).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form
}

// rawForm builds a form from plain fields, bypassing EncodeForm.
func rawForm(t *testing.T, fields map[string]string) *multipart.Form {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return parse(t, mw.FormDataContentType(), buf.Bytes())
}

func TestFormRoundTrip(t *testing.T) {
	date := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)
	in := compositor.Request{
		Format:  "polaroid",
		Photo:   []byte("photo-bytes"),
		Crop:    &geometry.CropRect{X: 10, Y: 20, Width: 300, Height: 200},
		Overlay: []byte("overlay-bytes"),
		Caption: caption.Spec{
			Text:     "Lisbon",
			Font:     "Caveat",
			FontSize: 36,
			Color:    "#223344",
			Position: &caption.Position{X: 500.5, Y: 610},
		},
		Date: date,
	}

	ct, body, err := EncodeForm(in)
	require.NoError(t, err)
	assert.Contains(t, ct, "multipart/form-data")

	out, err := DecodeForm(parse(t, ct, body))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestEncodeFormOmitsEmptyParts(t *testing.T) {
	ct, body, err := EncodeForm(compositor.Request{Photo: []byte("p")})
	require.NoError(t, err)

	form := parse(t, ct, body)
	assert.NotContains(t, form.File, FieldOverlay)
	assert.NotContains(t, form.Value, FieldCrop)
	assert.NotContains(t, form.Value, FieldTextPos)
	assert.NotContains(t, form.Value, FieldFontSize)

	req, err := DecodeForm(form)
	require.NoError(t, err)
	assert.Nil(t, req.Crop)
	assert.Nil(t, req.Caption.Position)
	assert.Empty(t, req.Overlay)
}

func TestDecodeFormRoundsCrop(t *testing.T) {
	req, err := DecodeForm(rawForm(t, map[string]string{
		FieldCrop: `{"x": 10.5, "y": 20.49, "width": 99.5, "height": 40}`,
	}))
	require.NoError(t, err)
	require.NotNil(t, req.Crop)
	assert.Equal(t, geometry.CropRect{X: 11, Y: 20, Width: 100, Height: 40}, *req.Crop)
}

func TestDecodeFormEmptyCropMeansWholePhoto(t *testing.T) {
	req, err := DecodeForm(rawForm(t, map[string]string{FieldCrop: "{}"}))
	require.NoError(t, err)
	assert.Nil(t, req.Crop)
}

func TestDecodeFormErrors(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value string
	}{
		{"malformed crop", FieldCrop, `{"x": 1,`},
		{"crop not an object", FieldCrop, `"10,10,20,20"`},
		{"malformed position", FieldTextPos, `[1, 2]`},
		{"bad font size", FieldFontSize, "large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeForm(rawForm(t, map[string]string{tt.field: tt.value}))
			require.Error(t, err)
			assert.Equal(t, compositor.KindValidation, compositor.KindOf(err))
			assert.Equal(t, 400, compositor.StatusCode(err))
		})
	}

	_, err := DecodeForm(rawForm(t, map[string]string{FieldCrop: "{"}))
	assert.ErrorIs(t, err, compositor.ErrMalformedCrop)
}

func TestDecodeFormKeepsFormatOnError(t *testing.T) {
	form := rawForm(t, map[string]string{FieldFormat: "tintype", FieldCrop: "{oops"})
	req, err := DecodeForm(form)
	require.ErrorIs(t, err, compositor.ErrMalformedCrop)
	assert.Equal(t, "tintype", req.Format)

	verr := compositor.New().Validate(req)
	assert.ErrorIs(t, verr, compositor.ErrInvalidFormat)
}

func TestDecodeFormIgnoresBadDate(t *testing.T) {
	req, err := DecodeForm(rawForm(t, map[string]string{FieldDate: "yesterday", FieldFormat: " instax "}))
	require.NoError(t, err)
	assert.True(t, req.Date.IsZero())
	assert.Equal(t, "instax", req.Format)
}

func TestDecodeFormNil(t *testing.T) {
	req, err := DecodeForm(nil)
	require.NoError(t, err)
	assert.Empty(t, req.Photo)
}
