// Package wire is the multipart form format of the generate endpoint.
//
// Fields:
//
//	photo      file, required
//	overlay    file, optional; zero length means no overlay
//	cropData   JSON {x, y, width, height} in original-photo pixels
//	format     preset key
//	caption    caption text
//	font       caption font name
//	fontSize   caption size in pixels
//	textPos    JSON {x, y} caption anchor in canvas pixels
//	textColor  caption color, hex
//	date       RFC 3339 timestamp, informational
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"github.com/xob0t/memoroid/pkg/caption"
	"github.com/xob0t/memoroid/pkg/compositor"
	"github.com/xob0t/memoroid/pkg/geometry"
)

// Field names.
const (
	FieldPhoto     = "photo"
	FieldOverlay   = "overlay"
	FieldCrop      = "cropData"
	FieldFormat    = "format"
	FieldCaption   = "caption"
	FieldFont      = "font"
	FieldFontSize  = "fontSize"
	FieldTextPos   = "textPos"
	FieldTextColor = "textColor"
	FieldDate      = "date"
)

// EncodeForm writes req as a multipart form body.
func EncodeForm(req compositor.Request) (contentType string, body []byte, err error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := writeFile(mw, FieldPhoto, "photo", req.Photo); err != nil {
		return "", nil, err
	}
	if len(req.Overlay) > 0 {
		if err := writeFile(mw, FieldOverlay, "overlay.png", req.Overlay); err != nil {
			return "", nil, err
		}
	}

	fields := [][2]string{{FieldFormat, req.Format}}
	if req.Crop != nil {
		data, err := json.Marshal(req.Crop)
		if err != nil {
			return "", nil, fmt.Errorf("encode crop: %w", err)
		}
		fields = append(fields, [2]string{FieldCrop, string(data)})
	}

	c := req.Caption
	fields = append(fields,
		[2]string{FieldCaption, c.Text},
		[2]string{FieldFont, c.Font},
		[2]string{FieldTextColor, c.Color},
	)
	if c.FontSize > 0 {
		fields = append(fields, [2]string{FieldFontSize, strconv.FormatFloat(c.FontSize, 'f', -1, 64)})
	}
	if c.Position != nil {
		data, err := json.Marshal(c.Position)
		if err != nil {
			return "", nil, fmt.Errorf("encode caption position: %w", err)
		}
		fields = append(fields, [2]string{FieldTextPos, string(data)})
	}
	if !req.Date.IsZero() {
		fields = append(fields, [2]string{FieldDate, req.Date.UTC().Format(time.RFC3339Nano)})
	}

	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return "", nil, fmt.Errorf("write field %s: %w", f[0], err)
		}
	}

	if err := mw.Close(); err != nil {
		return "", nil, fmt.Errorf("close form: %w", err)
	}
	return mw.FormDataContentType(), buf.Bytes(), nil
}

func writeFile(mw *multipart.Writer, field, name string, data []byte) error {
	w, err := mw.CreateFormFile(field, name)
	if err != nil {
		return fmt.Errorf("create %s part: %w", field, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %s part: %w", field, err)
	}
	return nil
}

// DecodeForm reads a parsed multipart form into a compositor request.
// Malformed fields fail with a validation *compositor.Error. A missing photo
// is left empty for the compositor to report. On error the returned request
// still carries the format and uploads read so far, so a caller can run
// compositor.Validate and report format and photo faults first.
func DecodeForm(form *multipart.Form) (compositor.Request, error) {
	var req compositor.Request
	if form == nil {
		return req, nil
	}

	req.Format = value(form, FieldFormat)

	var err error
	if req.Photo, err = readFile(form, FieldPhoto); err != nil {
		return req, err
	}
	if req.Overlay, err = readFile(form, FieldOverlay); err != nil {
		return req, err
	}

	if raw := value(form, FieldCrop); raw != "" && raw != "{}" {
		var box geometry.Box
		if err := json.Unmarshal([]byte(raw), &box); err != nil {
			return req, compositor.Errorf(compositor.KindValidation, FieldCrop, "%w: %w", compositor.ErrMalformedCrop, err)
		}
		crop := box.Round()
		req.Crop = &crop
	}

	req.Caption = caption.Spec{
		Text:  value(form, FieldCaption),
		Font:  value(form, FieldFont),
		Color: value(form, FieldTextColor),
	}

	if raw := value(form, FieldFontSize); raw != "" {
		size, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return req, compositor.Errorf(compositor.KindValidation, FieldFontSize, "invalid font size %q", raw)
		}
		req.Caption.FontSize = size
	}

	if raw := value(form, FieldTextPos); raw != "" {
		var pos caption.Position
		if err := json.Unmarshal([]byte(raw), &pos); err != nil {
			return req, compositor.Errorf(compositor.KindValidation, FieldTextPos, "malformed caption position: %w", err)
		}
		req.Caption.Position = &pos
	}

	if raw := value(form, FieldDate); raw != "" {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			req.Date = t
		}
	}

	return req, nil
}

func value(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

func readFile(form *multipart.Form, key string) ([]byte, error) {
	files := form.File[key]
	if len(files) == 0 {
		return nil, nil
	}

	f, err := files[0].Open()
	if err != nil {
		return nil, compositor.Errorf(compositor.KindInternal, key, "open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, compositor.Errorf(compositor.KindInternal, key, "read upload: %w", err)
	}
	return data, nil
}
