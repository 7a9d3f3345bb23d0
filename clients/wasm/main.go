//go:build js && wasm

// Memoroid WASM - client-side editor state, coordinate mapping and ink.
// Compiled with: GOOS=js GOARCH=wasm go build -o memoroid.wasm ./clients/wasm/
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"
	"syscall/js"

	"github.com/gogpu/gg"

	"github.com/xob0t/memoroid/pkg/caption"
	"github.com/xob0t/memoroid/pkg/compositor"
	"github.com/xob0t/memoroid/pkg/editor"
	"github.com/xob0t/memoroid/pkg/geometry"
	"github.com/xob0t/memoroid/pkg/ink"
	"github.com/xob0t/memoroid/pkg/wire"
)

// The editor session lives for the page's lifetime.
var (
	mu      sync.Mutex
	session *editor.Session
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stdout, nil))
	gg.SetLogger(log)
	session = editor.NewSession(editor.New(nil), editor.WithSessionLogger(log))
	log.Info("Memoroid WASM loaded")

	// Register JS-callable functions.
	js.Global().Set("goMapClientToInternal", js.FuncOf(mapClientToInternal))
	js.Global().Set("goPreviewCropToOriginal", js.FuncOf(previewCropToOriginal))
	js.Global().Set("goSetFormat", js.FuncOf(setFormat))
	js.Global().Set("goSetPhoto", js.FuncOf(setPhoto))
	js.Global().Set("goSetPhotoSize", js.FuncOf(setPhotoSize))
	js.Global().Set("goSetPreviewCrop", js.FuncOf(setPreviewCrop))
	js.Global().Set("goSetCaption", js.FuncOf(setCaption))
	js.Global().Set("goSetDrawingMode", js.FuncOf(setDrawingMode))
	js.Global().Set("goSetBrush", js.FuncOf(setBrush))
	js.Global().Set("goInkEvent", js.FuncOf(inkEvent))
	js.Global().Set("goInkUndo", js.FuncOf(inkUndo))
	js.Global().Set("goInkClear", js.FuncOf(inkClear))
	js.Global().Set("goInkExport", js.FuncOf(inkExport))
	js.Global().Set("goBuildGenerateForm", js.FuncOf(buildGenerateForm))
	js.Global().Set("goGenerate", js.FuncOf(generate))
	js.Global().Set("goReady", js.ValueOf(true))

	// Block forever (WASM must not exit).
	select {}
}

func toJS(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return js.ValueOf("error: " + err.Error())
	}
	return js.ValueOf(string(data))
}

func errorf(format string, args ...any) any {
	return js.ValueOf("error: " + fmt.Sprintf(format, args...))
}

func rectArg(args []js.Value, i int) geometry.Rect {
	return geometry.Rect{
		Left:   args[i].Float(),
		Top:    args[i+1].Float(),
		Width:  args[i+2].Float(),
		Height: args[i+3].Float(),
	}
}

// goMapClientToInternal(clientX, clientY, left, top, width, height, internalW, internalH) → JSON {x, y}
func mapClientToInternal(this js.Value, args []js.Value) any {
	if len(args) < 8 {
		return errorf("need clientX, clientY, left, top, width, height, internalW, internalH")
	}
	p := geometry.ClientToInternal(args[0].Float(), args[1].Float(), rectArg(args, 2), args[6].Int(), args[7].Int())
	return toJS(p)
}

// goPreviewCropToOriginal(x, y, width, height, previewW, previewH, originalW, originalH) → JSON crop
func previewCropToOriginal(this js.Value, args []js.Value) any {
	if len(args) < 8 {
		return errorf("need x, y, width, height, previewW, previewH, originalW, originalH")
	}
	box := geometry.Box{X: args[0].Float(), Y: args[1].Float(), Width: args[2].Float(), Height: args[3].Float()}
	crop, exact := geometry.ResolveCrop(box,
		geometry.Size{W: args[4].Float(), H: args[5].Float()},
		geometry.Size{W: args[6].Float(), H: args[7].Float()},
	)
	return toJS(map[string]any{"crop": crop, "exact": exact})
}

// goSetFormat(key) → JSON preset, or "error: ..."
func setFormat(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return errorf("need format key")
	}
	mu.Lock()
	defer mu.Unlock()
	if err := session.SetFormat(args[0].String()); err != nil {
		return errorf("%v", err)
	}
	st := session.State()
	return toJS(map[string]any{
		"format":   st.Format,
		"preset":   st.Preset,
		"caption":  st.CaptionPosition(),
		"fontSize": st.Preset.DefaultFontSize(),
	})
}

// goSetPhoto(base64Data, naturalW, naturalH) stores the photo to upload.
func setPhoto(this js.Value, args []js.Value) any {
	if len(args) < 3 {
		return errorf("need base64Data, naturalW, naturalH")
	}
	data, err := base64.StdEncoding.DecodeString(args[0].String())
	if err != nil {
		return errorf("invalid base64: %v", err)
	}
	size := geometry.Size{W: args[1].Float(), H: args[2].Float()}

	mu.Lock()
	defer mu.Unlock()
	session.Update(func(s editor.State) editor.State { return s.WithPhoto(data, size) })
	return js.ValueOf("ok")
}

// goSetPhotoSize(naturalW, naturalH, previewW, previewH)
func setPhotoSize(this js.Value, args []js.Value) any {
	if len(args) < 4 {
		return errorf("need naturalW, naturalH, previewW, previewH")
	}
	mu.Lock()
	defer mu.Unlock()
	session.Update(func(s editor.State) editor.State {
		return s.WithOriginalSize(geometry.Size{W: args[0].Float(), H: args[1].Float()}).
			WithPreviewSize(geometry.Size{W: args[2].Float(), H: args[3].Float()})
	})
	return js.ValueOf("ok")
}

// goSetPreviewCrop(x, y, width, height) → JSON {crop, exact}
func setPreviewCrop(this js.Value, args []js.Value) any {
	if len(args) < 4 {
		return errorf("need x, y, width, height")
	}
	box := geometry.Box{X: args[0].Float(), Y: args[1].Float(), Width: args[2].Float(), Height: args[3].Float()}

	mu.Lock()
	defer mu.Unlock()
	session.Update(func(s editor.State) editor.State { return s.WithPreviewCrop(box) })
	crop, exact, _ := session.State().Crop()
	return toJS(map[string]any{"crop": crop, "exact": exact})
}

// goSetCaption(text, font, fontSize, color, x, y, boxW, boxH) → JSON clamped position.
// Pass NaN for x and y to keep the current position.
func setCaption(this js.Value, args []js.Value) any {
	if len(args) < 8 {
		return errorf("need text, font, fontSize, color, x, y, boxW, boxH")
	}
	x, y := args[4].Float(), args[5].Float()

	mu.Lock()
	defer mu.Unlock()
	session.Update(func(s editor.State) editor.State {
		s = s.WithCaptionText(args[0].String()).
			WithCaptionFont(args[1].String(), args[2].Float()).
			WithCaptionColor(args[3].String()).
			WithCaptionBox(geometry.Size{W: args[6].Float(), H: args[7].Float()})
		if !math.IsNaN(x) && !math.IsNaN(y) {
			s = s.WithCaptionPosition(caption.Position{X: x, Y: y})
		}
		return s
	})
	st := session.State()
	return toJS(map[string]any{"text": st.Caption.Text, "position": st.CaptionPosition()})
}

// goSetDrawingMode(on, stylusOnly, captionBandOnly)
func setDrawingMode(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return errorf("need on")
	}
	on := args[0].Truthy()
	stylus := len(args) > 1 && args[1].Truthy()
	region := editor.InkAnywhere
	if len(args) > 2 && args[2].Truthy() {
		region = editor.InkCaptionBand
	}

	mu.Lock()
	defer mu.Unlock()
	session.Update(func(s editor.State) editor.State {
		return s.WithDrawingMode(on).WithStylusOnly(stylus).WithInkRegion(region)
	})
	return js.ValueOf("ok")
}

// goSetBrush(color, width, opacity)
func setBrush(this js.Value, args []js.Value) any {
	if len(args) < 3 {
		return errorf("need color, width, opacity")
	}
	style := ink.ParseStyle(args[0].String(), args[1].Float(), args[2].Float())

	mu.Lock()
	defer mu.Unlock()
	session.Update(func(s editor.State) editor.State { return s.WithBrush(style) })
	return js.ValueOf("ok")
}

// goInkEvent(type, pointerType, pointerId, clientX, clientY, pressure, left, top, width, height) → "idle" | "drawing"
// pressure may be null or undefined when the device reports none.
func inkEvent(this js.Value, args []js.Value) any {
	if len(args) < 10 {
		return errorf("need type, pointerType, pointerId, clientX, clientY, pressure, left, top, width, height")
	}
	kind, ok := ink.ParseEventKind(args[0].String())
	if !ok {
		return errorf("unknown event %q", args[0].String())
	}
	e := ink.Event{
		Kind:      kind,
		Device:    ink.ParseDevice(args[1].String()),
		PointerID: args[2].Int(),
		ClientX:   args[3].Float(),
		ClientY:   args[4].Float(),
	}
	if p := args[5]; p.Type() == js.TypeNumber {
		e.Pressure, e.HasPressure = p.Float(), true
	}

	mu.Lock()
	defer mu.Unlock()
	session.SetDisplayRect(rectArg(args, 6))
	return js.ValueOf(session.Dispatch(e).String())
}

// goInkUndo() → bool
func inkUndo(this js.Value, args []js.Value) any {
	mu.Lock()
	defer mu.Unlock()
	return js.ValueOf(session.Undo())
}

// goInkClear() → bool
func inkClear(this js.Value, args []js.Value) any {
	mu.Lock()
	defer mu.Unlock()
	return js.ValueOf(session.Clear())
}

// goInkExport() → base64 PNG of the ink layer
func inkExport(this js.Value, args []js.Value) any {
	mu.Lock()
	defer mu.Unlock()
	data, err := session.Recorder().ExportOverlay()
	if err != nil {
		return errorf("%v", err)
	}
	return js.ValueOf(base64.StdEncoding.EncodeToString(data))
}

// goBuildGenerateForm() → JSON {contentType, body} with a base64 body, ready
// for fetch(). Use it when the page posts the form itself.
func buildGenerateForm(this js.Value, args []js.Value) any {
	mu.Lock()
	defer mu.Unlock()
	req, err := session.Build()
	if err != nil {
		return errorf("%v", err)
	}
	ct, body, err := wire.EncodeForm(req)
	if err != nil {
		return errorf("%v", err)
	}
	return toJS(map[string]string{
		"contentType": ct,
		"body":        base64.StdEncoding.EncodeToString(body),
	})
}

// goGenerate(baseURL) → Promise resolving to {filename, png (base64)}.
// Editor state is kept on failure so the user can retry.
func generate(this js.Value, args []js.Value) any {
	base := ""
	if len(args) > 0 && args[0].Type() == js.TypeString {
		base = args[0].String()
	}

	handler := js.FuncOf(func(this js.Value, p []js.Value) any {
		resolve, reject := p[0], p[1]
		go func() {
			// The fetch resolves on the JS event loop, so the lock is not
			// held across it.
			mu.Lock()
			req, err := session.Build()
			mu.Unlock()
			var res *compositor.Result
			if err == nil {
				res, err = (&wire.Client{BaseURL: base}).Compose(context.Background(), req)
			}
			if err != nil {
				reject.Invoke(js.Global().Get("Error").New(err.Error()))
				return
			}
			resolve.Invoke(toJS(map[string]string{
				"filename": res.Filename,
				"png":      base64.StdEncoding.EncodeToString(res.PNG),
			}))
		}()
		return nil
	})
	return js.Global().Get("Promise").New(handler)
}
