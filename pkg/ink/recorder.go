package ink

import (
	"bytes"
	"fmt"
	"image"
	"log/slog"

	"github.com/gogpu/gg"

	"github.com/xob0t/memoroid/pkg/geometry"
)

// Recorder turns pointer events into ink on an overlay canvas.
// It is not safe for concurrent use; drive it from one event loop.
type Recorder struct {
	w, h    int
	canvas  *gg.Context
	display geometry.Rect
	style   Style
	policy  Policy
	region  *Band
	capture Capturer
	log     *slog.Logger

	state     State
	pointerID int
	current   []Point
	curStyle  Style
	history   *History
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithStyle sets the brush for new strokes.
func WithStyle(s Style) Option { return func(r *Recorder) { r.style = s } }

// WithPolicy sets the device policy.
func WithPolicy(p Policy) Option { return func(r *Recorder) { r.policy = p } }

// WithRegion restricts drawing to a horizontal band.
func WithRegion(b Band) Option { return func(r *Recorder) { r.region = &b } }

// WithDisplayRect sets where the canvas is shown on screen.
func WithDisplayRect(rect geometry.Rect) Option {
	return func(r *Recorder) { r.display = rect }
}

// WithCapturer enables pointer capture for the duration of a stroke.
func WithCapturer(c Capturer) Option { return func(r *Recorder) { r.capture = c } }

// WithLogger sets the logger for swallowed failures.
func WithLogger(l *slog.Logger) Option { return func(r *Recorder) { r.log = l } }

// WithHistoryLimit overrides MaxHistory.
func WithHistoryLimit(n int) Option {
	return func(r *Recorder) { r.history = NewHistory(n) }
}

// NewRecorder creates a recorder with a transparent w×h canvas. Until a
// display rect is set, the canvas is assumed to be shown at native size.
func NewRecorder(w, h int, opts ...Option) *Recorder {
	r := &Recorder{
		w:       w,
		h:       h,
		canvas:  newCanvas(w, h),
		display: geometry.Rect{Width: float64(w), Height: float64(h)},
		style:   DefaultStyle(),
		log:     slog.Default(),
		history: NewHistory(MaxHistory),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Size returns the canvas dimensions.
func (r *Recorder) Size() (w, h int) { return r.w, r.h }

// State returns the current interaction state.
func (r *Recorder) State() State { return r.state }

// CanEdit reports whether undo and clear are allowed, i.e. no stroke is in
// progress.
func (r *Recorder) CanEdit() bool { return r.state == Idle }

// SetStyle changes the brush for strokes started after the call.
func (r *Recorder) SetStyle(s Style) { r.style = s }

// SetPolicy changes the device policy.
func (r *Recorder) SetPolicy(p Policy) { r.policy = p }

// SetRegion restricts drawing to b; nil removes the restriction.
func (r *Recorder) SetRegion(b *Band) {
	if b == nil {
		r.region = nil
		return
	}
	band := *b
	r.region = &band
}

// SetDisplayRect updates the on-screen placement used to map pointers.
func (r *Recorder) SetDisplayRect(rect geometry.Rect) { r.display = rect }

// Handle dispatches e and returns the resulting state.
func (r *Recorder) Handle(e Event) State {
	switch e.Kind {
	case Down:
		r.PointerDown(e)
	case Move:
		r.PointerMove(e)
	case Up:
		r.PointerUp(e)
	case Cancel:
		r.PointerCancel(e)
	}
	return r.state
}

func (r *Recorder) mapPoint(e Event) Point {
	p := geometry.ClientToInternal(e.ClientX, e.ClientY, r.display, r.w, r.h)
	return Point{X: p.X, Y: p.Y, Pressure: e.pressure()}
}

func (r *Recorder) inRegion(y int) bool {
	return r.region == nil || r.region.Contains(y)
}

// PointerDown starts a stroke when the device is accepted and the point lies
// in the drawing region. It reports whether a stroke started.
func (r *Recorder) PointerDown(e Event) bool {
	if r.state == Drawing || !r.policy.Accepts(e.Device) {
		return false
	}
	pt := r.mapPoint(e)
	if !r.inRegion(pt.Y) {
		return false
	}

	r.state = Drawing
	r.pointerID = e.PointerID
	r.curStyle = r.style
	r.current = []Point{pt}

	if r.capture != nil {
		if err := r.capture.SetPointerCapture(e.PointerID); err != nil {
			r.log.Debug("pointer capture failed", "pointer", e.PointerID, "error", err)
		}
	}

	r.draw(brush{r.canvas}.dot(r.curStyle, pt))
	return true
}

// PointerMove extends the active stroke. Points outside the drawing region
// are dropped without ending the stroke. It reports whether a point was
// added.
func (r *Recorder) PointerMove(e Event) bool {
	if r.state != Drawing || e.PointerID != r.pointerID {
		return false
	}
	pt := r.mapPoint(e)
	if !r.inRegion(pt.Y) {
		return false
	}

	r.current = append(r.current, pt)
	r.draw(brush{r.canvas}.segment(r.curStyle, r.current, len(r.current)-1))
	return true
}

// PointerUp finishes the active stroke and records it.
func (r *Recorder) PointerUp(e Event) bool {
	if r.state != Drawing || e.PointerID != r.pointerID {
		return false
	}
	r.finish()
	return true
}

// PointerCancel ends the active stroke the same way PointerUp does; the
// points drawn so far are kept.
func (r *Recorder) PointerCancel(e Event) bool {
	return r.PointerUp(e)
}

func (r *Recorder) finish() {
	r.draw(brush{r.canvas}.tail(r.curStyle, r.current))

	if evicted := r.history.Push(NewStroke(r.current, r.curStyle)); evicted > 0 {
		r.log.Debug("ink history full, dropped oldest strokes", "dropped", evicted)
	}

	if r.capture != nil {
		if err := r.capture.ReleasePointerCapture(r.pointerID); err != nil {
			r.log.Debug("pointer capture release failed", "pointer", r.pointerID, "error", err)
		}
	}

	r.state = Idle
	r.current = nil
}

// Undo removes the newest stroke and redraws the rest from a blank canvas.
// It returns false while a stroke is in progress or when there is nothing to
// undo.
func (r *Recorder) Undo() bool {
	if r.state != Idle {
		return false
	}
	if _, ok := r.history.Pop(); !ok {
		return false
	}
	r.replay()
	return true
}

// Clear empties the history and the canvas. It returns false while a stroke
// is in progress.
func (r *Recorder) Clear() bool {
	if r.state != Idle {
		return false
	}
	r.history.Reset()
	r.canvas.Clear()
	return true
}

func (r *Recorder) replay() {
	r.canvas.Clear()
	b := brush{r.canvas}
	for _, s := range r.history.All() {
		r.draw(b.stroke(s))
	}
}

func (r *Recorder) draw(err error) {
	if err != nil {
		r.log.Warn("ink render failed", "error", err)
	}
}

// Strokes returns the recorded strokes, oldest first.
func (r *Recorder) Strokes() []Stroke { return r.history.All() }

// Overlay returns a snapshot of the canvas.
func (r *Recorder) Overlay() *image.RGBA {
	return r.canvas.Image().(*image.RGBA)
}

// Empty reports whether nothing has been drawn since the last clear.
func (r *Recorder) Empty() bool {
	return r.history.Len() == 0 && r.state == Idle
}

// ExportOverlay encodes the canvas as a PNG at native resolution: ink only,
// transparent elsewhere.
func (r *Recorder) ExportOverlay() ([]byte, error) {
	var buf bytes.Buffer
	if err := r.canvas.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("export overlay: %w", err)
	}
	return buf.Bytes(), nil
}

// Close releases the canvas.
func (r *Recorder) Close() error {
	return r.canvas.Close()
}
