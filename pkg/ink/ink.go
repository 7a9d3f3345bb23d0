// Package ink records freehand pointer strokes onto a transparent overlay
// canvas at the print's full resolution.
//
// A Recorder is a small state machine (Idle → Drawing → Idle) driven by
// pointer events. Strokes are smoothed with quadratic curves through the
// midpoints of consecutive samples, and every finished stroke keeps its own
// style so that undo can replay history exactly.
package ink

import (
	"image/color"
	"strings"

	"github.com/xob0t/memoroid/pkg/generator"
)

// DeviceType is the kind of pointer that produced an event.
type DeviceType int

const (
	Mouse DeviceType = iota
	Touch
	Pen
)

// ParseDevice maps a browser PointerEvent.pointerType to a DeviceType.
// Unknown types are treated as touch.
func ParseDevice(pointerType string) DeviceType {
	switch strings.ToLower(pointerType) {
	case "mouse":
		return Mouse
	case "pen":
		return Pen
	default:
		return Touch
	}
}

func (d DeviceType) String() string {
	switch d {
	case Mouse:
		return "mouse"
	case Pen:
		return "pen"
	default:
		return "touch"
	}
}

// Pressure bounds and per-device defaults for events without pressure data.
const (
	MinPressure          = 0.01
	MaxPressure          = 1.0
	DefaultMousePressure = 0.6
	DefaultPressure      = 0.5
)

// ClampPressure limits p to [MinPressure, MaxPressure].
func ClampPressure(p float64) float64 {
	return max(MinPressure, min(MaxPressure, p))
}

// Point is one recorded sample in overlay-canvas pixels.
type Point struct {
	X        int     `json:"x"`
	Y        int     `json:"y"`
	Pressure float64 `json:"p"`
}

// Style is the brush a stroke is drawn with.
type Style struct {
	Color   color.NRGBA `json:"color"`
	Width   float64     `json:"width"`
	Opacity float64     `json:"opacity"`
}

// DefaultStyle is a fully opaque #111111 brush, 8 px wide.
func DefaultStyle() Style {
	return Style{
		Color:   color.NRGBA{0x11, 0x11, 0x11, 0xff},
		Width:   8,
		Opacity: 1,
	}
}

// ParseStyle builds a Style from a hex color. A malformed color keeps the
// default ink, a non-positive width keeps the default width, and opacity is
// clamped to [0, 1].
func ParseStyle(hex string, width, opacity float64) Style {
	s := DefaultStyle()
	if c, err := generator.ParseColor(hex); err == nil {
		s.Color = c
	}
	if width > 0 {
		s.Width = width
	}
	s.Opacity = max(0, min(1, opacity))
	return s
}

// Stroke is a finished, immutable sequence of points with its style snapshot.
type Stroke struct {
	points []Point
	style  Style
}

// NewStroke copies points into a new Stroke.
func NewStroke(points []Point, style Style) Stroke {
	return Stroke{points: append([]Point(nil), points...), style: style}
}

// Points returns a copy of the stroke's samples.
func (s Stroke) Points() []Point {
	return append([]Point(nil), s.points...)
}

// Style returns the brush the stroke was drawn with.
func (s Stroke) Style() Style { return s.style }

// Len is the number of samples.
func (s Stroke) Len() int { return len(s.points) }

// Policy decides which pointer devices may start a stroke.
type Policy struct {
	// DrawingMode enables touch and pen input. Mouse input is always accepted.
	DrawingMode bool
	// StylusOnly rejects touch input even in drawing mode.
	StylusOnly bool
}

// Accepts reports whether a pointer-down from d may start a stroke.
func (p Policy) Accepts(d DeviceType) bool {
	if p.StylusOnly && d == Touch {
		return false
	}
	if !p.DrawingMode && d != Mouse {
		return false
	}
	return true
}

// Band restricts drawing to rows [Y, Y+Height], inclusive on both edges.
type Band struct {
	Y      int `json:"y"`
	Height int `json:"height"`
}

// Contains reports whether row y lies inside the band.
func (b Band) Contains(y int) bool {
	return y >= b.Y && y <= b.Y+b.Height
}

// State is the recorder's interaction state.
type State int

const (
	Idle State = iota
	Drawing
)

func (s State) String() string {
	if s == Drawing {
		return "drawing"
	}
	return "idle"
}

// EventKind is the pointer event phase.
type EventKind int

const (
	Down EventKind = iota
	Move
	Up
	Cancel
)

// ParseEventKind maps DOM event names ("pointerdown", "down", ...) to kinds.
func ParseEventKind(name string) (EventKind, bool) {
	switch strings.TrimPrefix(strings.ToLower(name), "pointer") {
	case "down":
		return Down, true
	case "move":
		return Move, true
	case "up":
		return Up, true
	case "cancel":
		return Cancel, true
	}
	return 0, false
}

// Event is a pointer event in client (display) coordinates.
type Event struct {
	Kind        EventKind
	Device      DeviceType
	PointerID   int
	ClientX     float64
	ClientY     float64
	Pressure    float64
	HasPressure bool
}

// pressure returns the event's pressure, or the device default when the
// device reports none, clamped to the valid range.
func (e Event) pressure() float64 {
	p := e.Pressure
	if !e.HasPressure {
		p = DefaultPressure
		if e.Device == Mouse {
			p = DefaultMousePressure
		}
	}
	return ClampPressure(p)
}

// Capturer routes all events of a pointer to the canvas while a stroke is in
// progress. Failures are not fatal.
type Capturer interface {
	SetPointerCapture(pointerID int) error
	ReleasePointerCapture(pointerID int) error
}
