package editor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xob0t/memoroid/pkg/compositor"
	"github.com/xob0t/memoroid/pkg/geometry"
	"github.com/xob0t/memoroid/pkg/ink"
)

// Composer turns a request into a finished print. *compositor.Compositor
// composes locally; *wire.Client posts to a server.
type Composer interface {
	Compose(ctx context.Context, req compositor.Request) (*compositor.Result, error)
}

// Session is a live editor: a State plus the ink recorder sized to its
// format. Like the recorder, it belongs to a single event loop.
type Session struct {
	state    State
	recorder *ink.Recorder
	display  geometry.Rect
	inkOpts  []ink.Option
	log      *slog.Logger
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithInkOptions passes extra options to every recorder the session creates.
func WithInkOptions(opts ...ink.Option) SessionOption {
	return func(s *Session) { s.inkOpts = append(s.inkOpts, opts...) }
}

// WithSessionLogger sets the logger.
func WithSessionLogger(l *slog.Logger) SessionOption {
	return func(s *Session) { s.log = l }
}

// NewSession starts a session from state.
func NewSession(state State, opts ...SessionOption) *Session {
	s := &Session{state: state, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.recorder = s.newRecorder()
	return s
}

func (s *Session) newRecorder() *ink.Recorder {
	full := s.state.Preset.Full
	opts := []ink.Option{
		ink.WithStyle(s.state.Brush),
		ink.WithPolicy(s.state.Policy()),
		ink.WithLogger(s.log),
	}
	if b := s.state.Band(); b != nil {
		opts = append(opts, ink.WithRegion(*b))
	}
	if s.display.Width > 0 && s.display.Height > 0 {
		opts = append(opts, ink.WithDisplayRect(s.display))
	}
	return ink.NewRecorder(full.W, full.H, append(opts, s.inkOpts...)...)
}

// State returns the current state.
func (s *Session) State() State { return s.state }

// Recorder returns the active ink recorder.
func (s *Session) Recorder() *ink.Recorder { return s.recorder }

// Update replaces the state with fn(state) and pushes brush, policy and
// region changes to the recorder. Use SetFormat to change the format.
func (s *Session) Update(fn func(State) State) {
	next := fn(s.state)
	next.Format, next.Preset = s.state.Format, s.state.Preset
	s.state = next
	s.syncRecorder()
}

func (s *Session) syncRecorder() {
	s.recorder.SetStyle(s.state.Brush)
	s.recorder.SetPolicy(s.state.Policy())
	s.recorder.SetRegion(s.state.Band())
}

// SetFormat switches format. The ink canvas is recreated at the new size, so
// existing ink is discarded. It fails while a stroke is in progress.
func (s *Session) SetFormat(key string) error {
	if !s.recorder.CanEdit() {
		return fmt.Errorf("cannot change format while drawing")
	}
	next, err := s.state.WithFormat(key)
	if err != nil {
		return err
	}
	if next.Format == s.state.Format {
		s.state = next
		return nil
	}

	s.state = next
	if err := s.recorder.Close(); err != nil {
		s.log.Debug("closing ink canvas", "error", err)
	}
	s.recorder = s.newRecorder()
	return nil
}

// SetDisplayRect tells the recorder where its canvas is on screen.
func (s *Session) SetDisplayRect(r geometry.Rect) {
	s.display = r
	s.recorder.SetDisplayRect(r)
}

// Dispatch feeds one pointer event to the recorder.
func (s *Session) Dispatch(e ink.Event) ink.State {
	return s.recorder.Handle(e)
}

// Undo removes the newest stroke.
func (s *Session) Undo() bool { return s.recorder.Undo() }

// Clear removes all ink.
func (s *Session) Clear() bool { return s.recorder.Clear() }

// Build assembles the compose request, exporting the ink canvas when any
// stroke has been drawn.
func (s *Session) Build() (compositor.Request, error) {
	var overlay []byte
	if !s.recorder.Empty() {
		data, err := s.recorder.ExportOverlay()
		if err != nil {
			return compositor.Request{}, err
		}
		overlay = data
	}
	return s.state.Request(overlay)
}

// Generate builds the request and hands it to c. Editor state is untouched
// on failure, so the caller can fix the input and retry.
func (s *Session) Generate(ctx context.Context, c Composer) (*compositor.Result, error) {
	req, err := s.Build()
	if err != nil {
		return nil, err
	}
	if _, exact, ok := s.state.Crop(); ok && !exact {
		s.log.WarnContext(ctx, "sending provisional crop, photo or preview size unknown", "crop", req.Crop)
	}
	return c.Compose(ctx, req)
}

// Close releases the ink canvas.
func (s *Session) Close() error {
	return s.recorder.Close()
}
