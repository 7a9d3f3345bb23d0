// Package server provides the Memoroid web editor and its HTTP API.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strconv"
	"time"

	"github.com/xob0t/memoroid/pkg/compositor"
	"github.com/xob0t/memoroid/pkg/geometry"
	"github.com/xob0t/memoroid/pkg/preset"
	"github.com/xob0t/memoroid/pkg/wire"
)

//go:embed web/*
var webContent embed.FS

// DefaultMaxUpload is the request body limit: photo, overlay and fields
// together.
const DefaultMaxUpload = 12 << 20

// multipartMemory is how much of a form is held in memory; larger parts
// spill to temp files.
const multipartMemory = 4 << 20

// Config wires a handler.
type Config struct {
	Compositor *compositor.Compositor
	// MaxUpload caps the request body in bytes. Zero means DefaultMaxUpload.
	MaxUpload int64
	Logger    *slog.Logger
}

type srv struct {
	comp      *compositor.Compositor
	maxUpload int64
	log       *slog.Logger
}

// New returns the HTTP handler: the API under /api and the embedded editor
// page at /.
func New(cfg Config) (http.Handler, error) {
	s := &srv{
		comp:      cfg.Compositor,
		maxUpload: cfg.MaxUpload,
		log:       cfg.Logger,
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.comp == nil {
		s.comp = compositor.New(compositor.WithLogger(s.log))
	}
	if s.maxUpload <= 0 {
		s.maxUpload = DefaultMaxUpload
	}

	webFS, err := fs.Sub(webContent, "web")
	if err != nil {
		return nil, fmt.Errorf("embed web: %w", err)
	}

	mux := http.NewServeMux()

	// API routes.
	mux.HandleFunc("POST "+wire.GeneratePath, s.handleGenerate)
	mux.HandleFunc("GET /api/presets", s.handlePresets)
	mux.HandleFunc("GET /api/fonts", s.handleFonts)

	// Static files.
	mux.Handle("/", http.FileServer(http.FS(webFS)))

	return mux, nil
}

// RunServe starts the web server with command-line flags.
func RunServe(args []string) error {
	flags := flag.NewFlagSet("serve", flag.ContinueOnError)
	var cf ComposerFlags
	cf.Bind(flags)
	port := flags.Int("port", 8080, "listen port")
	flags.IntVar(port, "p", 8080, "listen port (shorthand)")
	maxUpload := flags.Int64("max-upload", DefaultMaxUpload>>20, "request size limit in MiB")
	open := flags.Bool("open", false, "open the editor in a browser")
	if err := flags.Parse(args); err != nil {
		return err
	}

	log, err := cf.Logger(os.Stderr)
	if err != nil {
		return err
	}
	comp, err := cf.Compositor(log)
	if err != nil {
		return err
	}

	handler, err := New(Config{Compositor: comp, MaxUpload: *maxUpload << 20, Logger: log})
	if err != nil {
		return err
	}

	addr := ":" + strconv.Itoa(*port)
	hs := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- hs.ListenAndServe() }()

	url := "http://localhost" + addr
	log.Info("Memoroid editor listening", "url", url,
		"formats", comp.Presets().Keys(),
		"overlay_policy", cf.OverlayPolicy,
	)
	if *open {
		go openBrowser(url)
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return hs.Shutdown(shutdownCtx)
}

// ── Generate ──

func (s *srv) handleGenerate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := http.StatusOK
	var res *compositor.Result
	defer func() {
		attrs := []any{"status", status, "duration", time.Since(start)}
		if res != nil {
			attrs = append(attrs, "format", res.Format, "overlay", res.OverlayApplied, "bytes", len(res.PNG))
		}
		s.log.InfoContext(r.Context(), "generate", attrs...)
	}()

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			status = http.StatusRequestEntityTooLarge
			http.Error(w, fmt.Sprintf("Upload too large: limit is %d bytes", tooBig.Limit), status)
			return
		}
		status = http.StatusBadRequest
		http.Error(w, "Invalid form: "+err.Error(), status)
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			s.log.Warn("removing upload temp files", "error", err)
		}
	}()

	req, err := wire.DecodeForm(r.MultipartForm)
	if compositor.KindOf(err) == compositor.KindValidation {
		// Format and photo faults win over malformed optional fields.
		if verr := s.comp.Validate(req); verr != nil {
			err = verr
		}
	}
	if err == nil {
		res, err = s.comp.Compose(r.Context(), req)
	}
	if err != nil {
		status = compositor.StatusCode(err)
		msg := err.Error()
		if status >= http.StatusInternalServerError {
			msg = "Server error: " + msg
			s.log.ErrorContext(r.Context(), "generate failed", "error", err)
		}
		http.Error(w, msg, status)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, res.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.PNG)))
	w.Write(res.PNG)
}

// ── Listings ──

type presetInfo struct {
	preset.FormatPreset
	CaptionArea     geometry.Box `json:"captionArea"`
	Aspect          float64      `json:"aspect"`
	DefaultFontSize float64      `json:"defaultFontSize"`
}

func (s *srv) handlePresets(w http.ResponseWriter, r *http.Request) {
	table := s.comp.Presets()
	resp := make(map[string]presetInfo, len(table.Keys()))
	for _, key := range table.Keys() {
		p, _ := table.Lookup(key)
		area := p.CaptionArea()
		resp[key] = presetInfo{
			FormatPreset: p,
			CaptionArea: geometry.Box{
				X:      float64(area.Min.X),
				Y:      float64(area.Min.Y),
				Width:  float64(area.Dx()),
				Height: float64(area.Dy()),
			},
			Aspect:          p.Aspect(),
			DefaultFontSize: p.DefaultFontSize(),
		}
	}
	writeJSON(w, resp)
}

func (s *srv) handleFonts(w http.ResponseWriter, r *http.Request) {
	fonts := s.comp.Fonts()
	writeJSON(w, map[string]any{
		"fonts":   fonts.Names(),
		"default": fonts.DefaultName(),
	})
}

// ── Helpers ──

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	cmd.Start()
}
