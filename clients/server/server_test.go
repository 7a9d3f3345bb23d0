package server

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xob0t/memoroid/pkg/caption"
	"github.com/xob0t/memoroid/pkg/compositor"
	"github.com/xob0t/memoroid/pkg/generator"
	"github.com/xob0t/memoroid/pkg/geometry"
	"github.com/xob0t/memoroid/pkg/wire"
)

func newTestServer(t *testing.T, cfg Config) (*httptest.Server, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logs, nil))
	cfg.Logger = log
	if cfg.Compositor == nil {
		cfg.Compositor = compositor.New(compositor.WithLogger(log))
	}
	h, err := New(cfg)
	require.NoError(t, err)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv, &logs
}

func photo(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, generator.NewSolidImage(w, h, color.RGBA{30, 90, 160, 255})))
	return buf.Bytes()
}

func post(t *testing.T, srv *httptest.Server, req compositor.Request) *http.Response {
	t.Helper()
	ct, body, err := wire.EncodeForm(req)
	require.NoError(t, err)
	resp, err := srv.Client().Post(srv.URL+wire.GeneratePath, ct, bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func TestGenerate(t *testing.T) {
	srv, logs := newTestServer(t, Config{})

	resp := post(t, srv, compositor.Request{
		Format:  "polaroid",
		Photo:   photo(t, 300, 200),
		Crop:    &geometry.CropRect{X: 0, Y: 0, Width: 200, Height: 200},
		Caption: caption.Spec{Text: "hello"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, readBody(t, resp))
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Regexp(t, `^attachment; filename="memoroid_polaroid_\d+\.png"$`, resp.Header.Get("Content-Disposition"))

	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 1270, 1045), img.Bounds())

	assert.Contains(t, logs.String(), "msg=generate")
	assert.Contains(t, logs.String(), "status=200")
}

func TestGenerateErrors(t *testing.T) {
	srv, _ := newTestServer(t, Config{})

	tests := []struct {
		name   string
		req    compositor.Request
		status int
		body   string
	}{
		{"unknown format", compositor.Request{Format: "tintype", Photo: photo(t, 10, 10)}, http.StatusBadRequest, "invalid format"},
		{"missing photo", compositor.Request{Format: "instax"}, http.StatusBadRequest, "missing photo"},
		{"crop outside photo", compositor.Request{Photo: photo(t, 10, 10), Crop: &geometry.CropRect{Width: 20, Height: 5}}, http.StatusBadRequest, "invalid crop"},
		{"broken photo", compositor.Request{Photo: []byte("nope")}, http.StatusInternalServerError, "Server error: "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, srv, tt.req)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Contains(t, readBody(t, resp), tt.body)
		})
	}
}

func TestGenerateMalformedCrop(t *testing.T) {
	srv, _ := newTestServer(t, Config{})

	var buf bytes.Buffer
	form := newForm(t, &buf, map[string]string{"cropData": "{oops"})
	resp, err := srv.Client().Post(srv.URL+wire.GeneratePath, form, &buf)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "malformed crop")
}

func TestGenerateReportsFormatAndPhotoFirst(t *testing.T) {
	srv, _ := newTestServer(t, Config{})

	tests := []struct {
		name   string
		fields map[string]string
		photo  bool
		want   string
	}{
		{"unknown format beats bad crop", map[string]string{"format": "tintype", "cropData": "{oops"}, true, "invalid format"},
		{"missing photo beats bad crop", map[string]string{"cropData": "{oops"}, false, "missing photo"},
		{"missing photo beats bad font size", map[string]string{"fontSize": "huge"}, false, "missing photo"},
		{"bad crop alone", map[string]string{"cropData": "{oops"}, true, "malformed crop"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			mw := multipart.NewWriter(&buf)
			if tt.photo {
				part, err := mw.CreateFormFile("photo", "photo.png")
				require.NoError(t, err)
				_, err = part.Write(photo(t, 10, 10))
				require.NoError(t, err)
			}
			for k, v := range tt.fields {
				require.NoError(t, mw.WriteField(k, v))
			}
			require.NoError(t, mw.Close())

			resp, err := srv.Client().Post(srv.URL+wire.GeneratePath, mw.FormDataContentType(), &buf)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, readBody(t, resp), tt.want)
		})
	}
}

func TestGeneratePixelBudget(t *testing.T) {
	srv, _ := newTestServer(t, Config{Compositor: compositor.New(compositor.WithMaxPixels(50 * 50))})

	assert.Equal(t, http.StatusOK, post(t, srv, compositor.Request{Photo: photo(t, 50, 50)}).StatusCode)

	resp := post(t, srv, compositor.Request{Photo: photo(t, 51, 50)})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "photo too large")
}

func TestGenerateOverlayPolicy(t *testing.T) {
	var small bytes.Buffer
	require.NoError(t, png.Encode(&small, image.NewRGBA(image.Rect(0, 0, 3, 3))))
	req := compositor.Request{Photo: photo(t, 40, 30), Overlay: small.Bytes()}

	skip, _ := newTestServer(t, Config{})
	assert.Equal(t, http.StatusOK, post(t, skip, req).StatusCode)

	reject, _ := newTestServer(t, Config{
		Compositor: compositor.New(compositor.WithOverlayPolicy(compositor.OverlayReject)),
	})
	resp := post(t, reject, req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "overlay size mismatch")
}

func TestGenerateUploadLimit(t *testing.T) {
	srv, _ := newTestServer(t, Config{MaxUpload: 1024})
	resp := post(t, srv, compositor.Request{Photo: bytes.Repeat([]byte{1}, 4096)})
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestGenerateNotMultipart(t *testing.T) {
	srv, _ := newTestServer(t, Config{})
	resp, err := srv.Client().Post(srv.URL+wire.GeneratePath, "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGenerateMethod(t *testing.T) {
	srv, _ := newTestServer(t, Config{})
	resp, err := srv.Client().Get(srv.URL + wire.GeneratePath)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestPresets(t *testing.T) {
	srv, _ := newTestServer(t, Config{})
	resp, err := srv.Client().Get(srv.URL + "/api/presets")
	require.NoError(t, err)
	defer resp.Body.Close()

	var got map[string]struct {
		Full        struct{ W, H int }
		CaptionArea geometry.Box
		Aspect      float64
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Contains(t, got, "instax")
	require.Contains(t, got, "polaroid")
	assert.Equal(t, 1016, got["instax"].Full.W)
	assert.Equal(t, geometry.Box{X: 0, Y: 590, Width: 1016, Height: 48}, got["instax"].CaptionArea)
	assert.InDelta(t, 732.0/543.0, got["instax"].Aspect, 1e-9)
}

func TestFonts(t *testing.T) {
	srv, _ := newTestServer(t, Config{})
	resp, err := srv.Client().Get(srv.URL + "/api/fonts")
	require.NoError(t, err)
	defer resp.Body.Close()

	var got struct {
		Fonts   []string `json:"fonts"`
		Default string   `json:"default"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Contains(t, got.Fonts, "AmaticSC")
	assert.Contains(t, got.Fonts, "GoRegular")
	assert.Equal(t, caption.DefaultFont, got.Default)
}

func TestIndexPage(t *testing.T) {
	srv, _ := newTestServer(t, Config{})
	resp, err := srv.Client().Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "<title>Memoroid</title>")
}

func TestWireClientAgainstServer(t *testing.T) {
	srv, _ := newTestServer(t, Config{})
	c := &wire.Client{BaseURL: srv.URL, HTTP: srv.Client()}

	res, err := c.Compose(context.Background(), compositor.Request{Format: "instax", Photo: photo(t, 50, 40)})
	require.NoError(t, err)
	assert.Equal(t, 1016, res.Width)
	assert.True(t, strings.HasPrefix(res.Filename, "memoroid_instax_"))

	_, err = c.Compose(context.Background(), compositor.Request{Format: "instax"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing photo")
	assert.Equal(t, compositor.KindValidation, compositor.KindOf(err))
}

func TestComposerFlags(t *testing.T) {
	t.Setenv(FontsEnv, "/nonexistent/fonts")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var cf ComposerFlags
	cf.Bind(fs)
	require.NoError(t, fs.Parse(nil))
	assert.Equal(t, "/nonexistent/fonts", cf.Fonts)

	presets := filepath.Join(t.TempDir(), "presets.json")
	require.NoError(t, os.WriteFile(presets, []byte(`{"square": {"full": {"w": 900, "h": 1100}, "image": {"w": 800, "h": 800}, "offset": {"left": 50, "top": 50}}}`), 0644))

	require.NoError(t, fs.Parse([]string{"--presets", presets, "--overlay-policy", "reject", "--background", "#fafafa", "--log-level", "debug"}))
	log, err := cf.Logger(io.Discard)
	require.NoError(t, err)
	comp, err := cf.Compositor(log)
	require.NoError(t, err)
	assert.Equal(t, []string{"instax", "polaroid", "square"}, comp.Presets().Keys())

	for _, bad := range [][]string{{"--overlay-policy", "maybe"}, {"--background", "beige"}, {"--presets", "/nope.json"}} {
		fs := flag.NewFlagSet("bad", flag.ContinueOnError)
		var cf ComposerFlags
		cf.Bind(fs)
		require.NoError(t, fs.Parse(bad))
		_, err := cf.Compositor(log)
		assert.Error(t, err, "%v", bad)
	}

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func newForm(t *testing.T, buf *bytes.Buffer, fields map[string]string) string {
	t.Helper()
	mw := multipart.NewWriter(buf)
	part, err := mw.CreateFormFile("photo", "photo.png")
	require.NoError(t, err)
	_, err = part.Write(photo(t, 10, 10))
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return mw.FormDataContentType()
}
