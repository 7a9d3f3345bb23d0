package wire

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/xob0t/memoroid/pkg/compositor"
)

// GeneratePath is the generate endpoint's route.
const GeneratePath = "/api/generate"

// Client posts compose requests to a remote generate endpoint.
type Client struct {
	// BaseURL is the server origin, e.g. "http://localhost:8080". Empty means
	// same-origin, which is what a browser client wants.
	BaseURL string
	// HTTP defaults to http.DefaultClient.
	HTTP *http.Client
}

// Compose encodes req, posts it, and returns the server's print.
// Non-200 replies become *compositor.Error values carrying the server's
// message, with the kind taken from the status code.
func (c *Client) Compose(ctx context.Context, req compositor.Request) (*compositor.Result, error) {
	ct, body, err := EncodeForm(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.BaseURL, "/")+GeneratePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", ct)

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", GeneratePath, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		kind := compositor.KindInternal
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			kind = compositor.KindValidation
		}
		msg := strings.TrimSpace(string(data))
		if msg == "" {
			msg = resp.Status
		}
		return nil, &compositor.Error{Kind: kind, Op: "generate", Err: errors.New(msg)}
	}

	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("server returned a non-PNG body: %w", err)
	}

	return &compositor.Result{
		PNG:      data,
		Filename: attachmentName(resp.Header.Get("Content-Disposition")),
		Format:   req.Format,
		Width:    cfg.Width,
		Height:   cfg.Height,
	}, nil
}

func attachmentName(header string) string {
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}
