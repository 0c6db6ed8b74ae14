package camera

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shreyaslakhotia/EE08-DIP-EmbodiedAgents/internal/agent"
)

// DefaultWarmupFrames are fetched and discarded before the kept frame so a
// cheap webcam's auto-exposure has settled. mjpg-streamer and IP-webcam style
// endpoints return a fresh frame per request.
const DefaultWarmupFrames = 2

// maxFrameBytes caps a single snapshot read; anything larger is not a still.
const maxFrameBytes = 16 << 20

// HTTPStill captures a single JPEG from a snapshot URL.
type HTTPStill struct {
	HTTPClient   *http.Client
	URL          string
	WarmupFrames int
}

// NewHTTPStill constructs a camera against the given snapshot endpoint.
func NewHTTPStill(snapshotURL string) *HTTPStill {
	return &HTTPStill{
		HTTPClient:   &http.Client{Timeout: 10 * time.Second},
		URL:          snapshotURL,
		WarmupFrames: DefaultWarmupFrames,
	}
}

// CaptureStill fetches warm-up frames, then returns one validated JPEG.
func (c *HTTPStill) CaptureStill(ctx context.Context) ([]byte, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("camera: %w: no snapshot url configured", agent.ErrUnavailable)
	}
	// Warm-up errors are ignored; only the kept frame matters.
	for i := 0; i < c.WarmupFrames; i++ {
		if _, err := c.fetch(ctx); err != nil {
			break
		}
	}
	frame, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	if len(frame) == 0 {
		return nil, fmt.Errorf("camera: %w: zero-byte frame", agent.ErrEmptyResult)
	}
	if !isJPEG(frame) {
		return nil, fmt.Errorf("camera: %w: response is not a JPEG frame", agent.ErrBackend)
	}
	return frame, nil
}

func (c *HTTPStill) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("camera: %w: %v", agent.ErrTimeout, err)
		}
		return nil, fmt.Errorf("camera: %w: %v", agent.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("camera: %w: snapshot status=%d", agent.ErrBackend, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFrameBytes))
	if err != nil {
		return nil, fmt.Errorf("camera: %w: read frame: %v", agent.ErrBackend, err)
	}
	return data, nil
}

// isJPEG checks the SOI marker.
func isJPEG(b []byte) bool {
	return len(b) >= 2 && b[0] == 0xFF && b[1] == 0xD8
}
