package camera

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shreyaslakhotia/EE08-DIP-EmbodiedAgents/internal/agent"
)

var jpegFrame = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}

func TestCaptureStill_WarmupFramesDiscarded(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write(jpegFrame)
	}))
	defer srv.Close()

	cam := NewHTTPStill(srv.URL)
	frame, err := cam.CaptureStill(context.Background())
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if string(frame) != string(jpegFrame) {
		t.Fatalf("wrong frame bytes")
	}
	if got := atomic.LoadInt32(&hits); got != int32(DefaultWarmupFrames)+1 {
		t.Fatalf("expected %d fetches (warmup + kept), got %d", DefaultWarmupFrames+1, got)
	}
}

func TestCaptureStill_NoURLIsUnavailable(t *testing.T) {
	cam := NewHTTPStill("")
	_, err := cam.CaptureStill(context.Background())
	if !errors.Is(err, agent.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestCaptureStill_NonJPEGRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not a camera</html>"))
	}))
	defer srv.Close()

	cam := NewHTTPStill(srv.URL)
	cam.WarmupFrames = 0
	_, err := cam.CaptureStill(context.Background())
	if !errors.Is(err, agent.ErrBackend) {
		t.Fatalf("expected ErrBackend for non-JPEG body, got %v", err)
	}
}

func TestCaptureStill_StatusErrorIsBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cam := NewHTTPStill(srv.URL)
	cam.WarmupFrames = 0
	_, err := cam.CaptureStill(context.Background())
	if !errors.Is(err, agent.ErrBackend) {
		t.Fatalf("expected ErrBackend, got %v", err)
	}
}

func TestCaptureStill_ConnectionRefusedIsUnavailable(t *testing.T) {
	cam := NewHTTPStill("http://127.0.0.1:1/snapshot")
	cam.WarmupFrames = 0
	_, err := cam.CaptureStill(context.Background())
	if !errors.Is(err, agent.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestIsJPEG(t *testing.T) {
	if !isJPEG(jpegFrame) {
		t.Fatalf("SOI marker not recognized")
	}
	if isJPEG([]byte{0x89, 0x50}) || isJPEG(nil) {
		t.Fatalf("non-JPEG accepted")
	}
}
