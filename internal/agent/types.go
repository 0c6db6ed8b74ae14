package agent

import (
	"context"
	"errors"
	"time"
)

// Source identifies which input channel initiated a turn.
type Source string

const (
	SourceVoice Source = "voice"
	SourceTyped Source = "typed"
)

// State is the label the UI shows for the current phase of a turn. It is
// informational only; the busy flag is the sole authority for admission.
type State string

const (
	StateReady        State = "READY"
	StateListening    State = "LISTENING..."
	StateTranscribing State = "TRANSCRIBING..."
	StateCapturing    State = "TAKING PHOTO..."
	StateThinking     State = "THINKING..."
)

// Adapter failure kinds. The controller handles every camera failure the same
// way (continue without an image) and every model failure the same way (drop
// the reply, keep the turn), but adapters wrap one of these so logs can tell
// the subkinds apart.
var (
	ErrUnavailable = errors.New("unavailable")
	ErrTimeout     = errors.New("timeout")
	ErrEmptyResult = errors.New("empty result")
	ErrBackend     = errors.New("backend error")
)

// Transcriber yields finalized utterances from the background audio channel.
type Transcriber interface {
	// NextUtterance blocks until an utterance finalizes, maxWait elapses, or
	// ctx is done. An empty result with a nil error means no speech was
	// detected within the window.
	NextUtterance(ctx context.Context, maxWait time.Duration) (string, error)
}

// Camera produces a single encoded JPEG still on demand.
type Camera interface {
	CaptureStill(ctx context.Context) ([]byte, error)
}

// ChatModel generates a reply for the full conversation so far.
type ChatModel interface {
	Chat(ctx context.Context, history []Message) (string, error)
}

// Notifier is the UI collaborator. Both methods are fire-and-forget; a slow or
// absent UI must never stall a turn.
type Notifier interface {
	Status(text string)
	Log(line string)
}

// Archiver persists captured snapshots out of band. Archive failures are
// logged and never affect the turn.
type Archiver interface {
	SaveSnapshot(key string, jpeg []byte) error
}

type nopNotifier struct{}

func (nopNotifier) Status(string) {}
func (nopNotifier) Log(string)    {}
