package agent

import (
	"context"
	"log"
	"strings"
	"time"
)

// DefaultListenWindow mirrors the recognizer's phrase time limit: how long one
// NextUtterance call waits before giving up and looping.
const DefaultListenWindow = 8 * time.Second

// retryBackoff keeps a failing transcriber from spinning the loop hot.
const retryBackoff = 250 * time.Millisecond

// VoiceLoop is the background producer. It keeps capturing utterances whether
// or not a turn is in flight, but only attempts admission when the controller
// is idle; utterances finalized while busy are dropped, never queued.
type VoiceLoop struct {
	tr       Transcriber
	ctrl     *Controller
	notifier Notifier
	window   time.Duration
}

// NewVoiceLoop wires the producer. notifier may be nil.
func NewVoiceLoop(tr Transcriber, ctrl *Controller, notifier Notifier, window time.Duration) *VoiceLoop {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if window <= 0 {
		window = DefaultListenWindow
	}
	return &VoiceLoop{tr: tr, ctrl: ctrl, notifier: notifier, window: window}
}

// Run loops until ctx is done. Transcription failures are retried silently:
// the loop logs and listens again, it never takes the agent down.
func (v *VoiceLoop) Run(ctx context.Context) {
	for ctx.Err() == nil {
		if !v.ctrl.Busy() {
			v.notifier.Status(string(StateListening))
		}
		text, err := v.tr.NextUtterance(ctx, v.window)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("voice: transcription failed: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryBackoff):
			}
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if v.ctrl.Busy() {
			// Speech finalized mid-turn is dropped, never queued.
			log.Printf("voice: dropped utterance while busy: %q", text)
			continue
		}
		v.notifier.Status(string(StateTranscribing))
		v.ctrl.SubmitVoice(ctx, text)
	}
}
