package agent

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// DefaultMinVoiceChars is the shortest voice transcript accepted as a turn.
// Anything shorter is treated as recognizer noise and discarded.
const DefaultMinVoiceChars = 5

// DefaultChatTimeout bounds a single inference call so a hung backend cannot
// freeze both input channels forever.
const DefaultChatTimeout = 60 * time.Second

// Options tune a Controller. Zero values fall back to defaults.
type Options struct {
	// TriggerWords override DefaultTriggerWords when non-empty.
	TriggerWords []string
	// MinVoiceChars overrides DefaultMinVoiceChars when positive.
	MinVoiceChars int
	// ChatTimeout overrides DefaultChatTimeout when positive.
	ChatTimeout time.Duration
	// Archive, when set, receives a copy of every captured snapshot.
	Archive Archiver
}

// Controller serializes the voice and typed producers into at most one
// in-flight turn. It owns the busy gate and the status state machine and is
// the only component that appends to the history.
type Controller struct {
	history  *History
	camera   Camera
	model    ChatModel
	notifier Notifier
	archive  Archiver

	triggerWords  []string
	minVoiceChars int
	chatTimeout   time.Duration

	mu    sync.Mutex
	busy  bool
	state State
}

// NewController wires the turn pipeline. notifier may be nil.
func NewController(history *History, camera Camera, model ChatModel, notifier Notifier, opts Options) *Controller {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	words := opts.TriggerWords
	if len(words) == 0 {
		words = DefaultTriggerWords
	}
	minChars := opts.MinVoiceChars
	if minChars <= 0 {
		minChars = DefaultMinVoiceChars
	}
	timeout := opts.ChatTimeout
	if timeout <= 0 {
		timeout = DefaultChatTimeout
	}
	return &Controller{
		history:       history,
		camera:        camera,
		model:         model,
		notifier:      notifier,
		archive:       opts.Archive,
		triggerWords:  words,
		minVoiceChars: minChars,
		chatTimeout:   timeout,
		state:         StateReady,
	}
}

// TryAdmit flips the busy gate. When the voice loop and a typed submission
// fire near-simultaneously, exactly one caller wins; the loser must discard
// its input without side effects.
func (c *Controller) TryAdmit(src Source) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return false
	}
	c.busy = true
	return true
}

// Busy reports whether a turn is in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// State returns the current status label.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SubmitTyped validates, admits and runs one typed turn. It returns false when
// the input was empty after trimming or another turn was already in flight.
func (c *Controller) SubmitTyped(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	if !c.TryAdmit(SourceTyped) {
		log.Printf("typed input dropped while busy: %q", text)
		return false
	}
	c.RunTurn(ctx, text, SourceTyped)
	return true
}

// SubmitVoice applies the noise threshold, then admits and runs one voice
// turn. Transcripts below the minimum length are discarded without admission.
func (c *Controller) SubmitVoice(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < c.minVoiceChars {
		return false
	}
	if !c.TryAdmit(SourceVoice) {
		log.Printf("voice utterance dropped while busy: %q", text)
		return false
	}
	c.RunTurn(ctx, text, SourceVoice)
	return true
}

// RunTurn executes the body of one admitted turn: trigger check, optional
// snapshot, history append, inference, reply append. Callers must hold a
// successful TryAdmit; busy is always released on return, whichever branch
// the turn takes.
func (c *Controller) RunTurn(ctx context.Context, text string, src Source) {
	defer c.release()

	turnID := uuid.NewString()
	c.notifier.Log("You: " + text)

	var image []byte
	if ShouldCapture(text, c.triggerWords) {
		c.setState(StateCapturing)
		img, err := c.camera.CaptureStill(ctx)
		if err != nil {
			// Vision failure is non-fatal: answer from text alone.
			log.Printf("[%s] snapshot failed: %v; continuing text-only", turnID, err)
			c.notifier.Log("(camera unavailable, answering without image)")
		} else {
			image = img
			c.archiveSnapshot(turnID, img)
		}
	}

	userMsg := Message{Role: RoleUser, Content: text}
	if image != nil {
		userMsg.Images = [][]byte{image}
	}
	c.history.Append(userMsg)

	c.setState(StateThinking)
	chatCtx, cancel := context.WithTimeout(ctx, c.chatTimeout)
	reply, err := c.model.Chat(chatCtx, c.history.Snapshot())
	cancel()
	if err != nil {
		log.Printf("[%s] chat failed (%s turn): %v", turnID, src, err)
		c.notifier.Log("SYSTEM ERROR: " + err.Error())
		return
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		log.Printf("[%s] empty reply; nothing appended", turnID)
		return
	}
	c.history.Append(Message{Role: RoleAssistant, Content: reply})
	c.notifier.Log("Agent: " + reply)
}

// release is the guaranteed-cleanup path: busy drops and the state returns to
// READY no matter how the turn ended.
func (c *Controller) release() {
	c.mu.Lock()
	c.busy = false
	c.state = StateReady
	c.mu.Unlock()
	c.notifier.Status(string(StateReady))
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.notifier.Status(string(s))
}

func (c *Controller) archiveSnapshot(turnID string, jpeg []byte) {
	if c.archive == nil {
		return
	}
	key := fmt.Sprintf("snapshots/%s.jpg", turnID)
	if err := c.archive.SaveSnapshot(key, jpeg); err != nil {
		log.Printf("[%s] snapshot archive failed: %v", turnID, err)
	}
}
