package agent

import "sync"

// Roles accepted by the inference backend.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of the conversation, sent verbatim to the model on
// every call. Images carries at most one encoded JPEG today; it stays a slice
// to match the backend's wire shape.
type Message struct {
	Role    string
	Content string
	Images  [][]byte
}

// History is the append-only conversation log. The system prompt is seeded at
// construction and always stays first; messages are never mutated or
// reordered. There is no truncation or windowing: the whole log is the model
// context, and unbounded growth over a session is accepted.
type History struct {
	mu   sync.Mutex
	msgs []Message
}

// NewHistory seeds the log with the system message.
func NewHistory(systemPrompt string) *History {
	return &History{msgs: []Message{{Role: RoleSystem, Content: systemPrompt}}}
}

// Append adds one message at the end. Only the in-flight turn calls this, so
// the busy gate already serializes writers; the mutex additionally keeps
// Snapshot safe against a mid-append read.
func (h *History) Append(m Message) {
	h.mu.Lock()
	h.msgs = append(h.msgs, m)
	h.mu.Unlock()
}

// Snapshot returns the messages appended so far, in order. The slice header is
// a copy; the Message values and image bytes are shared, which is safe because
// messages are immutable once appended.
func (h *History) Snapshot() []Message {
	h.mu.Lock()
	out := make([]Message, len(h.msgs))
	copy(out, h.msgs)
	h.mu.Unlock()
	return out
}

// Len reports the number of messages including the system message.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.msgs)
}
