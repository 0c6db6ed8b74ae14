package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shreyaslakhotia/EE08-DIP-EmbodiedAgents/internal/agent"
)

// StreamingClient is the token-stream variant of Client: Ollama answers with
// newline-delimited JSON chunks and OnDelta sees each content fragment as it
// arrives. Chat still returns the assembled reply, so the controller does not
// care which variant it was wired with.
type StreamingClient struct {
	*Client
	OnDelta func(delta string)
}

// NewStreamingClient constructs a streaming client. onDelta may be nil, in
// which case the chunks are only assembled.
func NewStreamingClient(host, model string, onDelta func(string)) *StreamingClient {
	return &StreamingClient{Client: NewClient(host, model), OnDelta: onDelta}
}

// Chat sends the full history and assembles the streamed reply.
func (c *StreamingClient) Chat(ctx context.Context, history []agent.Message) (string, error) {
	body, err := c.do(ctx, chatRequest{Model: c.Model, Messages: encodeMessages(history), Stream: true})
	if err != nil {
		return "", err
	}
	defer body.Close()

	var b strings.Builder
	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var cr chatResponse
		if err := json.Unmarshal([]byte(line), &cr); err != nil {
			return "", fmt.Errorf("ollama: %w: decode stream chunk: %v", agent.ErrBackend, err)
		}
		if cr.Error != "" {
			return "", fmt.Errorf("ollama: %w: %s", agent.ErrBackend, cr.Error)
		}
		if cr.Message.Content != "" {
			b.WriteString(cr.Message.Content)
			if c.OnDelta != nil {
				c.OnDelta(cr.Message.Content)
			}
		}
		if cr.Done {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("ollama: %w: read stream: %v", agent.ErrBackend, err)
	}
	reply := strings.TrimSpace(b.String())
	if reply == "" {
		return "", fmt.Errorf("ollama: %w", agent.ErrEmptyResult)
	}
	return reply, nil
}
