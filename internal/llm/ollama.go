package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shreyaslakhotia/EE08-DIP-EmbodiedAgents/internal/agent"
)

// DefaultHost is a local Ollama daemon.
const DefaultHost = "http://localhost:11434"

// DefaultModel is the vision-tuned model the agent was built against.
const DefaultModel = "qwen3-vl:4b"

// Client calls Ollama's /api/chat endpoint and returns the whole reply in one
// response.
type Client struct {
	HTTPClient *http.Client
	Host       string
	Model      string
}

type wireMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"` // base64-encoded JPEG
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Model   string      `json:"model"`
	Message wireMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error,omitempty"`
}

// NewClient constructs a whole-response client. Empty host/model fall back to
// the local daemon and the default vision model.
func NewClient(host, model string) *Client {
	if host == "" {
		host = DefaultHost
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: 90 * time.Second},
		Host:       strings.TrimRight(host, "/"),
		Model:      model,
	}
}

// encodeMessages converts agent messages to the wire shape, base64-encoding
// any attached images.
func encodeMessages(history []agent.Message) []wireMessage {
	out := make([]wireMessage, 0, len(history))
	for _, m := range history {
		wm := wireMessage{Role: m.Role, Content: m.Content}
		for _, img := range m.Images {
			wm.Images = append(wm.Images, base64.StdEncoding.EncodeToString(img))
		}
		out = append(out, wm)
	}
	return out
}

// Chat sends the full history and returns the assistant reply.
func (c *Client) Chat(ctx context.Context, history []agent.Message) (string, error) {
	body, err := c.do(ctx, chatRequest{Model: c.Model, Messages: encodeMessages(history), Stream: false})
	if err != nil {
		return "", err
	}
	defer body.Close()

	var cr chatResponse
	if err := json.NewDecoder(body).Decode(&cr); err != nil {
		return "", fmt.Errorf("ollama: %w: decode response: %v", agent.ErrBackend, err)
	}
	if cr.Error != "" {
		return "", fmt.Errorf("ollama: %w: %s", agent.ErrBackend, cr.Error)
	}
	reply := strings.TrimSpace(cr.Message.Content)
	if reply == "" {
		return "", fmt.Errorf("ollama: %w", agent.ErrEmptyResult)
	}
	return reply, nil
}

// do posts a chat request and returns the response body on 2xx.
func (c *Client) do(ctx context.Context, cr chatRequest) (io.ReadCloser, error) {
	reqBody, _ := json.Marshal(cr)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Host+"/api/chat", bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("ollama: %w: %v", agent.ErrTimeout, err)
		}
		return nil, fmt.Errorf("ollama: %w: %v", agent.ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, fmt.Errorf("ollama: %w: status=%d body=%s", agent.ErrBackend, resp.StatusCode, string(b))
	}
	return resp.Body, nil
}
