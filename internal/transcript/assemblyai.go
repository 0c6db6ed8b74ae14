package transcript

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/shreyaslakhotia/EE08-DIP-EmbodiedAgents/internal/agent"
)

// silenceWindow is the inactivity required before an utterance is considered
// complete. Conservative so the speaker is not cut mid-sentence.
const silenceWindow = 700 * time.Millisecond

// Service streams 16kHz PCM microphone audio to AssemblyAI's realtime endpoint
// and emits one finalized utterance per quiet period. The voice loop consumes
// utterances via NextUtterance; audio keeps flowing in regardless of whether a
// turn is in flight.
type Service struct {
	apiKey     string
	conn       *websocket.Conn
	utterances chan string
	audioIn    chan []byte
	stopCh     chan struct{}

	mu        sync.RWMutex
	connected bool

	accMu     sync.Mutex
	latest    string
	committed string
	silence   *time.Timer
	lastVoice time.Time
}

type turnMessage struct {
	Type       string `json:"type"`
	Transcript string `json:"transcript"`
}

type beginMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	ExpiresAt int64  `json:"expires_at"`
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// NewService creates an unconnected transcription service.
func NewService(apiKey string) *Service {
	return &Service{
		apiKey:     apiKey,
		utterances: make(chan string, 8),
		audioIn:    make(chan []byte, 1000),
		stopCh:     make(chan struct{}),
	}
}

// Connect dials the streaming endpoint and starts the read and write pumps.
func (s *Service) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connected {
		return nil
	}
	if s.apiKey == "" {
		return fmt.Errorf("transcript: %w: AssemblyAI API key is empty", agent.ErrUnavailable)
	}

	params := url.Values{}
	params.Set("sample_rate", "16000")
	params.Set("format_turns", "false")
	params.Set("encoding", "pcm_s16le")
	wsURL := fmt.Sprintf("wss://streaming.assemblyai.com/v3/ws?%s", params.Encode())

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.Dial(wsURL, map[string][]string{"Authorization": {s.apiKey}})
	if err != nil {
		if resp != nil {
			log.Printf("AssemblyAI connect failed with status %d", resp.StatusCode)
		}
		return fmt.Errorf("transcript: %w: dial AssemblyAI: %v", agent.ErrUnavailable, err)
	}

	s.conn = conn
	s.connected = true
	s.lastVoice = time.Now()

	go s.readLoop()
	go s.writeLoop()

	log.Println("connected to AssemblyAI streaming service")
	return nil
}

// FeedPCM16KLE queues a 16kHz little-endian mono PCM chunk for transcription.
// The buffer drops rather than blocks when full.
func (s *Service) FeedPCM16KLE(pcm []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.connected {
		return fmt.Errorf("transcript: %w: not connected", agent.ErrUnavailable)
	}
	s.trackVoiceEnergy(pcm)
	select {
	case s.audioIn <- pcm:
	default:
		log.Println("transcript: audio buffer full, dropping chunk")
	}
	return nil
}

// NextUtterance blocks for the next finalized utterance. An empty string with
// a nil error means nothing was spoken within maxWait.
func (s *Service) NextUtterance(ctx context.Context, maxWait time.Duration) (string, error) {
	var timeout <-chan time.Time
	if maxWait > 0 {
		t := time.NewTimer(maxWait)
		defer t.Stop()
		timeout = t.C
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timeout:
		return "", nil
	case u, ok := <-s.utterances:
		if !ok {
			return "", fmt.Errorf("transcript: %w: stream closed", agent.ErrUnavailable)
		}
		return u, nil
	}
}

// Close terminates the session and releases resources. Safe to call once.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return nil
	}
	close(s.stopCh)
	s.accMu.Lock()
	if s.silence != nil {
		s.silence.Stop()
		s.silence = nil
	}
	s.accMu.Unlock()
	if s.conn != nil {
		_ = s.conn.WriteJSON(map[string]string{"type": "Terminate"})
		_ = s.conn.Close()
	}
	s.connected = false
	s.conn = nil
	close(s.utterances)
	log.Println("AssemblyAI connection closed")
	return nil
}

func (s *Service) readLoop() {
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}
		s.mu.RLock()
		conn := s.conn
		s.mu.RUnlock()
		if conn == nil {
			return
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-s.stopCh:
			default:
				log.Printf("transcript: read error: %v", err)
			}
			return
		}
		s.handleMessage(message)
	}
}

func (s *Service) handleMessage(raw []byte) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		log.Printf("transcript: bad message: %v", err)
		return
	}
	switch envelope.Type {
	case "Begin":
		var m beginMessage
		if json.Unmarshal(raw, &m) == nil {
			log.Printf("AssemblyAI session began: id=%s", m.ID)
		}
	case "Turn":
		var m turnMessage
		if err := json.Unmarshal(raw, &m); err != nil || m.Transcript == "" {
			return
		}
		s.accMu.Lock()
		s.latest = m.Transcript
		if s.silence == nil {
			s.silence = time.AfterFunc(silenceWindow, s.finalize)
		} else {
			s.silence.Stop()
			s.silence.Reset(silenceWindow)
		}
		s.accMu.Unlock()
	case "Termination":
		s.finalize()
	case "Error":
		var m errorMessage
		if json.Unmarshal(raw, &m) == nil {
			log.Printf("AssemblyAI error: %s", m.Error)
		}
	default:
		log.Printf("transcript: unknown message type %q", envelope.Type)
	}
}

// finalize commits the transcript delta accumulated since the last finalized
// utterance and hands it to the voice loop.
func (s *Service) finalize() {
	select {
	case <-s.stopCh:
		return
	default:
	}

	s.accMu.Lock()
	delta := transcriptDelta(s.latest, s.committed)
	s.committed = s.latest
	s.accMu.Unlock()

	if delta == "" {
		return
	}
	select {
	case <-s.stopCh:
	case s.utterances <- delta:
	}
}

// transcriptDelta extracts what the recognizer added on top of the already
// committed prefix. AssemblyAI resends the running transcript in full, so the
// committed part must be stripped off.
func transcriptDelta(latest, committed string) string {
	delta := strings.TrimSpace(strings.TrimPrefix(latest, committed))
	if delta == "" && committed != "" {
		if idx := strings.LastIndex(latest, committed); idx >= 0 {
			delta = strings.TrimSpace(latest[idx+len(committed):])
		}
	}
	return delta
}

// trackVoiceEnergy records when the incoming PCM carries voice-level RMS so
// callers could distinguish silence from transport stalls.
func (s *Service) trackVoiceEnergy(pcm []byte) {
	const minSamples = 160 // 10ms at 16kHz
	if len(pcm) < minSamples*2 {
		return
	}
	step := 2
	if len(pcm) > 3200 {
		step = 4
	}
	var sumSquares float64
	count := 0
	for i := 0; i+1 < len(pcm); i += 2 * step {
		v := int16(binary.LittleEndian.Uint16(pcm[i : i+2]))
		sumSquares += float64(v) * float64(v)
		count++
	}
	if count == 0 {
		return
	}
	const voiceRMS = 250.0
	if math.Sqrt(sumSquares/float64(count)) >= voiceRMS {
		s.accMu.Lock()
		s.lastVoice = time.Now()
		s.accMu.Unlock()
	}
}

// RecentlyHeardVoice reports whether voice energy was seen within the window.
func (s *Service) RecentlyHeardVoice(window time.Duration) bool {
	s.accMu.Lock()
	last := s.lastVoice
	s.accMu.Unlock()
	return time.Since(last) <= window
}

func (s *Service) writeLoop() {
	for {
		select {
		case <-s.stopCh:
			return
		case chunk, ok := <-s.audioIn:
			if !ok {
				return
			}
			s.mu.RLock()
			conn := s.conn
			s.mu.RUnlock()
			if conn == nil {
				return
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
				log.Printf("transcript: send audio: %v", err)
				return
			}
		}
	}
}
