package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultSystemPrompt seeds the conversation history.
const DefaultSystemPrompt = `You are a Study Buddy with eyes and ears. Use image context if keywords like "look" or "see" are used.`

// Config holds application configuration.
type Config struct {
	HTTPAddress   string
	AssemblyAIKey string

	OllamaHost    string
	OllamaModel   string
	StreamReplies bool

	SystemPrompt  string
	TriggerWords  []string
	MinVoiceChars int
	ListenSeconds int

	CameraURL string

	SupabaseURL    string
	SupabaseKey    string
	SupabaseBucket string
}

// Load reads environment variables and returns Config with sane defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file loaded")
	}

	addr := os.Getenv("HTTP_ADDRESS")
	if addr == "" {
		addr = ":8080"
	}

	assemblyAIKey := os.Getenv("ASSEMBLYAI_API_KEY")
	if assemblyAIKey == "" {
		log.Println("Warning: ASSEMBLYAI_API_KEY not set - voice input will not work")
	}

	ollamaHost := os.Getenv("OLLAMA_HOST")
	if ollamaHost == "" {
		ollamaHost = "http://localhost:11434"
	}
	ollamaModel := os.Getenv("OLLAMA_MODEL")
	if ollamaModel == "" {
		ollamaModel = "qwen3-vl:4b"
	}

	systemPrompt := os.Getenv("SYSTEM_PROMPT")
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}

	var triggerWords []string
	if raw := os.Getenv("VISION_TRIGGER_WORDS"); raw != "" {
		for _, w := range strings.Split(raw, ",") {
			if w = strings.TrimSpace(w); w != "" {
				triggerWords = append(triggerWords, w)
			}
		}
	}

	cameraURL := os.Getenv("CAMERA_SNAPSHOT_URL")
	if cameraURL == "" {
		log.Println("Warning: CAMERA_SNAPSHOT_URL not set - vision requests will degrade to text-only")
	}

	supabaseURL := os.Getenv("SUPABASE_URL")
	supabaseKey := os.Getenv("SUPABASE_SERVICE_ROLE_KEY")
	supabaseBucket := os.Getenv("SUPABASE_BUCKET")
	if supabaseURL == "" || supabaseKey == "" {
		log.Println("snapshot archive disabled (SUPABASE_URL / SUPABASE_SERVICE_ROLE_KEY not set)")
	}

	log.Printf("config: HTTP_ADDRESS=%s OLLAMA_HOST=%s OLLAMA_MODEL=%s", addr, ollamaHost, ollamaModel)
	return Config{
		HTTPAddress:    addr,
		AssemblyAIKey:  assemblyAIKey,
		OllamaHost:     ollamaHost,
		OllamaModel:    ollamaModel,
		StreamReplies:  boolEnv("STREAM_REPLIES", true),
		SystemPrompt:   systemPrompt,
		TriggerWords:   triggerWords,
		MinVoiceChars:  intEnv("MIN_VOICE_CHARS", 5),
		ListenSeconds:  intEnv("LISTEN_WINDOW_SECONDS", 8),
		CameraURL:      cameraURL,
		SupabaseURL:    supabaseURL,
		SupabaseKey:    supabaseKey,
		SupabaseBucket: supabaseBucket,
	}
}

func intEnv(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		log.Printf("Warning: invalid %s=%q, using %d", key, raw, def)
		return def
	}
	return v
}

func boolEnv(key string, def bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using %v", key, raw, def)
		return def
	}
	return v
}
