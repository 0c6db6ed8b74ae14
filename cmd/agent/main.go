package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shreyaslakhotia/EE08-DIP-EmbodiedAgents/internal/agent"
	"github.com/shreyaslakhotia/EE08-DIP-EmbodiedAgents/internal/camera"
	"github.com/shreyaslakhotia/EE08-DIP-EmbodiedAgents/internal/config"
	"github.com/shreyaslakhotia/EE08-DIP-EmbodiedAgents/internal/llm"
	"github.com/shreyaslakhotia/EE08-DIP-EmbodiedAgents/internal/storage"
	"github.com/shreyaslakhotia/EE08-DIP-EmbodiedAgents/internal/transcript"
	"github.com/shreyaslakhotia/EE08-DIP-EmbodiedAgents/internal/web"
)

func main() {
	// Include sub-second precision in all log timestamps
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	cfg := config.Load()

	hub := web.NewHub()
	history := agent.NewHistory(cfg.SystemPrompt)

	var model agent.ChatModel
	if cfg.StreamReplies {
		model = llm.NewStreamingClient(cfg.OllamaHost, cfg.OllamaModel, hub.Delta)
	} else {
		model = llm.NewClient(cfg.OllamaHost, cfg.OllamaModel)
	}

	var archive agent.Archiver
	if cfg.SupabaseURL != "" && cfg.SupabaseKey != "" {
		a, err := storage.NewSnapshotArchive(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseBucket)
		if err != nil {
			log.Printf("snapshot archive disabled: %v", err)
		} else {
			archive = a
		}
	}

	ctrl := agent.NewController(history, camera.NewHTTPStill(cfg.CameraURL), model, hub, agent.Options{
		TriggerWords:  cfg.TriggerWords,
		MinVoiceChars: cfg.MinVoiceChars,
		Archive:       archive,
	})

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	stt := transcript.NewService(cfg.AssemblyAIKey)
	voiceEnabled := false
	if cfg.AssemblyAIKey != "" {
		if err := stt.Connect(); err != nil {
			log.Printf("voice channel disabled: %v", err)
		} else {
			voiceEnabled = true
			loop := agent.NewVoiceLoop(stt, ctrl, hub, time.Duration(cfg.ListenSeconds)*time.Second)
			go loop.Run(rootCtx)
		}
	}

	onText := func(text string) {
		// Run off the websocket read loop so a long turn never stalls the client.
		go ctrl.SubmitTyped(rootCtx, text)
	}
	onPCM := func(pcm []byte) {
		if voiceEnabled {
			_ = stt.FeedPCM16KLE(pcm)
		}
	}
	srv := web.New(hub, onText, onPCM)

	server := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           srv.Echo,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("agent listening on %s", cfg.HTTPAddress)
		serverErrors <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	case sig := <-sigChan:
		log.Printf("shutdown signal received: %v", sig)
	}

	cancelRoot()
	if voiceEnabled {
		_ = stt.Close()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = server.Close()
	}
}
