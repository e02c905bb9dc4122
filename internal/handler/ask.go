package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/agalue/lurker/internal/dispatcher"
	"github.com/agalue/lurker/internal/llm"
	"github.com/agalue/lurker/internal/registry"
)

// SpeechSink renders an LLM reply audibly. Wired from cmd/lurker to
// the TTS synthesizer plus the feedback-sound output device; left nil
// the "ask" handler still runs, it just never speaks its answer (the
// reply is only logged).
type SpeechSink interface {
	Speak(text string) error
}

// askConfig is the handler_config shape for "ask": an Ollama-backed
// built-in handler that treats the matched instruction's capture
// group as a question.
type askConfig struct {
	Host         string `json:"host"`
	Model        string `json:"model"`
	SystemPrompt string `json:"system_prompt"`
}

// Ask answers free-form questions via a local Ollama model and
// optionally speaks the reply back through a SpeechSink.
type Ask struct {
	client *llm.Client
	speech SpeechSink
}

// speechSinkFactory lets cmd/lurker inject a live SpeechSink after the
// handler table's construction-time config is otherwise just JSON;
// nil means replies are never spoken, only logged.
var speechSinkFactory func() SpeechSink

// SetSpeechSinkFactory registers the constructor main.go uses to wire
// a live TTS+playback sink into every "ask" handler built afterward.
func SetSpeechSinkFactory(f func() SpeechSink) {
	speechSinkFactory = f
}

// NewAsk builds an Ask handler from its JSON config blob.
func NewAsk(config map[string]any) (dispatcher.Handler, error) {
	raw, err := json.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("ask: encode config: %w", err)
	}
	var cfg askConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("ask: decode config: %w", err)
	}
	if cfg.Host == "" {
		cfg.Host = "http://localhost:11434"
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("ask: handler_config.model is required")
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = "You are a terse voice assistant. Keep answers to one or two sentences."
	}

	client, err := llm.NewClient(&llm.Config{
		Host:         cfg.Host,
		Model:        cfg.Model,
		SystemPrompt: cfg.SystemPrompt,
		MaxHistory:   5,
	})
	if err != nil {
		return nil, fmt.Errorf("ask: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.HealthCheck(ctx); err != nil {
		return nil, fmt.Errorf("ask: %w", err)
	}

	var sink SpeechSink
	if speechSinkFactory != nil {
		sink = speechSinkFactory()
	}
	return &Ask{client: client, speech: sink}, nil
}

// Handle sends the key's first capture group (or, for keys without
// one, the whole matched text) to the LLM and speaks the reply if a
// SpeechSink was wired in. A failed speech attempt is logged but does
// not fail the handler: the question was still answered, just not
// aloud.
func (a *Ask) Handle(action *registry.Action, match *registry.Match) (int, error) {
	var question string
	switch {
	case len(match.Submatch) > 1:
		question = match.Submatch[1]
	case len(match.Submatch) == 1:
		question = match.Submatch[0]
	}
	if question == "" {
		return 1, fmt.Errorf("ask: matched instruction is empty")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	reply, err := a.client.Chat(ctx, question)
	if err != nil {
		return 1, fmt.Errorf("ask: %w", err)
	}
	log.Printf("ask: %q -> %q", question, reply)

	if a.speech != nil {
		if err := a.speech.Speak(reply); err != nil {
			log.Printf("ask: speech playback failed: %v", err)
		}
	}
	return 0, nil
}
