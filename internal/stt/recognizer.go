// Package stt provides offline speech-to-text transcription using
// sherpa-onnx's Whisper model. The neural VAD sherpa-onnx also ships
// is deliberately unused here: segmentation is the energy-based
// bucket VAD in internal/vad, not sherpa's own Silero VAD.
package stt

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/agalue/lurker/internal/sherpa"
)

// Recognizer wraps a single Whisper OfflineRecognizer for single-shot
// transcription of a completed buffer snapshot. One Recognizer is
// shared across both listener stages; Decode is not safe for
// concurrent use, hence the mutex, even though the listener never
// actually calls it concurrently with itself.
type Recognizer struct {
	recognizer *sherpa.OfflineRecognizer
	sampleRate int
	verbose    bool
	mu         sync.Mutex
}

// Config holds the Whisper model configuration.
type Config struct {
	WhisperEncoder string
	WhisperDecoder string
	WhisperTokens  string
	SampleRate     int
	Provider       string // cpu, cuda, coreml
	Language       string // e.g. "en", "es", "auto"
	Verbose        bool
	STTThreads     int
}

// NewRecognizer creates an offline Whisper recognizer. A failure here
// is fatal at startup: without a model there is nothing to listen for.
func NewRecognizer(cfg *Config) (*Recognizer, error) {
	recognizerConfig := &sherpa.OfflineRecognizerConfig{}
	recognizerConfig.ModelConfig.Whisper.Encoder = cfg.WhisperEncoder
	recognizerConfig.ModelConfig.Whisper.Decoder = cfg.WhisperDecoder

	language := cfg.Language
	if strings.EqualFold(language, "auto") {
		language = ""
	}
	recognizerConfig.ModelConfig.Whisper.Language = language
	recognizerConfig.ModelConfig.Whisper.Task = "transcribe"
	recognizerConfig.ModelConfig.Whisper.TailPaddings = -1
	recognizerConfig.ModelConfig.Tokens = cfg.WhisperTokens
	recognizerConfig.ModelConfig.NumThreads = cfg.STTThreads
	recognizerConfig.ModelConfig.Provider = cfg.Provider
	recognizerConfig.DecodingMethod = "greedy_search"
	recognizerConfig.ModelConfig.Debug = 0
	if cfg.Verbose {
		recognizerConfig.ModelConfig.Debug = 1
	}

	recognizer := sherpa.NewOfflineRecognizer(recognizerConfig)
	if recognizer == nil {
		return nil, fmt.Errorf("stt: failed to create offline recognizer")
	}

	return &Recognizer{
		recognizer: recognizer,
		sampleRate: cfg.SampleRate,
		verbose:    cfg.Verbose,
	}, nil
}

// Transcribe decodes one completed buffer snapshot. It implements
// listener.TranscriptionEngine. An int16 snapshot is converted to the
// float32 range sherpa-onnx expects; an empty snapshot yields an empty
// string rather than invoking the model.
func (r *Recognizer) Transcribe(snapshot []int16) (string, error) {
	if len(snapshot) == 0 {
		return "", nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	samples := make([]float32, len(snapshot))
	for i, v := range snapshot {
		samples[i] = float32(v) / 32768
	}

	if r.verbose {
		duration := float32(len(samples)) / float32(r.sampleRate)
		log.Printf("stt: transcribing %.2fs snapshot", duration)
	}

	stream := sherpa.NewOfflineStream(r.recognizer)
	if stream == nil {
		return "", fmt.Errorf("stt: failed to create offline stream")
	}
	defer sherpa.DeleteOfflineStream(stream)

	stream.AcceptWaveform(r.sampleRate, samples)
	r.recognizer.Decode(stream)

	text := strings.TrimSpace(stream.GetResult().Text)
	return text, nil
}

// Close releases the recognizer.
func (r *Recognizer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recognizer != nil {
		sherpa.DeleteOfflineRecognizer(r.recognizer)
		r.recognizer = nil
	}
}
