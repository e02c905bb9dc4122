// Package tts synthesizes spoken replies with sherpa-onnx's Kokoro
// model. Only the "ask" handler's reply path uses it; feedback sounds
// are pre-recorded clips and never go through synthesis.
package tts

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/agalue/lurker/internal/sherpa"
)

// Config names the Kokoro model files and synthesis settings.
type Config struct {
	Model      string // model.onnx
	Voices     string // voices.bin
	Tokens     string // tokens.txt
	DataDir    string // espeak-ng-data directory
	Lexicon    string // optional lexicon file(s), comma-separated
	Language   string // espeak code for voices without a lexicon
	SpeakerID  int
	Speed      float32
	Provider   string // cpu, cuda, coreml
	Verbose    bool
	TTSThreads int
}

// AudioOutput is one synthesized utterance.
type AudioOutput struct {
	Samples    []float32
	SampleRate int
}

// Synthesizer drives a single Kokoro engine. The mutex serializes
// Generate calls: the engine is not reentrant, and a reply being
// spoken sentence-by-sentence must not interleave with another.
type Synthesizer struct {
	mu        sync.Mutex
	engine    *sherpa.OfflineTts
	speakerID int
	speed     float32
	verbose   bool
}

// NewSynthesizer loads the Kokoro model. Failure is non-fatal to the
// process: the caller degrades to text-only replies.
func NewSynthesizer(cfg *Config) (*Synthesizer, error) {
	threads := cfg.TTSThreads
	if threads <= 0 {
		threads = 2
	}

	ec := &sherpa.OfflineTtsConfig{}
	ec.Model.Kokoro.Model = cfg.Model
	ec.Model.Kokoro.Voices = cfg.Voices
	ec.Model.Kokoro.Tokens = cfg.Tokens
	ec.Model.Kokoro.DataDir = cfg.DataDir
	ec.Model.Kokoro.Lexicon = cfg.Lexicon
	ec.Model.Kokoro.Lang = cfg.Language
	// Kokoro takes a length scale, the inverse of playback speed.
	ec.Model.Kokoro.LengthScale = 1.0 / cfg.Speed
	ec.Model.NumThreads = threads
	ec.Model.Provider = cfg.Provider
	// Kokoro rejects multi-sentence input; SplitSentences feeds it one
	// at a time.
	ec.MaxNumSentences = 1
	if cfg.Verbose {
		ec.Model.Debug = 1
	}

	engine := sherpa.NewOfflineTts(ec)
	if engine == nil {
		return nil, fmt.Errorf("tts: failed to load Kokoro model %s", cfg.Model)
	}

	return &Synthesizer{
		engine:    engine,
		speakerID: cfg.SpeakerID,
		speed:     cfg.Speed,
		verbose:   cfg.Verbose,
	}, nil
}

// Synthesize renders one sentence of text to mono PCM.
func (s *Synthesizer) Synthesize(text string) (*AudioOutput, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("tts: empty text")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.verbose {
		log.Printf("tts: synthesizing %q", text)
	}
	audio := s.engine.Generate(text, s.speakerID, s.speed)
	if audio == nil || len(audio.Samples) == 0 {
		return nil, fmt.Errorf("tts: generation produced no audio for %q", text)
	}

	return &AudioOutput{
		Samples:    audio.Samples,
		SampleRate: int(audio.SampleRate),
	}, nil
}

// Close releases the engine.
func (s *Synthesizer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine != nil {
		sherpa.DeleteOfflineTts(s.engine)
		s.engine = nil
	}
}

// SplitSentences breaks text at sentence boundaries so each piece can
// be synthesized and queued independently, keeping time-to-first-audio
// low for long replies.
func SplitSentences(text string) []string {
	var out []string
	var cur strings.Builder
	flush := func() {
		if t := strings.TrimSpace(cur.String()); t != "" {
			out = append(out, t)
		}
		cur.Reset()
	}
	for _, r := range text {
		cur.WriteRune(r)
		switch r {
		case '.', '!', '?', '\n':
			flush()
		}
	}
	flush()
	return out
}
