// lurker is a voice-activated command dispatcher: it listens for a
// wake keyword, records the instruction that follows, transcribes it,
// matches it against a directory of user-defined actions, and
// dispatches to a pluggable handler.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agalue/lurker/internal/audio"
	"github.com/agalue/lurker/internal/config"
	"github.com/agalue/lurker/internal/dispatcher"
	"github.com/agalue/lurker/internal/handler"
	"github.com/agalue/lurker/internal/listener"
	"github.com/agalue/lurker/internal/registry"
	"github.com/agalue/lurker/internal/stt"
	"github.com/agalue/lurker/internal/tts"
	"github.com/agalue/lurker/internal/vad"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	log.Printf("lurker starting (keyword=%q, provider=%s)", cfg.Keyword, cfg.Provider)

	log.Println("loading speech recognition model...")
	recognizer, err := stt.NewRecognizer(&stt.Config{
		WhisperEncoder: cfg.WhisperEncoder,
		WhisperDecoder: cfg.WhisperDecoder,
		WhisperTokens:  cfg.WhisperTokens,
		SampleRate:     cfg.SampleRate,
		Provider:       cfg.Provider,
		Language:       cfg.Language,
		Verbose:        cfg.Verbose,
		STTThreads:     cfg.NumThreads,
	})
	if err != nil {
		log.Fatalf("Failed to load speech recognition model: %v", err)
	}
	defer recognizer.Close()
	log.Println("speech recognition ready")

	sounds, err := audio.NewFeedbackSink(cfg.SoundDir, cfg.OutputDevice)
	if err != nil {
		log.Fatalf("Failed to open feedback sound device: %v", err)
	}
	defer sounds.Close()

	// The "ask" handler speaks its replies through the same playback
	// device the feedback sounds use, synthesized on demand. Wired
	// before any handler is resolved so the factory is in place by the
	// time handler.Resolve builds an "ask" instance.
	var synth *tts.Synthesizer
	handler.SetSpeechSinkFactory(func() handler.SpeechSink {
		if synth == nil {
			var err error
			synth, err = tts.NewSynthesizer(&tts.Config{
				Model:      cfg.TTSModel,
				Voices:     cfg.TTSVoices,
				Tokens:     cfg.TTSTokens,
				DataDir:    cfg.TTSData,
				Lexicon:    cfg.TTSLexicon,
				Language:   cfg.TTSLanguage,
				SpeakerID:  cfg.TTSSpeakerID,
				Speed:      cfg.TTSSpeed,
				Provider:   cfg.Provider,
				Verbose:    cfg.Verbose,
				TTSThreads: cfg.NumThreads,
			})
			if err != nil {
				log.Printf("ask: TTS unavailable, replies will not be spoken: %v", err)
				return nil
			}
		}
		return &spokenReply{synth: synth, sink: sounds}
	})

	h, err := handler.Resolve(cfg.HandlerModule, cfg.HandlerConfig)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	reg := registry.New(cfg.ActionDir)
	if err := reg.LoadOnce(); err != nil {
		log.Fatalf("Failed to load actions from %s: %v", cfg.ActionDir, err)
	}
	reg.StartPeriodicReload(cfg.ActionRefreshInterval)
	defer reg.Stop()

	disp := dispatcher.New(reg, h, sounds)

	capturer, err := audio.NewCapturer()
	if err != nil {
		log.Fatalf("Failed to open capture device: %v", err)
	}
	defer capturer.Shutdown()

	vadParams := vad.Params{
		BucketCount:                  cfg.SpeechBucketCount,
		MinSilenceThreshold:          cfg.MinSilenceThreshold,
		AmbianceLevelFactor:          cfg.AmbianceLevelFactor,
		RequiredLeadingSilenceRatio:  cfg.RequiredLeadingSilenceRatio,
		RequiredSpeechRatio:          cfg.RequiredSpeechRatio,
		RequiredTrailingSilenceRatio: cfg.RequiredTrailingSilenceRatio,
	}
	vadParams.Validate()

	l := listener.New(listener.Config{
		DeviceName:               cfg.InputDevice,
		SampleRate:               cfg.SampleRate,
		BitDepth:                 cfg.BitDepth,
		KeywordBufferSeconds:     cfg.KeywordQueueLengthSeconds,
		InstructionBufferSeconds: cfg.InstructionQueueLengthSeconds,
		QueueCheckInterval:       time.Duration(cfg.QueueCheckIntervalSeconds * float64(time.Second)),
		VAD:                      vadParams,
	}, capturer, recognizer, sounds)

	sounds.Play(dispatcher.EventStartup)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("shutting down...")
		l.StopListening()
	}()

	log.Printf("listening for keyword %q", cfg.Keyword)
	if err := l.StartListening(cfg.Keyword, disp.Act); err != nil {
		log.Fatalf("Listener stopped: %v", err)
	}
	log.Println("shutdown complete")
}

// spokenReply implements handler.SpeechSink by synthesizing text
// sentence-by-sentence and queueing it on the feedback sound device.
type spokenReply struct {
	synth *tts.Synthesizer
	sink  *audio.FeedbackSink
}

func (s *spokenReply) Speak(text string) error {
	for _, sentence := range tts.SplitSentences(text) {
		if sentence == "" {
			continue
		}
		out, err := s.synth.Synthesize(sentence)
		if err != nil {
			log.Printf("ask: tts synthesis failed for %q: %v", sentence, err)
			continue
		}
		if err := s.sink.Speak(out.Samples, out.SampleRate); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	log.SetFlags(log.Ltime)
	log.SetOutput(os.Stdout)
}
