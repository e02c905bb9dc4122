// Package listener drives the AwaitingKeyword -> RecordingInstruction
// -> Dispatching state machine: the core loop that ties the ring
// buffers, the VAD analyzer, an audio source and a transcription
// engine together.
package listener

import (
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/agalue/lurker/internal/ringbuffer"
	"github.com/agalue/lurker/internal/vad"
)

// State is the listener's coarse lifecycle state.
type State int32

const (
	Idle State = iota
	AwaitingKeyword
	RecordingInstruction
)

// Source is the audio capture contract: Open binds
// the device's callback thread to stageBuffer until Close is called.
// Source owns its callback thread; the Listener never polls it.
type Source interface {
	Open(stageBuffer *ringbuffer.Ring, deviceName string, sampleRate, bitDepth int) error
	Close() error
}

// TranscriptionEngine turns a sample snapshot into text. A returned
// error is treated as an empty transcription by the caller, never as
// a fatal condition.
type TranscriptionEngine interface {
	Transcribe(snapshot []int16) (string, error)
}

// Sounds is the feedback-sound sink; only EventReady is emitted
// directly by the listener, the rest belong to the dispatcher.
type Sounds interface {
	Play(event string)
}

// Config holds the tunables governing the listener's buffers, timing
// and VAD behavior.
type Config struct {
	DeviceName               string
	SampleRate               int
	BitDepth                 int
	KeywordBufferSeconds     float64
	InstructionBufferSeconds float64
	QueueCheckInterval       time.Duration
	VAD                      vad.Params
}

var nonAlnumSpace = regexp.MustCompile(`[^a-z0-9 ]`)

// normalize lowercases text and strips everything but letters, digits
// and spaces. The keyword and every transcription pass through here,
// so substring matching never trips over punctuation or case.
func normalize(text string) string {
	return nonAlnumSpace.ReplaceAllString(strings.ToLower(text), "")
}

// Listener owns the two ring buffers, the adaptive threshold, and the
// is_listening flag. Construct once; StartListening blocks until
// StopListening is called or a fatal AudioDeviceError occurs.
type Listener struct {
	cfg     Config
	source  Source
	engine  TranscriptionEngine
	sounds  Sounds
	onInstr func(text string)
	keyword string

	keywordBuffer     *ringbuffer.Ring
	instructionBuffer *ringbuffer.Ring
	threshold         *vad.Threshold

	isListening atomic.Bool
	state       atomic.Int32
	stop        atomic.Bool
}

// New constructs a Listener. Both ring buffers are allocated here,
// once, and live for the lifetime of the Listener value; stages only
// clear them, never reallocate.
func New(cfg Config, source Source, engine TranscriptionEngine, sounds Sounds) *Listener {
	return &Listener{
		cfg:               cfg,
		source:            source,
		engine:            engine,
		sounds:            sounds,
		keywordBuffer:     ringbuffer.New(cfg.KeywordBufferSeconds, cfg.SampleRate),
		instructionBuffer: ringbuffer.New(cfg.InstructionBufferSeconds, cfg.SampleRate),
		threshold:         vad.NewThreshold(cfg.VAD),
	}
}

// State reports the listener's current coarse state.
func (l *Listener) State() State {
	return State(l.state.Load())
}

// StartListening validates the keyword, then runs the blocking
// keyword/instruction loop until StopListening is called or a stage's
// audio source fails to open. A re-entrant call is a no-op that logs
// a warning.
func (l *Listener) StartListening(keyword string, onInstruction func(text string)) error {
	normalizedKeyword := normalize(keyword)
	if normalizedKeyword == "" {
		return fmt.Errorf("listener: empty normalized keyword")
	}

	if !l.isListening.CompareAndSwap(false, true) {
		log.Printf("listener: start_listening called while already listening, ignoring")
		return nil
	}
	defer l.isListening.Store(false)

	l.keyword = normalizedKeyword
	l.onInstr = onInstruction
	l.stop.Store(false)

	for l.isListening.Load() && !l.stop.Load() {
		if err := l.awaitKeyword(); err != nil {
			l.state.Store(int32(Idle))
			return err
		}
		if !l.isListening.Load() || l.stop.Load() {
			break
		}

		l.sounds.Play("ready")
		l.keywordBuffer.Clear()
		l.instructionBuffer.Clear()

		text, err := l.recordInstruction()
		if err != nil {
			l.state.Store(int32(Idle))
			return err
		}
		if !l.isListening.Load() || l.stop.Load() {
			break
		}

		l.onInstr(text)
		l.keywordBuffer.Clear()
		l.instructionBuffer.Clear()
	}

	l.state.Store(int32(Idle))
	return nil
}

// StopListening is the sole, level-triggered cancellation signal:
// checked at every loop head and between sleeps, never cancels an
// in-flight transcription.
func (l *Listener) StopListening() {
	l.stop.Store(true)
}

// awaitKeyword runs stage 1 of the loop: open the source bound to the
// keyword buffer, repeatedly snapshot and run the keyword VAD
// predicate, transcribe on a relevant snapshot and check for the
// keyword substring.
func (l *Listener) awaitKeyword() error {
	l.state.Store(int32(AwaitingKeyword))

	if err := l.source.Open(l.keywordBuffer, l.cfg.DeviceName, l.cfg.SampleRate, l.cfg.BitDepth); err != nil {
		return fmt.Errorf("listener: open keyword source: %w", err)
	}
	defer l.source.Close()

	for l.isListening.Load() && !l.stop.Load() {
		snapshot := l.keywordBuffer.Snapshot()
		relevant, meanAbs := vad.IsKeywordBufferRelevant(snapshot, l.keywordBuffer.Capacity(), l.threshold)
		l.threshold.Add(meanAbs)

		if relevant {
			text, err := l.engine.Transcribe(snapshot)
			if err != nil {
				log.Printf("listener: keyword transcription error: %v", err)
			} else if strings.Contains(normalize(text), l.keyword) {
				return nil
			}
		}

		time.Sleep(l.cfg.QueueCheckInterval)
	}
	return nil
}

// recordInstruction runs stage 3 of the loop: open the source bound
// to the instruction buffer, repeat until not listening, the
// instruction VAD fires, or the buffer fills, then transcribe the
// final snapshot.
func (l *Listener) recordInstruction() (string, error) {
	l.state.Store(int32(RecordingInstruction))

	if err := l.source.Open(l.instructionBuffer, l.cfg.DeviceName, l.cfg.SampleRate, l.cfg.BitDepth); err != nil {
		return "", fmt.Errorf("listener: open instruction source: %w", err)
	}
	defer l.source.Close()

	var snapshot []int16
	for l.isListening.Load() && !l.stop.Load() {
		snapshot = l.instructionBuffer.Snapshot()
		if vad.IsInstructionBufferDone(snapshot, l.instructionBuffer.Capacity(), l.threshold) {
			break
		}
		if len(snapshot) >= l.instructionBuffer.Capacity() {
			break
		}
		time.Sleep(l.cfg.QueueCheckInterval)
	}

	// A stop request wins over whatever audio was collected; nothing
	// is transcribed or dispatched during shutdown.
	if !l.isListening.Load() || l.stop.Load() {
		return "", nil
	}

	text, err := l.engine.Transcribe(snapshot)
	if err != nil {
		log.Printf("listener: instruction transcription error: %v", err)
		return "", nil
	}
	return normalize(text), nil
}
