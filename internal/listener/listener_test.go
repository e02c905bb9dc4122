package listener

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agalue/lurker/internal/ringbuffer"
	"github.com/agalue/lurker/internal/vad"
)

// fakeSource just records which buffer is currently bound; it never
// pushes samples itself; tests feed buffers directly since they share
// this package.
type fakeSource struct {
	mu  sync.Mutex
	buf *ringbuffer.Ring
}

func (s *fakeSource) Open(buf *ringbuffer.Ring, deviceName string, sampleRate, bitDepth int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = buf
	return nil
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = nil
	return nil
}

type scriptedEngine struct {
	mu      sync.Mutex
	replies []string
	i       int
}

func (e *scriptedEngine) Transcribe(snapshot []int16) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.i >= len(e.replies) {
		return "", nil
	}
	r := e.replies[e.i]
	e.i++
	return r, nil
}

type recordingSounds struct {
	mu     sync.Mutex
	events []string
}

func (s *recordingSounds) Play(event string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func testConfig() Config {
	return Config{
		DeviceName:               "default",
		SampleRate:               16000,
		BitDepth:                 16,
		KeywordBufferSeconds:     1.2,
		InstructionBufferSeconds: 3.0,
		QueueCheckInterval:       time.Millisecond,
		VAD: vad.Params{
			BucketCount:                  60,
			MinSilenceThreshold:          600,
			AmbianceLevelFactor:          1.5,
			RequiredLeadingSilenceRatio:  0.1,
			RequiredSpeechRatio:          0.15,
			RequiredTrailingSilenceRatio: 0.2,
		},
	}
}

// buildEnvelope produces a capacity-exact buffer with 10 silent
// buckets, 15 loud buckets, then silence for the remainder, which
// satisfies both the keyword predicate (req_leading=6, req_speech=9,
// req_trailing=6 reused from the leading ratio) and the instruction
// predicate (req_trailing=12) for bucket_count=60.
func buildEnvelope(capacity int) []int16 {
	const buckets = 60
	bucketLen := capacity / buckets
	out := make([]int16, 0, bucketLen*buckets)
	for b := 0; b < buckets; b++ {
		var v int16
		if b >= 10 && b < 25 {
			v = 20000
		}
		for i := 0; i < bucketLen; i++ {
			out = append(out, v)
		}
	}
	return out
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{"Hey, Computer!", "  plain  ", "42nd street?", "ALL CAPS"}
	for _, in := range inputs {
		once := normalize(in)
		require.Equal(t, once, normalize(once))
	}
}

func TestEmptyNormalizedKeywordIsConfigError(t *testing.T) {
	l := New(testConfig(), &fakeSource{}, &scriptedEngine{}, &recordingSounds{})
	err := l.StartListening("!!!", func(string) {})
	require.Error(t, err)
}

func TestReentrantStartListeningIsNoop(t *testing.T) {
	source := &fakeSource{}
	engine := &scriptedEngine{replies: []string{"hey computer"}}
	sounds := &recordingSounds{}
	l := New(testConfig(), source, engine, sounds)

	l.isListening.Store(true)
	err := l.StartListening("computer", func(string) {})
	require.NoError(t, err)
	l.isListening.Store(false)
}

func TestStopListeningEndsLoopCleanly(t *testing.T) {
	source := &fakeSource{}
	engine := &scriptedEngine{}
	sounds := &recordingSounds{}
	l := New(testConfig(), source, engine, sounds)

	done := make(chan error, 1)
	go func() { done <- l.StartListening("computer", func(string) {}) }()

	time.Sleep(20 * time.Millisecond)
	l.StopListening()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("StartListening did not return after StopListening")
	}
	require.Equal(t, Idle, l.State())
}

func TestFullCycleDispatchesOnInstruction(t *testing.T) {
	source := &fakeSource{}
	engine := &scriptedEngine{replies: []string{"hey computer", "turn off the lights"}}
	sounds := &recordingSounds{}
	l := New(testConfig(), source, engine, sounds)

	l.keywordBuffer.Extend(buildEnvelope(l.keywordBuffer.Capacity()))

	var gotInstruction string
	var mu sync.Mutex
	instructionReceived := make(chan struct{})

	go func() {
		_ = l.StartListening("computer", func(text string) {
			mu.Lock()
			gotInstruction = text
			mu.Unlock()
			close(instructionReceived)
			l.StopListening()
		})
	}()

	require.Eventually(t, func() bool {
		return l.State() == RecordingInstruction
	}, time.Second, time.Millisecond)

	l.instructionBuffer.Extend(buildEnvelope(l.instructionBuffer.Capacity()))

	select {
	case <-instructionReceived:
	case <-time.After(5 * time.Second):
		t.Fatal("instruction never dispatched")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, "turn off the lights", gotInstruction)
	require.Contains(t, sounds.events, "ready")
}
