package audio

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

// playbackRingSize bounds the lock-free playback ring at roughly 11s
// at 48kHz, generous for the short feedback clips this sink plays.
const playbackRingSize = 524288

// playbackRing is a lock-free single-producer single-consumer ring
// buffer for queued playback samples.
type playbackRing struct {
	samples [playbackRingSize]float32
	head    atomic.Uint64
	tail    atomic.Uint64
}

func (rb *playbackRing) push(samples []float32) int {
	head := rb.head.Load()
	tail := rb.tail.Load()
	available := playbackRingSize - int(head-tail)
	toWrite := len(samples)
	if toWrite > available {
		toWrite = available
	}
	for i := 0; i < toWrite; i++ {
		rb.samples[(head+uint64(i))%playbackRingSize] = samples[i]
	}
	rb.head.Add(uint64(toWrite))
	return toWrite
}

func (rb *playbackRing) pop() (float32, bool) {
	head := rb.head.Load()
	tail := rb.tail.Load()
	if head == tail {
		return 0, false
	}
	sample := rb.samples[tail%playbackRingSize]
	rb.tail.Add(1)
	return sample, true
}

// clip is a preloaded feedback sound, resampled to the playback
// device's native rate at load time so Play never resamples on the
// hot path.
type clip struct {
	samples []float32
}

// events is the closed set of feedback-sound names.
var events = []string{"startup", "ready", "understood", "ok", "no"}

// FeedbackSink is the default feedback-sound Sounds implementation
// (dispatcher.Sounds, listener.Sounds): a persistent malgo playback
// device with preloaded clips for the closed event set. Play is
// fire-and-forget: it enqueues samples onto a lock-free ring and
// returns immediately; it never blocks the caller on completion, and
// never returns an error the caller must handle.
type FeedbackSink struct {
	ctx              *malgo.AllocatedContext
	device           *malgo.Device
	deviceSampleRate uint32
	ring             *playbackRing
	clips            map[string]clip
	mu               sync.Mutex
}

// NewFeedbackSink opens a playback device (deviceName selects one by
// case-insensitive substring, "" the platform default) and loads a WAV
// clip per event name from soundDir (files named "<event>.wav"). A
// missing clip is logged and simply produces silence for that event,
// since a missing feedback sound is not worth failing startup over.
func NewFeedbackSink(soundDir, deviceName string) (*FeedbackSink, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("audio: init playback context: %w", err)
	}

	s := &FeedbackSink{
		ctx:   ctx,
		ring:  &playbackRing{},
		clips: map[string]clip{},
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = 1
	if deviceConfig.SampleRate == 0 {
		deviceConfig.SampleRate = 48000
	}
	s.deviceSampleRate = deviceConfig.SampleRate

	if deviceName != "" {
		id, err := resolvePlaybackID(ctx, deviceName)
		if err != nil {
			ctx.Uninit()
			ctx.Free()
			return nil, err
		}
		deviceConfig.Playback.DeviceID = id.Pointer()
	}

	onSendFrames := func(pOutputSample, _ []byte, framecount uint32) {
		for i := 0; i < int(framecount); i++ {
			var sample float32
			if v, ok := s.ring.pop(); ok {
				sample = v
			}
			binary.LittleEndian.PutUint32(pOutputSample[i*4:], math.Float32bits(sample))
		}
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onSendFrames})
	if err != nil {
		ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("audio: init playback device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("audio: start playback device: %w", err)
	}
	s.device = device

	for _, name := range events {
		path := filepath.Join(soundDir, name+".wav")
		samples, sourceRate, err := readWAV(path)
		if err != nil {
			log.Printf("audio: feedback sound %q unavailable: %v", name, err)
			continue
		}
		if sourceRate != int(s.deviceSampleRate) {
			samples = Resample(samples, sourceRate, int(s.deviceSampleRate))
		}
		s.clips[name] = clip{samples: samples}
	}

	return s, nil
}

// resolvePlaybackID finds the playback device whose name contains
// deviceName, mirroring the capture-side lookup.
func resolvePlaybackID(ctx *malgo.AllocatedContext, deviceName string) (*malgo.DeviceID, error) {
	infos, err := ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("audio: enumerate playback devices: %w", err)
	}
	want := strings.ToLower(deviceName)
	for _, info := range infos {
		if strings.Contains(strings.ToLower(info.Name()), want) {
			id := info.ID
			return &id, nil
		}
	}
	return nil, fmt.Errorf("audio: no playback device matching %q", deviceName)
}

// Play implements dispatcher.Sounds / listener.Sounds: queues the
// clip for event, or does nothing if that event has no clip loaded.
func (s *FeedbackSink) Play(event string) {
	c, ok := s.clips[event]
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if written := s.ring.push(c.samples); written < len(c.samples) {
		log.Printf("audio: feedback sink overflow, dropped %d samples for %q", len(c.samples)-written, event)
	}
}

// Speak implements handler.SpeechSink: resamples an arbitrary PCM
// buffer (typically a TTS synthesizer's output) to the device rate and
// queues it on the same playback ring as the fixed feedback clips.
func (s *FeedbackSink) Speak(samples []float32, sampleRate int) error {
	if sampleRate != int(s.deviceSampleRate) {
		samples = Resample(samples, sampleRate, int(s.deviceSampleRate))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if written := s.ring.push(samples); written < len(samples) {
		log.Printf("audio: feedback sink overflow, dropped %d samples of spoken reply", len(samples)-written)
	}
	return nil
}

// Close releases the playback device and context.
func (s *FeedbackSink) Close() {
	if s.device != nil {
		s.device.Stop()
		s.device.Uninit()
		s.device = nil
	}
	if s.ctx != nil {
		_ = s.ctx.Uninit()
		s.ctx.Free()
		s.ctx = nil
	}
}

// readWAV parses a canonical PCM WAV file into mono float32 samples.
// Only 16-bit and 32-bit float PCM are supported, which is all this
// project ever writes for its own feedback clips.
func readWAV(path string) (samples []float32, sampleRate int, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}
	if len(data) < 44 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("not a RIFF/WAVE file")
	}

	var (
		format     uint16
		channels   uint16
		bitsPerSmp uint16
		dataOffset int
		dataLen    int
	)
	sampleRate = -1

	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if body+chunkSize > len(data) {
			break
		}
		switch chunkID {
		case "fmt ":
			format = binary.LittleEndian.Uint16(data[body:])
			channels = binary.LittleEndian.Uint16(data[body+2:])
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4:]))
			bitsPerSmp = binary.LittleEndian.Uint16(data[body+14:])
		case "data":
			dataOffset = body
			dataLen = chunkSize
		}
		offset = body + chunkSize
		if chunkSize%2 == 1 {
			offset++
		}
	}
	if sampleRate < 0 || dataOffset == 0 {
		return nil, 0, fmt.Errorf("missing fmt or data chunk")
	}
	if channels == 0 {
		channels = 1
	}

	raw := data[dataOffset : dataOffset+dataLen]
	switch {
	case format == 1 && bitsPerSmp == 16:
		n := len(raw) / 2
		samples = make([]float32, 0, n/int(channels))
		for i := 0; i+1 < len(raw); i += 2 * int(channels) {
			v := int16(binary.LittleEndian.Uint16(raw[i:]))
			samples = append(samples, float32(v)/32768)
		}
	case format == 3 && bitsPerSmp == 32:
		samples = make([]float32, 0, len(raw)/4/int(channels))
		for i := 0; i+3 < len(raw); i += 4 * int(channels) {
			bits := binary.LittleEndian.Uint32(raw[i:])
			samples = append(samples, math.Float32frombits(bits))
		}
	default:
		return nil, 0, fmt.Errorf("unsupported WAV format %d/%d-bit", format, bitsPerSmp)
	}
	return samples, sampleRate, nil
}
