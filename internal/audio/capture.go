// Package audio provides the microphone Source and feedback-sound
// Sounds sink using malgo.
package audio

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/agalue/lurker/internal/ringbuffer"
)

// Ring buffer configuration constants for the callback-thread staging
// buffer, distinct from the listener's sample-level ringbuffer.Ring.
const (
	// ringBufferSize is the number of sample chunks the staging ring
	// can hold. At 16kHz with 32ms chunks this provides several
	// seconds of buffer before the capture callback starts dropping.
	ringBufferSize = 128

	// maxSamplesPerChunk bounds allocation in the audio callback path.
	maxSamplesPerChunk = 2048
)

type audioChunk struct {
	samples []float32
	len     int
}

// callbackRing is a lock-free single-producer single-consumer ring
// buffer between the audio callback thread and the stage-feeding
// goroutine. It is distinct from ringbuffer.Ring, which is the
// listener-facing sample buffer with overwrite-on-full semantics;
// this one drops on overflow instead, since losing a stale chunk here
// is preferable to blocking the audio callback.
type callbackRing struct {
	chunks    [ringBufferSize]audioChunk
	head      atomic.Uint64
	tail      atomic.Uint64
	dropCount atomic.Uint64
}

func newCallbackRing() *callbackRing {
	rb := &callbackRing{}
	for i := range rb.chunks {
		rb.chunks[i].samples = make([]float32, maxSamplesPerChunk)
	}
	return rb
}

func (rb *callbackRing) push(samples []float32) bool {
	head := rb.head.Load()
	tail := rb.tail.Load()
	if head-tail >= ringBufferSize {
		count := rb.dropCount.Add(1)
		if count%100 == 0 {
			log.Printf("audio: callback ring full, dropped %d chunks", count)
		}
		return false
	}
	slot := &rb.chunks[head%ringBufferSize]
	n := copy(slot.samples, samples)
	slot.len = n
	rb.head.Add(1)
	return true
}

func (rb *callbackRing) pop() []float32 {
	head := rb.head.Load()
	tail := rb.tail.Load()
	if head == tail {
		return nil
	}
	slot := &rb.chunks[tail%ringBufferSize]
	samples := slot.samples[:slot.len]
	rb.tail.Add(1)
	return samples
}

// Capturer is the default Audio Source (listener.Source), backed by
// malgo. Open binds the device's callback thread to a
// ringbuffer.Ring for the duration of one listener stage; Close tears
// the device down. One Capturer instance is reused across stages: the
// listener never holds two stages open concurrently.
type Capturer struct {
	ctx *malgo.AllocatedContext

	mu          sync.Mutex
	device      *malgo.Device
	ring        *callbackRing
	downsampler *Downsampler
	running     atomic.Bool
	stopChan    chan struct{}
	wg          sync.WaitGroup
}

// NewCapturer creates a Capturer bound to a malgo audio context. One
// instance is constructed at startup and reused across every listener
// stage.
func NewCapturer() (*Capturer, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("audio: init context: %w", err)
	}
	return &Capturer{ctx: ctx}, nil
}

// resolveDeviceID finds the capture device whose name contains
// deviceName (case-insensitive substring match);
// an empty deviceName selects the platform default.
func (c *Capturer) resolveDeviceID(deviceName string) (*malgo.DeviceID, error) {
	if deviceName == "" {
		return nil, nil
	}
	infos, err := c.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("audio: enumerate capture devices: %w", err)
	}
	want := strings.ToLower(deviceName)
	for _, info := range infos {
		if strings.Contains(strings.ToLower(info.Name()), want) {
			id := info.ID
			return &id, nil
		}
	}
	return nil, fmt.Errorf("audio: no capture device matching %q", deviceName)
}

// Open implements listener.Source: starts capture and feeds converted
// int16 samples into stageBuffer until Close is called.
func (c *Capturer) Open(stageBuffer *ringbuffer.Ring, deviceName string, sampleRate, bitDepth int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	deviceID, err := c.resolveDeviceID(deviceName)
	if err != nil {
		return err
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(sampleRate)
	deviceConfig.PeriodSizeInMilliseconds = 32
	if deviceID != nil {
		deviceConfig.Capture.DeviceID = deviceID.Pointer()
	}

	probe, err := malgo.InitDevice(c.ctx.Context, deviceConfig, malgo.DeviceCallbacks{})
	if err != nil {
		return fmt.Errorf("audio: open capture device: %w", err)
	}
	deviceSampleRate := probe.SampleRate()
	probe.Uninit()

	var downsampler *Downsampler
	if deviceSampleRate > uint32(sampleRate) {
		downsampler = NewDownsampler(int(deviceSampleRate), sampleRate)
	}

	ring := newCallbackRing()
	onRecvFrames := func(_, pInputSamples []byte, _ uint32) {
		if !c.running.Load() {
			return
		}
		samples := bytesToFloat32(pInputSamples)
		if len(samples) > 0 {
			ring.push(samples)
		}
		returnFloat32Buffer(samples)
	}

	device, err := malgo.InitDevice(c.ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onRecvFrames})
	if err != nil {
		return fmt.Errorf("audio: init capture device: %w", err)
	}

	c.device = device
	c.ring = ring
	c.downsampler = downsampler
	c.stopChan = make(chan struct{})
	c.running.Store(true)

	c.wg.Add(1)
	go c.feedStage(stageBuffer, int(deviceSampleRate), sampleRate)

	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("audio: start capture device: %w", err)
	}
	return nil
}

// feedStage drains the callback ring, resamples if needed, converts
// to int16 and pushes into the stage buffer. Runs on its own goroutine
// so the audio callback itself never blocks.
func (c *Capturer) feedStage(stageBuffer *ringbuffer.Ring, deviceSampleRate, targetSampleRate int) {
	defer c.wg.Done()
	for {
		select {
		case <-c.stopChan:
			return
		default:
			samples := c.ring.pop()
			if samples == nil {
				select {
				case <-c.stopChan:
					return
				case <-time.After(100 * time.Microsecond):
				}
				continue
			}

			buf := make([]float32, len(samples))
			copy(buf, samples)
			if c.downsampler != nil {
				buf = c.downsampler.Process(buf)
			} else if deviceSampleRate != targetSampleRate {
				buf = Resample(buf, deviceSampleRate, targetSampleRate)
			}

			stageBuffer.Extend(float32ToInt16(buf))
		}
	}
}

// Close implements listener.Source: stops the device and waits for the
// feeder goroutine to exit.
func (c *Capturer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device == nil {
		return nil
	}
	c.running.Store(false)
	close(c.stopChan)
	c.wg.Wait()

	c.device.Stop()
	c.device.Uninit()
	c.device = nil
	c.ring = nil
	c.downsampler = nil
	return nil
}

// Shutdown releases the malgo context. Call once, after the listener
// has fully stopped.
func (c *Capturer) Shutdown() {
	if c.ctx != nil {
		_ = c.ctx.Uninit()
		c.ctx.Free()
		c.ctx = nil
	}
}

// float32ToInt16 converts linear PCM float32 samples in [-1, 1] to
// the signed 16-bit PCM the ring buffers and the VAD operate on.
func float32ToInt16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		out[i] = int16(s * 32767)
	}
	return out
}

// float32Pool reduces allocations in the audio callback hot path.
var float32Pool = sync.Pool{
	New: func() interface{} {
		buf := make([]float32, 2048)
		return &buf
	},
}

// bytesToFloat32 converts raw bytes to float32 samples. The returned
// slice is only valid until returnFloat32Buffer is called.
func bytesToFloat32(data []byte) []float32 {
	numSamples := len(data) / 4
	pBuf := float32Pool.Get().(*[]float32)
	if cap(*pBuf) < numSamples {
		*pBuf = make([]float32, numSamples)
	}
	samples := (*pBuf)[:numSamples]
	for i := range samples {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		samples[i] = math.Float32frombits(bits)
	}
	return samples
}

func returnFloat32Buffer(samples []float32) {
	if samples == nil {
		return
	}
	buf := samples[:cap(samples)]
	float32Pool.Put(&buf)
}
