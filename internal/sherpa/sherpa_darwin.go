//go:build darwin

// Package sherpa re-exports the platform-specific sherpa-onnx binding
// so the rest of the module compiles against one import path. The
// library's own neural VoiceActivityDetector is deliberately not
// re-exported: buffer relevance is decided by the energy-based
// analysis in internal/vad.
package sherpa

import impl "github.com/k2-fsa/sherpa-onnx-go-macos"

// Offline recognizer (STT)

type OfflineRecognizer = impl.OfflineRecognizer
type OfflineRecognizerConfig = impl.OfflineRecognizerConfig
type OfflineStream = impl.OfflineStream
type OfflineRecognizerResult = impl.OfflineRecognizerResult

var NewOfflineRecognizer = impl.NewOfflineRecognizer
var DeleteOfflineRecognizer = impl.DeleteOfflineRecognizer
var NewOfflineStream = impl.NewOfflineStream
var DeleteOfflineStream = impl.DeleteOfflineStream

// TTS

type OfflineTts = impl.OfflineTts
type OfflineTtsConfig = impl.OfflineTtsConfig
type GeneratedAudio = impl.GeneratedAudio

var NewOfflineTts = impl.NewOfflineTts
var DeleteOfflineTts = impl.DeleteOfflineTts

// HasNvidiaGPU is always false on macOS; acceleration goes through
// CoreML instead.
func HasNvidiaGPU() bool {
	return false
}
