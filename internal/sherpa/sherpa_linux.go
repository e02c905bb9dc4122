//go:build linux

// Package sherpa re-exports the platform-specific sherpa-onnx binding
// so the rest of the module compiles against one import path. The
// library's own neural VoiceActivityDetector is deliberately not
// re-exported: buffer relevance is decided by the energy-based
// analysis in internal/vad.
package sherpa

import (
	"os"
	"strings"

	impl "github.com/k2-fsa/sherpa-onnx-go-linux"
)

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

// HasNvidiaGPU reports whether an NVIDIA GPU is likely present,
// covering both discrete cards and Jetson SOC devices (Nano, Xavier,
// Orin), which expose the GPU through tegra device nodes rather than
// /dev/nvidia*.
func HasNvidiaGPU() bool {
	probes := []string{
		"/usr/bin/nvidia-smi",
		"/usr/local/bin/nvidia-smi",
		"/opt/nvidia/bin/nvidia-smi",
		"/dev/nvidia0",
		"/dev/nvhost-gpu",
		"/dev/nvhost-ctrl-gpu",
		"/dev/nvmap",
		"/etc/nv_tegra_release",
		"/sys/devices/gpu.0",
		"/sys/devices/17000000.ga10b", // Jetson Orin
		"/sys/devices/17000000.gv11b", // Jetson Xavier/Nano
	}
	for _, path := range probes {
		if _, err := os.Stat(path); err == nil {
			return true
		}
	}

	if data, err := os.ReadFile("/proc/device-tree/compatible"); err == nil {
		s := string(data)
		if strings.Contains(s, "nvidia,tegra") || strings.Contains(s, "nvidia,jetson") {
			return true
		}
	}
	return false
}
