// Package config loads and validates the listener's configuration:
// CLI flags override environment variables, which override the
// config file, which overrides the built-in defaults.
package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/agalue/lurker/internal/sherpa"
	"github.com/agalue/lurker/internal/tts"
)

// Config holds every option named in the listener's option table plus
// the ambient fields (model paths, LLM/TTS settings) the "ask"
// built-in handler and the TTS reply path need.
type Config struct {
	// Listener state machine
	Keyword                       string  `mapstructure:"keyword"`
	KeywordQueueLengthSeconds     float64 `mapstructure:"keyword_queue_length_seconds"`
	InstructionQueueLengthSeconds float64 `mapstructure:"instruction_queue_length_seconds"`
	QueueCheckIntervalSeconds     float64 `mapstructure:"queue_check_interval_seconds"`

	// VAD
	MinSilenceThreshold          int     `mapstructure:"min_silence_threshold"`
	SpeechBucketCount            int     `mapstructure:"speech_bucket_count"`
	RequiredLeadingSilenceRatio  float64 `mapstructure:"required_leading_silence_ratio"`
	RequiredSpeechRatio          float64 `mapstructure:"required_speech_ratio"`
	RequiredTrailingSilenceRatio float64 `mapstructure:"required_trailing_silence_ratio"`
	AmbianceLevelFactor          float64 `mapstructure:"ambiance_level_factor"`

	// Devices
	InputDevice  string `mapstructure:"input_device"`
	OutputDevice string `mapstructure:"output_device"`
	SampleRate   int    `mapstructure:"sample_rate"`
	BitDepth     int    `mapstructure:"bit_depth"`

	// Transcription
	Language string `mapstructure:"language"`
	Model    string `mapstructure:"model"` // directory containing the Whisper model files

	// Action registry
	ActionDir             string        `mapstructure:"action_dir"`
	ActionRefreshInterval time.Duration `mapstructure:"action_refresh_interval"`

	// Handler
	HandlerModule string         `mapstructure:"handler_module"`
	HandlerConfig map[string]any `mapstructure:"handler_config"`

	// Feedback sounds
	SoundDir string `mapstructure:"sound_dir"`

	// Hardware acceleration (cpu, cuda, coreml); auto-detected if empty
	Provider string `mapstructure:"provider"`

	// TTS, used only by the "ask" built-in handler's spoken replies
	TTSVoice string  `mapstructure:"tts_voice"`
	TTSSpeed float32 `mapstructure:"tts_speed"`

	NumThreads int  `mapstructure:"num_threads"`
	Verbose    bool `mapstructure:"verbose"`

	// Derived, not user-facing
	WhisperEncoder string `mapstructure:"-"`
	WhisperDecoder string `mapstructure:"-"`
	WhisperTokens  string `mapstructure:"-"`
	TTSModel       string `mapstructure:"-"`
	TTSVoices      string `mapstructure:"-"`
	TTSTokens      string `mapstructure:"-"`
	TTSData        string `mapstructure:"-"`
	TTSLexicon     string `mapstructure:"-"`
	TTSLanguage    string `mapstructure:"-"`
	TTSSpeakerID   int    `mapstructure:"-"`
}

// setDefaults installs the defaults consulted before the file and
// environment layers.
func setDefaults(v *viper.Viper, modelDir string) {
	v.SetDefault("keyword", "computer")
	v.SetDefault("keyword_queue_length_seconds", 1.2)
	v.SetDefault("instruction_queue_length_seconds", 3.0)
	v.SetDefault("queue_check_interval_seconds", 0.1)

	v.SetDefault("min_silence_threshold", 600)
	v.SetDefault("speech_bucket_count", 60)
	v.SetDefault("required_leading_silence_ratio", 0.1)
	v.SetDefault("required_speech_ratio", 0.15)
	v.SetDefault("required_trailing_silence_ratio", 0.2)
	v.SetDefault("ambiance_level_factor", 1.5)

	v.SetDefault("input_device", "")
	v.SetDefault("output_device", "")
	v.SetDefault("sample_rate", 16000)
	v.SetDefault("bit_depth", 16)

	v.SetDefault("language", "en")
	v.SetDefault("model", filepath.Join(modelDir, "whisper"))

	v.SetDefault("action_dir", filepath.Join(modelDir, "..", "actions"))
	v.SetDefault("action_refresh_interval", 30*time.Second)

	v.SetDefault("handler_module", "noop")
	v.SetDefault("handler_config", map[string]any{})

	v.SetDefault("sound_dir", filepath.Join(modelDir, "..", "sounds"))

	v.SetDefault("provider", "")
	v.SetDefault("tts_voice", "af_bella")
	v.SetDefault("tts_speed", 0.93)
	v.SetDefault("num_threads", 0)
	v.SetDefault("verbose", false)
}

// Load builds a Config by layering, from lowest to highest priority:
// defaults, the config file (lurker.yaml, searched in ".", "./config",
// "/etc/lurker" unless LURKER_CONFIG names one explicitly), the
// LURKER_-prefixed environment, and finally CLI flags. A missing
// config file is not an error; missing required model files is,
// caught when the recognizer loads.
func Load(args []string) (*Config, error) {
	homeDir, _ := os.UserHomeDir()
	defaultModelDir := filepath.Join(homeDir, ".lurker", "models")

	v := viper.New()
	setDefaults(v, defaultModelDir)

	v.SetEnvPrefix("LURKER")
	v.AutomaticEnv()

	if cfgPath := os.Getenv("LURKER_CONFIG"); cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.SetConfigName("lurker")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/lurker")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	fs := flag.NewFlagSet("lurker", flag.ContinueOnError)
	keyword := fs.String("keyword", v.GetString("keyword"), "Wake keyword")
	modelDir := fs.String("model-dir", defaultModelDir, "Directory containing the TTS model files (the Whisper model path is the model option)")
	actionDir := fs.String("action-dir", v.GetString("action_dir"), "Directory of action JSON files")
	handlerModule := fs.String("handler-module", v.GetString("handler_module"), "Built-in handler to dispatch to (noop, exec, ask)")
	provider := fs.String("provider", v.GetString("provider"), "Hardware acceleration provider (cpu, cuda, coreml)")
	verbose := fs.Bool("verbose", v.GetBool("verbose"), "Enable verbose logging")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg := &Config{
		Keyword:                       *keyword,
		KeywordQueueLengthSeconds:     v.GetFloat64("keyword_queue_length_seconds"),
		InstructionQueueLengthSeconds: v.GetFloat64("instruction_queue_length_seconds"),
		QueueCheckIntervalSeconds:     v.GetFloat64("queue_check_interval_seconds"),

		MinSilenceThreshold:          v.GetInt("min_silence_threshold"),
		SpeechBucketCount:            v.GetInt("speech_bucket_count"),
		RequiredLeadingSilenceRatio:  v.GetFloat64("required_leading_silence_ratio"),
		RequiredSpeechRatio:          v.GetFloat64("required_speech_ratio"),
		RequiredTrailingSilenceRatio: v.GetFloat64("required_trailing_silence_ratio"),
		AmbianceLevelFactor:          v.GetFloat64("ambiance_level_factor"),

		InputDevice:  v.GetString("input_device"),
		OutputDevice: v.GetString("output_device"),
		SampleRate:   v.GetInt("sample_rate"),
		BitDepth:     v.GetInt("bit_depth"),

		Language: v.GetString("language"),
		Model:    v.GetString("model"),

		ActionDir:             *actionDir,
		ActionRefreshInterval: v.GetDuration("action_refresh_interval"),

		HandlerModule: *handlerModule,
		HandlerConfig: v.GetStringMap("handler_config"),

		SoundDir: v.GetString("sound_dir"),
		Provider: *provider,

		TTSVoice: v.GetString("tts_voice"),
		TTSSpeed: float32(v.GetFloat64("tts_speed")),

		NumThreads: v.GetInt("num_threads"),
		Verbose:    *verbose,
	}

	if cfg.Provider == "" {
		cfg.Provider = detectProvider()
	}
	if cfg.NumThreads == 0 {
		cfg.NumThreads = max(1, runtime.NumCPU()/3)
	}

	cfg.WhisperEncoder = filepath.Join(cfg.Model, "whisper-small-encoder.int8.onnx")
	cfg.WhisperDecoder = filepath.Join(cfg.Model, "whisper-small-decoder.int8.onnx")
	cfg.WhisperTokens = filepath.Join(cfg.Model, "whisper-small-tokens.txt")

	ttsDir := filepath.Join(*modelDir, "tts", "kokoro-multi-lang-v1_0")
	cfg.TTSModel = filepath.Join(ttsDir, "model.onnx")
	cfg.TTSVoices = filepath.Join(ttsDir, "voices.bin")
	cfg.TTSTokens = filepath.Join(ttsDir, "tokens.txt")
	cfg.TTSData = filepath.Join(ttsDir, "espeak-ng-data")

	voice, ok := tts.LookupVoice(cfg.TTSVoice)
	if !ok {
		return nil, fmt.Errorf("config: unknown tts_voice %q", cfg.TTSVoice)
	}
	cfg.TTSSpeakerID = voice.SpeakerID
	cfg.TTSLexicon = resolveLexicon(ttsDir, voice.Lexicon())
	cfg.TTSLanguage = voice.Lang()

	return cfg, nil
}

// resolveLexicon joins each comma-separated lexicon file name with the
// model directory, preserving the comma-separated shape sherpa-onnx
// expects for multi-lexicon voices.
func resolveLexicon(ttsDir, lexicon string) string {
	if lexicon == "" {
		return ""
	}
	names := strings.Split(lexicon, ",")
	for i, n := range names {
		names[i] = filepath.Join(ttsDir, n)
	}
	return strings.Join(names, ",")
}

// detectProvider auto-detects the best hardware acceleration provider
// for the current platform.
func detectProvider() string {
	switch runtime.GOOS {
	case "darwin":
		return "coreml"
	case "linux":
		if sherpa.HasNvidiaGPU() {
			return "cuda"
		}
		return "cpu"
	default:
		return "cpu"
	}
}
