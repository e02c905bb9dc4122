package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func loadInDir(t *testing.T, dir string, args ...string) (*Config, error) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return Load(args)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := loadInDir(t, t.TempDir())
	require.NoError(t, err)

	require.Equal(t, "computer", cfg.Keyword)
	require.Equal(t, 1.2, cfg.KeywordQueueLengthSeconds)
	require.Equal(t, 3.0, cfg.InstructionQueueLengthSeconds)
	require.Equal(t, 600, cfg.MinSilenceThreshold)
	require.Equal(t, 60, cfg.SpeechBucketCount)
	require.Equal(t, 1.5, cfg.AmbianceLevelFactor)
	require.Equal(t, 16000, cfg.SampleRate)
	require.Equal(t, 16, cfg.BitDepth)
	require.Equal(t, "noop", cfg.HandlerModule)
	require.Equal(t, 2, cfg.TTSSpeakerID) // af_bella
}

func TestFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lurker.yaml"),
		[]byte("keyword: jarvis\nmin_silence_threshold: 900\n"), 0o644))

	cfg, err := loadInDir(t, dir)
	require.NoError(t, err)
	require.Equal(t, "jarvis", cfg.Keyword)
	require.Equal(t, 900, cfg.MinSilenceThreshold)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lurker.yaml"),
		[]byte("min_silence_threshold: 900\n"), 0o644))
	t.Setenv("LURKER_MIN_SILENCE_THRESHOLD", "1200")

	cfg, err := loadInDir(t, dir)
	require.NoError(t, err)
	require.Equal(t, 1200, cfg.MinSilenceThreshold)
}

func TestFlagOverridesEnv(t *testing.T) {
	t.Setenv("LURKER_KEYWORD", "jarvis")

	cfg, err := loadInDir(t, t.TempDir(), "-keyword", "computer")
	require.NoError(t, err)
	require.Equal(t, "computer", cfg.Keyword)
}

func TestUnknownVoiceIsError(t *testing.T) {
	t.Setenv("LURKER_TTS_VOICE", "not_a_voice")

	_, err := loadInDir(t, t.TempDir())
	require.Error(t, err)
}
