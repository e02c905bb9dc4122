package tts

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("It is sunny. Pack an umbrella anyway!\nWhy?")
	require.Equal(t, []string{"It is sunny.", "Pack an umbrella anyway!", "Why?"}, got)
}

func TestSplitSentencesKeepsTrailingFragment(t *testing.T) {
	got := SplitSentences("no terminator here")
	require.Equal(t, []string{"no terminator here"}, got)
}

func TestLookupVoice(t *testing.T) {
	v, ok := LookupVoice("af_bella")
	require.True(t, ok)
	require.Equal(t, 2, v.SpeakerID)
	require.Equal(t, "lexicon-us-en.txt", v.Lexicon())
	require.Empty(t, v.Lang())

	v, ok = LookupVoice("ff_siwis")
	require.True(t, ok)
	require.Empty(t, v.Lexicon())
	require.Equal(t, "fr-fr", v.Lang())

	_, ok = LookupVoice("nobody")
	require.False(t, ok)
}
