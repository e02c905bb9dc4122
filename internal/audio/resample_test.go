package audio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResampleSameRateIsIdentity(t *testing.T) {
	in := []float32{0.1, 0.2, 0.3}
	require.Equal(t, in, Resample(in, 16000, 16000))
}

func TestResampleOutputLengthFollowsRatio(t *testing.T) {
	in := make([]float32, 480)
	out := Resample(in, 48000, 16000)
	require.Len(t, out, 160)

	out = Resample(in, 16000, 48000)
	require.Len(t, out, 1440)
}

func TestDownsamplerPreservesDCLevel(t *testing.T) {
	d := NewDownsampler(48000, 16000)

	in := make([]float32, 4800)
	for i := range in {
		in[i] = 0.5
	}

	// Run two chunks so the second one has a fully primed filter tail.
	d.Process(in)
	out := d.Process(in)
	require.Len(t, out, 1600)

	// A unity-gain low-pass must pass a constant signal through almost
	// unchanged once the window no longer straddles the stream start.
	for _, v := range out[firTaps:] {
		require.InDelta(t, 0.5, v, 0.01)
	}
}

func TestDownsamplerHandlesChunksShorterThanFilter(t *testing.T) {
	d := NewDownsampler(48000, 16000)
	for i := 0; i < 10; i++ {
		out := d.Process(make([]float32, 30))
		require.Len(t, out, 10)
	}
}
