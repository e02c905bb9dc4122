package vad

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func scenarioParams() Params {
	return Params{
		BucketCount:                  60,
		MinSilenceThreshold:          600,
		AmbianceLevelFactor:          1.5,
		RequiredLeadingSilenceRatio:  0.1,
		RequiredSpeechRatio:          0.15,
		RequiredTrailingSilenceRatio: 0.2,
	}
}

func constantBuffer(n int, amplitude int16) []int16 {
	buf := make([]int16, n)
	for i := range buf {
		buf[i] = amplitude
	}
	return buf
}

func TestAllSilenceKeywordBuffer(t *testing.T) {
	th := NewThreshold(scenarioParams())
	snapshot := constantBuffer(38400, 0)

	relevant, mean := IsKeywordBufferRelevant(snapshot, 38400, th)
	require.False(t, relevant)
	require.Equal(t, 0, mean)

	th.Add(mean)
	require.Equal(t, 600, th.Current())
}

func TestShortBufferBelowThirdOfCapacity(t *testing.T) {
	th := NewThreshold(scenarioParams())
	snapshot := constantBuffer(10000, 5000)

	relevant, _ := IsKeywordBufferRelevant(snapshot, 38400, th)
	require.False(t, relevant, "10000 < 38400/3 must short-circuit regardless of content")
}

func TestLeadingSpeechRejection(t *testing.T) {
	th := NewThreshold(scenarioParams())
	bucketLen := 38400 / 60
	snapshot := constantBuffer(bucketLen*60, 3000)

	relevant, mean := IsKeywordBufferRelevant(snapshot, 38400, th)
	require.False(t, relevant)
	require.Equal(t, 3000, mean)
}

func TestPositiveKeywordDetection(t *testing.T) {
	th := NewThreshold(scenarioParams())
	bucketLen := 38400 / 60
	snapshot := make([]int16, 0, bucketLen*60)
	appendBuckets := func(count int, amp int16) {
		for i := 0; i < count; i++ {
			snapshot = append(snapshot, constantBuffer(bucketLen, amp)...)
		}
	}
	appendBuckets(10, 100)  // buckets 0-9
	appendBuckets(20, 3000) // buckets 10-29
	appendBuckets(30, 100)  // buckets 30-59

	relevant, _ := IsKeywordBufferRelevant(snapshot, 38400, th)
	require.True(t, relevant)
}

func TestInstructionCompletion(t *testing.T) {
	params := scenarioParams()
	th := NewThreshold(params)
	capacity := 96000 // 3.0s * 16000 * 2
	bucketLen := capacity / 60
	snapshot := make([]int16, 0, bucketLen*60)
	for i := 0; i < 20; i++ {
		snapshot = append(snapshot, constantBuffer(bucketLen, 2000)...)
	}
	for i := 0; i < 20; i++ {
		snapshot = append(snapshot, constantBuffer(bucketLen, 100)...)
	}
	for len(snapshot) < capacity {
		snapshot = append(snapshot, 100)
	}

	done := IsInstructionBufferDone(snapshot, capacity, th)
	require.True(t, done)
}

func TestAdaptiveThresholdEmptyHistoryYieldsFloor(t *testing.T) {
	th := NewThreshold(scenarioParams())
	require.Equal(t, 600, th.Current())
}

func TestThresholdHistoryCappedAt100(t *testing.T) {
	th := NewThreshold(scenarioParams())
	for i := 0; i < 150; i++ {
		th.Add(1000)
	}
	require.Len(t, th.history, 100)
}

func TestValidateRejectsOutOfRangeRatios(t *testing.T) {
	p := scenarioParams()
	p.RequiredSpeechRatio = 1.5
	require.Panics(t, func() { p.Validate() })
}

func TestValidateRejectsRatiosSummingAboveOne(t *testing.T) {
	p := scenarioParams()
	p.RequiredLeadingSilenceRatio = 0.5
	p.RequiredSpeechRatio = 0.5
	p.RequiredTrailingSilenceRatio = 0.5
	require.Panics(t, func() { p.Validate() })
}

func TestValidateAcceptsScenarioParams(t *testing.T) {
	require.NotPanics(t, func() { scenarioParams().Validate() })
}
