package s3_segment

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/churnlab/internal/contracts"
	"github.com/wonny/churnlab/pkg/logger"
)

func baseOf(n int) *contracts.LabelBase {
	ids := make(map[string]struct{}, n)
	for i := 1; i <= n; i++ {
		ids[fmt.Sprintf("%d", i)] = struct{}{}
	}
	return contracts.NewLabelBase(ids, nil)
}

func TestScorer_Directions(t *testing.T) {
	base := baseOf(8)
	rfm := make(map[string]contracts.RFMFeatures)
	for i := 1; i <= 8; i++ {
		rfm[fmt.Sprintf("%d", i)] = contracts.RFMFeatures{
			Recency:    i * 10, // 1 = 가장 최근
			Frequency:  i,
			TotalSpent: float64(i) * 100,
		}
	}

	seg, err := NewScorer(true, logger.Nop()).Segment(context.Background(), base, rfm)
	require.NoError(t, err)
	assert.Empty(t, seg.Fallbacks)
	assert.True(t, seg.Categorical)

	first := seg.Scores["1"]
	assert.Equal(t, 4, first.RecencyScore)
	assert.Equal(t, 1, first.FrequencyScore)
	assert.Equal(t, 1, first.MonetaryScore)
	assert.Equal(t, 6, first.RFMScore)
	assert.Equal(t, SegmentPotential, first.Segment)

	last := seg.Scores["8"]
	assert.Equal(t, 1, last.RecencyScore)
	assert.Equal(t, 4, last.FrequencyScore)
	assert.Equal(t, 4, last.MonetaryScore)
}

func TestScorer_HeavyTies(t *testing.T) {
	base := baseOf(20)
	rfm := make(map[string]contracts.RFMFeatures)
	for i := 1; i <= 20; i++ {
		freq := 1
		spent := 15.0
		if i > 17 {
			freq = i
			spent = float64(i)
		}
		rfm[fmt.Sprintf("%d", i)] = contracts.RFMFeatures{Recency: i % 7, Frequency: freq, TotalSpent: spent}
	}

	seg, err := NewScorer(false, logger.Nop()).Segment(context.Background(), base, rfm)
	require.NoError(t, err)

	assert.Contains(t, seg.Fallbacks, MetricFrequency)
	assert.Contains(t, seg.Fallbacks, MetricMonetary)

	fScores := map[int]bool{}
	for _, id := range base.CustomerIDs {
		sc := seg.Scores[id]
		for _, v := range []int{sc.RecencyScore, sc.FrequencyScore, sc.MonetaryScore} {
			assert.GreaterOrEqual(t, v, 1)
			assert.LessOrEqual(t, v, 4)
		}
		assert.Equal(t, sc.RecencyScore+sc.FrequencyScore+sc.MonetaryScore, sc.RFMScore)
		assert.GreaterOrEqual(t, sc.RFMScore, 3)
		assert.LessOrEqual(t, sc.RFMScore, 12)
		assert.Empty(t, sc.Segment, "non-categorical variant has no label")
		fScores[sc.FrequencyScore] = true
	}
	assert.Len(t, fScores, 4)
}

func TestScorer_MissingRFM(t *testing.T) {
	_, err := NewScorer(false, logger.Nop()).Segment(context.Background(), baseOf(2), map[string]contracts.RFMFeatures{
		"1": {},
	})
	assert.Error(t, err)
}

func TestScorer_EmptyBase(t *testing.T) {
	_, err := NewScorer(false, logger.Nop()).Segment(context.Background(), baseOf(0), nil)
	assert.Error(t, err)
}

func TestSegmentFor(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{12, SegmentChampions},
		{10, SegmentChampions},
		{9, SegmentLoyal},
		{8, SegmentLoyal},
		{7, SegmentPotential},
		{6, SegmentPotential},
		{5, SegmentAtRisk},
		{4, SegmentAtRisk},
		{3, SegmentLost},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("score_%d", tt.score), func(t *testing.T) {
			assert.Equal(t, tt.want, SegmentFor(tt.score))
		})
	}
}
