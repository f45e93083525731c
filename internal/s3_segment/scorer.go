package s3_segment

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/churnlab/internal/contracts"
	"github.com/wonny/churnlab/pkg/logger"
)

// Segment labels by RFM_Score band (lower bound inclusive)
const (
	SegmentChampions = "Champions"
	SegmentLoyal     = "Loyal"
	SegmentPotential = "Potential"
	SegmentAtRisk    = "At Risk"
	SegmentLost      = "Lost"
)

// Metric names reported when the rank fallback is used
const (
	MetricRecency   = "Recency"
	MetricFrequency = "Frequency"
	MetricMonetary  = "TotalSpent"
)

// SegmentFor maps an RFM score (3..12) to its label
func SegmentFor(score int) string {
	switch {
	case score >= 10:
		return SegmentChampions
	case score >= 8:
		return SegmentLoyal
	case score >= 6:
		return SegmentPotential
	case score >= 4:
		return SegmentAtRisk
	default:
		return SegmentLost
	}
}

// Scorer converts RFM values into quartile scores
// ⭐ SSOT: R/F/M 점수 규칙은 여기서만
type Scorer struct {
	categorical bool
	logger      *logger.Logger
}

// NewScorer creates a scorer; categorical adds the CustomerSegment label
func NewScorer(categorical bool, log *logger.Logger) *Scorer {
	return &Scorer{
		categorical: categorical,
		logger:      log.WithStage("s3_segment"),
	}
}

// Segment implements contracts.Segmenter
func (s *Scorer) Segment(ctx context.Context, base *contracts.LabelBase, rfm map[string]contracts.RFMFeatures) (*contracts.Segmentation, error) {
	if base == nil || base.Count() == 0 {
		return nil, errors.New("segment: empty base population")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n := base.Count()
	recency := make([]float64, n)
	frequency := make([]float64, n)
	monetary := make([]float64, n)
	for i, id := range base.CustomerIDs {
		r, ok := rfm[id]
		if !ok {
			return nil, fmt.Errorf("segment: no RFM row for customer %s", id)
		}
		recency[i] = float64(r.Recency)
		frequency[i] = float64(r.Frequency)
		monetary[i] = r.TotalSpent
	}

	out := &contracts.Segmentation{
		Scores:      make(map[string]contracts.SegmentScores, n),
		Categorical: s.categorical,
	}

	rBins := s.bins(MetricRecency, recency, out)
	fBins := s.bins(MetricFrequency, frequency, out)
	mBins := s.bins(MetricMonetary, monetary, out)

	counts := make(map[string]int)
	for i, id := range base.CustomerIDs {
		sc := contracts.SegmentScores{
			RecencyScore:   Quartiles + 1 - rBins[i], // 최근일수록 4점
			FrequencyScore: fBins[i],
			MonetaryScore:  mBins[i],
		}
		sc.RFMScore = sc.RecencyScore + sc.FrequencyScore + sc.MonetaryScore
		if s.categorical {
			sc.Segment = SegmentFor(sc.RFMScore)
			counts[sc.Segment]++
		}
		out.Scores[id] = sc
	}

	fields := map[string]interface{}{
		"customers": n,
		"fallbacks": out.Fallbacks,
	}
	if s.categorical {
		fields["segments"] = counts
	}
	s.logger.WithFields(fields).Info("RFM segmentation completed")

	return out, nil
}

func (s *Scorer) bins(metric string, values []float64, out *contracts.Segmentation) []int {
	bins, fallback := QuartileBins(values)
	if fallback {
		out.Fallbacks = append(out.Fallbacks, metric)
		s.logger.WithField("metric", metric).Warn("Duplicate quartile edges, using rank-based cut")
	}
	return bins
}
