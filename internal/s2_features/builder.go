package s2_features

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/churnlab/internal/contracts"
	"github.com/wonny/churnlab/pkg/logger"
)

// Config holds aggregator toggles
type Config struct {
	Lookbacks []int // Purchases_Last{N}D
	Product   bool  // product affinity on/off
}

// Builder runs every per-customer aggregator over the training window
// ⭐ SSOT: 피처 집계 오케스트레이션은 여기서만
type Builder struct {
	rfm        *RFMAggregator
	behavioral *BehavioralAggregator
	temporal   *TemporalAggregator
	product    *ProductAggregator // nil = 비활성

	logger *logger.Logger
}

// NewBuilder creates a builder from config
func NewBuilder(cfg Config, log *logger.Logger) *Builder {
	b := &Builder{
		rfm:        &RFMAggregator{},
		behavioral: &BehavioralAggregator{},
		temporal:   NewTemporalAggregator(cfg.Lookbacks),
		logger:     log.WithStage("s2_features"),
	}
	if cfg.Product {
		b.product = &ProductAggregator{}
	}
	return b
}

// Build implements contracts.FeatureBuilder.
// 네 집계기는 같은 불변 학습 데이터를 읽는 독립 reducer라서 동시에 실행
func (b *Builder) Build(ctx context.Context, split *contracts.Split, base *contracts.LabelBase) (*contracts.FeatureSet, error) {
	if split == nil || split.Training.Len() == 0 {
		return nil, errors.New("build features: training window is empty")
	}

	start := time.Now()
	cutoff := split.Window.Cutoff
	groups := split.Training.GroupByCustomer()

	b.logger.WithFields(map[string]interface{}{
		"customers": len(groups),
		"rows":      split.Training.Len(),
		"product":   b.product != nil,
	}).Info("Starting feature aggregation")

	set := &contracts.FeatureSet{
		Lookbacks: b.temporal.Lookbacks(),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		set.RFM = b.rfm.Compute(groups, cutoff)
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		set.Behavioral = b.behavioral.Compute(groups)
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		set.Temporal = b.temporal.Compute(groups, cutoff)
		return nil
	})
	if b.product != nil {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			set.Product = b.product.Compute(groups)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build features: %w", err)
	}

	if base != nil && len(groups) != base.Count() {
		return nil, fmt.Errorf("build features: %d customer groups for %d base customers", len(groups), base.Count())
	}

	b.logger.WithFields(map[string]interface{}{
		"customers": len(groups),
		"duration":  time.Since(start).String(),
	}).Info("Feature aggregation completed")

	return set, nil
}
