package s1_window

import (
	"context"
	"errors"

	"github.com/wonny/churnlab/internal/contracts"
	"github.com/wonny/churnlab/pkg/logger"
)

// Labeler derives the churn label by set membership across the two windows
type Labeler struct {
	logger *logger.Logger
}

// NewLabeler creates a new label generator
func NewLabeler(log *logger.Logger) *Labeler {
	return &Labeler{logger: log.WithStage("s1_window")}
}

// Label implements contracts.Labeler
// ⭐ SSOT: base population(행 수)은 여기서 확정
func (l *Labeler) Label(ctx context.Context, split *contracts.Split) (*contracts.LabelBase, error) {
	if split == nil || split.Training.Len() == 0 {
		return nil, errors.New("label: training window is empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base := contracts.NewLabelBase(split.Training.CustomerSet(), split.Observation.CustomerSet())

	l.logger.WithFields(map[string]interface{}{
		"customers":  base.Count(),
		"churned":    base.Churned(),
		"churn_rate": base.ChurnRate(),
	}).Info("Churn labels generated")

	return base, nil
}
