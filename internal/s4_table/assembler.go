package s4_table

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/wonny/churnlab/internal/contracts"
	"github.com/wonny/churnlab/pkg/logger"
)

// JoinError reports an aggregate whose customers do not match the base population
type JoinError struct {
	Stage    string
	Missing  []string // base 고객 중 집계 결과 없음
	Extra    []string // base에 없는 고객
	BaseSize int
}

func (e *JoinError) Error() string {
	return fmt.Sprintf("join %s: %d missing, %d extra customers (base=%d)",
		e.Stage, len(e.Missing), len(e.Extra), e.BaseSize)
}

// Assembler joins every stage output onto the base table
// ⭐ SSOT: 행 수 = base population (join은 행을 늘리거나 줄이지 않음)
type Assembler struct {
	logger *logger.Logger
}

// NewAssembler creates a new assembler
func NewAssembler(log *logger.Logger) *Assembler {
	return &Assembler{logger: log.WithStage("s4_table")}
}

// Assemble implements contracts.Assembler
func (a *Assembler) Assemble(ctx context.Context, base *contracts.LabelBase, features *contracts.FeatureSet, segments *contracts.Segmentation) (*contracts.FeatureTable, error) {
	if base == nil || base.Count() == 0 {
		return nil, errors.New("assemble: empty base population")
	}
	if features == nil || segments == nil {
		return nil, errors.New("assemble: missing stage output")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := checkJoin("rfm", base, features.RFM); err != nil {
		return nil, err
	}
	if err := checkJoin("behavioral", base, features.Behavioral); err != nil {
		return nil, err
	}
	if err := checkJoin("temporal", base, features.Temporal); err != nil {
		return nil, err
	}
	if features.Product != nil {
		if err := checkJoin("product", base, features.Product); err != nil {
			return nil, err
		}
	}
	if err := checkJoin("segment", base, segments.Scores); err != nil {
		return nil, err
	}

	rows := make([]contracts.CustomerFeatures, 0, base.Count())
	filled := 0
	for _, id := range base.CustomerIDs {
		row := contracts.CustomerFeatures{
			CustomerID:         id,
			Churn:              base.Churn[id],
			RFMFeatures:        features.RFM[id],
			BehavioralFeatures: features.Behavioral[id],
			TemporalFeatures:   features.Temporal[id],
			SegmentScores:      segments.Scores[id],
		}
		row.RecentPurchases = alignRecent(row.RecentPurchases, len(features.Lookbacks))
		if features.Product != nil {
			p := features.Product[id]
			row.Product = &p
		}
		filled += fillNonFinite(&row)
		rows = append(rows, row)
	}

	table := &contracts.FeatureTable{
		Columns:   Columns(features.Lookbacks, features.Product != nil, segments.Categorical),
		Rows:      rows,
		Lookbacks: append([]int(nil), features.Lookbacks...),
	}

	a.logger.WithFields(map[string]interface{}{
		"customers":  table.Count(),
		"columns":    len(table.Columns),
		"churn_rate": table.ChurnRate(),
		"filled":     filled,
	}).Info("Feature table assembled")

	return table, nil
}

// checkJoin verifies that an aggregate has exactly the base customers
func checkJoin[T any](stage string, base *contracts.LabelBase, agg map[string]T) error {
	var missing, extra []string
	for _, id := range base.CustomerIDs {
		if _, ok := agg[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(agg) != base.Count()-len(missing) {
		for id := range agg {
			if !base.Contains(id) {
				extra = append(extra, id)
			}
		}
	}
	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}
	return &JoinError{Stage: stage, Missing: missing, Extra: extra, BaseSize: base.Count()}
}

// alignRecent pads (with 0) or trims recent counts to the lookback count
func alignRecent(counts []int, n int) []int {
	out := make([]int, n)
	copy(out, counts)
	return out
}

// fillNonFinite replaces NaN/Inf with 0 and returns the number of replaced cells
func fillNonFinite(r *contracts.CustomerFeatures) int {
	n := 0
	fix := func(v *float64) {
		if math.IsNaN(*v) || math.IsInf(*v, 0) {
			*v = 0
			n++
		}
	}

	fix(&r.TotalSpent)
	fix(&r.AvgOrderValue)
	fix(&r.AvgDaysBetweenPurchases)
	fix(&r.StdDaysBetweenPurchases)
	fix(&r.AvgBasketSize)
	fix(&r.StdBasketSize)
	fix(&r.MaxBasketSize)
	fix(&r.PurchaseVelocity)
	if r.Product != nil {
		fix(&r.Product.ProductDiversityScore)
		fix(&r.Product.AvgUnitPrice)
		fix(&r.Product.StdUnitPrice)
		fix(&r.Product.MinUnitPrice)
		fix(&r.Product.MaxUnitPrice)
	}
	return n
}
